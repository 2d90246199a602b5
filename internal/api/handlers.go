package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/product"
)

const (
	msgInvalidID       = "Error. Debe enviar un ID valido."
	msgInvalidCartID   = "Error. El ID de carrito no es válido."
	msgInvalidParams   = "Error. Debe enviar correctamente los parametros"
	msgInvalidBody     = "Error. El cuerpo de la peticion no es valido."
	msgProductNotFound = "Error. El producto no existe o no fue encontrado."
	msgCartNotFound    = "Error. El carrito no existe o no fue encontrado."
	msgProductUpdated  = "El producto fue actualizado exitosamente"
	msgProductDeleted  = "El producto fue eliminado exitosamente."
	msgProductAdded    = "El producto fue agregado al carrito exitosamente."
	msgProductRemoved  = "El producto fue eliminado del carrito exitosamente."
	msgCartDeleted     = "El carrito fue eliminado exitosamente."
)

// Handlers serves the catalog and cart endpoints.
type Handlers struct {
	products     *product.Service
	carts        *cart.Service
	exposeDetail bool
}

func NewHandlers(products *product.Service, carts *cart.Service, exposeDetail bool) *Handlers {
	return &Handlers{
		products:     products,
		carts:        carts,
		exposeDetail: exposeDetail,
	}
}

// parseID parses a path identity. Anything that is not a positive integer
// is rejected before any lookup happens.
func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// extractPathParam returns the path segment following the given prefix.
func extractPathParam(path, prefix string) string {
	rest := strings.TrimPrefix(path, prefix)
	return strings.Trim(rest, "/")
}

// Product handlers

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": products})
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(extractPathParam(r.URL.Path, "/products/"))
	if !ok {
		respondBadRequest(w, msgInvalidID)
		return
	}

	p, err := h.products.Get(r.Context(), id)
	if errors.Is(err, product.ErrNotFound) {
		respondNotFound(w, msgProductNotFound)
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": p})
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var f product.Fields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondBadRequest(w, msgInvalidBody)
		return
	}

	p, err := h.products.Create(r.Context(), f)
	var ve *product.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"errors": ve.Violations})
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"data": p})
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(extractPathParam(r.URL.Path, "/products/"))
	if !ok {
		respondBadRequest(w, msgInvalidID)
		return
	}

	var f product.Fields
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		respondBadRequest(w, msgInvalidBody)
		return
	}

	p, err := h.products.Update(r.Context(), id, f)
	var ve *product.ValidationError
	if errors.As(err, &ve) {
		respondJSON(w, http.StatusBadRequest, map[string]any{"errores": ve.Violations})
		return
	}
	if errors.Is(err, product.ErrNotFound) {
		respondNotFound(w, msgProductNotFound)
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"mensaje": msgProductUpdated, "data": p})
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(extractPathParam(r.URL.Path, "/products/"))
	if !ok {
		respondBadRequest(w, msgInvalidID)
		return
	}

	err := h.products.Delete(r.Context(), id)
	if errors.Is(err, product.ErrNotFound) {
		respondNotFound(w, msgProductNotFound)
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"mensaje": msgProductDeleted})
}

// Cart handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(rawID)
	if !ok {
		respondBadRequest(w, "Error de ID. Debe enviar un ID valido.")
		return
	}

	c, err := h.carts.Get(r.Context(), id)
	if errors.Is(err, cart.ErrNotFound) {
		respondNotFound(w, msgCartNotFound)
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": c})
}

func (h *Handlers) CreateCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Create(r.Context())
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"mensaje": fmt.Sprintf("Se ha creado un carrito con %d exitosamente.", c.ID),
	})
}

func (h *Handlers) AddProductToCart(w http.ResponseWriter, r *http.Request, rawID string) {
	cartID, ok := parseID(rawID)
	if !ok {
		respondBadRequest(w, msgInvalidCartID)
		return
	}

	var body struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID <= 0 {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"errores": []map[string]string{{"param": "id", "msg": "Debe enviar un ID de producto valido."}},
		})
		return
	}

	_, err := h.carts.AddProduct(r.Context(), cartID, body.ID)
	if errors.Is(err, cart.ErrNotFound) {
		respondNotFound(w, msgCartNotFound)
		return
	}
	if errors.Is(err, product.ErrNotFound) {
		respondNotFound(w, msgProductNotFound)
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"mensaje": msgProductAdded})
}

func (h *Handlers) RemoveProductFromCart(w http.ResponseWriter, r *http.Request, rawCartID, rawProductID string) {
	cartID, okCart := parseID(rawCartID)
	productID, okProduct := parseID(rawProductID)
	if !okCart || !okProduct {
		respondBadRequest(w, msgInvalidParams)
		return
	}

	_, err := h.carts.RemoveProduct(r.Context(), cartID, productID)
	if errors.Is(err, cart.ErrNotFound) {
		respondNotFound(w, msgCartNotFound)
		return
	}
	if errors.Is(err, cart.ErrProductNotInCart) {
		respondNotFound(w, msgProductNotFound)
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"mensaje": msgProductRemoved})
}

func (h *Handlers) DeleteCart(w http.ResponseWriter, r *http.Request, rawID string) {
	id, ok := parseID(rawID)
	if !ok {
		respondBadRequest(w, msgInvalidID)
		return
	}

	err := h.carts.Delete(r.Context(), id)
	if errors.Is(err, cart.ErrNotFound) {
		respondNotFound(w, "Error. El carrito no fue encontrado.")
		return
	}
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"mensaje": msgCartDeleted})
}
