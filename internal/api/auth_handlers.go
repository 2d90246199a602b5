package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/user"
)

// AuthHandlers serves the credential endpoints. The storefront core never
// sees credentials; it only receives the resolved caller identity.
type AuthHandlers struct {
	users        *user.Service
	jwtService   *auth.JWTService
	exposeDetail bool
}

func NewAuthHandlers(users *user.Service, jwtService *auth.JWTService, exposeDetail bool) *AuthHandlers {
	return &AuthHandlers{
		users:        users,
		jwtService:   jwtService,
		exposeDetail: exposeDetail,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, msgInvalidBody)
		return
	}

	_, err := h.users.SignUp(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, user.ErrUserExists):
		respondJSON(w, http.StatusConflict, map[string]string{"message": "Error. El usuario ya existe."})
		return
	case errors.Is(err, user.ErrInvalidUsername):
		respondBadRequest(w, "Error. Debe enviar un nombre de usuario.")
		return
	case errors.Is(err, auth.ErrPasswordTooShort):
		respondBadRequest(w, "Error. El password debe tener al menos 8 caracteres.")
		return
	case err != nil:
		respondServerError(w, err, h.exposeDetail)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"msg": "El registro ha sido exitoso"})
}

func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, msgInvalidBody)
		return
	}

	result := h.users.Authenticate(r.Context(), req.Username, req.Password)
	switch result.Status {
	case user.Rejected:
		respondJSON(w, http.StatusUnauthorized, map[string]string{"message": result.Reason})
		return
	case user.Failed:
		respondServerError(w, result.Err, h.exposeDetail)
		return
	}

	token, expiresAt, err := h.jwtService.GenerateToken(result.User.Username)
	if err != nil {
		respondServerError(w, err, h.exposeDetail)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondJSON(w, http.StatusOK, map[string]any{
		"msg":  "Bienvenido",
		"user": result.User,
	})
}

func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "access_token",
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, map[string]string{"msg": "Sesión cerrada."})
}
