package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/auth"
)

type RouterConfig struct {
	Handlers     *Handlers
	AuthHandlers *AuthHandlers
	JWTService   *auth.JWTService
}

func NewRouter(cfg RouterConfig) http.Handler {
	handlers := cfg.Handlers
	authHandlers := cfg.AuthHandlers

	mux := http.NewServeMux()

	// Products
	mux.HandleFunc("/products", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.ListProducts(w, r)
		case http.MethodPost:
			handlers.CreateProduct(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/products/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			handlers.GetProduct(w, r)
		case http.MethodPut:
			handlers.UpdateProduct(w, r)
		case http.MethodDelete:
			handlers.DeleteProduct(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Carts
	mux.HandleFunc("/carts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			handlers.CreateCart(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/carts/", func(w http.ResponseWriter, r *http.Request) {
		rest := extractPathParam(r.URL.Path, "/carts/")
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && r.Method == http.MethodGet:
			handlers.GetCart(w, r, parts[0])
		case len(parts) == 1 && r.Method == http.MethodPost:
			handlers.AddProductToCart(w, r, parts[0])
		case len(parts) == 1 && r.Method == http.MethodDelete:
			handlers.DeleteCart(w, r, parts[0])
		case len(parts) == 3 && parts[1] == "products" && r.Method == http.MethodDelete:
			handlers.RemoveProductFromCart(w, r, parts[0], parts[2])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Identity
	mux.HandleFunc("/auth/signup", requirePost(authHandlers.SignUp))
	mux.HandleFunc("/auth/login", requirePost(authHandlers.Login))
	mux.HandleFunc("/auth/logout", requirePost(authHandlers.Logout))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Attach the caller identity when a token is present; nothing below
	// requires one.
	withAuth := middleware.OptionalAuth(cfg.JWTService)(mux)
	return withLogging(withAuth)
}

func requirePost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("[API] %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
