package httpserver

import (
	"net/http"

	"tradecrafter/internal/auth"
	"tradecrafter/internal/httputil"
	"tradecrafter/internal/ledger"
	"tradecrafter/internal/marketdata"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler   *auth.Handler
	LedgerHandler *ledger.Handler
	MarketHandler *marketdata.Handler
	AuthService   *auth.Service
	WSHandler     http.Handler
}

// authed adapts the userID-taking handler style to chi. The WithAuth
// middleware has already populated the context.
func authed(h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r)
		if !ok {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
			return
		}
		h(w, r, userID)
	}
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/login", d.AuthHandler.Login)
		})
		r.Get("/ws", d.WSHandler.ServeHTTP)
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Get("/me", authed(d.AuthHandler.Me))

			r.Post("/accounts", authed(d.LedgerHandler.CreateAccount))
			r.Get("/accounts", authed(d.LedgerHandler.ListAccounts))
			r.Get("/accounts/{accountID}", authed(d.LedgerHandler.GetAccount))
			r.Get("/accounts/{accountID}/orders", authed(d.LedgerHandler.ListOrders))
			r.Get("/accounts/{accountID}/positions", authed(d.LedgerHandler.ListPositions))
			r.Get("/accounts/{accountID}/trades", authed(d.LedgerHandler.ListTrades))
			r.Get("/accounts/{accountID}/snapshot", authed(d.LedgerHandler.GetSnapshot))

			r.Post("/orders", authed(d.LedgerHandler.PlaceOrder))
			r.Post("/orders/{orderID}/cancel", authed(d.LedgerHandler.CancelOrder))
			r.Post("/orders/{orderID}/fill", authed(d.LedgerHandler.FillOrder))

			r.Post("/positions/{positionID}/close", authed(d.LedgerHandler.ClosePosition))

			r.Post("/ticks", d.MarketHandler.PostTick)
		})
	})
	return r
}
