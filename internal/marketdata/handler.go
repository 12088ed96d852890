package marketdata

import (
	"context"
	"net/http"
	"time"

	"tradecrafter/internal/httputil"

	"github.com/shopspring/decimal"
)

// Ticker is notified after a quote lands so open positions revalue.
type Ticker interface {
	OnPriceTick(ctx context.Context, symbol string, price decimal.Decimal, now time.Time) error
}

// Handler ingests price ticks. Each tick updates the quote cache and then
// drives the revaluation path.
type Handler struct {
	quotes *Quotes
	ticker Ticker
}

func NewHandler(quotes *Quotes, ticker Ticker) *Handler {
	return &Handler{quotes: quotes, ticker: ticker}
}

type tickRequest struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

func (h *Handler) PostTick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if req.Symbol == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "symbol is required"})
		return
	}
	if req.Price.Sign() <= 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "price must be positive"})
		return
	}

	now := time.Now().UTC()
	h.quotes.Set(req.Symbol, req.Price, now)
	if err := h.ticker.OnPriceTick(r.Context(), req.Symbol, req.Price, now); err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"symbol": req.Symbol,
		"price":  req.Price.String(),
	})
}
