package ledger

import (
	"errors"
	"net/http"
	"time"

	"tradecrafter/internal/httputil"
	"tradecrafter/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrOverFill),
		errors.Is(err, ErrAlreadyClosed):
		return http.StatusConflict
	case errors.Is(err, ErrMarketDataUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
}

type createAccountRequest struct {
	Name    string           `json:"name"`
	Balance *decimal.Decimal `json:"balance,omitempty"`
}

func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request, userID string) {
	var req createAccountRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	acct, err := h.svc.CreateAccount(r.Context(), userID, req.Name, req.Balance, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, acct)
}

func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request, userID string) {
	accts, err := h.svc.AccountsByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accts)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request, userID string) {
	acct, err := h.svc.GetAccountForOwner(r.Context(), userID, chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, acct)
}

type placeOrderRequest struct {
	AccountID  string           `json:"account_id"`
	Symbol     string           `json:"symbol"`
	Type       string           `json:"type"`
	Side       string           `json:"side"`
	Volume     decimal.Decimal  `json:"volume"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	StopPrice  *decimal.Decimal `json:"stop_price,omitempty"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
	ExpiresAt  *time.Time       `json:"expires_at,omitempty"`
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var req placeOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	o, err := h.svc.PlaceOrder(r.Context(), PlaceOrderRequest{
		OwnerID:    userID,
		AccountID:  req.AccountID,
		Symbol:     req.Symbol,
		Type:       types.OrderType(req.Type),
		Side:       types.OrderSide(req.Side),
		Volume:     req.Volume,
		Price:      req.Price,
		StopPrice:  req.StopPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
		ExpiresAt:  req.ExpiresAt,
	}, time.Now().UTC())
	if err != nil {
		// a rejected market order is still returned alongside the error
		if o.ID != "" && errors.Is(err, ErrMarketDataUnavailable) {
			httputil.WriteJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": err.Error(),
				"order": o,
			})
			return
		}
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request, userID string) {
	orders, err := h.svc.OrdersByAccount(r.Context(), userID, chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, userID string) {
	o, err := h.svc.CancelOrder(r.Context(), userID, chi.URLParam(r, "orderID"), time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

type fillOrderRequest struct {
	Volume decimal.Decimal `json:"volume"`
	Price  decimal.Decimal `json:"price"`
}

func (h *Handler) FillOrder(w http.ResponseWriter, r *http.Request, userID string) {
	var req fillOrderRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	o, err := h.svc.FillOrder(r.Context(), userID, chi.URLParam(r, "orderID"), req.Volume, req.Price, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) ListPositions(w http.ResponseWriter, r *http.Request, userID string) {
	positions, err := h.svc.PositionsByAccount(r.Context(), userID, chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, positions)
}

type closePositionRequest struct {
	Price      *decimal.Decimal `json:"price,omitempty"`
	Commission *decimal.Decimal `json:"commission,omitempty"`
	Slippage   *decimal.Decimal `json:"slippage,omitempty"`
}

func (h *Handler) ClosePosition(w http.ResponseWriter, r *http.Request, userID string) {
	var req closePositionRequest
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
			return
		}
	}
	commission := decimal.Zero
	if req.Commission != nil {
		commission = *req.Commission
	}
	slippage := decimal.Zero
	if req.Slippage != nil {
		slippage = *req.Slippage
	}
	trade, err := h.svc.ClosePosition(r.Context(), userID, chi.URLParam(r, "positionID"), req.Price, commission, slippage, time.Now().UTC())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request, userID string) {
	trades, err := h.svc.TradesByAccount(r.Context(), userID, chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request, userID string) {
	snap, err := h.svc.GetSnapshot(r.Context(), userID, chi.URLParam(r, "accountID"))
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
