package httpserver

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tradecrafter/internal/auth"
	"tradecrafter/internal/ledger"
	"tradecrafter/internal/marketdata"

	"github.com/gorilla/websocket"
)

const snapshotThrottle = 200 * time.Millisecond

// WSHandler streams bus events to an authenticated client. Price ticks for
// symbols the user holds also push a refreshed account snapshot, throttled so
// a fast feed does not flood the socket.
type WSHandler struct {
	bus      *marketdata.Bus
	authSvc  *auth.Service
	ledger   *ledger.Service
	origin   string
	upgrader websocket.Upgrader
}

func NewWSHandler(bus *marketdata.Bus, authSvc *auth.Service, ledgerSvc *ledger.Service, origin string) *WSHandler {
	return &WSHandler{
		bus:     bus,
		authSvc: authSvc,
		ledger:  ledgerSvc,
		origin:  origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return allowOrigin(r, origin) },
		},
	}
}

func allowOrigin(r *http.Request, origin string) bool {
	if origin == "*" {
		return true
	}
	reqOrigin := r.Header.Get("Origin")
	// Allow both localhost and 127.0.0.1 variants for development
	if strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1") {
		if strings.Contains(reqOrigin, "localhost") || strings.Contains(reqOrigin, "127.0.0.1") {
			return true
		}
	}
	return strings.EqualFold(reqOrigin, origin)
}

type snapshotPayload struct {
	AccountID string          `json:"account_id"`
	Snapshot  ledger.Snapshot `json:"snapshot"`
	TS        int64           `json:"ts"`
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token, ok := BearerToken(r)
	if !ok {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	userID, err := h.authSvc.ParseToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.bus.Subscribe()
	defer h.bus.Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastSnapshotAt time.Time
	for {
		select {
		case evt, ok := <-sub:
			if !ok {
				return
			}
			if err := conn.WriteJSON(evt); err != nil {
				return
			}
			if evt.Type != "price_tick" {
				continue
			}
			if !lastSnapshotAt.IsZero() && time.Since(lastSnapshotAt) < snapshotThrottle {
				continue
			}
			if h.pushSnapshots(conn, userID) != nil {
				return
			}
			lastSnapshotAt = time.Now()
		case <-done:
			return
		}
	}
}

func (h *WSHandler) pushSnapshots(conn *websocket.Conn, userID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	accts, err := h.ledger.AccountsByOwner(ctx, userID)
	if err != nil {
		return nil
	}
	for _, acct := range accts {
		snap, err := h.ledger.GetSnapshot(ctx, userID, acct.ID)
		if err != nil {
			continue
		}
		payload := snapshotPayload{AccountID: acct.ID, Snapshot: snap, TS: time.Now().UnixMilli()}
		if err := conn.WriteJSON(marketdata.Event{Type: "account_snapshot", Data: payload}); err != nil {
			return err
		}
	}
	return nil
}
