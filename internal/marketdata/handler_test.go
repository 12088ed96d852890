package marketdata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tradecrafter/internal/marketdata"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickRecorder struct {
	symbol string
	price  decimal.Decimal
	calls  int
}

func (r *tickRecorder) OnPriceTick(ctx context.Context, symbol string, price decimal.Decimal, now time.Time) error {
	r.symbol = symbol
	r.price = price
	r.calls++
	return nil
}

func postTick(h *marketdata.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/ticks", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.PostTick(rec, req)
	return rec
}

func TestPostTickUpdatesQuotesAndRevalues(t *testing.T) {
	quotes := marketdata.NewQuotes()
	ticker := &tickRecorder{}
	h := marketdata.NewHandler(quotes, ticker)

	rec := postTick(h, `{"symbol":"EURUSD","price":"110.5"}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	price, err := quotes.GetLastPrice(context.Background(), "EURUSD")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("110.5")))

	assert.Equal(t, 1, ticker.calls)
	assert.Equal(t, "EURUSD", ticker.symbol)
	assert.True(t, ticker.price.Equal(decimal.RequireFromString("110.5")))
}

func TestPostTickRejectsBadInput(t *testing.T) {
	quotes := marketdata.NewQuotes()
	ticker := &tickRecorder{}
	h := marketdata.NewHandler(quotes, ticker)

	for _, body := range []string{
		`{"price":"100"}`,
		`{"symbol":"EURUSD","price":"0"}`,
		`{"symbol":"EURUSD","price":"-1"}`,
		`not json`,
	} {
		rec := postTick(h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Zero(t, ticker.calls)

	_, err := quotes.GetLastPrice(context.Background(), "EURUSD")
	assert.ErrorIs(t, err, marketdata.ErrNoQuote)
}
