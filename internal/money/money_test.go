package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDiv(t *testing.T) {
	t.Parallel()

	q, err := Div(dec("1"), dec("3"), PriceScale)
	require.NoError(t, err)
	assert.True(t, q.Equal(dec("0.33333333")), "got %s", q)

	_, err = Div(dec("1"), decimal.Zero, PriceScale)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestRatio(t *testing.T) {
	t.Parallel()

	r, err := Ratio(dec("12345"), dec("10000"))
	require.NoError(t, err)
	assert.True(t, r.Equal(dec("123")), "got %s", r)

	_, err = Ratio(dec("1"), decimal.Zero)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestVWAP(t *testing.T) {
	t.Parallel()

	// (1*100 + 3*110) / 4 == 107.5
	p, err := VWAP(dec("1"), dec("100"), dec("3"), dec("110"))
	require.NoError(t, err)
	assert.True(t, p.Equal(dec("107.5")), "got %s", p)

	// first fill: old volume is zero
	p, err = VWAP(decimal.Zero, decimal.Zero, dec("2"), dec("50"))
	require.NoError(t, err)
	assert.True(t, p.Equal(dec("50")), "got %s", p)

	_, err = VWAP(decimal.Zero, decimal.Zero, decimal.Zero, dec("50"))
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestAddSubRoundTrip(t *testing.T) {
	t.Parallel()

	cases := [][2]string{
		{"0.00000001", "99999999.99999999"},
		{"-5.5", "3.00000007"},
		{"123456.789", "0.000001"},
	}
	for _, c := range cases {
		a, b := dec(c[0]), dec(c[1])
		assert.True(t, a.Add(b).Sub(b).Equal(a), "%s + %s - %s", a, b, b)
	}
}
