package canon

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_KeyOrderIndependence(t *testing.T) {
	a := map[string]any{"b": Int(2), "a": Int(1)}
	b := map[string]any{"a": Int(1), "b": Int(2)}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)
	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t, `{"a":1,"b":2}`, string(ca))
}

func TestCanonicalize_WalletLowercased(t *testing.T) {
	v := map[string]any{"wallet": "0x742D35cc6634C0532925A3B8D000b45F5c964c12"}
	b, err := Canonicalize(v)
	require.NoError(t, err)
	assert.Equal(t, `{"wallet":"0x742d35cc6634c0532925a3b8d000b45f5c964c12"}`, string(b))
}

func TestCanonicalize_DecimalTrimmed(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{40, "40"},
		{40.5, "40.5"},
		{1.0000001, "1"},
		{1.23456789, "1.234568"},
		{0.1, "0.1"},
	}
	for _, c := range cases {
		b, err := Canonicalize(Decimal(c.in))
		require.NoError(t, err)
		assert.Equal(t, c.want, string(b))
	}
}

func TestCanonicalize_Integer(t *testing.T) {
	b, err := Canonicalize(Int(500000))
	require.NoError(t, err)
	assert.Equal(t, "500000", string(b))
}

func TestCanonicalize_Instant(t *testing.T) {
	ts := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	b, err := Canonicalize(Instant(ts))
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-08T10:00:00.000Z"`, string(b))
}

func TestCanonicalize_NonUTCInstantFails(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	ts := time.Date(2024, 1, 8, 10, 0, 0, 0, loc)
	_, err = Canonicalize(Instant(ts))
	assert.Error(t, err)
}

func TestCanonicalize_NonFiniteRejected(t *testing.T) {
	_, err := Canonicalize(Decimal(1.0 / zero()))
	assert.Error(t, err)
}

func zero() float64 { return 0 }

func TestCanonicalize_ArrayOrderPreserved(t *testing.T) {
	v := []any{Int(3), Int(1), Int(2)}
	b, err := Canonicalize(v)
	require.NoError(t, err)
	assert.Equal(t, "[3,1,2]", string(b))
}

func TestSelfValidate_Determinism(t *testing.T) {
	v := map[string]any{
		"employer_id":     "test_employer",
		"employee_wallet": "0x742D35cc6634C0532925A3B8D000b45F5c964c12",
		"wage_amount":      Int(500000),
		"hours_worked":     Decimal(40),
		"hourly_rate":      Int(12500),
	}
	b, err := Canonicalize(v)
	require.NoError(t, err)
	require.NoError(t, SelfValidate(b))
}

func TestEqual(t *testing.T) {
	a := map[string]any{"x": Int(1), "y": Int(2)}
	b := map[string]any{"y": Int(2), "x": Int(1)}
	eq, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	c := map[string]any{"y": Int(3), "x": Int(1)}
	eq, err = Equal(a, c)
	require.NoError(t, err)
	assert.False(t, eq)
}

func TestCanonicalize_StringEscaping(t *testing.T) {
	b, err := Canonicalize("line\nbreak\tand\"quote")
	require.NoError(t, err)
	assert.Equal(t, `"line\nbreak\tand\"quote"`, string(b))
}
