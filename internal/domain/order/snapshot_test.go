package order

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSnapshot(t *testing.T) {
	payload := []byte(`{
		"customer": {"first_name": "Ana", "last_name": "Gomez", "email": "ana@example.com"},
		"line_items": [
			{"sku": "SKU-1", "name": "Widget", "quantity": 2, "price": "19.95"},
			{"sku": "SKU-2", "name": "Gadget", "quantity": 1, "price": "20.00"}
		],
		"total_price": "59.90",
		"currency": "COP"
	}`)

	s, err := ParseSnapshot(payload)
	require.NoError(t, err)
	require.Equal(t, "Ana Gomez", s.CustomerName())
	require.Equal(t, "ana@example.com", s.CustomerEmail())
	require.Len(t, s.Items(), 2)
	require.Equal(t, "SKU-1", s.Items()[0].SKU)
	require.InDelta(t, 59.90, s.Total(), 0.001)
}

func TestParseSnapshotMissingFields(t *testing.T) {
	s, err := ParseSnapshot([]byte(`{}`))
	require.NoError(t, err)
	require.Equal(t, "", s.CustomerName())
	require.Equal(t, "", s.CustomerEmail())
	require.NotNil(t, s.Items())
	require.Empty(t, s.Items())
	require.Zero(t, s.Total())
}

func TestParseSnapshotPartialCustomer(t *testing.T) {
	s, err := ParseSnapshot([]byte(`{"customer": {"first_name": "Ana"}}`))
	require.NoError(t, err)
	require.Equal(t, "Ana", s.CustomerName())
}

func TestParseSnapshotNumericPrice(t *testing.T) {
	s, err := ParseSnapshot([]byte(`{"total_price": 59.9}`))
	require.NoError(t, err)
	require.InDelta(t, 59.9, s.Total(), 0.001)
}

func TestParseSnapshotEmptyPayload(t *testing.T) {
	s, err := ParseSnapshot(nil)
	require.NoError(t, err)
	require.Zero(t, s.Total())
}

func TestParseSnapshotMalformed(t *testing.T) {
	_, err := ParseSnapshot([]byte(`{not json`))
	require.Error(t, err)
}

func TestPriceUnparseable(t *testing.T) {
	s, err := ParseSnapshot([]byte(`{"total_price": "free"}`))
	require.NoError(t, err)
	require.Zero(t, s.Total())
}
