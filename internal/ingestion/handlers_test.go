package ingestion

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protocol-pulse/internal/storage/memory"
)

func TestDayField(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
		ok    bool
	}{
		{"plain date", "2025-05-01", "2025-05-01", true},
		{"datetime", "2025-05-01 00:00:00", "2025-05-01", true},
		{"rfc3339", "2025-05-01T13:45:00Z", "2025-05-01", true},
		{"datetime with zone", "2025-05-01 00:00:00.000 UTC", "2025-05-01", true},
		{"empty", "", "", false},
		{"garbage", "yesterday", "", false},
		{"not a string", 20250501, "", false},
		{"missing", nil, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := map[string]any{}
			if tt.value != nil {
				row["block_day"] = tt.value
			}
			got, ok := dayField(row, "block_day")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFloatField_Lenient(t *testing.T) {
	row := map[string]any{
		"num":     float64(12.5),
		"str":     "42.75",
		"jsonnum": json.Number("7"),
		"bad":     "not-a-number",
		"wrong":   true,
	}

	require.NotNil(t, floatField(row, "num"))
	assert.Equal(t, 12.5, *floatField(row, "num"))
	assert.Equal(t, 42.75, *floatField(row, "str"))
	assert.Equal(t, 7.0, *floatField(row, "jsonnum"))
	assert.Nil(t, floatField(row, "bad"))
	assert.Nil(t, floatField(row, "wrong"))
	assert.Nil(t, floatField(row, "missing"))
}

func TestIntField_Lenient(t *testing.T) {
	row := map[string]any{
		"num": float64(150),
		"str": "175",
		"bad": "many",
	}

	assert.Equal(t, int64(150), *intField(row, "num"))
	assert.Equal(t, int64(175), *intField(row, "str"))
	assert.Nil(t, intField(row, "bad"))
	assert.Nil(t, intField(row, "missing"))
}

func TestWalletStatHandler_MalformedValueBecomesNull(t *testing.T) {
	store := memory.NewWalletStatStore()
	handler := WalletStatHandler(store)

	err := handler(context.Background(), map[string]any{
		"block_day":     "2025-05-01",
		"address_count": "oops",
		"inflow_usd":    float64(1000),
	}, Provenance{ExecutionID: "E1", QueryID: QueryWalletStats})
	require.NoError(t, err)

	stat, err := store.GetByDay(context.Background(), "2025-05-01")
	require.NoError(t, err)
	assert.Nil(t, stat.AddressCount)
	assert.Equal(t, 1000.0, *stat.InflowUSD)
}

func TestProtocolTVLHandler_MissingProtocol(t *testing.T) {
	store := memory.NewProtocolTVLStore()
	handler := ProtocolTVLHandler(store)

	err := handler(context.Background(), map[string]any{
		"block_day": "2025-05-01",
		"tvl_usd":   float64(5),
	}, Provenance{ExecutionID: "E1", QueryID: QueryFlowTVL})
	assert.ErrorIs(t, err, ErrMissingNaturalKey)
}
