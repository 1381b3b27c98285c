package document

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseExtractions(t *testing.T) {
	t.Parallel()

	raw := []byte(`{
		"extractions": {
			"amountToPay": {
				"value": "24.99:EUR",
				"entity": "amount",
				"box": {"page": 1, "left": 545.0, "top": 586.3, "width": 83.0, "height": 35.6},
				"candidates": "amounts"
			},
			"iban": {
				"value": "DE89370400440532013000",
				"entity": "iban"
			}
		},
		"candidates": {
			"amounts": [
				{"value": "24.99:EUR", "entity": "amount"},
				{"value": "1.09:EUR", "entity": "amount"}
			]
		}
	}`)

	set, err := ParseExtractions(raw)
	require.NoError(t, err)
	require.Len(t, set, 2)

	amount := set["amountToPay"]
	require.Equal(t, "amountToPay", amount.Name)
	require.Equal(t, "24.99:EUR", amount.Value())
	require.Equal(t, "amount", amount.Entity)
	require.NotNil(t, amount.Box())
	require.Equal(t, 1, amount.Box().Page)
	require.Len(t, amount.Candidates, 2)
	require.False(t, amount.Dirty())

	iban := set["iban"]
	require.Nil(t, iban.Box())
	require.Empty(t, iban.Candidates)
}

func TestExtractionDirtyTracking(t *testing.T) {
	t.Parallel()

	e := &Extraction{Name: "amountToPay", value: "24.99:EUR"}

	// Writing the same value back is not a correction.
	e.SetValue("24.99:EUR")
	require.False(t, e.Dirty())

	e.SetValue("25.00:EUR")
	require.True(t, e.Dirty())
	require.Equal(t, "25.00:EUR", e.Value())

	e.markClean()
	require.False(t, e.Dirty())

	e.SetBox(&Box{Page: 1, Left: 1, Top: 2, Width: 3, Height: 4})
	require.True(t, e.Dirty())
}

func TestExtractionSetDirty(t *testing.T) {
	t.Parallel()

	set := ExtractionSet{
		"a": &Extraction{Name: "a", value: "1"},
		"b": &Extraction{Name: "b", value: "2"},
	}
	require.Empty(t, set.Dirty())

	set["b"].SetValue("3")
	dirty := set.Dirty()
	require.Len(t, dirty, 1)
	require.Equal(t, "b", dirty[0].Name)
}
