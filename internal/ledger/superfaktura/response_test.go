package superfaktura

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeExpenseList_ShapeEquivalence(t *testing.T) {
	// The same logical result in the three documented list encodings.
	shapes := map[string]string{
		"bare array":    `[{"Expense":{"id":1,"variable":"123"}}]`,
		"items field":   `{"items":[{"Expense":{"id":1,"variable":"123"}}]}`,
		"data envelope": `{"error":0,"data":[{"Expense":{"id":1,"variable":"123"}}]}`,
	}

	for name, raw := range shapes {
		t.Run(name, func(t *testing.T) {
			records := decodeExpenseList([]byte(raw))
			require.Len(t, records, 1)
			assert.Equal(t, "1", records[0].ID.String())
			assert.Equal(t, "123", records[0].Variable.String())
		})
	}
}

func TestDecodeExpenseList_UnwrappedRecords(t *testing.T) {
	records := decodeExpenseList([]byte(`[{"id":"7","variable_symbol":456}]`))
	require.Len(t, records, 1)
	assert.Equal(t, "7", records[0].ID.String())
	assert.Equal(t, "456", records[0].VariableSymbol.String())
}

func TestDecodeSequence_SingleRecordProbe(t *testing.T) {
	// "data" present but not an array: probed as a single record.
	elems := decodeSequence([]byte(`{"data":{"Expense":{"id":"9"}}}`))
	require.Len(t, elems, 1)
}

func TestDecodeSequence_UnrecognizedShapes(t *testing.T) {
	assert.Nil(t, decodeSequence([]byte(`"just a string"`)))
	assert.Nil(t, decodeSequence([]byte(`{"error":1}`)))
	assert.Nil(t, decodeSequence([]byte(`not json at all`)))
}

func TestDecodeExpenseList_SkipsUndecodableRecords(t *testing.T) {
	records := decodeExpenseList([]byte(`[{"Expense":{"id":"1"}}, "bogus", {"Expense":{"id":"2"}}]`))
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].ID.String())
	assert.Equal(t, "2", records[1].ID.String())
}

func TestDecodeClientList(t *testing.T) {
	raw := `{"data":[{"Client":{"id":42,"name":"Zásilkovna s.r.o.","ico":"28408306"}}]}`
	records := decodeClientList([]byte(raw))
	require.Len(t, records, 1)
	assert.Equal(t, "42", records[0].ID.String())
	assert.Equal(t, "28408306", records[0].TaxID)
}

func TestFlexString(t *testing.T) {
	var rec ExpenseRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":null,"amount":12.5,"variable":"00123"}`), &rec))
	assert.Equal(t, "", rec.ID.String())
	assert.Equal(t, "12.5", rec.Amount.String())
	assert.Equal(t, "00123", rec.Variable.String())
}
