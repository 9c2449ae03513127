package superfaktura

import (
	"encoding/json"
	"log"
)

// The SuperFaktura API returns logically identical list data in several
// encodings for the same query: a bare array, {"items":[...]} or
// {"error":0,"data":[...]}; each element may additionally be wrapped under a
// named key ("Expense", "Client"). decodeSequence tries the documented
// shapes in a fixed priority order and degrades to field probing instead of
// failing, because duplicate checking must never crash a batch over an
// unexpected encoding.

// listEnvelope models the object-shaped list responses.
type listEnvelope struct {
	Error *int            `json:"error"`
	Items json.RawMessage `json:"items"`
	Data  json.RawMessage `json:"data"`
}

// decodeSequence normalizes a raw list response into its element messages.
// Order of attempts: bare array, then "items", then "data". On total
// mismatch it logs a warning and returns nil rather than an error.
func decodeSequence(raw []byte) []json.RawMessage {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}

	var env listEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("superfaktura: unrecognized list response shape: %s", truncate(string(raw), 200))
		return nil
	}
	for _, field := range []json.RawMessage{env.Items, env.Data} {
		if len(field) == 0 {
			continue
		}
		if err := json.Unmarshal(field, &arr); err == nil {
			return arr
		}
		// Present but not an array: treat as a single record. Best effort,
		// worth a warning.
		log.Printf("superfaktura: list field is not an array, probing as single record")
		return []json.RawMessage{field}
	}
	log.Printf("superfaktura: list response carried no items or data field")
	return nil
}

// unwrapRecord strips the per-record named-key wrapper ({"Expense":{...}})
// when present, returning the inner object otherwise the record itself.
func unwrapRecord(raw json.RawMessage, key string) json.RawMessage {
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return raw
	}
	if inner, ok := wrapper[key]; ok && len(inner) > 0 {
		return inner
	}
	return raw
}

// flexString tolerates the API's habit of returning ids and symbols as
// either JSON strings or numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexString(n.String())
		return nil
	}
	// Unknown scalar encoding; keep raw text rather than failing the record.
	*f = flexString(data)
	return nil
}

func (f flexString) String() string { return string(f) }

// ExpenseRecord is one expense row from a list/search response.
type ExpenseRecord struct {
	ID             flexString `json:"id"`
	Variable       flexString `json:"variable"`
	VariableSymbol flexString `json:"variable_symbol"`
	Amount         flexString `json:"amount"`
	Created        string     `json:"created"`
}

// decodeExpenseList normalizes a search/list response into expense records,
// unwrapping the "Expense" record wrapper where present. Records that do not
// decode are skipped.
func decodeExpenseList(raw []byte) []ExpenseRecord {
	elems := decodeSequence(raw)
	records := make([]ExpenseRecord, 0, len(elems))
	for _, elem := range elems {
		var rec ExpenseRecord
		if err := json.Unmarshal(unwrapRecord(elem, "Expense"), &rec); err != nil {
			log.Printf("superfaktura: skipping undecodable expense record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

// ClientRecord is one client row from a client search response.
type ClientRecord struct {
	ID    flexString `json:"id"`
	Name  string     `json:"name"`
	TaxID string     `json:"ico"`
	VATID string     `json:"dic"`
}

// decodeClientList normalizes a client search response, unwrapping the
// "Client" record wrapper where present.
func decodeClientList(raw []byte) []ClientRecord {
	elems := decodeSequence(raw)
	records := make([]ClientRecord, 0, len(elems))
	for _, elem := range elems {
		var rec ClientRecord
		if err := json.Unmarshal(unwrapRecord(elem, "Client"), &rec); err != nil {
			log.Printf("superfaktura: skipping undecodable client record: %v", err)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
