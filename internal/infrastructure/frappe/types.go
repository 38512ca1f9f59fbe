package frappe

import (
	"github.com/shopspring/decimal"
)

// Doctype names on the ERP side.
const (
	doctypePatient      = "Patient"
	doctypePractitioner = "Healthcare Practitioner"
	doctypeItem         = "Item"
	doctypeBin          = "Bin"
	doctypeEvent        = "Event"
	doctypeUser         = "User"
)

// listResponse is the envelope for GET /api/resource/{doctype}.
type listResponse struct {
	Data []map[string]any `json:"data"`
}

// docResponse is the envelope for single-document operations.
type docResponse struct {
	Data map[string]any `json:"data"`
}

// getString reads a string field from a loosely typed document.
func getString(doc map[string]any, key string) string {
	if v, ok := doc[key].(string); ok {
		return v
	}
	return ""
}

// getDecimal reads a numeric field from a loosely typed document. Frappe
// serializes floats; string values are tolerated.
func getDecimal(doc map[string]any, key string) decimal.Decimal {
	switch v := doc[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return decimal.Zero
}
