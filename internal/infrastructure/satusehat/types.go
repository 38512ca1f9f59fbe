package satusehat

import "encoding/json"

// maxResponseSize is the maximum allowed response size from the gateway (10MB)
const maxResponseSize = 10 * 1024 * 1024

// nikNamespace is the identifier system for the national identity number.
// Patients and practitioners share it.
const nikNamespace = "https://fhir.kemkes.go.id/id/nik"

// fhirBundle is a FHIR searchset envelope.
type fhirBundle struct {
	ResourceType string `json:"resourceType"`
	Total        int    `json:"total"`
	Entry        []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

type fhirIdentifier struct {
	Use    string `json:"use,omitempty"`
	System string `json:"system"`
	Value  string `json:"value"`
}

type fhirHumanName struct {
	Use    string   `json:"use,omitempty"`
	Text   string   `json:"text,omitempty"`
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

type fhirAddress struct {
	Use        string   `json:"use,omitempty"`
	Line       []string `json:"line,omitempty"`
	City       string   `json:"city,omitempty"`
	PostalCode string   `json:"postalCode,omitempty"`
	Country    string   `json:"country,omitempty"`
}

type fhirCommunication struct {
	Language struct {
		Coding []fhirCoding `json:"coding,omitempty"`
		Text   string       `json:"text,omitempty"`
	} `json:"language"`
	Preferred bool `json:"preferred,omitempty"`
}

type fhirCoding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

// fhirPatient is the Patient resource subset used for create and search.
type fhirPatient struct {
	ResourceType  string              `json:"resourceType"`
	ID            string              `json:"id,omitempty"`
	Identifier    []fhirIdentifier    `json:"identifier,omitempty"`
	Active        bool                `json:"active"`
	Name          []fhirHumanName     `json:"name,omitempty"`
	Gender        string              `json:"gender,omitempty"`
	BirthDate     string              `json:"birthDate,omitempty"`
	Address       []fhirAddress       `json:"address,omitempty"`
	Communication []fhirCommunication `json:"communication,omitempty"`
}

// fhirPractitioner is the Practitioner resource subset used for search.
type fhirPractitioner struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Identifier   []fhirIdentifier `json:"identifier,omitempty"`
	Name         []fhirHumanName  `json:"name,omitempty"`
	Gender       string           `json:"gender,omitempty"`
	BirthDate    string           `json:"birthDate,omitempty"`
}

// fhirResourceID extracts just the resource id.
type fhirResourceID struct {
	ID string `json:"id"`
}

// PatientSummary is the trimmed registry view exposed to API clients.
type PatientSummary struct {
	IHSNumber string `json:"ihs_number"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	BirthDate string `json:"birth_date"`
}

// PractitionerSummary is the trimmed registry view of a licensed
// professional.
type PractitionerSummary struct {
	IHSPractitionerNumber string `json:"ihs_practitioner_number"`
	Name                  string `json:"name"`
	Gender                string `json:"gender"`
	BirthDate             string `json:"birth_date"`
}

// KFAProduct is one entry from the national medicine catalogue.
type KFAProduct struct {
	KFACode             string `json:"kfa_code"`
	Name                string `json:"name"`
	ProductTemplateName string `json:"product_template_name,omitempty"`
	Manufacturer        string `json:"manufacturer,omitempty"`
	Active              bool   `json:"active"`
}

// kfaListResponse is the catalogue list envelope.
type kfaListResponse struct {
	Total int `json:"total"`
	Items struct {
		Data []KFAProduct `json:"data"`
	} `json:"items"`
}
