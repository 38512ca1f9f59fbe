package satusehat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/klinik/backend/internal/domain/sync"
)

// Administrative defaults applied when the local record leaves a field empty.
// The registry rejects patients without a birth date, so an agreed sentinel
// date is sent instead.
const (
	defaultBirthDate = "2000-01-01"
	defaultCountry   = "ID"
	defaultLanguage  = "id-ID"
)

// Adapter implements the RemoteDirectory port against the SatuSehat FHIR
// gateway. Patients can be created; practitioner records are national
// masters and are search-only. Nothing on the registry is updatable from
// here, and there is no phone search.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	tokens     *TokenSource
	tracer     trace.Tracer
}

// NewAdapter creates a new SatuSehat adapter with the given configuration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	client := &http.Client{
		Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
	}
	return &Adapter{
		config:     config,
		httpClient: client,
		tokens:     NewTokenSource(config, client),
		tracer:     otel.Tracer("github.com/klinik/backend/internal/infrastructure/satusehat"),
	}, nil
}

// System returns the remote system this adapter handles.
func (a *Adapter) System() sync.RemoteSystem {
	return sync.SystemRegistry
}

// Supports reports whether the registry has a resource for the kind. The
// medicine catalogue (KFA) is a separate read-only API, not a directory
// resource.
func (a *Adapter) Supports(kind sync.EntityKind) bool {
	switch kind {
	case sync.KindPatient, sync.KindPractitioner, sync.KindPharmacist:
		return true
	default:
		return false
	}
}

// SupportsPhoneSearch is false: FHIR search on this gateway has no telecom
// matching.
func (a *Adapter) SupportsPhoneSearch() bool { return false }

// resourceFor maps a kind onto a FHIR resource type. Pharmacists live under
// Practitioner like every other licensed professional.
func resourceFor(kind sync.EntityKind) (string, error) {
	switch kind {
	case sync.KindPatient:
		return "Patient", nil
	case sync.KindPractitioner, sync.KindPharmacist:
		return "Practitioner", nil
	default:
		return "", sync.ErrKindNotSupported
	}
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// FindByIdentifier searches by NIK using the namespaced identifier token.
func (a *Adapter) FindByIdentifier(ctx context.Context, kind sync.EntityKind, nik string) (string, error) {
	resource, err := resourceFor(kind)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("identifier", nikNamespace+"|"+nik)
	return a.searchOne(ctx, resource, params)
}

// FindByPhone is not available on the registry.
func (a *Adapter) FindByPhone(ctx context.Context, kind sync.EntityKind, phone string) (string, error) {
	return "", sync.ErrUnsupported
}

// FindByCode is not available on the registry.
func (a *Adapter) FindByCode(ctx context.Context, kind sync.EntityKind, code string) (string, error) {
	return "", sync.ErrUnsupported
}

// FindByDemographics searches by name, birth date and gender.
func (a *Adapter) FindByDemographics(ctx context.Context, kind sync.EntityKind, q sync.DemographicQuery) (string, error) {
	resource, err := resourceFor(kind)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("name", q.FullName)
	if q.BirthDate != "" {
		params.Set("birthdate", q.BirthDate)
	}
	if g := q.Gender.Normalize(); g != "unknown" {
		params.Set("gender", g)
	}
	return a.searchOne(ctx, resource, params)
}

// searchOne runs a FHIR search and returns the first matching resource id.
func (a *Adapter) searchOne(ctx context.Context, resource string, params url.Values) (string, error) {
	body, err := a.doRequest(ctx, http.MethodGet, a.config.BaseURL+"/"+resource+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	var bundle fhirBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return "", fmt.Errorf("%w: failed to parse search bundle: %v", sync.ErrRemoteRejected, err)
	}
	if bundle.Total == 0 || len(bundle.Entry) == 0 {
		return "", sync.ErrNotFound
	}

	var res fhirResourceID
	if err := json.Unmarshal(bundle.Entry[0].Resource, &res); err != nil || res.ID == "" {
		return "", fmt.Errorf("%w: search entry without a resource id", sync.ErrRemoteRejected)
	}
	return res.ID, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create registers a new Patient resource. Practitioners and pharmacists are
// national master records; local systems cannot mint them.
func (a *Adapter) Create(ctx context.Context, e sync.Entity) (string, error) {
	p, ok := e.(*sync.Patient)
	if !ok {
		return "", sync.ErrUnsupported
	}

	resource := fhirPatient{
		ResourceType: "Patient",
		Active:       true,
		Gender:       p.Gender.Normalize(),
		BirthDate:    p.BirthDate,
	}
	if resource.BirthDate == "" {
		resource.BirthDate = defaultBirthDate
	}
	if p.NIK != "" {
		resource.Identifier = []fhirIdentifier{{Use: "official", System: nikNamespace, Value: p.NIK}}
	}
	name := fhirHumanName{Use: "official", Text: p.FullName()}
	if p.FirstName != "" {
		name.Given = []string{p.FirstName}
	}
	if p.LastName != "" {
		name.Family = p.LastName
	}
	resource.Name = []fhirHumanName{name}

	address := fhirAddress{Use: "home", Country: defaultCountry}
	if p.Street != "" {
		address.Line = []string{p.Street}
	}
	address.City = p.City
	address.PostalCode = p.PostalCode
	resource.Address = []fhirAddress{address}

	var comm fhirCommunication
	comm.Language.Coding = []fhirCoding{{
		System: "urn:ietf:bcp:47", Code: defaultLanguage, Display: "Indonesian",
	}}
	comm.Preferred = true
	resource.Communication = []fhirCommunication{comm}

	body, err := a.doRequest(ctx, http.MethodPost, a.config.BaseURL+"/Patient", resource)
	if err != nil {
		return "", err
	}
	var created fhirResourceID
	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
		return "", fmt.Errorf("%w: create returned no resource id", sync.ErrRemoteRejected)
	}
	return created.ID, nil
}

// Update is not available: registry records are maintained nationally.
func (a *Adapter) Update(ctx context.Context, ref string, e sync.Entity) error {
	return sync.ErrUnsupported
}

// FetchPage is not available: the registry exposes no bulk listing.
func (a *Adapter) FetchPage(ctx context.Context, kind sync.EntityKind, limit int) ([]sync.RemoteRecord, error) {
	return nil, sync.ErrUnsupported
}

// ---------------------------------------------------------------------------
// Registry queries beyond the directory port
// ---------------------------------------------------------------------------

// GetPatientByNIK returns the registry view of a patient for front-desk
// verification.
func (a *Adapter) GetPatientByNIK(ctx context.Context, nik string) (*PatientSummary, error) {
	if !sync.ValidNIK(nik) {
		return nil, fmt.Errorf("%w: nik must be 16 digits", sync.ErrInvalidIdentifier)
	}
	params := url.Values{}
	params.Set("identifier", nikNamespace+"|"+nik)

	body, err := a.doRequest(ctx, http.MethodGet, a.config.BaseURL+"/Patient?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var bundle fhirBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("%w: failed to parse search bundle: %v", sync.ErrRemoteRejected, err)
	}
	if bundle.Total == 0 || len(bundle.Entry) == 0 {
		return nil, sync.ErrNotFound
	}

	var patient fhirPatient
	if err := json.Unmarshal(bundle.Entry[0].Resource, &patient); err != nil {
		return nil, fmt.Errorf("%w: malformed Patient resource", sync.ErrRemoteRejected)
	}
	summary := &PatientSummary{
		IHSNumber: patient.ID,
		Gender:    patient.Gender,
		BirthDate: patient.BirthDate,
	}
	if len(patient.Name) > 0 {
		summary.Name = displayName(patient.Name[0])
	}
	return summary, nil
}

// GetPractitionerByNIK returns the registry view of a licensed professional.
// Doctors and pharmacists share the Practitioner resource.
func (a *Adapter) GetPractitionerByNIK(ctx context.Context, nik string) (*PractitionerSummary, error) {
	if !sync.ValidNIK(nik) {
		return nil, fmt.Errorf("%w: nik must be 16 digits", sync.ErrInvalidIdentifier)
	}
	params := url.Values{}
	params.Set("identifier", nikNamespace+"|"+nik)

	body, err := a.doRequest(ctx, http.MethodGet, a.config.BaseURL+"/Practitioner?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var bundle fhirBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("%w: failed to parse search bundle: %v", sync.ErrRemoteRejected, err)
	}
	if bundle.Total == 0 || len(bundle.Entry) == 0 {
		return nil, sync.ErrNotFound
	}

	var practitioner fhirPractitioner
	if err := json.Unmarshal(bundle.Entry[0].Resource, &practitioner); err != nil {
		return nil, fmt.Errorf("%w: malformed Practitioner resource", sync.ErrRemoteRejected)
	}
	summary := &PractitionerSummary{
		IHSPractitionerNumber: practitioner.ID,
		Gender:                practitioner.Gender,
		BirthDate:             practitioner.BirthDate,
	}
	if len(practitioner.Name) > 0 {
		summary.Name = displayName(practitioner.Name[0])
	}
	return summary, nil
}

func displayName(n fhirHumanName) string {
	if n.Text != "" {
		return n.Text
	}
	return strings.TrimSpace(strings.Join(n.Given, " ") + " " + n.Family)
}

// SearchKFAProducts queries the national medicine catalogue.
func (a *Adapter) SearchKFAProducts(ctx context.Context, keyword string, page, size int) ([]KFAProduct, int, error) {
	if a.config.KFABaseURL == "" {
		return nil, 0, sync.ErrUnsupported
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > sync.MaxPullPageSize {
		size = 50
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	params.Set("product_type", "farmasi")
	if keyword != "" {
		params.Set("keyword", keyword)
	}

	body, err := a.doRequest(ctx, http.MethodGet, a.config.KFABaseURL+"/products/all?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, err
	}
	var resp kfaListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, 0, fmt.Errorf("%w: failed to parse catalogue response: %v", sync.ErrRemoteRejected, err)
	}
	return resp.Items.Data, resp.Total, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// doRequest opens a client span around one authenticated request and
// delegates to roundTrip.
func (a *Adapter) doRequest(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	ctx, span := a.tracer.Start(ctx, "satusehat."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.full", endpoint),
		))
	defer span.End()

	body, err := a.roundTrip(ctx, method, endpoint, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return body, err
}

// roundTrip performs the request and maps the response status onto the sync
// error taxonomy. The cached token is replaced on expiry only, never dropped
// because a call failed.
func (a *Adapter) roundTrip(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	token, err := a.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("satusehat: failed to encode payload: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("satusehat: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sync.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("satusehat: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		// The cached token stays; it is replaced on expiry, not on error.
		return nil, fmt.Errorf("%w: HTTP %d", sync.ErrAuthFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, sync.ErrNotFound
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: HTTP %d: %s", sync.ErrRemoteRejected, resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// Ensure Adapter implements the RemoteDirectory port
var _ sync.RemoteDirectory = (*Adapter)(nil)
