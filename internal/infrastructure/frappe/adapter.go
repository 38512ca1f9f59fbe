package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/klinik/backend/internal/domain/sync"
)

// maxResponseSize is the maximum allowed response size from the ERP API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Adapter implements the RemoteDirectory port against a Frappe/ERPNext
// REST backend. Documents live under /api/resource/{doctype}; filters and
// field lists travel as JSON-encoded query parameters.
type Adapter struct {
	config     *Config
	httpClient *http.Client
	tracer     trace.Tracer
}

// NewAdapter creates a new Frappe adapter with the given configuration
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Adapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		tracer: otel.Tracer("github.com/klinik/backend/internal/infrastructure/frappe"),
	}, nil
}

// System returns the remote system this adapter handles.
func (a *Adapter) System() sync.RemoteSystem {
	return sync.SystemERP
}

// Supports reports whether the ERP has a doctype for the kind. There is no
// pharmacist doctype.
func (a *Adapter) Supports(kind sync.EntityKind) bool {
	switch kind {
	case sync.KindPatient, sync.KindPractitioner, sync.KindFormularyItem:
		return true
	default:
		return false
	}
}

// SupportsPhoneSearch is true: patient and practitioner doctypes carry a
// mobile number field.
func (a *Adapter) SupportsPhoneSearch() bool { return true }

func doctypeFor(kind sync.EntityKind) (string, error) {
	switch kind {
	case sync.KindPatient:
		return doctypePatient, nil
	case sync.KindPractitioner:
		return doctypePractitioner, nil
	case sync.KindFormularyItem:
		return doctypeItem, nil
	default:
		return "", sync.ErrKindNotSupported
	}
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

// FindByIdentifier searches the doctype by the NIK custom field.
func (a *Adapter) FindByIdentifier(ctx context.Context, kind sync.EntityKind, nik string) (string, error) {
	doctype, err := doctypeFor(kind)
	if err != nil {
		return "", err
	}
	return a.findOne(ctx, doctype, map[string]any{"nik": nik})
}

// FindByPhone searches by mobile number. The field name differs per doctype.
func (a *Adapter) FindByPhone(ctx context.Context, kind sync.EntityKind, phone string) (string, error) {
	switch kind {
	case sync.KindPatient:
		return a.findOne(ctx, doctypePatient, map[string]any{"mobile": phone})
	case sync.KindPractitioner:
		return a.findOne(ctx, doctypePractitioner, map[string]any{"mobile_phone": phone})
	default:
		return "", sync.ErrUnsupported
	}
}

// FindByCode searches items by item code.
func (a *Adapter) FindByCode(ctx context.Context, kind sync.EntityKind, code string) (string, error) {
	if kind != sync.KindFormularyItem {
		return "", sync.ErrUnsupported
	}
	return a.findOne(ctx, doctypeItem, map[string]any{"item_code": code})
}

// FindByDemographics searches by display name, narrowed by birth date and
// gender when known.
func (a *Adapter) FindByDemographics(ctx context.Context, kind sync.EntityKind, q sync.DemographicQuery) (string, error) {
	switch kind {
	case sync.KindPatient:
		filters := map[string]any{"patient_name": q.FullName}
		if q.BirthDate != "" {
			filters["dob"] = q.BirthDate
		}
		if g := erpGender(q.Gender); g != "" {
			filters["sex"] = g
		}
		return a.findOne(ctx, doctypePatient, filters)
	case sync.KindPractitioner:
		return a.findOne(ctx, doctypePractitioner, map[string]any{"practitioner_name": q.FullName})
	default:
		return "", sync.ErrUnsupported
	}
}

// findOne runs a filtered list query and returns the first document name.
func (a *Adapter) findOne(ctx context.Context, doctype string, filters map[string]any) (string, error) {
	docs, err := a.listDocs(ctx, doctype, filters, []string{"name"}, 1)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", sync.ErrNotFound
	}
	name := getString(docs[0], "name")
	if name == "" {
		return "", fmt.Errorf("%w: document without a name", sync.ErrRemoteRejected)
	}
	return name, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Create inserts a new document for the entity and returns its name.
func (a *Adapter) Create(ctx context.Context, e sync.Entity) (string, error) {
	switch v := e.(type) {
	case *sync.Patient:
		return a.createDoc(ctx, doctypePatient, patientFields(v))
	case *sync.Practitioner:
		return a.createDoc(ctx, doctypePractitioner, practitionerFields(v))
	case *sync.FormularyItem:
		return a.createDoc(ctx, doctypeItem, itemFields(v))
	default:
		return "", sync.ErrKindNotSupported
	}
}

// Update refreshes the drift-allowed field subset on an existing document.
func (a *Adapter) Update(ctx context.Context, ref string, e sync.Entity) error {
	switch v := e.(type) {
	case *sync.Patient:
		fields := map[string]any{
			"first_name": v.FirstName,
			"last_name":  v.LastName,
			"mobile":     v.Phone,
		}
		return a.updateDoc(ctx, doctypePatient, ref, fields)
	case *sync.Practitioner:
		fields := map[string]any{
			"first_name": v.FirstName,
			"last_name":  v.LastName,
			"department": v.Department,
		}
		return a.updateDoc(ctx, doctypePractitioner, ref, fields)
	case *sync.FormularyItem:
		fields := map[string]any{
			"item_name":     v.Name,
			"description":   v.Description,
			"standard_rate": v.Price.InexactFloat64(),
		}
		return a.updateDoc(ctx, doctypeItem, ref, fields)
	default:
		return sync.ErrKindNotSupported
	}
}

func patientFields(p *sync.Patient) map[string]any {
	fields := map[string]any{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
	}
	if g := erpGender(p.Gender); g != "" {
		fields["sex"] = g
	}
	if p.NIK != "" {
		fields["nik"] = p.NIK
	}
	if p.Phone != "" {
		fields["mobile"] = p.Phone
	}
	if p.BirthDate != "" {
		fields["dob"] = p.BirthDate
	}
	return fields
}

func practitionerFields(p *sync.Practitioner) map[string]any {
	status := "Disabled"
	if p.Active {
		status = "Active"
	}
	fields := map[string]any{
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"status":     status,
	}
	if g := erpGender(p.Gender); g != "" {
		fields["gender"] = g
	}
	if p.NIK != "" {
		fields["nik"] = p.NIK
	}
	if p.Phone != "" {
		fields["mobile_phone"] = p.Phone
	}
	if p.Department != "" {
		fields["department"] = p.Department
	}
	return fields
}

func itemFields(item *sync.FormularyItem) map[string]any {
	fields := map[string]any{
		"item_code":     item.Code,
		"item_name":     item.Name,
		"item_group":    "Drug",
		"is_stock_item": 1,
		"standard_rate": item.Price.InexactFloat64(),
	}
	if item.Unit != "" {
		fields["stock_uom"] = item.Unit
	}
	if item.Description != "" {
		fields["description"] = item.Description
	}
	return fields
}

// erpGender maps the local gender value to the ERP's select options.
func erpGender(g sync.Gender) string {
	switch g.Normalize() {
	case "male":
		return "Male"
	case "female":
		return "Female"
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Pulls
// ---------------------------------------------------------------------------

// FetchPage fetches one bounded page of documents for a pull pass. Item rows
// include the summed warehouse stock.
func (a *Adapter) FetchPage(ctx context.Context, kind sync.EntityKind, limit int) ([]sync.RemoteRecord, error) {
	if limit <= 0 || limit > sync.MaxPullPageSize {
		limit = sync.MaxPullPageSize
	}

	switch kind {
	case sync.KindPatient:
		fields := []string{"name", "first_name", "last_name", "sex", "mobile", "dob", "nik"}
		docs, err := a.listDocs(ctx, doctypePatient, nil, fields, limit)
		if err != nil {
			return nil, err
		}
		records := make([]sync.RemoteRecord, 0, len(docs))
		for _, doc := range docs {
			records = append(records, sync.RemoteRecord{
				Ref:       getString(doc, "name"),
				NIK:       getString(doc, "nik"),
				Phone:     getString(doc, "mobile"),
				FirstName: getString(doc, "first_name"),
				LastName:  getString(doc, "last_name"),
				Gender:    sync.Gender(getString(doc, "sex")),
				BirthDate: getString(doc, "dob"),
			})
		}
		return records, nil

	case sync.KindPractitioner:
		fields := []string{"name", "first_name", "last_name", "gender", "mobile_phone", "department", "nik"}
		docs, err := a.listDocs(ctx, doctypePractitioner, nil, fields, limit)
		if err != nil {
			return nil, err
		}
		records := make([]sync.RemoteRecord, 0, len(docs))
		for _, doc := range docs {
			records = append(records, sync.RemoteRecord{
				Ref:       getString(doc, "name"),
				NIK:       getString(doc, "nik"),
				Phone:     getString(doc, "mobile_phone"),
				FirstName: getString(doc, "first_name"),
				LastName:  getString(doc, "last_name"),
				Gender:    sync.Gender(getString(doc, "gender")),
			})
		}
		return records, nil

	case sync.KindFormularyItem:
		fields := []string{"name", "item_code", "item_name", "stock_uom", "description", "standard_rate"}
		docs, err := a.listDocs(ctx, doctypeItem, nil, fields, limit)
		if err != nil {
			return nil, err
		}
		records := make([]sync.RemoteRecord, 0, len(docs))
		for _, doc := range docs {
			rec := sync.RemoteRecord{
				Ref:         getString(doc, "name"),
				Code:        getString(doc, "item_code"),
				Name:        getString(doc, "item_name"),
				Unit:        getString(doc, "stock_uom"),
				Description: getString(doc, "description"),
				Price:       getDecimal(doc, "standard_rate"),
			}
			qty, err := a.ItemStock(ctx, rec.Code)
			if err != nil {
				return nil, fmt.Errorf("stock for %s: %w", rec.Code, err)
			}
			rec.StockQty = qty
			records = append(records, rec)
		}
		return records, nil

	default:
		return nil, sync.ErrKindNotSupported
	}
}

// ItemStock returns the total actual quantity of an item across warehouses,
// summed from its Bin rows.
func (a *Adapter) ItemStock(ctx context.Context, itemCode string) (decimal.Decimal, error) {
	docs, err := a.listDocs(ctx, doctypeBin, map[string]any{"item_code": itemCode}, []string{"actual_qty"}, 0)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, doc := range docs {
		total = total.Add(getDecimal(doc, "actual_qty"))
	}
	return total, nil
}

// CreateAppointmentEvent creates a calendar event on the ERP, used to mirror
// front-desk appointments.
func (a *Adapter) CreateAppointmentEvent(ctx context.Context, subject, startsOn string) (string, error) {
	return a.createDoc(ctx, doctypeEvent, map[string]any{
		"subject":    subject,
		"starts_on":  startsOn,
		"event_type": "Public",
	})
}

// CreateUser provisions an ERP login for a staff member. The User doctype
// keys on email, so the returned ref is the email address.
func (a *Adapter) CreateUser(ctx context.Context, email, firstName, lastName string) (string, error) {
	return a.createDoc(ctx, doctypeUser, map[string]any{
		"email":              email,
		"first_name":         firstName,
		"last_name":          lastName,
		"enabled":            1,
		"send_welcome_email": 0,
	})
}

// UpdateUser patches an existing ERP login by email.
func (a *Adapter) UpdateUser(ctx context.Context, email string, fields map[string]any) error {
	return a.updateDoc(ctx, doctypeUser, email, fields)
}

// DeleteUser removes an ERP login when a staff member is offboarded.
func (a *Adapter) DeleteUser(ctx context.Context, email string) error {
	return a.deleteDoc(ctx, doctypeUser, email)
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

// listDocs runs a filtered list query. limit <= 0 falls back to the server
// page cap.
func (a *Adapter) listDocs(ctx context.Context, doctype string, filters map[string]any, fields []string, limit int) ([]map[string]any, error) {
	query := url.Values{}
	if limit <= 0 || limit > sync.MaxPullPageSize {
		limit = sync.MaxPullPageSize
	}
	query.Set("limit_page_length", strconv.Itoa(limit))

	if len(filters) > 0 {
		// Frappe expects filters as a JSON array of [field, op, value].
		triples := make([][3]any, 0, len(filters))
		for field, value := range filters {
			triples = append(triples, [3]any{field, "=", value})
		}
		raw, err := json.Marshal(triples)
		if err != nil {
			return nil, fmt.Errorf("frappe: failed to encode filters: %w", err)
		}
		query.Set("filters", string(raw))
	}
	if len(fields) > 0 {
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("frappe: failed to encode fields: %w", err)
		}
		query.Set("fields", string(raw))
	}

	body, err := a.doRequest(ctx, http.MethodGet, doctype, "", query, nil)
	if err != nil {
		return nil, err
	}
	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to parse list response: %v", sync.ErrRemoteRejected, err)
	}
	return resp.Data, nil
}

// createDoc inserts a document and returns the name assigned by the server.
func (a *Adapter) createDoc(ctx context.Context, doctype string, fields map[string]any) (string, error) {
	body, err := a.doRequest(ctx, http.MethodPost, doctype, "", nil, fields)
	if err != nil {
		return "", err
	}
	var resp docResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to parse create response: %v", sync.ErrRemoteRejected, err)
	}
	name := getString(resp.Data, "name")
	if name == "" {
		return "", fmt.Errorf("%w: create returned no document name", sync.ErrRemoteRejected)
	}
	return name, nil
}

// updateDoc patches a document in place.
func (a *Adapter) updateDoc(ctx context.Context, doctype, name string, fields map[string]any) error {
	_, err := a.doRequest(ctx, http.MethodPut, doctype, name, nil, fields)
	return err
}

func (a *Adapter) deleteDoc(ctx context.Context, doctype, name string) error {
	_, err := a.doRequest(ctx, http.MethodDelete, doctype, name, nil, nil)
	return err
}

// doRequest opens a client span around one outbound call and delegates to
// roundTrip.
func (a *Adapter) doRequest(ctx context.Context, method, doctype, name string, query url.Values, payload any) ([]byte, error) {
	ctx, span := a.tracer.Start(ctx, "frappe."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("frappe.doctype", doctype),
		))
	defer span.End()

	body, err := a.roundTrip(ctx, method, doctype, name, query, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return body, err
}

// roundTrip performs one HTTP request against /api/resource and maps the
// response status onto the sync error taxonomy.
func (a *Adapter) roundTrip(ctx context.Context, method, doctype, name string, query url.Values, payload any) ([]byte, error) {
	endpoint := a.config.BaseURL + "/api/resource/" + url.PathEscape(doctype)
	if name != "" {
		endpoint += "/" + url.PathEscape(name)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("frappe: failed to encode payload: %w", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("frappe: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", a.config.AuthHeader())
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
		return nil, fmt.Errorf("frappe: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
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
