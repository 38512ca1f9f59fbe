package satusehat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/klinik/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Test server
// ---------------------------------------------------------------------------

// registryServer fakes the OAuth2 endpoint plus the FHIR base on a single
// httptest server.
type registryServer struct {
	server     *httptest.Server
	tokenCalls atomic.Int64
	fhir       http.HandlerFunc
}

func newRegistryServer(t *testing.T, fhir http.HandlerFunc) *registryServer {
	t.Helper()
	rs := &registryServer{fhir: fhir}
	rs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth2/accesstoken" {
			rs.tokenCalls.Add(1)
			require.Equal(t, "client_credentials", r.URL.Query().Get("grant_type"))
			require.NoError(t, r.ParseForm())
			require.Equal(t, "client-id", r.PostForm.Get("client_id"))
			// expires_in arrives as a string on this gateway
			_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		rs.fhir(w, r)
	}))
	t.Cleanup(rs.server.Close)
	return rs
}

func (rs *registryServer) adapter(t *testing.T) *Adapter {
	t.Helper()
	config := NewConfig(rs.server.URL+"/fhir", rs.server.URL+"/oauth2", "client-id", "client-secret")
	config.KFABaseURL = rs.server.URL + "/kfa"
	adapter, err := NewAdapter(config)
	require.NoError(t, err)
	return adapter
}

func emptyBundle(w http.ResponseWriter) {
	_ = json.NewEncoder(w).Encode(fhirBundle{ResourceType: "Bundle", Total: 0})
}

func patientBundle(w http.ResponseWriter, id string) {
	raw, _ := json.Marshal(fhirPatient{
		ResourceType: "Patient",
		ID:           id,
		Name:         []fhirHumanName{{Use: "official", Text: "Budi Santoso"}},
		Gender:       "male",
		BirthDate:    "1990-03-12",
	})
	_, _ = w.Write([]byte(`{"resourceType":"Bundle","total":1,"entry":[{"resource":` + string(raw) + `}]}`))
}

// ---------------------------------------------------------------------------
// Token caching
// ---------------------------------------------------------------------------

func TestAdapter_TokenFetchedOnceWithinValidity(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		patientBundle(w, "P02478375538")
	})
	adapter := rs.adapter(t)

	for i := 0; i < 3; i++ {
		_, err := adapter.FindByIdentifier(context.Background(), sync.KindPatient, "9271060312000001")
		require.NoError(t, err)
	}
	assert.Equal(t, int64(1), rs.tokenCalls.Load(), "token must be reused within its validity window")
}

func TestAdapter_OpensClientSpanPerRequest(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		patientBundle(w, "P02478375538")
	})
	adapter := rs.adapter(t)

	_, err := adapter.FindByIdentifier(context.Background(), sync.KindPatient, "9271060312000001")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "satusehat.GET", spans[0].Name())
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind())
}

func TestTokenSource_RefreshesExpiredToken(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {})
	source := NewTokenSource(
		&Config{
			BaseURL: rs.server.URL + "/fhir", AuthURL: rs.server.URL + "/oauth2",
			ClientID: "client-id", ClientSecret: "client-secret", TimeoutSeconds: 5,
		},
		rs.server.Client(),
	)

	now := time.Now()
	source.now = func() time.Time { return now }

	_, err := source.Token(context.Background())
	require.NoError(t, err)
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rs.tokenCalls.Load())

	// Jump past expiry (3599s advertised minus the slack).
	now = now.Add(time.Hour)
	_, err = source.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), rs.tokenCalls.Load())
}

func TestTokenSource_AuthRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	source := NewTokenSource(
		&Config{
			BaseURL: server.URL, AuthURL: server.URL,
			ClientID: "id", ClientSecret: "bad", TimeoutSeconds: 5,
		},
		server.Client(),
	)
	_, err := source.Token(context.Background())
	assert.ErrorIs(t, err, sync.ErrAuthFailed)
}

// ---------------------------------------------------------------------------
// Lookups
// ---------------------------------------------------------------------------

func TestAdapter_FindByIdentifier_QueryFormat(t *testing.T) {
	var gotPath, gotIdentifier string
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotIdentifier = r.URL.Query().Get("identifier")
		patientBundle(w, "P02478375538")
	})
	adapter := rs.adapter(t)

	ref, err := adapter.FindByIdentifier(context.Background(), sync.KindPatient, "9271060312000001")
	require.NoError(t, err)
	assert.Equal(t, "P02478375538", ref)
	assert.Equal(t, "/fhir/Patient", gotPath)
	assert.Equal(t, "https://fhir.kemkes.go.id/id/nik|9271060312000001", gotIdentifier)
}

func TestAdapter_PharmacistSearchesPractitioner(t *testing.T) {
	var gotPath string
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		emptyBundle(w)
	})
	adapter := rs.adapter(t)

	_, err := adapter.FindByIdentifier(context.Background(), sync.KindPharmacist, "9271060312000001")
	assert.ErrorIs(t, err, sync.ErrNotFound)
	assert.Equal(t, "/fhir/Practitioner", gotPath)
}

func TestAdapter_FindByDemographics(t *testing.T) {
	var got map[string]string
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = map[string]string{
			"name":      r.URL.Query().Get("name"),
			"birthdate": r.URL.Query().Get("birthdate"),
			"gender":    r.URL.Query().Get("gender"),
		}
		patientBundle(w, "P02478375538")
	})
	adapter := rs.adapter(t)

	ref, err := adapter.FindByDemographics(context.Background(), sync.KindPatient, sync.DemographicQuery{
		FullName: "Budi Santoso", BirthDate: "1990-03-12", Gender: sync.GenderMale,
	})
	require.NoError(t, err)
	assert.Equal(t, "P02478375538", ref)
	assert.Equal(t, "Budi Santoso", got["name"])
	assert.Equal(t, "1990-03-12", got["birthdate"])
	assert.Equal(t, "male", got["gender"])
}

func TestAdapter_PhoneAndCodeUnsupported(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no FHIR request expected")
	})
	adapter := rs.adapter(t)

	_, err := adapter.FindByPhone(context.Background(), sync.KindPatient, "0812")
	assert.ErrorIs(t, err, sync.ErrUnsupported)
	_, err = adapter.FindByCode(context.Background(), sync.KindFormularyItem, "PARA-500")
	assert.ErrorIs(t, err, sync.ErrUnsupported)
	assert.False(t, adapter.SupportsPhoneSearch())
	assert.Equal(t, int64(0), rs.tokenCalls.Load(), "unsupported lookups must not touch the network")
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestAdapter_CreatePatient_AppliesDefaults(t *testing.T) {
	var gotBody fhirPatient
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/fhir/Patient", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{"resourceType":"Patient","id":"P09999999999"}`))
	})
	adapter := rs.adapter(t)

	// No birth date and an unrecognized gender on the local record.
	p := &sync.Patient{ID: 1, FirstName: "Siti", NIK: "9271060312000002"}
	ref, err := adapter.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "P09999999999", ref)

	assert.Equal(t, "2000-01-01", gotBody.BirthDate)
	assert.Equal(t, "unknown", gotBody.Gender)
	require.Len(t, gotBody.Identifier, 1)
	assert.Equal(t, nikNamespace, gotBody.Identifier[0].System)
	require.Len(t, gotBody.Address, 1)
	assert.Equal(t, "ID", gotBody.Address[0].Country)
	require.Len(t, gotBody.Communication, 1)
	assert.Equal(t, "id-ID", gotBody.Communication[0].Language.Coding[0].Code)
}

func TestAdapter_CreatePractitionerUnsupported(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no FHIR request expected")
	})
	adapter := rs.adapter(t)

	_, err := adapter.Create(context.Background(), &sync.Practitioner{ID: 1})
	assert.ErrorIs(t, err, sync.ErrUnsupported)
	err = adapter.Update(context.Background(), "N10000001", &sync.Practitioner{ID: 1})
	assert.ErrorIs(t, err, sync.ErrUnsupported)
}

// ---------------------------------------------------------------------------
// Registry queries
// ---------------------------------------------------------------------------

func TestAdapter_GetPatientByNIK(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		patientBundle(w, "P02478375538")
	})
	adapter := rs.adapter(t)

	summary, err := adapter.GetPatientByNIK(context.Background(), "9271060312000001")
	require.NoError(t, err)
	assert.Equal(t, "P02478375538", summary.IHSNumber)
	assert.Equal(t, "Budi Santoso", summary.Name)
	assert.Equal(t, "male", summary.Gender)
	assert.Equal(t, "1990-03-12", summary.BirthDate)
}

func TestAdapter_GetPatientByNIK_RejectsMalformed(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no FHIR request expected")
	})
	adapter := rs.adapter(t)

	_, err := adapter.GetPatientByNIK(context.Background(), "12345")
	assert.ErrorIs(t, err, sync.ErrInvalidIdentifier)
	assert.Equal(t, int64(0), rs.tokenCalls.Load())
}

func TestAdapter_SearchKFAProducts(t *testing.T) {
	rs := newRegistryServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/kfa/products/all", r.URL.Path)
		assert.Equal(t, "farmasi", r.URL.Query().Get("product_type"))
		assert.Equal(t, "paracetamol", r.URL.Query().Get("keyword"))
		_, _ = w.Write([]byte(`{"total":1,"items":{"data":[{"kfa_code":"93001019","name":"Paracetamol 500 mg Tablet","active":true}]}}`))
	})
	adapter := rs.adapter(t)

	products, total, err := adapter.SearchKFAProducts(context.Background(), "paracetamol", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, products, 1)
	assert.Equal(t, "93001019", products[0].KFACode)
}
