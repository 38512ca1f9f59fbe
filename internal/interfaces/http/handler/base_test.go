package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appsync "github.com/klinik/backend/internal/application/sync"
	"github.com/klinik/backend/internal/domain/sync"
	"github.com/klinik/backend/internal/infrastructure/satusehat"
	"github.com/klinik/backend/internal/infrastructure/scheduler"
	"github.com/klinik/backend/internal/interfaces/http/dto"
	"github.com/klinik/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// fakeSyncService records calls and returns canned results.
type fakeSyncService struct {
	registerMode     appsync.RegisterMode
	registerOutcomes []appsync.SystemOutcome
	registerErr      error
	registeredID     int64

	runKind   sync.EntityKind
	result    *sync.SyncResult
	resultErr error

	drainLimit int
	pullLimit  int
	lastCall   string
}

func (f *fakeSyncService) RegisterPatient(_ context.Context, p *sync.Patient, mode appsync.RegisterMode) ([]appsync.SystemOutcome, error) {
	f.lastCall = "register"
	f.registerMode = mode
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	p.ID = f.registeredID
	return f.registerOutcomes, nil
}

func (f *fakeSyncService) Run(_ context.Context, kind sync.EntityKind) (*sync.SyncResult, error) {
	f.lastCall = "run"
	f.runKind = kind
	return f.result, f.resultErr
}

func (f *fakeSyncService) DrainPending(_ context.Context, limit int) (*sync.SyncResult, error) {
	f.lastCall = "drain"
	f.drainLimit = limit
	return f.result, f.resultErr
}

func (f *fakeSyncService) PullPatients(_ context.Context, limit int) (*sync.SyncResult, error) {
	f.lastCall = "pull-patients"
	f.pullLimit = limit
	return f.result, f.resultErr
}

func (f *fakeSyncService) PullFormularyItems(_ context.Context, limit int) (*sync.SyncResult, error) {
	f.lastCall = "pull-formulary"
	f.pullLimit = limit
	return f.result, f.resultErr
}

// fakeRegistry answers national registry lookups from memory.
type fakeRegistry struct {
	patient      *satusehat.PatientSummary
	practitioner *satusehat.PractitionerSummary
	products     []satusehat.KFAProduct
	total        int
	err          error

	keyword string
	page    int
	size    int
}

func (f *fakeRegistry) GetPatientByNIK(_ context.Context, _ string) (*satusehat.PatientSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.patient, nil
}

func (f *fakeRegistry) GetPractitionerByNIK(_ context.Context, _ string) (*satusehat.PractitionerSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.practitioner, nil
}

func (f *fakeRegistry) SearchKFAProducts(_ context.Context, keyword string, page, size int) ([]satusehat.KFAProduct, int, error) {
	f.keyword = keyword
	f.page = page
	f.size = size
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.products, f.total, nil
}

// fakeHistory serves a fixed job list.
type fakeHistory struct {
	jobs  []*scheduler.Job
	limit int
}

func (f *fakeHistory) GetJobHistory(limit int) []*scheduler.Job {
	f.limit = limit
	return f.jobs
}

func doRequest(r *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}
