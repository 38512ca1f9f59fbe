package sync

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/klinik/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// In-memory fakes
// ---------------------------------------------------------------------------

type memStates struct {
	rows map[string]*sync.SyncState
}

func newMemStates() *memStates {
	return &memStates{rows: map[string]*sync.SyncState{}}
}

func stateKey(kind sync.EntityKind, id int64, system sync.RemoteSystem) string {
	return fmt.Sprintf("%s/%d/%s", kind, id, system)
}

func (m *memStates) Save(_ context.Context, st *sync.SyncState) error {
	cp := *st
	m.rows[stateKey(st.Kind, st.EntityID, st.System)] = &cp
	return nil
}

func (m *memStates) ListUnlinked(_ context.Context, limit int) ([]sync.SyncState, error) {
	out := make([]sync.SyncState, 0)
	for _, st := range m.rows {
		if st.Status != sync.SyncStatusLinked {
			out = append(out, *st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStates) Find(_ context.Context, kind sync.EntityKind, id int64, system sync.RemoteSystem) (*sync.SyncState, error) {
	st, ok := m.rows[stateKey(kind, id, system)]
	if !ok {
		return nil, sync.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

var _ sync.SyncStateRepository = (*memStates)(nil)

type memPatients struct {
	rows   map[int64]*sync.Patient
	states *memStates
	nextID int64
}

func newMemPatients(states *memStates) *memPatients {
	return &memPatients{rows: map[int64]*sync.Patient{}, states: states}
}

func (m *memPatients) FindByID(_ context.Context, id int64) (*sync.Patient, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, sync.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPatients) FindByNIK(_ context.Context, nik string) (*sync.Patient, error) {
	for _, p := range m.rows {
		if p.NIK == nik {
			cp := *p
			return &cp, nil
		}
	}
	return nil, sync.ErrNotFound
}

func (m *memPatients) ListUnlinked(_ context.Context, system sync.RemoteSystem, limit int) ([]sync.Patient, error) {
	out := make([]sync.Patient, 0)
	for _, p := range m.rows {
		if p.RemoteRef(system) == "" {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPatients) Create(ctx context.Context, p *sync.Patient, pending []sync.RemoteSystem) error {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.rows[p.ID] = &cp
	for _, system := range pending {
		if err := m.states.Save(ctx, sync.NewPendingState(sync.KindPatient, p.ID, system)); err != nil {
			return err
		}
	}
	return nil
}

func (m *memPatients) Save(_ context.Context, p *sync.Patient) error {
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPatients) SaveRemoteRef(_ context.Context, id int64, system sync.RemoteSystem, ref string) error {
	p, ok := m.rows[id]
	if !ok {
		return sync.ErrNotFound
	}
	p.SetRemoteRef(system, ref)
	return nil
}

var _ sync.PatientRepository = (*memPatients)(nil)

type memItems struct {
	rows   map[int64]*sync.FormularyItem
	nextID int64
}

func newMemItems() *memItems {
	return &memItems{rows: map[int64]*sync.FormularyItem{}}
}

func (m *memItems) FindByID(_ context.Context, id int64) (*sync.FormularyItem, error) {
	item, ok := m.rows[id]
	if !ok {
		return nil, sync.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (m *memItems) FindByCode(_ context.Context, code string) (*sync.FormularyItem, error) {
	for _, item := range m.rows {
		if item.Code == code {
			cp := *item
			return &cp, nil
		}
	}
	return nil, sync.ErrNotFound
}

func (m *memItems) ListUnlinked(_ context.Context, system sync.RemoteSystem, limit int) ([]sync.FormularyItem, error) {
	out := make([]sync.FormularyItem, 0)
	for _, item := range m.rows {
		if item.RemoteRef(system) == "" {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memItems) Upsert(_ context.Context, item *sync.FormularyItem) (bool, error) {
	for _, existing := range m.rows {
		if existing.Code == item.Code {
			item.ID = existing.ID
			cp := *item
			m.rows[item.ID] = &cp
			return false, nil
		}
	}
	m.nextID++
	item.ID = m.nextID
	cp := *item
	m.rows[item.ID] = &cp
	return true, nil
}

func (m *memItems) Save(_ context.Context, item *sync.FormularyItem) error {
	cp := *item
	m.rows[item.ID] = &cp
	return nil
}

var _ sync.FormularyItemRepository = (*memItems)(nil)

// unusedPractitioners / unusedPharmacists satisfy the constructor in tests
// that never touch those kinds.
type unusedPractitioners struct{}

func (unusedPractitioners) FindByID(context.Context, int64) (*sync.Practitioner, error) {
	return nil, sync.ErrNotFound
}
func (unusedPractitioners) ListUnlinked(context.Context, sync.RemoteSystem, int) ([]sync.Practitioner, error) {
	return nil, nil
}
func (unusedPractitioners) Save(context.Context, *sync.Practitioner) error { return nil }
func (unusedPractitioners) SaveRemoteRef(context.Context, int64, sync.RemoteSystem, string) error {
	return nil
}

type unusedPharmacists struct{}

func (unusedPharmacists) FindByID(context.Context, int64) (*sync.Pharmacist, error) {
	return nil, sync.ErrNotFound
}
func (unusedPharmacists) ListUnlinked(context.Context, sync.RemoteSystem, int) ([]sync.Pharmacist, error) {
	return nil, nil
}
func (unusedPharmacists) Save(context.Context, *sync.Pharmacist) error { return nil }
func (unusedPharmacists) SaveRemoteRef(context.Context, int64, sync.RemoteSystem, string) error {
	return nil
}

// scriptDir is a scriptable remote directory that records every call.
type scriptDir struct {
	system      sync.RemoteSystem
	phoneSearch bool
	unsupported map[sync.EntityKind]bool

	findByIdentifier func(nik string) (string, error)
	findByCode       func(code string) (string, error)
	findByDemo       func(q sync.DemographicQuery) (string, error)
	create           func(e sync.Entity) (string, error)
	update           func(ref string, e sync.Entity) error
	page             []sync.RemoteRecord
	pageErr          error

	calls []string
}

func newScriptDir(system sync.RemoteSystem) *scriptDir {
	return &scriptDir{
		system:      system,
		phoneSearch: system == sync.SystemERP,
		unsupported: map[sync.EntityKind]bool{},
	}
}

func (d *scriptDir) System() sync.RemoteSystem { return d.system }
func (d *scriptDir) SupportsPhoneSearch() bool { return d.phoneSearch }

func (d *scriptDir) Supports(kind sync.EntityKind) bool {
	return !d.unsupported[kind]
}

func (d *scriptDir) FindByIdentifier(_ context.Context, _ sync.EntityKind, nik string) (string, error) {
	d.calls = append(d.calls, "identifier-search")
	if d.findByIdentifier == nil {
		return "", sync.ErrNotFound
	}
	return d.findByIdentifier(nik)
}

func (d *scriptDir) FindByPhone(_ context.Context, _ sync.EntityKind, _ string) (string, error) {
	d.calls = append(d.calls, "phone-search")
	return "", sync.ErrNotFound
}

func (d *scriptDir) FindByCode(_ context.Context, _ sync.EntityKind, code string) (string, error) {
	d.calls = append(d.calls, "code-search")
	if d.findByCode == nil {
		return "", sync.ErrNotFound
	}
	return d.findByCode(code)
}

func (d *scriptDir) FindByDemographics(_ context.Context, _ sync.EntityKind, q sync.DemographicQuery) (string, error) {
	d.calls = append(d.calls, "demographic-search")
	if d.findByDemo == nil {
		return "", sync.ErrNotFound
	}
	return d.findByDemo(q)
}

func (d *scriptDir) Create(_ context.Context, e sync.Entity) (string, error) {
	d.calls = append(d.calls, "create")
	if d.create == nil {
		return fmt.Sprintf("%s-%d", d.system, e.LocalID()), nil
	}
	return d.create(e)
}

func (d *scriptDir) Update(_ context.Context, ref string, e sync.Entity) error {
	d.calls = append(d.calls, "update")
	if d.update == nil {
		return nil
	}
	return d.update(ref, e)
}

func (d *scriptDir) FetchPage(_ context.Context, _ sync.EntityKind, _ int) ([]sync.RemoteRecord, error) {
	d.calls = append(d.calls, "fetch-page")
	return d.page, d.pageErr
}

var _ sync.RemoteDirectory = (*scriptDir)(nil)

type memRegistry struct {
	dirs []sync.RemoteDirectory
}

func (r *memRegistry) Get(system sync.RemoteSystem) (sync.RemoteDirectory, error) {
	for _, d := range r.dirs {
		if d.System() == system {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no directory for %s", system)
}

func (r *memRegistry) All() []sync.RemoteDirectory { return r.dirs }

var _ sync.DirectoryRegistry = (*memRegistry)(nil)

// ---------------------------------------------------------------------------
// Fixture
// ---------------------------------------------------------------------------

type fixture struct {
	service  *Service
	patients *memPatients
	items    *memItems
	states   *memStates
	erp      *scriptDir
	registry *scriptDir
}

func newFixture() *fixture {
	states := newMemStates()
	patients := newMemPatients(states)
	items := newMemItems()
	erp := newScriptDir(sync.SystemERP)
	reg := newScriptDir(sync.SystemRegistry)
	reg.unsupported[sync.KindFormularyItem] = true

	service := NewService(
		patients,
		unusedPractitioners{},
		unusedPharmacists{},
		items,
		states,
		&memRegistry{dirs: []sync.RemoteDirectory{erp, reg}},
		zap.NewNop(),
	)
	return &fixture{service: service, patients: patients, items: items, states: states, erp: erp, registry: reg}
}

func (f *fixture) seedPatient(t *testing.T, p *sync.Patient) *sync.Patient {
	t.Helper()
	require.NoError(t, f.patients.Create(context.Background(), p, nil))
	return p
}

func newPatient(nik string) *sync.Patient {
	return &sync.Patient{
		FirstName: "Budi",
		LastName:  "Santoso",
		Gender:    sync.GenderMale,
		NIK:       nik,
		Phone:     "081234567890",
		BirthDate: "1990-03-12",
	}
}

// ---------------------------------------------------------------------------
// Push semantics
// ---------------------------------------------------------------------------

func TestPushEntity_CreateThenUpdate(t *testing.T) {
	f := newFixture()
	p := f.seedPatient(t, newPatient("9271060312000001"))

	// First push: cascade misses everywhere, so a remote record is created.
	out, err := f.service.PushEntity(context.Background(), sync.KindPatient, p.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeCreated, out.Outcome)
	assert.Equal(t, []string{"identifier-search", "demographic-search", "create"}, f.registry.calls)

	stored, err := f.patients.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Ref, stored.IHSNumber)

	// Second push: the stored reference short-circuits the cascade; only the
	// drift-allowed fields are refreshed. No second create.
	f.registry.calls = nil
	out, err = f.service.PushEntity(context.Background(), sync.KindPatient, p.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeLinked, out.Outcome)
	assert.Equal(t, []string{"update"}, f.registry.calls)
}

func TestPushEntity_AdoptsExistingRemoteRecord(t *testing.T) {
	f := newFixture()
	p := f.seedPatient(t, newPatient("9271060312000001"))
	f.registry.findByIdentifier = func(nik string) (string, error) {
		return "P02478375538", nil
	}

	out, err := f.service.PushEntity(context.Background(), sync.KindPatient, p.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeLinked, out.Outcome)
	assert.Equal(t, "P02478375538", out.Ref)
	assert.Equal(t, []string{"identifier-search"}, f.registry.calls)

	stored, err := f.patients.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "P02478375538", stored.IHSNumber)

	st, err := f.states.Find(context.Background(), sync.KindPatient, p.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.SyncStatusLinked, st.Status)
}

func TestPushEntity_MalformedNIKFailsWithoutRemoteCalls(t *testing.T) {
	f := newFixture()
	p := f.seedPatient(t, newPatient("927106031200000123")) // 18 chars

	out, err := f.service.PushEntity(context.Background(), sync.KindPatient, p.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeFailed, out.Outcome)
	assert.Empty(t, f.registry.calls)

	st, err := f.states.Find(context.Background(), sync.KindPatient, p.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.SyncStatusFailed, st.Status)
	assert.Equal(t, 1, st.Attempts)
}

func TestPushEntity_UnsupportedKindSkips(t *testing.T) {
	f := newFixture()
	f.erp.unsupported[sync.KindPatient] = true
	p := f.seedPatient(t, newPatient("9271060312000001"))

	out, err := f.service.PushEntity(context.Background(), sync.KindPatient, p.ID, sync.SystemERP)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeSkipped, out.Outcome)
	assert.Empty(t, f.erp.calls)
}

func TestPushUpdate_OnlyTouchesLinkedSystems(t *testing.T) {
	f := newFixture()
	p := f.seedPatient(t, newPatient("9271060312000001"))
	require.NoError(t, f.patients.SaveRemoteRef(context.Background(), p.ID, sync.SystemERP, "HLC-PAT-2024-00001"))

	out, err := f.service.PushUpdate(context.Background(), sync.KindPatient, p.ID)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byS := map[sync.RemoteSystem]SystemOutcome{}
	for _, o := range out {
		byS[o.System] = o
	}
	assert.Equal(t, sync.OutcomeLinked, byS[sync.SystemERP].Outcome)
	assert.Equal(t, []string{"update"}, f.erp.calls)

	// No registry reference yet: the edit must not create one.
	assert.Equal(t, sync.OutcomeSkipped, byS[sync.SystemRegistry].Outcome)
	assert.Empty(t, f.registry.calls)
}

func TestSyncPatient_FansOutAndIsIdempotent(t *testing.T) {
	f := newFixture()
	p := f.seedPatient(t, newPatient("9271060312000001"))

	result, err := f.service.SyncPatient(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created, "one remote record per system")
	assert.False(t, result.FinishedAt.IsZero())

	// Second call refreshes both links without creating anything.
	result, err = f.service.SyncPatient(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Linked)
	assert.Zero(t, result.Created)
}

func TestSyncFormularyItem_CreatesOnFirstPush(t *testing.T) {
	f := newFixture()
	created, err := f.items.Upsert(context.Background(), &sync.FormularyItem{
		Code: "PARA-500", Name: "Paracetamol 500mg", Unit: "Tablet",
	})
	require.NoError(t, err)
	require.True(t, created)

	// A locally authored item has a code but no ERP document yet: the code
	// search misses and a remote document is created.
	out, err := f.service.PushEntity(context.Background(), sync.KindFormularyItem, 1, sync.SystemERP)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeCreated, out.Outcome)
	assert.Equal(t, []string{"code-search", "create"}, f.erp.calls)

	stored, err := f.items.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, out.Ref, stored.FrappeID)
	assert.Equal(t, "PARA-500", stored.Code)

	// The stored document name short-circuits the second push to an update.
	f.erp.calls = nil
	out, err = f.service.PushEntity(context.Background(), sync.KindFormularyItem, 1, sync.SystemERP)
	require.NoError(t, err)
	assert.Equal(t, sync.OutcomeLinked, out.Outcome)
	assert.Equal(t, []string{"update"}, f.erp.calls)
}

func TestSyncFormularyItem_SkipsNonCatalogueSystems(t *testing.T) {
	f := newFixture()
	created, err := f.items.Upsert(context.Background(), &sync.FormularyItem{
		Code: "PARA-500", Name: "Paracetamol 500mg", Unit: "Tablet",
	})
	require.NoError(t, err)
	require.True(t, created)

	// The registry directory handles no formulary items in the fixture, so
	// only the ERP leg runs.
	result, err := f.service.SyncFormularyItem(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Empty(t, f.registry.calls)
}

func TestSyncPatient_UnknownEntity(t *testing.T) {
	f := newFixture()

	_, err := f.service.SyncPatient(context.Background(), 404)
	assert.ErrorIs(t, err, sync.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

func TestRegisterPatient_DeferredLeavesPendingRows(t *testing.T) {
	f := newFixture()

	out, err := f.service.RegisterPatient(context.Background(), newPatient("9271060312000001"), ModeDeferred)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, f.erp.calls)
	assert.Empty(t, f.registry.calls)

	rows, err := f.states.ListUnlinked(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, sync.SyncStatusPending, row.Status)
	}
}

func TestRegisterPatient_SyncPushesBestEffort(t *testing.T) {
	f := newFixture()
	f.registry.create = func(sync.Entity) (string, error) {
		return "", sync.ErrUnavailable
	}

	out, err := f.service.RegisterPatient(context.Background(), newPatient("9271060312000001"), ModeSync)
	require.NoError(t, err, "a remote failure must not fail the registration")
	require.Len(t, out, 2)

	byS := map[sync.RemoteSystem]SystemOutcome{}
	for _, o := range out {
		byS[o.System] = o
	}
	assert.Equal(t, sync.OutcomeCreated, byS[sync.SystemERP].Outcome)
	assert.Equal(t, sync.OutcomeFailed, byS[sync.SystemRegistry].Outcome)

	// The failed leg stays visible in the outbox for the next pass.
	st, err := f.states.Find(context.Background(), sync.KindPatient, 1, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.SyncStatusFailed, st.Status)
}

func TestRegisterPatient_RejectsMalformedNIK(t *testing.T) {
	f := newFixture()

	_, err := f.service.RegisterPatient(context.Background(), newPatient("12345"), ModeSync)
	assert.ErrorIs(t, err, sync.ErrInvalidIdentifier)
	assert.Empty(t, f.patients.rows)
}

// ---------------------------------------------------------------------------
// Batch reconciliation
// ---------------------------------------------------------------------------

func TestRun_FailSoftBatch(t *testing.T) {
	f := newFixture()
	// Registry handles no patients here so the batch runs against one system.
	f.registry.unsupported[sync.KindPatient] = true

	for i := 1; i <= 10; i++ {
		p := newPatient("")
		p.FirstName = fmt.Sprintf("Patient%02d", i)
		p.Phone = fmt.Sprintf("08123456%04d", i)
		f.seedPatient(t, p)
	}
	f.erp.create = func(e sync.Entity) (string, error) {
		if e.LocalID() == 5 {
			return "", fmt.Errorf("%w: connection refused", sync.ErrUnavailable)
		}
		return fmt.Sprintf("PAT-%04d", e.LocalID()), nil
	}

	result, err := f.service.Run(context.Background(), sync.KindPatient)
	require.NoError(t, err)

	assert.Equal(t, 10, result.Total())
	assert.Equal(t, 9, result.Processed())
	assert.Equal(t, 9, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "patient/5", result.Failures[0].ItemID)
	assert.Equal(t, sync.FailureConnectivity, result.Failures[0].Class)
	assert.False(t, result.FinishedAt.IsZero())
}

func TestRun_UnknownKind(t *testing.T) {
	f := newFixture()
	_, err := f.service.Run(context.Background(), sync.EntityKind("invoice"))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestDrainPending_HealsFailedRows(t *testing.T) {
	f := newFixture()
	_, err := f.service.RegisterPatient(context.Background(), newPatient("9271060312000001"), ModeDeferred)
	require.NoError(t, err)

	result, err := f.service.DrainPending(context.Background(), 50)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 0, result.Failed)

	rows, err := f.states.ListUnlinked(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, rows, "drained rows must be Linked")
}

// ---------------------------------------------------------------------------
// Pulls
// ---------------------------------------------------------------------------

func TestPullPatients_LinksAndShadows(t *testing.T) {
	f := newFixture()
	existing := f.seedPatient(t, newPatient("9271060312000001"))

	f.erp.page = []sync.RemoteRecord{
		{Ref: "PAT-0001", NIK: "9271060312000001", FirstName: "Budi", LastName: "Santoso"},
		{Ref: "PAT-0002", NIK: "", FirstName: "", BirthDate: ""},
	}

	result, err := f.service.PullPatients(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Linked)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.Failed)

	stored, err := f.patients.FindByID(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "PAT-0001", stored.FrappeID)

	// The shadow row gets placeholder demographics and a pending registry leg.
	shadow, err := f.patients.FindByID(context.Background(), existing.ID+1)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", shadow.FirstName)
	assert.Equal(t, "2000-01-01", shadow.BirthDate)
	assert.Equal(t, "PAT-0002", shadow.FrappeID)

	st, err := f.states.Find(context.Background(), sync.KindPatient, shadow.ID, sync.SystemRegistry)
	require.NoError(t, err)
	assert.Equal(t, sync.SyncStatusPending, st.Status)
}

func TestPullPatients_SkipsAlreadyLinked(t *testing.T) {
	f := newFixture()
	p := newPatient("9271060312000001")
	p.FrappeID = "PAT-0001"
	f.seedPatient(t, p)

	f.erp.page = []sync.RemoteRecord{{Ref: "PAT-0001", NIK: "9271060312000001"}}

	result, err := f.service.PullPatients(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
}

func TestPullFormularyItems_UpsertsByCode(t *testing.T) {
	f := newFixture()
	_, err := f.items.Upsert(context.Background(), &sync.FormularyItem{
		Code: "PARA-500", Name: "Paracetamol", Price: decimal.NewFromInt(4000),
	})
	require.NoError(t, err)

	f.erp.page = []sync.RemoteRecord{
		{Ref: "PARA-500", Code: "PARA-500", Name: "Paracetamol 500mg", Unit: "Tablet",
			Price: decimal.NewFromInt(4500), StockQty: decimal.NewFromInt(120)},
		{Ref: "AMOX-250", Code: "AMOX-250", Name: "Amoxicillin 250mg", Unit: "Capsule",
			Price: decimal.NewFromInt(9000), StockQty: decimal.NewFromInt(40)},
	}

	result, err := f.service.PullFormularyItems(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Linked, "existing code refreshed in place")
	assert.Equal(t, 1, result.Created)

	refreshed, err := f.items.FindByCode(context.Background(), "PARA-500")
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", refreshed.Name)
	assert.True(t, refreshed.StockQty.Equal(decimal.NewFromInt(120)))
}
