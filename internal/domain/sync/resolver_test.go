package sync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDirectory is a scriptable RemoteDirectory that records every lookup so
// tests can assert the exact call sequence.
type fakeDirectory struct {
	system      RemoteSystem
	phoneSearch bool
	unsupported map[EntityKind]bool

	identifierRef string
	identifierErr error
	phoneRef      string
	phoneErr      error
	codeRef       string
	codeErr       error
	demoRef       string
	demoErr       error

	createRef string
	createErr error
	updateErr error

	calls []string
}

func newFakeDirectory(system RemoteSystem) *fakeDirectory {
	return &fakeDirectory{
		system:        system,
		phoneSearch:   system == SystemERP,
		unsupported:   map[EntityKind]bool{},
		identifierErr: ErrNotFound,
		phoneErr:      ErrNotFound,
		codeErr:       ErrNotFound,
		demoErr:       ErrNotFound,
	}
}

func (d *fakeDirectory) System() RemoteSystem     { return d.system }
func (d *fakeDirectory) SupportsPhoneSearch() bool { return d.phoneSearch }

func (d *fakeDirectory) Supports(kind EntityKind) bool {
	return !d.unsupported[kind]
}

func (d *fakeDirectory) FindByIdentifier(_ context.Context, _ EntityKind, _ string) (string, error) {
	d.calls = append(d.calls, "identifier-search")
	return d.identifierRef, d.identifierErr
}

func (d *fakeDirectory) FindByPhone(_ context.Context, _ EntityKind, _ string) (string, error) {
	d.calls = append(d.calls, "phone-search")
	return d.phoneRef, d.phoneErr
}

func (d *fakeDirectory) FindByCode(_ context.Context, _ EntityKind, _ string) (string, error) {
	d.calls = append(d.calls, "code-search")
	return d.codeRef, d.codeErr
}

func (d *fakeDirectory) FindByDemographics(_ context.Context, _ EntityKind, _ DemographicQuery) (string, error) {
	d.calls = append(d.calls, "demographic-search")
	return d.demoRef, d.demoErr
}

func (d *fakeDirectory) Create(_ context.Context, _ Entity) (string, error) {
	d.calls = append(d.calls, "create")
	return d.createRef, d.createErr
}

func (d *fakeDirectory) Update(_ context.Context, _ string, _ Entity) error {
	d.calls = append(d.calls, "update")
	return d.updateErr
}

func (d *fakeDirectory) FetchPage(_ context.Context, _ EntityKind, _ int) ([]RemoteRecord, error) {
	d.calls = append(d.calls, "fetch-page")
	return nil, nil
}

var _ RemoteDirectory = (*fakeDirectory)(nil)

func testPatient() *Patient {
	return &Patient{
		ID:        42,
		FirstName: "Budi",
		LastName:  "Santoso",
		Gender:    GenderMale,
		NIK:       "9271060312000001",
		Phone:     "081234567890",
		BirthDate: "1990-03-12",
	}
}

func TestResolver_IdentifierHitWinsOverFallbacks(t *testing.T) {
	dir := newFakeDirectory(SystemERP)
	dir.identifierRef, dir.identifierErr = "PAT-0001", nil
	// Demographic fallback would also hit; it must never be consulted.
	dir.demoRef, dir.demoErr = "PAT-9999", nil

	resolver := NewResolver(zap.NewNop())
	ref, err := resolver.Resolve(context.Background(), dir, testPatient())

	require.NoError(t, err)
	assert.Equal(t, "PAT-0001", ref)
	assert.Equal(t, []string{"identifier-search"}, dir.calls)
}

func TestResolver_CascadeFallsThroughToDemographics(t *testing.T) {
	dir := newFakeDirectory(SystemERP)
	dir.demoRef, dir.demoErr = "PAT-0002", nil

	resolver := NewResolver(zap.NewNop())
	ref, err := resolver.Resolve(context.Background(), dir, testPatient())

	require.NoError(t, err)
	assert.Equal(t, "PAT-0002", ref)
	assert.Equal(t, []string{"identifier-search", "phone-search", "demographic-search"}, dir.calls)
}

func TestResolver_RegistrySkipsPhoneStep(t *testing.T) {
	dir := newFakeDirectory(SystemRegistry)

	resolver := NewResolver(zap.NewNop())
	_, err := resolver.Resolve(context.Background(), dir, testPatient())

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"identifier-search", "demographic-search"}, dir.calls)
}

func TestResolver_MalformedNIKShortCircuits(t *testing.T) {
	dir := newFakeDirectory(SystemRegistry)
	p := testPatient()
	p.NIK = "927106031200000123" // 18 characters

	resolver := NewResolver(zap.NewNop())
	ref, err := resolver.Resolve(context.Background(), dir, p)

	assert.Empty(t, ref)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
	assert.Empty(t, dir.calls, "a malformed identifier must produce zero outbound calls")
}

func TestResolver_MissingNIKStartsAtPhone(t *testing.T) {
	dir := newFakeDirectory(SystemERP)
	dir.phoneRef, dir.phoneErr = "PAT-0003", nil
	p := testPatient()
	p.NIK = ""

	resolver := NewResolver(zap.NewNop())
	ref, err := resolver.Resolve(context.Background(), dir, p)

	require.NoError(t, err)
	assert.Equal(t, "PAT-0003", ref)
	assert.Equal(t, []string{"phone-search"}, dir.calls)
}

func TestResolver_StepFailureFallsThrough(t *testing.T) {
	dir := newFakeDirectory(SystemRegistry)
	dir.identifierErr = ErrUnavailable // HTTP failure on identifier search
	dir.demoRef, dir.demoErr = "P02478375538", nil

	resolver := NewResolver(zap.NewNop())
	ref, err := resolver.Resolve(context.Background(), dir, testPatient())

	require.NoError(t, err)
	assert.Equal(t, "P02478375538", ref)
	assert.Equal(t, []string{"identifier-search", "demographic-search"}, dir.calls)
}

func TestResolver_FormularyItemResolvesByCodeOnly(t *testing.T) {
	dir := newFakeDirectory(SystemERP)
	dir.codeRef, dir.codeErr = "PARA-500", nil

	item := &FormularyItem{ID: 7, Code: "PARA-500", Name: "Paracetamol 500mg"}
	resolver := NewResolver(zap.NewNop())
	ref, err := resolver.Resolve(context.Background(), dir, item)

	require.NoError(t, err)
	assert.Equal(t, "PARA-500", ref)
	assert.Equal(t, []string{"code-search"}, dir.calls)
}

func TestResolver_UnsupportedKind(t *testing.T) {
	dir := newFakeDirectory(SystemERP)
	dir.unsupported[KindPharmacist] = true

	resolver := NewResolver(zap.NewNop())
	_, err := resolver.Resolve(context.Background(), dir, &Pharmacist{ID: 1, NIK: "9271060312000001"})

	assert.ErrorIs(t, err, ErrKindNotSupported)
	assert.Empty(t, dir.calls)
}
