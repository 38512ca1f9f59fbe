package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/klinik/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// defaultBatchSize bounds one reconciliation pass per kind and system.
const defaultBatchSize = 100

// ErrUnknownKind indicates a kind string that maps to no local store.
var ErrUnknownKind = errors.New("sync service: unknown entity kind")

// RegisterMode controls when a newly registered patient is pushed remotely.
type RegisterMode string

const (
	// ModeSync pushes to every remote system before returning.
	ModeSync RegisterMode = "sync"
	// ModeDeferred commits locally and leaves Pending outbox rows for the
	// scheduler to drain.
	ModeDeferred RegisterMode = "deferred"
)

// SystemOutcome reports the push result against one remote system.
type SystemOutcome struct {
	System  sync.RemoteSystem `json:"system"`
	Outcome sync.Outcome      `json:"outcome"`
	Ref     string            `json:"ref,omitempty"`
	Error   string            `json:"error,omitempty"`

	err error
}

// Service implements identity reconciliation between the local store and the
// configured remote systems: resolve-then-act pushes, bounded pulls, and the
// outbox drain used by the scheduler.
type Service struct {
	patients      sync.PatientRepository
	practitioners sync.PractitionerRepository
	pharmacists   sync.PharmacistRepository
	items         sync.FormularyItemRepository
	states        sync.SyncStateRepository
	directories   sync.DirectoryRegistry
	resolver      *sync.Resolver
	logger        *zap.Logger
	batchSize     int
}

// NewService creates a sync service.
func NewService(
	patients sync.PatientRepository,
	practitioners sync.PractitionerRepository,
	pharmacists sync.PharmacistRepository,
	items sync.FormularyItemRepository,
	states sync.SyncStateRepository,
	directories sync.DirectoryRegistry,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		patients:      patients,
		practitioners: practitioners,
		pharmacists:   pharmacists,
		items:         items,
		states:        states,
		directories:   directories,
		resolver:      sync.NewResolver(logger),
		logger:        logger,
		batchSize:     defaultBatchSize,
	}
}

// SetBatchSize overrides the per-pass batch bound.
func (s *Service) SetBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// RegisterPatient stores the patient locally and, in the same transaction,
// one Pending outbox row per remote system. In ModeSync it then pushes to
// every system best-effort; a remote failure never rolls back the local
// write. In ModeDeferred the outbox rows are left for the scheduler.
func (s *Service) RegisterPatient(ctx context.Context, p *sync.Patient, mode RegisterMode) ([]SystemOutcome, error) {
	if p.NIK != "" && !sync.ValidNIK(p.NIK) {
		return nil, fmt.Errorf("%w: nik must be 16 digits", sync.ErrInvalidIdentifier)
	}

	pending := make([]sync.RemoteSystem, 0, 2)
	for _, dir := range s.directories.All() {
		if dir.Supports(sync.KindPatient) {
			pending = append(pending, dir.System())
		}
	}
	if err := s.patients.Create(ctx, p, pending); err != nil {
		return nil, fmt.Errorf("register patient: %w", err)
	}

	if mode == ModeDeferred {
		return nil, nil
	}

	outcomes := make([]SystemOutcome, 0, len(pending))
	for _, system := range pending {
		outcomes = append(outcomes, s.pushOne(ctx, sync.KindPatient, p.ID, system))
	}
	return outcomes, nil
}

// ---------------------------------------------------------------------------
// Single-entity push
// ---------------------------------------------------------------------------

// PushEntity loads one entity and pushes it to one remote system. The push
// result is reported in the SystemOutcome; only load failures and unknown
// kinds surface as errors.
func (s *Service) PushEntity(ctx context.Context, kind sync.EntityKind, id int64, system sync.RemoteSystem) (SystemOutcome, error) {
	if _, err := s.load(ctx, kind, id); err != nil {
		return SystemOutcome{}, err
	}
	return s.pushOne(ctx, kind, id, system), nil
}

// PushUpdate propagates a local demographic edit to every system that already
// holds a reference for the entity. Systems without a reference are skipped;
// linking happens only on registration or a reconcile pass.
func (s *Service) PushUpdate(ctx context.Context, kind sync.EntityKind, id int64) ([]SystemOutcome, error) {
	e, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	outcomes := make([]SystemOutcome, 0, 2)
	for _, dir := range s.directories.All() {
		if !dir.Supports(kind) {
			continue
		}
		out := SystemOutcome{System: dir.System()}
		ref := e.RemoteRef(dir.System())
		if ref == "" {
			out.Outcome = sync.OutcomeSkipped
			outcomes = append(outcomes, out)
			continue
		}
		if err := dir.Update(ctx, ref, e); err != nil && !errors.Is(err, sync.ErrUnsupported) {
			outcomes = append(outcomes, s.failed(ctx, out, kind, id, err))
			continue
		}
		out.Outcome, out.Ref = sync.OutcomeLinked, ref
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// SyncPatient pushes one stored patient to every remote system that handles
// patients. Idempotent: systems already holding a reference only refresh the
// drift-allowed fields.
func (s *Service) SyncPatient(ctx context.Context, id int64) (*sync.SyncResult, error) {
	return s.syncEntity(ctx, sync.KindPatient, id)
}

// SyncPractitioner pushes one stored practitioner to every remote system that
// handles practitioners.
func (s *Service) SyncPractitioner(ctx context.Context, id int64) (*sync.SyncResult, error) {
	return s.syncEntity(ctx, sync.KindPractitioner, id)
}

// SyncPharmacist pushes one stored pharmacist to every remote system that
// handles pharmacists.
func (s *Service) SyncPharmacist(ctx context.Context, id int64) (*sync.SyncResult, error) {
	return s.syncEntity(ctx, sync.KindPharmacist, id)
}

// SyncFormularyItem pushes one formulary item to every remote system that
// handles the medicine catalogue.
func (s *Service) SyncFormularyItem(ctx context.Context, id int64) (*sync.SyncResult, error) {
	return s.syncEntity(ctx, sync.KindFormularyItem, id)
}

// syncEntity fans one entity out to every supporting system and tallies the
// outcomes. Only a failed local load surfaces as an error.
func (s *Service) syncEntity(ctx context.Context, kind sync.EntityKind, id int64) (*sync.SyncResult, error) {
	if _, err := s.load(ctx, kind, id); err != nil {
		return nil, err
	}
	result := sync.NewSyncResult()
	for _, dir := range s.directories.All() {
		if !dir.Supports(kind) {
			continue
		}
		out := s.pushOne(ctx, kind, id, dir.System())
		result.Record(itemID(kind, id), out.Outcome, outcomeErr(out))
	}
	return result.Finish(), nil
}

// pushOne is the resolve-then-act push for one (entity, system) pair. It
// reloads the entity so a previously persisted reference short-circuits a
// repeated call, and records the attempt in the outbox.
func (s *Service) pushOne(ctx context.Context, kind sync.EntityKind, id int64, system sync.RemoteSystem) SystemOutcome {
	out := SystemOutcome{System: system}

	e, err := s.load(ctx, kind, id)
	if err != nil {
		return s.failed(ctx, out, kind, id, err)
	}
	dir, err := s.directories.Get(system)
	if err != nil {
		return s.failed(ctx, out, kind, id, err)
	}
	if !dir.Supports(kind) {
		out.Outcome = sync.OutcomeSkipped
		return out
	}

	// Already linked: refresh the drift-allowed fields on the remote record.
	// Systems that expose no update surface report ErrUnsupported; the link
	// itself still stands.
	if ref := e.RemoteRef(system); ref != "" {
		if err := dir.Update(ctx, ref, e); err != nil && !errors.Is(err, sync.ErrUnsupported) {
			return s.failed(ctx, out, kind, id, err)
		}
		out.Outcome, out.Ref = sync.OutcomeLinked, ref
		s.recordLinked(ctx, kind, id, system, ref)
		return out
	}

	ref, err := s.resolver.Resolve(ctx, dir, e)
	switch {
	case err == nil:
		// Matched an existing remote record: adopt its reference.
		out.Outcome = sync.OutcomeLinked
	case errors.Is(err, sync.ErrNotFound):
		ref, err = dir.Create(ctx, e)
		if errors.Is(err, sync.ErrUnsupported) {
			// Search-only resource (registry practitioners): an unmatched
			// entity simply stays unlinked until the registry knows it.
			out.Outcome = sync.OutcomeSkipped
			return out
		}
		if err != nil {
			return s.failed(ctx, out, kind, id, err)
		}
		out.Outcome = sync.OutcomeCreated
	case errors.Is(err, sync.ErrKindNotSupported):
		out.Outcome = sync.OutcomeSkipped
		return out
	default:
		return s.failed(ctx, out, kind, id, err)
	}

	if err := s.saveRef(ctx, kind, id, system, ref); err != nil {
		return s.failed(ctx, out, kind, id, err)
	}
	out.Ref = ref
	s.recordLinked(ctx, kind, id, system, ref)
	return out
}

// failed marks the outbox row and reports the outcome; push errors are data,
// not control flow.
func (s *Service) failed(ctx context.Context, out SystemOutcome, kind sync.EntityKind, id int64, err error) SystemOutcome {
	out.Outcome = sync.OutcomeFailed
	out.Error = err.Error()
	out.err = err
	s.logger.Warn("push failed",
		zap.String("kind", kind.String()),
		zap.Int64("entity_id", id),
		zap.String("system", out.System.String()),
		zap.String("class", string(sync.Classify(err))),
		zap.Error(err),
	)
	s.recordState(ctx, kind, id, out.System, func(st *sync.SyncState) { st.MarkFailed(err.Error()) })
	return out
}

func (s *Service) recordLinked(ctx context.Context, kind sync.EntityKind, id int64, system sync.RemoteSystem, ref string) {
	s.recordState(ctx, kind, id, system, func(st *sync.SyncState) { st.MarkLinked(ref) })
}

// recordState upserts the (kind, entity, system) outbox row. A bookkeeping
// failure is logged and swallowed; it must not fail the push itself.
func (s *Service) recordState(ctx context.Context, kind sync.EntityKind, id int64, system sync.RemoteSystem, mutate func(*sync.SyncState)) {
	st, err := s.states.Find(ctx, kind, id, system)
	if errors.Is(err, sync.ErrNotFound) {
		st, err = sync.NewPendingState(kind, id, system), nil
	}
	if err != nil {
		s.logger.Error("load sync state", zap.Error(err))
		return
	}
	mutate(st)
	if err := s.states.Save(ctx, st); err != nil {
		s.logger.Error("save sync state", zap.Error(err))
	}
}

// ---------------------------------------------------------------------------
// Batch reconciliation
// ---------------------------------------------------------------------------

// Run reconciles every unlinked entity of the kind against every remote
// system that handles it. Item failures are tallied, never propagated; the
// returned result always covers the full batch.
func (s *Service) Run(ctx context.Context, kind sync.EntityKind) (*sync.SyncResult, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	result := sync.NewSyncResult()
	for _, dir := range s.directories.All() {
		if !dir.Supports(kind) {
			continue
		}
		ids, err := s.listUnlinked(ctx, kind, dir.System())
		if err != nil {
			s.logger.Error("list unlinked",
				zap.String("kind", kind.String()),
				zap.String("system", dir.System().String()),
				zap.Error(err),
			)
			continue
		}
		for _, id := range ids {
			out := s.pushOne(ctx, kind, id, dir.System())
			result.Record(itemID(kind, id), out.Outcome, outcomeErr(out))
		}
	}
	return result.Finish(), nil
}

// DrainPending works through the oldest Pending and Failed outbox rows.
func (s *Service) DrainPending(ctx context.Context, limit int) (*sync.SyncResult, error) {
	if limit <= 0 || limit > s.batchSize {
		limit = s.batchSize
	}
	rows, err := s.states.ListUnlinked(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending states: %w", err)
	}

	result := sync.NewSyncResult()
	for _, row := range rows {
		out := s.pushOne(ctx, row.Kind, row.EntityID, row.System)
		result.Record(itemID(row.Kind, row.EntityID), out.Outcome, outcomeErr(out))
	}
	return result.Finish(), nil
}

func (s *Service) listUnlinked(ctx context.Context, kind sync.EntityKind, system sync.RemoteSystem) ([]int64, error) {
	switch kind {
	case sync.KindPatient:
		rows, err := s.patients.ListUnlinked(ctx, system, s.batchSize)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return ids, nil
	case sync.KindPractitioner:
		rows, err := s.practitioners.ListUnlinked(ctx, system, s.batchSize)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return ids, nil
	case sync.KindPharmacist:
		rows, err := s.pharmacists.ListUnlinked(ctx, system, s.batchSize)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return ids, nil
	case sync.KindFormularyItem:
		rows, err := s.items.ListUnlinked(ctx, system, s.batchSize)
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(rows))
		for i := range rows {
			ids[i] = rows[i].ID
		}
		return ids, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// ---------------------------------------------------------------------------
// Pulls
// ---------------------------------------------------------------------------

// placeholder values for shadow rows pulled from a remote that omits the
// field. The birth date mirrors the registry's administrative default.
const (
	placeholderName      = "Unknown"
	placeholderBirthDate = "2000-01-01"
)

// PullPatients imports a bounded page of ERP patients. Rows matching a local
// patient by NIK are linked; the rest become local shadow rows with a Pending
// registry outbox entry.
func (s *Service) PullPatients(ctx context.Context, limit int) (*sync.SyncResult, error) {
	dir, err := s.directories.Get(sync.SystemERP)
	if err != nil {
		return nil, err
	}
	records, err := dir.FetchPage(ctx, sync.KindPatient, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch patient page: %w", err)
	}

	result := sync.NewSyncResult()
	for _, rec := range records {
		outcome, err := s.importPatient(ctx, rec)
		result.Record(rec.Ref, outcome, err)
	}
	return result.Finish(), nil
}

func (s *Service) importPatient(ctx context.Context, rec sync.RemoteRecord) (sync.Outcome, error) {
	if rec.NIK != "" && sync.ValidNIK(rec.NIK) {
		existing, err := s.patients.FindByNIK(ctx, rec.NIK)
		switch {
		case err == nil:
			if existing.FrappeID == rec.Ref {
				return sync.OutcomeSkipped, nil
			}
			if err := s.patients.SaveRemoteRef(ctx, existing.ID, sync.SystemERP, rec.Ref); err != nil {
				return sync.OutcomeFailed, err
			}
			s.recordLinked(ctx, sync.KindPatient, existing.ID, sync.SystemERP, rec.Ref)
			return sync.OutcomeLinked, nil
		case !errors.Is(err, sync.ErrNotFound):
			return sync.OutcomeFailed, err
		}
	}

	p := &sync.Patient{
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Gender:    rec.Gender,
		NIK:       rec.NIK,
		Phone:     rec.Phone,
		BirthDate: rec.BirthDate,
		FrappeID:  rec.Ref,
	}
	if p.FirstName == "" {
		p.FirstName = placeholderName
	}
	if p.BirthDate == "" {
		p.BirthDate = placeholderBirthDate
	}
	if err := s.patients.Create(ctx, p, []sync.RemoteSystem{sync.SystemRegistry}); err != nil {
		return sync.OutcomeFailed, err
	}
	s.recordLinked(ctx, sync.KindPatient, p.ID, sync.SystemERP, rec.Ref)
	return sync.OutcomeCreated, nil
}

// PullFormularyItems refreshes the local medicine catalogue from the ERP,
// stock quantities included. Shadow rows are upserted by item code.
func (s *Service) PullFormularyItems(ctx context.Context, limit int) (*sync.SyncResult, error) {
	dir, err := s.directories.Get(sync.SystemERP)
	if err != nil {
		return nil, err
	}
	records, err := dir.FetchPage(ctx, sync.KindFormularyItem, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch item page: %w", err)
	}

	result := sync.NewSyncResult()
	for _, rec := range records {
		item := &sync.FormularyItem{
			Code:        rec.Code,
			Name:        rec.Name,
			Unit:        rec.Unit,
			Description: rec.Description,
			Price:       rec.Price,
			StockQty:    rec.StockQty,
			FrappeID:    rec.Ref,
		}
		if item.Code == "" {
			item.Code = rec.Ref
		}
		created, err := s.items.Upsert(ctx, item)
		switch {
		case err != nil:
			result.Record(rec.Ref, sync.OutcomeFailed, err)
		case created:
			result.Record(rec.Ref, sync.OutcomeCreated, nil)
		default:
			result.Record(rec.Ref, sync.OutcomeLinked, nil)
		}
	}
	return result.Finish(), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *Service) load(ctx context.Context, kind sync.EntityKind, id int64) (sync.Entity, error) {
	switch kind {
	case sync.KindPatient:
		return s.patients.FindByID(ctx, id)
	case sync.KindPractitioner:
		return s.practitioners.FindByID(ctx, id)
	case sync.KindPharmacist:
		return s.pharmacists.FindByID(ctx, id)
	case sync.KindFormularyItem:
		return s.items.FindByID(ctx, id)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func (s *Service) saveRef(ctx context.Context, kind sync.EntityKind, id int64, system sync.RemoteSystem, ref string) error {
	switch kind {
	case sync.KindPatient:
		return s.patients.SaveRemoteRef(ctx, id, system, ref)
	case sync.KindPractitioner:
		return s.practitioners.SaveRemoteRef(ctx, id, system, ref)
	case sync.KindPharmacist:
		return s.pharmacists.SaveRemoteRef(ctx, id, system, ref)
	case sync.KindFormularyItem:
		item, err := s.items.FindByID(ctx, id)
		if err != nil {
			return err
		}
		item.SetRemoteRef(system, ref)
		return s.items.Save(ctx, item)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func itemID(kind sync.EntityKind, id int64) string {
	return kind.String() + "/" + strconv.FormatInt(id, 10)
}

func outcomeErr(out SystemOutcome) error {
	if out.Outcome != sync.OutcomeFailed {
		return nil
	}
	return out.err
}
