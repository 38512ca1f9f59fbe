package sync

import "context"

// ---------------------------------------------------------------------------
// Local store repositories
// ---------------------------------------------------------------------------
//
// The sync engine only needs a narrow slice of the local store: load an
// entity, find it by natural identifier, list the ones missing a remote
// reference, create pull shadows, and persist remote references. The wider
// CRUD surface lives outside this subsystem.

// PatientRepository is the local patient store as seen by the sync engine.
type PatientRepository interface {
	FindByID(ctx context.Context, id int64) (*Patient, error)
	FindByNIK(ctx context.Context, nik string) (*Patient, error)
	// ListUnlinked returns patients missing a reference for the system.
	ListUnlinked(ctx context.Context, system RemoteSystem, limit int) ([]Patient, error)
	// Create inserts the patient and, in the same transaction, a Pending
	// sync state per requested system.
	Create(ctx context.Context, p *Patient, pending []RemoteSystem) error
	Save(ctx context.Context, p *Patient) error
	// SaveRemoteRef persists one reference field without touching the rest
	// of the row. Empty refs are ignored (references are monotonic).
	SaveRemoteRef(ctx context.Context, id int64, system RemoteSystem, ref string) error
}

// PractitionerRepository is the local doctor store as seen by the sync engine.
type PractitionerRepository interface {
	FindByID(ctx context.Context, id int64) (*Practitioner, error)
	ListUnlinked(ctx context.Context, system RemoteSystem, limit int) ([]Practitioner, error)
	Save(ctx context.Context, p *Practitioner) error
	SaveRemoteRef(ctx context.Context, id int64, system RemoteSystem, ref string) error
}

// PharmacistRepository is the local pharmacist store as seen by the sync engine.
type PharmacistRepository interface {
	FindByID(ctx context.Context, id int64) (*Pharmacist, error)
	ListUnlinked(ctx context.Context, system RemoteSystem, limit int) ([]Pharmacist, error)
	Save(ctx context.Context, p *Pharmacist) error
	SaveRemoteRef(ctx context.Context, id int64, system RemoteSystem, ref string) error
}

// FormularyItemRepository is the local medicine store as seen by the sync engine.
type FormularyItemRepository interface {
	FindByID(ctx context.Context, id int64) (*FormularyItem, error)
	FindByCode(ctx context.Context, code string) (*FormularyItem, error)
	ListUnlinked(ctx context.Context, system RemoteSystem, limit int) ([]FormularyItem, error)
	// Upsert creates or refreshes a local shadow row keyed by item code.
	Upsert(ctx context.Context, item *FormularyItem) (created bool, err error)
	Save(ctx context.Context, item *FormularyItem) error
}
