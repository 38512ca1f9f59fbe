package sync

import (
	"context"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// RemoteDirectory Port Interface
// ---------------------------------------------------------------------------

// MaxPullPageSize is the hard cap on the number of remote records fetched in
// a single pull page.
const MaxPullPageSize = 500

// DemographicQuery is the fallback matching triple, already normalized to
// the remote system's expected casing/enumeration by the adapter.
type DemographicQuery struct {
	FullName  string
	BirthDate string // YYYY-MM-DD
	Gender    Gender
}

// RemoteRecord is one record fetched from a remote system during a pull.
type RemoteRecord struct {
	// Ref is the remote system's opaque id for the record.
	Ref string
	// Natural identifiers, where the remote exposes them.
	NIK   string
	Phone string
	Code  string
	// Demographic / business attributes.
	FirstName   string
	LastName    string
	Gender      Gender
	BirthDate   string
	Name        string // display or item name
	Unit        string
	Description string
	Price       decimal.Decimal
	StockQty    decimal.Decimal
}

// RemoteDirectory is the port to one external system of record. Concrete
// adapters (Frappe, SatuSehat) live in the infrastructure layer.
//
// Lookup misses return ErrNotFound. Strategies a system does not implement
// return ErrUnsupported without a network call; the resolver treats both as
// a cascade fall-through.
type RemoteDirectory interface {
	// System returns the remote system this adapter handles.
	System() RemoteSystem

	// Supports returns true if the system has a resource for the kind.
	Supports(kind EntityKind) bool

	// SupportsPhoneSearch returns true if the system can match by phone
	// number. The registry cannot.
	SupportsPhoneSearch() bool

	// FindByIdentifier searches by national identity number. The caller
	// validates the NIK first; adapters may assume it is well formed.
	FindByIdentifier(ctx context.Context, kind EntityKind, nik string) (string, error)

	// FindByPhone searches by mobile number.
	FindByPhone(ctx context.Context, kind EntityKind, phone string) (string, error)

	// FindByCode searches by item code (formulary items).
	FindByCode(ctx context.Context, kind EntityKind, code string) (string, error)

	// FindByDemographics searches by the normalized demographic triple.
	FindByDemographics(ctx context.Context, kind EntityKind, q DemographicQuery) (string, error)

	// Create creates a remote record for the entity and returns the remote
	// reference assigned by the system.
	Create(ctx context.Context, e Entity) (string, error)

	// Update pushes the drift-allowed field subset (name, contact,
	// department/affiliation) onto an existing remote record.
	Update(ctx context.Context, ref string, e Entity) error

	// FetchPage fetches a bounded page of remote records for a pull pass.
	// limit is clamped to MaxPullPageSize.
	FetchPage(ctx context.Context, kind EntityKind, limit int) ([]RemoteRecord, error)
}

// DirectoryRegistry provides access to the configured remote directories.
type DirectoryRegistry interface {
	// Get returns the directory for the given system.
	Get(system RemoteSystem) (RemoteDirectory, error)
	// All returns every configured directory in a fixed order.
	All() []RemoteDirectory
}
