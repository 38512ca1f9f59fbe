package sync

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// RemoteSystem / EntityKind
// ---------------------------------------------------------------------------

// RemoteSystem identifies one of the external systems of record.
type RemoteSystem string

const (
	// SystemERP is the practice-management/ERP backend (Frappe-style REST).
	SystemERP RemoteSystem = "ERP"
	// SystemRegistry is the national health-data exchange (FHIR).
	SystemRegistry RemoteSystem = "REGISTRY"
)

// IsValid returns true if the system code is known.
func (s RemoteSystem) IsValid() bool {
	return s == SystemERP || s == SystemRegistry
}

// String returns the string representation of the system code.
func (s RemoteSystem) String() string {
	return string(s)
}

// Systems lists all remote systems in a fixed order.
func Systems() []RemoteSystem {
	return []RemoteSystem{SystemERP, SystemRegistry}
}

// EntityKind identifies a local master-record type.
type EntityKind string

const (
	KindPatient       EntityKind = "patient"
	KindPractitioner  EntityKind = "practitioner"
	KindPharmacist    EntityKind = "pharmacist"
	KindFormularyItem EntityKind = "formulary_item"
)

// IsValid returns true if the entity kind is known.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindPatient, KindPractitioner, KindPharmacist, KindFormularyItem:
		return true
	default:
		return false
	}
}

// String returns the string representation of the entity kind.
func (k EntityKind) String() string {
	return string(k)
}

// Kinds lists all entity kinds in a fixed order.
func Kinds() []EntityKind {
	return []EntityKind{KindPatient, KindPractitioner, KindPharmacist, KindFormularyItem}
}

// ---------------------------------------------------------------------------
// Gender
// ---------------------------------------------------------------------------

// Gender is the locally stored gender value ("Male"/"Female", possibly empty).
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
)

// Normalize maps the local gender value to the lowercase administrative
// enumeration the remote systems expect. Anything unrecognized maps to
// "unknown" rather than failing the sync.
func (g Gender) Normalize() string {
	switch strings.ToLower(strings.TrimSpace(string(g))) {
	case "male", "m", "laki-laki":
		return "male"
	case "female", "f", "perempuan":
		return "female"
	default:
		return "unknown"
	}
}

// ---------------------------------------------------------------------------
// Natural identifiers
// ---------------------------------------------------------------------------

// nikLength is the fixed length of the national identity number (NIK).
const nikLength = 16

// ValidNIK reports whether s is a well-formed national identity number:
// exactly 16 digits.
func ValidNIK(s string) bool {
	if len(s) != nikLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// NaturalKeys carries every natural identifier an entity can be matched by.
// Unused fields are left empty.
type NaturalKeys struct {
	// NIK is the 16-digit national identity number.
	NIK string
	// Phone is the mobile number (ERP matching only).
	Phone string
	// Code is the item code for formulary items.
	Code string
	// FullName, BirthDate (YYYY-MM-DD) and Gender form the demographic
	// fallback triple.
	FullName  string
	BirthDate string
	Gender    Gender
}

// Entity is implemented by every local master record the sync engine handles.
type Entity interface {
	// Kind returns the entity kind.
	Kind() EntityKind
	// LocalID returns the local store's numeric id.
	LocalID() int64
	// Keys returns the natural identifiers used for cross-system matching.
	Keys() NaturalKeys
	// RemoteRef returns the stored reference for the given system, or "".
	RemoteRef(system RemoteSystem) string
	// SetRemoteRef stores a reference for the given system. References are
	// monotonic: an empty ref never overwrites a stored one.
	SetRemoteRef(system RemoteSystem, ref string)
}

// ---------------------------------------------------------------------------
// Patient
// ---------------------------------------------------------------------------

// Patient is the local patient master record.
type Patient struct {
	ID         int64
	FirstName  string
	LastName   string
	Gender     Gender
	NIK        string
	Phone      string
	BirthDate  string // YYYY-MM-DD, empty when unknown
	Street     string
	City       string
	PostalCode string

	// FrappeID is the ERP document name, IHSNumber the registry patient id.
	FrappeID  string
	IHSNumber string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns the display name used for demographic matching.
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Patient) Kind() EntityKind { return KindPatient }
func (p *Patient) LocalID() int64   { return p.ID }

func (p *Patient) Keys() NaturalKeys {
	return NaturalKeys{
		NIK:       p.NIK,
		Phone:     p.Phone,
		FullName:  p.FullName(),
		BirthDate: p.BirthDate,
		Gender:    p.Gender,
	}
}

func (p *Patient) RemoteRef(system RemoteSystem) string {
	switch system {
	case SystemERP:
		return p.FrappeID
	case SystemRegistry:
		return p.IHSNumber
	}
	return ""
}

func (p *Patient) SetRemoteRef(system RemoteSystem, ref string) {
	if ref == "" {
		return
	}
	switch system {
	case SystemERP:
		p.FrappeID = ref
	case SystemRegistry:
		p.IHSNumber = ref
	}
}

// ---------------------------------------------------------------------------
// Practitioner
// ---------------------------------------------------------------------------

// Practitioner is the local doctor master record.
type Practitioner struct {
	ID         int64
	FirstName  string
	LastName   string
	Gender     Gender
	NIK        string
	Phone      string
	BirthDate  string
	Department string
	Active     bool

	FrappeID              string
	IHSPractitionerNumber string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns the display name used for demographic matching.
func (p *Practitioner) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Practitioner) Kind() EntityKind { return KindPractitioner }
func (p *Practitioner) LocalID() int64   { return p.ID }

func (p *Practitioner) Keys() NaturalKeys {
	return NaturalKeys{
		NIK:       p.NIK,
		Phone:     p.Phone,
		FullName:  p.FullName(),
		BirthDate: p.BirthDate,
		Gender:    p.Gender,
	}
}

func (p *Practitioner) RemoteRef(system RemoteSystem) string {
	switch system {
	case SystemERP:
		return p.FrappeID
	case SystemRegistry:
		return p.IHSPractitionerNumber
	}
	return ""
}

func (p *Practitioner) SetRemoteRef(system RemoteSystem, ref string) {
	if ref == "" {
		return
	}
	switch system {
	case SystemERP:
		p.FrappeID = ref
	case SystemRegistry:
		p.IHSPractitionerNumber = ref
	}
}

// ---------------------------------------------------------------------------
// Pharmacist
// ---------------------------------------------------------------------------

// Pharmacist is the local pharmacist master record. The ERP backend has no
// pharmacist resource; only the registry (Practitioner resource) holds one.
type Pharmacist struct {
	ID        int64
	FirstName string
	LastName  string
	Gender    Gender
	NIK       string
	Phone     string
	BirthDate string
	Email     string

	IHSPractitionerNumber string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns the display name used for demographic matching.
func (p *Pharmacist) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

func (p *Pharmacist) Kind() EntityKind { return KindPharmacist }
func (p *Pharmacist) LocalID() int64   { return p.ID }

func (p *Pharmacist) Keys() NaturalKeys {
	return NaturalKeys{
		NIK:       p.NIK,
		Phone:     p.Phone,
		FullName:  p.FullName(),
		BirthDate: p.BirthDate,
		Gender:    p.Gender,
	}
}

func (p *Pharmacist) RemoteRef(system RemoteSystem) string {
	if system == SystemRegistry {
		return p.IHSPractitionerNumber
	}
	return ""
}

func (p *Pharmacist) SetRemoteRef(system RemoteSystem, ref string) {
	if ref == "" {
		return
	}
	if system == SystemRegistry {
		p.IHSPractitionerNumber = ref
	}
}

// ---------------------------------------------------------------------------
// FormularyItem
// ---------------------------------------------------------------------------

// FormularyItem is the local medicine master record. The item code is the
// natural key used to match ERP records; the ERP document name is stored
// separately once the item is linked.
type FormularyItem struct {
	ID          int64
	Code        string
	Name        string
	Unit        string
	Description string
	Price       decimal.Decimal
	StockQty    decimal.Decimal

	// FrappeID is the ERP document name, set after a successful link.
	FrappeID string
	// KFACode is the registry's formulary catalogue code, when known.
	KFACode string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (f *FormularyItem) Kind() EntityKind { return KindFormularyItem }
func (f *FormularyItem) LocalID() int64   { return f.ID }

func (f *FormularyItem) Keys() NaturalKeys {
	return NaturalKeys{Code: f.Code, FullName: f.Name}
}

func (f *FormularyItem) RemoteRef(system RemoteSystem) string {
	switch system {
	case SystemERP:
		return f.FrappeID
	case SystemRegistry:
		return f.KFACode
	}
	return ""
}

func (f *FormularyItem) SetRemoteRef(system RemoteSystem, ref string) {
	if ref == "" {
		return
	}
	switch system {
	case SystemERP:
		f.FrappeID = ref
	case SystemRegistry:
		f.KFACode = ref
	}
}
