package sync

import (
	"fmt"

	"github.com/klinik/backend/internal/domain/sync"
)

// Directories is a fixed-order DirectoryRegistry over the configured remote
// adapters. Order matters: the ERP backend is pushed before the registry so
// a fresh patient gets its backend id first.
type Directories struct {
	ordered []sync.RemoteDirectory
	bySys   map[sync.RemoteSystem]sync.RemoteDirectory
}

// NewDirectories builds a registry from the given adapters.
func NewDirectories(dirs ...sync.RemoteDirectory) *Directories {
	r := &Directories{
		ordered: make([]sync.RemoteDirectory, 0, len(dirs)),
		bySys:   make(map[sync.RemoteSystem]sync.RemoteDirectory, len(dirs)),
	}
	for _, d := range dirs {
		if d == nil {
			continue
		}
		r.ordered = append(r.ordered, d)
		r.bySys[d.System()] = d
	}
	return r
}

// Get returns the directory for the given system.
func (r *Directories) Get(system sync.RemoteSystem) (sync.RemoteDirectory, error) {
	d, ok := r.bySys[system]
	if !ok {
		return nil, fmt.Errorf("%w: no directory for system %q", sync.ErrUnsupported, system)
	}
	return d, nil
}

// All returns every configured directory in registration order.
func (r *Directories) All() []sync.RemoteDirectory {
	return r.ordered
}

var _ sync.DirectoryRegistry = (*Directories)(nil)
