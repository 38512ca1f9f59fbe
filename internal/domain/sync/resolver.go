package sync

import (
	"context"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolver finds the remote counterpart of a local entity using a fixed
// matching cascade. First hit wins; there is no scoring.
//
// Cascade for person kinds:
//  1. national identifier (when present and well formed)
//  2. phone number (only on systems that support it)
//  3. demographic triple (full name, birth date, gender)
//
// Formulary items resolve by item code only.
//
// A step's HTTP failure is logged and treated as a miss for that step, so a
// flaky identifier search still falls through to the demographic fallback.
type Resolver struct {
	logger *zap.Logger
}

// NewResolver creates a resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve returns the remote reference for the entity on the given system.
// It returns ErrNotFound when the cascade is exhausted, and
// ErrInvalidIdentifier, without any network call, when the entity carries a
// malformed national identifier.
func (r *Resolver) Resolve(ctx context.Context, dir RemoteDirectory, e Entity) (string, error) {
	if !dir.Supports(e.Kind()) {
		return "", ErrKindNotSupported
	}

	keys := e.Keys()

	if e.Kind() == KindFormularyItem {
		return r.step(ctx, dir, e, "code", func() (string, error) {
			if keys.Code == "" {
				return "", ErrNotFound
			}
			return dir.FindByCode(ctx, e.Kind(), keys.Code)
		})
	}

	// Step 1: national identifier. A malformed identifier aborts the whole
	// resolve before any network call; creating a remote record for an
	// entity with a bogus NIK would just mint an unmatchable duplicate.
	if keys.NIK != "" {
		if !ValidNIK(keys.NIK) {
			r.logger.Warn("skipping resolve, malformed national identifier",
				zap.String("kind", e.Kind().String()),
				zap.Int64("local_id", e.LocalID()),
				zap.Int("nik_length", len(keys.NIK)),
			)
			return "", ErrInvalidIdentifier
		}
		ref, err := r.step(ctx, dir, e, "identifier", func() (string, error) {
			return dir.FindByIdentifier(ctx, e.Kind(), keys.NIK)
		})
		if err == nil {
			return ref, nil
		}
	}

	// Step 2: phone number, where the system supports it.
	if keys.Phone != "" && dir.SupportsPhoneSearch() {
		ref, err := r.step(ctx, dir, e, "phone", func() (string, error) {
			return dir.FindByPhone(ctx, e.Kind(), keys.Phone)
		})
		if err == nil {
			return ref, nil
		}
	}

	// Step 3: demographic triple.
	if keys.FullName != "" {
		q := DemographicQuery{
			FullName:  keys.FullName,
			BirthDate: keys.BirthDate,
			Gender:    keys.Gender,
		}
		ref, err := r.step(ctx, dir, e, "demographics", func() (string, error) {
			return dir.FindByDemographics(ctx, e.Kind(), q)
		})
		if err == nil {
			return ref, nil
		}
	}

	return "", ErrNotFound
}

// step runs one cascade step and maps every non-hit to ErrNotFound so the
// caller falls through. Real failures are logged before being downgraded.
func (r *Resolver) step(_ context.Context, dir RemoteDirectory, e Entity, name string, find func() (string, error)) (string, error) {
	ref, err := find()
	if err == nil && ref != "" {
		return ref, nil
	}
	if err != nil && !IsMiss(err) {
		r.logger.Warn("resolver step failed, falling through",
			zap.String("system", dir.System().String()),
			zap.String("kind", e.Kind().String()),
			zap.Int64("local_id", e.LocalID()),
			zap.String("step", name),
			zap.Error(err),
		)
	}
	return "", ErrNotFound
}
