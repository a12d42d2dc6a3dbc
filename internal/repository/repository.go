// Package repository decodes and encodes the ledger collections stored in a
// storage.Store. Absent or unreadable data never fails a load: it yields an
// empty collection, or the demo dataset for the unscoped demo mode.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"maasser/internal/core"
	applog "maasser/internal/log"
	"maasser/internal/storage"
)

// Snapshot is the three collections of one scope, loaded together.
type Snapshot struct {
	Incomes       []core.Income
	Donations     []core.Donation
	Beneficiaries []core.Beneficiary
}

type Repository struct {
	store  storage.Store
	logger *applog.Logger
}

func New(store storage.Store, logger *applog.Logger) *Repository {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Repository{store: store, logger: logger.WithComponent(applog.ComponentRepository)}
}

// Demo reports whether scope is the unauthenticated demo partition.
func Demo(scope string) bool { return scope == "" }

func load[T any](ctx context.Context, r *Repository, key storage.Key, seed func() []T) ([]T, error) {
	raw, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", key, err)
	}

	var out []T
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			r.logger.WarnContext(ctx, "Discarding unreadable collection",
				applog.NewFields().
					WithKey(key.String()).
					WithError(err).
					WithErrorType(applog.ErrorTypeCorruption).
					WithOperation(applog.OpLoad).
					ToSlice()...)
			out = nil
		}
	}

	if len(out) == 0 && Demo(key.Scope) && seed != nil {
		return seed(), nil
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func save[T any](ctx context.Context, r *Repository, key storage.Key, list []T) error {
	if list == nil {
		list = []T{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Save(ctx, key, b); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	r.logger.DebugContext(ctx, "Collection saved",
		applog.FieldKey, key.String(),
		applog.FieldBytes, len(b))
	return nil
}

// Incomes loads the incomes of scope with MaasserDue recomputed from Amount
// and dates snapped to calendar days.
func (r *Repository) Incomes(ctx context.Context, scope string) ([]core.Income, error) {
	list, err := load(ctx, r, storage.Key{Collection: storage.Incomes, Scope: scope}, SeedIncomes)
	if err != nil {
		return nil, err
	}
	return core.NormalizeIncomes(list), nil
}

// Donations loads the donations of scope with dates snapped to calendar days.
func (r *Repository) Donations(ctx context.Context, scope string) ([]core.Donation, error) {
	list, err := load(ctx, r, storage.Key{Collection: storage.Donations, Scope: scope}, SeedDonations)
	if err != nil {
		return nil, err
	}
	return core.NormalizeDonations(list), nil
}

func (r *Repository) Beneficiaries(ctx context.Context, scope string) ([]core.Beneficiary, error) {
	return load(ctx, r, storage.Key{Collection: storage.Beneficiaries, Scope: scope}, SeedBeneficiaries)
}

func (r *Repository) SaveIncomes(ctx context.Context, scope string, list []core.Income) error {
	return save(ctx, r, storage.Key{Collection: storage.Incomes, Scope: scope}, list)
}

func (r *Repository) SaveDonations(ctx context.Context, scope string, list []core.Donation) error {
	return save(ctx, r, storage.Key{Collection: storage.Donations, Scope: scope}, list)
}

func (r *Repository) SaveBeneficiaries(ctx context.Context, scope string, list []core.Beneficiary) error {
	return save(ctx, r, storage.Key{Collection: storage.Beneficiaries, Scope: scope}, list)
}

// LoadSnapshot loads the three collections of scope concurrently.
func (r *Repository) LoadSnapshot(ctx context.Context, scope string) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap.Incomes, err = r.Incomes(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Donations, err = r.Donations(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Beneficiaries, err = r.Beneficiaries(gctx, scope)
		return err
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
