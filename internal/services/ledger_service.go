// Package services runs ledger operations for one scope at a time: load the
// collection, apply a pure core command, persist, then announce the change.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"maasser/internal/amqp"
	"maasser/internal/cache"
	"maasser/internal/core"
	applog "maasser/internal/log"
	"maasser/internal/repository"
)

// Publisher announces ledger changes. *amqp.Client implements it.
type Publisher interface {
	PublishRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error
}

// ErrInvalidInput wraps every validation failure of a write.
var ErrInvalidInput = errors.New("invalid input")

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// Dashboard is the yearly overview: summary, latest activity and the years
// that can be selected.
type Dashboard struct {
	Summary       core.YearSummary   `json:"summary"`
	Recent        []core.Activity    `json:"recent"`
	Years         []int              `json:"years"`
	Beneficiaries []core.Beneficiary `json:"beneficiaries"`
}

type HistoryFilter struct {
	Year          int // 0 = every year
	Source        core.IncomeSource
	BeneficiaryID string
	Locale        core.Locale
	Limit         int
}

// History is the month-grouped view of both collections plus the merged feed.
type History struct {
	Year          int                              `json:"year"`
	Incomes       []core.MonthGroup[core.Income]   `json:"incomes"`
	Donations     []core.MonthGroup[core.Donation] `json:"donations"`
	Feed          []core.Activity                  `json:"feed"`
	Beneficiaries []core.Beneficiary               `json:"beneficiaries"`
}

type LedgerService struct {
	repo       *repository.Repository
	dashboards cache.Cache[Dashboard]
	publisher  Publisher
	logger     *applog.Logger
	events     *applog.StructuredLogger
	locks      *scopeLocks

	newID func() string
	now   func() time.Time
}

// NewLedgerService wires the service. dashboards and publisher may be nil.
func NewLedgerService(repo *repository.Repository, dashboards cache.Cache[Dashboard], publisher Publisher, logger *applog.Logger) *LedgerService {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentLedger)
	return &LedgerService{
		repo:       repo,
		dashboards: dashboards,
		publisher:  publisher,
		logger:     logger,
		events:     applog.NewStructuredLogger(logger),
		locks:      newScopeLocks(),
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

func dashboardKey(scope string, year int) string {
	return fmt.Sprintf("%s|dashboard|%d", scope, year)
}

// Dashboard returns the overview of year for scope, served from cache when fresh.
func (s *LedgerService) Dashboard(ctx context.Context, scope string, year int) (Dashboard, error) {
	key := dashboardKey(scope, year)
	if s.dashboards != nil {
		if d, ok := s.dashboards.Get(key); ok {
			return d, nil
		}
	}

	// Filling the cache under the scope lock keeps a concurrent write from
	// being overwritten by a stale result.
	unlock := s.locks.lock(scope)
	defer unlock()

	snap, err := s.repo.LoadSnapshot(ctx, scope)
	if err != nil {
		return Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}
	d := Dashboard{
		Summary:       core.ComputeYearSummary(snap.Incomes, snap.Donations, year),
		Recent:        core.RecentActivity(snap.Incomes, snap.Donations, core.DefaultRecentLimit),
		Years:         core.AvailableYears(snap.Incomes, snap.Donations, s.now()),
		Beneficiaries: snap.Beneficiaries,
	}
	if s.dashboards != nil {
		s.dashboards.Set(key, d)
	}
	return d, nil
}

func (s *LedgerService) Years(ctx context.Context, scope string) ([]int, error) {
	snap, err := s.repo.LoadSnapshot(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("years: %w", err)
	}
	return core.AvailableYears(snap.Incomes, snap.Donations, s.now()), nil
}

func (s *LedgerService) History(ctx context.Context, scope string, f HistoryFilter) (History, error) {
	snap, err := s.repo.LoadSnapshot(ctx, scope)
	if err != nil {
		return History{}, fmt.Errorf("history: %w", err)
	}
	return History{
		Year:          f.Year,
		Incomes:       core.GroupIncomesByMonth(snap.Incomes, f.Year, f.Source, f.Locale),
		Donations:     core.GroupDonationsByMonth(snap.Donations, f.Year, f.BeneficiaryID, f.Locale),
		Feed:          core.HistoryFeed(snap.Incomes, snap.Donations, f.Year, f.Source, f.BeneficiaryID, f.Limit),
		Beneficiaries: snap.Beneficiaries,
	}, nil
}

func (s *LedgerService) Incomes(ctx context.Context, scope string) ([]core.Income, error) {
	return s.repo.Incomes(ctx, scope)
}

func (s *LedgerService) Donations(ctx context.Context, scope string) ([]core.Donation, error) {
	return s.repo.Donations(ctx, scope)
}

// Beneficiaries lists beneficiaries with their donation totals, largest first.
func (s *LedgerService) Beneficiaries(ctx context.Context, scope string) ([]core.BeneficiaryStat, error) {
	snap, err := s.repo.LoadSnapshot(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("beneficiaries: %w", err)
	}
	return core.BeneficiaryStats(snap.Beneficiaries, snap.Donations), nil
}

// mutation describes one write against a single collection.
type mutation[T any] struct {
	kind  core.ActivityKind
	op    string
	load  func(context.Context, string) ([]T, error)
	save  func(context.Context, string, []T) error
	apply func([]T) ([]T, T, string, error)
}

// run locks the scope, applies m, persists the result and announces it.
// Not-found outcomes skip persistence and are returned as core.ErrNotFound.
func run[T any](ctx context.Context, s *LedgerService, scope string, m mutation[T]) (T, error) {
	var zero T
	unlock := s.locks.lock(scope)
	defer unlock()

	list, err := m.load(ctx, scope)
	if err != nil {
		return zero, err
	}
	next, rec, id, err := m.apply(list)
	if err != nil {
		if !errors.Is(err, core.ErrNotFound) {
			return zero, err
		}
		s.logger.DebugContext(ctx, "Mutation target missing",
			applog.NewFields().WithScope(scope).WithRecord(string(m.kind), id).WithOperation(m.op).ToSlice()...)
		return zero, fmt.Errorf("%s %s %s: %w", m.op, m.kind, id, err)
	}
	if err := m.save(ctx, scope, next); err != nil {
		s.events.LogError(ctx, "Failed to persist ledger change", err, applog.ErrorTypeDatabase, m.op,
			applog.NewFields().WithScope(scope).WithRecord(string(m.kind), id))
		return zero, err
	}

	s.invalidate(scope)
	s.events.LogRecordChanged(ctx, scope, string(m.kind), m.op, id)
	s.publish(ctx, scope, m.kind, m.op, id)
	return rec, nil
}

func (s *LedgerService) invalidate(scope string) {
	if s.dashboards != nil {
		s.dashboards.DeletePrefix(scope + "|")
	}
}

// publish is best effort: a broker failure never fails the write.
func (s *LedgerService) publish(ctx context.Context, scope string, kind core.ActivityKind, op, id string) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewRecordChangedMessage(scope, string(kind), op, id)
	if err := s.publisher.PublishRecordChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish record change",
			applog.NewFields().WithScope(scope).WithRecord(string(kind), id).WithError(err).ToSlice()...)
	}
}

func (s *LedgerService) AddIncome(ctx context.Context, scope string, in core.IncomeInput) (core.Income, error) {
	if err := invalid(in.Validate()); err != nil {
		return core.Income{}, err
	}
	id := s.newID()
	return run(ctx, s, scope, mutation[core.Income]{
		kind: core.KindIncome, op: amqp.OpCreated,
		load: s.repo.Incomes, save: s.repo.SaveIncomes,
		apply: func(list []core.Income) ([]core.Income, core.Income, string, error) {
			next, rec := core.AddIncome(list, id, in)
			return next, rec, id, nil
		},
	})
}

func (s *LedgerService) UpdateIncome(ctx context.Context, scope, id string, in core.IncomeInput) (core.Income, error) {
	if err := invalid(in.Validate()); err != nil {
		return core.Income{}, err
	}
	return run(ctx, s, scope, mutation[core.Income]{
		kind: core.KindIncome, op: amqp.OpUpdated,
		load: s.repo.Incomes, save: s.repo.SaveIncomes,
		apply: func(list []core.Income) ([]core.Income, core.Income, string, error) {
			next, rec, err := core.UpdateIncome(list, id, in)
			return next, rec, id, err
		},
	})
}

func (s *LedgerService) DeleteIncome(ctx context.Context, scope, id string) error {
	_, err := run(ctx, s, scope, mutation[core.Income]{
		kind: core.KindIncome, op: amqp.OpDeleted,
		load: s.repo.Incomes, save: s.repo.SaveIncomes,
		apply: func(list []core.Income) ([]core.Income, core.Income, string, error) {
			next, err := core.DeleteIncome(list, id)
			return next, core.Income{}, id, err
		},
	})
	return err
}

func (s *LedgerService) AddDonation(ctx context.Context, scope string, in core.DonationInput) (core.Donation, error) {
	if err := invalid(in.Validate()); err != nil {
		return core.Donation{}, err
	}
	id := s.newID()
	return run(ctx, s, scope, mutation[core.Donation]{
		kind: core.KindDonation, op: amqp.OpCreated,
		load: s.repo.Donations, save: s.repo.SaveDonations,
		apply: func(list []core.Donation) ([]core.Donation, core.Donation, string, error) {
			next, rec := core.AddDonation(list, id, in)
			return next, rec, id, nil
		},
	})
}

func (s *LedgerService) UpdateDonation(ctx context.Context, scope, id string, in core.DonationInput) (core.Donation, error) {
	if err := invalid(in.Validate()); err != nil {
		return core.Donation{}, err
	}
	return run(ctx, s, scope, mutation[core.Donation]{
		kind: core.KindDonation, op: amqp.OpUpdated,
		load: s.repo.Donations, save: s.repo.SaveDonations,
		apply: func(list []core.Donation) ([]core.Donation, core.Donation, string, error) {
			next, rec, err := core.UpdateDonation(list, id, in)
			return next, rec, id, err
		},
	})
}

func (s *LedgerService) DeleteDonation(ctx context.Context, scope, id string) error {
	_, err := run(ctx, s, scope, mutation[core.Donation]{
		kind: core.KindDonation, op: amqp.OpDeleted,
		load: s.repo.Donations, save: s.repo.SaveDonations,
		apply: func(list []core.Donation) ([]core.Donation, core.Donation, string, error) {
			next, err := core.DeleteDonation(list, id)
			return next, core.Donation{}, id, err
		},
	})
	return err
}

func (s *LedgerService) AddBeneficiary(ctx context.Context, scope string, in core.BeneficiaryInput) (core.Beneficiary, error) {
	if err := invalid(in.Validate()); err != nil {
		return core.Beneficiary{}, err
	}
	id := s.newID()
	now := s.now().UTC()
	return run(ctx, s, scope, mutation[core.Beneficiary]{
		kind: core.KindBeneficiary, op: amqp.OpCreated,
		load: s.repo.Beneficiaries, save: s.repo.SaveBeneficiaries,
		apply: func(list []core.Beneficiary) ([]core.Beneficiary, core.Beneficiary, string, error) {
			next, rec := core.AddBeneficiary(list, id, in, now)
			return next, rec, id, nil
		},
	})
}

// DeleteBeneficiary removes the beneficiary; its donations stay and show as unknown.
func (s *LedgerService) DeleteBeneficiary(ctx context.Context, scope, id string) error {
	_, err := run(ctx, s, scope, mutation[core.Beneficiary]{
		kind: core.KindBeneficiary, op: amqp.OpDeleted,
		load: s.repo.Beneficiaries, save: s.repo.SaveBeneficiaries,
		apply: func(list []core.Beneficiary) ([]core.Beneficiary, core.Beneficiary, string, error) {
			next, err := core.DeleteBeneficiary(list, id)
			return next, core.Beneficiary{}, id, err
		},
	})
	return err
}
