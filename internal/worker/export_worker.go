// Package worker turns ledger change events into change-log rows.
//
// Events carry only the record id, so each row describes the record as it
// stands when the event is exported, not as it stood when it changed. Two
// quick edits to one record therefore log two rows with the latest values,
// and a record deleted before export is logged by id only.
package worker

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"maasser/internal/amqp"
	"maasser/internal/core"
	applog "maasser/internal/log"
	"maasser/internal/repository"
	"maasser/internal/sheets"
)

// ExportWorker re-reads the record named by each event and appends it to the
// change log.
type ExportWorker struct {
	repo   *repository.Repository
	sink   sheets.ChangeWriter
	logger *applog.Logger
}

func NewExportWorker(repo *repository.Repository, sink sheets.ChangeWriter, logger *applog.Logger) *ExportWorker {
	if logger == nil {
		logger = applog.Discard()
	}
	return &ExportWorker{
		repo:   repo,
		sink:   sink,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleRecordChanged processes a single change event. Its signature matches
// amqp.Handler; a returned error requeues the delivery.
func (w *ExportWorker) HandleRecordChanged(ctx context.Context, msg *amqp.RecordChangedMessage) error {
	fields := applog.NewFields().WithScope(msg.Scope).WithRecord(msg.Kind, msg.ID).WithOperation(msg.Op)
	w.logger.InfoContext(ctx, "Processing change event", fields.ToSlice()...)

	entry := sheets.ChangeEntry{
		Timestamp: msg.Timestamp,
		Scope:     msg.Scope,
		Kind:      msg.Kind,
		Op:        msg.Op,
		ID:        msg.ID,
	}
	if msg.Op != amqp.OpDeleted {
		found, err := w.describe(ctx, msg, &entry)
		if err != nil {
			return fmt.Errorf("read %s %s: %w", msg.Kind, msg.ID, err)
		}
		if !found {
			// Deleted again before we got to it.
			w.logger.WarnContext(ctx, "Changed record no longer exists, logging id only", fields.ToSlice()...)
		}
	}

	ref, err := w.sink.AppendChange(ctx, entry)
	if err != nil {
		return fmt.Errorf("append change: %w", err)
	}
	w.logger.InfoContext(ctx, "Exported change", append(fields.ToSlice(), "row_ref", ref)...)
	return nil
}

// describe fills the record columns of entry. It reports false when the
// record is gone.
func (w *ExportWorker) describe(ctx context.Context, msg *amqp.RecordChangedMessage, entry *sheets.ChangeEntry) (bool, error) {
	switch core.ActivityKind(msg.Kind) {
	case core.KindIncome:
		list, err := w.repo.Incomes(ctx, msg.Scope)
		if err != nil {
			return false, err
		}
		i := slices.IndexFunc(list, func(x core.Income) bool { return x.ID == msg.ID })
		if i < 0 {
			return false, nil
		}
		in := list[i]
		entry.Date, entry.Amount, entry.MaasserDue = in.Date, in.Amount, in.MaasserDue
		entry.Detail = in.Description
		if entry.Detail == "" {
			entry.Detail = in.Source.Label()
		}
		return true, nil

	case core.KindDonation:
		snap, err := w.repo.LoadSnapshot(ctx, msg.Scope)
		if err != nil {
			return false, err
		}
		i := slices.IndexFunc(snap.Donations, func(x core.Donation) bool { return x.ID == msg.ID })
		if i < 0 {
			return false, nil
		}
		d := snap.Donations[i]
		entry.Date, entry.Amount = d.Date, d.Amount
		entry.Detail = core.BeneficiaryName(snap.Beneficiaries, d.BeneficiaryID)
		if d.Note != "" {
			entry.Detail += " - " + d.Note
		}
		return true, nil

	case core.KindBeneficiary:
		list, err := w.repo.Beneficiaries(ctx, msg.Scope)
		if err != nil {
			return false, err
		}
		b, ok := core.FindBeneficiary(list, msg.ID)
		if !ok {
			return false, nil
		}
		entry.Date = b.CreatedAt
		entry.Detail = strings.TrimSpace(b.Name + " " + categoryLabel(b.Category))
		return true, nil

	default:
		return false, fmt.Errorf("unknown record kind %q", msg.Kind)
	}
}

func categoryLabel(c core.BeneficiaryCategory) string {
	if c == "" {
		return ""
	}
	return "(" + c.Label() + ")"
}
