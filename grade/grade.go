// Package grade implements the Grade Ledger: recording, amending and
// approving graded components, and aggregating approved components into a
// final grade through a configurable FinalGradeStrategy.
//
// A component is recorded as DRAFT by an administrator or lecturer, may be
// amended while DRAFT, and becomes immutable once an administrator approves
// it. 0 <= score <= maxScore holds for every record at all times.
package grade

import (
	"context"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/authority"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

const componentName = "grade"

var (
	DefaultRecorderRoles = []interfaces.Role{interfaces.RoleAdmin, interfaces.RoleLecturer}
	DefaultApproverRoles = []interfaces.Role{interfaces.RoleAdmin}
)

type Config struct {
	// Strategy defaults to PendingPolicy.
	Strategy FinalGradeStrategy

	// RecorderRoles may record and update grades. Defaults to
	// DefaultRecorderRoles.
	RecorderRoles []interfaces.Role

	// ApproverRoles may approve grades. Defaults to DefaultApproverRoles.
	ApproverRoles []interfaces.Role

	RequireRecognition bool
}

type classStudent struct {
	class   interfaces.ClassID
	student common.Address
}

// Ledger holds grade records keyed by a sequential id starting at 1.
type Ledger struct {
	ledger    *ledger.Ledger
	log       *slog.Logger
	guard     authority.Guard
	strategy  FinalGradeStrategy
	recorders []interfaces.Role
	approvers []interfaces.Role

	seq            ledger.Sequence
	grades         map[uint64]interfaces.GradeRecord
	byClass        map[interfaces.ClassID][]uint64
	byClassStudent map[classStudent][]uint64
}

func Deploy(ctx context.Context, l *ledger.Ledger, deployer common.Address, auth interfaces.AccessAuthority, cfg Config, log *slog.Logger) (*Ledger, *ledger.Receipt, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Strategy == nil {
		cfg.Strategy = PendingPolicy{}
	}
	if len(cfg.RecorderRoles) == 0 {
		cfg.RecorderRoles = DefaultRecorderRoles
	}
	if len(cfg.ApproverRoles) == 0 {
		cfg.ApproverRoles = DefaultApproverRoles
	}

	g := &Ledger{
		ledger:         l,
		log:            log,
		strategy:       cfg.Strategy,
		recorders:      cfg.RecorderRoles,
		approvers:      cfg.ApproverRoles,
		grades:         make(map[uint64]interfaces.GradeRecord),
		byClass:        make(map[interfaces.ClassID][]uint64),
		byClassStudent: make(map[classStudent][]uint64),
	}

	addr, receipt, err := l.Deploy(ctx, deployer, componentName, nil)
	if err != nil {
		return nil, nil, err
	}
	g.guard = authority.Guard{Authority: auth, Self: addr, RequireRecognition: cfg.RequireRecognition}

	g.log.Info("Grade ledger deployed",
		"address", addr.Hex(),
		"authority", auth.Address().Hex(),
		"strategy", cfg.Strategy.Name())
	return g, receipt, nil
}

func (g *Ledger) Address() common.Address { return g.guard.Self }

func (g *Ledger) Authority() common.Address { return g.guard.Authority.Address() }

// Strategy returns the configured final grade strategy.
func (g *Ledger) Strategy() FinalGradeStrategy { return g.strategy }

// RecordGrade records a DRAFT component.
func (g *Ledger) RecordGrade(ctx context.Context, caller common.Address, classID interfaces.ClassID, student common.Address, component string, score, maxScore uint64) (id uint64, receipt *ledger.Receipt, err error) {
	receipt, err = g.execute(ctx, caller, "recordGrade", func(tx *ledger.Tx) error {
		if err := g.guard.Check(tx, g.recorders...); err != nil {
			return err
		}
		if score > maxScore {
			return interfaces.ValidationError("score exceeds max score")
		}

		id = g.seq.Next(tx)
		ledger.Put(tx, g.grades, id, interfaces.GradeRecord{
			ID:            id,
			ClassID:       classID,
			Student:       student,
			ComponentName: component,
			Score:         score,
			MaxScore:      maxScore,
			Status:        interfaces.GradeStatusDraft,
			RecordedBy:    tx.Caller(),
			RecordedAt:    tx.Now(),
		})
		ledger.Append(tx, g.byClass, classID, id)
		ledger.Append(tx, g.byClassStudent, classStudent{classID, student}, id)
		tx.Emit(g.Address(), interfaces.GradeRecorded{
			ID:            id,
			ClassID:       classID,
			Student:       student,
			ComponentName: component,
			Score:         score,
			RecordedBy:    tx.Caller(),
		})
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return id, receipt, nil
}

// UpdateGrade amends the score of a DRAFT component.
func (g *Ledger) UpdateGrade(ctx context.Context, caller common.Address, id uint64, newScore uint64) (*ledger.Receipt, error) {
	return g.execute(ctx, caller, "updateGrade", func(tx *ledger.Tx) error {
		if err := g.guard.Check(tx, g.recorders...); err != nil {
			return err
		}
		record, ok := g.grades[id]
		if !ok {
			return interfaces.NotFoundError("grade not found")
		}
		if newScore > record.MaxScore {
			return interfaces.ValidationError("score exceeds max score")
		}
		if record.Status != interfaces.GradeStatusDraft {
			return interfaces.StateError("grade already approved")
		}

		old := record.Score
		record.Score = newScore
		ledger.Put(tx, g.grades, id, record)
		tx.Emit(g.Address(), interfaces.GradeUpdated{
			ID:        id,
			OldScore:  old,
			NewScore:  newScore,
			UpdatedBy: tx.Caller(),
		})
		return nil
	})
}

// ApproveGrade finalizes a DRAFT component.
func (g *Ledger) ApproveGrade(ctx context.Context, caller common.Address, id uint64) (*ledger.Receipt, error) {
	return g.execute(ctx, caller, "approveGrade", func(tx *ledger.Tx) error {
		if err := g.guard.Check(tx, g.approvers...); err != nil {
			return err
		}
		record, ok := g.grades[id]
		if !ok {
			return interfaces.NotFoundError("grade not found")
		}
		if record.Status == interfaces.GradeStatusApproved {
			return interfaces.StateError("grade already approved")
		}

		record.Status = interfaces.GradeStatusApproved
		record.ApprovedBy = tx.Caller()
		record.ApprovedAt = tx.Now()
		ledger.Put(tx, g.grades, id, record)
		tx.Emit(g.Address(), interfaces.GradeApproved{ID: id, ApprovedBy: tx.Caller(), ApprovedAt: tx.Now()})
		return nil
	})
}

func (g *Ledger) GetGrade(id uint64) (record interfaces.GradeRecord, err error) {
	err = g.ledger.View(func(tx *ledger.Tx) error {
		var ok bool
		if record, ok = g.grades[id]; !ok {
			return interfaces.NotFoundError("grade not found")
		}
		return nil
	})
	return record, err
}

// GetStudentGrades returns the grade ids for student in classID, oldest
// first.
func (g *Ledger) GetStudentGrades(classID interfaces.ClassID, student common.Address) (ids []uint64) {
	_ = g.ledger.View(func(tx *ledger.Tx) error {
		ids = append([]uint64{}, g.byClassStudent[classStudent{classID, student}]...)
		return nil
	})
	return ids
}

// GetClassGrades returns every grade id recorded for classID.
func (g *Ledger) GetClassGrades(classID interfaces.ClassID) (ids []uint64) {
	_ = g.ledger.View(func(tx *ledger.Tx) error {
		ids = append([]uint64{}, g.byClass[classID]...)
		return nil
	})
	return ids
}

// CalculateFinalGrade applies the configured strategy to the student's
// APPROVED components in classID.
func (g *Ledger) CalculateFinalGrade(classID interfaces.ClassID, student common.Address) (final uint64) {
	_ = g.ledger.View(func(tx *ledger.Tx) error {
		var approved []interfaces.GradeRecord
		for _, id := range g.byClassStudent[classStudent{classID, student}] {
			if record := g.grades[id]; record.Status == interfaces.GradeStatusApproved {
				approved = append(approved, record)
			}
		}
		final = g.strategy.FinalGrade(approved)
		return nil
	})
	return final
}

// GradeCount returns the number of grades ever recorded.
func (g *Ledger) GradeCount() (count uint64) {
	_ = g.ledger.View(func(tx *ledger.Tx) error {
		count = g.seq.Current()
		return nil
	})
	return count
}

func (g *Ledger) execute(ctx context.Context, caller common.Address, method string, fn func(tx *ledger.Tx) error) (*ledger.Receipt, error) {
	return g.ledger.Execute(ctx, ledger.Call{
		From:      caller,
		To:        g.Address(),
		Component: componentName,
		Method:    method,
	}, fn)
}
