package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/authority"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

const componentName = "attendance"

// DefaultMarkerRoles are the roles allowed to mark and update attendance.
var DefaultMarkerRoles = []interfaces.Role{interfaces.RoleAdmin, interfaces.RoleLecturer}

type Config struct {
	// MarkerRoles overrides DefaultMarkerRoles when non-empty.
	MarkerRoles []interfaces.Role

	RequireRecognition bool
}

type classStudent struct {
	class   interfaces.ClassID
	student common.Address
}

// Ledger holds attendance records keyed by a sequential id starting at 1.
type Ledger struct {
	ledger *ledger.Ledger
	log    *slog.Logger
	guard  authority.Guard
	roles  []interfaces.Role

	seq            ledger.Sequence
	records        map[uint64]interfaces.AttendanceRecord
	classCounts    map[interfaces.ClassID]uint64
	byClassStudent map[classStudent][]uint64
}

func Deploy(ctx context.Context, l *ledger.Ledger, deployer common.Address, auth interfaces.AccessAuthority, cfg Config, log *slog.Logger) (*Ledger, *ledger.Receipt, error) {
	if log == nil {
		log = slog.Default()
	}
	roles := cfg.MarkerRoles
	if len(roles) == 0 {
		roles = DefaultMarkerRoles
	}
	a := &Ledger{
		ledger:         l,
		log:            log,
		roles:          roles,
		records:        make(map[uint64]interfaces.AttendanceRecord),
		classCounts:    make(map[interfaces.ClassID]uint64),
		byClassStudent: make(map[classStudent][]uint64),
	}

	addr, receipt, err := l.Deploy(ctx, deployer, componentName, nil)
	if err != nil {
		return nil, nil, err
	}
	a.guard = authority.Guard{Authority: auth, Self: addr, RequireRecognition: cfg.RequireRecognition}

	a.log.Info("Attendance ledger deployed", "address", addr.Hex(), "authority", auth.Address().Hex())
	return a, receipt, nil
}

func (a *Ledger) Address() common.Address { return a.guard.Self }

func (a *Ledger) Authority() common.Address { return a.guard.Authority.Address() }

// MarkAttendance records a student's attendance for one session.
func (a *Ledger) MarkAttendance(ctx context.Context, caller common.Address, classID interfaces.ClassID, student common.Address, sessionDate time.Time, status interfaces.AttendanceStatus, note string) (id uint64, receipt *ledger.Receipt, err error) {
	receipt, err = a.execute(ctx, caller, "markAttendance", func(tx *ledger.Tx) error {
		if err := a.guard.Check(tx, a.roles...); err != nil {
			return err
		}
		if !status.Valid() {
			return interfaces.ValidationError("invalid attendance status %d", uint8(status))
		}

		id = a.seq.Next(tx)
		ledger.Put(tx, a.records, id, interfaces.AttendanceRecord{
			ID:          id,
			ClassID:     classID,
			Student:     student,
			SessionDate: sessionDate,
			Status:      status,
			Note:        note,
			MarkedBy:    tx.Caller(),
			MarkedAt:    tx.Now(),
		})
		ledger.Put(tx, a.classCounts, classID, a.classCounts[classID]+1)
		ledger.Append(tx, a.byClassStudent, classStudent{classID, student}, id)
		tx.Emit(a.Address(), interfaces.AttendanceMarked{
			ID:       id,
			ClassID:  classID,
			Student:  student,
			Status:   status,
			MarkedBy: tx.Caller(),
		})
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return id, receipt, nil
}

// UpdateAttendance overwrites the status and note of an existing record.
func (a *Ledger) UpdateAttendance(ctx context.Context, caller common.Address, id uint64, status interfaces.AttendanceStatus, note string) (*ledger.Receipt, error) {
	return a.execute(ctx, caller, "updateAttendance", func(tx *ledger.Tx) error {
		if err := a.guard.Check(tx, a.roles...); err != nil {
			return err
		}
		record, ok := a.records[id]
		if !ok {
			return interfaces.NotFoundError("record not found")
		}
		if !status.Valid() {
			return interfaces.ValidationError("invalid attendance status %d", uint8(status))
		}

		old := record.Status
		record.Status = status
		record.Note = note
		ledger.Put(tx, a.records, id, record)
		tx.Emit(a.Address(), interfaces.AttendanceUpdated{
			ID:        id,
			OldStatus: old,
			NewStatus: status,
			UpdatedBy: tx.Caller(),
		})
		return nil
	})
}

func (a *Ledger) GetAttendanceRecord(id uint64) (record interfaces.AttendanceRecord, err error) {
	err = a.ledger.View(func(tx *ledger.Tx) error {
		var ok bool
		if record, ok = a.records[id]; !ok {
			return interfaces.NotFoundError("record not found")
		}
		return nil
	})
	return record, err
}

// GetStudentAttendance returns the record ids for student in classID, oldest
// first.
func (a *Ledger) GetStudentAttendance(classID interfaces.ClassID, student common.Address) (ids []uint64) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		ids = append([]uint64{}, a.byClassStudent[classStudent{classID, student}]...)
		return nil
	})
	return ids
}

// ClassAttendanceCount returns how many records were marked for classID.
func (a *Ledger) ClassAttendanceCount(classID interfaces.ClassID) (count uint64) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		count = a.classCounts[classID]
		return nil
	})
	return count
}

// RecordCount returns the number of records ever marked.
func (a *Ledger) RecordCount() (count uint64) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		count = a.seq.Current()
		return nil
	})
	return count
}

func (a *Ledger) execute(ctx context.Context, caller common.Address, method string, fn func(tx *ledger.Tx) error) (*ledger.Receipt, error) {
	return a.ledger.Execute(ctx, ledger.Call{
		From:      caller,
		To:        a.Address(),
		Component: componentName,
		Method:    method,
	}, fn)
}
