// Package attendance implements the Attendance Ledger.
//
// Records are keyed by a sequential id and indexed per class (a counter) and
// per (class, student) pair. Marking and updating are restricted to active
// administrators and lecturers; the role check runs against the injected
// authority inside the same transaction as the write.
package attendance
