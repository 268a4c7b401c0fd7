package interfaces

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ClassID identifies a class. Classes themselves are managed outside the
// registry; only their identifiers are recorded.
type ClassID uint64

// User is an identity registered with the Authority. Users are never
// removed; deactivation clears IsActive. Role is fixed at registration.
type User struct {
	Address   common.Address `json:"address"`
	UserID    string         `json:"user_id"`
	FullName  string         `json:"full_name"`
	Email     string         `json:"email"`
	Role      Role           `json:"role"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
}

// Credential is an issued attestation about a student. DocumentRef is an
// opaque reference, typically "sha256:<hex>" for documents held in the
// document store.
type Credential struct {
	ID             uint64         `json:"id"`
	Student        common.Address `json:"student"`
	CredentialType string         `json:"credential_type"`
	DocumentRef    string         `json:"document_ref"`
	IssuedAt       time.Time      `json:"issued_at"`
	// ExpiresAt is the zero time for credentials that never expire.
	ExpiresAt time.Time        `json:"expires_at"`
	Status    CredentialStatus `json:"status"`
	Issuer    common.Address   `json:"issuer"`
	RevokedBy common.Address   `json:"revoked_by"`
	RevokedAt time.Time        `json:"revoked_at"`
}

// ValidAt reports whether the credential is active and unexpired at t.
func (c Credential) ValidAt(t time.Time) bool {
	return c.Status == CredentialStatusActive && (c.ExpiresAt.IsZero() || t.Before(c.ExpiresAt))
}

// AttendanceRecord is one student's attendance for one session. Only Status
// and Note change after creation.
type AttendanceRecord struct {
	ID          uint64           `json:"id"`
	ClassID     ClassID          `json:"class_id"`
	Student     common.Address   `json:"student"`
	SessionDate time.Time        `json:"session_date"`
	Status      AttendanceStatus `json:"status"`
	Note        string           `json:"note"`
	MarkedBy    common.Address   `json:"marked_by"`
	MarkedAt    time.Time        `json:"marked_at"`
}

// GradeRecord is one graded component for a student in a class.
// 0 <= Score <= MaxScore always holds.
type GradeRecord struct {
	ID            uint64         `json:"id"`
	ClassID       ClassID        `json:"class_id"`
	Student       common.Address `json:"student"`
	ComponentName string         `json:"component_name"`
	Score         uint64         `json:"score"`
	MaxScore      uint64         `json:"max_score"`
	Status        GradeStatus    `json:"status"`
	RecordedBy    common.Address `json:"recorded_by"`
	RecordedAt    time.Time      `json:"recorded_at"`
	ApprovedBy    common.Address `json:"approved_by"`
	ApprovedAt    time.Time      `json:"approved_at"`
}

// ComponentAddresses are the satellite addresses bound to the Authority by
// its one-time initialization.
type ComponentAddresses struct {
	Credential common.Address `json:"credential"`
	Attendance common.Address `json:"attendance"`
	Grade      common.Address `json:"grade"`
	Class      common.Address `json:"class"`
}

// Contains reports whether addr is one of the bound components.
func (c ComponentAddresses) Contains(addr common.Address) bool {
	if addr == (common.Address{}) {
		return false
	}
	return addr == c.Credential || addr == c.Attendance || addr == c.Grade || addr == c.Class
}
