package interfaces

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type UserRegistered struct {
	Account common.Address `json:"account"`
	UserID  string         `json:"user_id"`
	Role    Role           `json:"role"`
}

func (UserRegistered) Signature() string { return "UserRegistered(address,string,uint8)" }

type UserUpdated struct {
	Account common.Address `json:"account"`
}

func (UserUpdated) Signature() string { return "UserUpdated(address)" }

type UserDeactivated struct {
	Account common.Address `json:"account"`
}

func (UserDeactivated) Signature() string { return "UserDeactivated(address)" }

type AuthorityInitialized struct {
	Components ComponentAddresses `json:"components"`
}

func (AuthorityInitialized) Signature() string {
	return "AuthorityInitialized(address,address,address,address)"
}

type CredentialIssued struct {
	ID             uint64         `json:"id"`
	Student        common.Address `json:"student"`
	CredentialType string         `json:"credential_type"`
	Issuer         common.Address `json:"issuer"`
}

func (CredentialIssued) Signature() string {
	return "CredentialIssued(uint256,address,string,address)"
}

type CredentialRevoked struct {
	ID        uint64         `json:"id"`
	Revoker   common.Address `json:"revoker"`
	RevokedAt time.Time      `json:"revoked_at"`
}

func (CredentialRevoked) Signature() string { return "CredentialRevoked(uint256,address,uint256)" }

type AttendanceMarked struct {
	ID       uint64           `json:"id"`
	ClassID  ClassID          `json:"class_id"`
	Student  common.Address   `json:"student"`
	Status   AttendanceStatus `json:"status"`
	MarkedBy common.Address   `json:"marked_by"`
}

func (AttendanceMarked) Signature() string {
	return "AttendanceMarked(uint256,uint256,address,uint8,address)"
}

type AttendanceUpdated struct {
	ID        uint64           `json:"id"`
	OldStatus AttendanceStatus `json:"old_status"`
	NewStatus AttendanceStatus `json:"new_status"`
	UpdatedBy common.Address   `json:"updated_by"`
}

func (AttendanceUpdated) Signature() string {
	return "AttendanceUpdated(uint256,uint8,uint8,address)"
}

type GradeRecorded struct {
	ID            uint64         `json:"id"`
	ClassID       ClassID        `json:"class_id"`
	Student       common.Address `json:"student"`
	ComponentName string         `json:"component_name"`
	Score         uint64         `json:"score"`
	RecordedBy    common.Address `json:"recorded_by"`
}

func (GradeRecorded) Signature() string {
	return "GradeRecorded(uint256,uint256,address,string,uint256,address)"
}

type GradeUpdated struct {
	ID        uint64         `json:"id"`
	OldScore  uint64         `json:"old_score"`
	NewScore  uint64         `json:"new_score"`
	UpdatedBy common.Address `json:"updated_by"`
}

func (GradeUpdated) Signature() string { return "GradeUpdated(uint256,uint256,uint256,address)" }

type GradeApproved struct {
	ID         uint64         `json:"id"`
	ApprovedBy common.Address `json:"approved_by"`
	ApprovedAt time.Time      `json:"approved_at"`
}

func (GradeApproved) Signature() string { return "GradeApproved(uint256,address,uint256)" }
