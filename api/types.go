package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

// CallerHeader carries the hex address of the account a request acts as.
// A gateway in front of the server is expected to authenticate it.
const CallerHeader = "X-Caller-Address"

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	// Kind is one of authorization, not_found, validation, state or empty
	// for transport and decoding failures.
	Kind string `json:"kind,omitempty"`
}

// Notification mirrors ledger.Notification with the payload kept as raw
// JSON so clients can decode it by Name.
type Notification struct {
	Seq     uint64          `json:"seq"`
	TxSeq   uint64          `json:"tx_seq"`
	TxHash  common.Hash     `json:"tx_hash"`
	Emitter common.Address  `json:"emitter"`
	Name    string          `json:"name"`
	Topic   common.Hash     `json:"topic"`
	Time    time.Time       `json:"time"`
	Payload json.RawMessage `json:"payload"`
}

func NewNotification(n ledger.Notification) (Notification, error) {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return Notification{}, fmt.Errorf("encoding %s payload: %w", n.Name, err)
	}
	return Notification{
		Seq:     n.Seq,
		TxSeq:   n.TxSeq,
		TxHash:  n.TxHash,
		Emitter: n.Emitter,
		Name:    n.Name,
		Topic:   n.Topic,
		Time:    n.Time,
		Payload: payload,
	}, nil
}

// TxResponse is returned by every mutating endpoint.
type TxResponse struct {
	TxSeq  uint64         `json:"tx_seq"`
	TxHash common.Hash    `json:"tx_hash"`
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Method string         `json:"method"`
	Time   time.Time      `json:"time"`

	// ID is the record created by the transaction, if any.
	ID            uint64         `json:"id,omitempty"`
	Notifications []Notification `json:"notifications"`
}

func NewTxResponse(r *ledger.Receipt, id uint64) (*TxResponse, error) {
	resp := &TxResponse{
		TxSeq:         r.TxSeq,
		TxHash:        r.TxHash,
		From:          r.From,
		To:            r.To,
		Method:        r.Method,
		Time:          r.Time,
		ID:            id,
		Notifications: make([]Notification, 0, len(r.Notifications)),
	}
	for _, n := range r.Notifications {
		an, err := NewNotification(n)
		if err != nil {
			return nil, err
		}
		resp.Notifications = append(resp.Notifications, an)
	}
	return resp, nil
}

type AuthorityResponse struct {
	Address     common.Address                 `json:"address"`
	Owner       common.Address                 `json:"owner"`
	Initialized bool                           `json:"initialized"`
	Components  *interfaces.ComponentAddresses `json:"components,omitempty"`
	TotalUsers  uint64                         `json:"total_users"`
	Height      uint64                         `json:"height"`
}

type RegisterUserRequest struct {
	Address  common.Address  `json:"address"`
	UserID   string          `json:"user_id"`
	FullName string          `json:"full_name"`
	Email    string          `json:"email"`
	Role     interfaces.Role `json:"role"`
}

type UpdateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

type RoleResponse struct {
	Address common.Address  `json:"address"`
	Role    interfaces.Role `json:"role"`
	// HasRole answers ?role= queries.
	HasRole *bool `json:"has_role,omitempty"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type IDsResponse struct {
	IDs []uint64 `json:"ids"`
}

type IssueCredentialRequest struct {
	Student        common.Address `json:"student"`
	CredentialType string         `json:"credential_type"`
	DocumentRef    string         `json:"document_ref"`
	// ExpiresAt is omitted or zero for credentials that never expire.
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyResponse struct {
	ID    uint64 `json:"id"`
	Valid bool   `json:"valid"`
}

type MarkAttendanceRequest struct {
	ClassID     interfaces.ClassID          `json:"class_id"`
	Student     common.Address              `json:"student"`
	SessionDate time.Time                   `json:"session_date"`
	Status      interfaces.AttendanceStatus `json:"status"`
	Note        string                      `json:"note"`
}

type UpdateAttendanceRequest struct {
	Status interfaces.AttendanceStatus `json:"status"`
	Note   string                      `json:"note"`
}

type RecordGradeRequest struct {
	ClassID       interfaces.ClassID `json:"class_id"`
	Student       common.Address     `json:"student"`
	ComponentName string             `json:"component_name"`
	Score         uint64             `json:"score"`
	MaxScore      uint64             `json:"max_score"`
}

type UpdateGradeRequest struct {
	Score uint64 `json:"score"`
}

type FinalGradeResponse struct {
	ClassID    interfaces.ClassID `json:"class_id"`
	Student    common.Address     `json:"student"`
	Strategy   string             `json:"strategy"`
	FinalGrade uint64             `json:"final_grade"`
}

type DocumentResponse struct {
	ContentID   string `json:"content_id"`
	DocumentRef string `json:"document_ref"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}
