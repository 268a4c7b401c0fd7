// Package credential implements the Credential Ledger: issuance, verification
// and revocation of credential attestations about students.
package credential

import (
	"context"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/authority"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

const componentName = "credential"

type Config struct {
	// IssuerRoles restricts issuance and revocation to active users holding
	// one of these roles. Empty leaves both unrestricted.
	IssuerRoles []interfaces.Role

	// RequireRecognition rejects mutations until the authority has bound
	// this ledger.
	RequireRecognition bool
}

// Ledger holds credentials keyed by a sequential id starting at 1.
type Ledger struct {
	ledger *ledger.Ledger
	log    *slog.Logger
	cfg    Config
	guard  authority.Guard

	seq         ledger.Sequence
	credentials map[uint64]interfaces.Credential
	byStudent   map[common.Address][]uint64
}

// Deploy creates a Credential Ledger bound to auth.
func Deploy(ctx context.Context, l *ledger.Ledger, deployer common.Address, auth interfaces.AccessAuthority, cfg Config, log *slog.Logger) (*Ledger, *ledger.Receipt, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &Ledger{
		ledger:      l,
		log:         log,
		cfg:         cfg,
		credentials: make(map[uint64]interfaces.Credential),
		byStudent:   make(map[common.Address][]uint64),
	}

	addr, receipt, err := l.Deploy(ctx, deployer, componentName, nil)
	if err != nil {
		return nil, nil, err
	}
	c.guard = authority.Guard{Authority: auth, Self: addr, RequireRecognition: cfg.RequireRecognition}

	c.log.Info("Credential ledger deployed", "address", addr.Hex(), "authority", auth.Address().Hex())
	return c, receipt, nil
}

func (c *Ledger) Address() common.Address { return c.guard.Self }

// Authority returns the address of the authority this ledger consults.
func (c *Ledger) Authority() common.Address { return c.guard.Authority.Address() }

// IssueCredential records a new ACTIVE credential for student. A zero
// expiresAt means the credential never expires.
func (c *Ledger) IssueCredential(ctx context.Context, caller, student common.Address, credentialType, documentRef string, expiresAt time.Time) (id uint64, receipt *ledger.Receipt, err error) {
	receipt, err = c.execute(ctx, caller, "issueCredential", func(tx *ledger.Tx) error {
		if err := c.guard.Check(tx, c.cfg.IssuerRoles...); err != nil {
			return err
		}

		id = c.seq.Next(tx)
		ledger.Put(tx, c.credentials, id, interfaces.Credential{
			ID:             id,
			Student:        student,
			CredentialType: credentialType,
			DocumentRef:    documentRef,
			IssuedAt:       tx.Now(),
			ExpiresAt:      expiresAt,
			Status:         interfaces.CredentialStatusActive,
			Issuer:         tx.Caller(),
		})
		ledger.Append(tx, c.byStudent, student, id)
		tx.Emit(c.Address(), interfaces.CredentialIssued{
			ID:             id,
			Student:        student,
			CredentialType: credentialType,
			Issuer:         tx.Caller(),
		})
		return nil
	})
	if err != nil {
		return 0, nil, err
	}
	return id, receipt, nil
}

// VerifyCredential reports whether id exists, is ACTIVE and has not expired.
// Unknown ids verify as false.
func (c *Ledger) VerifyCredential(id uint64) (valid bool) {
	_ = c.ledger.View(func(tx *ledger.Tx) error {
		cred, ok := c.credentials[id]
		valid = ok && cred.ValidAt(tx.Now())
		return nil
	})
	return valid
}

// RevokeCredential moves an ACTIVE credential to REVOKED. Revoking twice is
// rejected.
func (c *Ledger) RevokeCredential(ctx context.Context, caller common.Address, id uint64) (*ledger.Receipt, error) {
	return c.execute(ctx, caller, "revokeCredential", func(tx *ledger.Tx) error {
		if err := c.guard.Check(tx, c.cfg.IssuerRoles...); err != nil {
			return err
		}
		cred, ok := c.credentials[id]
		if !ok {
			return interfaces.NotFoundError("credential not found")
		}
		if cred.Status == interfaces.CredentialStatusRevoked {
			return interfaces.ValidationError("credential already revoked")
		}

		cred.Status = interfaces.CredentialStatusRevoked
		cred.RevokedBy = tx.Caller()
		cred.RevokedAt = tx.Now()
		ledger.Put(tx, c.credentials, id, cred)
		tx.Emit(c.Address(), interfaces.CredentialRevoked{ID: id, Revoker: tx.Caller(), RevokedAt: tx.Now()})
		return nil
	})
}

func (c *Ledger) GetCredential(id uint64) (cred interfaces.Credential, err error) {
	err = c.ledger.View(func(tx *ledger.Tx) error {
		var ok bool
		if cred, ok = c.credentials[id]; !ok {
			return interfaces.NotFoundError("credential not found")
		}
		return nil
	})
	return cred, err
}

// GetStudentCredentials returns the ids of every credential issued to
// student, in issuance order.
func (c *Ledger) GetStudentCredentials(student common.Address) (ids []uint64) {
	_ = c.ledger.View(func(tx *ledger.Tx) error {
		ids = append([]uint64{}, c.byStudent[student]...)
		return nil
	})
	return ids
}

// CredentialCount returns the number of credentials ever issued.
func (c *Ledger) CredentialCount() (count uint64) {
	_ = c.ledger.View(func(tx *ledger.Tx) error {
		count = c.seq.Current()
		return nil
	})
	return count
}

func (c *Ledger) execute(ctx context.Context, caller common.Address, method string, fn func(tx *ledger.Tx) error) (*ledger.Receipt, error) {
	return c.ledger.Execute(ctx, ledger.Call{
		From:      caller,
		To:        c.Address(),
		Component: componentName,
		Method:    method,
	}, fn)
}
