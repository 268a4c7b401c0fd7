package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/attendance"
	"github.com/ruteri/university-ledger/authority"
	"github.com/ruteri/university-ledger/credential"
	"github.com/ruteri/university-ledger/grade"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

// Options configures a suite deployment.
type Options struct {
	// Deployer becomes the authority owner and root administrator.
	Deployer common.Address

	Credential credential.Config
	Attendance attendance.Config
	Grade      grade.Config

	// ClassAddress is recorded as the class-management component. When zero,
	// a placeholder address is reserved on the ledger for it.
	ClassAddress common.Address
}

// Suite is a deployed and initialized set of registry components.
type Suite struct {
	Ledger      *ledger.Ledger
	Authority   *authority.Authority
	Credentials *credential.Ledger
	Attendance  *attendance.Ledger
	Grades      *grade.Ledger
}

// Deploy deploys every component and initializes the authority with their
// addresses. Any failure aborts the deployment; components deployed before
// the failure remain on the ledger but the authority stays uninitialized.
func Deploy(ctx context.Context, l *ledger.Ledger, opts Options, log *slog.Logger) (*Suite, error) {
	if log == nil {
		log = slog.Default()
	}
	if opts.Deployer == (common.Address{}) {
		return nil, interfaces.ValidationError("deployer address required")
	}

	auth, _, err := authority.Deploy(ctx, l, opts.Deployer, log)
	if err != nil {
		return nil, fmt.Errorf("deploying authority: %w", err)
	}
	creds, _, err := credential.Deploy(ctx, l, opts.Deployer, auth, opts.Credential, log)
	if err != nil {
		return nil, fmt.Errorf("deploying credential ledger: %w", err)
	}
	att, _, err := attendance.Deploy(ctx, l, opts.Deployer, auth, opts.Attendance, log)
	if err != nil {
		return nil, fmt.Errorf("deploying attendance ledger: %w", err)
	}
	grades, _, err := grade.Deploy(ctx, l, opts.Deployer, auth, opts.Grade, log)
	if err != nil {
		return nil, fmt.Errorf("deploying grade ledger: %w", err)
	}

	class := opts.ClassAddress
	if class == (common.Address{}) {
		if class, _, err = l.Deploy(ctx, opts.Deployer, "class", nil); err != nil {
			return nil, fmt.Errorf("reserving class address: %w", err)
		}
	}

	components := interfaces.ComponentAddresses{
		Credential: creds.Address(),
		Attendance: att.Address(),
		Grade:      grades.Address(),
		Class:      class,
	}
	if _, err := auth.Initialize(ctx, opts.Deployer, components); err != nil {
		return nil, fmt.Errorf("initializing authority: %w", err)
	}

	log.Info("Registry deployed",
		"authority", auth.Address().Hex(),
		"credential", components.Credential.Hex(),
		"attendance", components.Attendance.Hex(),
		"grade", components.Grade.Hex(),
		"class", components.Class.Hex())

	return &Suite{
		Ledger:      l,
		Authority:   auth,
		Credentials: creds,
		Attendance:  att,
		Grades:      grades,
	}, nil
}

// Components returns the addresses recorded with the authority.
func (s *Suite) Components() interfaces.ComponentAddresses {
	components, _ := s.Authority.Components()
	return components
}
