package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/ruteri/university-ledger/api"
	"github.com/ruteri/university-ledger/api/registryhandler"
	"github.com/ruteri/university-ledger/cmd/flags"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var flagUsersFile = &cli.StringFlag{
	Name:     "users-file",
	Required: true,
	Usage:    "YAML file with the users to register",
}

var flagCredentialID = &cli.Uint64Flag{
	Name:     "id",
	Required: true,
	Usage:    "credential id",
}

func main() {
	app := &cli.App{
		Name:  "ledger-operator",
		Usage: "Operate a running university ledger registry",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.CallerFlag,
			flags.LogJsonFlag,
			flags.LogDebugFlag,
			flags.LogUidFlag,
			flags.LogServiceFlagFn("ledger-operator"),
		},
		Commands: []*cli.Command{
			{
				Name:  "deployment",
				Usage: "show the authority and bound component addresses",
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return printDeployment(cCtx.Context, client, cCtx.App.Writer)
				},
			},
			{
				Name:  "seed",
				Usage: "register users from a YAML file",
				Flags: []cli.Flag{flagUsersFile},
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					f, err := os.Open(cCtx.String(flagUsersFile.Name))
					if err != nil {
						return fmt.Errorf("could not open users file: %w", err)
					}
					defer f.Close()

					users, err := LoadSeedUsers(f)
					if err != nil {
						return err
					}
					report := SeedUsers(cCtx.Context, client, users, flags.SetupLogger(cCtx))
					fmt.Fprintf(cCtx.App.Writer, "registered %d of %d users\n", report.Registered, len(users))
					if len(report.Failed) > 0 {
						for _, fail := range report.Failed {
							fmt.Fprintf(cCtx.App.Writer, "  %s (%s): %v\n", fail.UserID, fail.Address.Hex(), fail.Err)
						}
						return fmt.Errorf("%d users failed to register", len(report.Failed))
					}
					return nil
				},
			},
			{
				Name:  "list-users",
				Usage: "list registered users in registration order",
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					return printUsers(cCtx.Context, client, cCtx.App.Writer)
				},
			},
			{
				Name:  "verify-credential",
				Usage: "check whether a credential is currently valid",
				Flags: []cli.Flag{flagCredentialID},
				Action: func(cCtx *cli.Context) error {
					client, err := newClient(cCtx)
					if err != nil {
						return err
					}
					id := cCtx.Uint64(flagCredentialID.Name)
					valid, err := client.VerifyCredential(cCtx.Context, id)
					if err != nil {
						return err
					}
					fmt.Fprintf(cCtx.App.Writer, "credential %d valid: %t\n", id, valid)
					return nil
				},
			},
			watchCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) (*registryhandler.Client, error) {
	var caller common.Address
	if s := cCtx.String(flags.CallerFlag.Name); s != "" {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("invalid caller address %q", s)
		}
		caller = common.HexToAddress(s)
	}
	return registryhandler.NewClient(cCtx.String(flags.ServerAddrFlag.Name), caller), nil
}

// SeedUser is one entry of the seed file:
//
//	users:
//	  - address: "0x7099...79C8"
//	    user_id: LEC001
//	    full_name: Dr. Lecturer
//	    email: lecturer@example.edu
//	    role: LECTURER
type SeedUser struct {
	Address  string `yaml:"address"`
	UserID   string `yaml:"user_id"`
	FullName string `yaml:"full_name"`
	Email    string `yaml:"email"`
	Role     string `yaml:"role"`
}

type seedFile struct {
	Users []SeedUser `yaml:"users"`
}

func LoadSeedUsers(r io.Reader) ([]SeedUser, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("could not parse users file: %w", err)
	}
	return f.Users, nil
}

type SeedFailure struct {
	Address common.Address
	UserID  string
	Err     error
}

type SeedReport struct {
	BatchID    string
	Registered int
	Failed     []SeedFailure
}

// SeedUsers registers every user, continuing past individual failures.
func SeedUsers(ctx context.Context, client *registryhandler.Client, users []SeedUser, log *slog.Logger) SeedReport {
	report := SeedReport{BatchID: uuid.NewString()}
	log = log.With("batch", report.BatchID)

	for _, u := range users {
		req, err := u.request()
		if err == nil {
			_, err = client.RegisterUser(ctx, req)
		}
		if err != nil {
			log.Warn("User not registered", "user_id", u.UserID, "address", u.Address, "err", err)
			report.Failed = append(report.Failed, SeedFailure{Address: common.HexToAddress(u.Address), UserID: u.UserID, Err: err})
			continue
		}
		log.Info("User registered", "user_id", u.UserID, "address", req.Address.Hex(), "role", req.Role.String())
		report.Registered++
	}
	return report
}

func (u SeedUser) request() (api.RegisterUserRequest, error) {
	if !common.IsHexAddress(u.Address) {
		return api.RegisterUserRequest{}, fmt.Errorf("invalid address %q", u.Address)
	}
	role, err := interfaces.ParseRole(u.Role)
	if err != nil {
		return api.RegisterUserRequest{}, err
	}
	return api.RegisterUserRequest{
		Address:  common.HexToAddress(u.Address),
		UserID:   u.UserID,
		FullName: u.FullName,
		Email:    u.Email,
		Role:     role,
	}, nil
}

func printDeployment(ctx context.Context, client *registryhandler.Client, w io.Writer) error {
	resp, err := client.Authority(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "authority:  %s\n", resp.Address.Hex())
	fmt.Fprintf(w, "owner:      %s\n", resp.Owner.Hex())
	fmt.Fprintf(w, "users:      %d\n", resp.TotalUsers)
	fmt.Fprintf(w, "height:     %d\n", resp.Height)
	if resp.Components == nil {
		fmt.Fprintln(w, "components: not initialized")
		return nil
	}
	fmt.Fprintf(w, "credential: %s\n", resp.Components.Credential.Hex())
	fmt.Fprintf(w, "attendance: %s\n", resp.Components.Attendance.Hex())
	fmt.Fprintf(w, "grade:      %s\n", resp.Components.Grade.Hex())
	fmt.Fprintf(w, "class:      %s\n", resp.Components.Class.Hex())
	return nil
}

func printUsers(ctx context.Context, client *registryhandler.Client, w io.Writer) error {
	users, err := client.ListUsers(ctx)
	if err != nil {
		return err
	}
	for i, u := range users {
		status := "active"
		if !u.IsActive {
			status = "inactive"
		}
		fmt.Fprintf(w, "%d. %s %-10s %-8s %s <%s> %s\n", i+1, u.Address.Hex(), u.UserID, u.Role, u.FullName, u.Email, status)
	}
	return nil
}
