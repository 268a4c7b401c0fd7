package authority

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
)

const (
	// RootAdminUserID is the reserved user id of the deploying administrator.
	RootAdminUserID = "ADMIN001"

	rootAdminName = "System Administrator"
	componentName = "authority"
)

// Authority is the Identity & Access Authority: the registry of users and
// roles every satellite ledger consults before mutating state.
type Authority struct {
	ledger  *ledger.Ledger
	log     *slog.Logger
	address common.Address
	owner   common.Address

	users       map[common.Address]interfaces.User
	userIDs     map[string]common.Address
	roleCounts  map[interfaces.Role]uint64
	accounts    []common.Address
	initialized bool
	components  interfaces.ComponentAddresses
}

var _ interfaces.AccessAuthority = (*Authority)(nil)

// Deploy creates the Authority on l. The deployer becomes the root
// administrator with user id ADMIN001 and can never be deactivated.
func Deploy(ctx context.Context, l *ledger.Ledger, deployer common.Address, log *slog.Logger) (*Authority, *ledger.Receipt, error) {
	if log == nil {
		log = slog.Default()
	}
	a := &Authority{
		ledger:     l,
		log:        log,
		owner:      deployer,
		users:      make(map[common.Address]interfaces.User),
		userIDs:    make(map[string]common.Address),
		roleCounts: make(map[interfaces.Role]uint64),
	}

	addr, receipt, err := l.Deploy(ctx, deployer, componentName, func(tx *ledger.Tx, self common.Address) error {
		a.address = self
		a.register(tx, deployer, RootAdminUserID, rootAdminName, "", interfaces.RoleAdmin)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	a.log.Info("Authority deployed", "address", addr.Hex(), "owner", deployer.Hex())
	return a, receipt, nil
}

// Address returns the Authority's component address.
func (a *Authority) Address() common.Address { return a.address }

// Owner returns the root administrator's address.
func (a *Authority) Owner() common.Address { return a.owner }

// RegisterUser registers account with an immutable role. Admin only.
func (a *Authority) RegisterUser(ctx context.Context, caller, account common.Address, userID, fullName, email string, role interfaces.Role) (*ledger.Receipt, error) {
	return a.execute(ctx, caller, "registerUser", func(tx *ledger.Tx) error {
		if err := a.CheckRole(tx, tx.Caller(), interfaces.RoleAdmin); err != nil {
			return err
		}
		if !role.Valid() {
			return interfaces.ValidationError("invalid role %d", uint8(role))
		}
		if strings.TrimSpace(userID) == "" {
			return interfaces.ValidationError("user id is required")
		}
		if _, ok := a.users[account]; ok {
			return interfaces.ValidationError("user already registered")
		}
		if _, ok := a.userIDs[userID]; ok {
			return interfaces.ValidationError("user id already taken")
		}

		a.register(tx, account, userID, fullName, email, role)
		return nil
	})
}

// UpdateUser overwrites the profile fields of a registered user. Admin only.
func (a *Authority) UpdateUser(ctx context.Context, caller, account common.Address, fullName, email string) (*ledger.Receipt, error) {
	return a.execute(ctx, caller, "updateUser", func(tx *ledger.Tx) error {
		if err := a.CheckRole(tx, tx.Caller(), interfaces.RoleAdmin); err != nil {
			return err
		}
		user, ok := a.users[account]
		if !ok {
			return interfaces.NotFoundError("user not found")
		}

		user.FullName = fullName
		user.Email = email
		ledger.Put(tx, a.users, account, user)
		tx.Emit(a.address, interfaces.UserUpdated{Account: account})
		return nil
	})
}

// DeactivateUser marks a user inactive. Admin only. The root administrator
// can never be deactivated, and an inactive user cannot be deactivated again.
func (a *Authority) DeactivateUser(ctx context.Context, caller, account common.Address) (*ledger.Receipt, error) {
	return a.execute(ctx, caller, "deactivateUser", func(tx *ledger.Tx) error {
		if err := a.CheckRole(tx, tx.Caller(), interfaces.RoleAdmin); err != nil {
			return err
		}
		user, ok := a.users[account]
		if !ok {
			return interfaces.NotFoundError("user not found")
		}
		if account == a.owner {
			return interfaces.StateError("cannot deactivate owner")
		}
		if !user.IsActive {
			return interfaces.StateError("user already inactive")
		}

		user.IsActive = false
		ledger.Put(tx, a.users, account, user)
		tx.Emit(a.address, interfaces.UserDeactivated{Account: account})
		return nil
	})
}

// Initialize binds the satellite component addresses. It succeeds exactly
// once; later calls fail and leave the first binding in place. Admin only.
func (a *Authority) Initialize(ctx context.Context, caller common.Address, components interfaces.ComponentAddresses) (*ledger.Receipt, error) {
	return a.execute(ctx, caller, "initialize", func(tx *ledger.Tx) error {
		if err := a.CheckRole(tx, tx.Caller(), interfaces.RoleAdmin); err != nil {
			return err
		}
		if a.initialized {
			return interfaces.ValidationError("already initialized")
		}

		ledger.Set(tx, &a.components, components)
		ledger.Set(tx, &a.initialized, true)
		tx.Emit(a.address, interfaces.AuthorityInitialized{Components: components})
		return nil
	})
}

// CheckRole implements interfaces.AccessAuthority.
func (a *Authority) CheckRole(tx *ledger.Tx, account common.Address, roles ...interfaces.Role) error {
	user, ok := a.users[account]
	if ok && user.IsActive {
		for _, role := range roles {
			if user.Role == role {
				return nil
			}
		}
	}

	if len(roles) == 1 {
		return interfaces.AuthorizationError("caller is not %s", strings.ToLower(roles[0].String()))
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = strings.ToLower(role.String())
	}
	return interfaces.AuthorizationError("caller is not one of %s", strings.Join(names, ", "))
}

// Recognizes implements interfaces.AccessAuthority.
func (a *Authority) Recognizes(tx *ledger.Tx, component common.Address) bool {
	return a.initialized && a.components.Contains(component)
}

// GetUser returns the user registered at account.
func (a *Authority) GetUser(account common.Address) (user interfaces.User, err error) {
	err = a.ledger.View(func(tx *ledger.Tx) error {
		var ok bool
		if user, ok = a.users[account]; !ok {
			return interfaces.NotFoundError("user not found")
		}
		return nil
	})
	return user, err
}

// GetUserRole returns the role of account, RoleNone if unregistered.
// Deactivated users keep their role.
func (a *Authority) GetUserRole(account common.Address) (role interfaces.Role) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		role = a.users[account].Role
		return nil
	})
	return role
}

// HasRole reports whether account is an active user with the given role.
func (a *Authority) HasRole(account common.Address, role interfaces.Role) (has bool) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		has = a.CheckRole(tx, account, role) == nil
		return nil
	})
	return has
}

// GetRoleCount returns how many users were ever registered with role.
// The counter is not decremented on deactivation.
func (a *Authority) GetRoleCount(role interfaces.Role) (count uint64) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		count = a.roleCounts[role]
		return nil
	})
	return count
}

// TotalUsers returns the number of registered users, including the root
// administrator and deactivated users.
func (a *Authority) TotalUsers() (total uint64) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		total = uint64(len(a.accounts))
		return nil
	})
	return total
}

// UserAt returns the address registered at position i, in registration
// order.
func (a *Authority) UserAt(i uint64) (account common.Address, err error) {
	err = a.ledger.View(func(tx *ledger.Tx) error {
		if i >= uint64(len(a.accounts)) {
			return interfaces.NotFoundError("no user at index %d", i)
		}
		account = a.accounts[i]
		return nil
	})
	return account, err
}

// ListUsers returns all users in registration order.
func (a *Authority) ListUsers() (users []interfaces.User) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		users = make([]interfaces.User, 0, len(a.accounts))
		for _, account := range a.accounts {
			users = append(users, a.users[account])
		}
		return nil
	})
	return users
}

// Initialized reports whether the satellite addresses have been bound.
func (a *Authority) Initialized() (initialized bool) {
	_ = a.ledger.View(func(tx *ledger.Tx) error {
		initialized = a.initialized
		return nil
	})
	return initialized
}

// Components returns the bound satellite addresses.
func (a *Authority) Components() (components interfaces.ComponentAddresses, err error) {
	err = a.ledger.View(func(tx *ledger.Tx) error {
		if !a.initialized {
			return interfaces.StateError("not initialized")
		}
		components = a.components
		return nil
	})
	return components, err
}

func (a *Authority) register(tx *ledger.Tx, account common.Address, userID, fullName, email string, role interfaces.Role) {
	ledger.Put(tx, a.users, account, interfaces.User{
		Address:   account,
		UserID:    userID,
		FullName:  fullName,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: tx.Now(),
	})
	ledger.Put(tx, a.userIDs, userID, account)
	ledger.Put(tx, a.roleCounts, role, a.roleCounts[role]+1)
	ledger.Set(tx, &a.accounts, append(a.accounts, account))
	tx.Emit(a.address, interfaces.UserRegistered{Account: account, UserID: userID, Role: role})
}

func (a *Authority) execute(ctx context.Context, caller common.Address, method string, fn func(tx *ledger.Tx) error) (*ledger.Receipt, error) {
	return a.ledger.Execute(ctx, ledger.Call{
		From:      caller,
		To:        a.address,
		Component: componentName,
		Method:    method,
	}, fn)
}
