package authority

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/stretchr/testify/mock"
)

// MockAuthority is a mock implementation of interfaces.AccessAuthority for
// testing satellite ledgers in isolation.
type MockAuthority struct {
	mock.Mock
	address common.Address
}

func NewMockAuthority(address common.Address) *MockAuthority {
	return &MockAuthority{address: address}
}

func (m *MockAuthority) Address() common.Address {
	return m.address
}

func (m *MockAuthority) CheckRole(tx *ledger.Tx, account common.Address, roles ...interfaces.Role) error {
	args := m.Called(account, roles)
	return args.Error(0)
}

func (m *MockAuthority) Recognizes(tx *ledger.Tx, component common.Address) bool {
	args := m.Called(component)
	return args.Bool(0)
}
