package testutil

import (
	"context"
	"sync"

	"github.com/lootbox-lab/backend/pkg/api/unbelievaboat"
)

// MockDiscordEndpoint starts every member with the given roles and records
// grants in-memory.
type MockDiscordEndpoint struct {
	mutex sync.Mutex

	Roles map[string][]string

	GetMemberRolesFunc func(ctx context.Context, guildID, userID string) ([]string, error)
	GiveRoleFunc       func(ctx context.Context, guildID, userID, roleID string) error
}

func (m *MockDiscordEndpoint) GetMemberRoles(
	ctx context.Context, guildID, userID string,
) ([]string, error) {
	if m.GetMemberRolesFunc != nil {
		return m.GetMemberRolesFunc(ctx, guildID, userID)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.Roles[guildID+"/"+userID], nil
}

func (m *MockDiscordEndpoint) GiveRole(ctx context.Context, guildID, userID, roleID string) error {
	if m.GiveRoleFunc != nil {
		return m.GiveRoleFunc(ctx, guildID, userID, roleID)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Roles == nil {
		m.Roles = map[string][]string{}
	}

	key := guildID + "/" + userID
	m.Roles[key] = append(m.Roles[key], roleID)
	return nil
}

// MockLedgerEndpoint keeps balances in-memory with the same insufficient
// funds behavior as the real ledger.
type MockLedgerEndpoint struct {
	mutex sync.Mutex

	Balances map[string]int64

	GetBalanceFunc  func(ctx context.Context, guildID, userID string) (int64, error)
	EditBalanceFunc func(ctx context.Context, guildID, userID string, delta int64) (int64, error)
	DeductCostFunc  func(ctx context.Context, guildID, userID string, cost int64) (int64, error)
}

func (m *MockLedgerEndpoint) GetBalance(ctx context.Context, guildID, userID string) (int64, error) {
	if m.GetBalanceFunc != nil {
		return m.GetBalanceFunc(ctx, guildID, userID)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.Balances[guildID+"/"+userID], nil
}

func (m *MockLedgerEndpoint) EditBalance(
	ctx context.Context, guildID, userID string, delta int64,
) (int64, error) {
	if m.EditBalanceFunc != nil {
		return m.EditBalanceFunc(ctx, guildID, userID, delta)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Balances == nil {
		m.Balances = map[string]int64{}
	}

	key := guildID + "/" + userID
	m.Balances[key] += delta
	return m.Balances[key], nil
}

func (m *MockLedgerEndpoint) DeductCost(
	ctx context.Context, guildID, userID string, cost int64,
) (int64, error) {
	if m.DeductCostFunc != nil {
		return m.DeductCostFunc(ctx, guildID, userID, cost)
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	key := guildID + "/" + userID
	if m.Balances[key] < cost {
		return 0, unbelievaboat.ErrInsufficientFunds
	}

	m.Balances[key] -= cost
	return m.Balances[key], nil
}
