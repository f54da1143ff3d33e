// Package balance is the fungible-balance substrate the ledger hooks into.
package balance

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// Book holds balances and transfer allowances. It is a plain substrate: the
// core runs the ledger hooks (loss gate, decrement-until-free) before any
// balance-reducing call commits. Not safe for concurrent use.
type Book struct {
	balances   map[common.Address]uint64
	allowances map[common.Address]map[common.Address]uint64
}

// NewBook creates an empty balance book
func NewBook() *Book {
	return &Book{
		balances:   make(map[common.Address]uint64),
		allowances: make(map[common.Address]map[common.Address]uint64),
	}
}

// BalanceOf returns the user's balance
func (b *Book) BalanceOf(user common.Address) uint64 {
	return b.balances[user]
}

// Mint credits newly issued units to a user
func (b *Book) Mint(to common.Address, amount uint64) error {
	newBalance, err := domain.CheckedAdd(b.balances[to], amount)
	if err != nil {
		return err
	}
	b.balances[to] = newBalance
	return nil
}

// Burn destroys units from a user's balance
func (b *Book) Burn(from common.Address, amount uint64) error {
	return b.debit(from, amount)
}

// Transfer moves units between users. Both sides are validated before either
// balance moves; a self-transfer is a wash.
func (b *Book) Transfer(from, to common.Address, amount uint64) error {
	current := b.balances[from]
	if amount > current {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientBalance, from.Hex(), current, amount)
	}
	if from == to {
		return nil
	}
	newTo, err := domain.CheckedAdd(b.balances[to], amount)
	if err != nil {
		return err
	}
	b.balances[from] = current - amount
	b.balances[to] = newTo
	return nil
}

// Approve sets the spender's allowance over the owner's balance
func (b *Book) Approve(owner, spender common.Address, amount uint64) {
	inner, ok := b.allowances[owner]
	if !ok {
		inner = make(map[common.Address]uint64)
		b.allowances[owner] = inner
	}
	inner[spender] = amount
}

// Allowance returns the spender's remaining allowance over the owner's balance
func (b *Book) Allowance(owner, spender common.Address) uint64 {
	return b.allowances[owner][spender]
}

// TransferFrom moves units from owner to recipient on the spender's
// allowance
func (b *Book) TransferFrom(spender, from, to common.Address, amount uint64) error {
	allowed := b.Allowance(from, spender)
	if amount > allowed {
		return fmt.Errorf("%w: spender %s allowed %d, needs %d", domain.ErrInsufficientAllowance, spender.Hex(), allowed, amount)
	}
	if err := b.Transfer(from, to, amount); err != nil {
		return err
	}
	b.Approve(from, spender, allowed-amount)
	return nil
}

// Slash debits a user during loss application, bypassing all hooks
func (b *Book) Slash(user common.Address, amount uint64) error {
	return b.debit(user, amount)
}

// Restore re-installs a persisted balance at boot
func (b *Book) Restore(user common.Address, balance uint64) {
	b.balances[user] = balance
}

// Accounts enumerates every user with a recorded balance
func (b *Book) Accounts() []common.Address {
	out := make([]common.Address, 0, len(b.balances))
	for user := range b.balances {
		out = append(out, user)
	}
	return out
}

func (b *Book) debit(from common.Address, amount uint64) error {
	current := b.balances[from]
	if amount > current {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientBalance, from.Hex(), current, amount)
	}
	b.balances[from] = current - amount
	return nil
}
