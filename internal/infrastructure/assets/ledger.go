package assets

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Ledger is a fungible asset: per-holder balances and a total supply
// under one mutex. Successful transfers return no data, which the
// engine's tolerant decoding accepts alongside the explicit true word
// some assets produce.
type Ledger struct {
	address common.Address
	symbol  string

	mu          sync.RWMutex
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
}

// deriveAddress maps a symbol to a stable asset address.
func deriveAddress(symbol string) common.Address {
	h := crypto.Keccak256([]byte("swapforge/asset/"), []byte(symbol))
	return common.BytesToAddress(h[12:])
}

func newLedger(symbol string) *Ledger {
	return &Ledger{
		address:     deriveAddress(symbol),
		symbol:      symbol,
		totalSupply: uint256.NewInt(0),
		balances:    make(map[common.Address]*uint256.Int),
	}
}

func (l *Ledger) Address() common.Address { return l.address }

func (l *Ledger) Symbol() string { return l.symbol }

func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply.Clone()
}

func (l *Ledger) BalanceOf(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[holder]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

// Transfer moves amount between holders. It returns no data on success.
func (l *Ledger) Transfer(from, to common.Address, amount *uint256.Int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.balances[from]
	if !ok || src.Lt(amount) {
		return nil, ErrInsufficientBalance
	}
	dst, ok := l.balances[to]
	if !ok {
		dst = uint256.NewInt(0)
		l.balances[to] = dst
	}
	src.Sub(src, amount)
	dst.Add(dst, amount)
	return nil, nil
}

// Mint issues new supply to the holder.
func (l *Ledger) Mint(to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var next uint256.Int
	if _, overflow := next.AddOverflow(l.totalSupply, amount); overflow {
		return ErrSupplyOverflow
	}
	l.totalSupply.Set(&next)

	b, ok := l.balances[to]
	if !ok {
		b = uint256.NewInt(0)
		l.balances[to] = b
	}
	b.Add(b, amount)
	return nil
}
