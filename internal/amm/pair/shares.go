package pair

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// shareLedger is the fungible accounting of liquidity shares. The sum of
// all balances equals the total supply at all times. Mutations happen
// only inside pair operations while the latch is held; the mutex covers
// concurrent readers.
type shareLedger struct {
	mu          sync.RWMutex
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
}

func newShareLedger() *shareLedger {
	return &shareLedger{
		totalSupply: uint256.NewInt(0),
		balances:    make(map[common.Address]*uint256.Int),
	}
}

func (l *shareLedger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply.Clone()
}

func (l *shareLedger) BalanceOf(holder common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[holder]; ok {
		return b.Clone()
	}
	return uint256.NewInt(0)
}

func (l *shareLedger) mint(to common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.balances[to]
	if !ok {
		b = uint256.NewInt(0)
		l.balances[to] = b
	}
	b.Add(b, amount)
	l.totalSupply.Add(l.totalSupply, amount)
}

func (l *shareLedger) burn(from common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.balances[from]
	if !ok || b.Lt(amount) {
		return ErrInsufficientShares
	}
	b.Sub(b, amount)
	l.totalSupply.Sub(l.totalSupply, amount)
	return nil
}

func (l *shareLedger) transfer(from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	src, ok := l.balances[from]
	if !ok || src.Lt(amount) {
		return ErrInsufficientShares
	}
	dst, ok := l.balances[to]
	if !ok {
		dst = uint256.NewInt(0)
		l.balances[to] = dst
	}
	src.Sub(src, amount)
	dst.Add(dst, amount)
	return nil
}
