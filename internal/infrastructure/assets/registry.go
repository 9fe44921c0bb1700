package assets

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

const maxSymbolLength = 32

// Registry issues asset ledgers with unique symbols and stable derived
// addresses.
type Registry struct {
	mu        sync.RWMutex
	bySymbol  map[string]*Ledger
	byAddress map[common.Address]*Ledger
}

func NewRegistry() *Registry {
	return &Registry{
		bySymbol:  make(map[string]*Ledger),
		byAddress: make(map[common.Address]*Ledger),
	}
}

// Create registers a new asset under the symbol.
func (r *Registry) Create(symbol string) (*Ledger, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" || len(symbol) > maxSymbolLength {
		return nil, ErrInvalidSymbol
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySymbol[symbol]; exists {
		return nil, ErrAssetExists
	}
	l := newLedger(symbol)
	if _, exists := r.byAddress[l.address]; exists {
		return nil, ErrAssetExists
	}
	r.bySymbol[symbol] = l
	r.byAddress[l.address] = l
	return l, nil
}

// Get looks up an asset by its address.
func (r *Registry) Get(address common.Address) (*Ledger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byAddress[address]
	return l, ok
}

// BySymbol looks up an asset by its symbol.
func (r *Registry) BySymbol(symbol string) (*Ledger, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.bySymbol[symbol]
	return l, ok
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySymbol)
}
