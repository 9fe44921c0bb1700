package factory

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"swapforge/internal/amm/pair"
)

// Factory creates and indexes pairs at deterministic addresses and holds
// the protocol fee switch. It is the FeeSource of every pair it creates:
// pairs read the current fee recipient through it at each liquidity
// event, so flipping the switch takes effect everywhere at once.
type Factory struct {
	identity common.Address
	codeHash common.Hash
	sink     pair.Sink

	mu        sync.RWMutex
	feeTo     common.Address
	feeSetter common.Address
	pairs     map[[2]common.Address]*pair.Pair
	byAddress map[common.Address]*pair.Pair
	all       []*pair.Pair
}

// NewFactory creates a factory whose identity feeds pair address
// derivation. A zero codeHash falls back to DefaultInitCodeHash.
func NewFactory(identity common.Address, feeTo, feeSetter common.Address, codeHash common.Hash, sink pair.Sink) *Factory {
	if codeHash == (common.Hash{}) {
		codeHash = DefaultInitCodeHash
	}
	return &Factory{
		identity:  identity,
		codeHash:  codeHash,
		sink:      sink,
		feeTo:     feeTo,
		feeSetter: feeSetter,
		pairs:     make(map[[2]common.Address]*pair.Pair),
		byAddress: make(map[common.Address]*pair.Pair),
	}
}

func (f *Factory) Identity() common.Address { return f.identity }

func (f *Factory) CodeHash() common.Hash { return f.codeHash }

// CreatePair registers a new pair for the two assets. Creation is
// permissionless; there is at most one pair per unordered asset pair.
func (f *Factory) CreatePair(assetA, assetB pair.Asset) (*pair.Pair, error) {
	addrA, addrB := assetA.Address(), assetB.Address()
	if addrA == addrB {
		return nil, ErrIdenticalAssets
	}
	if addrA == (common.Address{}) || addrB == (common.Address{}) {
		return nil, ErrZeroAsset
	}

	asset0, asset1 := assetA, assetB
	if a0, _ := SortAssets(addrA, addrB); a0 != addrA {
		asset0, asset1 = assetB, assetA
	}
	key := [2]common.Address{asset0.Address(), asset1.Address()}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.pairs[key]; exists {
		return nil, ErrPairExists
	}

	address := PairAddress(f.identity, key[0], key[1], f.codeHash)
	p := pair.New(address, f.identity, f, f.sink)
	if err := p.Initialize(f.identity, asset0, asset1); err != nil {
		return nil, err
	}

	f.pairs[key] = p
	f.byAddress[address] = p
	f.all = append(f.all, p)
	return p, nil
}

// Pair looks up the pair for two assets in either order.
func (f *Factory) Pair(assetA, assetB common.Address) (*pair.Pair, bool) {
	asset0, asset1 := SortAssets(assetA, assetB)

	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.pairs[[2]common.Address{asset0, asset1}]
	return p, ok
}

// PairByAddress looks up a pair by its derived address.
func (f *Factory) PairByAddress(address common.Address) (*pair.Pair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.byAddress[address]
	return p, ok
}

// PairAt returns the pair at the given creation index.
func (f *Factory) PairAt(index int) (*pair.Pair, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if index < 0 || index >= len(f.all) {
		return nil, false
	}
	return f.all[index], true
}

// AllPairs returns the pairs in creation order.
func (f *Factory) AllPairs() []*pair.Pair {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*pair.Pair, len(f.all))
	copy(out, f.all)
	return out
}

func (f *Factory) PairCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.all)
}

// FeeTo returns the protocol fee recipient. The zero address means the
// fee is disabled.
func (f *Factory) FeeTo() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.feeTo
}

func (f *Factory) FeeSetter() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.feeSetter
}

// SetFeeTo changes the protocol fee recipient. Only the fee setter may
// call it; the zero address disables the fee.
func (f *Factory) SetFeeTo(caller, recipient common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.feeSetter {
		return ErrForbiddenCaller
	}
	f.feeTo = recipient
	return nil
}

// SetFeeSetter hands fee governance to a new identity.
func (f *Factory) SetFeeSetter(caller, setter common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.feeSetter {
		return ErrForbiddenCaller
	}
	f.feeSetter = setter
	return nil
}
