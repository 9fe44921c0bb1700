package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SyncEvent is emitted after every reserve synchronization.
type SyncEvent struct {
	Pair     common.Address
	ReserveA *uint256.Int
	ReserveB *uint256.Int
}

// MintEvent is emitted when liquidity shares are issued.
type MintEvent struct {
	Pair    common.Address
	To      common.Address
	AmountA *uint256.Int
	AmountB *uint256.Int
	Shares  *uint256.Int
}

// BurnEvent is emitted when liquidity shares are redeemed.
type BurnEvent struct {
	Pair    common.Address
	To      common.Address
	AmountA *uint256.Int
	AmountB *uint256.Int
	Shares  *uint256.Int
}

// SwapEvent is emitted after a successful swap, with the implied input
// amounts and the requested outputs.
type SwapEvent struct {
	Pair       common.Address
	AmountAIn  *uint256.Int
	AmountBIn  *uint256.Int
	AmountAOut *uint256.Int
	AmountBOut *uint256.Int
	To         common.Address
}

// Sink receives pair events. Implementations must not call back into
// the emitting pair; events fire while its latch is held.
type Sink interface {
	PairSynced(SyncEvent)
	LiquidityMinted(MintEvent)
	LiquidityBurned(BurnEvent)
	Swapped(SwapEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) PairSynced(SyncEvent)      {}
func (NopSink) LiquidityMinted(MintEvent) {}
func (NopSink) LiquidityBurned(BurnEvent) {}
func (NopSink) Swapped(SwapEvent)         {}
