package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Asset is the transfer surface the pair requires of a fungible asset.
// Transfer returns the raw return data, if any; the pair applies
// tolerant decoding to it (see safeTransfer).
type Asset interface {
	Address() common.Address
	BalanceOf(holder common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) ([]byte, error)
}

// FeeSource reports the protocol fee recipient. The zero address
// disables the fee.
type FeeSource interface {
	FeeTo() common.Address
}

// Borrower is the flash-swap callback capability. It runs after the
// requested outputs have been transferred to the recipient and before
// the pair re-checks its invariant; the implementation must return
// enough of either asset to the pair within the call. initiator is the
// recipient the outputs were sent to.
type Borrower interface {
	OnFlashSwap(initiator common.Address, amountA, amountB *uint256.Int, data []byte) error
}
