package pair

import "errors"

var (
	ErrOverflow           = errors.New("balance exceeds reserve width")
	ErrReentrancy         = errors.New("reentrant call")
	ErrForbiddenCaller    = errors.New("forbidden caller")
	ErrNotInitialized     = errors.New("pair not initialized")
	ErrAlreadyInitialized = errors.New("pair already initialized")

	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientShares          = errors.New("insufficient share balance")

	ErrNoOutputRequested     = errors.New("no output requested")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrInvalidRecipient      = errors.New("invalid recipient")
	ErrNoInputProvided       = errors.New("no input provided")
	ErrInvariantViolation    = errors.New("constant product invariant violated")

	ErrAssetTransferFailed = errors.New("asset transfer failed")
)
