package assets

import "errors"

var (
	ErrInvalidSymbol       = errors.New("invalid asset symbol")
	ErrAssetExists         = errors.New("asset already exists")
	ErrInsufficientBalance = errors.New("insufficient asset balance")
	ErrSupplyOverflow      = errors.New("asset supply overflow")
)
