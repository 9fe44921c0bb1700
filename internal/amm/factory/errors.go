package factory

import "errors"

var (
	ErrIdenticalAssets = errors.New("identical assets")
	ErrZeroAsset       = errors.New("zero address asset")
	ErrPairExists      = errors.New("pair already exists")
	ErrForbiddenCaller = errors.New("caller is not the fee setter")
)
