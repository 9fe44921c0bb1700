package factory

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// DefaultInitCodeHash is the canonical pair code hash used for address
// derivation when the deployment does not configure its own.
var DefaultInitCodeHash = common.HexToHash("0x96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f")

// SortAssets orders two asset addresses by their byte representation.
func SortAssets(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PairAddress derives the deterministic pair address for an asset pair:
//
//	keccak256(0xff ++ deployer ++ keccak256(asset0 ++ asset1) ++ codeHash)[12:]
//
// The assets are sorted first, so argument order does not matter. The
// derivation is pure; it does not require the pair to exist.
func PairAddress(deployer, assetA, assetB common.Address, codeHash common.Hash) common.Address {
	asset0, asset1 := SortAssets(assetA, assetB)
	salt := crypto.Keccak256(asset0.Bytes(), asset1.Bytes())

	buf := make([]byte, 0, 85)
	buf = append(buf, 0xff)
	buf = append(buf, deployer.Bytes()...)
	buf = append(buf, salt...)
	buf = append(buf, codeHash.Bytes()...)
	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}
