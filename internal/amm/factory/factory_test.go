package factory

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"swapforge/internal/infrastructure/assets"
)

var (
	deployer  = common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	usdc      = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	weth      = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	feeSetter = common.HexToAddress("0x4001")
	provider  = common.HexToAddress("0x4002")
)

type zeroAsset struct{}

func (zeroAsset) Address() common.Address               { return common.Address{} }
func (zeroAsset) BalanceOf(common.Address) *uint256.Int { return uint256.NewInt(0) }
func (zeroAsset) Transfer(common.Address, common.Address, *uint256.Int) ([]byte, error) {
	return nil, nil
}

func TestPairAddressDerivation(t *testing.T) {
	want := common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc")

	got := PairAddress(deployer, usdc, weth, DefaultInitCodeHash)
	require.Equal(t, want, got)

	// Argument order must not matter.
	got = PairAddress(deployer, weth, usdc, DefaultInitCodeHash)
	require.Equal(t, want, got)
}

func TestSortAssets(t *testing.T) {
	a0, a1 := SortAssets(weth, usdc)
	require.Equal(t, usdc, a0)
	require.Equal(t, weth, a1)

	a0, a1 = SortAssets(usdc, weth)
	require.Equal(t, usdc, a0)
	require.Equal(t, weth, a1)
}

func TestCreatePair(t *testing.T) {
	reg := assets.NewRegistry()
	assetA, err := reg.Create("WETH")
	require.NoError(t, err)
	assetB, err := reg.Create("USDC")
	require.NoError(t, err)

	f := NewFactory(deployer, common.Address{}, feeSetter, common.Hash{}, nil)
	require.Equal(t, DefaultInitCodeHash, f.CodeHash())

	p, err := f.CreatePair(assetA, assetB)
	require.NoError(t, err)

	wantAddr := PairAddress(deployer, assetA.Address(), assetB.Address(), DefaultInitCodeHash)
	require.Equal(t, wantAddr, p.Address())

	// Assets are stored in canonical order regardless of call order.
	asset0, asset1 := SortAssets(assetA.Address(), assetB.Address())
	require.Equal(t, asset0, p.AssetA().Address())
	require.Equal(t, asset1, p.AssetB().Address())

	got, ok := f.Pair(assetA.Address(), assetB.Address())
	require.True(t, ok)
	require.Same(t, p, got)
	got, ok = f.Pair(assetB.Address(), assetA.Address())
	require.True(t, ok)
	require.Same(t, p, got)

	got, ok = f.PairByAddress(p.Address())
	require.True(t, ok)
	require.Same(t, p, got)

	got, ok = f.PairAt(0)
	require.True(t, ok)
	require.Same(t, p, got)
	_, ok = f.PairAt(1)
	require.False(t, ok)

	require.Equal(t, 1, f.PairCount())
	all := f.AllPairs()
	require.Len(t, all, 1)
	require.Same(t, p, all[0])
}

func TestCreatePairRejections(t *testing.T) {
	reg := assets.NewRegistry()
	assetA, err := reg.Create("WETH")
	require.NoError(t, err)
	assetB, err := reg.Create("USDC")
	require.NoError(t, err)

	f := NewFactory(deployer, common.Address{}, feeSetter, common.Hash{}, nil)

	_, err = f.CreatePair(assetA, assetA)
	require.ErrorIs(t, err, ErrIdenticalAssets)

	_, err = f.CreatePair(assetA, zeroAsset{})
	require.ErrorIs(t, err, ErrZeroAsset)

	_, err = f.CreatePair(assetA, assetB)
	require.NoError(t, err)
	_, err = f.CreatePair(assetA, assetB)
	require.ErrorIs(t, err, ErrPairExists)
	_, err = f.CreatePair(assetB, assetA)
	require.ErrorIs(t, err, ErrPairExists)
}

func TestFeeGovernance(t *testing.T) {
	f := NewFactory(deployer, common.Address{}, feeSetter, common.Hash{}, nil)
	require.Equal(t, common.Address{}, f.FeeTo())
	require.Equal(t, feeSetter, f.FeeSetter())

	outsider := common.HexToAddress("0x4003")
	recipient := common.HexToAddress("0x4004")

	require.ErrorIs(t, f.SetFeeTo(outsider, recipient), ErrForbiddenCaller)
	require.NoError(t, f.SetFeeTo(feeSetter, recipient))
	require.Equal(t, recipient, f.FeeTo())

	require.ErrorIs(t, f.SetFeeSetter(outsider, outsider), ErrForbiddenCaller)
	require.NoError(t, f.SetFeeSetter(feeSetter, outsider))
	require.Equal(t, outsider, f.FeeSetter())

	// Governance moved; the old setter is locked out.
	require.ErrorIs(t, f.SetFeeTo(feeSetter, common.Address{}), ErrForbiddenCaller)
	require.NoError(t, f.SetFeeTo(outsider, common.Address{}))
	require.Equal(t, common.Address{}, f.FeeTo())
}

func TestCreatedPairReadsFeeSwitchFromFactory(t *testing.T) {
	reg := assets.NewRegistry()
	assetA, err := reg.Create("WETH")
	require.NoError(t, err)
	assetB, err := reg.Create("USDC")
	require.NoError(t, err)

	recipient := common.HexToAddress("0x4004")
	f := NewFactory(deployer, recipient, feeSetter, common.Hash{}, nil)

	p, err := f.CreatePair(assetA, assetB)
	require.NoError(t, err)

	amount := uint256.NewInt(1_000_000)
	require.NoError(t, assetA.Mint(p.Address(), amount))
	require.NoError(t, assetB.Mint(p.Address(), amount))
	_, err = p.Mint(provider)
	require.NoError(t, err)

	// The fee switch was on, so the pair recorded the invariant.
	require.Equal(t, new(uint256.Int).Mul(amount, amount), p.KLast())

	// Disabling it through the factory takes effect on the next
	// liquidity event without touching the pair.
	require.NoError(t, f.SetFeeTo(feeSetter, common.Address{}))
	require.NoError(t, p.TransferShares(provider, p.Address(), uint256.NewInt(1000)))
	_, _, err = p.Burn(provider)
	require.NoError(t, err)
	require.True(t, p.KLast().IsZero())
}
