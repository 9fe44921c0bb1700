package assets

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa11ce")
	bob   = common.HexToAddress("0xb0b")
)

func TestRegistryCreate(t *testing.T) {
	r := NewRegistry()

	weth, err := r.Create("WETH")
	require.NoError(t, err)
	require.NotEqual(t, common.Address{}, weth.Address())
	require.Equal(t, "WETH", weth.Symbol())

	_, err = r.Create("WETH")
	require.ErrorIs(t, err, ErrAssetExists)

	_, err = r.Create("")
	require.ErrorIs(t, err, ErrInvalidSymbol)
	_, err = r.Create("   ")
	require.ErrorIs(t, err, ErrInvalidSymbol)

	got, ok := r.Get(weth.Address())
	require.True(t, ok)
	require.Same(t, weth, got)

	got, ok = r.BySymbol("WETH")
	require.True(t, ok)
	require.Same(t, weth, got)

	_, ok = r.Get(alice)
	require.False(t, ok)
	require.Equal(t, 1, r.Count())
}

func TestAddressDerivationIsStable(t *testing.T) {
	a, err := NewRegistry().Create("USDC")
	require.NoError(t, err)
	b, err := NewRegistry().Create("USDC")
	require.NoError(t, err)
	require.Equal(t, a.Address(), b.Address())

	c, err := NewRegistry().Create("DAI")
	require.NoError(t, err)
	require.NotEqual(t, a.Address(), c.Address())
}

func TestMintAndTransfer(t *testing.T) {
	r := NewRegistry()
	asset, err := r.Create("DAI")
	require.NoError(t, err)

	require.NoError(t, asset.Mint(alice, uint256.NewInt(1000)))
	require.Equal(t, uint256.NewInt(1000), asset.TotalSupply())
	require.Equal(t, uint256.NewInt(1000), asset.BalanceOf(alice))

	data, err := asset.Transfer(alice, bob, uint256.NewInt(400))
	require.NoError(t, err)
	require.Nil(t, data)
	require.Equal(t, uint256.NewInt(600), asset.BalanceOf(alice))
	require.Equal(t, uint256.NewInt(400), asset.BalanceOf(bob))

	_, err = asset.Transfer(alice, bob, uint256.NewInt(601))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	_, err = asset.Transfer(common.HexToAddress("0xdead"), bob, uint256.NewInt(1))
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestMintSupplyOverflow(t *testing.T) {
	r := NewRegistry()
	asset, err := r.Create("MAX")
	require.NoError(t, err)

	max := new(uint256.Int).Not(uint256.NewInt(0))
	require.NoError(t, asset.Mint(alice, max))
	require.ErrorIs(t, asset.Mint(bob, uint256.NewInt(1)), ErrSupplyOverflow)
	require.Equal(t, max, asset.TotalSupply())
}
