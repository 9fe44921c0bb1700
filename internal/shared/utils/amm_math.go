package utils

import (
	"github.com/holiman/uint256"
)

var (
	FeeBasisPoints1000 = uint256.NewInt(1000)
	FeeBasisPoints997  = uint256.NewInt(997) // 1000 - 3 (0.3% fee)
	FeeBasisPoints3    = uint256.NewInt(3)

	Mask112 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 112), 1)
)

// Isqrt computes the floor integer square root of y by Babylonian
// iteration and stores it in result. Inputs of 1..3 yield 1, zero yields
// zero.
func Isqrt(y, result *uint256.Int) {
	if y.LtUint64(4) {
		if y.IsZero() {
			result.Clear()
		} else {
			result.SetOne()
		}
		return
	}

	var x, z, t uint256.Int
	z.Set(y)
	x.Rsh(y, 1)
	x.AddUint64(&x, 1)
	for x.Lt(&z) {
		z.Set(&x)
		t.Div(y, &x)
		t.Add(&t, &x)
		x.Rsh(&t, 1)
	}
	result.Set(&z)
}

// MinUint256 returns the smaller of a and b. The result aliases one of
// the inputs.
func MinUint256(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}

// CalculateAmountOut computes the output amount a constant product pair
// pays for amountIn under the 0.3% fee:
//
//	amountOut = (amountIn * 997 * reserveOut) / (reserveIn * 1000 + amountIn * 997)
//
// Floor division, matching the pair invariant check. Callers bound all
// inputs to 112 bits, so intermediates cannot wrap 256 bits. Uses
// scratch variables and writes into result without allocating.
func CalculateAmountOut(amountIn, reserveIn, reserveOut, result *uint256.Int) {
	var t1, t2 uint256.Int

	t1.Mul(amountIn, FeeBasisPoints997)

	result.Mul(reserveIn, FeeBasisPoints1000)
	t2.Add(result, &t1)

	result.Mul(&t1, reserveOut)
	result.Div(result, &t2)
}

// CalculateAmountIn computes the minimal input amount for which a
// constant product pair releases amountOut under the 0.3% fee:
//
//	amountIn = (reserveIn * amountOut * 1000) / ((reserveOut - amountOut) * 997) + 1
//
// Floor division plus one, matching the pair invariant check. Callers
// ensure amountOut < reserveOut.
func CalculateAmountIn(amountOut, reserveIn, reserveOut, result *uint256.Int) {
	var t1, t2 uint256.Int

	t1.Mul(reserveIn, amountOut)
	t1.Mul(&t1, FeeBasisPoints1000)

	t2.Sub(reserveOut, amountOut)
	t2.Mul(&t2, FeeBasisPoints997)

	result.Div(&t1, &t2)
	result.AddUint64(result, 1)
}

// PackReserves packs two uint112 reserves and a uint32 timestamp into a
// single 256-bit word. The layout, high bits to low:
//
//	[ 32 bits timestamp | 112 bits reserveB | 112 bits reserveA ]
//
// Callers guarantee both reserves fit 112 bits.
func PackReserves(reserveA, reserveB *uint256.Int, timestamp uint32, result *uint256.Int) {
	var t uint256.Int

	result.SetUint64(uint64(timestamp))
	result.Lsh(result, 224)
	t.Lsh(reserveB, 112)
	result.Or(result, &t)
	result.Or(result, reserveA)
}

// ParseReserves unpacks a word produced by PackReserves.
func ParseReserves(word *uint256.Int) (reserveA, reserveB *uint256.Int, timestamp uint32) {
	var t uint256.Int

	reserveA = new(uint256.Int).And(word, Mask112)
	t.Rsh(word, 112)
	reserveB = new(uint256.Int).And(&t, Mask112)
	t.Rsh(word, 224)
	timestamp = uint32(t.Uint64())
	return
}
