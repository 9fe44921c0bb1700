package pair

import "github.com/holiman/uint256"

// UQ112.112 fixed point: 112 integer bits, 112 fractional bits. The
// price accumulators store sums of uqdiv(encodeUQ112(x), y) terms.

func encodeUQ112(y, result *uint256.Int) {
	result.Lsh(y, 112)
}

func uqdiv(x, y, result *uint256.Int) {
	result.Div(x, y)
}
