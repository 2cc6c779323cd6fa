package handlers

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	feeNumerator   = decimal.NewFromInt(997)  //nolint:mnd
	feeDenominator = decimal.NewFromInt(1000) //nolint:mnd
)

const impactPrecision = 36

// priceImpact estimates the price impact of a swap against the reserves held before it.
// It returns nil when the direction cannot be determined or a reserve or input is zero.
func priceImpact(reserve0, reserve1, amount0In, amount1In, amount0Out, amount1Out *big.Int) *float64 {
	var in, reserveIn, reserveOut *big.Int
	switch {
	case amount0In.Sign() > 0 && amount1Out.Sign() > 0:
		in, reserveIn, reserveOut = amount0In, reserve0, reserve1
	case amount1In.Sign() > 0 && amount0Out.Sign() > 0:
		in, reserveIn, reserveOut = amount1In, reserve1, reserve0
	default:
		return nil
	}

	if in.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil
	}

	amountIn := decimal.NewFromBigInt(in, 0)
	rin := decimal.NewFromBigInt(reserveIn, 0)
	rout := decimal.NewFromBigInt(reserveOut, 0)

	inWithFee := amountIn.Mul(feeNumerator).DivRound(feeDenominator, impactPrecision)
	expectedOut := inWithFee.Mul(rout).DivRound(rin.Add(inWithFee), impactPrecision)

	spot := rout.DivRound(rin, impactPrecision)
	execution := expectedOut.DivRound(amountIn, impactPrecision)

	impact, _ := decimal.NewFromInt(1).Sub(execution.DivRound(spot, impactPrecision)).Float64()
	return &impact
}
