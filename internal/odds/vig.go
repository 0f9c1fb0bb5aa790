package odds

import (
	"fmt"
	"math"
)

// Overround returns the bookmaker margin of a complete market:
// sum(1/decimal) - 1. Negative values mean the prices admit an arbitrage.
func Overround(decimals []float64) (float64, error) {
	sum, err := impliedSum(decimals)
	if err != nil {
		return 0, err
	}
	return sum - 1, nil
}

// FairProbabilities removes the margin from a complete N-way market
// using the multiplicative (proportional) method:
// fair_i = implied_i / sum(implied)
// The result sums to 1.0.
func FairProbabilities(decimals []float64) ([]float64, error) {
	sum, err := impliedSum(decimals)
	if err != nil {
		return nil, err
	}

	fair := make([]float64, len(decimals))
	for i, d := range decimals {
		fair[i] = (1 / d) / sum
	}
	return fair, nil
}

// FairProbabilitiesPower removes the margin from a two-way market using the
// Power method. This accounts for the favorite-longshot bias: longshots are
// systematically overbet. Finds k such that p1^k + p2^k = 1.
func FairProbabilitiesPower(decimalA, decimalB float64) (float64, float64, error) {
	impliedA, err := ImpliedProbability(decimalA)
	if err != nil {
		return 0, 0, err
	}
	impliedB, err := ImpliedProbability(decimalB)
	if err != nil {
		return 0, 0, err
	}

	if math.Abs(impliedA+impliedB-1.0) < 1e-9 {
		return impliedA, impliedB, nil
	}

	k := findPowerExponent(impliedA, impliedB)
	return math.Pow(impliedA, k), math.Pow(impliedB, k), nil
}

func impliedSum(decimals []float64) (float64, error) {
	if len(decimals) < 2 {
		return 0, fmt.Errorf("%w: a market needs at least two prices, got %d", ErrInvalidOdds, len(decimals))
	}

	var sum float64
	for _, d := range decimals {
		p, err := ImpliedProbability(d)
		if err != nil {
			return 0, err
		}
		sum += p
	}
	return sum, nil
}

// findPowerExponent finds k such that p1^k + p2^k = 1 using bisection search.
// For 0 < p < 1 a higher k makes p^k smaller, so overround markets (sum > 1)
// need k > 1 and underround markets need k < 1.
func findPowerExponent(p1, p2 float64) float64 {
	const (
		tolerance = 1e-9
		maxIters  = 100
	)

	low, high := 0.01, 10.0

	for i := 0; i < maxIters; i++ {
		mid := (low + high) / 2
		currentSum := math.Pow(p1, mid) + math.Pow(p2, mid)

		if math.Abs(currentSum-1.0) < tolerance {
			return mid
		}

		if currentSum > 1 {
			low = mid
		} else {
			high = mid
		}
	}

	return (low + high) / 2
}
