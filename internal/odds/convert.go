package odds

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// fractionalBase is the denominator used before gcd reduction. Fractions are
// therefore only accurate to two decimal places of (decimal - 1).
const fractionalBase = 100

// maxWholePrice bounds the American value and fractional numerator a price
// may convert to. Anything larger cannot be held in an int on every platform.
const maxWholePrice = math.MaxInt32

// CheckDecimal reports whether decimal is a usable decimal price (finite, > 1.0).
func CheckDecimal(decimal float64) error {
	if math.IsNaN(decimal) || math.IsInf(decimal, 0) || decimal <= 1.0 {
		return fmt.Errorf("%w: decimal %v must be greater than 1.0", ErrInvalidOdds, decimal)
	}
	return nil
}

// DecimalToAmerican converts decimal odds to American odds
// Decimal 2.50 → +150, Decimal 1.50 → -200
// Even money (2.0) is reported as +100.
func DecimalToAmerican(decimal float64) (int, error) {
	if err := CheckDecimal(decimal); err != nil {
		return 0, err
	}

	var american float64
	if decimal >= 2.0 {
		american = math.Round((decimal - 1) * 100)
	} else {
		american = math.Round(-100 / (decimal - 1))
	}
	if math.Abs(american) > maxWholePrice {
		return 0, fmt.Errorf("%w: decimal %v has no American equivalent", ErrInvalidOdds, decimal)
	}
	return int(american), nil
}

// AmericanToDecimal converts American odds to decimal odds
// +150 → 2.50, -200 → 1.50
func AmericanToDecimal(american int) (float64, error) {
	if american == 0 {
		return 0, fmt.Errorf("%w: American odds cannot be 0", ErrInvalidOdds)
	}

	if american > 0 {
		return float64(american)/100 + 1, nil
	}
	return 100/math.Abs(float64(american)) + 1, nil
}

// DecimalToFractional converts decimal odds to a reduced "num/den" string.
// 2.5 → "3/2", 1.5 → "1/2", 2.0 → "1/1"
func DecimalToFractional(decimal float64) (string, error) {
	if err := CheckDecimal(decimal); err != nil {
		return "", err
	}

	whole := math.Round((decimal - 1) * fractionalBase)
	if whole > maxWholePrice {
		return "", fmt.Errorf("%w: decimal %v is too large for a fraction", ErrInvalidOdds, decimal)
	}
	num := int(whole)
	den := fractionalBase
	d := gcd(num, den)
	return fmt.Sprintf("%d/%d", num/d, den/d), nil
}

// FractionalToDecimal parses "num/den" and returns num/den + 1.
func FractionalToDecimal(fractional string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(fractional), "/")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q is not num/den", ErrParse, fractional)
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || !finite(num) {
		return 0, fmt.Errorf("%w: numerator %q", ErrParse, parts[0])
	}
	den, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || !finite(den) {
		return 0, fmt.Errorf("%w: denominator %q", ErrParse, parts[1])
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: zero denominator in %q", ErrParse, fractional)
	}

	decimal := num/den + 1
	if err := CheckDecimal(decimal); err != nil {
		return 0, err
	}
	return decimal, nil
}

// ImpliedProbability returns 1/decimal as a fraction in (0, 1).
// Multiply by 100 for display.
func ImpliedProbability(decimal float64) (float64, error) {
	if err := CheckDecimal(decimal); err != nil {
		return 0, err
	}
	return 1 / decimal, nil
}

// Payout returns the total return of a winning stake, stake included.
func Payout(stake, decimal float64) (float64, error) {
	if err := CheckDecimal(decimal); err != nil {
		return 0, err
	}
	if math.IsNaN(stake) || math.IsInf(stake, 0) || stake < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidStake, stake)
	}
	return stake * decimal, nil
}

// Profit returns the net winnings of a winning stake.
func Profit(stake, decimal float64) (float64, error) {
	payout, err := Payout(stake, decimal)
	if err != nil {
		return 0, err
	}
	return payout - stake, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
