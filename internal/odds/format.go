package odds

import (
	"fmt"
	"strconv"
	"strings"
)

// Format is a display representation of a price.
type Format string

const (
	FormatAmerican   Format = "american"
	FormatDecimal    Format = "decimal"
	FormatFractional Format = "fractional"
)

// ParseFormat accepts a format name case-insensitively. Empty means American,
// the default display format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatAmerican:
		return FormatAmerican, nil
	case FormatDecimal:
		return FormatDecimal, nil
	case FormatFractional:
		return FormatFractional, nil
	}
	return "", fmt.Errorf("%w: unknown odds format %q", ErrParse, s)
}

// FormatOdds renders decimal odds for display: "+150", "-200", "2.50", "3/2".
func FormatOdds(decimal float64, format Format) (string, error) {
	switch format {
	case FormatAmerican:
		american, err := DecimalToAmerican(decimal)
		if err != nil {
			return "", err
		}
		if american > 0 {
			return fmt.Sprintf("+%d", american), nil
		}
		return strconv.Itoa(american), nil
	case FormatFractional:
		return DecimalToFractional(decimal)
	default:
		if err := CheckDecimal(decimal); err != nil {
			return "", err
		}
		return strconv.FormatFloat(decimal, 'f', 2, 64), nil
	}
}

// ToDecimal parses a price written in the given format and normalises it to
// decimal odds. American values may carry a leading "+".
func ToDecimal(value string, format Format) (float64, error) {
	value = strings.TrimSpace(value)
	switch format {
	case FormatAmerican:
		american, err := strconv.Atoi(strings.TrimPrefix(value, "+"))
		if err != nil {
			return 0, fmt.Errorf("%w: American odds %q", ErrParse, value)
		}
		return AmericanToDecimal(american)
	case FormatFractional:
		return FractionalToDecimal(value)
	case FormatDecimal:
		decimal, err := strconv.ParseFloat(value, 64)
		if err != nil || !finite(decimal) {
			return 0, fmt.Errorf("%w: decimal odds %q", ErrParse, value)
		}
		if err := CheckDecimal(decimal); err != nil {
			return 0, err
		}
		return decimal, nil
	}
	return 0, fmt.Errorf("%w: unknown odds format %q", ErrParse, format)
}
