// Command oddsconv converts a price between odds formats, or checks a set of
// decimal prices for arbitrage.
//
//	oddsconv -odds +150 -format american
//	oddsconv -arb 2.10,2.05 -stake 250
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sports-arb-engine/internal/arbitrage"
	"sports-arb-engine/internal/odds"
	"sports-arb-engine/internal/quotes"
)

func main() {
	price := flag.String("odds", "", "price to convert")
	format := flag.String("format", "decimal", "format of -odds: decimal, american or fractional")
	arb := flag.String("arb", "", "comma-separated decimal prices, one per outcome")
	stake := flag.Float64("stake", 100, "total stake for -arb")
	flag.Parse()

	var err error
	switch {
	case *arb != "":
		err = checkArbitrage(*arb, *stake)
	case *price != "":
		err = convert(*price, *format)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "oddsconv: %v\n", err)
		os.Exit(1)
	}
}

func convert(value, formatName string) error {
	format, err := odds.ParseFormat(formatName)
	if err != nil {
		return err
	}
	decimal, err := odds.ToDecimal(value, format)
	if err != nil {
		return err
	}
	prob, err := odds.ImpliedProbability(decimal)
	if err != nil {
		return err
	}

	for _, f := range []odds.Format{odds.FormatDecimal, odds.FormatAmerican, odds.FormatFractional} {
		s, err := odds.FormatOdds(decimal, f)
		if err != nil {
			return err
		}
		fmt.Printf("%-11s %s\n", f, s)
	}
	fmt.Printf("%-11s %.2f%%\n", "implied", prob*100)
	return nil
}

func checkArbitrage(list string, totalStake float64) error {
	var qs []quotes.Quote
	for i, field := range strings.Split(list, ",") {
		decimal, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return fmt.Errorf("%w: %q", odds.ErrParse, field)
		}
		qs = append(qs, quotes.Quote{
			ProviderID:  fmt.Sprintf("p%d", i+1),
			MarketType:  "cli",
			Outcome:     fmt.Sprintf("outcome_%d", i+1),
			OddsDecimal: decimal,
		})
	}
	if len(qs) < 2 {
		return fmt.Errorf("%w: need at least two prices", quotes.ErrIncompleteMarket)
	}

	res, err := arbitrage.Detect(nil, qs, totalStake)
	if err != nil {
		return err
	}

	fmt.Printf("total implied probability: %.4f\n", res.TotalImpliedProbability)
	if res.Status != arbitrage.Found {
		fmt.Println("no arbitrage")
		return nil
	}

	opp := res.Opportunity
	fmt.Printf("arbitrage: %.2f%% profit on %.2f\n", opp.ProfitPercentage, opp.TotalStake)
	for _, leg := range opp.Legs {
		fmt.Printf("  %-10s @ %.2f  stake %8.2f  (%.1f%%)\n", leg.Outcome, leg.OddsDecimal, leg.Stake, leg.StakePercentage*100)
	}
	fmt.Printf("payout %.2f, guaranteed profit %.2f\n", opp.Payout, opp.GuaranteedProfit)
	return nil
}
