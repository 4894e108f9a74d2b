package catalog

import (
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// FormatMoney renders v as "$1,234.50".
func FormatMoney(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + humanize.FormatFloat("#,###.##", v)
}

// FormatMoneyCompact switches to SI suffixes from $10k up: "$12.3k".
func FormatMoneyCompact(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) < 10000 {
		return FormatMoney(v)
	}
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "$" + strings.ReplaceAll(humanize.SIWithDigits(v, 1, ""), " ", "")
}

// RoundCents keeps money at cent precision after arithmetic.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
