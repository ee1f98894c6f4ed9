package reporter

import (
	"strconv"
	"strings"
)

var sizeUnits = []string{"B", "kB", "MB", "GB"}

// SizeFmt renders a byte count with three significant digits on a 1000 based scale. Ties
// round half to even on the exact count.
func SizeFmt(n int64) string {
	if n < 0 {
		return "-" + SizeFmt(-n)
	}
	q, exp := roundSignificant(n, 3)
	digits := strconv.FormatInt(q, 10) + strings.Repeat("0", exp)
	unit := (len(digits) - 1) / 3
	if unit >= len(sizeUnits) {
		unit = len(sizeUnits) - 1
	}
	cut := len(digits) - 3*unit
	s := digits[:cut]
	if frac := strings.TrimRight(digits[cut:], "0"); frac != "" {
		s += "." + frac
	}
	return s + " " + sizeUnits[unit]
}

// roundSignificant returns q and exp with q*10^exp equal to n rounded half to even to the given
// number of significant digits.
func roundSignificant(n int64, significant int) (int64, int) {
	exp := len(strconv.FormatInt(n, 10)) - significant
	if exp <= 0 {
		return n, 0
	}
	div := int64(1)
	for i := 0; i < exp; i++ {
		div *= 10
	}
	q, r := n/div, n%div
	if 2*r > div || (2*r == div && q%2 == 1) {
		q++
	}
	if len(strconv.FormatInt(q, 10)) > significant {
		q /= 10
		exp++
	}
	return q, exp
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func percentileLabel(p float64) string {
	return strconv.FormatFloat(p, 'g', -1, 64) + "%-ile"
}
