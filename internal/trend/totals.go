package trend

import (
	"github.com/shopspring/decimal"

	"lifedash/internal/core"
)

// Totals summarizes a result per group. Balances are stocks, so their total
// is the most recent period's value. Logs and paychecks are flows and are
// summed across every period.
func Totals(res Result) []core.GroupAmount {
	out := make([]core.GroupAmount, 0, len(res.Groups))
	if len(res.Rows) == 0 {
		return out
	}

	if res.Kind == core.KindBalances {
		last := res.Rows[len(res.Rows)-1]
		for _, g := range res.Groups {
			out = append(out, core.GroupAmount{Name: g, Amount: last.Value(g)})
		}
		return out
	}

	for _, g := range res.Groups {
		sum := decimal.Zero
		for _, row := range res.Rows {
			sum = sum.Add(row.Value(g))
		}
		out = append(out, core.GroupAmount{Name: g, Amount: sum})
	}
	return out
}
