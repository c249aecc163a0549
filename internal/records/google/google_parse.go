package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
)

// Layouts spreadsheets commonly display dates in, beyond the ISO forms
// core.ParseDate already accepts.
var sheetDateLayouts = []string{"1/2/2006", "01/02/2006", "2006/01/02", "Jan 2, 2006", "January 2, 2006"}

// header maps normalized column names to their index.
type header map[string]int

func newHeader(row []interface{}) header {
	h := header{}
	for i, cell := range toStrings(row) {
		name := strings.ToLower(strings.TrimSpace(cell))
		name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	return h
}

// get returns the first present column among names.
func (h header) get(row []string, names ...string) string {
	for _, n := range names {
		if i, ok := h[n]; ok {
			return strings.TrimSpace(safeGet(row, i))
		}
	}
	return ""
}

func parseLogs(values [][]interface{}) ([]core.FinancialLog, int) {
	var out []core.FinancialLog
	skipped := 0
	eachRow(values, func(h header, row []string, n int) {
		amount, ok := parseAmount(h.get(row, "amount"))
		if !ok {
			skipped++
			return
		}
		out = append(out, core.FinancialLog{
			ID:          rowID(h.get(row, "id"), core.KindLogs, n),
			Date:        normalizeDate(h.get(row, "date")),
			Amount:      amount,
			Description: h.get(row, "description"),
			Category:    h.get(row, "category"),
			Tags:        h.get(row, "tags"),
		})
	})
	return out, skipped
}

func parseBalances(values [][]interface{}) ([]core.FinancialBalance, int) {
	var out []core.FinancialBalance
	skipped := 0
	eachRow(values, func(h header, row []string, n int) {
		amount, ok := parseAmount(h.get(row, "amount", "balance"))
		if !ok {
			skipped++
			return
		}
		out = append(out, core.FinancialBalance{
			ID:           rowID(h.get(row, "id"), core.KindBalances, n),
			Date:         normalizeDate(h.get(row, "date")),
			Amount:       amount,
			AccountName:  h.get(row, "account_name", "account"),
			AccountType:  h.get(row, "account_type", "type"),
			AccountOwner: h.get(row, "account_owner", "owner"),
		})
	})
	return out, skipped
}

func parsePaychecks(values [][]interface{}) ([]core.PaycheckInfo, int) {
	var out []core.PaycheckInfo
	skipped := 0
	eachRow(values, func(h header, row []string, n int) {
		amount, ok := parseAmount(h.get(row, "amount"))
		if !ok {
			skipped++
			return
		}
		out = append(out, core.PaycheckInfo{
			ID:            rowID(h.get(row, "id"), core.KindPaycheck, n),
			Date:          normalizeDate(h.get(row, "date")),
			Amount:        amount,
			Category:      h.get(row, "category"),
			DeductionType: h.get(row, "deduction_type", "deduction"),
		})
	})
	return out, skipped
}

// eachRow calls fn for every non-empty data row; n is the 1-based sheet row.
func eachRow(values [][]interface{}, fn func(h header, row []string, n int)) {
	if len(values) < 2 {
		return
	}
	h := newHeader(values[0])
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}
		fn(h, row, i+1)
	}
}

func rowID(id string, kind core.RecordKind, n int) string {
	if id != "" {
		return id
	}
	return fmt.Sprintf("sheet:%s:%d", kind, n)
}

func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	d, err := core.ParseAmount(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// normalizeDate rewrites displayed sheet dates to yyyy-MM-dd. Values that
// cannot be read are returned as-is; the aggregator drops them later.
func normalizeDate(s string) string {
	if _, err := core.ParseDate(s, time.UTC); err == nil {
		return s
	}
	for _, layout := range sheetDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.FormatDate(t)
		}
	}
	return s
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case string:
			out[i] = x
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
