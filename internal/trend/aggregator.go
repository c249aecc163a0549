// Package trend turns dated financial records into chart-ready series.
//
// Aggregate is a pure function: it reads an in-memory dataset, never
// mutates it and keeps no state between calls. Records with unparseable
// dates are skipped rather than reported, and blank dimension values are
// grouped under "Other".
package trend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
)

// ViewMode selects how records are split into groups.
type ViewMode string

const (
	// Separate groups by the kind's dimension field.
	Separate ViewMode = "separate"
	// Net splits by sign: Income/Expense, or Assets/Liabilities for balances.
	Net ViewMode = "net"
)

// Group names used in net mode and for blank dimension values.
const (
	GroupOther       = "Other"
	GroupIncome      = "Income"
	GroupExpense     = "Expense"
	GroupAssets      = "Assets"
	GroupLiabilities = "Liabilities"
)

// Options configures one aggregation run.
type Options struct {
	PeriodSize int
	PeriodUnit PeriodUnit
	ViewMode   ViewMode
	// Location dates without an explicit zone are read in. Nil means UTC.
	Location *time.Location
}

// DefaultOptions groups by single months in separate mode.
func DefaultOptions() Options {
	return Options{PeriodSize: 1, PeriodUnit: Month, ViewMode: Separate}
}

// Validate reports options a caller should reject. Aggregate itself never
// fails and normalizes out-of-range values instead.
func (o Options) Validate() error {
	var problems []string
	if o.PeriodSize < MinPeriodSize || o.PeriodSize > MaxPeriodSize {
		problems = append(problems, fmt.Sprintf("period size %d must be between %d and %d", o.PeriodSize, MinPeriodSize, MaxPeriodSize))
	}
	if o.PeriodUnit != Month && o.PeriodUnit != Year {
		problems = append(problems, fmt.Sprintf("period unit %q must be month or year", o.PeriodUnit))
	}
	if o.ViewMode != Separate && o.ViewMode != Net {
		problems = append(problems, fmt.Sprintf("view mode %q must be separate or net", o.ViewMode))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid trend options: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (o Options) normalized() Options {
	if o.PeriodSize < MinPeriodSize {
		o.PeriodSize = MinPeriodSize
	}
	if o.PeriodSize > MaxPeriodSize {
		o.PeriodSize = MaxPeriodSize
	}
	if o.PeriodUnit != Year {
		o.PeriodUnit = Month
	}
	if o.ViewMode != Net {
		o.ViewMode = Separate
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return o
}

// Column is one group's value within a row.
type Column struct {
	Group string          `json:"group"`
	Value decimal.Decimal `json:"value"`
}

// Row is one period of the series. Columns follow Result.Groups order and
// every group is present, zero when the period has nothing for it.
type Row struct {
	Period  string
	Key     string
	Start   time.Time
	Columns []Column
}

// Value returns the row's value for group, zero if absent.
func (r Row) Value(group string) decimal.Decimal {
	for _, c := range r.Columns {
		if c.Group == group {
			return c.Value
		}
	}
	return decimal.Zero
}

// MarshalJSON writes the flat chart shape {"period": label, group: number}
// with groups in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"period":`)
	label, err := json.Marshal(r.Period)
	if err != nil {
		return nil, err
	}
	buf.Write(label)
	for _, c := range r.Columns {
		name, err := json.Marshal(c.Group)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.WriteString(c.Value.String())
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Result is the aggregated series for one dataset.
type Result struct {
	Kind    core.RecordKind `json:"kind"`
	Options Options         `json:"-"`
	Groups  []string        `json:"groups"`
	Rows    []Row           `json:"rows"`
}

// entry is the kind-independent view of a record the aggregator works on.
type entry struct {
	at        time.Time
	amount    decimal.Decimal
	dimension string
	account   string
}

// Aggregate buckets ds into periods according to opts.
func Aggregate(ds core.Dataset, opts Options) Result {
	opts = opts.normalized()
	res := Result{Kind: ds.Kind, Options: opts, Groups: []string{}, Rows: []Row{}}

	entries := collect(ds, opts.Location)
	if len(entries) == 0 {
		return res
	}

	p := newPeriodizer(opts.PeriodUnit, opts.PeriodSize, entries[0].at)
	periods := materialize(entries, p)

	var buckets []map[string]decimal.Decimal
	var seen groupSet
	if ds.Kind == core.KindBalances {
		buckets, seen = snapshotBuckets(entries, periods, opts.ViewMode)
	} else {
		buckets, seen = flowBuckets(entries, periods, p, opts.ViewMode, ds.Kind)
	}

	res.Groups = seen.ordered(ds.Kind, opts.ViewMode)
	for i, per := range periods {
		row := Row{Period: per.label, Key: per.key, Start: per.start, Columns: make([]Column, len(res.Groups))}
		for j, g := range res.Groups {
			v, ok := buckets[i][g]
			if !ok {
				v = decimal.Zero
			}
			row.Columns[j] = Column{Group: g, Value: v}
		}
		res.Rows = append(res.Rows, row)
	}
	return res
}

// collect resolves the dataset's tagged union into entries with parsed
// dates, dropping records whose date cannot be parsed, sorted by date.
func collect(ds core.Dataset, loc *time.Location) []entry {
	var out []entry
	add := func(date string, amount decimal.Decimal, dimension, account string) {
		at, err := core.ParseDate(date, loc)
		if err != nil {
			return
		}
		out = append(out, entry{at: at, amount: amount, dimension: dimension, account: account})
	}

	switch ds.Kind {
	case core.KindLogs:
		for _, l := range ds.Logs {
			add(l.Date, l.Amount, l.Category, "")
		}
	case core.KindBalances:
		for _, b := range ds.Balances {
			add(b.Date, b.Amount, b.AccountType, b.AccountKey())
		}
	case core.KindPaycheck:
		for _, pc := range ds.Paychecks {
			add(pc.Date, pc.Amount, pc.DeductionType, "")
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out
}

// materialize returns the distinct periods that contain at least one entry,
// in chronological order.
func materialize(entries []entry, p periodizer) []period {
	byKey := make(map[string]period)
	for _, e := range entries {
		per := p.periodOf(e.at)
		byKey[per.key] = per
	}
	periods := make([]period, 0, len(byKey))
	for _, per := range byKey {
		periods = append(periods, per)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].start.Before(periods[j].start) })
	return periods
}

// flowBuckets sums every entry into its own period.
func flowBuckets(entries []entry, periods []period, p periodizer, mode ViewMode, kind core.RecordKind) ([]map[string]decimal.Decimal, groupSet) {
	index := make(map[string]int, len(periods))
	buckets := make([]map[string]decimal.Decimal, len(periods))
	for i, per := range periods {
		index[per.key] = i
		buckets[i] = make(map[string]decimal.Decimal)
	}

	var seen groupSet
	for _, e := range entries {
		i := index[p.periodOf(e.at).key]
		g := groupOf(e, mode, kind)
		seen.add(g)
		buckets[i][g] = buckets[i][g].Add(e.amount)
	}
	return buckets, seen
}

// snapshotBuckets sums, for each period, the latest snapshot of every
// account dated before the period's end. Snapshots supersede each other;
// they are never added up for the same account.
func snapshotBuckets(entries []entry, periods []period, mode ViewMode) ([]map[string]decimal.Decimal, groupSet) {
	buckets := make([]map[string]decimal.Decimal, len(periods))
	latest := make(map[string]entry)
	var accounts []string
	var seen groupSet

	next := 0
	for i, per := range periods {
		for next < len(entries) && entries[next].at.Before(per.end) {
			e := entries[next]
			prev, ok := latest[e.account]
			if !ok {
				accounts = append(accounts, e.account)
			}
			// Equal dates keep the first snapshot seen.
			if !ok || e.at.After(prev.at) {
				latest[e.account] = e
			}
			next++
		}

		buckets[i] = make(map[string]decimal.Decimal)
		for _, acct := range accounts {
			e := latest[acct]
			g := groupOf(e, mode, core.KindBalances)
			seen.add(g)
			buckets[i][g] = buckets[i][g].Add(e.amount)
		}
	}
	return buckets, seen
}

func groupOf(e entry, mode ViewMode, kind core.RecordKind) string {
	if mode == Net {
		nonNegative := !e.amount.IsNegative()
		switch {
		case kind == core.KindBalances && nonNegative:
			return GroupAssets
		case kind == core.KindBalances:
			return GroupLiabilities
		case nonNegative:
			return GroupIncome
		default:
			return GroupExpense
		}
	}
	if strings.TrimSpace(e.dimension) == "" {
		return GroupOther
	}
	return e.dimension
}

// groupSet records group names in first-seen order.
type groupSet struct {
	names []string
	index map[string]struct{}
}

func (s *groupSet) add(name string) {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[name]; ok {
		return
	}
	s.index[name] = struct{}{}
	s.names = append(s.names, name)
}

// ordered returns the discovered groups. Net-mode buckets always come out
// positive side first; dimension groups keep first-seen order.
func (s groupSet) ordered(kind core.RecordKind, mode ViewMode) []string {
	if mode != Net {
		return append([]string{}, s.names...)
	}
	order := []string{GroupIncome, GroupExpense}
	if kind == core.KindBalances {
		order = []string{GroupAssets, GroupLiabilities}
	}
	out := []string{}
	for _, g := range order {
		if _, ok := s.index[g]; ok {
			out = append(out, g)
		}
	}
	return out
}
