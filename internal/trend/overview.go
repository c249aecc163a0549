package trend

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"lifedash/internal/core"
)

// Window selects the slice of time an overview covers.
type Window string

const (
	WindowMonth Window = "month"
	WindowYear  Window = "year"
	WindowAll   Window = "all"
)

// OverviewQuery scopes an overview. Month is ignored unless Window is
// WindowMonth; Year is ignored for WindowAll.
type OverviewQuery struct {
	Window   Window
	Year     int
	Month    time.Month
	Filter   Filter
	Location *time.Location
}

// Validate rejects windows missing the year or month they need.
func (q OverviewQuery) Validate() error {
	switch q.Window {
	case WindowAll:
		return nil
	case WindowYear:
		if q.Year <= 0 {
			return fmt.Errorf("year window requires a year")
		}
		return nil
	case WindowMonth:
		if q.Year <= 0 || q.Month < time.January || q.Month > time.December {
			return fmt.Errorf("month window requires a year and a month between 1 and 12")
		}
		return nil
	}
	return fmt.Errorf("unknown window %q", q.Window)
}

// Periods lists the months ("2006-01") and years present in a dataset,
// newest first.
type Periods struct {
	Months []string `json:"months"`
	Years  []string `json:"years"`
}

// Overview is the card-style summary of one dataset.
type Overview struct {
	Kind      core.RecordKind    `json:"kind"`
	Window    Window             `json:"window"`
	Count     int                `json:"count"`
	Total     decimal.Decimal    `json:"total"`
	Breakdown []core.GroupAmount `json:"breakdown"`
	Monthly   []core.MonthAmount `json:"monthly,omitempty"`
	Available Periods            `json:"available"`
}

// BuildOverview summarizes ds for the queried window. Balances are reduced to
// the latest snapshot per account before anything is summed. Breakdown
// amounts are absolute per-group sums; Total keeps its sign.
func BuildOverview(ds core.Dataset, q OverviewQuery) Overview {
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}
	if q.Window == "" {
		q.Window = WindowAll
	}

	ov := Overview{
		Kind:      ds.Kind,
		Window:    q.Window,
		Total:     decimal.Zero,
		Breakdown: []core.GroupAmount{},
		Available: AvailablePeriods(ds, loc),
	}

	var items []overviewItem
	for _, it := range overviewItems(q.Filter.Apply(ds, loc), loc) {
		if q.contains(it.at) {
			items = append(items, it)
		}
	}
	if ds.Kind == core.KindBalances {
		items = latestPerAccount(items)
	}
	ov.Count = len(items)

	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, it := range items {
		ov.Total = ov.Total.Add(it.amount)
		if _, ok := sums[it.dimension]; !ok {
			order = append(order, it.dimension)
		}
		sums[it.dimension] = sums[it.dimension].Add(it.amount)
	}
	for _, name := range order {
		ov.Breakdown = append(ov.Breakdown, core.GroupAmount{Name: name, Amount: sums[name].Abs()})
	}

	if ds.Kind != core.KindBalances {
		ov.Monthly = monthlySeries(items)
	}
	return ov
}

func (q OverviewQuery) contains(t time.Time) bool {
	switch q.Window {
	case WindowMonth:
		return t.Year() == q.Year && t.Month() == q.Month
	case WindowYear:
		return t.Year() == q.Year
	}
	return true
}

// AvailablePeriods lists the distinct months and years that hold records.
func AvailablePeriods(ds core.Dataset, loc *time.Location) Periods {
	months := make(map[string]struct{})
	years := make(map[string]struct{})
	for _, e := range collect(ds, loc) {
		months[e.at.Format("2006-01")] = struct{}{}
		years[e.at.Format("2006")] = struct{}{}
	}
	return Periods{Months: newestFirst(months), Years: newestFirst(years)}
}

func newestFirst(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// overviewItem differs from entry in the dimension it carries: balances are
// broken down by account type and paychecks by category.
type overviewItem struct {
	at        time.Time
	amount    decimal.Decimal
	dimension string
	account   string
}

func overviewItems(ds core.Dataset, loc *time.Location) []overviewItem {
	var out []overviewItem
	add := func(date string, amount decimal.Decimal, dimension, account string) {
		at, err := core.ParseDate(date, loc)
		if err != nil {
			return
		}
		if strings.TrimSpace(dimension) == "" {
			dimension = GroupOther
		}
		out = append(out, overviewItem{at: at, amount: amount, dimension: dimension, account: account})
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
		for _, p := range ds.Paychecks {
			add(p.Date, p.Amount, p.Category, "")
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].at.Before(out[j].at) })
	return out
}

// latestPerAccount keeps the most recent snapshot of each account, in the
// order accounts first appear.
func latestPerAccount(items []overviewItem) []overviewItem {
	index := make(map[string]int)
	var out []overviewItem
	for _, it := range items {
		i, ok := index[it.account]
		if !ok {
			index[it.account] = len(out)
			out = append(out, it)
			continue
		}
		if it.at.After(out[i].at) {
			out[i] = it
		}
	}
	return out
}

// monthlySeries sums absolute amounts per calendar month. items must be in
// chronological order.
func monthlySeries(items []overviewItem) []core.MonthAmount {
	out := []core.MonthAmount{}
	index := make(map[string]int)
	for _, it := range items {
		label := it.at.Format("Jan 2006")
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, core.MonthAmount{Month: label, Amount: decimal.Zero})
		}
		out[i].Amount = out[i].Amount.Add(it.amount.Abs())
	}
	return out
}
