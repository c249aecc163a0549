package trend

import (
	"sort"
	"strings"
	"time"

	"lifedash/internal/core"
)

// Filter narrows a dataset before aggregation. Empty selections match
// everything. The date range is inclusive and only applies when both
// bounds are set.
type Filter struct {
	From           *time.Time
	To             *time.Time
	Categories     []string
	Tags           []string
	AccountTypes   []string
	AccountOwners  []string
	DeductionTypes []string
}

// HasDateRange reports whether the date bounds are active.
func (f Filter) HasDateRange() bool {
	return f.From != nil && f.To != nil
}

// Normalized returns f with every selection passed through
// NormalizeSelection.
func (f Filter) Normalized() Filter {
	f.Categories = NormalizeSelection(f.Categories)
	f.Tags = NormalizeSelection(f.Tags)
	f.AccountTypes = NormalizeSelection(f.AccountTypes)
	f.AccountOwners = NormalizeSelection(f.AccountOwners)
	f.DeductionTypes = NormalizeSelection(f.DeductionTypes)
	return f
}

// Apply returns a copy of ds holding only matching records. Selections are
// normalized first, so blank entries never exclude anything.
func (f Filter) Apply(ds core.Dataset, loc *time.Location) core.Dataset {
	f = f.Normalized()
	out := core.Dataset{Kind: ds.Kind}
	switch ds.Kind {
	case core.KindLogs:
		for _, l := range ds.Logs {
			if f.inRange(l.Date, loc) && f.matchLog(l) {
				out.Logs = append(out.Logs, l)
			}
		}
	case core.KindBalances:
		for _, b := range ds.Balances {
			if f.inRange(b.Date, loc) && contains(f.AccountTypes, b.AccountType) && contains(f.AccountOwners, b.AccountOwner) {
				out.Balances = append(out.Balances, b)
			}
		}
	case core.KindPaycheck:
		for _, p := range ds.Paychecks {
			if f.inRange(p.Date, loc) && contains(f.Categories, p.Category) && contains(f.DeductionTypes, p.DeductionType) {
				out.Paychecks = append(out.Paychecks, p)
			}
		}
	}
	return out
}

// A record with an unparseable date never satisfies an active range.
func (f Filter) inRange(date string, loc *time.Location) bool {
	if !f.HasDateRange() {
		return true
	}
	t, err := core.ParseDate(date, loc)
	if err != nil {
		return false
	}
	return !t.Before(*f.From) && !t.After(*f.To)
}

// Untagged logs pass the tag filter.
func (f Filter) matchLog(l core.FinancialLog) bool {
	if !contains(f.Categories, l.Category) {
		return false
	}
	tags := l.TagList()
	if len(f.Tags) == 0 || len(tags) == 0 {
		return true
	}
	for _, t := range tags {
		if contains(f.Tags, t) {
			return true
		}
	}
	return false
}

func contains(selected []string, v string) bool {
	if len(selected) == 0 {
		return true
	}
	for _, s := range selected {
		if s == v {
			return true
		}
	}
	return false
}

// FilterOptions lists the distinct values a filter can select for a dataset.
type FilterOptions struct {
	Categories     []string `json:"categories"`
	Tags           []string `json:"tags"`
	AccountTypes   []string `json:"account_types"`
	AccountOwners  []string `json:"account_owners"`
	DeductionTypes []string `json:"deduction_types"`
}

// OptionsFor collects sorted distinct non-blank dimension values of ds.
func OptionsFor(ds core.Dataset) FilterOptions {
	var categories, tags, accountTypes, accountOwners, deductionTypes valueSet
	switch ds.Kind {
	case core.KindLogs:
		for _, l := range ds.Logs {
			categories.add(l.Category)
			for _, t := range l.TagList() {
				tags.add(t)
			}
		}
	case core.KindBalances:
		for _, b := range ds.Balances {
			accountTypes.add(b.AccountType)
			accountOwners.add(b.AccountOwner)
		}
	case core.KindPaycheck:
		for _, p := range ds.Paychecks {
			categories.add(p.Category)
			deductionTypes.add(p.DeductionType)
		}
	}
	return FilterOptions{
		Categories:     categories.sorted(),
		Tags:           tags.sorted(),
		AccountTypes:   accountTypes.sorted(),
		AccountOwners:  accountOwners.sorted(),
		DeductionTypes: deductionTypes.sorted(),
	}
}

// DateRange returns the earliest and latest valid dates in ds. ok is false
// when no record has a parseable date.
func DateRange(ds core.Dataset, loc *time.Location) (min, max time.Time, ok bool) {
	entries := collect(ds, loc)
	if len(entries) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return entries[0].at, entries[len(entries)-1].at, true
}

type valueSet map[string]struct{}

func (s *valueSet) add(v string) {
	if v == "" {
		return
	}
	if *s == nil {
		*s = make(valueSet)
	}
	(*s)[v] = struct{}{}
}

func (s valueSet) sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// NormalizeSelection trims and drops blank selections, e.g. from query
// strings like "?category=&category=Food".
func NormalizeSelection(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
