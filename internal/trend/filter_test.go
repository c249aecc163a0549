package trend

import (
	"reflect"
	"testing"
	"time"

	"lifedash/internal/core"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestFilter_Apply_Logs(t *testing.T) {
	ds := core.Dataset{Kind: core.KindLogs, Logs: []core.FinancialLog{
		{Date: "2024-01-01", Amount: dec("-1"), Category: "Food", Tags: "groceries, weekly"},
		{Date: "2024-01-02", Amount: dec("-2"), Category: "Food", Tags: "restaurant"},
		{Date: "2024-01-03", Amount: dec("-3"), Category: "Food"},
		{Date: "2024-01-04", Amount: dec("-4"), Category: "Rent", Tags: "weekly"},
		{Date: "garbage", Amount: dec("-5"), Category: "Food"},
	}}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter keeps everything", Filter{}, []string{"-1", "-2", "-3", "-4", "-5"}},
		{"category", Filter{Categories: []string{"Food"}}, []string{"-1", "-2", "-3", "-5"}},
		{"tags keep untagged logs", Filter{Tags: []string{"weekly"}}, []string{"-1", "-3", "-4", "-5"}},
		{"category and tag", Filter{Categories: []string{"Food"}, Tags: []string{"restaurant"}}, []string{"-2", "-3", "-5"}},
		{"date range is inclusive", Filter{From: day("2024-01-02"), To: day("2024-01-03")}, []string{"-2", "-3"}},
		{"half open range is ignored", Filter{From: day("2024-01-04")}, []string{"-1", "-2", "-3", "-4", "-5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.filter.Apply(ds, time.UTC)
			var amounts []string
			for _, l := range got.Logs {
				amounts = append(amounts, l.Amount.String())
			}
			if !reflect.DeepEqual(amounts, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, amounts)
			}
		})
	}
}

func TestFilter_Apply_BalancesAndPaychecks(t *testing.T) {
	balances := core.Dataset{Kind: core.KindBalances, Balances: []core.FinancialBalance{
		balanceOf("2024-01-01", "1", "A", "checking", "alex"),
		balanceOf("2024-01-01", "2", "B", "savings", "alex"),
		balanceOf("2024-01-01", "3", "C", "checking", "sam"),
	}}
	got := Filter{AccountTypes: []string{"checking"}, AccountOwners: []string{"sam"}}.Apply(balances, nil)
	if len(got.Balances) != 1 || got.Balances[0].AccountName != "C" {
		t.Fatalf("unexpected balances %+v", got.Balances)
	}

	paychecks := core.Dataset{Kind: core.KindPaycheck, Paychecks: []core.PaycheckInfo{
		{Date: "2024-01-15", Amount: dec("100"), Category: "Pay", DeductionType: "gross"},
		{Date: "2024-01-15", Amount: dec("-10"), Category: "Tax", DeductionType: "state"},
		{Date: "2024-01-15", Amount: dec("-20"), Category: "Tax", DeductionType: "federal"},
	}}
	got = Filter{Categories: []string{"Tax"}, DeductionTypes: []string{"federal"}}.Apply(paychecks, nil)
	if len(got.Paychecks) != 1 || !got.Paychecks[0].Amount.Equal(dec("-20")) {
		t.Fatalf("unexpected paychecks %+v", got.Paychecks)
	}
	if got.Kind != core.KindPaycheck {
		t.Fatalf("expected kind to be preserved, got %s", got.Kind)
	}
}

func TestOptionsFor(t *testing.T) {
	ds := core.Dataset{Kind: core.KindLogs, Logs: []core.FinancialLog{
		{Date: "2024-01-01", Category: "Rent", Tags: "home"},
		{Date: "2024-01-02", Category: "Food", Tags: " weekly ,groceries"},
		{Date: "2024-01-03", Category: "", Tags: ""},
		{Date: "2024-01-04", Category: "Food", Tags: "weekly"},
	}}
	got := OptionsFor(ds)
	if !reflect.DeepEqual(got.Categories, []string{"Food", "Rent"}) {
		t.Fatalf("unexpected categories %v", got.Categories)
	}
	if !reflect.DeepEqual(got.Tags, []string{"groceries", "home", "weekly"}) {
		t.Fatalf("unexpected tags %v", got.Tags)
	}
	if len(got.AccountTypes) != 0 || got.AccountTypes == nil {
		t.Fatalf("expected empty non-nil account types, got %#v", got.AccountTypes)
	}
}

func TestDateRange(t *testing.T) {
	ds := core.Dataset{Kind: core.KindLogs, Logs: []core.FinancialLog{
		logOf("2024-05-01", "1", "A"),
		logOf("bad", "1", "A"),
		logOf("2023-12-31", "1", "A"),
		logOf("2024-02-29", "1", "A"),
	}}
	min, max, ok := DateRange(ds, time.UTC)
	if !ok {
		t.Fatal("expected a range")
	}
	if core.FormatDate(min) != "2023-12-31" || core.FormatDate(max) != "2024-05-01" {
		t.Fatalf("unexpected range %s..%s", min, max)
	}

	if _, _, ok := DateRange(core.Dataset{Kind: core.KindLogs}, time.UTC); ok {
		t.Fatal("expected no range for an empty dataset")
	}
}

func TestNormalizeSelection(t *testing.T) {
	got := NormalizeSelection([]string{"", " Food ", "  ", "Rent"})
	if !reflect.DeepEqual(got, []string{"Food", "Rent"}) {
		t.Fatalf("unexpected selection %v", got)
	}
	if NormalizeSelection(nil) != nil {
		t.Fatal("expected nil for no selections")
	}
}

func TestFilter_Apply_NormalizesSelections(t *testing.T) {
	ds := core.Dataset{Kind: core.KindLogs, Logs: []core.FinancialLog{
		{Date: "2024-01-01", Amount: dec("-1"), Category: "Food"},
		{Date: "2024-01-02", Amount: dec("-2"), Category: "Rent"},
	}}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"padded value matches", Filter{Categories: []string{" Food "}}, []string{"-1"}},
		{"blank-only selection matches everything", Filter{Categories: []string{"", "  "}}, []string{"-1", "-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, l := range tt.filter.Apply(ds, time.UTC).Logs {
				got = append(got, l.Amount.String())
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
