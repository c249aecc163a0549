package core

import "github.com/shopspring/decimal"

// GroupAmount represents an amount aggregated under one group name
// (category, account type, deduction type, or a net-mode bucket).
type GroupAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthAmount is an amount summed over one calendar month, labelled like
// "Jan 2024".
type MonthAmount struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}
