package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	KindLogs     RecordKind = "logs"
	KindBalances RecordKind = "balances"
	KindPaycheck RecordKind = "paycheck"
)

type (
	// RecordKind identifies which financial dataset a record belongs to.
	RecordKind string

	FinancialLog struct {
		ID           string          `json:"id"`
		Date         string          `json:"date"`
		Amount       decimal.Decimal `json:"amount"`
		Description  string          `json:"description"`
		Category     string          `json:"category"`
		Tags         string          `json:"tags,omitempty"` // comma separated
		CreatedAt    time.Time       `json:"createdAt"`
		LastModified time.Time       `json:"lastModified"`
	}

	// FinancialBalance is a point-in-time snapshot of one account.
	FinancialBalance struct {
		ID           string          `json:"id"`
		Date         string          `json:"date"`
		Amount       decimal.Decimal `json:"amount"`
		AccountName  string          `json:"account_name"`
		AccountType  string          `json:"account_type"`
		AccountOwner string          `json:"account_owner"`
		CreatedAt    time.Time       `json:"createdAt"`
		LastModified time.Time       `json:"lastModified"`
	}

	PaycheckInfo struct {
		ID            string          `json:"id"`
		Date          string          `json:"date"`
		Amount        decimal.Decimal `json:"amount"`
		Category      string          `json:"category"`
		DeductionType string          `json:"deduction_type"`
		CreatedAt     time.Time       `json:"createdAt"`
		LastModified  time.Time       `json:"lastModified"`
	}

	// Dataset holds the records of exactly one kind. Only the slice matching
	// Kind is read.
	Dataset struct {
		Kind      RecordKind
		Logs      []FinancialLog
		Balances  []FinancialBalance
		Paychecks []PaycheckInfo
	}
)

var (
	ErrUnknownKind       = errors.New("unknown record kind")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrEmptyCategory     = errors.New("empty category")
	ErrEmptyAccountName  = errors.New("empty account name")
	ErrEmptyDeduction    = errors.New("empty deduction type")
	ErrDescriptionLength = errors.New("description too long (max 200 characters)")
)

// Kinds returns every supported record kind in display order.
func Kinds() []RecordKind {
	return []RecordKind{KindLogs, KindBalances, KindPaycheck}
}

// ParseRecordKind accepts the canonical kind names plus the dataset ids used
// by the storage layer.
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "logs", "financial_logs":
		return KindLogs, nil
	case "balances", "financial_balances":
		return KindBalances, nil
	case "paycheck", "paychecks", "paycheck_info":
		return KindPaycheck, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k RecordKind) String() string { return string(k) }

func (k RecordKind) Valid() bool {
	switch k {
	case KindLogs, KindBalances, KindPaycheck:
		return true
	}
	return false
}

// GroupingField names the dimension a kind is broken down by.
func (k RecordKind) GroupingField() string {
	switch k {
	case KindBalances:
		return "account_type"
	case KindPaycheck:
		return "deduction_type"
	default:
		return "category"
	}
}

// DatasetID is the storage-level dataset name of the kind.
func (k RecordKind) DatasetID() string {
	switch k {
	case KindBalances:
		return "financial_balances"
	case KindPaycheck:
		return "paycheck_info"
	default:
		return "financial_logs"
	}
}

// Len returns the number of records of the dataset's kind.
func (d Dataset) Len() int {
	switch d.Kind {
	case KindLogs:
		return len(d.Logs)
	case KindBalances:
		return len(d.Balances)
	case KindPaycheck:
		return len(d.Paychecks)
	}
	return 0
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// AccountKey identifies the account a balance snapshot belongs to.
func (b FinancialBalance) AccountKey() string {
	return b.AccountName + "-" + b.AccountType + "-" + b.AccountOwner
}

// TagList splits the comma separated tags, dropping blanks.
func (l FinancialLog) TagList() []string {
	if strings.TrimSpace(l.Tags) == "" {
		return nil
	}
	parts := strings.Split(l.Tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validation applies to writes only. Reads tolerate anything the store holds.

func (l FinancialLog) Validate() error {
	if _, err := ParseDate(l.Date, time.UTC); err != nil {
		return err
	}
	if len(l.Description) > 200 {
		return ErrDescriptionLength
	}
	if strings.TrimSpace(l.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (b FinancialBalance) Validate() error {
	if _, err := ParseDate(b.Date, time.UTC); err != nil {
		return err
	}
	if strings.TrimSpace(b.AccountName) == "" {
		return ErrEmptyAccountName
	}
	return nil
}

func (p PaycheckInfo) Validate() error {
	if _, err := ParseDate(p.Date, time.UTC); err != nil {
		return err
	}
	if strings.TrimSpace(p.DeductionType) == "" {
		return ErrEmptyDeduction
	}
	return nil
}
