package storage

// Row types mirror the tables in migrations/. Amounts and timestamps are
// stored as text and converted by the repository.

type FinancialLog struct {
	ID           string
	Date         string
	Amount       string
	Description  string
	Category     string
	Tags         string
	CreatedAt    string
	LastModified string
}

type FinancialBalance struct {
	ID           string
	Date         string
	Amount       string
	AccountName  string
	AccountType  string
	AccountOwner string
	CreatedAt    string
	LastModified string
}

type PaycheckInfo struct {
	ID            string
	Date          string
	Amount        string
	Category      string
	DeductionType string
	CreatedAt     string
	LastModified  string
}

type TrendSnapshot struct {
	Kind        string
	ViewMode    string
	PeriodUnit  string
	PeriodSize  int64
	Payload     string
	RecordCount int64
	GeneratedAt string
}
