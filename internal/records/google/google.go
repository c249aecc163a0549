// Package google reads financial records from a Google Sheets spreadsheet,
// one tab per record kind. The spreadsheet is treated as an import source:
// writes are rejected.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"lifedash/internal/core"
	"lifedash/internal/records"
)

// Config names the spreadsheet, its tabs and the service account used to
// read it. One of CredentialsJSON or CredentialsFile is required unless
// extra client options supply authentication.
type Config struct {
	SpreadsheetID   string
	LogsSheet       string
	BalancesSheet   string
	PaycheckSheet   string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheets        map[core.RecordKind]string
}

// Ensure interface conformance
var _ records.Backend = (*Client)(nil)

// New creates a read-only Sheets client. Extra options are appended after
// the credentials, which lets tests point the client at a fake endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var clientOpts []goption.ClientOption
	if len(opts) == 0 {
		creds, err := loadCredentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts,
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully", "spreadsheet_id", cfg.SpreadsheetID)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheets: map[core.RecordKind]string{
			core.KindLogs:     orDefault(cfg.LogsSheet, core.KindLogs.DatasetID()),
			core.KindBalances: orDefault(cfg.BalancesSheet, core.KindBalances.DatasetID()),
			core.KindPaycheck: orDefault(cfg.PaycheckSheet, core.KindPaycheck.DatasetID()),
		},
	}, nil
}

func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// readSheet returns every row of a tab. Numbers come back unformatted so
// amounts keep their precision; dates come back as displayed.
func (c *Client) readSheet(ctx context.Context, kind core.RecordKind) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:Z", c.sheets[kind])
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// ListLogs implements records.LogReader
func (c *Client) ListLogs(ctx context.Context) ([]core.FinancialLog, error) {
	values, err := c.readSheet(ctx, core.KindLogs)
	if err != nil {
		return nil, err
	}
	out, skipped := parseLogs(values)
	logSkipped(ctx, core.KindLogs, skipped)
	return out, nil
}

// ListBalances implements records.BalanceReader
func (c *Client) ListBalances(ctx context.Context) ([]core.FinancialBalance, error) {
	values, err := c.readSheet(ctx, core.KindBalances)
	if err != nil {
		return nil, err
	}
	out, skipped := parseBalances(values)
	logSkipped(ctx, core.KindBalances, skipped)
	return out, nil
}

// ListPaychecks implements records.PaycheckReader
func (c *Client) ListPaychecks(ctx context.Context) ([]core.PaycheckInfo, error) {
	values, err := c.readSheet(ctx, core.KindPaycheck)
	if err != nil {
		return nil, err
	}
	out, skipped := parsePaychecks(values)
	logSkipped(ctx, core.KindPaycheck, skipped)
	return out, nil
}

func logSkipped(ctx context.Context, kind core.RecordKind, skipped int) {
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped sheet rows with unreadable amounts", "kind", kind, "count", skipped)
	}
}

func (c *Client) CreateLog(context.Context, core.FinancialLog) (core.FinancialLog, error) {
	return core.FinancialLog{}, records.ErrReadOnly
}

func (c *Client) CreateBalance(context.Context, core.FinancialBalance) (core.FinancialBalance, error) {
	return core.FinancialBalance{}, records.ErrReadOnly
}

func (c *Client) CreatePaycheck(context.Context, core.PaycheckInfo) (core.PaycheckInfo, error) {
	return core.PaycheckInfo{}, records.ErrReadOnly
}

func (c *Client) Delete(context.Context, core.RecordKind, string) error {
	return records.ErrReadOnly
}
