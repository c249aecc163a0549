package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"lifedash/internal/amqp"
	"lifedash/internal/core"
	"lifedash/internal/records"
	"lifedash/internal/records/google"
	"lifedash/internal/records/memory"
	"lifedash/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		result *BackendResult
		err    error
	)
	switch config.Type {
	case SQLiteBackend:
		result, err = f.createSQLiteBackend(ctx, config)
	case SheetsBackend:
		result, err = f.createSheetsBackend(ctx, config)
	case MemoryBackend:
		result, err = f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	f.attachPublisher(result, config)
	return result, nil
}

// attachPublisher connects to AMQP when configured. A broker that cannot be
// reached only disables change events.
func (f *DefaultFactory) attachPublisher(result *BackendResult, config Config) {
	if config.AMQPURL == "" {
		return
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		return
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)

	result.Publisher = client
	backendCleanup := result.Cleanup
	result.Cleanup = func() error {
		var errs []error
		if err := client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close AMQP client: %w", err))
		}
		if backendCleanup != nil {
			if err := backendCleanup(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	if config.DataDirectory != "" {
		if err := seedSQLite(ctx, repo, config.DataDirectory); err != nil {
			repo.Close()
			return nil, err
		}
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Backend: repo,
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

// seedSQLite copies the JSON seed files into a database that has no records
// yet. A database that already holds data is left untouched.
func seedSQLite(ctx context.Context, repo *storage.SQLiteRepository, dir string) error {
	empty, err := repo.IsEmpty(ctx)
	if err != nil {
		return fmt.Errorf("check SQLite database: %w", err)
	}
	if !empty {
		return nil
	}

	seed, err := memory.NewFromDir(dir)
	if err != nil {
		return fmt.Errorf("load seed data: %w", err)
	}
	datasets := make([]core.Dataset, 0, len(core.Kinds()))
	for _, kind := range core.Kinds() {
		ds, err := records.Load(ctx, seed, kind)
		if err != nil {
			return err
		}
		datasets = append(datasets, ds)
	}
	if _, err := repo.Import(ctx, datasets...); err != nil {
		return fmt.Errorf("seed SQLite database: %w", err)
	}
	return nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, google.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		LogsSheet:       config.GoogleLogsSheetName,
		BalancesSheet:   config.GoogleBalancesSheetName,
		PaycheckSheet:   config.GooglePaycheckSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "spreadsheet_id", config.GoogleSpreadsheetID)

	return &BackendResult{Backend: cli}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	store, err := memory.NewFromDir(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}

	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)

	return &BackendResult{Backend: store}, nil
}
