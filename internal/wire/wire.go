// Package wire provides dependency injection for the parity application.
// It creates singleton services with lazy initialization.
package wire

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	cliadapter "github.com/example/parity/internal/adapters/cli"
	"github.com/example/parity/internal/adapters/filesystem"
	"github.com/example/parity/internal/adapters/process"
	"github.com/example/parity/internal/adapters/sqlite"
	"github.com/example/parity/internal/app"
	"github.com/example/parity/internal/db"
	"github.com/example/parity/internal/ports/primary"
)

var (
	corpusRoot = "."
	logger     = zap.NewNop()

	database              *sql.DB
	invoker               *process.Invoker
	validationService     primary.ValidationService
	classificationService primary.ClassificationService
	workaroundService     primary.WorkaroundService
	logService            primary.LogService
	once                  sync.Once
)

// Configure sets the corpus root and logger. It must be called before the
// first service is requested; later calls have no effect on services that
// already exist.
func Configure(root string, l *zap.Logger) {
	if root != "" {
		corpusRoot = root
	}
	if l != nil {
		logger = l
	}
}

// CorpusRoot returns the configured corpus root.
func CorpusRoot() string {
	return corpusRoot
}

// ValidationService returns the singleton ValidationService instance.
func ValidationService() primary.ValidationService {
	once.Do(initServices)
	return validationService
}

// ClassificationService returns the singleton ClassificationService instance.
func ClassificationService() primary.ClassificationService {
	once.Do(initServices)
	return classificationService
}

// WorkaroundService returns the singleton WorkaroundService instance.
func WorkaroundService() primary.WorkaroundService {
	once.Do(initServices)
	return workaroundService
}

// LogService returns the singleton LogService instance.
func LogService() primary.LogService {
	once.Do(initServices)
	return logService
}

// initServices initializes all services and their dependencies.
// This is called once via sync.Once.
func initServices() {
	var err error

	// State lives beside the corpus
	database, err = db.Open(db.Path(corpusRoot))
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("corpus", corpusRoot), zap.Error(err))
	}

	invoker, err = process.NewInvoker(filepath.Join(corpusRoot, db.StateDir))
	if err != nil {
		logger.Fatal("failed to initialize process invoker", zap.Error(err))
	}

	// Create repository adapters (secondary ports) - sqlite adapters with injected DB
	workaroundRepo := sqlite.NewWorkaroundRepository(database)
	classificationRepo := sqlite.NewClassificationRepository(database)
	runRepo := sqlite.NewRunRepository(database)
	auditLogRepo := sqlite.NewAuditLogRepository(database)
	logWriter := sqlite.NewLogWriterAdapter(auditLogRepo)

	// Filesystem and process adapters
	store := filesystem.NewCorpusStore(corpusRoot)
	reports := filesystem.NewJSONReportWriter()
	workaroundFile := filesystem.NewYAMLWorkaroundFile()
	runner := app.NewDualRunner(invoker, logger.Named("runner"))

	// Create services (primary ports implementation)
	validationService = app.NewValidationService(store, runner, runRepo, classificationRepo, workaroundRepo, reports, logger.Named("validate"))
	classificationService = app.NewClassificationService(runRepo, classificationRepo, workaroundRepo, logWriter)
	workaroundService = app.NewWorkaroundService(workaroundRepo, runRepo, workaroundFile, logWriter)
	logService = app.NewLogService(auditLogRepo)
}

// Close releases the database and the invoker's scratch directory. It is
// safe to call when no service was ever requested.
func Close() {
	if invoker != nil {
		if err := invoker.Close(); err != nil {
			logger.Warn("failed to remove scratch directory", zap.Error(err))
		}
	}
	if database != nil {
		_ = database.Close()
	}
}

// ReportAdapter returns a new ReportAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func ReportAdapter() *cliadapter.ReportAdapter {
	return ReportAdapterWithOutput(os.Stdout)
}

// ReportAdapterWithOutput returns a new ReportAdapter writing to the given output.
func ReportAdapterWithOutput(out io.Writer) *cliadapter.ReportAdapter {
	once.Do(initServices)
	return cliadapter.NewReportAdapter(validationService, out)
}

// WorkaroundAdapter returns a new WorkaroundAdapter writing to stdout.
// Each call creates a new adapter (adapters are stateless translators).
func WorkaroundAdapter() *cliadapter.WorkaroundAdapter {
	return WorkaroundAdapterWithOutput(os.Stdout)
}

// WorkaroundAdapterWithOutput returns a new WorkaroundAdapter writing to the given output.
func WorkaroundAdapterWithOutput(out io.Writer) *cliadapter.WorkaroundAdapter {
	once.Do(initServices)
	return cliadapter.NewWorkaroundAdapter(workaroundService, out)
}
