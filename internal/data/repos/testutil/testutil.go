// Package testutil provides database plumbing for repository tests. Tests
// that need Postgres are skipped unless TEST_POSTGRES_DSN is set, so the
// suite stays runnable on machines without a database.
package testutil

import (
	"os"
	"sync"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	types "github.com/mlimaops/teagrade-backend/internal/domain"
	"github.com/mlimaops/teagrade-backend/internal/platform/logger"
)

var (
	once    sync.Once
	shared  *gorm.DB
	openErr error
)

// Logger returns a quiet logger for test construction.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	l, err := logger.New("test")
	if err != nil {
		tb.Fatalf("new logger: %v", err)
	}
	return l
}

// DB opens (once per process) the database named by TEST_POSTGRES_DSN and
// migrates the schema. Tests are skipped when the variable is unset.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		tb.Skip("TEST_POSTGRES_DSN not set; skipping database test")
	}

	once.Do(func() {
		shared, openErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if openErr != nil {
			return
		}
		openErr = shared.AutoMigrate(
			&types.Document{},
			&types.SourceConfig{},
			&types.GradingModel{},
		)
	})
	if openErr != nil {
		tb.Fatalf("open test database: %v", openErr)
	}
	return shared
}

// Tx begins a transaction that rolls back when the test finishes, so each
// test sees a clean table set without truncating between runs.
func Tx(tb testing.TB) *gorm.DB {
	tb.Helper()

	tx := DB(tb).Begin()
	if tx.Error != nil {
		tb.Fatalf("begin test transaction: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}
