package database

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/justsurfingit/extrajob/internal/config"
	"github.com/justsurfingit/extrajob/internal/logging"
	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

// OpenTest returns a migrated, private in-memory SQLite database that is closed
// when the test ends.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg := config.Default()
	cfg.Database.Driver = config.DriverSQLite
	cfg.Database.URL = fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, testDBSeq.Add(1))

	log := logging.Discard()
	db, err := Connect(cfg, log)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := Migrate(context.Background(), db, log); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
