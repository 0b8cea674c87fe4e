package storetest

import (
	"strings"
	"testing"

	"github.com/diewo77/go-tutoring/internal/store/gormstore"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewGormStore returns a gorm store on a private in-memory sqlite database,
// migrated and closed when the test ends.
func NewGormStore(t *testing.T) *gormstore.Store {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	s := gormstore.New(db)
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
