package gormstore_test

import (
	"context"
	"strings"
	"testing"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/diewo77/go-tutoring/internal/store/gormstore"
	"github.com/diewo77/go-tutoring/internal/store/storetest"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gormstore.Models()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestStoreConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return gormstore.New(setupTestDB(t))
	})
}

func TestAddTutorSubject_SingleRow(t *testing.T) {
	db := setupTestDB(t)
	s := gormstore.New(db)
	ctx := context.Background()
	bob := storetest.MustUser(t, s, "Bob", "bob@x.com", models.RoleTutor)
	math := storetest.MustSubject(t, s, "Math")

	require.NoError(t, s.AddTutorSubject(ctx, bob.ID, math.ID))
	require.ErrorIs(t, s.AddTutorSubject(ctx, bob.ID, math.ID), store.ErrAlreadyAdded)

	var count int64
	require.NoError(t, db.Model(&models.TutorSubject{}).Where("tutor_id = ? AND subject_id = ?", bob.ID, math.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestUniqueIndexBackstop(t *testing.T) {
	db := setupTestDB(t)
	s := gormstore.New(db)
	bob := storetest.MustUser(t, s, "Bob", "bob@x.com", models.RoleTutor)
	math := storetest.MustSubject(t, s, "Math")

	require.NoError(t, db.Create(&models.TutorSubject{TutorID: bob.ID, SubjectID: math.ID}).Error)
	err := db.Create(&models.TutorSubject{TutorID: bob.ID, SubjectID: math.ID}).Error
	require.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestPingAndClose(t *testing.T) {
	s := gormstore.New(setupTestDB(t))
	require.NoError(t, s.Ping(context.Background()))
}
