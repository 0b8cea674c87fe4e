// Package storetest holds a behavioral suite every store.Store adapter must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty, migrated store for a single subtest.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, newStore(t)) })
	t.Run("UserLookups", func(t *testing.T) { testUserLookups(t, newStore(t)) })
	t.Run("TutorSubjects", func(t *testing.T) { testTutorSubjects(t, newStore(t)) })
	t.Run("Sessions", func(t *testing.T) { testSessions(t, newStore(t)) })
	t.Run("UpdateStatusOwnership", func(t *testing.T) { testUpdateStatusOwnership(t, newStore(t)) })
}

// MustUser creates a user with a throwaway password hash.
func MustUser(t *testing.T, s store.Store, name, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: email, Password: "hash", Role: role}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotZero(t, u.ID)
	return u
}

// MustSubject creates a subject.
func MustSubject(t *testing.T, s store.Store, name string) *models.Subject {
	t.Helper()
	subj := &models.Subject{Name: name, Description: name + " lessons"}
	require.NoError(t, s.CreateSubject(context.Background(), subj))
	require.NotZero(t, subj.ID)
	return subj
}

func testDuplicateEmail(t *testing.T, s store.Store) {
	ctx := context.Background()
	first := MustUser(t, s, "Alice", "alice@x.com", models.RoleStudent)

	err := s.CreateUser(ctx, &models.User{Name: "Other", Email: "alice@x.com", Password: "h", Role: models.RoleTutor})
	require.ErrorIs(t, err, store.ErrDuplicateEmail)

	got, err := s.UserByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "Alice", got.Name)
	assert.Equal(t, models.RoleStudent, got.Role)
}

func testUserLookups(t *testing.T, s store.Store) {
	ctx := context.Background()
	bob := MustUser(t, s, "Bob", "bob@x.com", models.RoleTutor)
	MustUser(t, s, "Alice", "alice@x.com", models.RoleStudent)
	carol := MustUser(t, s, "Carol", "carol@x.com", models.RoleTutor)

	got, err := s.UserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@x.com", got.Email)
	assert.Equal(t, "hash", got.Password)

	_, err = s.UserByID(ctx, 999999)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.UserByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	tutors, err := s.ListTutors(ctx)
	require.NoError(t, err)
	require.Len(t, tutors, 2)
	assert.Equal(t, bob.ID, tutors[0].ID)
	assert.Equal(t, carol.ID, tutors[1].ID)
}

func testTutorSubjects(t *testing.T, s store.Store) {
	ctx := context.Background()
	bob := MustUser(t, s, "Bob", "bob@x.com", models.RoleTutor)
	physics := MustSubject(t, s, "Physics")
	math := MustSubject(t, s, "Math")

	all, err := s.ListSubjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Math", all[0].Name)

	got, err := s.SubjectByID(ctx, physics.ID)
	require.NoError(t, err)
	assert.Equal(t, "Physics", got.Name)
	_, err = s.SubjectByID(ctx, 424242)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.AddTutorSubject(ctx, bob.ID, math.ID))
	require.ErrorIs(t, s.AddTutorSubject(ctx, bob.ID, math.ID), store.ErrAlreadyAdded)
	require.NoError(t, s.AddTutorSubject(ctx, bob.ID, physics.ID))

	mine, err := s.TutorSubjects(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Math, Physics", models.SubjectNames(mine))

	// Removing a pair that was never added is not an error.
	require.NoError(t, s.RemoveTutorSubject(ctx, bob.ID, 31337))
	require.NoError(t, s.RemoveTutorSubject(ctx, bob.ID, math.ID))

	mine, err = s.TutorSubjects(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Physics", mine[0].Name)
}

func testSessions(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := MustUser(t, s, "Alice", "alice@x.com", models.RoleStudent)
	bob := MustUser(t, s, "Bob", "bob@x.com", models.RoleTutor)
	when := time.Date(2030, 5, 17, 14, 30, 0, 0, time.UTC)

	sess := store.NewSession(alice.ID, bob.ID, when)
	require.NoError(t, s.CreateSession(ctx, sess))
	require.NotZero(t, sess.ID)

	// Same tutor, same time: double booking is not rejected.
	require.NoError(t, s.CreateSession(ctx, store.NewSession(alice.ID, bob.ID, when)))

	forStudent, err := s.SessionsForStudent(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, forStudent, 2)
	assert.Equal(t, "Bob", forStudent[0].TutorName)
	assert.Equal(t, models.StatusPending, forStudent[0].Status)
	assert.True(t, forStudent[0].SessionDate.Equal(when), "got %s", forStudent[0].SessionDate)

	forTutor, err := s.SessionsForTutor(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, forTutor, 2)
	assert.Equal(t, "Alice", forTutor[0].StudentName)
	assert.Equal(t, "alice@x.com", forTutor[0].StudentEmail)

	none, err := s.SessionsForTutor(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUpdateStatusOwnership(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := MustUser(t, s, "Alice", "alice@x.com", models.RoleStudent)
	bob := MustUser(t, s, "Bob", "bob@x.com", models.RoleTutor)
	eve := MustUser(t, s, "Eve", "eve@x.com", models.RoleTutor)

	sess := store.NewSession(alice.ID, bob.ID, time.Date(2030, 1, 2, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateSession(ctx, sess))

	err := s.UpdateSessionStatus(ctx, sess.ID, eve.ID, models.StatusConfirmed)
	require.True(t, errors.Is(err, store.ErrNotFound), "got %v", err)
	err = s.UpdateSessionStatus(ctx, 987654, bob.ID, models.StatusConfirmed)
	require.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.SessionsForTutor(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.StatusPending, list[0].Status)

	require.NoError(t, s.UpdateSessionStatus(ctx, sess.ID, bob.ID, models.StatusConfirmed))
	list, err = s.SessionsForStudent(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, list[0].Status)
}
