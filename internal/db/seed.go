package db

import (
	"context"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
)

// DefaultSubjects are created on first start.
var DefaultSubjects = []models.Subject{
	{Name: "Mathematics", Description: "Algebra, geometry, calculus and statistics"},
	{Name: "Physics", Description: "Mechanics, electricity and modern physics"},
	{Name: "Chemistry", Description: "General, organic and inorganic chemistry"},
	{Name: "Biology", Description: "Cells, genetics and ecology"},
	{Name: "English", Description: "Grammar, writing and literature"},
	{Name: "History", Description: "World and national history"},
	{Name: "Computer Science", Description: "Programming, algorithms and data structures"},
}

// Seed creates the default subjects that are missing and returns how many
// were created. It is safe to run on every start.
func Seed(ctx context.Context, s store.Store) (int, error) {
	existing, err := s.ListSubjects(ctx)
	if err != nil {
		return 0, err
	}
	have := make(map[string]bool, len(existing))
	for _, subj := range existing {
		have[subj.Name] = true
	}
	created := 0
	for _, subj := range DefaultSubjects {
		if have[subj.Name] {
			continue
		}
		if err := s.CreateSubject(ctx, &subj); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
