package services

import (
	"context"
	"strings"

	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/store"
)

// Catalog manages subjects and which tutor teaches them.
type Catalog struct {
	store store.Store
}

func NewCatalog(s store.Store) *Catalog {
	return &Catalog{store: s}
}

func (c *Catalog) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	return c.store.ListSubjects(ctx)
}

func (c *Catalog) TutorSubjects(ctx context.Context, tutorID uint) ([]models.Subject, error) {
	return c.store.TutorSubjects(ctx, tutorID)
}

// AddTutorSubject links a subject to the tutor. Unknown subjects give
// ErrNotFound; an existing link gives ErrAlreadyAdded.
func (c *Catalog) AddTutorSubject(ctx context.Context, tutorID, subjectID uint) (*models.Subject, error) {
	subj, err := c.store.SubjectByID(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err := c.store.AddTutorSubject(ctx, tutorID, subjectID); err != nil {
		return nil, err
	}
	return subj, nil
}

// RemoveTutorSubject is a no-op when the link does not exist.
func (c *Catalog) RemoveTutorSubject(ctx context.Context, tutorID, subjectID uint) error {
	return c.store.RemoveTutorSubject(ctx, tutorID, subjectID)
}

// SearchTutors keeps tutors whose name or joined subject list contains the
// query, case-insensitively. An empty query returns every tutor.
func (c *Catalog) SearchTutors(ctx context.Context, query string) ([]models.TutorListing, error) {
	tutors, err := c.store.ListTutors(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)

	results := make([]models.TutorListing, 0, len(tutors))
	for _, t := range tutors {
		subjects, err := c.store.TutorSubjects(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		names := models.SubjectNames(subjects)
		if q != "" &&
			!strings.Contains(strings.ToLower(t.Name), q) &&
			!strings.Contains(strings.ToLower(names), q) {
			continue
		}
		results = append(results, models.TutorListing{
			ID:       t.ID,
			Name:     t.Name,
			Email:    t.Email,
			Subjects: names,
		})
	}
	return results, nil
}
