package models

import "strings"

// Subject is a teachable topic. Subjects are seeded, not user-created.
type Subject struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

// TutorSubject links a tutor to a subject they teach.
type TutorSubject struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	TutorID   uint `gorm:"not null;uniqueIndex:idx_tutor_subject" json:"tutor_id"`
	SubjectID uint `gorm:"not null;uniqueIndex:idx_tutor_subject" json:"subject_id"`
}

// SubjectNames joins subject names the way search results display them.
func SubjectNames(subjects []Subject) string {
	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
