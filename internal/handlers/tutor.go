package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/services"
)

const tutorDashboard = "/tutor/dashboard"

type TutorHandler struct {
	base
	catalog  *services.Catalog
	bookings *services.Bookings
}

func NewTutorHandler(cfg *RouterConfig, catalog *services.Catalog, bookings *services.Bookings) *TutorHandler {
	return &TutorHandler{base: cfg.base(), catalog: catalog, bookings: bookings}
}

// Dashboard shows the tutor's subjects, every subject for the add form and
// incoming session requests.
func (h *TutorHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	tutor, ok := h.require(w, r, models.RoleTutor)
	if !ok {
		return
	}
	ctx := r.Context()

	mine, err := h.catalog.TutorSubjects(ctx, tutor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	all, err := h.catalog.ListSubjects(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sessions, err := h.bookings.ForTutor(ctx, tutor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.render(w, r, "dashboard_tutor.html", map[string]any{
		"User":        tutor,
		"MySubjects":  mine,
		"AllSubjects": all,
		"Sessions":    sessions,
	})
}

func (h *TutorHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.flashError(r, err, MsgSomethingWrong)
	h.redirect(w, r, "/")
}

func (h *TutorHandler) AddSubject(w http.ResponseWriter, r *http.Request) {
	tutor, ok := h.require(w, r, models.RoleTutor)
	if !ok {
		return
	}
	subjectID, err := strconv.ParseUint(r.PostFormValue("subject_id"), 10, 64)
	if err != nil || subjectID == 0 {
		h.flash(r, auth.FlashDanger, MsgInvalidForm)
		h.redirect(w, r, tutorDashboard)
		return
	}

	if _, err := h.catalog.AddTutorSubject(r.Context(), tutor.ID, uint(subjectID)); err != nil {
		h.flashError(r, err, MsgSubjectNotFound)
	} else {
		h.flash(r, auth.FlashSuccess, MsgSubjectAdded)
	}
	h.redirect(w, r, tutorDashboard)
}

// RemoveSubject succeeds even when the subject was never added.
func (h *TutorHandler) RemoveSubject(w http.ResponseWriter, r *http.Request) {
	tutor, ok := h.require(w, r, models.RoleTutor)
	if !ok {
		return
	}
	subjectID, ok := pathID(w, r, "subject_id")
	if !ok {
		return
	}

	if err := h.catalog.RemoveTutorSubject(r.Context(), tutor.ID, subjectID); err != nil {
		h.flashError(r, err, MsgSubjectNotFound)
	} else {
		h.flash(r, auth.FlashSuccess, MsgSubjectRemoved)
	}
	h.redirect(w, r, tutorDashboard)
}

func (h *TutorHandler) UpdateSession(w http.ResponseWriter, r *http.Request) {
	tutor, ok := h.require(w, r, models.RoleTutor)
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "session_id")
	if !ok {
		return
	}

	status, err := h.bookings.UpdateStatus(r.Context(), tutor.ID, sessionID, r.PathValue("status"))
	if err != nil {
		h.flashError(r, err, MsgSessionNotFound)
	} else {
		h.flash(r, auth.FlashSuccess, fmt.Sprintf(msgSessionSetFormat, status))
	}
	h.redirect(w, r, tutorDashboard)
}
