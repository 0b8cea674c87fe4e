package handlers

import (
	"net/http"

	"github.com/diewo77/go-tutoring/auth"
	"github.com/diewo77/go-tutoring/internal/models"
	"github.com/diewo77/go-tutoring/internal/services"
)

type StudentHandler struct {
	base
	catalog  *services.Catalog
	bookings *services.Bookings
}

func NewStudentHandler(cfg *RouterConfig, catalog *services.Catalog, bookings *services.Bookings) *StudentHandler {
	return &StudentHandler{base: cfg.base(), catalog: catalog, bookings: bookings}
}

// Dashboard lists tutors matching ?search= and the student's own sessions.
func (h *StudentHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	student, ok := h.require(w, r, models.RoleStudent)
	if !ok {
		return
	}
	search := r.URL.Query().Get("search")

	tutors, err := h.catalog.SearchTutors(r.Context(), search)
	if err != nil {
		h.flashError(r, err, MsgSomethingWrong)
		h.redirect(w, r, "/")
		return
	}
	sessions, err := h.bookings.ForStudent(r.Context(), student.ID)
	if err != nil {
		h.flashError(r, err, MsgSomethingWrong)
		h.redirect(w, r, "/")
		return
	}

	h.render(w, r, "dashboard_student.html", map[string]any{
		"User":     student,
		"Search":   search,
		"Tutors":   tutors,
		"Sessions": sessions,
	})
}

func (h *StudentHandler) BookSession(w http.ResponseWriter, r *http.Request) {
	student, ok := h.require(w, r, models.RoleStudent)
	if !ok {
		return
	}
	tutorID, ok := pathID(w, r, "tutor_id")
	if !ok {
		return
	}

	when, err := services.ParseSessionDate(r.PostFormValue("session_date"))
	if err == nil {
		_, err = h.bookings.Book(r.Context(), student.ID, tutorID, when)
	}
	if err != nil {
		h.flashError(r, err, MsgTutorNotFound)
	} else {
		h.flash(r, auth.FlashSuccess, MsgSessionRequested)
	}
	h.redirect(w, r, "/student/dashboard")
}
