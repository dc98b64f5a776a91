package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/web/middleware"
)

// DashboardData feeds the student dashboard template
type DashboardData struct {
	Subjects []*database.SubjectListing
}

// Dashboard shows the subject catalog to students and sends teachers to
// their admin dashboard
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	if user.IsTeacher() {
		h.redirect(w, r, "/admin")
		return
	}

	subjects, err := h.db.ListSubjects()
	if err != nil {
		// Degrade to an empty catalog; the failure is in the log.
		log.Error().Err(err).Msg("Failed to list subjects")
	}

	h.render(w, r, "dashboard.html", DashboardData{Subjects: subjects})
}
