package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/web/middleware"
)

// SubjectData feeds the subject page template
type SubjectData struct {
	Subject *database.Subject
	Modules []*database.Module
}

// ModuleData feeds the module page template
type ModuleData struct {
	Module    *database.Module
	Content   []*database.Content
	Tasks     []*database.Task
	Submitted map[int64]bool
}

// SubmitProofData feeds the proof-of-work submission form
type SubmitProofData struct {
	Task *database.Task
}

// SubjectPage shows a subject and its modules
func (h *Handlers) SubjectPage(w http.ResponseWriter, r *http.Request) {
	subjectID, err := urlID(r, "id")
	if err != nil {
		h.flashErr(w, "Subject not found.")
		h.redirect(w, r, "/dashboard")
		return
	}

	subject, err := h.db.GetSubjectByID(subjectID)
	if err != nil {
		log.Error().Err(err).Int64("subject_id", subjectID).Msg("Failed to get subject")
	}
	if subject == nil {
		h.flashErr(w, "Subject not found.")
		h.redirect(w, r, "/dashboard")
		return
	}

	modules, err := h.db.ListModulesBySubject(subjectID)
	if err != nil {
		log.Error().Err(err).Int64("subject_id", subjectID).Msg("Failed to list modules")
	}

	h.render(w, r, "subject.html", SubjectData{Subject: subject, Modules: modules})
}

// ModulePage shows a module's content and tasks, marking the tasks the
// session user has already submitted proof of work for
func (h *Handlers) ModulePage(w http.ResponseWriter, r *http.Request) {
	moduleID, err := urlID(r, "id")
	if err != nil {
		h.flashErr(w, "Module not found.")
		h.redirect(w, r, "/dashboard")
		return
	}

	module, err := h.db.GetModuleByID(moduleID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", moduleID).Msg("Failed to get module")
	}
	if module == nil {
		h.flashErr(w, "Module not found.")
		h.redirect(w, r, "/dashboard")
		return
	}

	content, err := h.db.ListContentByModule(moduleID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", moduleID).Msg("Failed to list content")
	}
	tasks, err := h.db.ListTasksByModule(moduleID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", moduleID).Msg("Failed to list tasks")
	}

	user := middleware.GetUser(r.Context())
	submitted, err := h.db.SubmittedTaskIDs(user.ID, moduleID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", moduleID).Msg("Failed to list submitted tasks")
	}

	h.render(w, r, "module.html", ModuleData{
		Module:    module,
		Content:   content,
		Tasks:     tasks,
		Submitted: submitted,
	})
}

// SubmitProofPage renders the proof-of-work submission form
func (h *Handlers) SubmitProofPage(w http.ResponseWriter, r *http.Request) {
	task := h.taskFromURL(w, r)
	if task == nil {
		return
	}
	h.render(w, r, "submit_proof.html", SubmitProofData{Task: task})
}

// SubmitProofSubmit handles the multipart proof-of-work upload. The file
// is written to disk before the submission row is recorded, so a crash
// in between leaves an orphaned file rather than a dangling reference.
func (h *Handlers) SubmitProofSubmit(w http.ResponseWriter, r *http.Request) {
	task := h.taskFromURL(w, r)
	if task == nil {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.flashErr(w, "You must select a file to upload.")
		h.redirect(w, r, r.URL.Path)
		return
	}

	file, header, err := r.FormFile("proof")
	if err != nil || header.Filename == "" {
		h.flashErr(w, "You must select a file to upload.")
		h.redirect(w, r, r.URL.Path)
		return
	}
	defer file.Close()

	storedName, err := h.uploads.Save(header.Filename, file)
	if err != nil {
		log.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to store upload")
		h.flashErr(w, "Could not store your file. Please try again.")
		h.redirect(w, r, r.URL.Path)
		return
	}

	user := middleware.GetUser(r.Context())
	comments := r.FormValue("comments")
	if _, err := h.db.CreateProofOfWork(task.ID, user.ID, storedName, header.Filename, comments); err != nil {
		log.Error().Err(err).Int64("task_id", task.ID).Msg("Failed to record submission")
		h.flashErr(w, "Could not record your submission. Please try again.")
		h.redirect(w, r, r.URL.Path)
		return
	}

	h.flash(w, "Proof of Work submitted successfully!")
	h.redirect(w, r, moduleURL(task.ModuleID))
}

// taskFromURL loads the task addressed by the URL, handling the
// not-found redirect. A nil return means the response is already written.
func (h *Handlers) taskFromURL(w http.ResponseWriter, r *http.Request) *database.Task {
	taskID, err := urlID(r, "id")
	if err != nil {
		h.flashErr(w, "Task not found.")
		h.redirect(w, r, "/dashboard")
		return nil
	}

	task, err := h.db.GetTaskByID(taskID)
	if err != nil {
		log.Error().Err(err).Int64("task_id", taskID).Msg("Failed to get task")
	}
	if task == nil {
		h.flashErr(w, "Task not found.")
		h.redirect(w, r, "/dashboard")
		return nil
	}
	return task
}
