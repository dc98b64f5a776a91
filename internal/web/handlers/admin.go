package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/web/middleware"
)

// AdminDashboardData feeds the teacher dashboard template
type AdminDashboardData struct {
	Subjects []*database.Subject
}

// ManageSubjectData feeds the subject management page
type ManageSubjectData struct {
	Subject *database.Subject
	Modules []*database.Module
}

// ManageModuleData feeds the module management page
type ManageModuleData struct {
	Module  *database.Module
	Content []*database.Content
	Tasks   []*database.Task
}

// TaskSubmissionsData feeds the submissions review page
type TaskSubmissionsData struct {
	Task        *database.Task
	Submissions []*database.TaskSubmission
}

// AdminDashboard lists the subjects owned by the session teacher
func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	subjects, err := h.db.ListSubjectsByTeacher(user.ID)
	if err != nil {
		log.Error().Err(err).Int64("teacher_id", user.ID).Msg("Failed to list teacher subjects")
	}

	h.render(w, r, "admin_dashboard.html", AdminDashboardData{Subjects: subjects})
}

// SubjectNewPage renders the subject creation form
func (h *Handlers) SubjectNewPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "admin_subject_new.html", nil)
}

// SubjectCreate resolves the reference data by natural key and inserts
// the subject, owned by the session teacher
func (h *Handlers) SubjectCreate(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("subject_name")
	universityName := r.FormValue("university_name")
	streamName := r.FormValue("stream_name")
	semesterNumber, semErr := strconv.Atoi(r.FormValue("semester_number"))

	if name == "" || universityName == "" || streamName == "" || semErr != nil {
		h.flashErr(w, "All fields are required and semester must be a number.")
		h.redirect(w, r, "/admin/subject/add")
		return
	}

	universityID, err := h.db.ResolveUniversity(universityName)
	if err != nil {
		h.subjectCreateFailed(w, r, err)
		return
	}
	streamID, err := h.db.ResolveStream(streamName)
	if err != nil {
		h.subjectCreateFailed(w, r, err)
		return
	}
	semesterID, err := h.db.ResolveSemester(semesterNumber)
	if err != nil {
		h.subjectCreateFailed(w, r, err)
		return
	}

	user := middleware.GetUser(r.Context())
	if _, err := h.db.CreateSubject(name, universityID, streamID, semesterID, user.ID); err != nil {
		h.subjectCreateFailed(w, r, err)
		return
	}

	h.flash(w, "Subject '"+name+"' created successfully!")
	h.redirect(w, r, "/admin")
}

func (h *Handlers) subjectCreateFailed(w http.ResponseWriter, r *http.Request, err error) {
	log.Error().Err(err).Msg("Failed to create subject")
	h.flashErr(w, "Could not create the subject. Please try again.")
	h.redirect(w, r, "/admin/subject/add")
}

// ManageSubjectPage shows a subject's modules with the add-module form
func (h *Handlers) ManageSubjectPage(w http.ResponseWriter, r *http.Request) {
	subject := h.ownedSubjectFromURL(w, r)
	if subject == nil {
		return
	}

	modules, err := h.db.ListModulesBySubject(subject.ID)
	if err != nil {
		log.Error().Err(err).Int64("subject_id", subject.ID).Msg("Failed to list modules")
	}

	h.render(w, r, "admin_subject.html", ManageSubjectData{Subject: subject, Modules: modules})
}

// ModuleCreate adds a module to a subject owned by the session teacher
func (h *Handlers) ModuleCreate(w http.ResponseWriter, r *http.Request) {
	subject := h.ownedSubjectFromURL(w, r)
	if subject == nil {
		return
	}

	title := r.FormValue("module_title")
	if title == "" {
		h.flashErr(w, "Module title is required.")
		h.redirect(w, r, manageSubjectURL(subject.ID))
		return
	}

	if _, err := h.db.CreateModule(subject.ID, title); err != nil {
		log.Error().Err(err).Int64("subject_id", subject.ID).Msg("Failed to create module")
		h.flashErr(w, "Could not add the module. Please try again.")
		h.redirect(w, r, manageSubjectURL(subject.ID))
		return
	}

	h.flash(w, "Module '"+title+"' added successfully.")
	h.redirect(w, r, manageSubjectURL(subject.ID))
}

// ManageModulePage shows a module's content and tasks with the add forms
func (h *Handlers) ManageModulePage(w http.ResponseWriter, r *http.Request) {
	module := h.ownedModuleFromURL(w, r)
	if module == nil {
		return
	}

	content, err := h.db.ListContentByModule(module.ID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", module.ID).Msg("Failed to list content")
	}
	tasks, err := h.db.ListTasksByModule(module.ID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", module.ID).Msg("Failed to list tasks")
	}

	h.render(w, r, "admin_module.html", ManageModuleData{Module: module, Content: content, Tasks: tasks})
}

// ModuleAddContent appends a unit of text content to an owned module
func (h *Handlers) ModuleAddContent(w http.ResponseWriter, r *http.Request) {
	module := h.ownedModuleFromURL(w, r)
	if module == nil {
		return
	}

	data := r.FormValue("content_data")
	if data == "" {
		h.flashErr(w, "Content is required.")
		h.redirect(w, r, manageModuleURL(module.ID))
		return
	}

	if err := h.db.AddContent(module.ID, "text", data); err != nil {
		log.Error().Err(err).Int64("module_id", module.ID).Msg("Failed to add content")
		h.flashErr(w, "Could not add the content. Please try again.")
		h.redirect(w, r, manageModuleURL(module.ID))
		return
	}

	h.flash(w, "New content added successfully.")
	h.redirect(w, r, manageModuleURL(module.ID))
}

// ModuleAddTask appends a task to an owned module
func (h *Handlers) ModuleAddTask(w http.ResponseWriter, r *http.Request) {
	module := h.ownedModuleFromURL(w, r)
	if module == nil {
		return
	}

	description := r.FormValue("task_description")
	if description == "" {
		h.flashErr(w, "Task description is required.")
		h.redirect(w, r, manageModuleURL(module.ID))
		return
	}

	if err := h.db.AddTask(module.ID, description); err != nil {
		log.Error().Err(err).Int64("module_id", module.ID).Msg("Failed to add task")
		h.flashErr(w, "Could not add the task. Please try again.")
		h.redirect(w, r, manageModuleURL(module.ID))
		return
	}

	h.flash(w, "New task added successfully.")
	h.redirect(w, r, manageModuleURL(module.ID))
}

// TaskSubmissionsPage lists the proof-of-work submitted for a task in an
// owned module
func (h *Handlers) TaskSubmissionsPage(w http.ResponseWriter, r *http.Request) {
	taskID, err := urlID(r, "id")
	if err != nil {
		h.flashErr(w, "Task not found.")
		h.redirect(w, r, "/admin")
		return
	}

	task, err := h.db.GetTaskByID(taskID)
	if err != nil {
		log.Error().Err(err).Int64("task_id", taskID).Msg("Failed to get task")
	}
	if task == nil {
		h.flashErr(w, "Task not found.")
		h.redirect(w, r, "/admin")
		return
	}

	if h.ownedModule(w, r, task.ModuleID) == nil {
		return
	}

	submissions, err := h.db.ListSubmissionsByTask(taskID)
	if err != nil {
		log.Error().Err(err).Int64("task_id", taskID).Msg("Failed to list submissions")
	}

	h.render(w, r, "admin_task_submissions.html", TaskSubmissionsData{Task: task, Submissions: submissions})
}

// ownedSubjectFromURL loads the subject addressed by the URL and checks
// it belongs to the session teacher. Ownership is re-derived from
// storage on every call, never trusted from a prior page load. A nil
// return means the response is already written.
func (h *Handlers) ownedSubjectFromURL(w http.ResponseWriter, r *http.Request) *database.Subject {
	subjectID, err := urlID(r, "id")
	if err != nil {
		h.forbiddenSubject(w, r)
		return nil
	}
	return h.ownedSubject(w, r, subjectID)
}

func (h *Handlers) ownedSubject(w http.ResponseWriter, r *http.Request, subjectID int64) *database.Subject {
	subject, err := h.db.GetSubjectByID(subjectID)
	if err != nil {
		log.Error().Err(err).Int64("subject_id", subjectID).Msg("Failed to get subject")
	}

	user := middleware.GetUser(r.Context())
	if subject == nil || subject.TeacherID != user.ID {
		h.forbiddenSubject(w, r)
		return nil
	}
	return subject
}

// ownedModuleFromURL loads the module addressed by the URL and checks
// its subject belongs to the session teacher.
func (h *Handlers) ownedModuleFromURL(w http.ResponseWriter, r *http.Request) *database.Module {
	moduleID, err := urlID(r, "id")
	if err != nil {
		h.forbiddenSubject(w, r)
		return nil
	}
	return h.ownedModule(w, r, moduleID)
}

func (h *Handlers) ownedModule(w http.ResponseWriter, r *http.Request, moduleID int64) *database.Module {
	module, err := h.db.GetModuleByID(moduleID)
	if err != nil {
		log.Error().Err(err).Int64("module_id", moduleID).Msg("Failed to get module")
	}
	if module == nil {
		h.forbiddenSubject(w, r)
		return nil
	}
	if h.ownedSubject(w, r, module.SubjectID) == nil {
		return nil
	}
	return module
}

func (h *Handlers) forbiddenSubject(w http.ResponseWriter, r *http.Request) {
	h.flashErr(w, "Subject not found or you don't have permission to edit it.")
	h.redirect(w, r, "/admin")
}
