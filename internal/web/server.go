package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/auth"
	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/storage"
	"github.com/wikisyllabus/wikisyllabus/internal/web/handlers"
	"github.com/wikisyllabus/wikisyllabus/internal/web/middleware"
)

//go:embed templates/*
var templatesFS embed.FS

// Server represents the web server
type Server struct {
	db          *database.DB
	port        int
	bind        string
	isDev       bool
	router      *chi.Mux
	templates   map[string]*template.Template
	authService *auth.AuthService
	uploads     *storage.Store
	handlers    *handlers.Handlers
	httpServer  *http.Server
}

// NewServer creates a new web server
func NewServer(db *database.DB, uploads *storage.Store, port int, bind string, isDev bool) *Server {
	s := &Server{
		db:          db,
		port:        port,
		bind:        bind,
		isDev:       isDev,
		router:      chi.NewRouter(),
		authService: auth.NewAuthService(db),
		uploads:     uploads,
	}

	s.loadTemplates()
	s.handlers = handlers.New(db, s.templates, s.authService, uploads, isDev)
	s.setupRoutes()

	return s
}

// AuthService returns the authentication service
func (s *Server) AuthService() *auth.AuthService {
	return s.authService
}

// Router returns the HTTP handler for tests and embedding
func (s *Server) Router() http.Handler {
	return s.router
}

// loadTemplates loads all HTML templates.
// Each page template is parsed together with the base template.
func (s *Server) loadTemplates() {
	s.templates = make(map[string]*template.Template)
	funcMap := templateFuncMap()

	pageTemplates := []string{
		"index.html",
		"login.html",
		"register.html",
		"dashboard.html",
		"subject.html",
		"module.html",
		"submit_proof.html",
		"admin_dashboard.html",
		"admin_subject_new.html",
		"admin_subject.html",
		"admin_module.html",
		"admin_task_submissions.html",
	}

	for _, page := range pageTemplates {
		tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS,
			"templates/base.html",
			"templates/"+page,
		)
		if err != nil {
			log.Fatal().Err(err).Str("template", page).Msg("Failed to parse template")
		}
		s.templates[page] = tmpl
	}
}

// templateFuncMap returns the common template functions
func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	h := s.handlers

	// Public routes (no auth required)
	r.Group(func(r chi.Router) {
		r.Get("/", h.Home)
		r.Get("/register", h.RegisterPage)
		r.Post("/register", h.RegisterSubmit)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.LoginSubmit)
		r.Get("/logout", h.Logout)
	})

	// Routes for any authenticated user
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(s.authService, s.isDev))

		r.Get("/dashboard", h.Dashboard)
		r.Get("/subject/{id}", h.SubjectPage)
		r.Get("/module/{id}", h.ModulePage)
		r.Get("/task/{id}/submit", h.SubmitProofPage)
		r.Post("/task/{id}/submit", h.SubmitProofSubmit)
	})

	// Teacher admin routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireLogin(s.authService, s.isDev))
		r.Use(middleware.RequireTeacher(s.isDev))

		r.Get("/admin", h.AdminDashboard)
		r.Get("/admin/subject/add", h.SubjectNewPage)
		r.Post("/admin/subject/add", h.SubjectCreate)
		r.Get("/admin/subject/{id}/manage", h.ManageSubjectPage)
		r.Post("/admin/subject/{id}/manage", h.ModuleCreate)
		r.Get("/admin/module/{id}/manage", h.ManageModulePage)
		r.Post("/admin/module/{id}/content", h.ModuleAddContent)
		r.Post("/admin/module/{id}/task", h.ModuleAddTask)
		r.Get("/admin/task/{id}/submissions", h.TaskSubmissionsPage)
		r.Get("/admin/uploads/{name}", s.serveUpload)
	})
}

// serveUpload streams a stored proof-of-work file to a teacher
func (s *Server) serveUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	f, err := s.uploads.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeContent(w, r, name, stat.ModTime(), f)
}

// Start runs the HTTP server until the context is cancelled
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.bind, s.port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Web server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("web server shutdown failed: %w", err)
		}
		return nil
	}
}
