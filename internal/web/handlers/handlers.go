package handlers

import (
	"html/template"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/auth"
	"github.com/wikisyllabus/wikisyllabus/internal/database"
	"github.com/wikisyllabus/wikisyllabus/internal/storage"
	"github.com/wikisyllabus/wikisyllabus/internal/web/middleware"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	db          *database.DB
	templates   map[string]*template.Template
	authService *auth.AuthService
	uploads     *storage.Store
	isDev       bool
}

// New creates a new Handlers instance
func New(db *database.DB, templates map[string]*template.Template, authService *auth.AuthService, uploads *storage.Store, isDev bool) *Handlers {
	return &Handlers{
		db:          db,
		templates:   templates,
		authService: authService,
		uploads:     uploads,
		isDev:       isDev,
	}
}

// PageData contains common data for all pages
type PageData struct {
	Title    string
	User     *database.User
	Flash    string
	FlashErr string
	Content  any
}

// render renders a template with common data
func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	user := middleware.GetUser(r.Context())

	pageData := PageData{
		Title:   "Wikisyllabus",
		User:    user,
		Content: data,
	}

	// Check for flash messages in cookies
	if cookie, err := r.Cookie("flash"); err == nil {
		pageData.Flash = cookie.Value
		clear := &http.Cookie{Name: "flash", MaxAge: -1, Path: "/"}
		h.applyCookieSecurity(clear)
		http.SetCookie(w, clear)
	}
	if cookie, err := r.Cookie("flash_err"); err == nil {
		pageData.FlashErr = cookie.Value
		clear := &http.Cookie{Name: "flash_err", MaxAge: -1, Path: "/"}
		h.applyCookieSecurity(clear)
		http.SetCookie(w, clear)
	}

	tmpl, ok := h.templates[name]
	if !ok {
		log.Error().Str("template", name).Msg("Template not found")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", pageData); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// flash sets a flash message
func (h *Handlers) flash(w http.ResponseWriter, message string) {
	c := &http.Cookie{
		Name:     "flash",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	h.applyCookieSecurity(c)
	http.SetCookie(w, c)
}

// flashErr sets an error flash message
func (h *Handlers) flashErr(w http.ResponseWriter, message string) {
	c := &http.Cookie{
		Name:     "flash_err",
		Value:    message,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
	}
	h.applyCookieSecurity(c)
	http.SetCookie(w, c)
}

// redirect redirects to a URL
func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, url string) {
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// applyCookieSecurity sets Secure/SameSite defaults based on environment.
func (h *Handlers) applyCookieSecurity(c *http.Cookie) {
	middleware.ApplyCookieSecurity(c, h.isDev)
}

// urlID parses the named chi URL parameter as an entity id
func urlID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func moduleURL(moduleID int64) string {
	return "/module/" + strconv.FormatInt(moduleID, 10)
}

func manageSubjectURL(subjectID int64) string {
	return "/admin/subject/" + strconv.FormatInt(subjectID, 10) + "/manage"
}

func manageModuleURL(moduleID int64) string {
	return "/admin/module/" + strconv.FormatInt(moduleID, 10) + "/manage"
}
