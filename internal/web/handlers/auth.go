package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/wikisyllabus/wikisyllabus/internal/auth"
	"github.com/wikisyllabus/wikisyllabus/internal/database"
)

// Home renders the landing page
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "index.html", nil)
}

// RegisterPage renders the registration form
func (h *Handlers) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "register.html", nil)
}

// RegisterSubmit handles registration form submission
func (h *Handlers) RegisterSubmit(w http.ResponseWriter, r *http.Request) {
	reg := auth.Registration{
		Username: r.FormValue("username"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
	}

	_, err := h.authService.Register(reg)
	if errors.Is(err, database.ErrEmailTaken) {
		h.flashErr(w, "Email is already registered.")
		h.redirect(w, r, "/register")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Registration failed")
		h.flashErr(w, "Registration failed. Please check your details and try again.")
		h.redirect(w, r, "/register")
		return
	}

	h.flash(w, "Registration successful! Please log in.")
	h.redirect(w, r, "/login")
}

// LoginPage renders the login page
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	// Check if already logged in
	if cookie, err := r.Cookie("session"); err == nil {
		if session, err := h.authService.GetSession(cookie.Value); err == nil && session != nil {
			h.redirect(w, r, "/dashboard")
			return
		}
	}

	h.render(w, r, "login.html", nil)
}

// LoginSubmit handles login form submission
func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.flashErr(w, "Email and password are required.")
		h.redirect(w, r, "/login")
		return
	}

	user, err := h.authService.Authenticate(email, password)
	if err != nil {
		log.Error().Err(err).Msg("Authentication error")
		h.flashErr(w, "An error occurred during login.")
		h.redirect(w, r, "/login")
		return
	}
	if user == nil {
		h.flashErr(w, "Invalid email or password.")
		h.redirect(w, r, "/login")
		return
	}

	session, err := h.authService.CreateSession(user.ID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		h.flashErr(w, "An error occurred during login.")
		h.redirect(w, r, "/login")
		return
	}

	cookie := &http.Cookie{
		Name:     "session",
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
	}
	h.applyCookieSecurity(cookie)
	http.SetCookie(w, cookie)

	log.Info().Str("email", email).Str("role", user.Role).Msg("User logged in")
	h.redirect(w, r, "/dashboard")
}

// Logout handles user logout
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("session"); err == nil {
		if err := h.authService.DeleteSession(cookie.Value); err != nil {
			log.Debug().Err(err).Msg("Failed to delete session during logout")
		}
	}

	cookie := &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	}
	h.applyCookieSecurity(cookie)
	http.SetCookie(w, cookie)

	h.flash(w, "You have been logged out.")
	h.redirect(w, r, "/")
}
