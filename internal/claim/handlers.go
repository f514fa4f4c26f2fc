package claim

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// pageData is passed to every rendered template.
type pageData struct {
	Flashes       []string
	Today         string
	User          string
	GoogleEnabled bool
	BundlePDF     string
	BillsPDF      string
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		slog.Error("Error rendering page", "template", name, "error", err)
	}
}

// handleLoginPage serves the login form
func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.auth.CurrentUser(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, "login.html", pageData{
		Flashes:       s.auth.Flashes(w, r),
		GoogleEnabled: s.auth.GoogleEnabled(),
	})
}

// handleLogin checks static credentials and establishes the session
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")

	if err := s.auth.CheckCredentials(username, password); err != nil {
		s.auth.Flash(w, r, "Invalid username or password.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := s.auth.SignIn(w, r, username); err != nil {
		slog.Error("Error saving session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.auth.Flash(w, r, "Login successful!")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleGoogleLogin redirects to the identity provider
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.auth.GoogleEnabled() {
		s.auth.Flash(w, r, "Google sign-in is not configured.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	state := uuid.NewString()
	if err := s.auth.SetOAuthState(w, r, state); err != nil {
		slog.Error("Error saving session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.auth.AuthURL(state), http.StatusSeeOther)
}

// handleGoogleCallback completes the identity-provider sign-in
func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !s.auth.GoogleEnabled() {
		http.NotFound(w, r)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || state != s.auth.TakeOAuthState(w, r) {
		s.auth.Flash(w, r, "Sign-in failed, please try again.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	email, err := s.auth.ExchangeCode(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		slog.Warn("Google sign-in rejected", "error", err)
		s.auth.Flash(w, r, err.Error())
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := s.auth.SignIn(w, r, email); err != nil {
		slog.Error("Error saving session", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleLogout clears the session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(w, r)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// handleIndex serves the claim form
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	user, _ := s.auth.CurrentUser(r)
	s.render(w, "index.html", pageData{
		Flashes: s.auth.Flashes(w, r),
		Today:   time.Now().Format("2006-01-02"),
		User:    user,
	})
}

// handleSubmit runs one claim submission through the pipeline. Every
// pipeline error is recovered here: the user gets the message as a flash and
// lands back on the form with no partial output exposed.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		msg := "Error parsing form."
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = fmt.Sprintf("Upload is too large. Maximum size is %d MB.", s.maxUploadBytes>>20)
		}
		s.auth.Flash(w, r, msg)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	rec := Record{
		Date:           r.FormValue("date"),
		Amount:         r.FormValue("amount"),
		AmountWords:    r.FormValue("amount_words"),
		EventName:      r.FormValue("event_name"),
		Purpose:        r.FormValue("purpose"),
		BudgetName:     r.FormValue("budget_name"),
		BudgetHead:     r.FormValue("budget_head"),
		BudgetedAmount: r.FormValue("budgeted_amount"),
		AmountSpent:    r.FormValue("amount_spent"),
		PaymentType:    r.FormValue("payment_type"),
		AccountNumber:  r.FormValue("account_number"),
		AccountHolder:  r.FormValue("account_holder"),
		BankName:       r.FormValue("bank_name"),
		IFSC:           r.FormValue("ifsc"),
		Branch:         r.FormValue("branch"),
		BundleName:     r.FormValue("filename"),
	}

	var uploads []Upload
	for _, fh := range r.MultipartForm.File["bills"] {
		f, err := fh.Open()
		if err != nil {
			slog.Error("Error opening uploaded file", "filename", fh.Filename, "error", err)
			s.auth.Flash(w, r, "Error reading uploaded files. Please try again.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			slog.Error("Error reading uploaded file", "filename", fh.Filename, "error", err)
			s.auth.Flash(w, r, "Error reading uploaded files. Please try again.")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		uploads = append(uploads, Upload{Filename: fh.Filename, Data: data})
	}

	bundles, err := s.service.Process(r.Context(), rec, uploads)
	if err != nil {
		slog.Error("Error processing claim", "error", err)
		s.auth.Flash(w, r, err.Error())
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.render(w, "download.html", pageData{
		BundlePDF: bundles.Full,
		BillsPDF:  bundles.BillsOnly,
	})
}

// handleDownload serves a produced artifact as an attachment
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	filename := filepath.Base(r.PathValue("filename"))

	data, err := s.service.BundleFile(filename)
	if err != nil {
		s.auth.Flash(w, r, "File not found.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

// handleStaticCSS serves the stylesheet
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}
