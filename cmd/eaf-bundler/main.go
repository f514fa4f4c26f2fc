package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/nvenk/eaf-bundler/internal/claim"
	"github.com/nvenk/eaf-bundler/internal/docxtpl"
	"github.com/nvenk/eaf-bundler/internal/pdfgen"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("eaf-bundler")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		storagePath    = fs.StringLong("storage", "./uploads", "Upload storage directory path")
		templatePath   = fs.StringLong("template", "./EAF_Template.docx", "Claim form template document path")
		maxUploadBytes = fs.IntLong("max-upload-bytes", 200<<20, "Maximum upload size in bytes")
		sessionSecret  = fs.StringLong("session-secret", "dev-secret-change-this", "Session cookie signing secret")
		authUser       = fs.StringLong("auth-user", "admin", "Login username")
		authPass       = fs.StringLong("auth-pass", "password123", "Login password")
		googleID       = fs.StringLong("google-client-id", "", "Google OAuth client ID (enables Google sign-in)")
		googleSecret   = fs.StringLong("google-client-secret", "", "Google OAuth client secret")
		googleRedirect = fs.StringLong("google-redirect-url", "", "Google OAuth redirect URL")
		allowedEmails  = fs.StringLong("allowed-emails", "", "Comma-separated emails allowed to sign in with Google")
		sofficePath    = fs.StringLong("soffice", "", "Explicit path to the LibreOffice executable")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("EAF"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if _, err := os.Stat(*templatePath); err != nil {
		slog.Error("Template document not found", "path", *templatePath, "error", err)
		os.Exit(1)
	}

	slog.Info("Initializing storage...")
	store, err := claim.NewLocalStorage(*storagePath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	// A missing converter is a configuration error, but it is surfaced to
	// the submitting user per request rather than refusing to start.
	var converter claim.Converter
	soffice, err := pdfgen.FindSoffice(*sofficePath)
	if err != nil {
		slog.Warn("Document converter not found, submissions will fail until one is installed", "error", err)
		converter = pdfgen.Unavailable{}
	} else {
		converter = soffice
	}

	service := claim.NewService(store, docxtpl.Filler{}, converter, pdfgen.PDFMerger{}, *templatePath)

	var oauthCfg *oauth2.Config
	if *googleID != "" {
		oauthCfg = &oauth2.Config{
			ClientID:     *googleID,
			ClientSecret: *googleSecret,
			RedirectURL:  *googleRedirect,
			Scopes:       []string{"openid", "email"},
			Endpoint:     google.Endpoint,
		}
	}
	auth := claim.NewAuth(*sessionSecret, *authUser, *authPass, oauthCfg, strings.Split(*allowedEmails, ","))

	server := claim.NewServer(service, auth, int64(*maxUploadBytes))

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if oauthCfg != nil {
		slog.Info("Google sign-in enabled", "redirect", *googleRedirect)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
