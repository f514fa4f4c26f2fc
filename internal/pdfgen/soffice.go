package pdfgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrConverterUnavailable means no converter executable could be located on
// this host. It is a deployment problem, but it surfaces to the user the
// same way a conversion failure does.
var ErrConverterUnavailable = errors.New("document converter not found: install LibreOffice or set --soffice")

// ConversionError wraps a converter process failure or a missing output
// artifact.
type ConversionError struct {
	Err error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("converting document to PDF: %v", e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Soffice converts office documents to PDF by invoking a headless
// LibreOffice process. The invocation blocks until the process exits; no
// timeout is imposed beyond the caller's context.
type Soffice struct {
	path string
}

// wellKnownPaths are probed before falling back to $PATH resolution.
var wellKnownPaths = []string{
	"/usr/bin/libreoffice",
	"/usr/bin/soffice",
}

// FindSoffice locates a converter executable. An explicit path wins; the
// well-known install locations and $PATH are probed otherwise.
func FindSoffice(explicit string) (*Soffice, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, ErrConverterUnavailable
		}
		return &Soffice{path: explicit}, nil
	}
	for _, p := range wellKnownPaths {
		if _, err := os.Stat(p); err == nil {
			return &Soffice{path: p}, nil
		}
	}
	for _, name := range []string{"libreoffice", "soffice"} {
		if p, err := exec.LookPath(name); err == nil {
			return &Soffice{path: p}, nil
		}
	}
	return nil, ErrConverterUnavailable
}

// Unavailable stands in for the converter when no executable was found at
// startup. Every conversion fails with ErrConverterUnavailable, so the
// misconfiguration surfaces per request like any other conversion failure.
type Unavailable struct{}

func (Unavailable) Convert(ctx context.Context, inPath, outPath string) error {
	return ErrConverterUnavailable
}

// Convert renders inPath as a PDF at outPath.
func (s *Soffice) Convert(ctx context.Context, inPath, outPath string) error {
	outDir := filepath.Dir(outPath)
	cmd := exec.CommandContext(ctx, s.path,
		"--headless", "--convert-to", "pdf:writer_pdf_Export", "--outdir", outDir, inPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		slog.Error("Converter process failed", "path", s.path, "input", inPath, "output", string(output), "error", err)
		return &ConversionError{Err: err}
	}

	// soffice names the output after the input document.
	base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
	generated := filepath.Join(outDir, base+".pdf")
	if generated != outPath {
		if err := os.Rename(generated, outPath); err != nil {
			return &ConversionError{Err: fmt.Errorf("moving converted PDF: %w", err)}
		}
	}

	if _, err := os.Stat(outPath); err != nil {
		return &ConversionError{Err: fmt.Errorf("converted PDF missing: %w", err)}
	}
	return nil
}
