package claim

import (
	"path/filepath"
	"strings"
)

// allowedExtensions is the upload allow-list, matched case-insensitively.
var allowedExtensions = map[string]bool{
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// imageExtensions are the allowed extensions that need normalizing into a
// one-page PDF.
var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
}

// extension returns the lower-cased extension of a filename without the dot.
func extension(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// ValidateUploads checks a submission's file list against the allow-list.
// The whole submission is rejected if the list is empty, if every filename is
// blank, or if any file carries a disallowed extension. Nothing is written
// before validation passes.
func ValidateUploads(uploads []Upload) error {
	empty := true
	for _, u := range uploads {
		if u.Filename != "" {
			empty = false
			break
		}
	}
	if empty {
		return &ValidationError{Reason: "please upload at least one bill file (pdf or image)"}
	}
	for _, u := range uploads {
		if !allowedExtensions[extension(u.Filename)] {
			return &ValidationError{Filename: u.Filename, Reason: "not allowed, allowed: pdf, png, jpg, jpeg"}
		}
	}
	return nil
}
