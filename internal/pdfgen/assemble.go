package pdfgen

import (
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// AssemblyError wraps a bundling failure. When it is returned neither output
// bundle is valid.
type AssemblyError struct {
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling bundle: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error { return e.Err }

// PDFMerger concatenates page-based documents in the given order.
type PDFMerger struct{}

// Merge concatenates the pages of inPaths, in order, into outPath. Every
// input is checked for readability first; on any failure no output is left
// behind.
func (PDFMerger) Merge(inPaths []string, outPath string) error {
	for _, p := range inPaths {
		if _, err := PageCount(p); err != nil {
			return &AssemblyError{Err: err}
		}
	}
	if err := api.MergeCreateFile(inPaths, outPath, false, nil); err != nil {
		os.Remove(outPath)
		return &AssemblyError{Err: err}
	}
	return nil
}

// PageCount returns the number of pages in a PDF, or an error if the file is
// unreadable or malformed.
func PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
