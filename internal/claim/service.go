package claim

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nvenk/eaf-bundler/internal/pdfgen"
)

// TemplateFiller fills placeholder tokens in the fixed claim template.
type TemplateFiller interface {
	Fill(templatePath, outPath string, mapping map[string]string) error
}

// Converter turns a filled template document into a page-based PDF. It is
// an external collaborator; only its input/output file contract matters.
type Converter interface {
	Convert(ctx context.Context, inPath, outPath string) error
}

// Merger concatenates page-based documents in a fixed order.
type Merger interface {
	Merge(inPaths []string, outPath string) error
}

// IDGenerator generates unique name prefixes for stored artifacts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates hex IDs from random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs the claim pipeline: validate uploads, normalize images, fill
// the template, convert it, and assemble the two output bundles. Stages run
// strictly in that order; nothing is retried.
type Service struct {
	storage      Storage
	filler       TemplateFiller
	converter    Converter
	merger       Merger
	normalize    func(data []byte) ([]byte, error)
	templatePath string
	idGenerator  IDGenerator
	timeSource   TimeSource
}

// NewService creates a Service with the default image normalizer, ID
// generator, and time source.
func NewService(storage Storage, filler TemplateFiller, converter Converter, merger Merger, templatePath string) *Service {
	return &Service{
		storage:      storage,
		filler:       filler,
		converter:    converter,
		merger:       merger,
		normalize:    pdfgen.ImagePDF,
		templatePath: templatePath,
		idGenerator:  &defaultIDGenerator{},
		timeSource:   &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(storage Storage, filler TemplateFiller, converter Converter, merger Merger,
	normalize func([]byte) ([]byte, error), templatePath string, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		storage:      storage,
		filler:       filler,
		converter:    converter,
		merger:       merger,
		normalize:    normalize,
		templatePath: templatePath,
		idGenerator:  idGen,
		timeSource:   timeSrc,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename, fallback string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	// Replace multiple spaces with single space
	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = fallback
	}

	return base + ext
}

// storeBills validates nothing; it persists each already-validated upload
// under a unique name, normalizing images into one-page PDFs. The raw image
// upload is removed once its PDF artifact exists.
func (s *Service) storeBills(uploads []Upload) ([]BillAsset, error) {
	bills := make([]BillAsset, 0, len(uploads))
	for _, u := range uploads {
		clean := sanitizeFilename(u.Filename, "bill")
		unique := fmt.Sprintf("%s_%s", s.idGenerator.Generate(), clean)

		name, err := s.storage.Save(unique, u.Data)
		if err != nil {
			return nil, fmt.Errorf("saving bill %q: %w", u.Filename, err)
		}

		if imageExtensions[extension(clean)] {
			pageData, err := s.normalize(u.Data)
			if err != nil {
				s.storage.Delete(name)
				return nil, fmt.Errorf("normalizing image %q: %w", u.Filename, err)
			}
			pdfName, err := s.storage.Save(unique+".pdf", pageData)
			if err != nil {
				s.storage.Delete(name)
				return nil, fmt.Errorf("saving normalized bill %q: %w", u.Filename, err)
			}
			if err := s.storage.Delete(name); err != nil {
				slog.Warn("Failed to remove raw image upload", "name", name, "error", err)
			}
			name = pdfName
		}

		bills = append(bills, BillAsset{Name: name, OriginalName: clean})
	}
	return bills, nil
}

// Process runs one submission through the whole pipeline and returns the
// names of the two produced bundles.
func (s *Service) Process(ctx context.Context, rec Record, uploads []Upload) (*Bundles, error) {
	if err := ValidateUploads(uploads); err != nil {
		return nil, err
	}

	bills, err := s.storeBills(uploads)
	if err != nil {
		return nil, err
	}

	now := s.timeSource.Now()
	mapping, err := PlaceholderMap(rec, now)
	if err != nil {
		return nil, err
	}

	timestamp := now.Format("02012006_150405")
	docxName := fmt.Sprintf("EAF_%s.docx", timestamp)
	if err := s.filler.Fill(s.templatePath, s.storage.Path(docxName), mapping); err != nil {
		return nil, fmt.Errorf("filling template: %w", err)
	}

	pdfName := fmt.Sprintf("EAF_%s.pdf", timestamp)
	if err := s.converter.Convert(ctx, s.storage.Path(docxName), s.storage.Path(pdfName)); err != nil {
		return nil, err
	}

	bundleBase := rec.BundleName
	if bundleBase == "" {
		bundleBase = "Bundle_" + timestamp
	}
	bundleBase = strings.TrimSuffix(sanitizeFilename(bundleBase, "Bundle_"+timestamp), filepath.Ext(bundleBase))

	billPaths := make([]string, 0, len(bills))
	for _, b := range bills {
		billPaths = append(billPaths, s.storage.Path(b.Name))
	}

	bundles := &Bundles{
		Full:      bundleBase + ".pdf",
		BillsOnly: bundleBase + "_Bill.pdf",
	}

	// [filled template pages, bills in upload order]
	if err := s.merger.Merge(append([]string{s.storage.Path(pdfName)}, billPaths...), s.storage.Path(bundles.Full)); err != nil {
		return nil, err
	}
	if err := s.merger.Merge(billPaths, s.storage.Path(bundles.BillsOnly)); err != nil {
		// Neither bundle may survive a failed assembly.
		if delErr := s.storage.Delete(bundles.Full); delErr != nil {
			slog.Warn("Failed to remove partial bundle", "name", bundles.Full, "error", delErr)
		}
		return nil, err
	}

	return bundles, nil
}

// BundleFile retrieves a produced artifact by name for download.
func (s *Service) BundleFile(name string) ([]byte, error) {
	data, err := s.storage.Get(name)
	if err != nil {
		return nil, fmt.Errorf("getting bundle file: %w", err)
	}
	return data, nil
}
