package claim

import (
	"context"
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockStorage is a mock implementation of Storage
type mockStorage struct {
	files     map[string][]byte
	saveErr   error
	getErr    error
	deleteErr error
	deleted   []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		files: make(map[string][]byte),
	}
}

func (m *mockStorage) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.files[filename] = data
	return filename, nil
}

func (m *mockStorage) Get(name string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.files[name]
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (m *mockStorage) Delete(name string) error {
	m.deleted = append(m.deleted, name)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.files[name]; !ok {
		return errors.New("file not found")
	}
	delete(m.files, name)
	return nil
}

func (m *mockStorage) Path(name string) string {
	return filepath.Join("/store", filepath.Base(name))
}

func (m *mockStorage) Exists(name string) bool {
	_, ok := m.files[name]
	return ok
}

// mockFiller is a mock implementation of TemplateFiller
type mockFiller struct {
	templatePath string
	outPath      string
	mapping      map[string]string
	fillErr      error
}

func (m *mockFiller) Fill(templatePath, outPath string, mapping map[string]string) error {
	m.templatePath = templatePath
	m.outPath = outPath
	m.mapping = mapping
	return m.fillErr
}

// mockConverter is a mock implementation of Converter
type mockConverter struct {
	inPath     string
	outPath    string
	convertErr error
}

func (m *mockConverter) Convert(ctx context.Context, inPath, outPath string) error {
	m.inPath = inPath
	m.outPath = outPath
	return m.convertErr
}

// mockMerger is a mock implementation of Merger
type mockMerger struct {
	calls    [][]string
	outPaths []string
	failOn   int // 1-based call number that fails, 0 for never
	mergeErr error
}

func (m *mockMerger) Merge(inPaths []string, outPath string) error {
	m.calls = append(m.calls, append([]string(nil), inPaths...))
	m.outPaths = append(m.outPaths, outPath)
	if m.failOn != 0 && len(m.calls) == m.failOn {
		return m.mergeErr
	}
	return nil
}

// mockIDGenerator is a mock implementation of IDGenerator
type mockIDGenerator struct {
	id string
}

func (m *mockIDGenerator) Generate() string {
	return m.id
}

// mockTimeSource is a mock implementation of TimeSource
type mockTimeSource struct {
	now time.Time
}

func (m *mockTimeSource) Now() time.Time {
	return m.now
}

var _ = Describe("Service", func() {
	var (
		storage      *mockStorage
		filler       *mockFiller
		converter    *mockConverter
		merger       *mockMerger
		normalize    func([]byte) ([]byte, error)
		normalizeErr error
		idGen        *mockIDGenerator
		timeSrc      *mockTimeSource
		service      *Service

		rec     Record
		uploads []Upload
		bundles *Bundles
		err     error
	)

	BeforeEach(func() {
		storage = newMockStorage()
		filler = &mockFiller{}
		converter = &mockConverter{}
		merger = &mockMerger{}
		normalizeErr = nil
		normalize = func(data []byte) ([]byte, error) {
			if normalizeErr != nil {
				return nil, normalizeErr
			}
			return append([]byte("pdfpage:"), data...), nil
		}
		idGen = &mockIDGenerator{id: "abc123"}
		timeSrc = &mockTimeSource{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}

		rec = Record{
			Date:        "2024-03-15",
			Amount:      "1500",
			PaymentType: PaymentReimbursement,
		}
		uploads = []Upload{
			{Filename: "bill.pdf", Data: []byte("pdf bytes")},
			{Filename: "photo.png", Data: []byte("png bytes")},
		}
	})

	JustBeforeEach(func() {
		service = NewServiceWithDeps(storage, filler, converter, merger,
			func(d []byte) ([]byte, error) { return normalize(d) },
			"/templates/EAF_Template.docx", idGen, timeSrc)
		bundles, err = service.Process(context.Background(), rec, uploads)
	})

	When("the submission is valid", func() {
		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("stores the PDF bill as uploaded", func() {
			Expect(storage.files).To(HaveKeyWithValue("abc123_bill.pdf", []byte("pdf bytes")))
		})

		It("normalizes the image bill into a PDF artifact", func() {
			Expect(storage.files).To(HaveKeyWithValue("abc123_photo.png.pdf", []byte("pdfpage:png bytes")))
		})

		It("removes the raw image upload after normalizing", func() {
			Expect(storage.files).NotTo(HaveKey("abc123_photo.png"))
		})

		It("fills the fixed template with the claim mapping", func() {
			Expect(filler.templatePath).To(Equal("/templates/EAF_Template.docx"))
			Expect(filler.outPath).To(Equal("/store/EAF_15032024_100000.docx"))
			Expect(filler.mapping).To(HaveKeyWithValue("{{R}}", "✔"))
			Expect(filler.mapping).To(HaveKeyWithValue("{{DATE}}", "15-03-2024"))
		})

		It("converts the filled template", func() {
			Expect(converter.inPath).To(Equal("/store/EAF_15032024_100000.docx"))
			Expect(converter.outPath).To(Equal("/store/EAF_15032024_100000.pdf"))
		})

		It("merges the full bundle as template then bills in upload order", func() {
			Expect(merger.calls).To(HaveLen(2))
			Expect(merger.calls[0]).To(Equal([]string{
				"/store/EAF_15032024_100000.pdf",
				"/store/abc123_bill.pdf",
				"/store/abc123_photo.png.pdf",
			}))
			Expect(merger.outPaths[0]).To(Equal("/store/Bundle_15032024_100000.pdf"))
		})

		It("merges the bills-only bundle in the same bill order", func() {
			Expect(merger.calls[1]).To(Equal([]string{
				"/store/abc123_bill.pdf",
				"/store/abc123_photo.png.pdf",
			}))
			Expect(merger.outPaths[1]).To(Equal("/store/Bundle_15032024_100000_Bill.pdf"))
		})

		It("returns both bundle names", func() {
			Expect(bundles.Full).To(Equal("Bundle_15032024_100000.pdf"))
			Expect(bundles.BillsOnly).To(Equal("Bundle_15032024_100000_Bill.pdf"))
		})
	})

	When("a bundle filename is supplied", func() {
		BeforeEach(func() {
			rec.BundleName = "March Claim"
		})

		It("names both outputs after it", func() {
			Expect(bundles.Full).To(Equal("March Claim.pdf"))
			Expect(bundles.BillsOnly).To(Equal("March Claim_Bill.pdf"))
		})
	})

	When("an upload has a disallowed extension", func() {
		BeforeEach(func() {
			uploads = append(uploads, Upload{Filename: "notes.txt"})
		})

		It("rejects with a ValidationError", func() {
			var validationErr *ValidationError
			Expect(err).To(BeAssignableToTypeOf(validationErr))
		})

		It("writes nothing to storage", func() {
			Expect(storage.files).To(BeEmpty())
		})
	})

	When("a budget figure is not numeric", func() {
		BeforeEach(func() {
			rec.BudgetedAmount = "plenty"
			rec.AmountSpent = "10"
		})

		It("rejects with a FormatError", func() {
			var formatErr *FormatError
			Expect(err).To(BeAssignableToTypeOf(formatErr))
		})

		It("never reaches the converter", func() {
			Expect(converter.inPath).To(BeEmpty())
		})
	})

	When("image normalization fails", func() {
		BeforeEach(func() {
			normalizeErr = errors.New("bad image")
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(ContainSubstring("bad image")))
		})

		It("cleans up the raw upload", func() {
			Expect(storage.files).NotTo(HaveKey("abc123_photo.png"))
		})
	})

	When("the converter fails", func() {
		var setupErr error

		BeforeEach(func() {
			setupErr = errors.New("soffice exited 1")
			converter.convertErr = setupErr
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(setupErr))
		})

		It("never merges", func() {
			Expect(merger.calls).To(BeEmpty())
		})
	})

	When("the bills-only merge fails", func() {
		BeforeEach(func() {
			merger.failOn = 2
			merger.mergeErr = errors.New("corrupt page tree")
		})

		It("returns the error", func() {
			Expect(err).To(MatchError(merger.mergeErr))
		})

		It("exposes neither bundle", func() {
			Expect(bundles).To(BeNil())
		})

		It("removes the already-written full bundle", func() {
			Expect(storage.deleted).To(ContainElement("Bundle_15032024_100000.pdf"))
		})
	})
})

var _ = Describe("sanitizeFilename", func() {
	It("keeps a plain name", func() {
		Expect(sanitizeFilename("bill.pdf", "bill")).To(Equal("bill.pdf"))
	})

	It("strips special characters", func() {
		Expect(sanitizeFilename("IMG#20240315(1).jpeg", "bill")).To(Equal("IMG202403151.jpeg"))
	})

	It("collapses whitespace", func() {
		Expect(sanitizeFilename("my   scanned    bill.png", "bill")).To(Equal("my scanned bill.png"))
	})

	It("falls back when nothing survives", func() {
		Expect(sanitizeFilename("@#$.pdf", "bill")).To(Equal("bill.pdf"))
	})
})
