package claim

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Server", func() {
	var (
		storage   *mockStorage
		merger    *mockMerger
		converter *mockConverter
		server    *Server
		ts        *httptest.Server
		client    *http.Client
	)

	BeforeEach(func() {
		storage = newMockStorage()
		merger = &mockMerger{}
		converter = &mockConverter{}
		service := NewServiceWithDeps(storage, &mockFiller{}, converter, merger,
			func(d []byte) ([]byte, error) { return d, nil },
			"/templates/EAF_Template.docx",
			&mockIDGenerator{id: "abc123"},
			&mockTimeSource{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)})

		auth := NewAuth("test-secret", "admin", "password123", nil, nil)
		server = NewServer(service, auth, 10<<20)

		ts = httptest.NewServer(server)
		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{Jar: jar}
	})

	AfterEach(func() {
		ts.Close()
	})

	login := func() {
		resp, err := client.PostForm(ts.URL+"/login", url.Values{
			"username": {"admin"},
			"password": {"password123"},
		})
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
	}

	get := func(path string) (int, string) {
		resp, err := client.Get(ts.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp.StatusCode, string(body)
	}

	submit := func(fields map[string]string, files map[string][]byte) (*http.Response, string) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			Expect(w.WriteField(k, v)).To(Succeed())
		}
		for name, data := range files {
			part, err := w.CreateFormFile("bills", name)
			Expect(err).NotTo(HaveOccurred())
			_, err = part.Write(data)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(w.Close()).To(Succeed())

		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, ts.URL+"/", &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", w.FormDataContentType())
		resp, err := client.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(body)
	}

	Describe("authentication", func() {
		It("redirects anonymous visitors to the login page", func() {
			status, body := get("/")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("Sign in"))
			Expect(body).To(ContainSubstring("Please log in first."))
		})

		It("rejects bad credentials with a flash", func() {
			resp, err := client.PostForm(ts.URL+"/login", url.Values{
				"username": {"admin"},
				"password": {"nope"},
			})
			Expect(err).NotTo(HaveOccurred())
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			Expect(string(body)).To(ContainSubstring("Invalid username or password."))
		})

		It("establishes a session on good credentials", func() {
			login()
			status, body := get("/")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("Log out"))
		})

		It("clears the session on logout", func() {
			login()
			_, _ = get("/logout")
			_, body := get("/")
			Expect(body).To(ContainSubstring("Sign in"))
		})
	})

	Describe("submitting a claim", func() {
		BeforeEach(func() {
			login()
		})

		When("the submission is valid", func() {
			It("renders the download page naming both bundles", func() {
				resp, body := submit(map[string]string{
					"date":         "2024-03-15",
					"amount":       "1500",
					"payment_type": PaymentReimbursement,
				}, map[string][]byte{
					"bill.pdf": []byte("pdf bytes"),
				})
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(body).To(ContainSubstring("Bundle_15032024_100000.pdf"))
				Expect(body).To(ContainSubstring("Bundle_15032024_100000_Bill.pdf"))
			})
		})

		When("no bill files are attached", func() {
			It("returns to the form with the validation message", func() {
				_, body := submit(map[string]string{"amount": "1500"}, nil)
				Expect(body).To(ContainSubstring("at least one bill file"))
			})
		})

		When("a file has a disallowed extension", func() {
			It("returns to the form naming the file", func() {
				_, body := submit(map[string]string{"amount": "1500"}, map[string][]byte{
					"notes.txt": []byte("text"),
				})
				Expect(body).To(ContainSubstring("notes.txt"))
			})
		})
	})

	Describe("downloading artifacts", func() {
		BeforeEach(func() {
			login()
			storage.files["Bundle.pdf"] = []byte("%PDF-1.4 bundle bytes")
		})

		It("serves a produced bundle as an attachment", func() {
			resp, err := client.Get(ts.URL + "/uploads/Bundle.pdf")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(Equal("application/pdf"))
			Expect(resp.Header.Get("Content-Disposition")).To(ContainSubstring(`attachment`))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("%PDF-1.4 bundle bytes"))
		})

		It("redirects to the form when the file is missing", func() {
			status, body := get("/uploads/nope.pdf")
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(ContainSubstring("File not found."))
		})

		It("requires a session", func() {
			_, _ = get("/logout")
			_, body := get("/uploads/Bundle.pdf")
			Expect(body).To(ContainSubstring("Sign in"))
		})
	})
})
