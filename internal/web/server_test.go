package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rail44/userdash/internal/session"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
	"github.com/rail44/userdash/internal/web"
)

type mockFetcher struct {
	fetchFn func(ctx context.Context) ([]user.User, error)
	calls   int
}

func (m *mockFetcher) Fetch(ctx context.Context) ([]user.User, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx)
	}
	return nil, nil
}

var users = []user.User{
	{ID: 1, Name: "Leanne Graham", Username: "Bret", Email: "Sincere@april.biz", Phone: "1-770-736-8031 x56442", Website: "hildegard.org"},
	{ID: 3, Name: "Clementine Bauch", Username: "Samantha", Email: "Nathan@yesenia.net", Phone: "1-463-123-4447", Website: "ramiro.info"},
	{ID: 4, Name: "Patricia <b>Lebsack</b>", Username: "Karianne", Email: "Julianne.OConner@kory.org", Phone: "493-170-9623 x156", Website: "kale.biz"},
}

var _ = Describe("Server", func() {
	var (
		router  *gin.Engine
		fetcher *mockFetcher
		sess    *session.Session
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
		fetcher = &mockFetcher{fetchFn: func(context.Context) ([]user.User, error) { return users, nil }}
		sess = session.New(fetcher, quiet)
		collator, err := view.NewCollator("en")
		Expect(err).NotTo(HaveOccurred())

		router = web.New(web.Options{
			Session:    sess,
			Collator:   collator,
			LinkScheme: "http://",
			Logger:     quiet,
		}).Router()
	})

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	Describe("GET /", func() {
		It("shows the loading state before the first fetch completes", func() {
			w := get("/")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(ContainSubstring("Loading users..."))
		})

		It("refreshes the loading page until the fetch settles", func() {
			Expect(get("/?q=me").Body.String()).To(ContainSubstring(`<meta http-equiv="refresh" content="1">`))

			sess.Refresh(context.Background())
			Expect(get("/?q=me").Body.String()).NotTo(ContainSubstring(`http-equiv="refresh"`))
		})

		It("renders every user with the unfiltered total", func() {
			sess.Refresh(context.Background())

			body := get("/").Body.String()
			Expect(body).To(ContainSubstring("Total Users: <strong>3</strong>"))
			Expect(strings.Count(body, "<tr><td colspan")).To(Equal(0))
			Expect(body).To(ContainSubstring(`<a href="http://hildegard.org"`))
			Expect(body).To(ContainSubstring(`<option value="name" selected>Sort by Name</option>`))
		})

		It("filters and highlights matches as escaped text", func() {
			sess.Refresh(context.Background())

			body := get("/?q=me").Body.String()
			Expect(body).To(ContainSubstring("Cle<mark>me</mark>ntine Bauch"))
			Expect(body).NotTo(ContainSubstring("Leanne Graham"))
			Expect(body).To(ContainSubstring("Total Users: <strong>3</strong>"))
		})

		It("never injects markup from user data", func() {
			sess.Refresh(context.Background())

			body := get("/?q=" + url.QueryEscape("<b>")).Body.String()
			Expect(body).To(ContainSubstring("Patricia <mark>&lt;b&gt;</mark>Lebsack&lt;/b&gt;"))
			Expect(body).NotTo(ContainSubstring("<b>Lebsack"))
		})

		It("shows a single empty row when nothing matches", func() {
			sess.Refresh(context.Background())

			body := get("/?q=nobody").Body.String()
			Expect(body).To(ContainSubstring(`<td colspan="6">No users found</td>`))
		})

		It("orders rows by the selected field", func() {
			sess.Refresh(context.Background())

			body := get("/?sort=email").Body.String()
			julianne := strings.Index(body, "Julianne.OConner")
			nathan := strings.Index(body, "Nathan@yesenia")
			sincere := strings.Index(body, "Sincere@april")
			Expect(julianne).To(BeNumerically("<", nathan))
			Expect(nathan).To(BeNumerically("<", sincere))
			Expect(body).To(ContainSubstring(`<option value="email" selected>`))
		})

		It("shows the error and a retry control after a failed fetch", func() {
			fetcher.fetchFn = func(context.Context) ([]user.User, error) { return nil, errors.New("connection refused") }
			sess.Refresh(context.Background())

			body := get("/").Body.String()
			Expect(body).To(ContainSubstring("Error: connection refused"))
			Expect(body).To(ContainSubstring(`class="retry-btn"`))
			Expect(body).NotTo(ContainSubstring("Total Users"))
		})
	})

	Describe("POST /retry", func() {
		It("issues exactly one fetch and keeps search and sort", func() {
			fetcher.fetchFn = func(context.Context) ([]user.User, error) { return nil, errors.New("boom") }
			sess.Refresh(context.Background())
			Expect(fetcher.calls).To(Equal(1))

			fetcher.fetchFn = func(context.Context) ([]user.User, error) { return users, nil }
			form := url.Values{"q": {"an"}, "sort": {"username"}}
			req := httptest.NewRequest(http.MethodPost, "/retry", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			Expect(w.Code).To(Equal(http.StatusSeeOther))
			Expect(w.Header().Get("Location")).To(Equal("/?q=an&sort=username"))
			Expect(fetcher.calls).To(Equal(2))
			Expect(sess.State()).To(BeAssignableToTypeOf(session.Ready{}))
		})
	})

	Describe("GET /api/users", func() {
		type apiResponse struct {
			Status string `json:"status"`
			Error  string `json:"error"`
			Total  int    `json:"total"`
			Count  int    `json:"count"`
			Users  []struct {
				ID           int            `json:"id"`
				Name         string         `json:"name"`
				Link         string         `json:"link"`
				NameSegments []view.Segment `json:"name_segments"`
			} `json:"users"`
		}

		decode := func(w *httptest.ResponseRecorder) apiResponse {
			var resp apiResponse
			Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
			return resp
		}

		It("reports loading with 202", func() {
			w := get("/api/users")
			Expect(w.Code).To(Equal(http.StatusAccepted))
			Expect(decode(w).Status).To(Equal("loading"))
		})

		It("returns the derived list with highlight segments", func() {
			sess.Refresh(context.Background())

			w := get("/api/users?q=ME&sort=name")
			Expect(w.Code).To(Equal(http.StatusOK))
			resp := decode(w)
			Expect(resp.Total).To(Equal(3))
			Expect(resp.Count).To(Equal(1))
			Expect(resp.Users[0].ID).To(Equal(3))
			Expect(resp.Users[0].Link).To(Equal("http://ramiro.info"))
			Expect(resp.Users[0].NameSegments).To(Equal([]view.Segment{
				{Text: "Cle"}, {Text: "me", Match: true}, {Text: "ntine Bauch"},
			}))
		})

		It("rejects an unknown sort field", func() {
			sess.Refresh(context.Background())

			w := get("/api/users?sort=phone")
			Expect(w.Code).To(Equal(http.StatusBadRequest))
			Expect(decode(w).Error).To(ContainSubstring("invalid sort field"))
		})

		It("reports a failed fetch with 503", func() {
			fetcher.fetchFn = func(context.Context) ([]user.User, error) { return nil, errors.New("boom") }
			sess.Refresh(context.Background())

			w := get("/api/users")
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(decode(w).Error).To(Equal("boom"))
		})
	})

	It("reports health with the current state", func() {
		w := get("/healthz")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"state":"loading"`))
	})
})
