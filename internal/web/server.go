// Package web serves the dashboard as an HTML page and a small JSON API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/rail44/userdash/internal/session"
	"github.com/rail44/userdash/internal/user"
	"github.com/rail44/userdash/internal/view"
)

// Options configures a Server
type Options struct {
	Session     *session.Session
	Collator    *view.Collator
	DefaultSort user.SortField
	LinkScheme  string
	Logger      *slog.Logger
}

// Server renders the shared session state over HTTP
type Server struct {
	session     *session.Session
	collator    *view.Collator
	defaultSort user.SortField
	linkScheme  string
	logger      *slog.Logger
}

// New creates a Server
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.DefaultSort == "" {
		opts.DefaultSort = user.SortByName
	}
	return &Server{
		session:     opts.Session,
		collator:    opts.Collator,
		defaultSort: opts.DefaultSort,
		linkScheme:  opts.LinkScheme,
		logger:      opts.Logger,
	}
}

// Router builds the gin engine with all routes
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.logger))
	router.SetHTMLTemplate(parseTemplates())

	router.GET("/", s.index)
	router.POST("/retry", s.retry)
	router.GET("/healthz", s.healthz)

	api := router.Group("/api")
	api.GET("/users", s.listUsers)

	return router
}

type sortOption struct {
	Value    user.SortField
	Label    string
	Selected bool
}

type htmlRow struct {
	view.Row
	Link string
}

type indexData struct {
	State       string
	Message     string
	Total       int
	Search      string
	Sort        user.SortField
	SortOptions []sortOption
	Rows        []htmlRow
}

// sortParam reads the sort query value. An empty value selects the default.
func (s *Server) sortParam(raw string) (user.SortField, error) {
	if raw == "" {
		return s.defaultSort, nil
	}
	return user.ParseSortField(raw)
}

func (s *Server) index(c *gin.Context) {
	search := c.Query("q")
	sort, err := s.sortParam(c.Query("sort"))
	if err != nil {
		sort = s.defaultSort
	}

	st := s.session.State()
	data := indexData{
		State:  session.Name(st),
		Search: search,
		Sort:   sort,
	}
	for _, f := range user.SortFields() {
		data.SortOptions = append(data.SortOptions, sortOption{Value: f, Label: f.Label(), Selected: f == sort})
	}

	switch st := st.(type) {
	case session.Failed:
		data.Message = st.Message
	case session.Ready:
		data.Total = len(st.Users)
		for _, r := range view.Rows(view.Derive(st.Users, search, sort, s.collator), search, s.collator) {
			data.Rows = append(data.Rows, htmlRow{Row: r, Link: r.User.Link(s.linkScheme)})
		}
	}

	c.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) retry(c *gin.Context) {
	// The fetch outlives a client that disconnects mid-request
	s.session.Retry(context.WithoutCancel(c.Request.Context()))

	q := url.Values{}
	if v := c.PostForm("q"); v != "" {
		q.Set("q", v)
	}
	if v := c.PostForm("sort"); v != "" {
		q.Set("sort", v)
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "state": session.Name(s.session.State())})
}

type apiUser struct {
	user.User
	NameSegments  []view.Segment `json:"name_segments"`
	EmailSegments []view.Segment `json:"email_segments"`
	Link          string         `json:"link"`
}

func (s *Server) listUsers(c *gin.Context) {
	search := c.Query("q")
	sort, err := s.sortParam(c.Query("sort"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch st := s.session.State().(type) {
	case session.Loading:
		c.JSON(http.StatusAccepted, gin.H{"status": "loading"})
	case session.Failed:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": st.Message})
	case session.Ready:
		rows := view.Rows(view.Derive(st.Users, search, sort, s.collator), search, s.collator)
		users := make([]apiUser, len(rows))
		for i, r := range rows {
			users[i] = apiUser{User: r.User, NameSegments: r.Name, EmailSegments: r.Email, Link: r.User.Link(s.linkScheme)}
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"total":  len(st.Users),
			"count":  len(users),
			"search": search,
			"sort":   sort,
			"users":  users,
		})
	}
}
