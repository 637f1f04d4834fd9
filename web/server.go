// ABOUTME: Web status server with inline templates
// ABOUTME: Serves a read-only integration dashboard, contact search, health and Prometheus metrics
package web

import (
	"context"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/peoplesync/models"
)

const contactsPageLimit = 100

// IntegrationLister lists every configured integration.
type IntegrationLister interface {
	ListIntegrations(ctx context.Context) ([]models.Integration, error)
}

// TriggerGetter returns the armed trigger of an integration, or nil.
type TriggerGetter interface {
	Get(ctx context.Context, integrationID string) (*models.Trigger, error)
}

// ContactFinder searches the contacts synced for a user.
type ContactFinder interface {
	ListContacts(ctx context.Context, userID, query string, limit int) ([]models.Contact, error)
}

// Server renders the read-only status pages.
type Server struct {
	integrations IntegrationLister
	triggers     TriggerGetter
	contacts     ContactFinder
	registry     *prometheus.Registry
	templates    *template.Template
	logger       *log.Logger
}

// NewServer builds a Server. A nil registry disables /metrics.
func NewServer(integrations IntegrationLister, triggers TriggerGetter, contacts ContactFinder, registry *prometheus.Registry, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	funcMap := template.FuncMap{
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"when": func(t *time.Time) string {
			if t == nil {
				return "never"
			}
			return t.UTC().Format(time.RFC3339)
		},
	}

	return &Server{
		integrations: integrations,
		triggers:     triggers,
		contacts:     contacts,
		registry:     registry,
		templates:    template.Must(template.New("").Funcs(funcMap).Parse(pageTemplates)),
		logger:       logger,
	}
}

// Handler returns the routes of the status server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, s.requestLogger)

	r.Get("/", s.handleDashboard)
	r.Get("/contacts", s.handleContacts)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "ok\n")
	})
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry}))
	}
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// HTTPServer wraps Handler in a server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
}

type integrationRow struct {
	models.Integration
	Cursor  string
	NextRun string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	integrations, err := s.integrations.ListIntegrations(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	rows := make([]integrationRow, 0, len(integrations))
	for _, integ := range integrations {
		row := integrationRow{Integration: integ, Cursor: integ.CursorState(), NextRun: "-"}
		trigger, err := s.triggers.Get(r.Context(), integ.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if trigger != nil {
			row.NextRun = trigger.RunAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, row)
	}

	s.renderTemplate(w, "dashboard", map[string]interface{}{
		"Title":        "Integrations",
		"Integrations": rows,
	})
}

func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	if userID == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	query := r.URL.Query().Get("q")

	contacts, err := s.contacts.ListContacts(r.Context(), userID, query, contactsPageLimit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.renderTemplate(w, "contacts", map[string]interface{}{
		"Title":    "Contacts for " + userID,
		"User":     userID,
		"Query":    query,
		"Contacts": contacts,
	})
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("template error", "template", name, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

const pageTemplates = `
{{define "header"}}<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>peoplesync - {{.Title}}</title></head>
<body><h1>{{.Title}}</h1>{{end}}

{{define "footer"}}</body></html>{{end}}

{{define "dashboard"}}{{template "header" .}}
{{if .Integrations}}
<table>
<tr><th>User</th><th>Enabled</th><th>Status</th><th>Last sync</th><th>Cursor</th><th>Next run</th><th>Error</th></tr>
{{range .Integrations}}<tr>
<td><a href="/contacts?user={{.UserID}}">{{.UserID}}</a></td>
<td>{{.Enabled}}</td><td>{{.Status}}</td><td>{{when .LastSyncTime}}</td>
<td>{{.Cursor}}</td><td>{{.NextRun}}</td><td>{{deref .ErrorMessage}}</td>
</tr>{{end}}
</table>
{{else}}<p>No integrations configured.</p>{{end}}
{{template "footer" .}}{{end}}

{{define "contacts"}}{{template "header" .}}
<form action="/contacts"><input type="hidden" name="user" value="{{.User}}">
<input name="q" value="{{.Query}}" placeholder="name, company or email"></form>
<table>
<tr><th>Name</th><th>Email</th><th>Phone</th><th>Company</th><th>Title</th></tr>
{{range .Contacts}}<tr>
<td>{{.Name}}</td><td>{{.PrimaryEmail}}</td><td>{{.PrimaryPhone}}</td><td>{{.Company}}</td><td>{{.JobTitle}}</td>
</tr>{{end}}
</table>
<p>{{len .Contacts}} contact(s)</p>
{{template "footer" .}}{{end}}
`
