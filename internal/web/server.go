package web

import (
	"embed"
	"html/template"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/config"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/metrics"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/services"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Server wires the HTTP surface: the public lead form and the admin area
type Server struct {
	cfg   *config.Config
	leads *services.LeadService
	store *store.LeadStore

	// healthCheck pings the storage backend; nil disables the db probe
	healthCheck func() error
}

// New creates a web server
func New(cfg *config.Config, leadSvc *services.LeadService, leadStore *store.LeadStore, healthCheck func() error) *Server {
	return &Server{
		cfg:         cfg,
		leads:       leadSvc,
		store:       leadStore,
		healthCheck: healthCheck,
	}
}

// templateRenderer adapts html/template to echo's Renderer interface
type templateRenderer struct {
	templates *template.Template
}

func (t *templateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// requestValidator adapts go-playground/validator to echo's Validator interface
type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// NewEcho builds the echo instance with all routes and middleware mounted
func (s *Server) NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Renderer = &templateRenderer{
		templates: template.Must(template.ParseFS(templateFS, "templates/*.html")),
	}
	e.Validator = &requestValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(metrics.Middleware())
	e.Use(middleware.Secure())

	// Public pages
	e.GET("/", s.Index)
	e.POST("/lead", s.SubmitLead)
	e.GET("/thanks", s.Thanks)
	e.GET("/robots.txt", s.RobotsTxt)
	e.GET("/sitemap.xml", s.SitemapXML)
	e.GET("/health", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Admin area
	e.GET("/admin/login", s.AdminLoginPage)
	e.POST("/admin/login", s.AdminLogin)
	e.GET("/admin/logout", s.AdminLogout)

	admin := e.Group("/admin", s.RequireAdmin)
	admin.GET("", s.AdminRoot)
	admin.GET("/leads", s.AdminLeads)
	admin.POST("/leads/:id/status", s.AdminLeadStatus)
	admin.GET("/export.csv", s.AdminExportCSV)
	admin.GET("/export", s.AdminExportHTML)

	return e
}

// siteData returns the template values shared by every page
func (s *Server) siteData() map[string]interface{} {
	return map[string]interface{}{
		"WhatsAppNumber":  s.cfg.Site.WhatsAppNumber,
		"InstagramHandle": s.cfg.Site.InstagramHandle,
		"InstagramURL":    s.cfg.Site.InstagramURL,
		"SiteDomain":      s.cfg.Site.Domain,
	}
}
