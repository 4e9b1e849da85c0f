package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/services"
	apperrors "github.com/aaaiserr1401/smart-mabel-kz/pkg/errors"
)

// Index renders the landing page with the lead form
func (s *Server) Index(c echo.Context) error {
	data := s.siteData()
	data["Flash"] = popFlash(c)
	data["UTM"] = c.QueryParam("utm")
	return c.Render(http.StatusOK, "index.html", data)
}

// SubmitLead handles the public lead form submission
func (s *Server) SubmitLead(c echo.Context) error {
	// Campaign tag: explicit query parameter wins, form field is the fallback
	utm := c.QueryParam("utm")
	if utm == "" {
		utm = c.FormValue("utm")
	}

	result, _, err := s.leads.Submit(c.Request().Context(), services.SubmitInput{
		Name:     c.FormValue("name"),
		Phone:    c.FormValue("phone"),
		Comment:  c.FormValue("comment"),
		UTM:      utm,
		Referrer: c.Request().Referer(),
		Honeypot: c.FormValue("website"),
	})

	switch result {
	case services.SubmitInvalid:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && apperrors.IsValidation(err) {
			setFlash(c, appErr.Message)
			return c.Redirect(http.StatusSeeOther, "/")
		}
		// Storage failure is the only error allowed to fail the request
		log.Printf("[WEB] Lead submission failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save lead")
	default:
		// Stored and honeypot-discarded submissions get the same redirect,
		// so bots learn nothing from the response
		return c.Redirect(http.StatusSeeOther, "/thanks")
	}
}

// Thanks renders the submission confirmation page
func (s *Server) Thanks(c echo.Context) error {
	return c.Render(http.StatusOK, "thanks.html", s.siteData())
}

// RobotsTxt serves the embedded robots.txt verbatim
func (s *Server) RobotsTxt(c echo.Context) error {
	data, err := staticFS.ReadFile("static/robots.txt")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.Blob(http.StatusOK, "text/plain; charset=utf-8", data)
}

// SitemapXML serves the embedded sitemap.xml verbatim
func (s *Server) SitemapXML(c echo.Context) error {
	data, err := staticFS.ReadFile("static/sitemap.xml")
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound)
	}
	return c.Blob(http.StatusOK, "application/xml", data)
}

// Health reports process and storage health
func (s *Server) Health(c echo.Context) error {
	if s.healthCheck != nil {
		if err := s.healthCheck(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":   "unhealthy",
				"database": "down",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": s.cfg.App.Name,
	})
}
