package web

import (
	"encoding/csv"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/domain"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/metrics"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/util"
	apperrors "github.com/aaaiserr1401/smart-mabel-kz/pkg/errors"
)

const (
	defaultPerPage = 20
	minPerPage     = 5
	maxPerPage     = 100
)

// Messages shown to the operator on the login page
const (
	msgAdminPasswordUnset = "ADMIN_PASSWORD не задан в переменных окружения."
	msgWrongPassword      = "Неверный пароль."
)

// AdminLoginPage renders the admin login form
func (s *Server) AdminLoginPage(c echo.Context) error {
	data := s.siteData()
	data["Flash"] = popFlash(c)
	data["Next"] = c.QueryParam("next")
	return c.Render(http.StatusOK, "admin_login.html", data)
}

// loginForm is the admin login payload
type loginForm struct {
	Password string `form:"password" validate:"required"`
}

// AdminLogin checks the password and establishes the admin session
func (s *Server) AdminLogin(c echo.Context) error {
	next := c.QueryParam("next")
	loginURL := "/admin/login"
	if next != "" {
		loginURL += "?next=" + url.QueryEscape(next)
	}

	if s.cfg.Auth.AdminPassword == "" {
		// Operator misconfiguration, not a bad password
		setFlash(c, msgAdminPasswordUnset)
		return c.Redirect(http.StatusSeeOther, loginURL)
	}

	var form loginForm
	if err := c.Bind(&form); err != nil {
		setFlash(c, msgWrongPassword)
		return c.Redirect(http.StatusSeeOther, loginURL)
	}

	if !util.CheckAdminPassword(s.cfg.Auth.AdminPassword, form.Password) {
		metrics.RecordAdminLogin(false)
		setFlash(c, msgWrongPassword)
		return c.Redirect(http.StatusSeeOther, loginURL)
	}

	if err := s.startSession(c); err != nil {
		log.Printf("[WEB] Failed to start admin session: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to start session")
	}
	metrics.RecordAdminLogin(true)
	return c.Redirect(http.StatusSeeOther, safeNext(next))
}

// AdminLogout clears the admin session
func (s *Server) AdminLogout(c echo.Context) error {
	clearSession(c)
	return c.Redirect(http.StatusFound, "/admin/login")
}

// AdminRoot redirects to the lead list
func (s *Server) AdminRoot(c echo.Context) error {
	return c.Redirect(http.StatusFound, "/admin/leads")
}

// AdminLeads renders the paginated lead list
func (s *Server) AdminLeads(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	perPage := parseIntDefault(c.QueryParam("per_page"), defaultPerPage)
	if perPage < minPerPage {
		perPage = minPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	offset := (page - 1) * perPage

	ctx := c.Request().Context()
	leads, err := s.store.List(ctx, perPage, offset)
	if err != nil {
		log.Printf("[WEB] Failed to list leads: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list leads")
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		log.Printf("[WEB] Failed to count leads: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to count leads")
	}

	pages := (total + int64(perPage) - 1) / int64(perPage)

	data := s.siteData()
	data["Flash"] = popFlash(c)
	data["Leads"] = leads
	data["Page"] = page
	data["Pages"] = pages
	data["PerPage"] = perPage
	data["Total"] = total
	data["Statuses"] = []string{domain.StatusNew, domain.StatusInProgress, domain.StatusDone, domain.StatusSpam}
	data["HasPrev"] = page > 1
	data["PrevPage"] = page - 1
	data["HasNext"] = int64(page) < pages
	data["NextPage"] = page + 1
	return c.Render(http.StatusOK, "admin_leads.html", data)
}

// statusForm is the lead status mutation payload
type statusForm struct {
	Status string `form:"status" validate:"required,oneof=new in_progress done spam"`
}

// AdminLeadStatus updates a single lead's status
func (s *Server) AdminLeadStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lead id")
	}

	var form statusForm
	if err := c.Bind(&form); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	if err := c.Validate(&form); err != nil {
		return err
	}

	// Send the operator back to the page they were looking at
	listURL := "/admin/leads"
	if page := c.QueryParam("page"); page != "" {
		listURL += "?page=" + url.QueryEscape(page)
		if perPage := c.QueryParam("per_page"); perPage != "" {
			listURL += "&per_page=" + url.QueryEscape(perPage)
		}
	}

	if err := s.store.UpdateStatus(c.Request().Context(), uint(id), form.Status); err != nil {
		switch {
		case apperrors.IsValidation(err):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status")
		case apperrors.IsNotFound(err):
			return echo.NewHTTPError(http.StatusNotFound, "lead not found")
		default:
			log.Printf("[WEB] Failed to update lead status: %v", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to update status")
		}
	}

	return c.Redirect(http.StatusSeeOther, listURL)
}

// csvHeader matches the documented export column order
var csvHeader = []string{"id", "name", "phone", "comment", "utm", "referrer", "created_at", "status"}

// AdminExportCSV streams the full lead table as a CSV attachment
func (s *Server) AdminExportCSV(c echo.Context) error {
	leads, err := s.store.ListAll(c.Request().Context())
	if err != nil {
		log.Printf("[WEB] CSV export failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export leads")
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename=leads.csv`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, lead := range leads {
		record := []string{
			strconv.FormatUint(uint64(lead.ID), 10),
			lead.Name,
			lead.Phone,
			lead.Comment,
			derefOrEmpty(lead.UTM),
			derefOrEmpty(lead.Referrer),
			lead.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			lead.Status,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// AdminExportHTML renders the full lead table as a printable report
func (s *Server) AdminExportHTML(c echo.Context) error {
	leads, err := s.store.ListAll(c.Request().Context())
	if err != nil {
		log.Printf("[WEB] HTML export failed: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to export leads")
	}

	data := s.siteData()
	data["Leads"] = leads
	data["Total"] = len(leads)
	return c.Render(http.StatusOK, "admin_export.html", data)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
