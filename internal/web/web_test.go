package web

import (
	"context"
	"database/sql"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/aaaiserr1401/smart-mabel-kz/internal/config"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/domain"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/services"
	"github.com/aaaiserr1401/smart-mabel-kz/internal/store"
)

type noopNotifier struct{}

func (noopNotifier) Notify(*domain.Lead) {}

func newWebTestStore(t *testing.T) *store.LeadStore {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	db, err := gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        ":memory:",
		Conn:       sqlDB,
	}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Lead{}))

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return store.NewLeadStore(db)
}

func newTestServer(t *testing.T, adminPassword string) (*echo.Echo, *store.LeadStore) {
	t.Helper()

	t.Setenv("SECRET_KEY", "test-secret-key-0123456789abcdef")
	t.Setenv("ADMIN_PASSWORD", adminPassword)
	t.Setenv("NOTIFY_LOG_PATH", "")
	cfg, err := config.Load()
	require.NoError(t, err)

	leadStore := newWebTestStore(t)
	leadSvc := services.NewLeadService(leadStore, noopNotifier{})
	srv := New(cfg, leadSvc, leadStore, nil)
	return srv.NewEcho(), leadStore
}

func postForm(e *echo.Echo, target string, form url.Values, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func loginAndGetSession(t *testing.T, e *echo.Echo, password string) *http.Cookie {
	t.Helper()
	rec := postForm(e, "/admin/login", url.Values{"password": {password}}, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "admin_session" && cookie.Value != "" {
			return cookie
		}
	}
	t.Fatal("no session cookie set after login")
	return nil
}

func adminGet(e *echo.Echo, target string, session *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSubmitLeadSuccess(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")

	rec := postForm(e, "/lead", url.Values{
		"name":    {"Aigerim"},
		"phone":   {"+77001234567"},
		"comment": {""},
	}, map[string]string{"Referer": "https://smartmebel.kz/"})

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/thanks", rec.Header().Get(echo.HeaderLocation))

	leads, err := leadStore.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Aigerim", leads[0].Name)
	assert.Equal(t, domain.StatusNew, leads[0].Status)
	assert.Nil(t, leads[0].UTM)
	require.NotNil(t, leads[0].Referrer)
	assert.Equal(t, "https://smartmebel.kz/", *leads[0].Referrer)
}

func TestSubmitLeadValidationFailure(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")

	rec := postForm(e, "/lead", url.Values{
		"name":  {"   "},
		"phone": {"+77001234567"},
	}, nil)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get(echo.HeaderLocation))

	// Flash cookie carries the validation message
	var flash *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "flash" {
			flash = cookie
		}
	}
	require.NotNil(t, flash)
	msg, err := url.QueryUnescape(flash.Value)
	require.NoError(t, err)
	assert.Equal(t, services.MsgFillNameAndPhone, msg)

	leads, err := leadStore.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestSubmitLeadHoneypotIndistinguishable(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")

	human := postForm(e, "/lead", url.Values{
		"name":  {"Aigerim"},
		"phone": {"+77001234567"},
	}, nil)
	bot := postForm(e, "/lead", url.Values{
		"name":    {"Bot"},
		"phone":   {"+10000000000"},
		"website": {"https://spam.example.com"},
	}, nil)

	// Same status and redirect target for both
	assert.Equal(t, human.Code, bot.Code)
	assert.Equal(t,
		human.Header().Get(echo.HeaderLocation),
		bot.Header().Get(echo.HeaderLocation),
	)

	leads, err := leadStore.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "Aigerim", leads[0].Name)
}

func TestSubmitLeadUTMPrecedence(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")

	// Query parameter wins over the form field
	postForm(e, "/lead?utm=from_query", url.Values{
		"name":  {"Aigerim"},
		"phone": {"+77001234567"},
		"utm":   {"from_form"},
	}, nil)

	// Form field used when the query parameter is absent
	postForm(e, "/lead", url.Values{
		"name":  {"Bolat"},
		"phone": {"+77007654321"},
		"utm":   {"from_form"},
	}, nil)

	leads, err := leadStore.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)

	byName := map[string]domain.Lead{}
	for _, lead := range leads {
		byName[lead.Name] = lead
	}
	require.NotNil(t, byName["Aigerim"].UTM)
	assert.Equal(t, "from_query", *byName["Aigerim"].UTM)
	require.NotNil(t, byName["Bolat"].UTM)
	assert.Equal(t, "from_form", *byName["Bolat"].UTM)
}

func TestAdminRequiresLogin(t *testing.T) {
	e, _ := newTestServer(t, "s3cret")

	rec := adminGet(e, "/admin/leads", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login?next=%2Fadmin%2Fleads", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminLoginFlow(t *testing.T) {
	e, _ := newTestServer(t, "s3cret")

	// Wrong password: back to login, no session
	rec := postForm(e, "/admin/login", url.Values{"password": {"wrong"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get(echo.HeaderLocation))
	for _, cookie := range rec.Result().Cookies() {
		assert.NotEqual(t, "admin_session", cookie.Name)
	}

	// Correct password: session set, redirected to the requested page
	rec = postForm(e, "/admin/login?next=%2Fadmin%2Fleads%3Fpage%3D2", url.Values{"password": {"s3cret"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/leads?page=2", rec.Header().Get(echo.HeaderLocation))

	session := loginAndGetSession(t, e, "s3cret")
	list := adminGet(e, "/admin/leads", session)
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestAdminLoginNoPasswordConfigured(t *testing.T) {
	e, _ := newTestServer(t, "")

	rec := postForm(e, "/admin/login", url.Values{"password": {"anything"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get(echo.HeaderLocation))

	var flash *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "flash" {
			flash = cookie
		}
	}
	require.NotNil(t, flash)
	msg, err := url.QueryUnescape(flash.Value)
	require.NoError(t, err)
	assert.Equal(t, msgAdminPasswordUnset, msg)
}

func TestAdminLoginRejectsExternalNext(t *testing.T) {
	e, _ := newTestServer(t, "s3cret")

	rec := postForm(e, "/admin/login?next=https%3A%2F%2Fevil.example.com", url.Values{"password": {"s3cret"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/leads", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminLogout(t *testing.T) {
	e, _ := newTestServer(t, "s3cret")
	session := loginAndGetSession(t, e, "s3cret")

	rec := adminGet(e, "/admin/logout", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get(echo.HeaderLocation))

	var cleared bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "admin_session" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie must be expired on logout")
}

func TestAdminLeadsPagination(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")
	session := loginAndGetSession(t, e, "s3cret")
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		require.NoError(t, leadStore.Insert(ctx, &domain.Lead{
			Name:      "Visitor",
			Phone:     "+77000000000",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// per_page below the minimum is clamped to 5 → ceil(7/5) = 2 pages
	rec := adminGet(e, "/admin/leads?page=1&per_page=3", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Страница 1 из 2 (по 5)")

	// per_page above the maximum is clamped to 100 → 1 page
	rec = adminGet(e, "/admin/leads?per_page=1000", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Страница 1 из 1 (по 100)")

	// page below 1 is floored
	rec = adminGet(e, "/admin/leads?page=0&per_page=20", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Страница 1 из 1 (по 20)")
}

func TestAdminLeadStatusUpdate(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")
	session := loginAndGetSession(t, e, "s3cret")
	ctx := context.Background()

	lead := &domain.Lead{Name: "Aigerim", Phone: "+77001234567"}
	require.NoError(t, leadStore.Insert(ctx, lead))

	// Out-of-enum value: 400, row unchanged
	req := httptest.NewRequest(http.MethodPost, "/admin/leads/1/status",
		strings.NewReader(url.Values{"status": {"archived"}}.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(session)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	leads, err := leadStore.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, leads[0].Status)

	// Valid value: updated in place, redirected to the list
	req = httptest.NewRequest(http.MethodPost, "/admin/leads/1/status",
		strings.NewReader(url.Values{"status": {"done"}}.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/leads", rec.Header().Get(echo.HeaderLocation))

	leads, err = leadStore.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, leads[0].Status)

	// Page position survives the redirect
	req = httptest.NewRequest(http.MethodPost, "/admin/leads/1/status?page=2&per_page=5",
		strings.NewReader(url.Values{"status": {"spam"}}.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/leads?page=2&per_page=5", rec.Header().Get(echo.HeaderLocation))
}

func TestAdminExportCSVRoundTrip(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")
	session := loginAndGetSession(t, e, "s3cret")
	ctx := context.Background()

	tricky := "He said \"sure\", see\nsecond line"
	utm := "insta,promo"
	require.NoError(t, leadStore.Insert(ctx, &domain.Lead{
		Name:    "Aigerim",
		Phone:   "+77001234567",
		Comment: tricky,
		UTM:     &utm,
	}))

	rec := adminGet(e, "/admin/export.csv", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Equal(t, `attachment; filename=leads.csv`, rec.Header().Get(echo.HeaderContentDisposition))

	records, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"id", "name", "phone", "comment", "utm", "referrer", "created_at", "status"}, records[0])

	row := records[1]
	assert.Equal(t, "Aigerim", row[1])
	// Comma, quote and newline survive quoting exactly
	assert.Equal(t, tricky, row[3])
	assert.Equal(t, "insta,promo", row[4])
	// Absent referrer renders as empty string
	assert.Equal(t, "", row[5])
	assert.Equal(t, "new", row[7])
}

func TestAdminExportHTML(t *testing.T) {
	e, leadStore := newTestServer(t, "s3cret")
	session := loginAndGetSession(t, e, "s3cret")

	require.NoError(t, leadStore.Insert(context.Background(), &domain.Lead{
		Name:  "Aigerim",
		Phone: "+77001234567",
	}))

	rec := adminGet(e, "/admin/export", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Aigerim")
	assert.Contains(t, rec.Body.String(), "+77001234567")
}

func TestStaticFiles(t *testing.T) {
	e, _ := newTestServer(t, "s3cret")

	rec := adminGet(e, "/robots.txt", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "User-agent")

	rec = adminGet(e, "/sitemap.xml", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "urlset")
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, "s3cret")

	rec := adminGet(e, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
