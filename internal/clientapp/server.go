package clientapp

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mrkishore97/production-scheduler-v3/internal/logutil"
	"github.com/mrkishore97/production-scheduler-v3/internal/middleware"
	"github.com/mrkishore97/production-scheduler-v3/internal/orderbook"
)

const (
	csrfHeaderName    = "X-CSRF-Token"
	sessionCookieName = "scheduler_session"
)

var logger = logutil.InitLogger()

type Config struct {
	Addr         string
	APIBaseURL   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type pageData struct {
	Error   string
	Message string
	CSRF    string

	Username      string
	IsAdmin       bool
	CustomerNames []string

	Book    *orderBookView
	Summary *summaryView
	Filters filterValues

	Grid      *orderbook.MonthGrid
	PrevYear  int
	PrevMonth int
	NextYear  int
	NextMonth int
}

type identityView struct {
	ID            int64    `json:"id"`
	Username      string   `json:"username"`
	IsAdmin       bool     `json:"isAdmin"`
	CustomerNames []string `json:"customerNames"`
}

type authTokenResponse struct {
	CSRFToken string `json:"csrfToken"`
}

type orderView struct {
	WO               string   `json:"wo"`
	Quote            string   `json:"quote"`
	PONumber         string   `json:"po_number"`
	Status           string   `json:"status"`
	CustomerName     string   `json:"customer_name"`
	ModelDescription string   `json:"model_description"`
	ScheduledDate    string   `json:"scheduled_date"`
	Price            *float64 `json:"price"`

	StatusClass  string `json:"-"`
	DateDisplay  string `json:"-"`
	PriceValue   string `json:"-"`
	PriceDisplay string `json:"-"`
}

type orderBookView struct {
	Columns      []string    `json:"columns"`
	Orders       []orderView `json:"orders"`
	Count        int         `json:"count"`
	UploadedName string      `json:"uploadedName"`
	ImportedAt   string      `json:"importedAt"`

	ImportedAtDisplay string `json:"-"`
}

type summaryView struct {
	Orders       int            `json:"orders"`
	Scheduled    int            `json:"scheduled"`
	TotalValue   float64        `json:"total_value"`
	TopStatus    string         `json:"top_status"`
	StatusCounts map[string]int `json:"status_counts"`

	TotalDisplay string            `json:"-"`
	Breakdown    []statusCountView `json:"-"`
}

type statusCountView struct {
	Status  string
	Count   int
	Percent int
	Class   string
}

type filterValues struct {
	Quote    string
	PO       string
	Status   string
	Customer string
	Model    string
	Match    string
	Date     string
	Month    string
}

//go:embed templates/login.html templates/orders.html templates/customer_orders.html templates/calendar.html templates/print.html assets/app.css
var templatesFS embed.FS

type server struct {
	apiBaseURL         string
	apiClient          *http.Client
	loginTmpl          *template.Template
	ordersTmpl         *template.Template
	customerOrdersTmpl *template.Template
	calendarTmpl       *template.Template
	printTmpl          *template.Template
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:         envOrDefault("CLIENT_ADDR", ":3000"),
		APIBaseURL:   envOrDefault("API_BASE_URL", "http://localhost:8080"),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func newServer(apiBaseURL string) *server {
	return &server{
		apiBaseURL:         strings.TrimRight(apiBaseURL, "/"),
		apiClient:          &http.Client{Timeout: 8 * time.Second},
		loginTmpl:          template.Must(template.ParseFS(templatesFS, "templates/login.html")),
		ordersTmpl:         template.Must(template.ParseFS(templatesFS, "templates/orders.html")),
		customerOrdersTmpl: template.Must(template.ParseFS(templatesFS, "templates/customer_orders.html")),
		calendarTmpl:       template.Must(template.ParseFS(templatesFS, "templates/calendar.html")),
		printTmpl:          template.Must(template.ParseFS(templatesFS, "templates/print.html")),
	}
}

func Run(ctx context.Context, cfg Config) error {
	s := newServer(cfg.APIBaseURL)

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' https://fonts.googleapis.com 'unsafe-inline'",
		"font-src 'self' https://fonts.gstatic.com",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-ancestors 'none'",
	}, "; ")

	handler := middleware.Chain(
		s.routes(),
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
		middleware.RequestLog(logger),
	)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar().Infof("client listening on http://localhost%s", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.loginRoute))
	mux.Handle("/login", http.HandlerFunc(s.loginRoute))
	mux.Handle("/logout", http.HandlerFunc(s.logout))
	mux.Handle("/orders", middleware.Chain(http.HandlerFunc(s.ordersPage), s.requireAdmin))
	mux.Handle("/orders/", middleware.Chain(http.HandlerFunc(s.orderRoutes), s.requireAdmin))
	mux.Handle("/my/orders", middleware.Chain(http.HandlerFunc(s.customerOrdersPage), s.requireSession))
	mux.Handle("/calendar", middleware.Chain(http.HandlerFunc(s.calendarPage), s.requireSession))
	mux.Handle("/calendar/print", middleware.Chain(http.HandlerFunc(s.printPage), s.requireSession))
	mux.Handle("/export", middleware.Chain(http.HandlerFunc(s.exportFileProxy), s.requireSession))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))
	return mux
}

func (s *server) loginRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.loginPage(w, r)
	case http.MethodPost:
		s.login(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) loginPage(w http.ResponseWriter, r *http.Request) {
	if identity, err := s.fetchIdentity(r); err == nil {
		http.Redirect(w, r, homePath(identity), http.StatusFound)
		return
	}

	data := pageData{
		Error:   r.URL.Query().Get("error"),
		Message: r.URL.Query().Get("message"),
	}
	if err := renderHTMLTemplate(w, s.loginTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.Sugar().Warnf("login template render failed: %v", err)
	}
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/?error=Invalid+form+submission", http.StatusFound)
		return
	}

	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		http.Redirect(w, r, "/?error=Username+and+password+are+required", http.StatusFound)
		return
	}

	bodyBytes, _ := json.Marshal(map[string]string{"username": username, "password": password})
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.apiBaseURL+"/api/auth/login", bytes.NewReader(bodyBytes))
	if err != nil {
		http.Redirect(w, r, "/?error=Unable+to+authenticate", http.StatusFound)
		return
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Redirect(w, r, "/?error=Authentication+service+unavailable", http.StatusFound)
		return
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		http.Redirect(w, r, "/?error=Invalid+credentials", http.StatusFound)
		return
	}

	var payload struct {
		IsAdmin bool `json:"isAdmin"`
	}
	_ = json.NewDecoder(apiResp.Body).Decode(&payload)

	for _, setCookie := range apiResp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", setCookie)
	}
	if payload.IsAdmin {
		http.Redirect(w, r, "/orders", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/my/orders", http.StatusFound)
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	csrfToken, err := s.fetchCSRFToken(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.apiBaseURL+"/api/auth/logout", nil)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	copySessionCookieHeader(r, apiReq)
	apiReq.Header.Set(csrfHeaderName, csrfToken)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	defer apiResp.Body.Close()

	for _, setCookie := range apiResp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", setCookie)
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *server) ordersPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	csrfToken, err := s.fetchCSRFToken(r)
	if err != nil {
		http.Redirect(w, r, "/?error=Session+expired", http.StatusFound)
		return
	}

	filters := filterValuesFromQuery(r.URL.Query())
	book, err := s.fetchOrderBook(r, filters.query())
	if err != nil {
		if filters.active() {
			http.Redirect(w, r, "/orders?error="+url.QueryEscape(err.Error()), http.StatusFound)
			return
		}
		http.Error(w, "unable to load order book", http.StatusBadGateway)
		return
	}
	summary, err := s.fetchSummary(r, filters.query())
	if err != nil {
		logger.Sugar().Warnf("load order book summary: %v", err)
	}

	data := pageData{
		Error:   r.URL.Query().Get("error"),
		Message: r.URL.Query().Get("message"),
		CSRF:    csrfToken,
		IsAdmin: true,
		Book:    book,
		Summary: summary,
		Filters: filters,
	}
	if err := renderHTMLTemplate(w, s.ordersTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.Sugar().Warnf("orders template render failed: %v", err)
	}
}

func (s *server) customerOrdersPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, err := s.fetchIdentity(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	if identity.IsAdmin {
		http.Redirect(w, r, "/orders", http.StatusFound)
		return
	}

	filters := filterValuesFromQuery(r.URL.Query())
	book, err := s.fetchOrderBook(r, filters.query())
	if err != nil {
		if filters.active() {
			http.Redirect(w, r, "/my/orders?error="+url.QueryEscape(err.Error()), http.StatusFound)
			return
		}
		http.Error(w, "unable to load order book", http.StatusBadGateway)
		return
	}
	summary, err := s.fetchSummary(r, filters.query())
	if err != nil {
		logger.Sugar().Warnf("load order book summary: %v", err)
	}

	data := pageData{
		Error:         r.URL.Query().Get("error"),
		Message:       r.URL.Query().Get("message"),
		Username:      identity.Username,
		CustomerNames: identity.CustomerNames,
		Book:          book,
		Summary:       summary,
		Filters:       filters,
	}
	if err := renderHTMLTemplate(w, s.customerOrdersTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.Sugar().Warnf("customer orders template render failed: %v", err)
	}
}

func (s *server) calendarPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, err := s.fetchIdentity(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	csrfToken := ""
	if identity.IsAdmin {
		csrfToken, err = s.fetchCSRFToken(r)
		if err != nil {
			http.Redirect(w, r, "/?error=Session+expired", http.StatusFound)
			return
		}
	}

	year, month := yearMonthFromQuery(r.URL.Query())
	grid, err := s.fetchMonthGrid(r, year, month)
	if err != nil {
		http.Error(w, "unable to load calendar", http.StatusBadGateway)
		return
	}

	prev := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	next := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	data := pageData{
		Error:     r.URL.Query().Get("error"),
		Message:   r.URL.Query().Get("message"),
		CSRF:      csrfToken,
		Username:  identity.Username,
		IsAdmin:   identity.IsAdmin,
		Grid:      grid,
		PrevYear:  prev.Year(),
		PrevMonth: int(prev.Month()),
		NextYear:  next.Year(),
		NextMonth: int(next.Month()),
	}
	if err := renderHTMLTemplate(w, s.calendarTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.Sugar().Warnf("calendar template render failed: %v", err)
	}
}

func (s *server) printPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	identity, err := s.fetchIdentity(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}

	year, month := yearMonthFromQuery(r.URL.Query())
	grid, err := s.fetchMonthGrid(r, year, month)
	if err != nil {
		http.Error(w, "unable to load calendar", http.StatusBadGateway)
		return
	}

	data := pageData{
		IsAdmin: identity.IsAdmin,
		Grid:    grid,
	}
	if err := renderHTMLTemplate(w, s.printTmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		logger.Sugar().Warnf("print template render failed: %v", err)
	}
}

func (s *server) orderRoutes(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/orders/import":
		s.importOrderBookProxy(w, r)
	case "/orders/clear":
		s.clearOrderBookProxy(w, r)
	case "/orders/merge":
		s.mergeOrderBookProxy(w, r)
	default:
		if wo, ok := parseOrderDatePath(r.URL.Path); ok {
			s.rescheduleOrderProxy(w, r, wo)
			return
		}
		http.NotFound(w, r)
	}
}

func (s *server) importOrderBookProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(20 << 20); err != nil {
		http.Redirect(w, r, "/orders?error=Invalid+upload", http.StatusFound)
		return
	}
	file, header, err := r.FormFile("order_file")
	if err != nil {
		http.Redirect(w, r, "/orders?error=Order+book+file+is+required", http.StatusFound)
		return
	}
	defer file.Close()

	csrfToken := strings.TrimSpace(r.FormValue("csrf_token"))
	if csrfToken == "" {
		http.Redirect(w, r, "/orders?error=Missing+csrf+token", http.StatusFound)
		return
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("order_file", header.Filename)
	if err != nil {
		http.Redirect(w, r, "/orders?error=Unable+to+prepare+upload", http.StatusFound)
		return
	}
	if _, err := io.Copy(part, file); err != nil {
		http.Redirect(w, r, "/orders?error=Unable+to+read+upload", http.StatusFound)
		return
	}
	if savePassword := r.FormValue("save_password"); savePassword != "" {
		_ = writer.WriteField("save_password", savePassword)
	}
	if parseBoolFormValue(r.FormValue("force")) {
		_ = writer.WriteField("force", "1")
	}
	if err := writer.Close(); err != nil {
		http.Redirect(w, r, "/orders?error=Unable+to+finalize+upload", http.StatusFound)
		return
	}

	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.apiBaseURL+"/api/admin/orderbook/import", &body)
	if err != nil {
		http.Redirect(w, r, "/orders?error=Unable+to+send+upload", http.StatusFound)
		return
	}
	copySessionCookieHeader(r, apiReq)
	apiReq.Header.Set("Content-Type", writer.FormDataContentType())
	apiReq.Header.Set(csrfHeaderName, csrfToken)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Redirect(w, r, "/orders?error=Import+service+unavailable", http.StatusFound)
		return
	}
	defer apiResp.Body.Close()

	respBody, _ := io.ReadAll(apiResp.Body)
	if apiResp.StatusCode != http.StatusOK {
		msg := "unable to import order book"
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(respBody, &payload); err == nil && payload.Error != "" {
			msg = payload.Error
		}
		http.Redirect(w, r, "/orders?error="+url.QueryEscape(msg), http.StatusFound)
		return
	}

	var payload struct {
		Imported bool   `json:"imported"`
		Rows     int    `json:"rows"`
		Filtered int    `json:"filtered"`
		Reason   string `json:"reason"`
	}
	msg := "Order book imported"
	if err := json.Unmarshal(respBody, &payload); err == nil {
		switch {
		case !payload.Imported && payload.Reason == "unchanged":
			msg = "File unchanged, nothing imported"
		case payload.Filtered > 0:
			msg = fmt.Sprintf("Imported %d orders (%d rows filtered out)", payload.Rows, payload.Filtered)
		default:
			msg = fmt.Sprintf("Imported %d orders", payload.Rows)
		}
	}
	http.Redirect(w, r, "/orders?message="+url.QueryEscape(msg), http.StatusFound)
}

func (s *server) clearOrderBookProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Redirect(w, r, "/orders?error=Invalid+form+submission", http.StatusFound)
		return
	}
	csrfToken := strings.TrimSpace(r.FormValue("csrf_token"))
	if csrfToken == "" {
		http.Redirect(w, r, "/orders?error=Missing+csrf+token", http.StatusFound)
		return
	}

	bodyBytes, _ := json.Marshal(map[string]string{"savePassword": r.FormValue("save_password")})
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodDelete, s.apiBaseURL+"/api/admin/orderbook", bytes.NewReader(bodyBytes))
	if err != nil {
		http.Redirect(w, r, "/orders?error=Unable+to+clear+order+book", http.StatusFound)
		return
	}
	copySessionCookieHeader(r, apiReq)
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set(csrfHeaderName, csrfToken)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Redirect(w, r, "/orders?error=Order+service+unavailable", http.StatusFound)
		return
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		msg := "unable to clear order book"
		var payload map[string]string
		if err := json.NewDecoder(apiResp.Body).Decode(&payload); err == nil && payload["error"] != "" {
			msg = payload["error"]
		}
		http.Redirect(w, r, "/orders?error="+url.QueryEscape(msg), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/orders?message=Order+book+cleared", http.StatusFound)
}

func (s *server) mergeOrderBookProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	csrfToken := strings.TrimSpace(r.Header.Get(csrfHeaderName))
	if csrfToken == "" {
		http.Error(w, `{"error":"csrf token is required"}`, http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodPost, s.apiBaseURL+"/api/admin/orderbook/merge", bytes.NewReader(body))
	if err != nil {
		http.Error(w, `{"error":"upstream request failed"}`, http.StatusInternalServerError)
		return
	}
	copySessionCookieHeader(r, apiReq)
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set(csrfHeaderName, csrfToken)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Error(w, `{"error":"upstream service unavailable"}`, http.StatusBadGateway)
		return
	}
	defer apiResp.Body.Close()

	respBody, err := io.ReadAll(apiResp.Body)
	if err != nil {
		http.Error(w, `{"error":"upstream response failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiResp.StatusCode)
	_, _ = w.Write(respBody)
}

func (s *server) rescheduleOrderProxy(w http.ResponseWriter, r *http.Request, wo string) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	csrfToken := strings.TrimSpace(r.Header.Get(csrfHeaderName))
	if csrfToken == "" {
		http.Error(w, `{"error":"csrf token is required"}`, http.StatusForbidden)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodPut, s.apiBaseURL+"/api/admin/orderbook/orders/"+url.PathEscape(wo)+"/date", bytes.NewReader(body))
	if err != nil {
		http.Error(w, `{"error":"upstream request failed"}`, http.StatusInternalServerError)
		return
	}
	copySessionCookieHeader(r, apiReq)
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set(csrfHeaderName, csrfToken)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Error(w, `{"error":"upstream service unavailable"}`, http.StatusBadGateway)
		return
	}
	defer apiResp.Body.Close()

	respBody, err := io.ReadAll(apiResp.Body)
	if err != nil {
		http.Error(w, `{"error":"upstream response failed"}`, http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiResp.StatusCode)
	_, _ = w.Write(respBody)
}

func (s *server) exportFileProxy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.apiBaseURL+"/api/orderbook/export", nil)
	if err != nil {
		http.Error(w, "unable to export order book", http.StatusInternalServerError)
		return
	}
	copySessionCookieHeader(r, apiReq)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		http.Error(w, "export service unavailable", http.StatusBadGateway)
		return
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		http.Error(w, "unable to export order book", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", apiResp.Header.Get("Content-Type"))
	if disposition := apiResp.Header.Get("Content-Disposition"); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	_, _ = io.Copy(w, apiResp.Body)
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(data)
}

func (s *server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.fetchIdentity(r); err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := s.fetchIdentity(r)
		if err != nil {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		if !identity.IsAdmin {
			http.Redirect(w, r, "/my/orders", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) fetchIdentity(r *http.Request) (*identityView, error) {
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.apiBaseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, err
	}
	copySessionCookieHeader(r, apiReq)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		return nil, errors.New("unauthorized")
	}
	var payload identityView
	if err := json.NewDecoder(apiResp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (s *server) fetchCSRFToken(r *http.Request) (string, error) {
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, s.apiBaseURL+"/api/auth/csrf", nil)
	if err != nil {
		return "", err
	}
	copySessionCookieHeader(r, apiReq)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		return "", err
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		return "", errors.New("unauthorized")
	}

	var payload authTokenResponse
	if err := json.NewDecoder(apiResp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.CSRFToken == "" {
		return "", errors.New("missing csrf token")
	}
	return payload.CSRFToken, nil
}

func (s *server) fetchOrderBook(r *http.Request, query url.Values) (*orderBookView, error) {
	target := s.apiBaseURL + "/api/orderbook"
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	copySessionCookieHeader(r, apiReq)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		var payload map[string]string
		if err := json.NewDecoder(apiResp.Body).Decode(&payload); err == nil && payload["error"] != "" {
			return nil, errors.New(payload["error"])
		}
		return nil, errors.New("failed to fetch order book")
	}
	var payload orderBookView
	if err := json.NewDecoder(apiResp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	for i := range payload.Orders {
		normalizeOrderView(&payload.Orders[i])
	}
	if payload.ImportedAt != "" {
		if imported, err := time.Parse(time.RFC3339, payload.ImportedAt); err == nil {
			payload.ImportedAtDisplay = imported.UTC().Format("2006-01-02 15:04 MST")
		}
	}
	return &payload, nil
}

func (s *server) fetchSummary(r *http.Request, query url.Values) (*summaryView, error) {
	target := s.apiBaseURL + "/api/orderbook/summary"
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	copySessionCookieHeader(r, apiReq)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch summary")
	}
	var payload summaryView
	if err := json.NewDecoder(apiResp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	normalizeSummaryView(&payload)
	return &payload, nil
}

func (s *server) fetchMonthGrid(r *http.Request, year, month int) (*orderbook.MonthGrid, error) {
	target := s.apiBaseURL + "/api/orderbook/print?year=" + strconv.Itoa(year) + "&month=" + strconv.Itoa(month)
	apiReq, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	copySessionCookieHeader(r, apiReq)

	apiResp, err := s.apiClient.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer apiResp.Body.Close()

	if apiResp.StatusCode != http.StatusOK {
		return nil, errors.New("failed to fetch month grid")
	}
	var payload orderbook.MonthGrid
	if err := json.NewDecoder(apiResp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func normalizeOrderView(view *orderView) {
	view.StatusClass = orderbook.StatusClass(view.Status)
	if view.ScheduledDate != "" {
		if scheduled, err := time.Parse(time.RFC3339, view.ScheduledDate); err == nil {
			view.DateDisplay = scheduled.UTC().Format("2006-01-02")
		}
	}
	if view.Price != nil {
		view.PriceValue = strconv.FormatFloat(*view.Price, 'f', -1, 64)
		view.PriceDisplay = "$" + formatMoney(*view.Price)
	}
}

func normalizeSummaryView(view *summaryView) {
	view.TotalDisplay = "$" + formatMoney(view.TotalValue)
	if len(view.StatusCounts) == 0 {
		return
	}
	maxCount := 0
	for _, count := range view.StatusCounts {
		if count > maxCount {
			maxCount = count
		}
	}
	for status, count := range view.StatusCounts {
		entry := statusCountView{
			Status: status,
			Count:  count,
			Class:  orderbook.StatusClass(status),
		}
		if maxCount > 0 {
			entry.Percent = count * 100 / maxCount
		}
		view.Breakdown = append(view.Breakdown, entry)
	}
	sort.Slice(view.Breakdown, func(i, j int) bool {
		if view.Breakdown[i].Count != view.Breakdown[j].Count {
			return view.Breakdown[i].Count > view.Breakdown[j].Count
		}
		return view.Breakdown[i].Status < view.Breakdown[j].Status
	})
}

func filterValuesFromQuery(query url.Values) filterValues {
	return filterValues{
		Quote:    strings.TrimSpace(query.Get("quote")),
		PO:       strings.TrimSpace(query.Get("po")),
		Status:   strings.TrimSpace(query.Get("status")),
		Customer: strings.TrimSpace(query.Get("customer")),
		Model:    strings.TrimSpace(query.Get("model")),
		Match:    strings.TrimSpace(query.Get("match")),
		Date:     strings.TrimSpace(query.Get("date")),
		Month:    strings.TrimSpace(query.Get("month")),
	}
}

func (f filterValues) query() url.Values {
	out := url.Values{}
	set := func(key, value string) {
		if value != "" {
			out.Set(key, value)
		}
	}
	set("quote", f.Quote)
	set("po", f.PO)
	set("status", f.Status)
	set("customer", f.Customer)
	set("model", f.Model)
	set("date", f.Date)
	set("month", f.Month)
	if len(out) > 0 && f.Match != "" {
		out.Set("match", f.Match)
	}
	return out
}

func (f filterValues) active() bool {
	return len(f.query()) > 0
}

func homePath(identity *identityView) string {
	if identity.IsAdmin {
		return "/orders"
	}
	return "/my/orders"
}

func yearMonthFromQuery(query url.Values) (int, int) {
	now := time.Now().UTC()
	year := parsePositiveInt(query.Get("year"), now.Year())
	month := parsePositiveInt(query.Get("month"), int(now.Month()))
	if month > 12 {
		month = int(now.Month())
	}
	return year, month
}

func parseOrderDatePath(path string) (string, bool) {
	trimmed := strings.TrimPrefix(path, "/orders/")
	trimmed = strings.Trim(trimmed, "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[1] != "date" {
		return "", false
	}
	wo, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(wo) == "" {
		return "", false
	}
	return wo, true
}

func formatMoney(value float64) string {
	text := strconv.FormatFloat(value, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(text, "-") {
		sign, text = "-", text[1:]
	}
	dot := strings.Index(text, ".")
	whole, frac := text[:dot], text[dot:]
	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}
	return sign + grouped.String() + frac
}

func copySessionCookieHeader(from *http.Request, to *http.Request) {
	for _, c := range from.Cookies() {
		if c.Name == sessionCookieName {
			to.Header.Set("Cookie", c.Name+"="+c.Value)
			return
		}
	}
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseBoolFormValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
