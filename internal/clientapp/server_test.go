package clientapp

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mrkishore97/production-scheduler-v3/internal/orderbook"
)

// apiStub stands in for the JSON API and records what the client forwards.
type apiStub struct {
	isAdmin       bool
	customerNames []string

	orderBookQuery url.Values
	importCSRF     string
	importFile     string
	importFields   map[string]string
	mergeCSRF      string
	mergeBody      string
	reschedulePath string
	rescheduleBody string
	clearMethod    string
	clearBody      string
	logoutCSRF     string
}

func (stub *apiStub) orders() []orderbook.Order {
	first := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	second := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	price := 1234.5
	return []orderbook.Order{
		{WO: "1001", Quote: "Q-1", PONumber: "PO-9", Status: "Open", CustomerName: "Acme", ModelDescription: "Widget A", ScheduledDate: &first, Price: &price},
		{WO: "1002", PONumber: "PO-2", Status: "In Progress", CustomerName: "Globex", ModelDescription: "Widget B", ScheduledDate: &second},
	}
}

func (stub *apiStub) visibleOrders() []orderbook.Order {
	if stub.isAdmin {
		return stub.orders()
	}
	return orderbook.OwnedOrders(stub.orders(), stub.customerNames)
}

func stubSession(r *http.Request) bool {
	cookie, err := r.Cookie(sessionCookieName)
	return err == nil && cookie.Value == "sess-1"
}

func writeStubJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func stubUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"authentication required"}`))
}

func newAPIStub(t *testing.T, isAdmin bool) (*apiStub, *httptest.Server) {
	t.Helper()
	stub := &apiStub{isAdmin: isAdmin, customerNames: []string{"Acme"}}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "right" {
			w.WriteHeader(http.StatusUnauthorized)
			writeStubJSON(w, map[string]string{"error": "invalid credentials"})
			return
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "sess-1", Path: "/", HttpOnly: true})
		writeStubJSON(w, map[string]any{"message": "authenticated", "isAdmin": stub.isAdmin})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !stubSession(r) {
			stubUnauthorized(w)
			return
		}
		payload := map[string]any{"id": int64(1), "username": "kishore", "isAdmin": stub.isAdmin}
		if !stub.isAdmin {
			payload["username"] = "acme"
			payload["customerNames"] = stub.customerNames
		}
		writeStubJSON(w, payload)
	})
	mux.HandleFunc("/api/auth/csrf", func(w http.ResponseWriter, r *http.Request) {
		if !stubSession(r) {
			stubUnauthorized(w)
			return
		}
		writeStubJSON(w, map[string]string{"csrfToken": "csrf-1"})
	})
	mux.HandleFunc("/api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		stub.logoutCSRF = r.Header.Get(csrfHeaderName)
		http.SetCookie(w, &http.Cookie{Name: sessionCookieName, Value: "", Path: "/", MaxAge: -1})
		writeStubJSON(w, map[string]string{"message": "signed out"})
	})
	mux.HandleFunc("/api/orderbook", func(w http.ResponseWriter, r *http.Request) {
		if !stubSession(r) {
			stubUnauthorized(w)
			return
		}
		stub.orderBookQuery = r.URL.Query()
		orders := stub.visibleOrders()
		writeStubJSON(w, map[string]any{
			"columns":      orderbook.RequiredColumns,
			"orders":       orders,
			"count":        len(orders),
			"uploadedName": "book.xlsx",
			"importedAt":   "2024-03-20T10:00:00Z",
		})
	})
	mux.HandleFunc("/api/orderbook/summary", func(w http.ResponseWriter, r *http.Request) {
		if !stubSession(r) {
			stubUnauthorized(w)
			return
		}
		writeStubJSON(w, orderbook.Summarize(stub.visibleOrders()))
	})
	mux.HandleFunc("/api/orderbook/print", func(w http.ResponseWriter, r *http.Request) {
		if !stubSession(r) {
			stubUnauthorized(w)
			return
		}
		year, _ := strconv.Atoi(r.URL.Query().Get("year"))
		month, _ := strconv.Atoi(r.URL.Query().Get("month"))
		if stub.isAdmin {
			writeStubJSON(w, orderbook.BuildMonthGrid(stub.orders(), year, time.Month(month)))
			return
		}
		writeStubJSON(w, orderbook.MaskedMonthGrid(stub.orders(), stub.customerNames, year, time.Month(month)))
	})
	mux.HandleFunc("/api/orderbook/export", func(w http.ResponseWriter, r *http.Request) {
		if !stubSession(r) {
			stubUnauthorized(w)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="order_book.xlsx"`)
		_, _ = w.Write([]byte("PK-fake-workbook"))
	})
	mux.HandleFunc("/api/admin/orderbook/import", func(w http.ResponseWriter, r *http.Request) {
		stub.importCSRF = r.Header.Get(csrfHeaderName)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			writeStubJSON(w, map[string]string{"error": "invalid upload form"})
			return
		}
		_, header, err := r.FormFile("order_file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			writeStubJSON(w, map[string]string{"error": "order book file is required"})
			return
		}
		stub.importFile = header.Filename
		stub.importFields = map[string]string{
			"save_password": r.FormValue("save_password"),
			"force":         r.FormValue("force"),
		}
		writeStubJSON(w, map[string]any{"imported": true, "rows": 2, "filtered": 1, "signature": "sig-1"})
	})
	mux.HandleFunc("/api/admin/orderbook/merge", func(w http.ResponseWriter, r *http.Request) {
		stub.mergeCSRF = r.Header.Get(csrfHeaderName)
		body, _ := io.ReadAll(r.Body)
		stub.mergeBody = string(body)
		writeStubJSON(w, map[string]any{"message": "edits merged", "applied": 2})
	})
	mux.HandleFunc("/api/admin/orderbook/orders/", func(w http.ResponseWriter, r *http.Request) {
		stub.reschedulePath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		stub.rescheduleBody = string(body)
		writeStubJSON(w, map[string]any{"message": "rescheduled", "wo": "1001", "date": "2024-03-05"})
	})
	mux.HandleFunc("/api/admin/orderbook", func(w http.ResponseWriter, r *http.Request) {
		stub.clearMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		stub.clearBody = string(body)
		writeStubJSON(w, map[string]string{"message": "order book cleared"})
	})

	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return stub, api
}

func newClientHandler(t *testing.T, api *httptest.Server) http.Handler {
	t.Helper()
	return newServer(api.URL).routes()
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "sess-1"})
	return req
}

func postLoginForm(handler http.Handler, username, password string) *httptest.ResponseRecorder {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestLoginRedirectsByRole(t *testing.T) {
	_, adminAPI := newAPIStub(t, true)
	rec := postLoginForm(newClientHandler(t, adminAPI), "kishore", "right")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/orders" {
		t.Fatalf("expected admin redirect to /orders, got %q", loc)
	}
	found := false
	for _, setCookie := range rec.Header().Values("Set-Cookie") {
		if strings.Contains(setCookie, sessionCookieName+"=sess-1") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected session cookie to pass through, got %v", rec.Header().Values("Set-Cookie"))
	}

	_, customerAPI := newAPIStub(t, false)
	rec = postLoginForm(newClientHandler(t, customerAPI), "acme", "right")
	if loc := rec.Header().Get("Location"); loc != "/my/orders" {
		t.Fatalf("expected customer redirect to /my/orders, got %q", loc)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	_, api := newAPIStub(t, true)
	rec := postLoginForm(newClientHandler(t, api), "kishore", "wrong")
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/?error=Invalid+credentials" {
		t.Fatalf("unexpected redirect %q", loc)
	}
}

func TestLoginPageRedirectsWhenAuthenticated(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/login", nil)))
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/orders" {
		t.Fatalf("expected redirect to /orders, got %q", loc)
	}
}

func TestRequireAdminRedirects(t *testing.T) {
	_, api := newAPIStub(t, false)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected anonymous redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/orders", nil)))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/my/orders" {
		t.Fatalf("expected customer redirect to /my/orders, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAdminRedirectedOffCustomerPage(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/my/orders", nil)))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/orders" {
		t.Fatalf("expected admin redirect to /orders, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestOrdersPageRendersTable(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/orders", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`content="csrf-1"`,
		"book.xlsx",
		`value="1001"`,
		`value="2024-03-15"`,
		`value="1234.5"`,
		"$1,234.50",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected orders page to contain %q", want)
		}
	}
}

func TestOrdersPageForwardsFilters(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/orders?status=open&match=exact&month=2024-04", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := stub.orderBookQuery.Get("status"); got != "open" {
		t.Fatalf("expected status filter to forward, got %q", got)
	}
	if got := stub.orderBookQuery.Get("match"); got != "exact" {
		t.Fatalf("expected match mode to forward, got %q", got)
	}
	if got := stub.orderBookQuery.Get("month"); got != "2024-04" {
		t.Fatalf("expected month filter to forward, got %q", got)
	}
}

func TestImportProxyForwardsUpload(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("order_file", "book.csv")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte("WO,Status\n1001,Open\n")); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	_ = writer.WriteField("csrf_token", "csrf-1")
	_ = writer.WriteField("save_password", "secret")
	_ = writer.WriteField("force", "on")
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := withSession(httptest.NewRequest(http.MethodPost, "/orders/import", &body))
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "message=Imported+2+orders") {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if stub.importCSRF != "csrf-1" {
		t.Fatalf("expected csrf header to forward, got %q", stub.importCSRF)
	}
	if stub.importFile != "book.csv" {
		t.Fatalf("expected uploaded filename to forward, got %q", stub.importFile)
	}
	if stub.importFields["save_password"] != "secret" {
		t.Fatalf("expected save password to forward, got %q", stub.importFields["save_password"])
	}
	if stub.importFields["force"] != "1" {
		t.Fatalf("expected force flag to forward as 1, got %q", stub.importFields["force"])
	}
}

func TestMergeProxyRequiresCSRF(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	req := withSession(httptest.NewRequest(http.MethodPost, "/orders/merge", strings.NewReader(`{"orders":[]}`)))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf header, got %d", rec.Code)
	}
	if stub.mergeCSRF != "" {
		t.Fatalf("expected request to stop at the client, but it reached the api")
	}
}

func TestMergeProxyPassesThrough(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	payload := `{"orders":[{"wo":"1001","status":"Completed"}],"savePassword":"secret"}`
	req := withSession(httptest.NewRequest(http.MethodPost, "/orders/merge", strings.NewReader(payload)))
	req.Header.Set(csrfHeaderName, "csrf-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"applied":2`) {
		t.Fatalf("expected merge response to pass through, got %s", rec.Body.String())
	}
	if !strings.Contains(stub.mergeBody, `"wo":"1001"`) {
		t.Fatalf("expected merge body to forward, got %s", stub.mergeBody)
	}
	if stub.mergeCSRF != "csrf-1" {
		t.Fatalf("expected csrf header to forward, got %q", stub.mergeCSRF)
	}
}

func TestRescheduleProxy(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	req := withSession(httptest.NewRequest(http.MethodPut, "/orders/1001/date", strings.NewReader(`{"date":"2024-03-05"}`)))
	req.Header.Set(csrfHeaderName, "csrf-1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.reschedulePath != "/api/admin/orderbook/orders/1001/date" {
		t.Fatalf("unexpected upstream path %q", stub.reschedulePath)
	}
	if !strings.Contains(stub.rescheduleBody, "2024-03-05") {
		t.Fatalf("expected date to forward, got %s", stub.rescheduleBody)
	}
}

func TestClearProxy(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	form := url.Values{"csrf_token": {"csrf-1"}, "save_password": {"secret"}}
	req := withSession(httptest.NewRequest(http.MethodPost, "/orders/clear", strings.NewReader(form.Encode())))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/orders?message=Order+book+cleared" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	if stub.clearMethod != http.MethodDelete {
		t.Fatalf("expected DELETE upstream, got %q", stub.clearMethod)
	}
	if !strings.Contains(stub.clearBody, `"savePassword":"secret"`) {
		t.Fatalf("expected save password to forward, got %s", stub.clearBody)
	}
}

func TestCalendarPageRendersGrid(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/calendar?year=2024&month=3", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		"March 2024",
		`data-date="2024-03-15"`,
		"draggable",
		"s-open",
		"1001",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected calendar page to contain %q", want)
		}
	}
}

func TestCustomerCalendarMasksForeignOrders(t *testing.T) {
	_, api := newAPIStub(t, false)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/calendar?year=2024&month=3", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "SOLD") {
		t.Fatalf("expected masked day to render as sold")
	}
	if strings.Contains(body, "Globex") {
		t.Fatalf("expected foreign customer name to be hidden")
	}
	if strings.Contains(body, "draggable") {
		t.Fatalf("expected customer calendar to be read-only")
	}
}

func TestCustomerOrdersPageReadOnly(t *testing.T) {
	_, api := newAPIStub(t, false)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/my/orders", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"acme", "Read-only", "s-open", "$1,234.50"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected customer page to contain %q", want)
		}
	}
	if strings.Contains(body, "Globex") {
		t.Fatalf("expected foreign orders to be hidden")
	}
	if strings.Contains(body, `id="order-rows"`) {
		t.Fatalf("expected customer page to omit the editor")
	}
}

func TestPrintPageRendersStandalone(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/calendar/print?year=2024&month=3", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"calendar-table", "March 2024", "@media print", "WO: 1001", "status-open"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected print page to contain %q", want)
		}
	}
}

func TestExportProxyCopiesHeaders(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodGet, "/export", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Fatalf("unexpected content type %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "order_book.xlsx") {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Body.String() != "PK-fake-workbook" {
		t.Fatalf("expected workbook bytes to pass through")
	}
}

func TestLogoutProxy(t *testing.T) {
	stub, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, withSession(httptest.NewRequest(http.MethodPost, "/logout", nil)))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if stub.logoutCSRF != "csrf-1" {
		t.Fatalf("expected csrf header on logout, got %q", stub.logoutCSRF)
	}
	found := false
	for _, setCookie := range rec.Header().Values("Set-Cookie") {
		if strings.Contains(setCookie, sessionCookieName+"=") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected expired cookie to pass through")
	}
}

func TestAppCSSServed(t *testing.T) {
	_, api := newAPIStub(t, true)
	handler := newClientHandler(t, api)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/assets/app.css", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "text/css; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
	if !strings.Contains(rec.Body.String(), ".s-open") {
		t.Fatalf("expected stylesheet to define status classes")
	}
}
