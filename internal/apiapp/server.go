package apiapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mrkishore97/production-scheduler-v3/internal/audit"
	"github.com/mrkishore97/production-scheduler-v3/internal/logutil"
	"github.com/mrkishore97/production-scheduler-v3/internal/metrics"
	"github.com/mrkishore97/production-scheduler-v3/internal/middleware"
	"github.com/mrkishore97/production-scheduler-v3/internal/orderbook"
	"github.com/mrkishore97/production-scheduler-v3/internal/orderstore"
	"github.com/mrkishore97/production-scheduler-v3/internal/security"
	"github.com/mrkishore97/production-scheduler-v3/internal/spreadsheet"
)

const (
	sessionCookieName = "scheduler_session"
	csrfHeaderName    = "X-CSRF-Token"
	maxImportBytes    = 20 << 20
	customerSheetName = "My Orders"
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var logger = logutil.InitLogger()

type contextKey string

const (
	userContextKey    contextKey = "user"
	sessionContextKey contextKey = "session"
)

type Config struct {
	Addr             string
	DBPath           string
	AdminUsername    string
	AdminPassword    string
	SavePasswordHash string
	AliasConfigPath  string
	AuditLogPath     string
	SessionTTL       time.Duration
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type replaceOrderBookRequest struct {
	Orders       []orderbook.Order `json:"orders"`
	SavePassword string            `json:"savePassword"`
}

type clearOrderBookRequest struct {
	SavePassword string `json:"savePassword"`
}

type rescheduleRequest struct {
	Date string `json:"date"`
}

type orderBookResponse struct {
	Columns      []string          `json:"columns"`
	Orders       []orderbook.Order `json:"orders"`
	Count        int               `json:"count"`
	UploadedName string            `json:"uploadedName,omitempty"`
	ImportedAt   string            `json:"importedAt,omitempty"`
}

type server struct {
	store            *orderstore.Store
	metrics          *metrics.Registry
	audit            audit.Writer
	aliases          map[string]string
	sessionTTL       time.Duration
	savePasswordHash string
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:             envOrDefault("API_ADDR", ":8080"),
		DBPath:           envOrDefault("ORDERS_DB_PATH", "orders.db"),
		AdminUsername:    strings.TrimSpace(os.Getenv("ADMIN_USERNAME")),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		SavePasswordHash: strings.TrimSpace(os.Getenv("SAVE_PASSWORD_HASH")),
		AliasConfigPath:  strings.TrimSpace(os.Getenv("ALIAS_CONFIG_PATH")),
		AuditLogPath:     strings.TrimSpace(os.Getenv("AUDIT_LOG_PATH")),
		SessionTTL:       12 * time.Hour,
	}
}

func Run(ctx context.Context, cfg Config) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return errors.New("ADMIN_USERNAME and ADMIN_PASSWORD are required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}

	store, err := orderstore.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open order store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureAdminUser(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("ensure admin user: %w", err)
	}
	if err := store.DeleteExpiredSessions(ctx); err != nil {
		logger.Sugar().Warnf("sweep expired sessions: %v", err)
	}

	aliases := orderbook.DefaultAliases
	if cfg.AliasConfigPath != "" {
		aliasCfg, err := orderbook.LoadAliasConfig(cfg.AliasConfigPath)
		if err != nil {
			return fmt.Errorf("load alias config: %w", err)
		}
		aliases = aliasCfg.MergedAliases()
	}

	auditLog := audit.Discard
	if cfg.AuditLogPath != "" {
		fileWriter, err := audit.NewFileWriter(cfg.AuditLogPath)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		auditLog = fileWriter
	}

	s := &server{
		store:            store,
		metrics:          metrics.NewRegistry(),
		audit:            auditLog,
		aliases:          aliases,
		sessionTTL:       cfg.SessionTTL,
		savePasswordHash: strings.TrimSpace(cfg.SavePasswordHash),
	}
	if count, err := store.CountOrders(ctx); err == nil {
		s.metrics.OrdersStored.Set(float64(count))
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"img-src 'self' data:",
		"script-src 'self'",
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
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Sugar().Infof("api listening on http://localhost%s", cfg.Addr)
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
	mux.Handle("/api/health", http.HandlerFunc(s.health))
	mux.Handle("/metrics", s.metrics.Handler())
	mux.Handle("/api/auth/login", http.HandlerFunc(s.login))
	mux.Handle("/api/auth/me", middleware.Chain(http.HandlerFunc(s.me), s.requireAuth))
	mux.Handle("/api/auth/csrf", middleware.Chain(http.HandlerFunc(s.csrfToken), s.requireAuth))
	mux.Handle("/api/auth/logout", middleware.Chain(http.HandlerFunc(s.logout), s.requireAuth, s.csrfProtect))
	mux.Handle("/api/orderbook", middleware.Chain(http.HandlerFunc(s.orderBookHandler), s.requireAuth))
	mux.Handle("/api/orderbook/calendar", middleware.Chain(http.HandlerFunc(s.calendarHandler), s.requireAuth))
	mux.Handle("/api/orderbook/summary", middleware.Chain(http.HandlerFunc(s.summaryHandler), s.requireAuth))
	mux.Handle("/api/orderbook/print", middleware.Chain(http.HandlerFunc(s.printHandler), s.requireAuth))
	mux.Handle("/api/orderbook/export", middleware.Chain(http.HandlerFunc(s.exportHandler), s.requireAuth))
	mux.Handle("/api/admin/orderbook", middleware.Chain(http.HandlerFunc(s.adminOrderBookHandler), s.requireAdmin, s.csrfProtect))
	mux.Handle("/api/admin/orderbook/import", middleware.Chain(http.HandlerFunc(s.importOrderBook), s.requireAdmin, s.csrfProtect))
	mux.Handle("/api/admin/orderbook/merge", middleware.Chain(http.HandlerFunc(s.mergeOrderBook), s.requireAdmin, s.csrfProtect))
	mux.Handle("/api/admin/orderbook/orders/", middleware.Chain(http.HandlerFunc(s.orderByWOHandler), s.requireAdmin, s.csrfProtect))
	return mux
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, hash, err := s.store.LookupUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, orderstore.ErrNotFound) {
			s.metrics.LoginFailures.Inc()
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	if !security.VerifyPassword(req.Password, hash) {
		s.metrics.LoginFailures.Inc()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sessionID, err := security.RandomToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	csrfToken, err := security.RandomToken(32)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	expires := time.Now().UTC().Add(s.sessionTTL)
	if err := s.store.CreateSession(r.Context(), sessionID, user.ID, csrfToken, expires); err != nil {
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(s.sessionTTL.Seconds()),
		Expires:  expires,
	})
	writeJSON(w, http.StatusOK, map[string]any{"message": "authenticated", "isAdmin": user.IsAdmin})
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	payload := map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"isAdmin":  user.IsAdmin,
	}
	if !user.IsAdmin {
		names, err := s.store.UserCustomerNames(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "unable to load customer names")
			return
		}
		payload["customerNames"] = names
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *server) csrfToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"csrfToken": sess.CSRFToken})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := sessionFromContext(r.Context())
	if sess != nil {
		_ = s.store.DeleteSession(r.Context(), sess.ID)
	}
	expireSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

func (s *server) orderBookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filters, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	table, info, err := s.loadVisibleTable(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}

	orders := filters.apply(table.Orders)
	resp := orderBookResponse{
		Columns:      table.Columns,
		Orders:       orders,
		Count:        len(orders),
		UploadedName: info.UploadedName,
	}
	if !info.ImportedAt.IsZero() {
		resp.ImportedAt = info.ImportedAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) calendarHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table, _, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}

	user := userFromContext(r.Context())
	if user != nil && !user.IsAdmin {
		names, err := s.store.UserCustomerNames(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "unable to load customer names")
			return
		}
		writeJSON(w, http.StatusOK, orderbook.MaskedCalendarEvents(table.Orders, names))
		return
	}
	writeJSON(w, http.StatusOK, orderbook.CalendarEvents(table.Orders))
}

func (s *server) summaryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table, _, err := s.loadVisibleTable(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}
	writeJSON(w, http.StatusOK, orderbook.Summarize(table.Orders))
}

func (s *server) printHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	now := time.Now().UTC()
	year := parsePositiveInt(r.URL.Query().Get("year"), now.Year())
	month := parsePositiveInt(r.URL.Query().Get("month"), int(now.Month()))
	if month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}

	table, _, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}

	user := userFromContext(r.Context())
	if user != nil && !user.IsAdmin {
		names, err := s.store.UserCustomerNames(r.Context(), user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "unable to load customer names")
			return
		}
		writeJSON(w, http.StatusOK, orderbook.MaskedMonthGrid(table.Orders, names, year, time.Month(month)))
		return
	}
	writeJSON(w, http.StatusOK, orderbook.BuildMonthGrid(table.Orders, year, time.Month(month)))
}

func (s *server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	table, _, err := s.loadVisibleTable(r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}

	sheetName := spreadsheet.DefaultSheetName
	fileName := "order_book.xlsx"
	if user := userFromContext(r.Context()); user != nil && !user.IsAdmin {
		sheetName = customerSheetName
		fileName = "my_orders.xlsx"
	}

	data, err := spreadsheet.BuildWorkbook(table, sheetName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to build workbook")
		return
	}
	s.metrics.ExportsTotal.Inc()
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(fileName))
	_, _ = w.Write(data)
}

func (s *server) adminOrderBookHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		s.replaceOrderBook(w, r)
	case http.MethodDelete:
		s.clearOrderBook(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *server) replaceOrderBook(w http.ResponseWriter, r *http.Request) {
	var req replaceOrderBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.verifySavePassword(w, req.SavePassword) {
		return
	}

	kept := make([]orderbook.Order, 0, len(req.Orders))
	for _, order := range req.Orders {
		order = order.Clean()
		if order.Identified() {
			kept = append(kept, order)
		}
	}

	if err := orderstore.WithRetry(func() error {
		return s.store.ReplaceOrders(r.Context(), kept)
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to save order book")
		return
	}
	s.metrics.OrdersStored.Set(float64(len(kept)))
	s.appendAudit(audit.Entry{Action: "replace", Actor: actorName(r), Rows: len(kept)})
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "order book replaced",
		"rows":    len(kept),
		"dropped": len(req.Orders) - len(kept),
	})
}

func (s *server) clearOrderBook(w http.ResponseWriter, r *http.Request) {
	var req clearOrderBookRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if !s.verifySavePassword(w, req.SavePassword) {
		return
	}

	if err := orderstore.WithRetry(func() error {
		return s.store.ClearAll(r.Context())
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to clear order book")
		return
	}
	s.metrics.OrdersStored.Set(0)
	s.appendAudit(audit.Entry{Action: "clear", Actor: actorName(r)})
	writeJSON(w, http.StatusOK, map[string]string{"message": "order book cleared"})
}

func (s *server) mergeOrderBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req replaceOrderBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.verifySavePassword(w, req.SavePassword) {
		return
	}

	var applied int
	if err := orderstore.WithRetry(func() error {
		var mergeErr error
		applied, mergeErr = s.store.MergeEdited(r.Context(), req.Orders)
		return mergeErr
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to save order book")
		return
	}
	if applied > 0 {
		if count, err := s.store.CountOrders(r.Context()); err == nil {
			s.metrics.OrdersStored.Set(float64(count))
		}
		s.appendAudit(audit.Entry{Action: "merge", Actor: actorName(r), Rows: applied})
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "edits merged", "applied": applied})
}

func (s *server) importOrderBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseMultipartForm(maxImportBytes + (2 << 20)); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload form")
		return
	}
	if !s.verifySavePassword(w, r.FormValue("save_password")) {
		return
	}

	file, header, err := r.FormFile("order_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "order book file is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unable to read uploaded file")
		return
	}
	if len(raw) == 0 {
		writeError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	signature := spreadsheet.Signature(raw)
	_, info, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}
	force := parseBoolQueryValue(r.FormValue("force")) || parseBoolQueryValue(r.URL.Query().Get("force"))
	if !force && info.Signature == signature {
		s.metrics.ImportsSkipped.Inc()
		writeJSON(w, http.StatusOK, map[string]any{
			"imported":  false,
			"reason":    "unchanged",
			"signature": signature,
		})
		return
	}

	started := time.Now()
	rows, err := spreadsheet.ReadRows(bytes.NewReader(raw), header.Filename)
	if err != nil {
		s.metrics.ImportsRejected.Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	table, err := orderbook.Normalize(rows, s.aliases, nil)
	if err != nil {
		s.metrics.ImportsRejected.Inc()
		var schemaErr *orderbook.SchemaError
		if errors.As(err, &schemaErr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   schemaErr.Error(),
				"missing": schemaErr.Missing,
				"found":   schemaErr.Found,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	uploadedName := strings.TrimSpace(header.Filename)
	if err := orderstore.WithRetry(func() error {
		return s.store.ReplaceSnapshot(r.Context(), table, uploadedName, signature)
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "unable to save order book")
		return
	}

	s.metrics.ImportsTotal.Inc()
	s.metrics.ImportRows.Add(float64(len(table.Orders)))
	s.metrics.ImportLatencySec.Observe(time.Since(started).Seconds())
	s.metrics.OrdersStored.Set(float64(len(table.Orders)))
	s.appendAudit(audit.Entry{
		Action:       "import",
		Actor:        actorName(r),
		UploadedName: uploadedName,
		Rows:         len(table.Orders),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"imported":  true,
		"rows":      len(table.Orders),
		"filtered":  len(rows) - 1 - len(table.Orders),
		"signature": signature,
	})
}

func (s *server) orderByWOHandler(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimPrefix(r.URL.Path, "/api/admin/orderbook/orders/")
	trimmed = strings.Trim(trimmed, "/")
	if trimmed == "" {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 || parts[1] != "date" {
		http.NotFound(w, r)
		return
	}
	wo, err := url.PathUnescape(parts[0])
	if err != nil || strings.TrimSpace(wo) == "" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.rescheduleOrder(w, r, strings.TrimSpace(wo))
}

func (s *server) rescheduleOrder(w http.ResponseWriter, r *http.Request, wo string) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var target *time.Time
	if parsed, ok := orderbook.CoerceDate(req.Date); ok {
		target = &parsed
	}

	table, _, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unable to load order book")
		return
	}
	var current *time.Time
	found := false
	for _, order := range table.Orders {
		if order.WO == wo {
			current = order.ScheduledDate
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if sameDate(current, target) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "unchanged", "wo": wo})
		return
	}

	if err := orderstore.WithRetry(func() error {
		return s.store.RescheduleOrder(r.Context(), wo, target)
	}); err != nil {
		if errors.Is(err, orderstore.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "unable to save order book")
		return
	}

	s.appendAudit(audit.Entry{Action: "reschedule", Actor: actorName(r), WO: wo})
	dateValue := ""
	if target != nil {
		dateValue = orderbook.TruncateToDate(*target).Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "rescheduled", "wo": wo, "date": dateValue})
}

func (s *server) loadVisibleTable(r *http.Request) (*orderbook.Table, *orderstore.SnapshotInfo, error) {
	table, info, err := s.store.LoadSnapshot(r.Context())
	if err != nil {
		return nil, nil, err
	}
	user := userFromContext(r.Context())
	if user != nil && !user.IsAdmin {
		names, err := s.store.UserCustomerNames(r.Context(), user.ID)
		if err != nil {
			return nil, nil, err
		}
		table.Orders = orderbook.OwnedOrders(table.Orders, names)
	}
	return table, info, nil
}

func (s *server) verifySavePassword(w http.ResponseWriter, supplied string) bool {
	if s.savePasswordHash == "" {
		return true
	}
	if strings.TrimSpace(supplied) == "" {
		writeError(w, http.StatusForbidden, "save password required")
		return false
	}
	if !security.VerifyPassword(supplied, s.savePasswordHash) {
		writeError(w, http.StatusForbidden, "invalid save password")
		return false
	}
	return true
}

func (s *server) appendAudit(entry audit.Entry) {
	if err := s.audit.Append(entry); err != nil {
		logger.Sugar().Warnf("audit append: %v", err)
	}
}

func (s *server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(cookie.Value) == "" {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		sess, user, err := s.store.LookupSession(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, orderstore.ErrNotFound) {
				expireSessionCookie(w)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			writeError(w, http.StatusInternalServerError, "session check failed")
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		ctx = context.WithValue(ctx, userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) requireAdmin(next http.Handler) http.Handler {
	return s.requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := userFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	}))
}

func (s *server) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			next.ServeHTTP(w, r)
			return
		}
		sess := sessionFromContext(r.Context())
		if sess == nil {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		token := strings.TrimSpace(r.Header.Get(csrfHeaderName))
		if token == "" || token != sess.CSRFToken {
			writeError(w, http.StatusForbidden, "csrf validation failed")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type listFilters struct {
	quote    string
	po       string
	status   string
	customer string
	model    string
	exact    bool
	date     string
	month    string
}

func filtersFromQuery(query url.Values) (listFilters, error) {
	filters := listFilters{
		quote:    query.Get("quote"),
		po:       query.Get("po"),
		status:   query.Get("status"),
		customer: query.Get("customer"),
		model:    query.Get("model"),
	}
	switch strings.ToLower(strings.TrimSpace(query.Get("match"))) {
	case "", "contains":
	case "exact":
		filters.exact = true
	default:
		return listFilters{}, errors.New("match must be contains or exact")
	}
	if date := strings.TrimSpace(query.Get("date")); date != "" {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return listFilters{}, errors.New("date filter must use YYYY-MM-DD")
		}
		filters.date = parsed.Format("2006-01-02")
	}
	if month := strings.TrimSpace(query.Get("month")); month != "" {
		parsed, err := time.Parse("2006-01", month)
		if err != nil {
			return listFilters{}, errors.New("month filter must use YYYY-MM")
		}
		filters.month = parsed.Format("2006-01")
	}
	return filters, nil
}

func (f listFilters) apply(orders []orderbook.Order) []orderbook.Order {
	kept := make([]orderbook.Order, 0, len(orders))
	for _, order := range orders {
		if f.matches(order) {
			kept = append(kept, order)
		}
	}
	return kept
}

func (f listFilters) matches(o orderbook.Order) bool {
	if !matchText(o.Quote, f.quote, f.exact) {
		return false
	}
	if !matchText(o.PONumber, f.po, f.exact) {
		return false
	}
	if !matchText(o.Status, f.status, f.exact) {
		return false
	}
	if !matchText(o.CustomerName, f.customer, f.exact) {
		return false
	}
	if !matchText(o.ModelDescription, f.model, f.exact) {
		return false
	}
	if f.date != "" {
		if o.ScheduledDate == nil || o.ScheduledDate.Format("2006-01-02") != f.date {
			return false
		}
	}
	if f.month != "" {
		if o.ScheduledDate == nil || o.ScheduledDate.Format("2006-01") != f.month {
			return false
		}
	}
	return true
}

func matchText(value, term string, exact bool) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	if exact {
		return strings.EqualFold(strings.TrimSpace(value), term)
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(term))
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return orderbook.TruncateToDate(*a).Equal(orderbook.TruncateToDate(*b))
}

func actorName(r *http.Request) string {
	if user := userFromContext(r.Context()); user != nil {
		return user.Username
	}
	return ""
}

func parsePositiveInt(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func userFromContext(ctx context.Context) *orderstore.User {
	if user, ok := ctx.Value(userContextKey).(*orderstore.User); ok {
		return user
	}
	return nil
}

func sessionFromContext(ctx context.Context) *orderstore.Session {
	if sess, ok := ctx.Value(sessionContextKey).(*orderstore.Session); ok {
		return sess
	}
	return nil
}

func expireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func envOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func parseBoolQueryValue(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
