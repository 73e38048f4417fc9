package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-bloodlink-backend/internal/config"
	"github.com/tbourn/go-bloodlink-backend/internal/http/middleware"
	"github.com/tbourn/go-bloodlink-backend/internal/push"
	"github.com/tbourn/go-bloodlink-backend/internal/realtime"
	"github.com/tbourn/go-bloodlink-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api/v1",
		RateRPS:        100,
		RateBurst:      50,
		IdempotencyTTL: time.Hour,
		Security:       config.SecurityConfig{EnableHSTS: false},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
		Match: config.MatchConfig{
			DefaultRadiusKm:       25,
			MaxRadiusKm:           150,
			DonationCooldownDays:  56,
			EmergencyCooldownDays: 90,
			TravelMode:            "driving",
			MaxCandidates:         50,
		},
		Dispatch: config.DispatchConfig{Concurrency: 2, DonationUnitMl: 450},
	}
}

func newRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	hub := realtime.NewHub(8, zerolog.Nop())
	t.Cleanup(func() { _ = hub.Close() })
	RegisterRoutes(r, db, hub, push.NopSurface{}, cfg)
	return r, db
}

func send(r http.Handler, method, path, body string, hdr map[string]string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newRouter(t, testConfig())

	// /health works
	w := send(r, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("security headers missing")
	}

	// /metrics is wired
	w = send(r, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	w = send(r, http.MethodGet, "/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	w = send(r, http.MethodPost, "/health", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off unless enabled.
	w = send(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api/v2"
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r, _ := newRouter(t, cfg)

	w := send(r, http.MethodGet, "/health", "", map[string]string{"Origin": "http://example.com"})
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	// API lives under the configured base path.
	w = send(r, http.MethodGet, "/api/v2/requests/"+uuid.NewString(), "", nil)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "blood request not found") {
		t.Fatalf("expected service 404, got %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r, _ := newRouter(t, cfg)

	w := send(r, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths["/requests/{id}/dispatch"]; !ok {
		t.Fatalf("dispatch path missing from doc")
	}
}

func TestPipeline_DispatchIdempotentReplay(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	actor := map[string]string{middleware.ActorHeader: "hospital-1"}

	w := send(r, http.MethodPost, "/api/v1/donors", `{"blood_type":"O-","latitude":40.01,"longitude":-74}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register donor: %d %s", w.Code, w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-store") {
		t.Fatalf("donor routes must not be cached, got %q", cc)
	}
	var donor struct{ ID string }
	_ = json.Unmarshal(w.Body.Bytes(), &donor)

	w = send(r, http.MethodPost, "/api/v1/requests",
		`{"facility_name":"St. Mary","blood_type":"AB+","urgency":"critical","units_needed":1,"latitude":40,"longitude":-74}`, actor)
	if w.Code != http.StatusCreated {
		t.Fatalf("create request: %d %s", w.Code, w.Body.String())
	}
	var br struct {
		ID          string `json:"id"`
		RequesterID string `json:"requester_id"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &br)
	if br.RequesterID != "hospital-1" {
		t.Fatalf("requester_id=%q", br.RequesterID)
	}

	hdr := map[string]string{middleware.ActorHeader: "hospital-1", middleware.HeaderIdempotencyKey: "dispatch-1"}
	body := `{"donor_ids":["` + donor.ID + `"]}`
	first := send(r, http.MethodPost, "/api/v1/requests/"+br.ID+"/dispatch", body, hdr)
	if first.Code != http.StatusOK {
		t.Fatalf("dispatch: %d %s", first.Code, first.Body.String())
	}
	if first.Header().Get(middleware.HeaderIdempotentReplay) != "" {
		t.Fatalf("first call must not be a replay")
	}

	second := send(r, http.MethodPost, "/api/v1/requests/"+br.ID+"/dispatch", body, hdr)
	if second.Code != http.StatusOK || second.Header().Get(middleware.HeaderIdempotentReplay) != "true" {
		t.Fatalf("expected replay, got %d headers=%v", second.Code, second.Header())
	}
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	// Bad keys are rejected before the handler runs.
	w = send(r, http.MethodPost, "/api/v1/requests/"+br.ID+"/dispatch", body,
		map[string]string{middleware.HeaderIdempotencyKey: "bad key!"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad key: %d", w.Code)
	}

	// The responses list is conditional.
	w = send(r, http.MethodGet, "/api/v1/requests/"+br.ID+"/responses", "", nil)
	etag := w.Header().Get("ETag")
	if w.Code != http.StatusOK || etag == "" {
		t.Fatalf("list: %d etag=%q", w.Code, etag)
	}
	w = send(r, http.MethodGet, "/api/v1/requests/"+br.ID+"/responses", "", map[string]string{"If-None-Match": etag})
	if w.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", w.Code)
	}
}

func TestPipeline_Gzip(t *testing.T) {
	r, _ := newRouter(t, testConfig())
	w := send(r, http.MethodGet, "/health", "", map[string]string{"Accept-Encoding": "gzip"})
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip, headers=%v", w.Header())
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	plain, _ := io.ReadAll(zr)
	if !strings.Contains(string(plain), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", plain)
	}
}

func Test_idempotencyStore(t *testing.T) {
	db := newTestDB(t)
	s := idempotencyStore{db: db, ttl: time.Minute}
	ctx := context.Background()

	got, err := s.Lookup(ctx, "u1", "/x", "k1", time.Now().UTC())
	if err != nil || got != nil {
		t.Fatalf("miss: got=%v err=%v", got, err)
	}
	if err := s.Save(ctx, "u1", "/x", "k1", http.StatusOK, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	// A second save of the same key is not an error.
	if err := s.Save(ctx, "u1", "/x", "k1", http.StatusCreated, []byte(`{}`)); err != nil {
		t.Fatalf("duplicate save: %v", err)
	}
	got, err = s.Lookup(ctx, "u1", "/x", "k1", time.Now().UTC())
	if err != nil || got == nil || got.Status != http.StatusOK || string(got.Body) != `{"ok":true}` {
		t.Fatalf("hit: got=%+v err=%v", got, err)
	}
	// Expired entries are misses.
	got, _ = s.Lookup(ctx, "u1", "/x", "k1", time.Now().UTC().Add(2*time.Minute))
	if got != nil {
		t.Fatalf("expired entry returned")
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := send(r, http.MethodPost, "/echo", "0123456789AB", nil) // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix_joinPath(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := send(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || w.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, w.Code, w.Body.String())
		}
	}

	if joinPath("", "/events") != "/events" || joinPath("/", "/events") != "/events" || joinPath("/api/v1", "/events") != "/api/v1/events" {
		t.Fatalf("joinPath mismatch")
	}
}
