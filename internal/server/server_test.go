package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pushkarkumarvats/DIG-7/internal/config"
	"github.com/pushkarkumarvats/DIG-7/internal/database"
	"github.com/pushkarkumarvats/DIG-7/internal/monitoring"
	"github.com/pushkarkumarvats/DIG-7/internal/prediction"
	"github.com/pushkarkumarvats/DIG-7/internal/ratelimit"
	"github.com/pushkarkumarvats/DIG-7/internal/resilience"
	"github.com/pushkarkumarvats/DIG-7/internal/scoring"
	"github.com/pushkarkumarvats/DIG-7/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server *Server
	repo   *database.Repository
	issuer *security.TokenIssuer
}

type envOptions struct {
	demo   bool
	oracle http.Handler
}

// downOracle fails every call so the gateway always falls back.
var downOracle = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusInternalServerError)
})

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()

	if opts.oracle == nil {
		opts.oracle = downOracle
	}
	oracle := httptest.NewServer(opts.oracle)
	t.Cleanup(oracle.Close)

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := database.NewRepository(db)

	calc := scoring.NewCalculator(scoring.DefaultWeights())
	_, err = repo.Seed(context.Background(), calc)
	require.NoError(t, err)

	v := config.New()
	v.Set(config.KeyMLAPIURL, oracle.URL)
	v.Set(config.KeyDemoMode, opts.demo)
	v.Set(config.KeyRateLimit, 1000)
	cfg, err := config.Load(v)
	require.NoError(t, err)

	metrics := monitoring.NewMetrics()
	logger := monitoring.NewLoggerWithWriter(io.Discard, slog.LevelError)
	degradation := resilience.NewDegradationManager(resilience.DefaultDegradationConfig())
	breakers := resilience.NewCircuitBreakerRegistry()

	gateway := prediction.NewGateway(cfg.Prediction, calc,
		prediction.WithLogger(logger),
		prediction.WithMetrics(metrics),
		prediction.WithDegradation(degradation),
		prediction.WithBreakers(breakers))
	t.Cleanup(func() { gateway.Close() })

	limiter := ratelimit.NewRateLimiter(nil, cfg.RateLimit, metrics)
	t.Cleanup(limiter.Close)

	issuer := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenIssuer, cfg.TokenTTL)

	srv := New(Deps{
		Config:      cfg,
		Repo:        repo,
		Gateway:     gateway,
		Limiter:     limiter,
		Redis:       &ratelimit.RedisClient{},
		Degradation: degradation,
		Breakers:    breakers,
		Issuer:      issuer,
		Metrics:     metrics,
		Logger:      logger,
	})
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, repo: repo, issuer: issuer}
}

func (e *testEnv) token(t *testing.T, role security.Role) string {
	t.Helper()
	tok, _, err := e.issuer.Issue("user-"+string(role), role)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
}

func (e *testEnv) vendorIDs(t *testing.T) []string {
	t.Helper()
	page, err := e.repo.ListVendors(context.Background(), database.VendorFilter{})
	require.NoError(t, err)
	require.NotEmpty(t, page.Vendors)
	ids := make([]string, len(page.Vendors))
	for i, v := range page.Vendors {
		ids[i] = v.ID
	}
	return ids
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
	assert.Equal(t, Version, body["version"])
	assert.Equal(t, false, body["redis"])

	w = env.do(t, http.MethodGet, "/health/services", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &body)
	assert.Contains(t, body["services"], DatabaseService)
	assert.Contains(t, body["services"], prediction.ServiceName)
	assert.Contains(t, body["circuit_breakers"], prediction.ServiceName)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.do(t, http.MethodGet, "/health", "", nil)

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "# TYPE")
}

func TestSwaggerDoc(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Info struct {
			Title   string `json:"title"`
			Version string `json:"version"`
		} `json:"info"`
		Paths map[string]interface{} `json:"paths"`
	}
	decode(t, w, &doc)
	assert.Equal(t, "Vendor Scoring API", doc.Info.Title)
	assert.Equal(t, Version, doc.Info.Version)
	assert.Contains(t, doc.Paths, "/api/recommend")
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/api/vendors", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestVendorLifecycle(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, security.RoleAdmin)

	w := env.do(t, http.MethodPost, "/api/vendors", admin, map[string]interface{}{
		"name":        "Acme <b>Widgets</b>",
		"description": "Industrial widgets",
		"industry":    "Manufacturing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created database.Vendor
	decode(t, w, &created)
	assert.Equal(t, "Acme Widgets", created.Name)
	assert.Equal(t, database.VendorPending, created.Status)

	w = env.do(t, http.MethodPatch, "/api/vendors/"+created.ID, admin, map[string]interface{}{
		"status": "ACTIVE",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated database.Vendor
	decode(t, w, &updated)
	assert.Equal(t, database.VendorActive, updated.Status)
	assert.Equal(t, "Acme Widgets", updated.Name)

	w = env.do(t, http.MethodGet, "/api/vendors/"+created.ID, env.token(t, security.RoleViewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail database.VendorDetail
	decode(t, w, &detail)
	assert.Equal(t, "Manufacturing", detail.Industry)
	require.Len(t, detail.AuditLogs, 2)
	assert.Equal(t, "UPDATE", detail.AuditLogs[0].Action)
	assert.Equal(t, "user-ADMIN", detail.AuditLogs[0].UserID)

	w = env.do(t, http.MethodGet, "/api/vendors?query=widgets", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var page database.VendorPage
	decode(t, w, &page)
	require.Len(t, page.Vendors, 1)
	assert.Equal(t, created.ID, page.Vendors[0].ID)

	w = env.do(t, http.MethodDelete, "/api/vendors/"+created.ID, env.token(t, security.RoleManager), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/vendors/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/vendors/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVendorValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, security.RoleAdmin)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		want   int
	}{
		{name: "missing name", method: http.MethodPost, path: "/api/vendors", body: map[string]string{"industry": "x"}, want: http.StatusBadRequest},
		{name: "unknown status", method: http.MethodPost, path: "/api/vendors", body: map[string]string{"name": "x", "status": "GONE"}, want: http.StatusBadRequest},
		{name: "bad page", method: http.MethodGet, path: "/api/vendors?page=abc", want: http.StatusBadRequest},
		{name: "update unknown vendor", method: http.MethodPatch, path: "/api/vendors/missing", body: map[string]string{"name": "x"}, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, admin, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestScoreVendorFallback(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	manager := env.token(t, security.RoleManager)
	vendorID := env.vendorIDs(t)[0]

	w := env.do(t, http.MethodPost, "/api/vendors/score", manager, map[string]string{"vendorId": vendorID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success        bool                    `json:"success"`
		VendorID       string                  `json:"vendorId"`
		Scores         database.VendorScore    `json:"scores"`
		RiskIndicators []scoring.RiskIndicator `json:"riskIndicators"`
		Explainability scoring.Explainability  `json:"explainability"`
	}
	decode(t, w, &body)
	assert.True(t, body.Success)
	assert.Equal(t, vendorID, body.VendorID)
	assert.Equal(t, "fallback", body.Scores.ModelVersion)
	require.NotNil(t, body.Scores.Confidence)
	assert.Equal(t, 0.75, *body.Scores.Confidence)
	assert.NotNil(t, body.RiskIndicators)
	assert.NotEmpty(t, body.Explainability.Recommendations)

	latest, err := env.repo.LatestScore(context.Background(), vendorID)
	require.NoError(t, err)
	assert.Equal(t, body.Scores.ID, latest.ID)
	assert.Equal(t, body.Scores.TotalScore, latest.TotalScore)
	assert.NotEmpty(t, latest.RankingFactors)

	logs, err := env.repo.ListAuditLogs(context.Background(), database.AuditFilter{Action: "SCORE"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, vendorID, logs[0].VendorID)
	assert.Equal(t, "user-MANAGER", logs[0].UserID)
}

func TestScoreVendorErrors(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, security.RoleAdmin)

	w := env.do(t, http.MethodPost, "/api/vendors/score", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "vendorId is required", body["error"])

	w = env.do(t, http.MethodPost, "/api/vendors/score", admin, map[string]string{"vendorId": "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	decode(t, w, &body)
	assert.Equal(t, "Vendor not found", body["error"])

	w = env.do(t, http.MethodPost, "/api/vendors/score", env.token(t, security.RoleViewer), map[string]string{"vendorId": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecommend(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	viewer := env.token(t, security.RoleViewer)

	w := env.do(t, http.MethodPost, "/api/recommend", viewer, map[string]interface{}{
		"requirement": "cloud migration AWS",
		"maxResults":  3,
		"minScore":    0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success        bool   `json:"success"`
		Reasoning      string `json:"reasoning"`
		Recommendation struct {
			TotalCandidates     int `json:"totalCandidates"`
			QualifiedCandidates int `json:"qualifiedCandidates"`
			TopVendors          []struct {
				Name         string   `json:"name"`
				Score        float64  `json:"score"`
				MatchReasons []string `json:"matchReasons"`
			} `json:"topVendors"`
		} `json:"recommendation"`
		RankingCriteria struct {
			MLScoreWeight     float64 `json:"mlScoreWeight"`
			SimilarityWeight  float64 `json:"similarityWeight"`
			MinScoreThreshold float64 `json:"minScoreThreshold"`
		} `json:"rankingCriteria"`
	}
	decode(t, w, &body)

	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Reasoning)
	assert.Greater(t, body.Recommendation.TotalCandidates, 0)
	require.Len(t, body.Recommendation.TopVendors, 3)
	for i := 1; i < len(body.Recommendation.TopVendors); i++ {
		assert.GreaterOrEqual(t, body.Recommendation.TopVendors[i-1].Score, body.Recommendation.TopVendors[i].Score)
	}
	assert.Equal(t, 0.6, body.RankingCriteria.MLScoreWeight)
	assert.Equal(t, 0.4, body.RankingCriteria.SimilarityWeight)
	assert.Equal(t, 0.0, body.RankingCriteria.MinScoreThreshold)
}

func TestRecommendLiveScoring(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodPost, "/api/recommend", env.token(t, security.RoleViewer), map[string]interface{}{
		"requirement": "security audit",
		"liveScoring": true,
		"minScore":    0,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, true, body["success"])
}

func TestRecommendValidation(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	viewer := env.token(t, security.RoleViewer)

	tests := []struct {
		name string
		body interface{}
	}{
		{name: "missing requirement", body: map[string]string{}},
		{name: "blank requirement", body: map[string]string{"requirement": "   "}},
		{name: "malformed body", body: "not an object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/recommend", viewer, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRecommendCache(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	viewer := env.token(t, security.RoleViewer)
	req := map[string]interface{}{"requirement": "cloud migration", "minScore": 0}

	first := env.do(t, http.MethodPost, "/api/recommend", viewer, req)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := env.do(t, http.MethodPost, "/api/recommend", viewer, req)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := env.do(t, http.MethodPost, "/api/vendors", env.token(t, security.RoleAdmin), map[string]interface{}{
		"name": "Nimbus Cloud",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	third := env.do(t, http.MethodPost, "/api/recommend", viewer, req)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
}

func healthyOracle() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"healthy","model_loaded":true}`)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"totalScore":91.5,"reliabilityScore":90,"costScore":80,
			"capabilityScore":85,"performanceScore":88,"reputationScore":92,"riskScore":12,
			"confidence":0.93,"modelVersion":"v2.1.0"}`)
	})
	mux.HandleFunc("/batch-predict", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	return mux
}

func TestPredictionEndpoints(t *testing.T) {
	env := newTestEnv(t, envOptions{oracle: healthyOracle()})
	viewer := env.token(t, security.RoleViewer)
	ids := env.vendorIDs(t)
	require.GreaterOrEqual(t, len(ids), 2)
	vendorID, other := ids[0], ids[1]

	w := env.do(t, http.MethodPost, "/api/ml/predict", viewer, map[string]string{"vendorId": vendorID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var single struct {
		Prediction prediction.Prediction `json:"prediction"`
	}
	decode(t, w, &single)
	assert.Equal(t, 91.5, single.Prediction.TotalScore)
	assert.Equal(t, "v2.1.0", single.Prediction.ModelVersion)

	// The batch endpoint fails upstream, so each vendor is predicted on its own.
	w = env.do(t, http.MethodPost, "/api/ml/batch", viewer, map[string][]string{"vendorIds": {vendorID, other}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch struct {
		Results []prediction.BatchResult `json:"results"`
	}
	decode(t, w, &batch)
	require.Len(t, batch.Results, 2)
	for _, r := range batch.Results {
		assert.True(t, r.Success)
		assert.Equal(t, 91.5, r.TotalScore)
	}

	w = env.do(t, http.MethodGet, "/api/ml/health", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, true, health["healthy"])

	w = env.do(t, http.MethodPost, "/api/ml/batch", viewer, map[string][]string{"vendorIds": {}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/ml/batch", viewer, map[string][]string{"vendorIds": {"missing"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOracleHealthDown(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	w := env.do(t, http.MethodGet, "/api/ml/health", env.token(t, security.RoleViewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]interface{}
	decode(t, w, &health)
	assert.Equal(t, false, health["healthy"])
}

func TestIssueToken(t *testing.T) {
	t.Run("demo mode", func(t *testing.T) {
		env := newTestEnv(t, envOptions{demo: true})

		w := env.do(t, http.MethodPost, "/api/auth/token", "", map[string]string{
			"email": "manager@example.com", "password": "manager123",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var body struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expiresAt"`
		}
		decode(t, w, &body)

		claims, err := env.issuer.Parse(body.Token)
		require.NoError(t, err)
		assert.Equal(t, security.RoleManager, claims.Role)
		assert.Equal(t, "demo-manager-1", claims.Subject)

		w = env.do(t, http.MethodPost, "/api/auth/token", "", map[string]string{
			"email": "manager@example.com", "password": "wrong",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = env.do(t, http.MethodGet, "/api/auth/demo-users", "", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotContains(t, w.Body.String(), "manager123")
	})

	t.Run("disabled outside demo mode", func(t *testing.T) {
		env := newTestEnv(t, envOptions{})
		w := env.do(t, http.MethodPost, "/api/auth/token", "", map[string]string{
			"email": "admin@example.com", "password": "admin123",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestAuditLogs(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, security.RoleAdmin)
	vendorID := env.vendorIDs(t)[0]

	w := env.do(t, http.MethodPost, "/api/audit-logs", admin, map[string]interface{}{
		"vendorId": vendorID,
		"action":   "VIEW",
		"entity":   "Vendor",
		"entityId": vendorID,
		"details":  map[string]string{"page": "detail"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/audit-logs", admin, map[string]string{"entity": "Vendor"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/audit-logs?action=VIEW", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logs []database.AuditLog
	decode(t, w, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, "user-ADMIN", logs[0].UserID)
	assert.NotEmpty(t, logs[0].VendorName)
	assert.JSONEq(t, `{"page":"detail"}`, string(logs[0].Details))

	w = env.do(t, http.MethodGet, "/api/audit-logs", env.token(t, security.RoleManager), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, security.RoleAdmin)

	w := env.do(t, http.MethodGet, "/api/admin/pools", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var pools map[string]interface{}
	decode(t, w, &pools)
	assert.Contains(t, pools, "database")
	assert.Contains(t, pools, "redis")
	assert.Contains(t, pools, "compression")
	assert.Contains(t, pools, "cache")

	w = env.do(t, http.MethodGet, "/api/admin/ratelimit", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodDelete, "/api/admin/ratelimit", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/ratelimit/status", env.token(t, security.RoleViewer), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminResetService(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	admin := env.token(t, security.RoleAdmin)

	for i := 0; i < 3; i++ {
		env.server.degradation.RecordError(DatabaseService, assert.AnError)
	}
	w := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	tests := []struct {
		name     string
		service  string
		token    string
		wantCode int
	}{
		{name: "manager is refused", service: DatabaseService, token: env.token(t, security.RoleManager), wantCode: http.StatusForbidden},
		{name: "unknown service", service: "nope", token: admin, wantCode: http.StatusNotFound},
		{name: "registered service", service: DatabaseService, token: admin, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodDelete, "/api/admin/services/"+tt.service, tt.token, nil)
			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
		})
	}

	health, ok := env.server.degradation.GetServiceHealth(DatabaseService)
	require.True(t, ok)
	assert.Equal(t, resilience.LevelNormal, health.Level)
	assert.Zero(t, health.ErrorCount)

	w = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	logs, err := env.repo.ListAuditLogs(context.Background(), database.AuditFilter{Action: "RESET"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, DatabaseService, logs[0].EntityID)
}
