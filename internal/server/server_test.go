package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spigell/resource-recommender/internal/ai/gemini"
	"github.com/spigell/resource-recommender/internal/airtable"
	"github.com/spigell/resource-recommender/internal/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	records *airtable.Records
	err     error
	formula string
	calls   int
}

func (s *stubStore) Select(_ context.Context, _ string, params *airtable.SelectParams) (*airtable.Records, error) {
	s.calls++
	s.formula = params.FilterByFormula
	return s.records, s.err
}

type stubGenerator struct {
	response string
	err      error
	calls    int
}

func (s *stubGenerator) GenerateContent(_ context.Context, _ string) (string, error) {
	s.calls++
	return s.response, s.err
}

type finderFunc func(ctx context.Context, sectors []string) (*resources.Result, error)

func (f finderFunc) Find(ctx context.Context, sectors []string) (*resources.Result, error) {
	return f(ctx, sectors)
}

func newRouter(t *testing.T, store *stubStore, gen *stubGenerator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := resources.New(store, gemini.NewRecommender(gen, zap.NewNop(), 0), resources.Config{}, zap.NewNop())
	return BuildRouter(RouterDeps{ServiceName: "test-service", Version: "1.0.0", Finder: svc, Logger: zap.NewNop()})
}

func postResources(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/get-resources", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sampleStore() *stubStore {
	return &stubStore{records: &airtable.Records{Items: []*airtable.Record{
		{ID: "recA", Fields: map[string]any{"Resource": "Ledger kit", "Sector": []any{"FinTech"}, "Geography": "Global"}},
		{ID: "recB", Fields: map[string]any{"Resource": "Starter guide", "Sector": []any{"All sectors"}}},
	}}}
}

func TestGetResourcesSuccess(t *testing.T) {
	store := sampleStore()
	gen := &stubGenerator{response: "```json\n{\"resources\":[{\"id\":\"recA\",\"fields\":{\"Resource\":\"Ledger kit\",\"Score\":0.95}}]}\n```"}

	rr := postResources(t, newRouter(t, store, gen), `{"sectors":["FinTech"],"ignored":true}`)
	require.Equal(t, http.StatusOK, rr.Code)

	expected := `{
		"success": true,
		"resources": [
			{"id": "recA", "fields": {"Resource": "Ledger kit", "Sector": ["FinTech"], "Geography": "Global"}},
			{"id": "recB", "fields": {"Resource": "Starter guide", "Sector": ["All sectors"]}}
		],
		"aiGeneratedResources": {"resources": [{"id": "recA", "fields": {"Resource": "Ledger kit", "Score": 0.95}}]}
	}`
	assert.JSONEq(t, expected, rr.Body.String())
	assert.Equal(t, `OR(FIND("FinTech", {Sector}), FIND("All sectors", {Sector}))`, store.formula)
}

func TestGetResourcesWithoutSectors(t *testing.T) {
	for _, body := range []string{`{}`, `{"sectors":[]}`, ``} {
		store := &stubStore{records: &airtable.Records{}}
		gen := &stubGenerator{response: `{"resources":[]}`}

		rr := postResources(t, newRouter(t, store, gen), body)
		require.Equal(t, http.StatusOK, rr.Code, "body %q", body)

		assert.Equal(t, "", store.formula, "body %q", body)
		assert.JSONEq(t, `{"success":true,"resources":[],"aiGeneratedResources":{"resources":[]}}`, rr.Body.String())
	}
}

func TestGetResourcesModelFailures(t *testing.T) {
	cases := map[string]*stubGenerator{
		"model error":   {err: errors.New("quota exceeded")},
		"prose answer":  {response: "Sure! Here are the resources."},
		"empty fencing": {response: "```json```"},
	}

	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			store := sampleStore()
			rr := postResources(t, newRouter(t, store, gen), `{"sectors":["Health"]}`)

			require.Equal(t, http.StatusInternalServerError, rr.Code)
			assert.JSONEq(t, `{"success":false,"error":"Failed to generate AI-generated response as JSON"}`, rr.Body.String())
			assert.Equal(t, 1, store.calls)
		})
	}
}

func TestGetResourcesStoreFailure(t *testing.T) {
	store := &stubStore{err: errors.New("bad status: 401 Unauthorized")}
	gen := &stubGenerator{response: `{}`}

	rr := postResources(t, newRouter(t, store, gen), `{"sectors":["Health"]}`)

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Failed to retrieve resources."}`, rr.Body.String())
	assert.Zero(t, gen.calls)
}

func TestGetResourcesInvalidBody(t *testing.T) {
	store := sampleStore()
	gen := &stubGenerator{response: `{}`}

	for _, body := range []string{`{"sectors":`, `{"sectors":"FinTech"}`, `{"sectors":[1]}`} {
		rr := postResources(t, newRouter(t, store, gen), body)
		require.Equal(t, http.StatusBadRequest, rr.Code, "body %q", body)
		assert.JSONEq(t, `{"success":false,"error":"Invalid JSON body."}`, rr.Body.String())
	}
	assert.Zero(t, store.calls)
}

func TestGetResourcesPanicIsRetrievalFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := BuildRouter(RouterDeps{Finder: finderFunc(func(context.Context, []string) (*resources.Result, error) {
		panic("boom")
	})})

	rr := postResources(t, router, `{"sectors":["Health"]}`)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"success":false,"error":"Failed to retrieve resources."}`, rr.Body.String())
}

func TestGetResourcesIgnoresClientCancellation(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var flowErr error
	router := BuildRouter(RouterDeps{Finder: finderFunc(func(ctx context.Context, _ []string) (*resources.Result, error) {
		flowErr = ctx.Err()
		return &resources.Result{Resources: &airtable.Records{}}, nil
	})})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/get-resources", strings.NewReader(`{}`)).WithContext(ctx)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NoError(t, flowErr)
	assert.JSONEq(t, `{"success":true,"resources":[],"aiGeneratedResources":null}`, rr.Body.String())
}

func TestRequestIDHeader(t *testing.T) {
	router := newRouter(t, sampleStore(), &stubGenerator{response: `{}`})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, "req-42", rr.Header().Get(requestIDHeader))

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rr.Header().Get(requestIDHeader), 36)
}

func TestRequestIDHeaderReplacesUnboundedValues(t *testing.T) {
	router := newRouter(t, sampleStore(), &stubGenerator{response: `{}`})

	for _, rid := range []string{strings.Repeat("a", maxRequestIDLength+1), "req\x01id", "req-é"} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, rid)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		got := rr.Header().Get(requestIDHeader)
		assert.NotEqual(t, rid, got)
		assert.Len(t, got, 36)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, strings.Repeat("b", maxRequestIDLength))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, strings.Repeat("b", maxRequestIDLength), rr.Header().Get(requestIDHeader))
}

func TestHealthCheck(t *testing.T) {
	router := newRouter(t, sampleStore(), &stubGenerator{})

	for _, path := range []string{"/health", "/healthz"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code)

		var response HealthResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response.Status)
		assert.Equal(t, "test-service", response.Service)
		assert.Equal(t, "1.0.0", response.Version)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newRouter(t, sampleStore(), &stubGenerator{response: `{}`})
	postResources(t, router, `{"sectors":["FinTech"]}`)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "resource_recommender_requests_total")
	assert.Contains(t, rr.Body.String(), "resource_recommender_stage_duration_seconds")
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	router := newRouter(t, sampleStore(), &stubGenerator{response: `{}`})

	req := httptest.NewRequest(http.MethodOptions, "/get-resources", nil)
	req.Header.Set("Origin", "https://frontend.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
