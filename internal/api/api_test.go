package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/opensource-finance/cropadvisor/internal/advisor"
	"github.com/opensource-finance/cropadvisor/internal/bus"
	"github.com/opensource-finance/cropadvisor/internal/cache"
	"github.com/opensource-finance/cropadvisor/internal/calendar"
	"github.com/opensource-finance/cropadvisor/internal/catalog"
	"github.com/opensource-finance/cropadvisor/internal/domain"
	"github.com/opensource-finance/cropadvisor/internal/repository"
	"github.com/opensource-finance/cropadvisor/internal/rules"
)

var seedCrops = []*domain.Crop{
	{
		Name:         "Rice",
		Seasons:      []string{"Kharif"},
		SoilTypes:    []string{"clay", "loamy"},
		WaterNeed:    "high",
		TempRange:    [2]float64{20, 35},
		DurationDays: 120,
		YieldPerAcre: 20,
		MSP:          2183,
		CostPerAcre:  25000,
	},
	{
		Name:         "Wheat",
		Seasons:      []string{"Rabi"},
		SoilTypes:    []string{"loamy"},
		WaterNeed:    "medium",
		TempRange:    [2]float64{10, 25},
		DurationDays: 140,
		YieldPerAcre: 18,
		MSP:          2275,
		CostPerAcre:  20000,
	},
}

const bajraJSON = `{"name": "Bajra", "season": ["Kharif"], "soil_type": ["sandy"], "water_need": "low",
	"temp_range": [25, 38], "duration_days": 80, "yield_per_acre": 10, "msp": 2500, "cost_per_acre": 12000}`

type recommendResponse struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	ID      string  `json:"id"`
	Land    float64 `json:"land_size"`
	Crops   []struct {
		Name          string                 `json:"name"`
		TotalScore    float64                `json:"total_score"`
		Selectable    bool                   `json:"selectable"`
		ProfitForLand float64                `json:"profit_for_land"`
		Contributions []domain.RuleResult    `json:"contributions"`
		Calendar      []domain.CalendarEvent `json:"calendar"`
	} `json:"crops"`
}

func testServerConfig() domain.ServerConfig {
	return domain.ServerConfig{
		Host:         "localhost",
		Port:         5001,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}
}

// createTestServer wires a server over a seeded SQLite catalog with an
// in-memory cache and channel bus.
func createTestServer(t *testing.T, cfg domain.ServerConfig) *Server {
	t.Helper()
	ctx := context.Background()

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api-test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	for _, crop := range seedCrops {
		c := *crop
		if err := repo.SaveCrop(ctx, &c); err != nil {
			t.Fatalf("failed to seed %s: %v", crop.Name, err)
		}
	}

	lru := cache.NewLRUCache(100)
	cached := catalog.NewCachedSource(repo, lru, time.Minute)

	eventBus := bus.NewChannelBus(10)
	t.Cleanup(func() { eventBus.Close() })

	engine, err := rules.NewEngine(domain.DefaultScoring())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	gen := &calendar.Generator{Now: func() time.Time {
		return time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	}}

	return NewServer(cfg, Dependencies{
		Advisor:     advisor.New(cached, engine, gen),
		Catalog:     cached,
		Store:       repo,
		Cache:       lru,
		Bus:         eventBus,
		Invalidator: cached,
	}, "test-v1")
}

// createReadOnlyServer serves a static catalog with no store.
func createReadOnlyServer(t *testing.T) *Server {
	t.Helper()

	src := staticCatalog(seedCrops)
	engine, _ := rules.NewEngine(domain.DefaultScoring())

	return NewServer(testServerConfig(), Dependencies{
		Advisor: advisor.New(src, engine, nil),
		Catalog: src,
	}, "test-v1")
}

type staticCatalog []*domain.Crop

func (c staticCatalog) ListCrops(ctx context.Context) ([]*domain.Crop, error) {
	return c, nil
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestRecommendEndpoint(t *testing.T) {
	server := createTestServer(t, testServerConfig())

	t.Run("SuccessfulRecommendation", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommend",
			`{"land_size": "2", "soil_type": "loamy", "water_avail": "high", "season": "kharif", "budget": 60000}`)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp recommendResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if !resp.Success {
			t.Error("expected success")
		}
		if resp.Land != 2 {
			t.Errorf("expected land_size 2, got %v", resp.Land)
		}
		if len(resp.Crops) != 2 {
			t.Fatalf("expected 2 crops, got %d", len(resp.Crops))
		}
		if resp.Crops[0].Name != "Rice" || !resp.Crops[0].Selectable {
			t.Errorf("expected selectable Rice first, got %+v", resp.Crops[0])
		}
		if resp.Crops[1].Name != "Wheat" || resp.Crops[1].Selectable {
			t.Errorf("expected unselectable Wheat second, got %+v", resp.Crops[1])
		}
		if resp.Crops[0].ProfitForLand != 37320 {
			t.Errorf("expected profit for 2 acres 37320, got %v", resp.Crops[0].ProfitForLand)
		}
		if len(resp.Crops[0].Contributions) != len(domain.RuleOrder) {
			t.Errorf("expected %d contributions, got %d", len(domain.RuleOrder), len(resp.Crops[0].Contributions))
		}
		if len(resp.Crops[0].Calendar) == 0 || resp.Crops[0].Calendar[0].Date != "2024-07-06" {
			t.Errorf("expected calendar starting 2024-07-06, got %v", resp.Crops[0].Calendar)
		}
	})

	t.Run("EmptyTemperatureIsAbsent", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommend",
			`{"soil_type": "loamy", "water_avail": "high", "season": "kharif", "temperature": ""}`)

		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp recommendResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp.Land != advisor.DefaultLandSize {
			t.Errorf("expected default land size, got %v", resp.Land)
		}
		for _, c := range resp.Crops[0].Contributions {
			if c.RuleID == domain.RuleTemperature && c.Outcome != domain.RuleOutcomeSkip {
				t.Errorf("expected temperature rule skipped, got %s", c.Outcome)
			}
		}
	})

	t.Run("TemperatureMismatch", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/recommend",
			`{"soil_type": "loamy", "water_avail": "high", "season": "kharif", "temperature": 0}`)

		var resp recommendResponse
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if len(resp.Crops) == 0 || resp.Crops[0].Selectable {
			t.Errorf("temperature 0 should disqualify Rice, got %+v", resp.Crops)
		}
	})

	errorCases := map[string]string{
		"InvalidJSON":       `{"land_size": `,
		"EmptyBody":         ``,
		"NonNumericBudget":  `{"budget": "plenty"}`,
		"NegativeLandSize":  `{"land_size": -1}`,
		"ZeroLandSize":      `{"land_size": "0"}`,
		"BadTemperatureStr": `{"temperature": "warm"}`,
	}
	for name, body := range errorCases {
		t.Run(name, func(t *testing.T) {
			rr := do(t, server, http.MethodPost, "/recommend", body)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}

			var resp recommendResponse
			json.Unmarshal(rr.Body.Bytes(), &resp)
			if resp.Success || resp.Error == "" {
				t.Errorf("expected failure with an error message, got %s", rr.Body.String())
			}
		})
	}
}

func TestCropsEndpoints(t *testing.T) {
	server := createTestServer(t, testServerConfig())

	t.Run("ListNames", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/crops", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var names []string
		json.Unmarshal(rr.Body.Bytes(), &names)
		if strings.Join(names, ",") != "Rice,Wheat" {
			t.Errorf("unexpected names: %v", names)
		}
	})

	t.Run("Calendar", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/crops/rice/calendar?sowing_date=2024-01-01", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Calendar []domain.CalendarEvent `json:"calendar"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if len(resp.Calendar) == 0 || resp.Calendar[0].Date != "2024-01-06" {
			t.Errorf("unexpected calendar: %v", resp.Calendar)
		}
	})

	t.Run("CalendarUnknownCrop", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/crops/quinoa/calendar", "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}

func TestCatalogEndpoints(t *testing.T) {
	server := createTestServer(t, testServerConfig())

	t.Run("List", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/catalog", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 2 {
			t.Errorf("expected 2 crops, got %d", resp.Count)
		}
	})

	t.Run("Get", func(t *testing.T) {
		if rr := do(t, server, http.MethodGet, "/catalog/WHEAT", ""); rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
		if rr := do(t, server, http.MethodGet, "/catalog/quinoa", ""); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("SaveInvalidatesCache", func(t *testing.T) {
		// Warm the cache first.
		do(t, server, http.MethodGet, "/crops", "")

		rr := do(t, server, http.MethodPost, "/catalog", bajraJSON)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}

		rr = do(t, server, http.MethodGet, "/crops", "")
		var names []string
		json.Unmarshal(rr.Body.Bytes(), &names)
		if strings.Join(names, ",") != "Bajra,Rice,Wheat" {
			t.Errorf("expected Bajra after save, got %v", names)
		}
	})

	t.Run("SaveRejectsIncompleteRecord", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/catalog", `{"name": "Jowar"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if rr := do(t, server, http.MethodDelete, "/catalog/bajra", ""); rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if rr := do(t, server, http.MethodDelete, "/catalog/bajra", ""); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404 on second delete, got %d", rr.Code)
		}

		rr := do(t, server, http.MethodGet, "/crops", "")
		var names []string
		json.Unmarshal(rr.Body.Bytes(), &names)
		if strings.Join(names, ",") != "Rice,Wheat" {
			t.Errorf("expected Bajra gone after delete, got %v", names)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		rr := do(t, server, http.MethodPost, "/catalog/reload", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp struct {
			Count int `json:"count"`
		}
		json.Unmarshal(rr.Body.Bytes(), &resp)
		if resp.Count != 2 {
			t.Errorf("expected 2 crops after reload, got %d", resp.Count)
		}
	})
}

func TestReadOnlyCatalog(t *testing.T) {
	server := createReadOnlyServer(t)

	if rr := do(t, server, http.MethodPost, "/catalog", bajraJSON); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 for save, got %d", rr.Code)
	}
	if rr := do(t, server, http.MethodDelete, "/catalog/rice", ""); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503 for delete, got %d", rr.Code)
	}
	if rr := do(t, server, http.MethodPost, "/catalog/reload", ""); rr.Code != http.StatusOK {
		t.Errorf("expected status 200 for reload, got %d", rr.Code)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testServerConfig()
	cfg.RateLimitRequests = 1
	cfg.RateLimitWindow = time.Minute
	server := createTestServer(t, cfg)

	body := `{"soil_type": "loamy", "water_avail": "high", "season": "kharif"}`

	if rr := do(t, server, http.MethodPost, "/recommend", body); rr.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rr.Code)
	}
	if rr := do(t, server, http.MethodPost, "/recommend", body); rr.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", rr.Code)
	}

	// Other routes are not limited.
	if rr := do(t, server, http.MethodGet, "/crops", ""); rr.Code != http.StatusOK {
		t.Errorf("expected /crops to pass, got %d", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := createTestServer(t, testServerConfig())

	t.Run("HealthCheck", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/health", "")

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		json.Unmarshal(rr.Body.Bytes(), &resp)

		if resp["status"] != "healthy" {
			t.Errorf("expected status 'healthy', got '%s'", resp["status"])
		}
		if resp["version"] != "test-v1" {
			t.Errorf("expected version 'test-v1', got '%s'", resp["version"])
		}
	})

	t.Run("ReadyCheck", func(t *testing.T) {
		rr := do(t, server, http.MethodGet, "/ready", "")

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		do(t, server, http.MethodPost, "/recommend", `{"season": "kharif"}`)

		rr := do(t, server, http.MethodGet, "/metrics", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "cropadvisor_recommendations_total") {
			t.Error("expected recommendation counter in metrics output")
		}
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("TracingMiddlewareSetsRequestID", func(t *testing.T) {
		var capturedRequestID string

		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v, ok := r.Context().Value(RequestIDKey).(string); ok {
				capturedRequestID = v
			}
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if capturedRequestID == "" {
			t.Error("expected request ID to be set")
		}

		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID response header")
		}
	})

	t.Run("TracingMiddlewareKeepsRequestID", func(t *testing.T) {
		handler := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-123")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		if rr.Header().Get(RequestIDHeader) != "req-123" {
			t.Errorf("expected request ID 'req-123', got '%s'", rr.Header().Get(RequestIDHeader))
		}
	})

	t.Run("RecoverMiddlewareHandlesPanic", func(t *testing.T) {
		handler := RecoverMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rr.Code)
		}
	})

	t.Run("CORSPreflight", func(t *testing.T) {
		server := createReadOnlyServer(t)

		req := httptest.NewRequest(http.MethodOptions, "/recommend", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)

		if rr.Header().Get("Access-Control-Allow-Origin") == "" {
			t.Error("expected Access-Control-Allow-Origin header")
		}
	})
}

func TestNumberUnmarshal(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		set     bool
		wantErr bool
	}{
		{`12.5`, 12.5, true, false},
		{`"40000"`, 40000, true, false},
		{`" 3 "`, 3, true, false},
		{`""`, 0, false, false},
		{`null`, 0, false, false},
		{`0`, 0, true, false},
		{`"abc"`, 0, false, true},
		{`"NaN"`, 0, false, true},
		{`true`, 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var n Number
			err := n.UnmarshalJSON([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if n.Set != tt.set || n.Value != tt.want {
				t.Errorf("expected %v/%v, got %v/%v", tt.want, tt.set, n.Value, n.Set)
			}
		})
	}
}
