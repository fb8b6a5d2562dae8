package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/unlearnai/dagster/config"
	"github.com/unlearnai/dagster/definition"
	"github.com/unlearnai/dagster/logger"
	"github.com/unlearnai/dagster/manifest"
	"github.com/unlearnai/dagster/observability"
	"github.com/unlearnai/dagster/runconfig"
	"github.com/unlearnai/dagster/schema"
	"github.com/unlearnai/dagster/server/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testServer serves one job, etl, where A feeds B and A takes an Int.
func testServer(t *testing.T) *Server {
	t.Helper()
	g, err := definition.NewGraph(definition.GraphConfig{
		Name: "etl",
		Nodes: []*definition.Node{
			definition.NewNode("A", definition.MustOp(definition.OpConfig{Name: "produce", Config: schema.NewField(schema.Int)})),
			definition.NewNode("B", definition.MustOp(definition.OpConfig{
				Name:   "consume",
				Inputs: []*definition.InputDefinition{{Name: "x"}},
			})),
		},
		Dependencies: []definition.Dependency{definition.DependsOn("B", "x", definition.Out("A", ""))},
	})
	if err != nil {
		t.Fatalf("NewGraph: %v", err)
	}
	job, err := definition.NewJob(definition.JobConfig{Name: "etl", Description: "demo", Graph: g})
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	catalog, err := manifest.NewCatalog(job)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	cache, err := runconfig.NewCache(8, runconfig.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return New(Options{
		Service: "dagster-schema",
		Version: "test",
		Config:  config.ServerConfig{Addr: "127.0.0.1:0", Mode: gin.TestMode, MaxBodyBytes: 1 << 16},
		Catalog: catalog,
		Cache:   cache,
		Logger:  logger.Nop(),
	})
}

func do(t *testing.T, s *Server, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: response is not a JSON object: %v (%s)", method, path, err, rr.Body.String())
	}
	return rr, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	s := testServer(t)
	rr, body := do(t, s, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if body["status"] != "up" || body["service"] != "dagster-schema" {
		t.Errorf("unexpected health %v", body)
	}
	if components, _ := body["components"].([]any); len(components) != 2 {
		t.Errorf("expected catalog and cache components, got %v", body["components"])
	}
	if rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected a request id")
	}
}

func TestServer_Lifecycle(t *testing.T) {
	s := testServer(t)
	if h := s.CheckHealth(context.Background()); h.Status != observability.HealthStatusDown {
		t.Errorf("expected down before Start, got %+v", h)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.Addr() == "127.0.0.1:0" {
		t.Fatal("expected the bound address after Start")
	}
	h := s.CheckHealth(context.Background())
	if h.Status != observability.HealthStatusUp || h.Details["addr"] != s.Addr() {
		t.Errorf("expected up at %s, got %+v", s.Addr(), h)
	}

	resp, err := http.Get("http://" + s.Addr() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from the live server, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h := s.CheckHealth(context.Background()); h.Status != observability.HealthStatusDown {
		t.Errorf("expected down after Stop, got %+v", h)
	}
}

func TestListJobs(t *testing.T) {
	_, body := do(t, testServer(t), "GET", "/jobs", "")
	jobs, _ := body["data"].([]any)
	if len(jobs) != 1 {
		t.Fatalf("expected one job, got %v", body)
	}
	job := jobs[0].(map[string]any)
	if job["name"] != "etl" || job["vocabulary"] != "ops" {
		t.Errorf("unexpected job %v", job)
	}
	if modes := job["modes"].([]any); len(modes) != 1 || modes[0] != definition.DefaultModeName {
		t.Errorf("unexpected modes %v", modes)
	}
}

func TestIntrospection(t *testing.T) {
	s := testServer(t)
	tests := []struct {
		name   string
		path   string
		status int
		code   string
		check  func(t *testing.T, data any)
	}{
		{
			name:   "schema",
			path:   "/jobs/etl/schema",
			status: http.StatusOK,
			check: func(t *testing.T, data any) {
				d := data.(map[string]any)
				if d["root_key"] == "" || d["node_dictionary_key"] != "ops" {
					t.Errorf("unexpected schema response %v", d)
				}
				js, _ := d["json_schema"].(map[string]any)
				if js["type"] != "object" {
					t.Errorf("expected an object schema, got %v", js)
				}
			},
		},
		{
			name:   "subset",
			path:   "/jobs/etl/schema?select=A",
			status: http.StatusOK,
			check: func(t *testing.T, data any) {
				if sel := data.(map[string]any)["selection"].([]any); len(sel) != 1 || sel[0] != "A" {
					t.Errorf("unexpected selection %v", sel)
				}
			},
		},
		{
			name:   "types",
			path:   "/jobs/etl/types?builtins=true",
			status: http.StatusOK,
			check: func(t *testing.T, data any) {
				var names []string
				for _, s := range data.([]any) {
					names = append(names, s.(map[string]any)["name"].(string))
				}
				if !strings.Contains(strings.Join(names, ","), "Int") {
					t.Errorf("expected builtin Int among %v", names)
				}
			},
		},
		{
			name:   "scaffold",
			path:   "/jobs/etl/scaffold",
			status: http.StatusOK,
			check: func(t *testing.T, data any) {
				if _, ok := data.(map[string]any)["ops"]; !ok {
					t.Errorf("expected the node dictionary in %v", data)
				}
			},
		},
		{name: "unknown job", path: "/jobs/nope/schema", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown mode", path: "/jobs/etl/schema?mode=prod", status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "unknown node", path: "/jobs/etl/types?select=Z", status: http.StatusBadRequest, code: "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, s, "GET", tt.path, "")
			if rr.Code != tt.status {
				t.Fatalf("expected %d, got %d: %v", tt.status, rr.Code, body)
			}
			if tt.code != "" {
				if got := errorCode(body); got != tt.code {
					t.Errorf("expected %s, got %s", tt.code, got)
				}
				return
			}
			tt.check(t, body["data"])
		})
	}
}

func TestValidate(t *testing.T) {
	s := testServer(t)
	const clientID = "3f2b8c1e-6a4d-4f7e-9b1a-2c3d4e5f6a7b"

	t.Run("valid yaml", func(t *testing.T) {
		rr, body := do(t, s, "POST", "/jobs/etl/validate", "ops:\n  A:\n    config:\n      config: 3\n")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %v", rr.Code, body)
		}
		data := body["data"].(map[string]any)
		if data["submission_id"] == "" || rr.Header().Get(SubmissionIDHeader) != data["submission_id"] {
			t.Errorf("expected a submission id, got %v", data["submission_id"])
		}
		nodes := data["run_config"].(map[string]any)["nodes"].(map[string]any)
		if nodes["A"].(map[string]any)["config"] != float64(3) {
			t.Errorf("unexpected nodes %v", nodes)
		}
	})

	t.Run("client submission id", func(t *testing.T) {
		rr, body := do(t, s, "POST", "/jobs/etl/validate", `{"ops": {"A": {"config": {"config": 1}}}}`, SubmissionIDHeader, clientID)
		if rr.Code != http.StatusOK || body["data"].(map[string]any)["submission_id"] != clientID {
			t.Errorf("expected the client id to be kept, got %d %v", rr.Code, body)
		}
	})

	tests := []struct {
		name    string
		body    string
		headers []string
		status  int
		code    string
	}{
		{"missing config", "{}", nil, http.StatusUnprocessableEntity, "INVALID_RUN_CONFIG"},
		{"malformed", "ops: [", nil, http.StatusBadRequest, "INVALID_INPUT"},
		{"bad submission id", "{}", []string{SubmissionIDHeader, "not-a-uuid"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"too large", "ops: {A: {config: {config: " + strings.Repeat("1", 1<<17) + "}}}", nil, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := do(t, s, "POST", "/jobs/etl/validate", tt.body, tt.headers...)
			if rr.Code != tt.status || errorCode(body) != tt.code {
				t.Fatalf("expected %d %s, got %d %v", tt.status, tt.code, rr.Code, body)
			}
		})
	}

	t.Run("error details", func(t *testing.T) {
		_, body := do(t, s, "POST", "/jobs/etl/validate", "{}")
		details := body["error"].(map[string]any)["details"].(map[string]any)
		errs := details["errors"].([]any)
		if len(errs) != 1 || errs[0].(map[string]any)["path"] != "ops.A.config.config" {
			t.Errorf("unexpected validation errors %v", errs)
		}
	})
}
