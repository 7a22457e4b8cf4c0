package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/phantomos/governor/internal/governor"
	"github.com/phantomos/governor/internal/scan"
)

func fingerprintHex(code string) string {
	return scan.FingerprintOf([]byte(code)).String()
}

func newTestServer(t *testing.T, token string) *APIServer {
	t.Helper()
	gov := governor.New(governor.Options{})
	t.Cleanup(gov.Shutdown)
	return NewAPIServer(gov, nil, token)
}

func doJSON(t *testing.T, s *APIServer, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad JSON response %q: %v", w.Body.String(), err)
	}
	return out
}

func TestEvaluateEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantVerdict string
	}{
		{
			name:        "destructive code denied",
			body:        `{"code": "unlink(\"/data/file\");", "name": "cleanup"}`,
			wantStatus:  http.StatusOK,
			wantVerdict: "DENY",
		},
		{
			name:        "benign code allowed",
			body:        `{"code": "x = 1 + 2"}`,
			wantStatus:  http.StatusOK,
			wantVerdict: "ALLOW",
		},
		{
			name:       "missing code rejected",
			body:       `{"name": "empty"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "malformed JSON rejected",
			body:       `{"code": `,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/evaluate", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantVerdict == "" {
				return
			}
			resp := decodeBody(t, w)
			if got := resp["verdict"]; got != tt.wantVerdict {
				t.Errorf("verdict = %v, want %v", got, tt.wantVerdict)
			}
		})
	}
}

func TestEvaluateReturnsSignature(t *testing.T) {
	s := newTestServer(t, "")

	w := doJSON(t, s, http.MethodPost, "/api/evaluate", `{"code": "y = compute()"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decodeBody(t, w)

	sig, ok := resp["signature"].(string)
	if !ok || len(sig) != 32 {
		t.Fatalf("signature = %v, want 32-char hex string", resp["signature"])
	}
	fp := resp["trace_id"]
	if fp == "" {
		t.Error("trace_id missing from allow response")
	}

	// The issued signature must verify against the code's fingerprint.
	verifyBody := `{"fingerprint": "` + fingerprintHex("y = compute()") + `", "signature": "` + sig + `"}`
	w = doJSON(t, s, http.MethodPost, "/api/verify", verifyBody)
	if w.Code != http.StatusOK {
		t.Fatalf("verify status = %d: %s", w.Code, w.Body.String())
	}
	if valid := decodeBody(t, w)["valid"]; valid != true {
		t.Errorf("valid = %v, want true", valid)
	}
}

func TestCheckEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantVerdict string
	}{
		{
			name:        "memory free denied",
			body:        `{"policy": "MEM_FREE", "pid": 10}`,
			wantStatus:  http.StatusOK,
			wantVerdict: "DENY",
		},
		{
			name:        "process kill transformed",
			body:        `{"policy": "PROC_KILL", "pid": 10}`,
			wantStatus:  http.StatusOK,
			wantVerdict: "TRANSFORM",
		},
		{
			name:        "delete with hide capability transformed",
			body:        `{"policy": "FS_DELETE", "path": "/tmp/x", "caps": "HIDE_FILES"}`,
			wantStatus:  http.StatusOK,
			wantVerdict: "TRANSFORM",
		},
		{
			name:       "unknown policy rejected",
			body:       `{"policy": "BOGUS"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "code eval tag not a callout",
			body:       `{"policy": "CODE_EVAL"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, s, http.MethodPost, "/api/check", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantVerdict == "" {
				return
			}
			if got := decodeBody(t, w)["verdict"]; got != tt.wantVerdict {
				t.Errorf("verdict = %v, want %v", got, tt.wantVerdict)
			}
		})
	}
}

func TestTokenAuth(t *testing.T) {
	s := newTestServer(t, "sekrit-token")

	// Without the token API routes refuse.
	w := doJSON(t, s, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}

	// Wrong token refuses too.
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}

	// Correct token passes.
	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set("Authorization", "Bearer sekrit-token")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("good token: status = %d, want 200", w.Code)
	}

	// Health and metrics stay open.
	w = doJSON(t, s, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("health: status = %d, want 200", w.Code)
	}
}

func TestScopeEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w := doJSON(t, s, http.MethodPost, "/api/scopes",
		`{"id": "tmp-writes", "caps": "WRITE_FILES", "path_glob": "/tmp/*", "max_bytes": 4096}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add scope: status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/scopes", "")
	if got := decodeBody(t, w)["total"]; got != float64(1) {
		t.Errorf("total = %v, want 1", got)
	}

	// A scope with no recognized capabilities never lands.
	w = doJSON(t, s, http.MethodPost, "/api/scopes",
		`{"id": "bad", "caps": "NOT_A_CAP", "path_glob": "/tmp/*"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("bogus caps: status = %d, want 400", w.Code)
	}

	// Check inside and outside the granted scope.
	w = doJSON(t, s, http.MethodPost, "/api/scopes/check",
		`{"cap": "WRITE_FILES", "path": "/tmp/a.txt", "size": 100}`)
	if got := decodeBody(t, w)["allowed"]; got != true {
		t.Errorf("in-scope check = %v, want true", got)
	}
	w = doJSON(t, s, http.MethodPost, "/api/scopes/check",
		`{"cap": "WRITE_FILES", "path": "/etc/passwd", "size": 100}`)
	if got := decodeBody(t, w)["allowed"]; got != false {
		t.Errorf("out-of-scope check = %v, want false", got)
	}

	w = doJSON(t, s, http.MethodDelete, "/api/scopes/tmp-writes", "")
	if w.Code != http.StatusOK {
		t.Errorf("remove: status = %d", w.Code)
	}
	w = doJSON(t, s, http.MethodDelete, "/api/scopes/tmp-writes", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("remove again: status = %d, want 404", w.Code)
	}
}

func TestFlagEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	w := doJSON(t, s, http.MethodPut, "/api/flags", `{"flags": "strict,cache"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("set flags: status = %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodGet, "/api/flags", "")
	flags, _ := decodeBody(t, w)["flags"].(string)
	if !strings.Contains(flags, "strict") {
		t.Errorf("flags = %q, want strict set", flags)
	}
}

func TestRollbackEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	doJSON(t, s, http.MethodPost, "/api/evaluate", `{"code": "v = load()"}`)

	w := doJSON(t, s, http.MethodPost, "/api/history/0/rollback", "")
	if w.Code != http.StatusOK {
		t.Fatalf("rollback: status = %d: %s", w.Code, w.Body.String())
	}

	// Second rollback of the same entry conflicts.
	w = doJSON(t, s, http.MethodPost, "/api/history/0/rollback", "")
	if w.Code != http.StatusConflict {
		t.Errorf("double rollback: status = %d, want 409", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/history/99/rollback", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing entry: status = %d, want 404", w.Code)
	}
}

func TestHistoryAndAuditEndpoints(t *testing.T) {
	s := newTestServer(t, "")

	doJSON(t, s, http.MethodPost, "/api/evaluate", `{"code": "a = 1"}`)
	doJSON(t, s, http.MethodPost, "/api/check", `{"policy": "MEM_FREE"}`)

	w := doJSON(t, s, http.MethodGet, "/api/history", "")
	if got := decodeBody(t, w)["total"]; got != float64(1) {
		t.Errorf("history total = %v, want 1 (callouts excluded)", got)
	}

	w = doJSON(t, s, http.MethodGet, "/api/audit", "")
	if got := decodeBody(t, w)["total"]; got != float64(2) {
		t.Errorf("audit total = %v, want 2", got)
	}

	w = doJSON(t, s, http.MethodGet, "/api/audit?limit=0", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")

	doJSON(t, s, http.MethodPost, "/api/evaluate", `{"code": "b = 2"}`)

	w := doJSON(t, s, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics: status = %d", w.Code)
	}
	body := w.Body.String()
	for _, metric := range []string{
		"governor_evaluations_total 1",
		"governor_health_score",
		"governor_cache_entries",
	} {
		if !strings.Contains(body, metric) {
			t.Errorf("metrics output missing %q", metric)
		}
	}
}
