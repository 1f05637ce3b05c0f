package buildinfo

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
)

func TestGet_ReturnsDefaults(t *testing.T) {
	info := Get("smartmeet-worker")

	if info.ServiceName != "smartmeet-worker" {
		t.Errorf("expected ServiceName='smartmeet-worker', got %q", info.ServiceName)
	}
	if info.Version != "dev" {
		t.Errorf("expected Version='dev', got %q", info.Version)
	}
	if info.Commit != "unknown" {
		t.Errorf("expected Commit='unknown', got %q", info.Commit)
	}
	if info.BuildTime != "unknown" {
		t.Errorf("expected BuildTime='unknown', got %q", info.BuildTime)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected GoVersion=%q, got %q", runtime.Version(), info.GoVersion)
	}
}

func TestString_DefaultFormat(t *testing.T) {
	result := String()
	expected := "dev (unknown, unknown)"

	if result != expected {
		t.Errorf("expected String()=%q, got %q", expected, result)
	}
}

func TestString_LdflagsValues(t *testing.T) {
	origVersion := Version
	origCommit := Commit
	origBuildTime := BuildTime
	defer func() {
		Version = origVersion
		Commit = origCommit
		BuildTime = origBuildTime
	}()

	Version = "v0.3.1"
	Commit = "4f1c09a"
	BuildTime = "2026-08-20T09:15:00Z"

	result := String()
	expected := "v0.3.1 (4f1c09a, 2026-08-20T09:15:00Z)"

	if result != expected {
		t.Errorf("expected String()=%q, got %q", expected, result)
	}
}

func TestHandler(t *testing.T) {
	handler := Handler("smartmeet-worker")
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()

	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var info Info
	if err := json.NewDecoder(rec.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if info.ServiceName != "smartmeet-worker" {
		t.Errorf("expected service_name 'smartmeet-worker', got %q", info.ServiceName)
	}
	if info.Version == "" {
		t.Error("expected version to be non-empty")
	}
	if len(info.GoVersion) < 2 || info.GoVersion[:2] != "go" {
		t.Errorf("expected go_version to start with 'go', got %q", info.GoVersion)
	}
}
