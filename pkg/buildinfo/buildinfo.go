// Package buildinfo exposes the version stamped into the binary at build
// time so operators can tell exactly what is running.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
)

// Set via ldflags, e.g.
// -X github.com/oguzatay/smartmeet/pkg/buildinfo.Version=v0.3.1
// -X github.com/oguzatay/smartmeet/pkg/buildinfo.Commit=4f1c09a
// -X github.com/oguzatay/smartmeet/pkg/buildinfo.BuildTime=2026-08-20T09:15:00Z
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity of one running service.
type Info struct {
	ServiceName string `json:"service_name"`
	Version     string `json:"version"`
	Commit      string `json:"commit"`
	BuildTime   string `json:"build_time"`
	GoVersion   string `json:"go_version"`
}

// Get returns the build identity under the given service name.
func Get(serviceName string) Info {
	return Info{
		ServiceName: serviceName,
		Version:     Version,
		Commit:      Commit,
		BuildTime:   BuildTime,
		GoVersion:   runtime.Version(),
	}
}

// String renders a one-line version like "v0.3.1 (4f1c09a, 2026-08-20T09:15:00Z)".
func String() string {
	return fmt.Sprintf("%s (%s, %s)", Version, Commit, BuildTime)
}

// Handler serves the build identity as JSON, for a /version or
// /buildinfo endpoint.
func Handler(serviceName string) http.HandlerFunc {
	info := Get(serviceName)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(info); err != nil {
			http.Error(w, "encoding build info", http.StatusInternalServerError)
		}
	}
}
