package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

type HealthStatus struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	StartTime       time.Time         `json:"start_time"`
	MemoryUsage     uint64            `json:"memory_usage"`
	GoroutineCount  int               `json:"goroutine_count"`
	LastError       string            `json:"last_error,omitempty"`
	ComponentStatus map[string]string `json:"component_status"`
}

var (
	startTime = time.Now()

	mu           sync.Mutex
	lastError    string
	healthChecks = make(map[string]func() bool)
)

func RegisterHealthCheck(name string, check func() bool) {
	mu.Lock()
	defer mu.Unlock()
	healthChecks[name] = check
}

// RecordError surfaces the most recent failure on the health endpoint.
func RecordError(err error) {
	if err == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	lastError = err.Error()
}

func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	mu.Lock()
	status := HealthStatus{
		Status:          "ok",
		Uptime:          time.Since(startTime).String(),
		StartTime:       startTime,
		MemoryUsage:     m.Alloc,
		GoroutineCount:  runtime.NumGoroutine(),
		LastError:       lastError,
		ComponentStatus: make(map[string]string),
	}
	for name, check := range healthChecks {
		if check() {
			status.ComponentStatus[name] = "healthy"
		} else {
			status.ComponentStatus[name] = "unhealthy"
			status.Status = "degraded"
		}
	}
	mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
