package handler

import (
	"net/http"
	"runtime"
	"time"

	"orderscan-api/internal/cache"
	"orderscan-api/internal/repository"
	"orderscan-api/internal/service"
	"orderscan-api/pkg/apierror"
	"orderscan-api/pkg/response"
)

// AdminHandler handles admin-related HTTP requests.
type AdminHandler struct {
	redisBuffer *cache.RedisEventBuffer
	eventRepo   repository.ScanEventRepository
	catalogRepo repository.CatalogRepository
	scanService *service.ScanService
	dbType      string
	loginKey    string
	startTime   time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	redisBuffer *cache.RedisEventBuffer,
	eventRepo repository.ScanEventRepository,
	catalogRepo repository.CatalogRepository,
	scanService *service.ScanService,
	dbType string,
	loginKey string,
) *AdminHandler {
	return &AdminHandler{
		redisBuffer: redisBuffer,
		eventRepo:   eventRepo,
		catalogRepo: catalogRepo,
		scanService: scanService,
		dbType:      dbType,
		loginKey:    loginKey,
		startTime:   time.Now(),
	}
}

// GetStats handles GET /api/v1/admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats := make(map[string]interface{})

	// System info
	stats["uptime_seconds"] = int64(time.Since(h.startTime).Seconds())
	stats["uptime_human"] = time.Since(h.startTime).Round(time.Second).String()
	stats["server_time"] = time.Now().Format(time.RFC3339)
	stats["db_type"] = h.dbType

	// Memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats["memory"] = map[string]interface{}{
		"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
		"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
		"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
		"heap_alloc_mb":  float64(memStats.HeapAlloc) / 1024 / 1024,
		"heap_inuse_mb":  float64(memStats.HeapInuse) / 1024 / 1024,
		"num_gc":         memStats.NumGC,
		"goroutines":     runtime.NumGoroutine(),
	}

	// Scan sessions
	if h.scanService != nil {
		stats["sessions"] = map[string]interface{}{
			"active": h.scanService.SessionCount(),
		}
	}

	// Redis buffer stats
	if h.redisBuffer != nil {
		count, err := h.redisBuffer.Count(ctx)
		if err == nil {
			stats["redis_buffer"] = map[string]interface{}{
				"pending_events": count,
				"status":         "connected",
			}
		} else {
			stats["redis_buffer"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["redis_buffer"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Catalog store stats
	if h.catalogRepo != nil {
		catalogStats, err := h.catalogRepo.GetStats(ctx)
		if err == nil {
			catalogStats["status"] = "connected"
			stats["catalog"] = catalogStats
		} else {
			stats["catalog"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["catalog"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Event store stats
	if h.eventRepo != nil {
		eventStats, err := h.eventRepo.GetStats(ctx)
		if err == nil {
			eventStats["status"] = "connected"
			stats["events"] = eventStats
		} else {
			stats["events"] = map[string]interface{}{
				"status": "error",
				"error":  err.Error(),
			}
		}
	} else {
		stats["events"] = map[string]interface{}{
			"status": "not_configured",
		}
	}

	// Runtime info
	stats["runtime"] = map[string]interface{}{
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
	}

	response.OK(w, stats)
}

// FlushEvents handles POST /api/v1/admin/events/flush
func (h *AdminHandler) FlushEvents(w http.ResponseWriter, r *http.Request) {
	if h.redisBuffer == nil {
		response.Error(w, apierror.ServiceUnavailable("event buffer not configured"))
		return
	}

	flushed, err := h.redisBuffer.FlushBatch(r.Context())
	if err != nil {
		response.Error(w, apierror.InternalError("failed to flush events: "+err.Error()))
		return
	}

	response.OK(w, map[string]interface{}{
		"status":  "flushed",
		"flushed": flushed,
	})
}

// Login handles POST /api/v1/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.loginKey == "" {
		response.Error(w, apierror.ServiceUnavailable("admin login not configured"))
		return
	}

	if r.Header.Get("X-Login-Key") != h.loginKey {
		response.Error(w, apierror.Unauthorized("invalid login key"))
		return
	}

	response.OK(w, map[string]string{"status": "authenticated"})
}

// GetHealth handles GET /api/v1/admin/health
func (h *AdminHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
