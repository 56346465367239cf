package handler

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/prepexam/internal/config"
	"github.com/stemsi/prepexam/internal/response"
	"github.com/stemsi/prepexam/internal/service"
)

const probeTimeout = 2 * time.Second

// SystemHandler reports liveness and a runtime snapshot of this instance.
type SystemHandler struct {
	pool           *pgxpool.Pool
	rdb            *redis.Client
	attemptService *service.AttemptService
	startTime      time.Time
	log            zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, attemptService *service.AttemptService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:           pool,
		rdb:            rdb,
		attemptService: attemptService,
		startTime:      time.Now(),
		log:            log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
// Returns 503 when PostgreSQL or Redis cannot be reached.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	checks := map[string]string{"postgres": "ok", "redis": "ok"}
	healthy := true
	if err := h.pool.Ping(ctx); err != nil {
		checks["postgres"] = err.Error()
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	if !healthy {
		h.log.Warn().Interface("checks", checks).Msg("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

type systemStatus struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	LiveAttempts int `json:"live_attempts"`

	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	HeapSys     uint64 `json:"heap_sys"`
	NumGC       uint32 `json:"num_gc"`
	AppRSSBytes uint64 `json:"app_rss_bytes"`
	GoVersion   string `json:"go_version"`
	NumCPU      int    `json:"num_cpu"`

	QueueAnswers int64 `json:"queue_answers"`
	QueueResults int64 `json:"queue_results"`
}

// Status godoc
// GET /api/v1/system/status
// Runtime and worker queue snapshot for this instance.
func (h *SystemHandler) Status(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"system": h.collect(c.Request.Context())})
}

func (h *SystemHandler) collect(ctx context.Context) systemStatus {
	m := systemStatus{
		Timestamp:    time.Now().Unix(),
		Uptime:       formatDuration(time.Since(h.startTime)),
		LiveAttempts: h.attemptService.LiveCount(),
		Goroutines:   runtime.NumGoroutine(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.NumGC = ms.NumGC
	m.AppRSSBytes, _ = readProcessRSS()

	if h.rdb != nil {
		ctx, cancel := context.WithTimeout(ctx, probeTimeout)
		defer cancel()
		pipe := h.rdb.Pipeline()
		answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
		resultsCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
		if _, err := pipe.Exec(ctx); err == nil {
			m.QueueAnswers, _ = answersCmd.Result()
			m.QueueResults, _ = resultsCmd.Result()
		} else {
			h.log.Debug().Err(err).Msg("Queue depth probe failed")
		}
	}

	return m
}

// readProcessRSS reads VmRSS from /proc/self/status.
func readProcessRSS() (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "VmRSS:") {
			return parseKBValue(line), nil
		}
	}
	return 0, fmt.Errorf("VmRSS not found")
}

// parseKBValue reads lines like "VmRSS:   16384 kB" as bytes.
func parseKBValue(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	val, _ := strconv.ParseUint(fields[1], 10, 64)
	return val * 1024
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
