package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	startedAt       time.Time
	totalRequests   uint64
	errorRequests   uint64
	clientErrors    uint64
	rateLimited     uint64
	totalDurationMs uint64

	mu      sync.Mutex
	exports map[string]uint64
}

func New() *Collector {
	return &Collector{startedAt: time.Now(), exports: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	switch {
	case status >= 500:
		atomic.AddUint64(&c.errorRequests, 1)
	case status == 429:
		atomic.AddUint64(&c.rateLimited, 1)
		atomic.AddUint64(&c.clientErrors, 1)
	case status >= 400:
		atomic.AddUint64(&c.clientErrors, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordExport counts a generated report by format ("csv", "xlsx", "pdf").
func (c *Collector) RecordExport(format string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.exports[format]++
	c.mu.Unlock()
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	exports := make(map[string]uint64, len(c.exports))
	for format, n := range c.exports {
		exports[format] = n
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":     total,
		"errorsTotal":       atomic.LoadUint64(&c.errorRequests),
		"clientErrorsTotal": atomic.LoadUint64(&c.clientErrors),
		"rateLimitedTotal":  atomic.LoadUint64(&c.rateLimited),
		"avgDurationMs":     avg,
		"totalDurationMs":   totalMs,
		"exportsTotal":      exports,
		"uptimeSeconds":     int64(time.Since(c.startedAt).Seconds()),
	}
}
