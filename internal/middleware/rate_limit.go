package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/bidhaven/backend/internal/cache"
	"github.com/bidhaven/backend/internal/models"
	pkghttp "github.com/bidhaven/backend/pkg/http"
)

const (
	// BurstThreshold is the per-IP request count within one second that
	// trips a temporary network block.
	BurstThreshold = 20

	// BurstBlockDuration is how long a tripped IP stays blocked.
	BurstBlockDuration = 5 * time.Minute
)

// BlockedIPStore is the persistence surface the IP guard needs.
type BlockedIPStore interface {
	Get(ctx context.Context, ip string) (*models.BlockedIP, error)
	Upsert(ctx context.Context, block *models.BlockedIP) error
}

// IPGuard blocks requests from IPs with an active block and writes new
// blocks when a single IP exceeds BurstThreshold requests in one second.
type IPGuard struct {
	store    BlockedIPStore
	counters *cache.TTL
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger

	now func() time.Time
}

// NewIPGuard creates an IPGuard. counters must be a cache with a one-second
// default TTL; each entry is a per-IP request count for the current second.
func NewIPGuard(store BlockedIPStore, counters *cache.TTL, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *IPGuard {
	return &IPGuard{
		store:    store,
		counters: counters,
		ipConfig: ipConfig,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckBlocked rejects requests from IPs with an unexpired block. Lookup
// failures let the request through; the guard must not take the API down
// with the database.
func (g *IPGuard) CheckBlocked(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := pkghttp.ExtractClientIP(r, g.ipConfig)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		block, err := g.store.Get(r.Context(), ip)
		if err != nil {
			g.logger.Warn("blocked ip lookup failed", "error", err, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if block != nil && g.now().Before(block.BlockedUntil) {
			pkghttp.WriteTooManyRequests(w, "Your IP is temporarily blocked due to suspicious activity.")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// DetectBurst counts requests per IP per second and blocks IPs that exceed
// the threshold. The write is best-effort; the offending request is still
// rejected even when persisting the block fails.
func (g *IPGuard) DetectBurst(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := pkghttp.ExtractClientIP(r, g.ipConfig)
		if ip == "" {
			next.ServeHTTP(w, r)
			return
		}

		count := g.counters.Increment(ip)
		if count <= BurstThreshold {
			next.ServeHTTP(w, r)
			return
		}

		if count == BurstThreshold+1 {
			block := &models.BlockedIP{
				IP:           ip,
				Reason:       models.BlockReasonBurst,
				BlockedUntil: g.now().Add(BurstBlockDuration),
			}
			if err := g.store.Upsert(r.Context(), block); err != nil {
				g.logger.Error("failed to persist ip block", "error", err, "ip", ip)
			} else {
				g.logger.Warn("ip blocked for request burst", "ip", ip, "count", count)
			}
		}

		pkghttp.WriteTooManyRequests(w, "Your IP is temporarily blocked due to suspicious activity.")
	})
}

// RateLimit creates a middleware that limits requests per client IP over the
// given window.
func RateLimit(requests int, window time.Duration) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Too many requests. Please try again later.")
		}),
	)
}
