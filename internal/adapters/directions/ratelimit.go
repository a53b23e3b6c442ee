package directions

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/ports"
	"github.com/samirrijal/circlerun/internal/pkg/metrics"
)

// RateLimited caps the request rate to an underlying provider. It is shared
// by every generator in the process.
type RateLimited struct {
	next    ports.DirectionsProvider
	limiter *rate.Limiter
}

// NewRateLimited wraps next with a token bucket of rps requests per second.
// A non-positive rps disables limiting.
func NewRateLimited(next ports.DirectionsProvider, rps float64, burst int) *RateLimited {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Directions(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrProvider, err)
	}
	metrics.ProviderThrottleWait.Observe(time.Since(start).Seconds())
	return r.next.Directions(ctx, req)
}
