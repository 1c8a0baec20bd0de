package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
)

// AdmissionController gates expensive downstream calls (rerank, generation)
// with a per-caller token bucket. Buckets refill continuously at the
// configured rate and are capped at capacity. TryAdmit never blocks: it
// either admits, or rejects with the time until enough tokens will have
// accrued. Pure index search traffic does not pass through here.
type AdmissionController struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	refill   rate.Limit
	capacity int
}

// NewAdmissionController creates a controller refilling each caller's bucket
// at refillPerSecond tokens per second up to capacity.
func NewAdmissionController(refillPerSecond float64, capacity int) *AdmissionController {
	if refillPerSecond <= 0 {
		refillPerSecond = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	return &AdmissionController{
		buckets:  make(map[string]*rate.Limiter),
		refill:   rate.Limit(refillPerSecond),
		capacity: capacity,
	}
}

// TryAdmit atomically checks and decrements the caller's bucket by cost
// tokens. Returns nil when admitted, or a *domain.AdmissionError carrying
// the computed retry-after on rejection.
func (a *AdmissionController) TryAdmit(callerID string, cost int) error {
	if cost <= 0 {
		cost = 1
	}
	if cost > a.capacity {
		return domain.ErrInvalidInput
	}

	limiter := a.bucket(callerID)

	now := time.Now()
	reservation := limiter.ReserveN(now, cost)
	if !reservation.OK() {
		return domain.ErrInvalidInput
	}

	if delay := reservation.DelayFrom(now); delay > 0 {
		// Not enough tokens yet; hand them back and tell the caller
		// when there will be
		reservation.CancelAt(now)
		return &domain.AdmissionError{
			CallerID:   callerID,
			Cost:       cost,
			RetryAfter: delay,
		}
	}
	return nil
}

// bucket returns the caller's limiter, creating it lazily.
func (a *AdmissionController) bucket(callerID string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	limiter, ok := a.buckets[callerID]
	if !ok {
		limiter = rate.NewLimiter(a.refill, a.capacity)
		a.buckets[callerID] = limiter
	}
	return limiter
}
