package api

import (
	"fmt"
	"net/http"

	"github.com/ulule/limiter/v3"
	mhttp "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit returns a per-client limiter middleware for rate, e.g. "10-M".
// An empty rate returns a pass-through middleware.
func RateLimit(rate string) (func(http.Handler) http.Handler, error) {
	if rate == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, fmt.Errorf("%w: recommend rate %q: %v", ErrBadRequest, rate, err)
	}
	mw := mhttp.NewMiddleware(
		limiter.New(memory.NewStore(), r),
		mhttp.WithLimitReachedHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", ErrRateLimited)
		}),
	)
	return mw.Handler, nil
}
