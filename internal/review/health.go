package review

import (
	"github.com/sitepulse/sitepulse/internal/domain"
)

// Health score weights in percent. They sum to 100 so the composite stays
// in [0,100] whenever the inputs do.
const (
	healthUXWeight            = 35
	healthPerformanceWeight   = 30
	healthAccessibilityWeight = 20
	healthSEOWeight           = 15
)

// HealthScore blends the four audit dimensions into the single number shown
// on dashboards. Pure function: callers recompute it whenever any input
// changes rather than caching it. Scaled-integer arithmetic keeps half
// values rounding up where a float blend would land just below .5.
func HealthScore(ux, performance, accessibility, seo int) int {
	sum := ux*healthUXWeight +
		performance*healthPerformanceWeight +
		accessibility*healthAccessibilityWeight +
		seo*healthSEOWeight
	return domain.ClampScore((sum + 50) / 100)
}
