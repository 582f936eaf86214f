// Package sim fabricates intraday price data for display: a one-shot random
// walk path anchored at the real current price, and an ongoing tick loop that
// perturbs the live price on a fixed cadence. Nothing here is persisted; the
// output is purely cosmetic.
package sim

import (
	"fmt"
	"math"
	"math/rand"

	"stockpulse/internal/domain"
)

const (
	// PathPoints is the number of points on a generated intraday path.
	PathPoints = 50

	// pathVolatility scales per-step noise on path generation (0.5% of the
	// current price).
	pathVolatility = 0.005

	// trendWeight and carryWeight blend the linear trend with the running
	// simulated price at each step.
	trendWeight = 0.7
	carryWeight = 0.3

	// sessionMinutes is the trading-session length spread across the
	// cosmetic clock labels (9:30 to 16:00).
	sessionMinutes = 390
)

// ImpliedOpen back-computes the session-start price from the current price
// and percent change.
func ImpliedOpen(price, changePercent float64) float64 {
	return price / (1 + changePercent/100)
}

// GeneratePath produces a synthetic intraday path for the given current
// price and percent change. The path walks from the implied open toward the
// current price with bounded noise, and the final point always equals the
// current price exactly, so the chart agrees with the displayed quote.
func GeneratePath(rng *rand.Rand, price, changePercent float64) []domain.PricePoint {
	open := ImpliedOpen(price, changePercent)
	volatility := price * pathVolatility

	points := make([]domain.PricePoint, 0, PathPoints)
	running := open
	for i := 0; i < PathPoints; i++ {
		progress := float64(i) / float64(PathPoints-1)
		trend := open + (price-open)*progress
		noise := (rng.Float64() - 0.5) * volatility

		p := trend*trendWeight + running*carryWeight + noise
		if i == PathPoints-1 {
			p = price
		}
		p = math.Round(p*100) / 100

		points = append(points, domain.PricePoint{
			Time:  clockLabel(i),
			Price: p,
		})
		running = p
	}
	return points
}

// clockLabel approximates a trading-session clock face for point i, spread
// evenly over the session.
func clockLabel(i int) string {
	minutes := i * sessionMinutes / PathPoints
	return fmt.Sprintf("%d:%02d", 9+minutes/60, minutes%60)
}
