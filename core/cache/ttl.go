package cache

import "time"

// TTLPolicy computes entry lifetimes from a characteristic of the query:
// its time window in days. Broader windows are more expensive upstream and
// change more slowly, so they are cached longer. The result is always
// clamped to the [Min, Max] band.
type TTLPolicy struct {
	Base   time.Duration `env:"CACHE_TTL_BASE" envDefault:"15m"`
	PerDay time.Duration `env:"CACHE_TTL_PER_DAY" envDefault:"2m"`
	Min    time.Duration `env:"CACHE_TTL_MIN" envDefault:"5m"`
	Max    time.Duration `env:"CACHE_TTL_MAX" envDefault:"6h"`
}

// ForWindow returns the TTL for a query spanning the given number of days.
// Non-positive windows get the base TTL.
func (p TTLPolicy) ForWindow(days int) time.Duration {
	ttl := p.Base
	if days > 0 {
		ttl += time.Duration(days) * p.PerDay
	}
	if p.Min > 0 && ttl < p.Min {
		ttl = p.Min
	}
	if p.Max > 0 && ttl > p.Max {
		ttl = p.Max
	}
	return ttl
}
