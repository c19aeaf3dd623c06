package analysis

import (
	"time"

	"github.com/chanlytics/channel-analysis-go/internal/db/models"
)

// Freshness classifies a record's age relative to its staleness window.
type Freshness int

const (
	// Missing means no record exists.
	Missing Freshness = iota
	// Stale means the record exists but its staleness window has elapsed.
	Stale
	// Fresh means the record exists and is within its staleness window.
	Fresh
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "missing"
	}
}

// Freshness tags attached to resolution results, naming the tier that served
// the record.
const (
	TagCached = "cached"
	TagStored = "stored"
	TagStale  = "stale"
	TagNew    = "new"
)

// Classify returns the freshness of an analysis at the given instant.
// A nil analysis is Missing; an analysis past its expiry is Stale.
func Classify(analysis *models.ChannelAnalysis, now time.Time) Freshness {
	if analysis == nil {
		return Missing
	}
	if now.After(analysis.ExpiresAt) {
		return Stale
	}
	return Fresh
}
