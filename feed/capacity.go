package feed

import (
	"fmt"

	"github.com/convictionlabs/conviction/models"
)

// DefaultMaxRationales is the per-bucket cap applied when configuration
// does not override it.
const DefaultMaxRationales = 25

// CapacityError is the typed capacity-reached outcome of a rationale save.
// It is an expected business condition, surfaced so the caller can offer
// the user the choice to remove an existing entry.
type CapacityError struct {
	AssetSymbol string
	Sentiment   models.Sentiment
	Limit       int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("the maximum of %d %s theses for %s has been reached",
		e.Limit, e.Sentiment, e.AssetSymbol)
}

// CheckRationaleCapacity decides whether another entry fits in the bucket.
// Pure: the caller supplies the current bucket count and must hold the
// bucket lock for the check to be race-free.
func CheckRationaleCapacity(current int64, limit int, thesis *models.Thesis) error {
	if limit <= 0 {
		limit = DefaultMaxRationales
	}
	if current >= int64(limit) {
		return &CapacityError{
			AssetSymbol: thesis.AssetSymbol,
			Sentiment:   thesis.Sentiment,
			Limit:       limit,
		}
	}
	return nil
}
