package sources

import (
	"context"
	"time"

	"github.com/repwatch/repwatch/internal/models"
)

// Source is the contract every platform connector implements. Fetch returns
// a finite, unsorted batch of mentions; ordering is imposed downstream by the
// aggregator. Zero results is a valid, non-error outcome. Failures are
// translated into *SourceError.
type Source interface {
	Name() string
	Enabled() bool
	Fetch(ctx context.Context, query string, since, until time.Time, maxResults int) ([]models.Mention, error)
}
