package reports

import (
	"errors"
	"fmt"

	"github.com/repwatch/repwatch/internal/models"
)

// ErrNotFound is returned when no report exists under the requested ID.
var ErrNotFound = errors.New("report not found")

// InvalidTransitionError names an illegal status change so callers can show
// the moderator exactly what was rejected.
type InvalidTransitionError struct {
	ReportID string
	From     models.ReportStatus
	To       models.ReportStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("report %s: invalid transition %s -> %s", e.ReportID, e.From, e.To)
}

// Store is the persistence contract for reports. Implementations keep
// insertion order for List and index Get by report ID. Reports are never
// deleted, only appended and updated.
type Store interface {
	Get(reportID string) (*models.Report, error)
	Put(report models.Report) error
	List() ([]models.Report, error)
}
