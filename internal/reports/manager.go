package reports

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/repwatch/repwatch/internal/models"
)

// Namespace for deterministic report IDs; fixed so the same submission always
// derives the same ID across processes.
var reportNamespace = uuid.MustParse("6f1c6f38-2c9d-4f6e-9d1a-7b5e4a2c8d91")

const contentPreviewLimit = 500

// Transitions reachable from each status. dismissed and resolved are
// terminal. Resolving straight from pending is rejected: every resolution
// passes through review first.
var transitions = map[models.ReportStatus][]models.ReportStatus{
	models.StatusPending:  {models.StatusReviewed, models.StatusDismissed},
	models.StatusReviewed: {models.StatusResolved, models.StatusDismissed},
}

// Manager persists and transitions moderation reports. Duplicate submissions
// are detected through the deterministic report ID, not by locking the whole
// store; the manager's mutex only closes the get-then-put gap for the single
// ID being submitted.
type Manager struct {
	store       Store
	dedupWindow time.Duration
	now         func() time.Time
	mu          sync.Mutex
}

// NewManager creates a report manager over store. dedupWindow bounds how long
// a repeated (post, platform, reporter) submission maps onto the existing
// report instead of opening a new one.
func NewManager(store Store, dedupWindow time.Duration) *Manager {
	return &Manager{
		store:       store,
		dedupWindow: dedupWindow,
		now:         time.Now,
	}
}

// ReportID derives the deterministic report identifier. Submissions landing
// in the same dedup window bucket yield the same ID, which is what makes
// Submit idempotent under concurrency.
func ReportID(platform models.Platform, postID, reportedBy string, submittedAt time.Time, window time.Duration) string {
	bucket := submittedAt.UTC().Truncate(window).Unix()
	seed := fmt.Sprintf("%s|%s|%s|%d", platform, postID, reportedBy, bucket)
	return uuid.NewSHA1(reportNamespace, []byte(seed)).String()
}

// Submit files a report against a post. Re-filing the same (post, platform,
// reporter) within the dedup window returns the existing report unchanged.
// A submission after a prior report was dismissed opens a fresh pending
// report; it never reopens the dismissed one.
func (m *Manager) Submit(post models.PostData, reason models.ReportReason, reportedBy string) (*models.Report, error) {
	if post.ID == "" {
		return nil, fmt.Errorf("post id is required")
	}
	if !post.Platform.Valid() {
		return nil, fmt.Errorf("unknown platform %q", post.Platform)
	}
	if !reason.Valid() {
		return nil, fmt.Errorf("unknown report reason %q", reason)
	}
	if strings.TrimSpace(reportedBy) == "" {
		reportedBy = "anonymous"
	}

	submittedAt := m.now().UTC()
	id := ReportID(post.Platform, post.ID, reportedBy, submittedAt, m.dedupWindow)

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, err := m.store.Get(id); err == nil {
		logrus.Debugf("duplicate report submission for %s, returning %s", post.ID, id)
		return existing, nil
	} else if err != ErrNotFound {
		return nil, fmt.Errorf("failed to check for existing report: %w", err)
	}

	report := models.Report{
		ReportID:   id,
		PostID:     post.ID,
		Platform:   post.Platform,
		Reason:     reason,
		ReportedBy: reportedBy,
		Timestamp:  submittedAt,
		Status:     models.StatusPending,
		AdditionalInfo: models.AdditionalInfo{
			ContentPreview: truncate(post.Text, contentPreviewLimit),
			URL:            post.URL,
		},
	}

	if err := m.store.Put(report); err != nil {
		return nil, fmt.Errorf("failed to persist report: %w", err)
	}

	logrus.Infof("report %s filed against %s/%s (%s)", id, post.Platform, post.ID, reason)
	return &report, nil
}

// UpdateStatus moves a report along the lifecycle graph. Illegal moves fail
// with *InvalidTransitionError; notes are appended to the history, never
// overwriting prior entries.
func (m *Manager) UpdateStatus(reportID string, newStatus models.ReportStatus, notes string) (*models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report, err := m.store.Get(reportID)
	if err != nil {
		if err == ErrNotFound {
			return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load report %s: %w", reportID, err)
	}

	if !transitionAllowed(report.Status, newStatus) {
		return nil, &InvalidTransitionError{ReportID: reportID, From: report.Status, To: newStatus}
	}

	report.Status = newStatus
	if notes != "" {
		report.AdditionalInfo.Notes = append(report.AdditionalInfo.Notes, models.NoteEntry{
			Timestamp: m.now().UTC(),
			Note:      notes,
		})
	}

	if err := m.store.Put(*report); err != nil {
		return nil, fmt.Errorf("failed to persist report %s: %w", reportID, err)
	}

	logrus.Infof("report %s moved to %s", reportID, newStatus)
	return report, nil
}

// Get returns one report by ID.
func (m *Manager) Get(reportID string) (*models.Report, error) {
	report, err := m.store.Get(reportID)
	if err == ErrNotFound {
		return nil, fmt.Errorf("report %s: %w", reportID, ErrNotFound)
	}
	return report, err
}

// Filter selects reports in List. Zero values match everything.
type Filter struct {
	Status   models.ReportStatus
	Platform models.Platform
	Since    time.Time
	Until    time.Time
}

func (f Filter) matches(r models.Report) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Platform != "" && r.Platform != f.Platform {
		return false
	}
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// List returns matching reports in insertion order.
func (m *Manager) List(filter Filter) ([]models.Report, error) {
	all, err := m.store.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	matched := make([]models.Report, 0, len(all))
	for _, r := range all {
		if filter.matches(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

func transitionAllowed(from, to models.ReportStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
