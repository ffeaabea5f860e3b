package reports

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/storage"
)

func sampleReport(id string) models.Report {
	return models.Report{
		ReportID:   id,
		PostID:     "1801234567890",
		Platform:   models.PlatformTwitter,
		Reason:     models.ReasonSpam,
		ReportedBy: "moderator1",
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Status:     models.StatusPending,
		AdditionalInfo: models.AdditionalInfo{
			ContentPreview: "acme spam post",
			URL:            "https://twitter.com/user/status/1801234567890",
		},
	}
}

func TestJSONStore_SurvivesReload(t *testing.T) {
	backend, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)

	store, err := NewJSONStore(backend, "reports.json")
	require.NoError(t, err)

	report := sampleReport("r-1")
	require.NoError(t, store.Put(report))

	report.Status = models.StatusReviewed
	report.AdditionalInfo.Notes = append(report.AdditionalInfo.Notes, models.NoteEntry{
		Timestamp: time.Date(2025, 6, 1, 13, 0, 0, 0, time.UTC),
		Note:      "confirmed",
	})
	require.NoError(t, store.Put(report))

	// A fresh store over the same backend sees the persisted state.
	reloaded, err := NewJSONStore(backend, "reports.json")
	require.NoError(t, err)

	got, err := reloaded.Get("r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, got.Status)
	require.Len(t, got.AdditionalInfo.Notes, 1)
	assert.Equal(t, "confirmed", got.AdditionalInfo.Notes[0].Note)

	all, err := reloaded.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestJSONStore_GetMissing(t *testing.T) {
	backend, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	store, err := NewJSONStore(backend, "reports.json")
	require.NoError(t, err)

	_, err = store.Get("missing")
	assert.Equal(t, ErrNotFound, err)
}

func TestJSONStore_ListPreservesInsertionOrder(t *testing.T) {
	backend, err := storage.NewFileStorage(t.TempDir())
	require.NoError(t, err)
	store, err := NewJSONStore(backend, "reports.json")
	require.NoError(t, err)

	require.NoError(t, store.Put(sampleReport("r-b")))
	require.NoError(t, store.Put(sampleReport("r-a")))
	require.NoError(t, store.Put(sampleReport("r-c")))

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r-b", all[0].ReportID)
	assert.Equal(t, "r-a", all[1].ReportID)
	assert.Equal(t, "r-c", all[2].ReportID)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	report := sampleReport("r-1")
	require.NoError(t, store.Put(report))

	got, err := store.Get("r-1")
	require.NoError(t, err)
	assert.Equal(t, report.PostID, got.PostID)
	assert.Equal(t, report.Platform, got.Platform)
	assert.Equal(t, report.Reason, got.Reason)
	assert.True(t, report.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, report.AdditionalInfo.ContentPreview, got.AdditionalInfo.ContentPreview)

	_, err = store.Get("missing")
	assert.Equal(t, ErrNotFound, err)
}

func TestSQLiteStore_PutUpdatesExisting(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	report := sampleReport("r-1")
	require.NoError(t, store.Put(report))

	report.Status = models.StatusDismissed
	report.AdditionalInfo.Notes = append(report.AdditionalInfo.Notes, models.NoteEntry{
		Timestamp: time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC),
		Note:      "not actionable",
	})
	require.NoError(t, store.Put(report))

	got, err := store.Get("r-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDismissed, got.Status)
	require.Len(t, got.AdditionalInfo.Notes, 1)

	all, err := store.List()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLiteStore_ListPreservesInsertionOrder(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(sampleReport("r-b")))
	require.NoError(t, store.Put(sampleReport("r-a")))

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r-b", all[0].ReportID)
	assert.Equal(t, "r-a", all[1].ReportID)
}

func TestManagerOverSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "reports.db"))
	require.NoError(t, err)
	defer store.Close()

	m := NewManager(store, time.Minute)
	at := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	m.now = func() time.Time { return at }

	report, err := m.Submit(testPost(), models.ReasonSpam, "moderator1")
	require.NoError(t, err)

	again, err := m.Submit(testPost(), models.ReasonSpam, "moderator1")
	require.NoError(t, err)
	assert.Equal(t, report.ReportID, again.ReportID)

	_, err = m.UpdateStatus(report.ReportID, models.StatusReviewed, "checked")
	require.NoError(t, err)

	got, err := m.Get(report.ReportID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReviewed, got.Status)
}
