package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/storage"
)

// reportDocument is the on-disk shape of the JSON store: one document holding
// every report in insertion order.
type reportDocument struct {
	Reports []models.Report `json:"reports"`
}

// JSONStore keeps all reports in a single JSON document behind a storage
// backend. The document is loaded once at startup and rewritten in full on
// every Put; fine for the report volumes a single brand monitor sees.
type JSONStore struct {
	backend storage.Interface
	name    string

	mu      sync.RWMutex
	reports []models.Report
	index   map[string]int
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore loads the report document named name from backend, starting
// empty when it does not exist yet.
func NewJSONStore(backend storage.Interface, name string) (*JSONStore, error) {
	s := &JSONStore{
		backend: backend,
		name:    name,
		index:   make(map[string]int),
	}

	data, err := backend.Retrieve(name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to load report document %s: %w", name, err)
	}

	var doc reportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report document %s: %w", name, err)
	}

	s.reports = doc.Reports
	for i, r := range s.reports {
		s.index[r.ReportID] = i
	}
	return s, nil
}

// Get returns the report stored under reportID.
func (s *JSONStore) Get(reportID string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[reportID]
	if !ok {
		return nil, ErrNotFound
	}
	report := s.reports[i]
	return &report, nil
}

// Put inserts or updates a report and rewrites the backing document.
func (s *JSONStore) Put(report models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i, ok := s.index[report.ReportID]; ok {
		s.reports[i] = report
	} else {
		s.index[report.ReportID] = len(s.reports)
		s.reports = append(s.reports, report)
	}

	return s.persistLocked()
}

// List returns all reports in insertion order.
func (s *JSONStore) List() ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Report, len(s.reports))
	copy(out, s.reports)
	return out, nil
}

func (s *JSONStore) persistLocked() error {
	data, err := json.MarshalIndent(reportDocument{Reports: s.reports}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report document: %w", err)
	}
	if err := s.backend.Store(s.name, data); err != nil {
		return fmt.Errorf("failed to persist report document: %w", err)
	}
	return nil
}
