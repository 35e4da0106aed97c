// Package store persists alerts to a JSON file and snapshots to a directory.
package store

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/pose-sentinel/server/models"
	"go.uber.org/zap"
)

var (
	ErrAlertNotFound   = errors.New("alert not found")
	ErrInvalidAlert    = errors.New("invalid alert")
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// AlertStore keeps alerts in creation order in a single JSON list file.
// Every mutation rewrites the file through a temp file and rename.
type AlertStore struct {
	path        string
	snapshotDir string
	alerts      []*models.Alert
	mu          sync.RWMutex
	logger      *zap.Logger
	now         func() time.Time
}

// NewAlertStore opens the store at path, creating it and snapshotDir as
// needed. A file that is not a JSON list of alerts is reset to empty.
func NewAlertStore(path, snapshotDir string, logger *zap.Logger) (*AlertStore, error) {
	s := &AlertStore{
		path:        path,
		snapshotDir: snapshotDir,
		alerts:      []*models.Alert{},
		logger:      logger,
		now:         time.Now,
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create alerts directory: %w", err)
	}
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *AlertStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.save()
	}
	if err != nil {
		return fmt.Errorf("failed to read alerts file: %w", err)
	}

	var alerts []*models.Alert
	if err := json.Unmarshal(data, &alerts); err != nil || alerts == nil {
		s.logger.Warn("Alerts file is not a JSON list, resetting",
			zap.String("path", s.path), zap.Error(err))
		return s.save()
	}

	s.alerts = alerts
	return nil
}

// save writes the current list. Callers hold the write lock or own s.
func (s *AlertStore) save() error {
	data, err := json.MarshalIndent(s.alerts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Create appends alert. Timestamp, pose and status are required; the
// status is stored lower-cased and an ID is assigned when missing.
func (s *AlertStore) Create(alert *models.Alert) (*models.Alert, error) {
	if alert.Timestamp == "" || alert.Pose == "" || alert.Status == "" {
		return nil, fmt.Errorf("%w: timestamp, pose and status are required", ErrInvalidAlert)
	}

	stored := *alert
	stored.Status = normalizeStatus(string(alert.Status))
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, &stored)
	if err := s.save(); err != nil {
		s.alerts = s.alerts[:len(s.alerts)-1]
		return nil, err
	}

	out := stored
	return &out, nil
}

// List returns every alert oldest first.
func (s *AlertStore) List() []models.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Alert, len(s.alerts))
	for i, alert := range s.alerts {
		out[i] = *alert
	}
	return out
}

// Latest returns the most recently created alert.
func (s *AlertStore) Latest() (*models.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.alerts) == 0 {
		return nil, false
	}
	out := *s.alerts[len(s.alerts)-1]
	return &out, true
}

func (s *AlertStore) Get(id string) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, alert := range s.alerts {
		if alert.ID == id {
			out := *alert
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

// UpdateStatus sets the lower-cased status of alert id.
func (s *AlertStore) UpdateStatus(id, status string) (*models.Alert, error) {
	if strings.TrimSpace(status) == "" {
		return nil, fmt.Errorf("%w: status is required", ErrInvalidAlert)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, alert := range s.alerts {
		if alert.ID != id {
			continue
		}

		previous := alert.Status
		alert.Status = normalizeStatus(status)
		if err := s.save(); err != nil {
			alert.Status = previous
			return nil, err
		}

		out := *alert
		return &out, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrAlertNotFound, id)
}

func (s *AlertStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// SaveSnapshot decodes a base64 image, optionally wrapped in a data URL,
// and writes it under the snapshot directory named after id. It returns
// the written path.
func (s *AlertStore) SaveSnapshot(id, snapshot string) (string, error) {
	ext := ".jpg"
	payload := snapshot

	if strings.HasPrefix(snapshot, "data:") {
		header, body, ok := strings.Cut(snapshot, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", fmt.Errorf("%w: expected a base64 data URL", ErrInvalidSnapshot)
		}
		payload = body
		if strings.HasPrefix(header, "data:image/png") {
			ext = ".png"
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrInvalidSnapshot)
	}

	path := filepath.Join(s.snapshotDir, filepath.Base(id)+ext)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot: %w", err)
	}

	return path, nil
}

func normalizeStatus(status string) models.AlertStatus {
	return models.AlertStatus(strings.ToLower(strings.TrimSpace(status)))
}
