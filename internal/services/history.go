package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"resumematch/scanner-web/internal/models"
)

const (
	DefaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

var ErrHistoryNotFound = errors.New("saved scan not found")

type HistoryService interface {
	List(ctx context.Context, limit int) ([]models.HistoryEntry, error)
	Find(ctx context.Context, id string) (*models.HistoryEntry, error)
}

type historyService struct {
	pipeline RequestPipeline
}

func NewHistoryService(pipeline RequestPipeline) HistoryService {
	return &historyService{pipeline: pipeline}
}

// List implements HistoryService. A non-positive limit means the default.
func (h *historyService) List(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	switch {
	case limit <= 0:
		limit = DefaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	var payload any
	path := fmt.Sprintf("%s?limit=%d", scansPath, limit)
	if err := h.pipeline.DoJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return NormalizeHistory(payload), nil
}

// Find implements HistoryService. The backend has no single-scan endpoint,
// so the entry is looked up in the newest page of history.
func (h *historyService) Find(ctx context.Context, id string) (*models.HistoryEntry, error) {
	entries, err := h.List(ctx, maxHistoryLimit)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].ID == id {
			return &entries[i], nil
		}
	}
	return nil, ErrHistoryNotFound
}

// LoadInScanner turns a saved scan into a prefilled text-mode scan form.
func LoadInScanner(entry models.HistoryEntry) models.ScanPrefill {
	return models.ScanPrefill{
		Mode:       models.ScanModeText,
		ResumeText: entry.ResumeText,
		JDText:     entry.JDText,
	}
}
