// Package metadata handles the small per-profile structured document
// ("info.json") recording initialization status, the last successful
// sync time, a stable profile identifier, and the document format
// version.
package metadata

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a profile.
type Status string

const (
	// StatusPartial marks a profile whose initialization has not yet
	// completed successfully.
	StatusPartial Status = "partial"
	// StatusInitialized marks a profile ready for normal sync runs.
	StatusInitialized Status = "initialized"
)

// CurrentVersion is the document format version written by this build.
const CurrentVersion = 1

// Document is the metadata document persisted as info.json.
type Document struct {
	Status      Status            `json:"status"`
	Locked      bool              `json:"locked"`
	LastSyncUTC float64           `json:"last_sync_utc"`
	Version     int               `json:"version"`
	ID          string            `json:"id"`
	InitOpts    map[string]string `json:"init_opts"`
}

// New returns a freshly-initialized Document in partial status with a
// new random profile ID.
func New(initOpts map[string]string) *Document {
	return &Document{
		Status:   StatusPartial,
		Version:  CurrentVersion,
		ID:       uuid.NewString(),
		InitOpts: initOpts,
	}
}

// Load reads and parses the metadata document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: read %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("metadata: parse %s: %w", path, err)
	}

	return &doc, nil
}

// Save writes the document to path as indented JSON.
func (d *Document) Save(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: marshal: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("metadata: write %s: %w", path, err)
	}

	return nil
}

// MarkInitialized transitions the document out of partial status.
func (d *Document) MarkInitialized() {
	d.Status = StatusInitialized
}

// IsPartial reports whether the profile's initialization never
// completed.
func (d *Document) IsPartial() bool {
	return d.Status == StatusPartial
}
