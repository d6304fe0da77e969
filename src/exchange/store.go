package exchange

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultFilePatterns is used when a watcher is configured without patterns.
var DefaultFilePatterns = []string{"*.xml"}

// WatcherConfig describes the directories and schedule of one store watcher.
// It is immutable once the watcher runs; replacing it requires a restart.
type WatcherConfig struct {
	StoreID             string   `json:"storeId" yaml:"store_id" validate:"required"`
	WatchPath           string   `json:"watchPath" yaml:"watch_path" validate:"required"`
	ProcessedPath       string   `json:"processedPath,omitempty" yaml:"processed_path"`
	ErrorPath           string   `json:"errorPath,omitempty" yaml:"error_path"`
	FilePatterns        []string `json:"filePatterns,omitempty" yaml:"file_patterns" validate:"dive,required"`
	PollIntervalSeconds int      `json:"pollIntervalSeconds" yaml:"poll_interval_seconds" validate:"gte=1"`
}

var validate = validator.New()

// Validate checks the required fields of the config.
func (c WatcherConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: watcher config: %v", ErrInvalidPath, err)
	}
	return nil
}

// Patterns returns the configured patterns or the defaults.
func (c WatcherConfig) Patterns() []string {
	if len(c.FilePatterns) == 0 {
		return DefaultFilePatterns
	}
	return c.FilePatterns
}

// PollInterval returns the interval as a duration.
func (c WatcherConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// StoreContext is the tenant and audit identity attached to every import for a store.
type StoreContext struct {
	StoreID          string `json:"storeId" yaml:"store_id"`
	POSIntegrationID string `json:"posIntegrationId" yaml:"pos_integration_id"`
	CompanyID        string `json:"companyId" yaml:"company_id"`
	UserID           string `json:"userId,omitempty" yaml:"user_id"`
}

const (
	ManualIntegrationID = "manual-import"
	UnassignedCompanyID = "unassigned"
)

// FallbackContext builds the minimal context used for manual imports of unregistered stores.
func FallbackContext(storeID string) StoreContext {
	return StoreContext{
		StoreID:          storeID,
		POSIntegrationID: ManualIntegrationID,
		CompanyID:        UnassignedCompanyID,
	}
}

// WatcherStatus is a snapshot of a watcher. Values returned to callers are copies.
type WatcherStatus struct {
	StoreID        string     `json:"storeId"`
	IsRunning      bool       `json:"isRunning"`
	WatchPath      string     `json:"watchPath"`
	ProcessedPath  string     `json:"processedPath,omitempty"`
	ErrorPath      string     `json:"errorPath,omitempty"`
	LastPollAt     *time.Time `json:"lastPollAt,omitempty"`
	FilesProcessed int64      `json:"filesProcessed"`
	FilesErrored   int64      `json:"filesErrored"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
}
