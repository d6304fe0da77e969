package exchange

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWatcherConfig_Validate(t *testing.T) {
	valid := WatcherConfig{StoreID: "S1", WatchPath: "/w", PollIntervalSeconds: 1}
	assert.NoError(t, valid.Validate())

	missingStore := valid
	missingStore.StoreID = ""
	err := missingStore.Validate()
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidPath))

	badInterval := valid
	badInterval.PollIntervalSeconds = 0
	assert.Error(t, badInterval.Validate())

	emptyPattern := valid
	emptyPattern.FilePatterns = []string{"*.xml", ""}
	assert.Error(t, emptyPattern.Validate())
}

func TestWatcherConfig_Defaults(t *testing.T) {
	cfg := WatcherConfig{StoreID: "S1", WatchPath: "/w", PollIntervalSeconds: 5}
	assert.Equal(t, []string{"*.xml"}, cfg.Patterns())
	assert.Equal(t, 5*time.Second, cfg.PollInterval())

	cfg.FilePatterns = []string{"*.dat"}
	assert.Equal(t, []string{"*.dat"}, cfg.Patterns())
}

func TestFallbackContext(t *testing.T) {
	sc := FallbackContext("S9")
	assert.Equal(t, "S9", sc.StoreID)
	assert.Equal(t, ManualIntegrationID, sc.POSIntegrationID)
	assert.Equal(t, UnassignedCompanyID, sc.CompanyID)
	assert.Empty(t, sc.UserID)
}
