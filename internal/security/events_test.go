package security_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasroldan/adambot/internal/security"
)

func TestRecordAndRecent(t *testing.T) {
	log := security.NewLog(zerolog.Nop())
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	log.Record(security.Event{UserID: 1, Kind: security.RateLimitExceeded, Severity: security.SeverityMedium, At: at})
	log.Record(security.Event{UserID: 2, Kind: security.MaliciousInput, Severity: security.SeverityHigh, At: at.Add(time.Second)})
	log.Record(security.Event{UserID: 1, Kind: security.InvalidInputRepeated, Severity: security.SeverityLow, At: at.Add(2 * time.Second)})

	forUser := log.Recent(1, 10)
	require.Len(t, forUser, 2)
	assert.Equal(t, security.InvalidInputRepeated, forUser[0].Kind, "most recent first")
	assert.Equal(t, security.RateLimitExceeded, forUser[1].Kind)

	all := log.Recent(0, 10)
	assert.Len(t, all, 3, "user id zero matches all users")

	limited := log.Recent(0, 2)
	assert.Len(t, limited, 2)
	assert.Equal(t, security.InvalidInputRepeated, limited[0].Kind)
}

func TestRecentOnEmptyLog(t *testing.T) {
	log := security.NewLog(zerolog.Nop())
	assert.Empty(t, log.Recent(1, 10))
}
