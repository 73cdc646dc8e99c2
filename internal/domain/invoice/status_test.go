package invoice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  Status
		isValid bool
	}{
		{StatusPending, true},
		{StatusPaid, true},
		{StatusOverdue, true},
		{Status("cancelled"), false},
		{Status(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestStatus_CanTransitionTo(t *testing.T) {
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			assert.True(t, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
		assert.False(t, from.CanTransitionTo(Status("void")))
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" PAID ")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, s)

	_, err = ParseStatus("draft")
	requireCode(t, err, "INVALID_STATUS")
}
