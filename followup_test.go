package drip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFollowUpDueAt(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	grace := time.Minute

	future := now.Add(3 * time.Hour)
	past := now.Add(-3 * time.Hour)

	testCases := []struct {
		name     string
		followUp FollowUp
		expected time.Time
	}{
		{"future absolute time", FollowUp{SendAt: &future}, future},
		{"past absolute time clamps forward", FollowUp{SendAt: &past}, now.Add(grace)},
		{"absolute time equal to now clamps forward", FollowUp{SendAt: &now}, now.Add(grace)},
		{"absolute time wins over delay", FollowUp{SendAt: &future, DelayMinutes: 5}, future},
		{"relative delay", FollowUp{DelayMinutes: 90}, now.Add(90 * time.Minute)},
		{"zero delay falls back to default", FollowUp{}, now.Add(DefaultDelayMinutes * time.Minute)},
		{"negative delay falls back to default", FollowUp{DelayMinutes: -5}, now.Add(DefaultDelayMinutes * time.Minute)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.followUp.DueAt(now, grace))
		})
	}
}

func TestContactSuppressed(t *testing.T) {
	assert.False(t, Contact{Status: ContactPending}.Suppressed())
	assert.False(t, Contact{Status: ContactSent}.Suppressed())
	assert.False(t, Contact{Status: ContactBounced}.Suppressed())
	assert.True(t, Contact{Status: ContactReplied}.Suppressed())
	assert.True(t, Contact{Status: ContactUnsubscribed}.Suppressed())
}
