// ABOUTME: Tests for trigger payload parsing
// ABOUTME: Both the scheduled envelope and the direct shape must be accepted
package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrigger(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    RunRequest
	}{
		{
			name:    "direct",
			payload: `{"calendarIntegrationId": "I1", "userId": "U1"}`,
			want:    RunRequest{IntegrationID: "I1", UserID: "U1"},
		},
		{
			name:    "direct initial",
			payload: `{"calendarIntegrationId": "I1", "userId": "U1", "isInitialSync": true}`,
			want:    RunRequest{IntegrationID: "I1", UserID: "U1", IsInitialSync: true},
		},
		{
			name:    "scheduled",
			payload: `{"scheduled_time": "2026-10-15T10:00:00Z", "payload": "{\"calendarIntegrationId\":\"I2\",\"userId\":\"U2\",\"isInitialSync\":true}"}`,
			want:    RunRequest{IntegrationID: "I2", UserID: "U2", IsInitialSync: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrigger([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseTriggerRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{"missing integration", `{"userId": "U1"}`, "calendarIntegrationId"},
		{"missing user", `{"calendarIntegrationId": "I1"}`, "userId"},
		{"scheduled missing user", `{"scheduled_time": "x", "payload": "{\"calendarIntegrationId\":\"I1\"}"}`, "userId"},
		{"not json", `nope`, "payload"},
		{"inner not json", `{"scheduled_time": "x", "payload": "nope"}`, "payload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTrigger([]byte(tt.payload))
			assert.Nil(t, got)
			var inputErr *InputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestRunRequestPayloadRoundTrip(t *testing.T) {
	req := RunRequest{IntegrationID: "I1", UserID: "U1", IsInitialSync: true}
	payload, err := req.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"calendarIntegrationId":"I1","userId":"U1","isInitialSync":true}`, payload)

	got, err := ParseTrigger([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, req, *got)
}
