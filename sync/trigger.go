// ABOUTME: Parses scheduled and direct sync trigger payloads
// ABOUTME: Produces a validated RunRequest for the orchestrator
package sync

import (
	"encoding/json"
	"fmt"
)

// RunRequest identifies one sync run.
type RunRequest struct {
	IntegrationID string `json:"calendarIntegrationId"`
	UserID        string `json:"userId"`
	IsInitialSync bool   `json:"isInitialSync,omitempty"`
}

// Validate rejects requests missing an integration or user id.
func (r RunRequest) Validate() error {
	if r.IntegrationID == "" {
		return &InputError{Field: "calendarIntegrationId"}
	}
	if r.UserID == "" {
		return &InputError{Field: "userId"}
	}
	return nil
}

// Payload encodes the request in the direct trigger shape.
func (r RunRequest) Payload() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode trigger payload: %w", err)
	}
	return string(data), nil
}

// triggerEnvelope covers both accepted shapes. A scheduled trigger nests the
// direct shape as a JSON string under payload.
type triggerEnvelope struct {
	ScheduledTime string  `json:"scheduled_time"`
	Payload       *string `json:"payload"`
	RunRequest
}

// ParseTrigger decodes either
//
//	{"scheduled_time": "...", "payload": "{\"calendarIntegrationId\": ...}"}
//
// or the direct form {"calendarIntegrationId", "userId", "isInitialSync"}.
func ParseTrigger(data []byte) (*RunRequest, error) {
	var env triggerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &InputError{Field: "payload", Reason: fmt.Sprintf("is not valid JSON: %v", err)}
	}

	req := env.RunRequest
	if env.Payload != nil {
		var inner RunRequest
		if err := json.Unmarshal([]byte(*env.Payload), &inner); err != nil {
			return nil, &InputError{Field: "payload", Reason: fmt.Sprintf("is not valid JSON: %v", err)}
		}
		req = inner
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}
