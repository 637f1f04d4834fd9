// ABOUTME: Data models for synchronized directory contacts
// ABOUTME: Defines Contact, Integration cursor state, triggers, and sync run records
package models

import (
	"errors"
	"time"
)

// ErrIntegrationNotFound is returned by every cursor store for an unknown id.
var ErrIntegrationNotFound = errors.New("integration not found")

// ContactTypeGoogle tags contacts mirrored from the Google People directory.
const ContactTypeGoogle = "google"

// ProviderGooglePeople identifies the People API directory integration.
const ProviderGooglePeople = "google_people"

// ContactField is one entry of a multi-valued contact attribute.
type ContactField struct {
	Primary bool   `json:"primary"`
	Type    string `json:"type,omitempty"`
	Value   string `json:"value"`
}

// Contact is the local mirror of one remote directory record.
// ID is the remote resource name without its "people/" prefix.
type Contact struct {
	ID                 string         `json:"id"`
	UserID             string         `json:"user_id"`
	Name               string         `json:"name"`
	FirstName          string         `json:"first_name,omitempty"`
	MiddleName         string         `json:"middle_name,omitempty"`
	LastName           string         `json:"last_name,omitempty"`
	NamePrefix         string         `json:"name_prefix,omitempty"`
	NameSuffix         string         `json:"name_suffix,omitempty"`
	Nickname           string         `json:"nickname,omitempty"`
	PhoneticFirstName  string         `json:"phonetic_first_name,omitempty"`
	PhoneticMiddleName string         `json:"phonetic_middle_name,omitempty"`
	PhoneticLastName   string         `json:"phonetic_last_name,omitempty"`
	PhoneticFullName   string         `json:"phonetic_full_name,omitempty"`
	Company            string         `json:"company,omitempty"`
	JobTitle           string         `json:"job_title,omitempty"`
	Department         string         `json:"department,omitempty"`
	Notes              string         `json:"notes,omitempty"`
	ImageAvailable     bool           `json:"image_available"`
	ImageURL           string         `json:"image_url,omitempty"`
	ContactType        string         `json:"contact_type"`
	Emails             []ContactField `json:"emails"`
	PhoneNumbers       []ContactField `json:"phone_numbers"`
	IMAddresses        []ContactField `json:"im_addresses"`
	LinkAddresses      []ContactField `json:"link_addresses"`

	// Generation is the full listing that last wrote this contact.
	Generation string `json:"-"`
}

// PrimaryEmail returns the primary email, falling back to the first one.
func (c *Contact) PrimaryEmail() string {
	return primaryValue(c.Emails)
}

// PrimaryPhone returns the primary phone number, falling back to the first one.
func (c *Contact) PrimaryPhone() string {
	return primaryValue(c.PhoneNumbers)
}

func primaryValue(fields []ContactField) string {
	for _, f := range fields {
		if f.Primary {
			return f.Value
		}
	}
	if len(fields) > 0 {
		return fields[0].Value
	}
	return ""
}

// ClientType selects which OAuth audience a stored credential belongs to.
type ClientType string

const (
	ClientTypeDesktop ClientType = "desktop"
	ClientTypeWeb     ClientType = "web"
	ClientTypeIOS     ClientType = "ios"
	ClientTypeAndroid ClientType = "android"
)

// Valid reports whether the client type is one we know how to resolve.
func (c ClientType) Valid() bool {
	switch c {
	case ClientTypeDesktop, ClientTypeWeb, ClientTypeIOS, ClientTypeAndroid:
		return true
	}
	return false
}

// Sync status constants.
const (
	SyncStatusIdle    = "idle"
	SyncStatusSyncing = "syncing"
	SyncStatusError   = "error"
)

// Integration holds the per-integration sync cursor and gate.
type Integration struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Provider     string     `json:"provider"`
	PageToken    *string    `json:"page_token,omitempty"`
	SyncToken    *string    `json:"sync_token,omitempty"`
	Enabled      bool       `json:"sync_enabled"`
	ClientType   ClientType `json:"client_type"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	LastSyncTime *time.Time `json:"last_sync_time,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Generation identifies the current or most recent full listing.
	// Contacts it did not write are swept when that listing completes.
	Generation *string `json:"generation,omitempty"`
}

// Cursor positions reported by Integration.CursorState.
const (
	CursorMidPage     = "mid-page"
	CursorIncremental = "incremental"
	CursorFull        = "full"
)

// CursorState summarizes where the next run resumes.
func (i *Integration) CursorState() string {
	switch {
	case i.PageToken != nil:
		return CursorMidPage
	case i.SyncToken != nil:
		return CursorIncremental
	default:
		return CursorFull
	}
}

// Optional marks a field for a partial update. Unset fields are left untouched.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns an Optional that will be written.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// IntegrationUpdate is a partial update of an Integration.
// A set *string holding nil writes NULL.
type IntegrationUpdate struct {
	PageToken    Optional[*string]
	SyncToken    Optional[*string]
	SyncEnabled  Optional[bool]
	Status       Optional[string]
	ErrorMessage Optional[*string]
	LastSyncTime Optional[*time.Time]
	Generation   Optional[*string]
}

// IsEmpty reports whether the update touches no fields.
func (u IntegrationUpdate) IsEmpty() bool {
	return !u.PageToken.Set && !u.SyncToken.Set && !u.SyncEnabled.Set &&
		!u.Status.Set && !u.ErrorMessage.Set && !u.LastSyncTime.Set && !u.Generation.Set
}

// Apply copies the set fields of u onto integ.
func (u IntegrationUpdate) Apply(integ *Integration) {
	if u.PageToken.Set {
		integ.PageToken = u.PageToken.Value
	}
	if u.SyncToken.Set {
		integ.SyncToken = u.SyncToken.Value
	}
	if u.SyncEnabled.Set {
		integ.Enabled = u.SyncEnabled.Value
	}
	if u.Status.Set {
		integ.Status = u.Status.Value
	}
	if u.ErrorMessage.Set {
		integ.ErrorMessage = u.ErrorMessage.Value
	}
	if u.LastSyncTime.Set {
		integ.LastSyncTime = u.LastSyncTime.Value
	}
	if u.Generation.Set {
		integ.Generation = u.Generation.Value
	}
}

// Trigger is an armed future sync run for one integration.
type Trigger struct {
	ID            string    `json:"id"`
	IntegrationID string    `json:"integration_id"`
	UserID        string    `json:"user_id"`
	RunAt         time.Time `json:"run_at"`
	Payload       string    `json:"payload"`
	Attempts      int       `json:"attempts"`
	CreatedAt     time.Time `json:"created_at"`
}

// Sync run outcome constants.
const (
	RunOutcomeSuccess   = "success"
	RunOutcomeTransient = "transient"
	RunOutcomeDisabled  = "disabled"
)

// SyncRun is the audit record of one orchestrator run.
type SyncRun struct {
	ID            string     `json:"id"`
	IntegrationID string     `json:"integration_id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Outcome       string     `json:"outcome"`
	Pages         int        `json:"pages"`
	Upserted      int64      `json:"upserted"`
	Deleted       int64      `json:"deleted"`
	Skipped       int        `json:"skipped"`
	Resets        int        `json:"resets"`
	Error         string     `json:"error,omitempty"`
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
