// ABOUTME: Maps normalized directory records to local contacts
// ABOUTME: Single-valued fields take the primary entry, falling back to the first
package sync

import (
	"errors"
	"strings"

	"github.com/harperreed/peoplesync/models"
)

var (
	ErrMissingResourceName = errors.New("record has no resource name")
	ErrMissingName         = errors.New("record has no name")
)

// MapRecord builds the full attribute set of a Contact from one record.
// Records that cannot identify a person return an error and are skipped by
// the caller.
func MapRecord(userID string, rec RawRecord) (models.Contact, error) {
	id := rec.ID()
	if id == "" {
		return models.Contact{}, ErrMissingResourceName
	}
	if len(rec.Names) == 0 {
		return models.Contact{}, ErrMissingName
	}

	name := rec.Names[primaryIndex(len(rec.Names), func(i int) bool { return rec.Names[i].Primary })]

	displayName := name.DisplayName
	if displayName == "" {
		displayName = strings.TrimSpace(strings.Join(nonEmpty(name.GivenName, name.MiddleName, name.FamilyName), " "))
	}
	if displayName == "" {
		return models.Contact{}, ErrMissingName
	}

	contact := models.Contact{
		ID:                 id,
		UserID:             userID,
		Name:               displayName,
		FirstName:          name.GivenName,
		MiddleName:         name.MiddleName,
		LastName:           name.FamilyName,
		NamePrefix:         name.HonorificPrefix,
		NameSuffix:         name.HonorificSuffix,
		PhoneticFirstName:  name.PhoneticGivenName,
		PhoneticMiddleName: name.PhoneticMiddleName,
		PhoneticLastName:   name.PhoneticFamilyName,
		PhoneticFullName:   name.PhoneticFullName,
		ContactType:        models.ContactTypeGoogle,
		Emails:             toFields(rec.Emails),
		PhoneNumbers:       toFields(rec.PhoneNumbers),
		IMAddresses:        toFields(rec.IMClients),
		LinkAddresses:      toFields(rec.URLs),
	}

	if nick, ok := preferred(rec.Nicknames); ok {
		contact.Nickname = nick.Value
	}

	if len(rec.Organizations) > 0 {
		org := rec.Organizations[primaryIndex(len(rec.Organizations), func(i int) bool { return rec.Organizations[i].Primary })]
		contact.Company = org.Name
		contact.JobTitle = org.Title
		contact.Department = org.Department
	}

	if bio, ok := preferred(rec.Biographies); ok {
		contact.Notes = bio.Value
	}

	if photo, ok := preferred(rec.CoverPhotos); ok {
		contact.ImageURL = photo.Value
		contact.ImageAvailable = photo.Value != ""
	}

	return contact, nil
}

// primaryIndex returns the index of the first primary entry, or 0.
func primaryIndex(n int, primary func(int) bool) int {
	for i := 0; i < n; i++ {
		if primary(i) {
			return i
		}
	}
	return 0
}

func preferred(values []RawValue) (RawValue, bool) {
	if len(values) == 0 {
		return RawValue{}, false
	}
	return values[primaryIndex(len(values), func(i int) bool { return values[i].Primary })], true
}

func toFields(values []RawValue) []models.ContactField {
	fields := make([]models.ContactField, 0, len(values))
	for _, v := range values {
		fields = append(fields, models.ContactField{Primary: v.Primary, Type: v.Type, Value: v.Value})
	}
	return fields
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
