// ABOUTME: Normalized directory records produced by the People API client
// ABOUTME: Converts people.Person once at the client boundary so later stages never nil-check
package sync

import (
	"strings"

	"google.golang.org/api/people/v1"
)

const resourcePrefix = "people/"

// RawName is one name entry of a directory record.
type RawName struct {
	Primary            bool
	DisplayName        string
	GivenName          string
	MiddleName         string
	FamilyName         string
	HonorificPrefix    string
	HonorificSuffix    string
	PhoneticGivenName  string
	PhoneticMiddleName string
	PhoneticFamilyName string
	PhoneticFullName   string
}

// RawOrganization is one organization entry of a directory record.
type RawOrganization struct {
	Primary    bool
	Name       string
	Title      string
	Department string
}

// RawValue is a typed single-value entry (nickname, biography, photo, email,
// phone, IM handle, URL).
type RawValue struct {
	Primary bool
	Type    string
	Value   string
}

// RawRecord is one entry of a directory listing. Every field is optional
// except ResourceName, and Deleted marks a tombstone.
type RawRecord struct {
	ResourceName  string
	Deleted       bool
	Names         []RawName
	Nicknames     []RawValue
	Organizations []RawOrganization
	Biographies   []RawValue
	CoverPhotos   []RawValue
	Emails        []RawValue
	PhoneNumbers  []RawValue
	IMClients     []RawValue
	URLs          []RawValue
}

// ID returns the resource name without its "people/" prefix.
func (r *RawRecord) ID() string {
	return strings.TrimPrefix(r.ResourceName, resourcePrefix)
}

// recordFromPerson normalizes a People API person.
func recordFromPerson(p *people.Person) RawRecord {
	rec := RawRecord{ResourceName: p.ResourceName}

	if p.Metadata != nil {
		rec.Deleted = p.Metadata.Deleted
	}

	for _, n := range p.Names {
		if n == nil {
			continue
		}
		rec.Names = append(rec.Names, RawName{
			Primary:            isPrimary(n.Metadata),
			DisplayName:        n.DisplayName,
			GivenName:          n.GivenName,
			MiddleName:         n.MiddleName,
			FamilyName:         n.FamilyName,
			HonorificPrefix:    n.HonorificPrefix,
			HonorificSuffix:    n.HonorificSuffix,
			PhoneticGivenName:  n.PhoneticGivenName,
			PhoneticMiddleName: n.PhoneticMiddleName,
			PhoneticFamilyName: n.PhoneticFamilyName,
			PhoneticFullName:   n.PhoneticFullName,
		})
	}

	for _, n := range p.Nicknames {
		if n == nil {
			continue
		}
		rec.Nicknames = append(rec.Nicknames, RawValue{Primary: isPrimary(n.Metadata), Type: n.Type, Value: n.Value})
	}

	for _, o := range p.Organizations {
		if o == nil {
			continue
		}
		rec.Organizations = append(rec.Organizations, RawOrganization{
			Primary:    isPrimary(o.Metadata),
			Name:       o.Name,
			Title:      o.Title,
			Department: o.Department,
		})
	}

	for _, b := range p.Biographies {
		if b == nil {
			continue
		}
		rec.Biographies = append(rec.Biographies, RawValue{Primary: isPrimary(b.Metadata), Type: b.ContentType, Value: b.Value})
	}

	for _, c := range p.CoverPhotos {
		if c == nil {
			continue
		}
		rec.CoverPhotos = append(rec.CoverPhotos, RawValue{Primary: isPrimary(c.Metadata), Value: c.Url})
	}

	for _, e := range p.EmailAddresses {
		if e == nil || e.Value == "" {
			continue
		}
		rec.Emails = append(rec.Emails, RawValue{Primary: isPrimary(e.Metadata), Type: e.Type, Value: e.Value})
	}

	for _, ph := range p.PhoneNumbers {
		if ph == nil || ph.Value == "" {
			continue
		}
		rec.PhoneNumbers = append(rec.PhoneNumbers, RawValue{Primary: isPrimary(ph.Metadata), Type: ph.Type, Value: ph.Value})
	}

	for _, im := range p.ImClients {
		if im == nil || im.Username == "" {
			continue
		}
		rec.IMClients = append(rec.IMClients, RawValue{Primary: isPrimary(im.Metadata), Type: im.Protocol, Value: im.Username})
	}

	for _, u := range p.Urls {
		if u == nil || u.Value == "" {
			continue
		}
		rec.URLs = append(rec.URLs, RawValue{Primary: isPrimary(u.Metadata), Type: u.Type, Value: u.Value})
	}

	return rec
}

func isPrimary(m *people.FieldMetadata) bool {
	return m != nil && m.Primary
}
