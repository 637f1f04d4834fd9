// ABOUTME: Contact repository backing the directory sync
// ABOUTME: Batched full-replacement upserts, bulk deletes, and lookups scoped by owning user
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/peoplesync/models"
)

// deleteChunkSize keeps IN (...) lists well under SQLite's variable limit.
const deleteChunkSize = 500

var ErrContactNotFound = errors.New("contact not found")

// ContactsRepository persists synchronized contacts.
type ContactsRepository struct {
	db *sql.DB
}

// NewContactsRepository creates a new contacts repository.
func NewContactsRepository(db *sql.DB) *ContactsRepository {
	return &ContactsRepository{db: db}
}

const contactColumns = `user_id, id, name, first_name, middle_name, last_name, name_prefix, name_suffix,
	nickname, phonetic_first_name, phonetic_middle_name, phonetic_last_name, phonetic_full_name,
	company, job_title, department, notes, image_available, image_url, contact_type,
	emails, phone_numbers, im_addresses, link_addresses, generation`

// Every mutable column is replaced from excluded; a field removed remotely
// must disappear locally, so nothing here may COALESCE with the old row.
const upsertContactSQL = `
	INSERT INTO contacts (` + contactColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, id) DO UPDATE SET
		name = excluded.name,
		first_name = excluded.first_name,
		middle_name = excluded.middle_name,
		last_name = excluded.last_name,
		name_prefix = excluded.name_prefix,
		name_suffix = excluded.name_suffix,
		nickname = excluded.nickname,
		phonetic_first_name = excluded.phonetic_first_name,
		phonetic_middle_name = excluded.phonetic_middle_name,
		phonetic_last_name = excluded.phonetic_last_name,
		phonetic_full_name = excluded.phonetic_full_name,
		company = excluded.company,
		job_title = excluded.job_title,
		department = excluded.department,
		notes = excluded.notes,
		image_available = excluded.image_available,
		image_url = excluded.image_url,
		contact_type = excluded.contact_type,
		emails = excluded.emails,
		phone_numbers = excluded.phone_numbers,
		im_addresses = excluded.im_addresses,
		link_addresses = excluded.link_addresses,
		generation = excluded.generation
`

// UpsertAll writes every contact in one transaction, keyed by (userID, id).
func (r *ContactsRepository) UpsertAll(ctx context.Context, userID string, contacts []models.Contact) (int64, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() // Safe even after commit
	}()

	stmt, err := tx.PrepareContext(ctx, upsertContactSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare contact upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	var affected int64
	for i := range contacts {
		c := &contacts[i]
		if c.ID == "" {
			return 0, fmt.Errorf("contact at index %d has no id", i)
		}

		args, err := contactArgs(userID, c)
		if err != nil {
			return 0, err
		}

		result, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert contact %s: %w", c.ID, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit contact upsert: %w", err)
	}

	return affected, nil
}

// DeleteByIDs hard-deletes the given contacts of one user.
func (r *ContactsRepository) DeleteByIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var affected int64
	for start := 0; start < len(ids); start += deleteChunkSize {
		end := min(start+deleteChunkSize, len(ids))
		chunk := ids[start:end]

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(chunk)), ",")
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, userID)
		for _, id := range chunk {
			args = append(args, id)
		}

		result, err := tx.ExecContext(ctx,
			`DELETE FROM contacts WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
		if err != nil {
			return 0, fmt.Errorf("failed to delete contacts: %w", err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, err
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit contact delete: %w", err)
	}

	return affected, nil
}

// DeleteStale removes a user's contacts that were not written by the given
// full-listing generation.
func (r *ContactsRepository) DeleteStale(ctx context.Context, userID, generation string) (int64, error) {
	if generation == "" {
		return 0, fmt.Errorf("failed to delete stale contacts: empty generation")
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM contacts WHERE user_id = ? AND generation != ?`, userID, generation)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale contacts: %w", err)
	}
	return result.RowsAffected()
}

// GetContact retrieves one contact of a user.
func (r *ContactsRepository) GetContact(ctx context.Context, userID, id string) (*models.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE user_id = ? AND id = ?`, userID, id)

	contact, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// ListContacts returns a user's contacts ordered by name, optionally
// filtered by a case-insensitive match on name, company, or emails.
func (r *ContactsRepository) ListContacts(ctx context.Context, userID, query string, limit int) ([]models.Contact, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error

	if query != "" {
		searchPattern := "%" + strings.ToLower(query) + "%"
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+contactColumns+`
			FROM contacts
			WHERE user_id = ? AND (LOWER(name) LIKE ? OR LOWER(company) LIKE ? OR LOWER(emails) LIKE ?)
			ORDER BY name, id
			LIMIT ?
		`, userID, searchPattern, searchPattern, searchPattern, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+contactColumns+`
			FROM contacts
			WHERE user_id = ?
			ORDER BY name, id
			LIMIT ?
		`, userID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}

	return contacts, rows.Err()
}

// CountContacts returns how many contacts a user has.
func (r *ContactsRepository) CountContacts(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return count, nil
}

func contactArgs(userID string, c *models.Contact) ([]interface{}, error) {
	emails, err := marshalFields(c.Emails)
	if err != nil {
		return nil, err
	}
	phones, err := marshalFields(c.PhoneNumbers)
	if err != nil {
		return nil, err
	}
	ims, err := marshalFields(c.IMAddresses)
	if err != nil {
		return nil, err
	}
	links, err := marshalFields(c.LinkAddresses)
	if err != nil {
		return nil, err
	}

	return []interface{}{
		userID, c.ID, c.Name, c.FirstName, c.MiddleName, c.LastName, c.NamePrefix, c.NameSuffix,
		c.Nickname, c.PhoneticFirstName, c.PhoneticMiddleName, c.PhoneticLastName, c.PhoneticFullName,
		c.Company, c.JobTitle, c.Department, c.Notes, c.ImageAvailable, c.ImageURL, c.ContactType,
		emails, phones, ims, links, c.Generation,
	}, nil
}

func marshalFields(fields []models.ContactField) (string, error) {
	if fields == nil {
		fields = []models.ContactField{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("failed to encode contact fields: %w", err)
	}
	return string(data), nil
}

func unmarshalFields(data string) ([]models.ContactField, error) {
	fields := []models.ContactField{}
	if data == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("failed to decode contact fields: %w", err)
	}
	return fields, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	var emails, phones, ims, links string

	err := row.Scan(
		&c.UserID, &c.ID, &c.Name, &c.FirstName, &c.MiddleName, &c.LastName, &c.NamePrefix, &c.NameSuffix,
		&c.Nickname, &c.PhoneticFirstName, &c.PhoneticMiddleName, &c.PhoneticLastName, &c.PhoneticFullName,
		&c.Company, &c.JobTitle, &c.Department, &c.Notes, &c.ImageAvailable, &c.ImageURL, &c.ContactType,
		&emails, &phones, &ims, &links, &c.Generation,
	)
	if err != nil {
		return nil, err
	}

	if c.Emails, err = unmarshalFields(emails); err != nil {
		return nil, err
	}
	if c.PhoneNumbers, err = unmarshalFields(phones); err != nil {
		return nil, err
	}
	if c.IMAddresses, err = unmarshalFields(ims); err != nil {
		return nil, err
	}
	if c.LinkAddresses, err = unmarshalFields(links); err != nil {
		return nil, err
	}

	return &c, nil
}
