package fleet

import (
	"fmt"
	"strings"

	"phonefleet/internal/tabular"
)

// Reference table columns.
const (
	ColumnModelID       = "modele_id"
	ColumnModelModified = "date_modification"
	ColumnUserKey       = "utilisateur_id"
	ColumnUserName      = "nom_utilisateur"
)

// PhoneModelIndex maps modele_id to its date_modification value.
type PhoneModelIndex struct {
	dates map[int64]string
}

// NewPhoneModelIndex builds the lookup from a phone-model table. Rows with a
// non-numeric modele_id are skipped; a repeated id keeps its last value.
func NewPhoneModelIndex(table *tabular.Table) (*PhoneModelIndex, error) {
	if table == nil {
		return nil, fmt.Errorf("phone model table: %w", tabular.ErrEmptyFile)
	}
	if err := table.Require(ColumnModelID, ColumnModelModified); err != nil {
		return nil, fmt.Errorf("phone model table: %w", err)
	}
	idIdx := table.Index(ColumnModelID)
	dateIdx := table.Index(ColumnModelModified)
	index := &PhoneModelIndex{dates: make(map[int64]string, len(table.Rows))}
	for _, row := range table.Rows {
		id, ok := parseInteger(row[idIdx])
		if !ok {
			continue
		}
		index.dates[id] = row[dateIdx]
	}
	return index, nil
}

// LoadPhoneModels reads the phone-model CSV file.
func LoadPhoneModels(path string, opts tabular.ReadOptions) (*PhoneModelIndex, error) {
	table, err := tabular.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	index, err := NewPhoneModelIndex(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return index, nil
}

// Lookup returns the date_modification for a raw phonemodels_id value.
func (p *PhoneModelIndex) Lookup(rawID string) (string, bool) {
	if p == nil {
		return "", false
	}
	id, ok := parseInteger(rawID)
	if !ok {
		return "", false
	}
	date, ok := p.dates[id]
	return date, ok
}

// Len returns the number of indexed models.
func (p *PhoneModelIndex) Len() int {
	if p == nil {
		return 0
	}
	return len(p.dates)
}

// User is one row of the user export.
type User struct {
	ID   UserID
	Name string
}

// Directory is the user export seen two ways: an allow-list of raw
// utilisateur_id strings and a name lookup keyed by CanonicalUserID.
type Directory struct {
	allowed map[UserID]struct{}
	names   map[UserID]string
	users   []User
}

// NewDirectory builds a directory from the user table.
func NewDirectory(table *tabular.Table) (*Directory, error) {
	if table == nil {
		return nil, fmt.Errorf("user table: %w", tabular.ErrEmptyFile)
	}
	if err := table.Require(ColumnUserKey, ColumnUserName); err != nil {
		return nil, fmt.Errorf("user table: %w", err)
	}
	keyIdx := table.Index(ColumnUserKey)
	nameIdx := table.Index(ColumnUserName)
	users := make([]User, 0, len(table.Rows))
	for _, row := range table.Rows {
		users = append(users, User{ID: UserID(row[keyIdx]), Name: row[nameIdx]})
	}
	return NewDirectoryFromUsers(users), nil
}

// NewDirectoryFromUsers builds a directory from explicit users. A repeated id
// keeps its last name.
func NewDirectoryFromUsers(users []User) *Directory {
	dir := &Directory{
		allowed: make(map[UserID]struct{}, len(users)),
		names:   make(map[UserID]string, len(users)),
		users:   append([]User(nil), users...),
	}
	for _, u := range users {
		dir.allowed[u.ID] = struct{}{}
		dir.names[CanonicalUserID(string(u.ID))] = u.Name
	}
	return dir
}

// LoadUsers reads the user CSV file.
func LoadUsers(path string, opts tabular.ReadOptions) (*Directory, error) {
	table, err := tabular.ReadFile(path, opts)
	if err != nil {
		return nil, err
	}
	dir, err := NewDirectory(table)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dir, nil
}

// Allows reports whether id, trimmed, is exactly one of the utilisateur_id
// values. No numeric coercion is applied.
func (d *Directory) Allows(id UserID) bool {
	if d == nil {
		return false
	}
	trimmed := UserID(strings.TrimSpace(string(id)))
	if trimmed == "" {
		return false
	}
	_, ok := d.allowed[trimmed]
	return ok
}

// Name resolves the display name of a user by canonical id. Empty names count
// as unknown.
func (d *Directory) Name(id UserID) (string, bool) {
	if d == nil {
		return "", false
	}
	name, ok := d.names[CanonicalUserID(string(id))]
	if !ok || strings.TrimSpace(name) == "" {
		return "", false
	}
	return name, true
}

// Len returns the number of user rows.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.users)
}
