package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
)

var (
	// ErrNotFound is returned when a requested resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDefaultProfile is returned when deleting the default profile.
	ErrDefaultProfile = errors.New("the default profile cannot be deleted")
	// ErrNameTaken is returned when a profile name is already in use.
	ErrNameTaken = errors.New("profile name already exists")
)

// DefaultProfileName is the name given to the factory profile.
const DefaultProfileName = "Default"

const settingActiveProfile = "active_profile_id"

// Profile is a named set of thresholds.
type Profile struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	IsDefault  bool               `json:"is_default"`
	Thresholds gesture.Thresholds `json:"thresholds"`
	CreatedAt  time.Time          `json:"created_at"`
	ModifiedAt time.Time          `json:"modified_at"`
}

// ProfileRepository provides CRUD operations for profiles and tracks the
// active one.
type ProfileRepository struct {
	db *sql.DB
}

// Profiles returns the profile repository for this store.
func (s *Store) Profiles() *ProfileRepository {
	return &ProfileRepository{db: s.db}
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

const profileColumns = `id, name, is_default, thresholds, created_at, modified_at`

// Create inserts p. An empty ID is filled with a new UUID.
func (r *ProfileRepository) Create(p *Profile) error {
	return insertProfile(r.db, p)
}

func insertProfile(ex execer, p *Profile) error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	p.CreatedAt = now
	p.ModifiedAt = now

	data, err := json.Marshal(p.Thresholds)
	if err != nil {
		return err
	}

	_, err = ex.Exec(
		`INSERT INTO profiles (id, name, is_default, thresholds, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.IsDefault, string(data), p.CreatedAt, p.ModifiedAt,
	)
	return mapConstraint(err)
}

// GetByID retrieves a profile by its ID.
func (r *ProfileRepository) GetByID(id string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
}

// GetByName retrieves a profile by its name.
func (r *ProfileRepository) GetByName(name string) (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE name = ?`, name))
}

// Default retrieves the default profile.
func (r *ProfileRepository) Default() (*Profile, error) {
	return scanProfile(r.db.QueryRow(`SELECT ` + profileColumns + ` FROM profiles WHERE is_default = 1`))
}

// List retrieves all profiles, default first, then by name.
func (r *ProfileRepository) List() ([]*Profile, error) {
	rows, err := r.db.Query(`SELECT ` + profileColumns + ` FROM profiles ORDER BY is_default DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

// Update writes the name and thresholds of an existing profile. The default
// flag cannot be changed.
func (r *ProfileRepository) Update(p *Profile) error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p.Thresholds)
	if err != nil {
		return err
	}
	p.ModifiedAt = time.Now()

	result, err := r.db.Exec(
		`UPDATE profiles SET name = ?, thresholds = ?, modified_at = ? WHERE id = ?`,
		p.Name, string(data), p.ModifiedAt, p.ID,
	)
	if err != nil {
		return mapConstraint(err)
	}
	return expectOne(result)
}

// Delete removes a profile and its calibration samples. The default profile
// cannot be deleted. Deleting the active profile makes the default active.
func (r *ProfileRepository) Delete(id string) error {
	p, err := r.GetByID(id)
	if err != nil {
		return err
	}
	if p.IsDefault {
		return ErrDefaultProfile
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM profiles WHERE id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM settings WHERE key = ? AND value = ?`, settingActiveProfile, id); err != nil {
		return err
	}

	return tx.Commit()
}

// EnsureDefault creates the default profile with factory thresholds if none
// exists, and returns it.
func (r *ProfileRepository) EnsureDefault() (*Profile, error) {
	p, err := r.Default()
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	p = &Profile{
		Name:       DefaultProfileName,
		IsDefault:  true,
		Thresholds: gesture.DefaultThresholds(),
	}
	if err := r.Create(p); err != nil {
		return nil, fmt.Errorf("create default profile: %w", err)
	}
	return p, nil
}

// SetActive marks the profile with the given ID as active.
func (r *ProfileRepository) SetActive(id string) error {
	if _, err := r.GetByID(id); err != nil {
		return err
	}
	return setSetting(r.db, settingActiveProfile, id)
}

// Active returns the active profile, falling back to the default when none is
// set or the setting points at a missing profile.
func (r *ProfileRepository) Active() (*Profile, error) {
	var id string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, settingActiveProfile).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return r.Default()
	case err != nil:
		return nil, err
	}

	p, err := r.GetByID(id)
	if errors.Is(err, ErrNotFound) {
		return r.Default()
	}
	return p, err
}

func scanProfile(row scanner) (*Profile, error) {
	p := &Profile{}
	var isDefault int
	var data string

	err := row.Scan(&p.ID, &p.Name, &isDefault, &data, &p.CreatedAt, &p.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	p.IsDefault = isDefault != 0
	if err := json.Unmarshal([]byte(data), &p.Thresholds); err != nil {
		return nil, fmt.Errorf("profile %s thresholds: %w", p.ID, err)
	}
	return p, nil
}

func expectOne(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: profiles.name") {
		return ErrNameTaken
	}
	return err
}
