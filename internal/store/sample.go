package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Sample is one recorded calibration frame stored with the profile derived from it.
type Sample struct {
	ID        int64           `json:"id"`
	ProfileID string          `json:"profile_id"`
	Gesture   gesture.Kind    `json:"gesture"`
	Seq       int             `json:"seq"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
}

// SampleData is a sample to be written: the gesture and its encoded frame.
type SampleData struct {
	Gesture gesture.Kind
	Data    json.RawMessage
}

// SampleRepository provides access to calibration samples.
type SampleRepository struct {
	db *sql.DB
}

// Samples returns the sample repository for this store.
func (s *Store) Samples() *SampleRepository {
	return &SampleRepository{db: s.db}
}

// Create inserts samples for a profile in a single transaction. Sequence
// numbers count from zero per gesture in the order given.
func (r *SampleRepository) Create(profileID string, samples []SampleData) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertSamples(tx, profileID, samples); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSamples(tx *sql.Tx, profileID string, samples []SampleData) error {
	stmt, err := tx.Prepare(`INSERT INTO calibration_samples (profile_id, gesture, seq, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	var seq [gesture.NumKinds]int
	for _, s := range samples {
		if !s.Gesture.Valid() {
			return fmt.Errorf("sample has unknown gesture %d", int(s.Gesture))
		}
		if _, err := stmt.Exec(profileID, s.Gesture.String(), seq[s.Gesture], string(s.Data)); err != nil {
			return err
		}
		seq[s.Gesture]++
	}
	return nil
}

// ListByProfile retrieves all samples of a profile grouped by gesture in
// calibration order.
func (r *SampleRepository) ListByProfile(profileID string) ([]Sample, error) {
	rows, err := r.db.Query(
		`SELECT id, profile_id, gesture, seq, data, created_at
		 FROM calibration_samples
		 WHERE profile_id = ?
		 ORDER BY id`,
		profileID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var byKind [gesture.NumKinds][]Sample
	for rows.Next() {
		var s Sample
		var kind, data string
		if err := rows.Scan(&s.ID, &s.ProfileID, &kind, &s.Seq, &data, &s.CreatedAt); err != nil {
			return nil, err
		}
		k, err := gesture.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		s.Gesture = k
		s.Data = json.RawMessage(data)
		byKind[k] = append(byKind[k], s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	var samples []Sample
	for _, k := range gesture.Kinds {
		samples = append(samples, byKind[k]...)
	}
	return samples, nil
}

// DeleteByProfile removes all samples of a profile.
func (r *SampleRepository) DeleteByProfile(profileID string) error {
	_, err := r.db.Exec(`DELETE FROM calibration_samples WHERE profile_id = ?`, profileID)
	return err
}

// SaveCalibrated creates p with its samples and makes it the active profile,
// all in one transaction.
func (s *Store) SaveCalibrated(p *Profile, samples []SampleData) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertProfile(tx, p); err != nil {
		return err
	}
	if err := insertSamples(tx, p.ID, samples); err != nil {
		return err
	}
	if err := setSetting(tx, settingActiveProfile, p.ID); err != nil {
		return err
	}

	return tx.Commit()
}
