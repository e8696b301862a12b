// internal/refdata/postgres.go
package refdata

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSource reads reference data from the municipality tables. It is
// the system of record behind the cache; nothing else should query it.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource creates a Postgres-backed reference-data source.
func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Facilities loads the bookable facilities of one municipality.
func (s *PostgresSource) Facilities(ctx context.Context, municipalityID string) ([]Facility, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, type, open_time, close_time, slot_minutes, max_party_size, amenities
		FROM facilities
		WHERE municipality_id = $1 AND active = true
		ORDER BY name`,
		municipalityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query facilities: %w", err)
	}
	defer rows.Close()

	var facilities []Facility
	for rows.Next() {
		var (
			f            Facility
			maxPartySize sql.NullInt64
		)
		if err := rows.Scan(&f.ID, &f.Name, &f.Type, &f.OpenTime, &f.CloseTime,
			&f.SlotMinutes, &maxPartySize, pq.Array(&f.Amenities)); err != nil {
			return nil, fmt.Errorf("failed to scan facility: %w", err)
		}
		if maxPartySize.Valid {
			f.MaxPartySize = int(maxPartySize.Int64)
		}
		facilities = append(facilities, f)
	}
	return facilities, rows.Err()
}

// QuestionSet loads the extra-questions block for a flow, or nil when
// the municipality defines none.
func (s *PostgresSource) QuestionSet(ctx context.Context, municipalityID, flowID string) (*QuestionSet, error) {
	var questions []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT questions FROM municipality_question_sets
		WHERE municipality_id = $1 AND flow_id = $2`,
		municipalityID, flowID,
	).Scan(&questions)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query question set: %w", err)
	}

	qs := &QuestionSet{MunicipalityID: municipalityID, FlowID: flowID}
	if err := json.Unmarshal(questions, &qs.Questions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuestionSetBroken, err)
	}
	return qs, nil
}

// FeeSchedule loads the fee table addressed by a catalog fee-schedule key,
// or nil when the municipality publishes none.
func (s *PostgresSource) FeeSchedule(ctx context.Context, municipalityID, key string) (*FeeSchedule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, label, amount_cents
		FROM fee_schedules
		WHERE municipality_id = $1 AND schedule_key = $2
		ORDER BY code`,
		municipalityID, key,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query fee schedule: %w", err)
	}
	defer rows.Close()

	var items []FeeItem
	for rows.Next() {
		var item FeeItem
		if err := rows.Scan(&item.Code, &item.Label, &item.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan fee item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &FeeSchedule{MunicipalityID: municipalityID, Key: key, Items: items}, nil
}

// LicenseTypes loads the license types a municipality issues.
func (s *PostgresSource) LicenseTypes(ctx context.Context, municipalityID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type_code
		FROM license_types
		WHERE municipality_id = $1 AND active = true
		ORDER BY type_code`,
		municipalityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query license types: %w", err)
	}
	defer rows.Close()

	var types []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan license type: %w", err)
		}
		types = append(types, code)
	}
	return types, rows.Err()
}
