package heating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Store persists heating system control state.
type Store interface {
	// Read returns the current state of id.
	// Returns ErrDeviceNotFound if the device does not exist.
	Read(ctx context.Context, id DeviceID) (ControlState, error)

	// Write applies m to id atomically and returns the state after the write.
	// Returns ErrDeviceNotFound if the device does not exist.
	Write(ctx context.Context, id DeviceID, m Mutation) (ControlState, error)

	// RecordCurrentTemperature stores a measured temperature for id.
	RecordCurrentTemperature(ctx context.Context, id DeviceID, celsius float64) error

	// Create inserts a new heating system.
	// Returns ErrDeviceExists if the id is taken.
	Create(ctx context.Context, state ControlState) error

	// List returns every heating system ordered by id.
	List(ctx context.Context) ([]ControlState, error)

	// Delete removes a heating system.
	Delete(ctx context.Context, id DeviceID) error
}

// SQLiteStore implements Store on the heating_systems table.
type SQLiteStore struct {
	db    *sql.DB
	locks *keyedMutex
	now   func() time.Time
}

// NewSQLiteStore creates a store on an open, migrated SQLite connection.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{
		db:    db,
		locks: newKeyedMutex(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

const selectState = `
	SELECT id, is_on, target_temperature, current_temperature
	FROM heating_systems`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (ControlState, error) {
	var s ControlState
	var isOn int
	if err := row.Scan(&s.DeviceID, &isOn, &s.TargetTemperature, &s.CurrentTemperature); err != nil {
		return ControlState{}, err
	}
	s.IsOn = isOn != 0
	return s, nil
}

// Read returns the current state of id.
func (s *SQLiteStore) Read(ctx context.Context, id DeviceID) (ControlState, error) {
	state, err := scanState(s.db.QueryRowContext(ctx, selectState+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ControlState{}, ErrDeviceNotFound
		}
		return ControlState{}, fmt.Errorf("reading heating system %d: %w", id, err)
	}
	return state, nil
}

// Write applies m under the device's lock inside one transaction.
//
// Parameters:
//   - id: the heating system to change
//   - m: the fields to set; nil fields keep their stored value
//
// Returns:
//   - ControlState: the state as committed
//   - error: ErrDeviceNotFound, ErrInvalidTemperature, or a wrapped
//     database error
func (s *SQLiteStore) Write(ctx context.Context, id DeviceID, m Mutation) (ControlState, error) {
	// Validate inputs
	if err := m.Validate(); err != nil {
		return ControlState{}, err
	}

	// Serialise writers for this device
	unlock := s.locks.Lock(id)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ControlState{}, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	// Read current state inside the transaction
	state, err := scanState(tx.QueryRowContext(ctx, selectState+" WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ControlState{}, ErrDeviceNotFound
		}
		return ControlState{}, fmt.Errorf("reading heating system %d: %w", id, err)
	}

	// Apply the mutation
	if m.IsOn != nil {
		state.IsOn = *m.IsOn
	}
	if m.TargetTemperature != nil {
		state.TargetTemperature = *m.TargetTemperature
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE heating_systems
		SET is_on = ?, target_temperature = ?, updated_at = ?
		WHERE id = ?`,
		boolToInt(state.IsOn),
		state.TargetTemperature,
		s.now().Format(time.RFC3339Nano),
		id,
	); err != nil {
		return ControlState{}, fmt.Errorf("updating heating system %d: %w", id, err)
	}

	// Commit transaction
	if err := tx.Commit(); err != nil {
		return ControlState{}, fmt.Errorf("committing heating system %d: %w", id, err)
	}
	return state, nil
}

// RecordCurrentTemperature stores a measured temperature for id. It takes
// the device lock so a reading never interleaves with a command write.
func (s *SQLiteStore) RecordCurrentTemperature(ctx context.Context, id DeviceID, celsius float64) error {
	if err := ValidateTemperature(celsius); err != nil {
		return err
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	result, err := s.db.ExecContext(ctx, `
		UPDATE heating_systems
		SET current_temperature = ?, updated_at = ?
		WHERE id = ?`,
		celsius, s.now().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("recording current temperature for %d: %w", id, err)
	}
	return expectOneRow(result)
}

// Create inserts a new heating system.
func (s *SQLiteStore) Create(ctx context.Context, state ControlState) error {
	if err := state.DeviceID.Validate(); err != nil {
		return err
	}
	if err := ValidateTemperature(state.TargetTemperature); err != nil {
		return err
	}
	if err := ValidateTemperature(state.CurrentTemperature); err != nil {
		return err
	}

	// Insert with both timestamps set to now
	now := s.now().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO heating_systems
			(id, is_on, target_temperature, current_temperature, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		state.DeviceID,
		boolToInt(state.IsOn),
		state.TargetTemperature,
		state.CurrentTemperature,
		now,
		now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting heating system %d: %w", state.DeviceID, err)
	}
	return nil
}

// List returns every heating system ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]ControlState, error) {
	rows, err := s.db.QueryContext(ctx, selectState+" ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying heating systems: %w", err)
	}
	defer rows.Close()

	states := make([]ControlState, 0)
	for rows.Next() {
		state, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning heating system: %w", err)
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating heating systems: %w", err)
	}
	return states, nil
}

// Delete removes a heating system.
func (s *SQLiteStore) Delete(ctx context.Context, id DeviceID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	result, err := s.db.ExecContext(ctx, "DELETE FROM heating_systems WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting heating system %d: %w", id, err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueConstraintError matches the sqlite3 driver's primary key violation.
func isUniqueConstraintError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY must be unique")
}
