package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chargehub/internal/authz"
	"chargehub/internal/models"
)

// ErrNoOpenSession indicates that a controller has no session with a null
// end timestamp.
var ErrNoOpenSession = errors.New("no open charging session")

const sessionColumns = `id, controller_uid, start_timestamp, end_timestamp,
		start_real_power, end_real_power, consumption, duration, rfid_tag, rfid_timestamp`

// SessionRepository handles persistence of charging sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row interface{ Scan(...interface{}) error }) (*models.ChargingSession, error) {
	var s models.ChargingSession
	err := row.Scan(
		&s.ID,
		&s.ControllerUID,
		&s.StartTimestamp,
		&s.EndTimestamp,
		&s.StartRealPower,
		&s.EndRealPower,
		&s.Consumption,
		&s.Duration,
		&s.RfidTag,
		&s.RfidTimestamp,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOpen returns the controller's open session, or ErrNoOpenSession.
func (r *SessionRepository) FindOpen(ctx context.Context, controllerUID string) (*models.ChargingSession, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM charging_sessions
		WHERE controller_uid = $1 AND end_timestamp IS NULL
	`, sessionColumns)
	session, err := scanSession(r.db.QueryRowContext(ctx, query, controllerUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoOpenSession
		}
		return nil, err
	}
	return session, nil
}

// StartSession inserts a new open session for the controller. The partial
// unique index on open sessions makes duplicate start pushes a no-op; the
// returned bool reports whether a row was actually created.
func (r *SessionRepository) StartSession(ctx context.Context, session *models.ChargingSession) (bool, error) {
	const query = `
		INSERT INTO charging_sessions (controller_uid, start_timestamp, start_real_power, rfid_tag, rfid_timestamp)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (controller_uid) WHERE end_timestamp IS NULL DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		session.ControllerUID,
		session.StartTimestamp,
		session.StartRealPower,
		session.RfidTag,
		session.RfidTimestamp,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// CloseOpenSession closes the controller's open session as a single
// read-modify-write transaction. The open row is locked FOR UPDATE, the end
// event is applied (RFID reconciliation, consumption, duration) and the row
// is updated in place. Returns ErrNoOpenSession when no open row exists, so
// duplicate or out-of-order end pushes surface as a detected no-op instead
// of a silent zero-row update.
func (r *SessionRepository) CloseOpenSession(ctx context.Context, controllerUID string, ev models.CloseEvent) (*models.ChargingSession, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		SELECT %s
		FROM charging_sessions
		WHERE controller_uid = $1 AND end_timestamp IS NULL
		FOR UPDATE
	`, sessionColumns)
	session, err := scanSession(tx.QueryRowContext(ctx, query, controllerUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoOpenSession
		}
		return nil, err
	}

	session.Close(ev)

	const update = `
		UPDATE charging_sessions
		SET end_timestamp = $2,
		    end_real_power = $3,
		    consumption = $4,
		    duration = $5,
		    rfid_tag = $6,
		    rfid_timestamp = $7
		WHERE id = $1 AND end_timestamp IS NULL
	`
	result, err := tx.ExecContext(ctx, update,
		session.ID,
		session.EndTimestamp,
		session.EndRealPower,
		session.Consumption,
		session.Duration,
		session.RfidTag,
		session.RfidTimestamp,
	)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNoOpenSession
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return session, nil
}

// GetByID returns one session visible to the scope.
func (r *SessionRepository) GetByID(ctx context.Context, scope authz.Scope, id int64) (*models.ChargingSession, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM (
			SELECT s.id, s.controller_uid, s.start_timestamp, s.end_timestamp,
			       s.start_real_power, s.end_real_power, s.consumption, s.duration,
			       s.rfid_tag, s.rfid_timestamp
			FROM charging_sessions s
			JOIN charging_controllers cc ON cc.device_uid = s.controller_uid
			JOIN chargers c ON c.id = cc.charger_id
			WHERE s.id = $1 %s
		) scoped
	`, sessionColumns, sessionScopeFilter(scope, 2))

	args := []interface{}{id}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	session, err := scanSession(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return session, nil
}

// ListByController returns sessions of one controller visible to the scope,
// newest first.
func (r *SessionRepository) ListByController(ctx context.Context, scope authz.Scope, controllerUID string, limit int) ([]models.ChargingSession, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT s.id, s.controller_uid, s.start_timestamp, s.end_timestamp,
		       s.start_real_power, s.end_real_power, s.consumption, s.duration,
		       s.rfid_tag, s.rfid_timestamp
		FROM charging_sessions s
		JOIN charging_controllers cc ON cc.device_uid = s.controller_uid
		JOIN chargers c ON c.id = cc.charger_id
		WHERE s.controller_uid = $1
	` + sessionScopeFilter(scope, 3) + `
		ORDER BY s.start_timestamp DESC NULLS LAST
		LIMIT $2
	`
	args := []interface{}{controllerUID, limit}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	return r.querySessions(ctx, query, args...)
}

// InsertImported inserts an already-closed session row from a CSV import.
func (r *SessionRepository) InsertImported(ctx context.Context, session *models.ChargingSession) error {
	const query = `
		INSERT INTO charging_sessions (controller_uid, start_timestamp, end_timestamp,
			start_real_power, end_real_power, consumption, duration, rfid_tag, rfid_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		session.ControllerUID,
		session.StartTimestamp,
		session.EndTimestamp,
		session.StartRealPower,
		session.EndRealPower,
		session.Consumption,
		session.Duration,
		session.RfidTag,
		session.RfidTimestamp,
	).Scan(&session.ID)
}

// ConsumptionSince sums closed-session consumption for sessions that started
// at or after the given instant, within the scope.
func (r *SessionRepository) ConsumptionSince(ctx context.Context, scope authz.Scope, since time.Time) (float64, int64, error) {
	query := `
		SELECT COALESCE(SUM(s.consumption), 0), COUNT(s.id)
		FROM charging_sessions s
		JOIN charging_controllers cc ON cc.device_uid = s.controller_uid
		JOIN chargers c ON c.id = cc.charger_id
		WHERE s.start_timestamp >= $1 AND s.end_timestamp IS NOT NULL
	` + sessionScopeFilter(scope, 2)

	args := []interface{}{since}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	var total float64
	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&total, &count); err != nil {
		return 0, 0, err
	}
	return total, count, nil
}

// ConsumptionByCompany aggregates closed-session consumption per company
// within the scope.
func (r *SessionRepository) ConsumptionByCompany(ctx context.Context, scope authz.Scope) (map[int64]float64, error) {
	query := `
		SELECT c.company_id, COALESCE(SUM(s.consumption), 0)
		FROM charging_sessions s
		JOIN charging_controllers cc ON cc.device_uid = s.controller_uid
		JOIN chargers c ON c.id = cc.charger_id
		WHERE c.company_id IS NOT NULL AND s.end_timestamp IS NOT NULL
	` + sessionScopeFilter(scope, 1) + `
		GROUP BY c.company_id
	`
	var args []interface{}
	if !scope.Admin {
		args = append(args, scope.UserID)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make(map[int64]float64)
	for rows.Next() {
		var companyID int64
		var total float64
		if err := rows.Scan(&companyID, &total); err != nil {
			return nil, err
		}
		totals[companyID] = total
	}
	return totals, rows.Err()
}

func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...interface{}) ([]models.ChargingSession, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChargingSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// sessionScopeFilter appends the access predicate for non-admin scopes. The
// placeholder index of the user id is passed in because callers bind their
// own leading arguments.
func sessionScopeFilter(scope authz.Scope, userArg int) string {
	if scope.Admin {
		return ""
	}
	filter := fmt.Sprintf(` AND (c.user_id = $%d OR c.company_id IN (
			SELECT company_id FROM users_to_companies WHERE user_id = $%d))`, userArg, userArg)
	if scope.Host {
		filter += fmt.Sprintf(` AND s.rfid_tag IN (
			SELECT rfid_tag FROM users_to_companies WHERE user_id = $%d AND rfid_tag IS NOT NULL)`, userArg)
	}
	return filter
}
