package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
type SessionRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const sessionColumns = `s.id, s.series_id, s.host_id, s.host_email, s.host_identity, s.title, s.skill,
	s.start_utc, s.end_utc, s.duration_minutes, s.timezone, s.recurrence, s.status, s.meeting_status,
	s.actual_start_utc, s.actual_end_utc, s.host_joined_at_utc, s.reminder_sent_at, s.created_at, s.updated_at`

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateSessions inserts the batch in one transaction, rejecting it when any
// record overlaps a non-cancelled session, stored or earlier in the batch,
// that shares an identity.
func (r *SessionRepository) CreateSessions(ctx context.Context, sessions []persistence.SessionRecord) error {
	if len(sessions) == 0 {
		return nil
	}
	for _, record := range sessions {
		if record.ID == "" || record.HostIdentity == "" || !record.StartUTC.Before(record.EndUTC) {
			return persistence.ErrConstraintViolation
		}
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for i, record := range sessions {
			if err := r.checkOverlap(ctx, tx, i, record); err != nil {
				return err
			}
			if err := r.insertSession(ctx, tx, record); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *SessionRepository) checkOverlap(ctx context.Context, q querier, index int, record persistence.SessionRecord) error {
	identities := record.Identities()
	placeholders, args := inClause(identities)

	query := `
		SELECT s.id FROM sessions s
		WHERE s.status <> 'cancelled'
		  AND s.start_utc < ? AND s.end_utc > ?
		  AND (s.host_identity IN (` + placeholders + `)
		       OR EXISTS (SELECT 1 FROM session_participants p
		                  WHERE p.session_id = s.id AND p.identity IN (` + placeholders + `)))
		ORDER BY s.start_utc ASC, s.id ASC
		LIMIT 1`

	queryArgs := append([]any{formatTime(record.EndUTC), formatTime(record.StartUTC)}, args...)
	queryArgs = append(queryArgs, args...)

	var existingID string
	err := q.QueryRowContext(ctx, query, queryArgs...).Scan(&existingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return r.mapper.MapError(err)
	}

	existing, err := r.getSession(ctx, q, existingID)
	if err != nil {
		return err
	}
	return &persistence.OverlapError{
		Index:             index,
		ExistingSessionID: existingID,
		Identity:          sharedIdentity(identities, existing.Identities()),
	}
}

func (r *SessionRepository) insertSession(ctx context.Context, q querier, record persistence.SessionRecord) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO sessions (
			id, series_id, host_id, host_email, host_identity, title, skill,
			start_utc, end_utc, duration_minutes, timezone, recurrence, status, meeting_status,
			actual_start_utc, actual_end_utc, host_joined_at_utc, reminder_sent_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.SeriesID,
		record.HostID,
		record.HostEmail,
		record.HostIdentity,
		record.Title,
		record.Skill,
		formatTime(record.StartUTC),
		formatTime(record.EndUTC),
		record.DurationMinutes,
		timeZoneOrUTC(record.Timezone),
		defaultString(record.Recurrence, "none"),
		defaultString(record.Status, "scheduled"),
		defaultString(record.MeetingStatus, "not-started"),
		nullableTime(record.ActualStartUTC),
		nullableTime(record.ActualEndUTC),
		nullableTime(record.HostJoinedAtUTC),
		nullableTime(record.ReminderSentAt),
		formatTime(record.CreatedAt),
		formatTime(record.UpdatedAt),
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	for _, p := range record.Participants {
		if p.Identity == "" || p.Identity == record.HostIdentity {
			continue
		}
		if _, err := q.ExecContext(ctx,
			`INSERT OR IGNORE INTO session_participants (session_id, identity, user_id, email, role) VALUES (?, ?, ?, ?, ?)`,
			record.ID, p.Identity, p.UserID, p.Email, p.Role,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetSession retrieves a session and its participants.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.SessionRecord, error) {
	if id == "" {
		return persistence.SessionRecord{}, persistence.ErrNotFound
	}
	return r.getSession(ctx, r.pool.DB(), id)
}

func (r *SessionRepository) getSession(ctx context.Context, q querier, id string) (persistence.SessionRecord, error) {
	record, err := r.scanSession(q.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id))
	if err != nil {
		return persistence.SessionRecord{}, err
	}
	records := []persistence.SessionRecord{record}
	if err := r.loadParticipants(ctx, q, records); err != nil {
		return persistence.SessionRecord{}, err
	}
	return records[0], nil
}

// ListSessions returns the sessions matching filter ordered by start time then ID.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.SessionRecord, error) {
	query, args := buildListQuery(filter)

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}

	var records []persistence.SessionRecord
	for rows.Next() {
		record, err := r.scanSession(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if err := r.loadParticipants(ctx, r.pool.DB(), records); err != nil {
		return nil, err
	}
	return records, nil
}

func buildListQuery(filter persistence.SessionFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if identity := strings.TrimSpace(filter.Identity); identity != "" {
		conditions = append(conditions, `(s.host_identity = ? OR EXISTS (
			SELECT 1 FROM session_participants p WHERE p.session_id = s.id AND p.identity = ?))`)
		args = append(args, identity, identity)
	}
	if filter.From != nil {
		conditions = append(conditions, "s.end_utc > ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		conditions = append(conditions, "s.start_utc < ?")
		args = append(args, formatTime(*filter.To))
	}
	if len(filter.Statuses) > 0 {
		placeholders, statusArgs := inClause(filter.Statuses)
		conditions = append(conditions, "s.status IN ("+placeholders+")")
		args = append(args, statusArgs...)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions s`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.start_utc ASC, s.id ASC"
	return query, args
}

// UpdateMeeting applies a compare-and-swap update of the meeting columns.
func (r *SessionRepository) UpdateMeeting(ctx context.Context, id string, update persistence.MeetingUpdate) (persistence.SessionRecord, error) {
	var updated persistence.SessionRecord
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE sessions
			SET meeting_status = ?,
			    status = COALESCE(NULLIF(?, ''), status),
			    actual_start_utc = ?,
			    actual_end_utc = ?,
			    host_joined_at_utc = ?,
			    updated_at = ?
			WHERE id = ? AND meeting_status = ?`,
			update.MeetingStatus,
			update.Status,
			nullableTime(update.ActualStartUTC),
			nullableTime(update.ActualEndUTC),
			nullableTime(update.HostJoinedAtUTC),
			formatTime(update.UpdatedAt),
			id,
			defaultString(update.ExpectedMeetingStatus, "not-started"),
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := r.requireSwapped(ctx, tx, result, id); err != nil {
			return err
		}
		updated, err = r.getSession(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.SessionRecord{}, err
	}
	return updated, nil
}

// UpdateStatus moves the booking status from one value to another.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id, from, to string, at time.Time) (persistence.SessionRecord, error) {
	var updated persistence.SessionRecord
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			to, formatTime(at), id, from,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := r.requireSwapped(ctx, tx, result, id); err != nil {
			return err
		}
		updated, err = r.getSession(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.SessionRecord{}, err
	}
	return updated, nil
}

// CancelSession marks a session cancelled. Cancelling twice returns ErrStaleState.
func (r *SessionRepository) CancelSession(ctx context.Context, id string, at time.Time) (persistence.SessionRecord, error) {
	var updated persistence.SessionRecord
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE sessions SET status = 'cancelled', updated_at = ? WHERE id = ? AND status <> 'cancelled'`,
			formatTime(at), id,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := r.requireSwapped(ctx, tx, result, id); err != nil {
			return err
		}
		updated, err = r.getSession(ctx, tx, id)
		return err
	})
	if err != nil {
		return persistence.SessionRecord{}, err
	}
	return updated, nil
}

// MarkReminderSent stamps reminder_sent_at once.
func (r *SessionRepository) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE sessions SET reminder_sent_at = ? WHERE id = ? AND reminder_sent_at IS NULL`,
			formatTime(at), id,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		return r.requireSwapped(ctx, tx, result, id)
	})
}

// requireSwapped distinguishes a missing row from a row whose state moved on.
func (r *SessionRepository) requireSwapped(ctx context.Context, q querier, result sql.Result, id string) error {
	err := requireAffected(result)
	if !errors.Is(err, persistence.ErrNotFound) {
		return err
	}
	var exists int
	if scanErr := q.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists); scanErr != nil {
		return r.mapper.MapError(scanErr)
	}
	return persistence.ErrStaleState
}

func (r *SessionRepository) scanSession(row rowScanner) (persistence.SessionRecord, error) {
	var (
		record                                   persistence.SessionRecord
		startUTC, endUTC, createdAt, updatedAt   string
		actualStart, actualEnd, hostJoined, sent sql.NullString
	)
	err := row.Scan(
		&record.ID,
		&record.SeriesID,
		&record.HostID,
		&record.HostEmail,
		&record.HostIdentity,
		&record.Title,
		&record.Skill,
		&startUTC,
		&endUTC,
		&record.DurationMinutes,
		&record.Timezone,
		&record.Recurrence,
		&record.Status,
		&record.MeetingStatus,
		&actualStart,
		&actualEnd,
		&hostJoined,
		&sent,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.SessionRecord{}, r.mapper.MapError(err)
	}

	if record.StartUTC, err = parseTime("start_utc", startUTC); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.EndUTC, err = parseTime("end_utc", endUTC); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.UpdatedAt, err = parseTime("updated_at", updatedAt); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.ActualStartUTC, err = parseNullableTime("actual_start_utc", actualStart); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.ActualEndUTC, err = parseNullableTime("actual_end_utc", actualEnd); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.HostJoinedAtUTC, err = parseNullableTime("host_joined_at_utc", hostJoined); err != nil {
		return persistence.SessionRecord{}, err
	}
	if record.ReminderSentAt, err = parseNullableTime("reminder_sent_at", sent); err != nil {
		return persistence.SessionRecord{}, err
	}
	return record, nil
}

// loadParticipants fills Participants for every record with a single query.
func (r *SessionRepository) loadParticipants(ctx context.Context, q querier, records []persistence.SessionRecord) error {
	if len(records) == 0 {
		return nil
	}

	index := make(map[string]int, len(records))
	ids := make([]string, 0, len(records))
	for i, record := range records {
		index[record.ID] = i
		ids = append(ids, record.ID)
	}

	placeholders, args := inClause(ids)
	rows, err := q.QueryContext(ctx, `
		SELECT session_id, identity, user_id, email, role
		FROM session_participants
		WHERE session_id IN (`+placeholders+`)
		ORDER BY rowid ASC`, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sessionID string
			p         persistence.ParticipantRecord
		)
		if err := rows.Scan(&sessionID, &p.Identity, &p.UserID, &p.Email, &p.Role); err != nil {
			return r.mapper.MapError(err)
		}
		if i, ok := index[sessionID]; ok {
			records[i].Participants = append(records[i].Participants, p)
		}
	}
	return r.mapper.MapError(rows.Err())
}

func inClause(values []string) (string, []any) {
	if len(values) == 0 {
		return "NULL", nil
	}
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(values)), ", "), args
}

func sharedIdentity(candidate, existing []string) string {
	set := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		set[id] = struct{}{}
	}
	for _, id := range candidate {
		if _, ok := set[id]; ok {
			return id
		}
	}
	return ""
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

var (
	_ persistence.SessionRepository = (*SessionRepository)(nil)
	_ persistence.UserRepository    = (*UserRepository)(nil)
)
