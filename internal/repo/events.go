package repo

import (
	"context"

	"bankline/internal/domain"
)

// LatestEvents returns up to n most recent events, optionally filtered by
// event type and session id.
func (r Repo) LatestEvents(ctx context.Context, n int, evtType, sessionID string) ([]domain.Event, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id, ts, type, COALESCE(session_id,''), COALESCE(actor_id,''), payload_json FROM events`
	var conds []string
	var args []any
	if evtType != "" {
		conds = append(conds, `type=?`)
		args = append(args, evtType)
	}
	if sessionID != "" {
		conds = append(conds, `session_id=?`)
		args = append(args, sessionID)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, n)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.SessionID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
