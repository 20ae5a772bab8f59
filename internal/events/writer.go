package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Execer is satisfied by both *sql.DB and *sql.Tx so ledger mutations can log
// inside their transaction while chat turns log directly.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one event row via exec. Pass nil to use the writer's DB.
func (w Writer) Append(ctx context.Context, exec Execer, evtType, sessionID, actorID string, payload EventPayload) error {
	if exec == nil {
		exec = w.DB
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = exec.ExecContext(ctx, `INSERT INTO events(ts,type,session_id,actor_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullable(sessionID), nullable(actorID), string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
