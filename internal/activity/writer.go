package activity

import (
	"context"
	"database/sql"
	"time"
)

// Writer appends audit entries to the activity log. Appends always run
// inside the caller's transaction so an entry never outlives a rolled-back
// state change.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, projectID, userID, entryType, title, description string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO activity_log(project_id,user_id,type,title,description,created_at) VALUES (?,?,?,?,?,?)`,
		projectID, userID, entryType, title, nullable(description), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
