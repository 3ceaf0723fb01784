package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Writer appends notifications for a user. Like the activity writer it is
// transaction-scoped: a status-change notification commits or rolls back
// together with the status update it announces.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, userID, title, message, notifType, link string) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	_, err := tx.ExecContext(ctx, `INSERT INTO notifications(id,user_id,title,message,type,link,read,created_at) VALUES (?,?,?,?,?,?,0,?)`,
		uuid.New().String(), userID, title, message, notifType, nullable(link), ts)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
