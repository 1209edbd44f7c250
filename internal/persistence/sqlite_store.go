package persistence

import (
	"database/sql"
	"time"

	"github.com/taskwire/taskwire/pkg/api"
)

// SQLiteHistory is a HistoryStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteHistory struct {
	db *sql.DB
}

// Ensure SQLiteHistory implements HistoryStore.
var _ api.HistoryStore = (*SQLiteHistory)(nil)

// NewSQLiteHistory initializes the required schema in the given database
// and returns a new SQLiteHistory.
func NewSQLiteHistory(db *sql.DB) (*SQLiteHistory, error) {
	s := &SQLiteHistory{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistory) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatch_events (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL,
			topic TEXT NOT NULL,
			kind TEXT NOT NULL,
			error TEXT,
			at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteHistory) Append(ev *api.DispatchEvent) error {
	res, err := s.db.Exec(`
		INSERT INTO dispatch_events (id, topic, kind, error, at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID,
		ev.Topic,
		string(ev.Kind),
		ev.Error,
		ev.At.UnixNano(),
	)
	if err != nil {
		return err
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.Seq = seq
	return nil
}

func (s *SQLiteHistory) List(filter api.HistoryFilter) ([]*api.DispatchEvent, error) {
	query := `
		SELECT seq, id, topic, kind, error, at
		FROM dispatch_events`

	var (
		clauses []string
		args    []any
	)
	if filter.Topic != "" {
		clauses = append(clauses, "topic = ?")
		args = append(args, filter.Topic)
	}
	if filter.Kind != "" {
		clauses = append(clauses, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}
	query += " ORDER BY seq"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*api.DispatchEvent
	for rows.Next() {
		var (
			ev   api.DispatchEvent
			kind string
			atNs int64
		)
		if err := rows.Scan(&ev.Seq, &ev.ID, &ev.Topic, &kind, &ev.Error, &atNs); err != nil {
			return nil, err
		}
		ev.Kind = api.EventKind(kind)
		ev.At = time.Unix(0, atNs)
		out = append(out, &ev)
	}
	return out, rows.Err()
}
