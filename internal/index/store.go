// Package index provides a SQLite-backed cache of session summaries so
// repeated listings do not re-parse every log under the projects root.
package index

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tether-dev/tether/internal/claudedir"
	"github.com/tether-dev/tether/internal/parser"
)

// Summary is one indexed session row.
type Summary struct {
	SessionID    string
	Project      string // encoded project directory name
	Path         string // session log path
	StartTime    time.Time
	LastUpdate   time.Time
	Messages     int
	CostUSD      float64
	InputTokens  int
	OutputTokens int
	Tools        []string
	Model        string
}

// Store provides SQLite-backed persistence for session summaries.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath and creates tables if they
// don't exist.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		session_id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		path TEXT NOT NULL,
		start_time DATETIME,
		last_update DATETIME,
		messages INTEGER DEFAULT 0,
		cost_usd REAL DEFAULT 0,
		input_tokens INTEGER DEFAULT 0,
		output_tokens INTEGER DEFAULT 0,
		tools TEXT,
		model TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
	`
	_, err := db.Exec(schema)
	return err
}

// Reindex scans every project under dir, parses each session log, and
// upserts its summary. Unparseable logs are skipped; their paths are
// returned so callers can report them.
func (s *Store) Reindex(dir claudedir.Dir) (skipped []string, err error) {
	projects, err := dir.FindProjects()
	if err != nil {
		return nil, err
	}

	for _, proj := range projects {
		for _, path := range proj.SessionPaths {
			sess, err := parser.ParseFile(path, nil)
			if err != nil || sess.SessionID == "" {
				skipped = append(skipped, path)
				continue
			}
			if err := s.upsert(proj.Name, path, sess); err != nil {
				return skipped, err
			}
		}
	}
	return skipped, nil
}

func (s *Store) upsert(project, path string, sess *parser.Session) error {
	model := ""
	if len(sess.Meta.Models) > 0 {
		model = sess.Meta.Models[0]
	}

	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, project, path, start_time, last_update,
		                       messages, cost_usd, input_tokens, output_tokens, tools, model)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   project = excluded.project,
		   path = excluded.path,
		   start_time = excluded.start_time,
		   last_update = excluded.last_update,
		   messages = excluded.messages,
		   cost_usd = excluded.cost_usd,
		   input_tokens = excluded.input_tokens,
		   output_tokens = excluded.output_tokens,
		   tools = excluded.tools,
		   model = excluded.model`,
		sess.SessionID, project, path,
		sess.Meta.FirstMessageTime, sess.Meta.LastMessageTime,
		sess.Meta.TotalMessages, sess.Meta.TotalCostUSD,
		sess.Meta.TotalInputTokens, sess.Meta.TotalOutputTokens,
		strings.Join(sess.Meta.UniqueToolsUsed, ","), model,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.SessionID, err)
	}
	return nil
}

// Sessions returns the most recently updated sessions, newest first.
// limit <= 0 returns all rows.
func (s *Store) Sessions(limit int) ([]Summary, error) {
	query := `SELECT session_id, project, path, start_time, last_update,
	                 messages, cost_usd, input_tokens, output_tokens,
	                 COALESCE(tools, ''), COALESCE(model, '')
	          FROM sessions ORDER BY last_update DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return summaries, nil
}

// Session retrieves one summary by session id. Returns a zero Summary and
// false when the id is unknown.
func (s *Store) Session(sessionID string) (Summary, bool, error) {
	row := s.db.QueryRow(
		`SELECT session_id, project, path, start_time, last_update,
		        messages, cost_usd, input_tokens, output_tokens,
		        COALESCE(tools, ''), COALESCE(model, '')
		 FROM sessions WHERE session_id = ?`,
		sessionID,
	)

	sum, err := scanSummary(row)
	if err == sql.ErrNoRows {
		return Summary{}, false, nil
	}
	if err != nil {
		return Summary{}, false, err
	}
	return sum, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (Summary, error) {
	var sum Summary
	var tools string
	err := row.Scan(&sum.SessionID, &sum.Project, &sum.Path,
		&sum.StartTime, &sum.LastUpdate,
		&sum.Messages, &sum.CostUSD, &sum.InputTokens, &sum.OutputTokens,
		&tools, &sum.Model)
	if err != nil {
		if err == sql.ErrNoRows {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("scan session: %w", err)
	}
	if tools != "" {
		sum.Tools = strings.Split(tools, ",")
	}
	return sum, nil
}
