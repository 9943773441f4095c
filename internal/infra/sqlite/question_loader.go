package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"trivia-session-service/internal/domain"
	"trivia-session-service/internal/infra/memory"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS questions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    text           TEXT NOT NULL UNIQUE,
    options        TEXT NOT NULL,
    correct_option INTEGER NOT NULL CHECK (correct_option >= 1)
)`

// QuestionLoader keeps the trivia bank in a local sqlite file, for
// single-binary deployments that carry their own question database. The
// schema is created on open and seeded with the bundled starter set when
// empty.
type QuestionLoader struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*QuestionLoader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create questions table: %w", err)
	}

	loader := &QuestionLoader{db: db}
	if err := loader.seedIfEmpty(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return loader, nil
}

func (l *QuestionLoader) Close() error {
	return l.db.Close()
}

func (l *QuestionLoader) seedIfEmpty(ctx context.Context) error {
	var count int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions`).Scan(&count); err != nil {
		return fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		return nil
	}
	return l.Insert(ctx, memory.DefaultBank())
}

// Insert adds questions to the bank, skipping those already present.
func (l *QuestionLoader) Insert(ctx context.Context, questions []domain.Question) error {
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return fmt.Errorf("marshal options: %w", err)
		}
		if _, err := l.db.ExecContext(ctx,
			`INSERT INTO questions (text, options, correct_option) VALUES (?, ?, ?)
			 ON CONFLICT (text) DO NOTHING`,
			q.Text, string(options), q.Correct); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
	}
	return nil
}

// LoadQuestions returns the full bank.
func (l *QuestionLoader) LoadQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT text, options, correct_option FROM questions`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()
	return scanQuestions(rows)
}

// RandomQuestions samples n distinct questions in the database.
func (l *QuestionLoader) RandomQuestions(ctx context.Context, n int) ([]domain.Question, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT text, options, correct_option FROM questions ORDER BY RANDOM() LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}
	if len(questions) < n {
		return nil, domain.ErrBankExhausted
	}
	return questions, nil
}

func scanQuestions(rows *sql.Rows) ([]domain.Question, error) {
	var questions []domain.Question
	for rows.Next() {
		var (
			q   domain.Question
			raw string
		)
		if err := rows.Scan(&q.Text, &raw, &q.Correct); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options: %w", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read questions: %w", err)
	}
	return questions, nil
}
