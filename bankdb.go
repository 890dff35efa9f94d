package learningassistant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "github.com/mattn/go-sqlite3"    // driver: sqlite3
	_ "modernc.org/sqlite"             // driver: sqlite
)

// Driver names a database/sql driver the bank store can run on.
type Driver string

const (
	DriverSQLite3  Driver = "sqlite3" // cgo
	DriverSQLite   Driver = "sqlite"  // pure Go
	DriverPostgres Driver = "pgx"
)

// BankDB stores question banks.
type BankDB struct {
	db     *sql.DB
	driver Driver
}

// Bank is a stored question bank without its questions.
type Bank struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	QuestionCount int       `json:"question_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// OpenBankDB opens the database and makes sure the schema exists.
func OpenBankDB(ctx context.Context, driver Driver, dsn string) (*BankDB, error) {
	switch driver {
	case DriverSQLite3, DriverSQLite:
		if dsn == "" {
			dsn = "banks.db"
		}
	case DriverPostgres:
		if dsn == "" {
			dsn = "postgres://localhost:5432/learningassistant?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(string(driver), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	b := &BankDB{db: db, driver: driver}
	if err := b.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *BankDB) Close() error {
	return b.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (b *BankDB) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS question_banks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bank_questions (
			bank_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			id TEXT NOT NULL,
			text TEXT NOT NULL,
			answers TEXT NOT NULL,
			explanation TEXT NOT NULL DEFAULT '',
			difficulty INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (bank_id, position)
		)`,
	}
	for _, query := range queries {
		if _, err := b.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for postgres.
func (b *BankDB) rebind(query string) string {
	if b.driver != DriverPostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// CreateBank stores questions as a new bank, in the given order.
func (b *BankDB) CreateBank(ctx context.Context, name string, questions []Question) (*Bank, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyBank
	}
	bank := &Bank{
		ID:            uuid.NewString(),
		Name:          name,
		QuestionCount: len(questions),
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		b.rebind("INSERT INTO question_banks (id, name, created_at) VALUES (?, ?, ?)"),
		bank.ID, bank.Name, bank.CreatedAt.Unix(),
	); err != nil {
		return nil, fmt.Errorf("failed to create bank: %w", err)
	}

	insert := b.rebind("INSERT INTO bank_questions (bank_id, position, id, text, answers, explanation, difficulty) VALUES (?, ?, ?, ?, ?, ?, ?)")
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, &RecordError{Index: i, Source: name, Err: err}
		}
		answersJSON, err := AnswersToJSON(q.Answers)
		if err != nil {
			return nil, err
		}
		id := q.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, insert, bank.ID, i, id, q.Text, answersJSON, q.Explanation, q.Difficulty); err != nil {
			return nil, fmt.Errorf("failed to store question %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit bank: %w", err)
	}
	return bank, nil
}

// GetBank retrieves a bank by ID
func (b *BankDB) GetBank(ctx context.Context, id string) (*Bank, error) {
	var (
		bank    Bank
		created int64
	)
	err := b.db.QueryRowContext(ctx, b.rebind(
		`SELECT b.id, b.name, b.created_at, COUNT(q.position)
		FROM question_banks b LEFT JOIN bank_questions q ON q.bank_id = b.id
		WHERE b.id = ?
		GROUP BY b.id, b.name, b.created_at`), id,
	).Scan(&bank.ID, &bank.Name, &created, &bank.QuestionCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bank: %w", err)
	}
	bank.CreatedAt = time.Unix(created, 0).UTC()
	return &bank, nil
}

// ListBanks returns all banks, newest first.
func (b *BankDB) ListBanks(ctx context.Context) ([]Bank, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT b.id, b.name, b.created_at, COUNT(q.position)
		FROM question_banks b LEFT JOIN bank_questions q ON q.bank_id = b.id
		GROUP BY b.id, b.name, b.created_at
		ORDER BY b.created_at DESC, b.name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list banks: %w", err)
	}
	defer rows.Close()

	banks := []Bank{}
	for rows.Next() {
		var (
			bank    Bank
			created int64
		)
		if err := rows.Scan(&bank.ID, &bank.Name, &created, &bank.QuestionCount); err != nil {
			return nil, fmt.Errorf("failed to scan bank: %w", err)
		}
		bank.CreatedAt = time.Unix(created, 0).UTC()
		banks = append(banks, bank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating banks: %w", err)
	}
	return banks, nil
}

// LoadQuestions returns the questions of a bank in stored order.
func (b *BankDB) LoadQuestions(ctx context.Context, bankID string) ([]Question, error) {
	if _, err := b.GetBank(ctx, bankID); err != nil {
		return nil, err
	}
	rows, err := b.db.QueryContext(ctx, b.rebind(
		"SELECT id, text, answers, explanation, difficulty FROM bank_questions WHERE bank_id = ? ORDER BY position"),
		bankID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var (
			q           Question
			answersJSON string
		)
		if err := rows.Scan(&q.ID, &q.Text, &answersJSON, &q.Explanation, &q.Difficulty); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if q.Answers, err = JSONToAnswers(answersJSON); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}

// DeleteBank removes a bank and its questions.
func (b *BankDB) DeleteBank(ctx context.Context, id string) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, b.rebind("DELETE FROM bank_questions WHERE bank_id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete questions: %w", err)
	}
	res, err := tx.ExecContext(ctx, b.rebind("DELETE FROM question_banks WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete bank: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("bank %s: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

type storedAnswer struct {
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

// AnswersToJSON encodes answers for the answers column. Letters are not
// stored; they are assigned when a session shuffles.
func AnswersToJSON(answers []Answer) (string, error) {
	stored := make([]storedAnswer, len(answers))
	for i, a := range answers {
		stored[i] = storedAnswer{Text: a.Text, Correct: a.Correct}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal answers: %w", err)
	}
	return string(data), nil
}

// JSONToAnswers decodes the answers column.
func JSONToAnswers(answersJSON string) ([]Answer, error) {
	var stored []storedAnswer
	if err := json.Unmarshal([]byte(answersJSON), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	answers := make([]Answer, len(stored))
	for i, s := range stored {
		answers[i] = Answer{Text: s.Text, Correct: s.Correct}
	}
	return answers, nil
}
