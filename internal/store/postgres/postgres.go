package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/store"
	"github.com/lib/pq"
)

const (
	errUniqueViolation     pq.ErrorCode = "23505"
	errForeignKeyViolation pq.ErrorCode = "23503"
)

// Store implements store.Remote on top of PostgreSQL. Every user document is a row keyed by uid,
// with the document body kept in a JSONB column.
type Store struct {
	db *sql.DB
}

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
	SSLMode  string
}

func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DB, sslMode)
}

// Open connects to postgres and applies pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// New wraps an existing connection without running migrations.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetProfile(ctx context.Context, uid string) (model.Profile, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT profile FROM profiles WHERE uid = $1", uid).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, store.ErrNotFound
		}
		return model.Profile{}, fmt.Errorf("select profile: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (s *Store) SaveProfile(ctx context.Context, uid string, p model.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO profiles (uid, profile) VALUES ($1, $2)
		 ON CONFLICT (uid) DO UPDATE SET profile = profiles.profile || excluded.profile, updated_at = now()`,
		uid, raw)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// ListEntries skips ORDER BY; callers sort.
func (s *Store) ListEntries(ctx context.Context, uid string) ([]model.DiaryEntry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT doc FROM entries WHERE uid = $1", uid)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	defer rows.Close()

	entries := []model.DiaryEntry{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		var e model.DiaryEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

func (s *Store) PutEntry(ctx context.Context, uid string, e model.DiaryEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO entries (uid, id, ts, language, doc) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (uid, id) DO UPDATE SET ts = excluded.ts, language = excluded.language, doc = excluded.doc`,
		uid, e.ID, e.Timestamp, string(e.Language), raw)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, uid, entryID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM entries WHERE uid = $1 AND id = $2", uid, entryID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// gemDoc is the descriptive part of a gem; mastery and practices live in their own columns and rows.
type gemDoc struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Usage   string `json:"usage"`
	Level   string `json:"level"`
}

func (s *Store) ListGems(ctx context.Context, uid string) ([]model.Gem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, language, mastery, created_at, doc FROM gems WHERE uid = $1", uid)
	if err != nil {
		return nil, fmt.Errorf("select gems: %w", err)
	}
	defer rows.Close()

	gems := []model.Gem{}
	for rows.Next() {
		var (
			g    model.Gem
			lang string
			raw  []byte
			doc  gemDoc
		)
		if err := rows.Scan(&g.ID, &lang, &g.Mastery, &g.CreatedAt, &raw); err != nil {
			return nil, fmt.Errorf("scan gem: %w", err)
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode gem: %w", err)
		}

		g.Language = model.Language(lang)
		g.Word, g.Meaning, g.Usage, g.Level = doc.Word, doc.Meaning, doc.Usage, doc.Level
		g.Practices = []model.PracticeRecord{}
		gems = append(gems, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate gems: %w", err)
	}
	return gems, nil
}

func (s *Store) PutGem(ctx context.Context, uid string, g model.Gem) error {
	raw, err := json.Marshal(gemDoc{Word: g.Word, Meaning: g.Meaning, Usage: g.Usage, Level: g.Level})
	if err != nil {
		return fmt.Errorf("encode gem: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO gems (uid, id, language, mastery, created_at, doc) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (uid, id) DO UPDATE SET language = excluded.language, mastery = excluded.mastery, doc = excluded.doc`,
		uid, g.ID, string(g.Language), g.Mastery, g.CreatedAt, raw)
	if err != nil {
		return fmt.Errorf("upsert gem: %w", err)
	}
	return nil
}

func (s *Store) UpdateMastery(ctx context.Context, uid, gemID string, mastery int) error {
	res, err := s.db.ExecContext(ctx, "UPDATE gems SET mastery = $3 WHERE uid = $1 AND id = $2", uid, gemID, mastery)
	if err != nil {
		return fmt.Errorf("update mastery: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteGem(ctx context.Context, uid, gemID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM gems WHERE uid = $1 AND id = $2", uid, gemID); err != nil {
		return fmt.Errorf("delete gem: %w", err)
	}
	return nil
}

func (s *Store) ListPractices(ctx context.Context, uid, gemID string) ([]model.PracticeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, status, ts, detail FROM practices WHERE uid = $1 AND gem_id = $2", uid, gemID)
	if err != nil {
		return nil, fmt.Errorf("select practices: %w", err)
	}
	defer rows.Close()

	recs := []model.PracticeRecord{}
	for rows.Next() {
		var (
			rec    model.PracticeRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &status, &rec.Timestamp, &rec.Detail); err != nil {
			return nil, fmt.Errorf("scan practice: %w", err)
		}
		rec.Status = model.PracticeStatus(status)
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate practices: %w", err)
	}
	return recs, nil
}

func (s *Store) AddPractice(ctx context.Context, uid, gemID string, rec model.PracticeRecord) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO practices (uid, gem_id, id, status, ts, detail) VALUES ($1, $2, $3, $4, $5, $6)",
		uid, gemID, rec.ID, string(rec.Status), rec.Timestamp, rec.Detail)
	if err != nil {
		if isPqErr(err, errForeignKeyViolation) {
			return store.ErrNotFound
		}
		if isPqErr(err, errUniqueViolation) {
			return store.ErrExists
		}
		return fmt.Errorf("insert practice: %w", err)
	}
	return nil
}

func (s *Store) DeletePractices(ctx context.Context, uid, gemID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM practices WHERE uid = $1 AND gem_id = $2 AND id = ANY($3)",
		uid, gemID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("delete practices: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isPqErr(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == code
	}
	return false
}
