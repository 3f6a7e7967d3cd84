package pageuser

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = sql.ErrNoRows

// ErrEmailTaken is returned by CreateUser when the email is already registered.
var ErrEmailTaken = errors.New("pageuser: email already registered")

// Store wraps a SQLite database holding users, saved configurations,
// generated-template metadata, password-reset codes, and activity history.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL for concurrent read/write, busy_timeout so writers wait instead
	// of failing with SQLITE_BUSY, synchronous=NORMAL is safe under WAL.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    hashed_password TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS reset_codes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    code TEXT NOT NULL,
    expires_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS json_configs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS templates (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    source_config_id INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    action TEXT NOT NULL,
    created_at TEXT NOT NULL
);
`)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// --- users ---

// CreateUser inserts a new account. The email must be unused.
func (s *Store) CreateUser(name, email, hashedPassword string) (User, error) {
	createdAt := now()
	res, err := s.db.Exec(`INSERT INTO users (name, email, hashed_password, created_at) VALUES (?, ?, ?, ?)`,
		name, email, hashedPassword, createdAt)
	if err != nil {
		if strings.Contains(strings.ToUpper(err.Error()), "UNIQUE") {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Name: name, Email: email, Hashed: hashedPassword, CreatedAt: createdAt}, nil
}

// GetUserByEmail returns the account registered under email.
func (s *Store) GetUserByEmail(email string) (User, error) {
	var u User
	err := s.db.QueryRow(`SELECT id, name, email, hashed_password, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &u.Hashed, &u.CreatedAt)
	return u, err
}

// GetUserByID returns the account with the given id.
func (s *Store) GetUserByID(id int64) (User, error) {
	var u User
	err := s.db.QueryRow(`SELECT id, name, email, hashed_password, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.Hashed, &u.CreatedAt)
	return u, err
}

// UpdateUserPassword replaces the stored password hash for the user.
func (s *Store) UpdateUserPassword(id int64, hashedPassword string) error {
	_, err := s.db.Exec(`UPDATE users SET hashed_password = ? WHERE id = ?`, hashedPassword, id)
	return err
}

// --- password reset ---

// CreateResetCode stores a fresh reset code for the user, replacing any
// previous codes, valid until expiresAt.
func (s *Store) CreateResetCode(userID int64, code string, expiresAt time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM reset_codes WHERE user_id = ?`, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT INTO reset_codes (user_id, code, expires_at) VALUES (?, ?, ?)`,
		userID, code, expiresAt.UTC().Format(time.RFC3339))
	return err
}

// ConsumeResetCode validates code for the account under email and deletes
// it on success, so a code can be used at most once. Expired or unknown
// codes return ErrNotFound.
func (s *Store) ConsumeResetCode(email, code string) (User, error) {
	var u User
	var codeID int64
	var expiresAt string
	err := s.db.QueryRow(`
		SELECT r.id, r.expires_at, u.id, u.name, u.email, u.hashed_password, u.created_at
		FROM reset_codes r JOIN users u ON u.id = r.user_id
		WHERE r.code = ? AND u.email = ?`, code, email).
		Scan(&codeID, &expiresAt, &u.ID, &u.Name, &u.Email, &u.Hashed, &u.CreatedAt)
	if err != nil {
		return User{}, err
	}
	exp, err := time.Parse(time.RFC3339, expiresAt)
	if err != nil || time.Now().UTC().After(exp) {
		return User{}, ErrNotFound
	}
	if _, err := s.db.Exec(`DELETE FROM reset_codes WHERE id = ?`, codeID); err != nil {
		return User{}, err
	}
	return u, nil
}

// --- saved configurations ---

// SaveJSONConfig stores a configuration document for the user.
func (s *Store) SaveJSONConfig(userID int64, name, content string) (SiteConfigRecord, error) {
	createdAt := now()
	res, err := s.db.Exec(`INSERT INTO json_configs (user_id, name, content, created_at) VALUES (?, ?, ?, ?)`,
		userID, name, content, createdAt)
	if err != nil {
		return SiteConfigRecord{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return SiteConfigRecord{}, err
	}
	return SiteConfigRecord{ID: id, UserID: userID, Name: name, Content: content, CreatedAt: createdAt}, nil
}

// ListJSONConfigs returns the user's saved configurations, newest first.
func (s *Store) ListJSONConfigs(userID int64) ([]SiteConfigRecord, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, content, created_at FROM json_configs
		WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []SiteConfigRecord
	for rows.Next() {
		var c SiteConfigRecord
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		configs = append(configs, c)
	}
	return configs, rows.Err()
}

// GetJSONConfig returns one saved configuration, scoped to its owner.
func (s *Store) GetJSONConfig(id, userID int64) (SiteConfigRecord, error) {
	var c SiteConfigRecord
	err := s.db.QueryRow(`SELECT id, user_id, name, content, created_at FROM json_configs
		WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Content, &c.CreatedAt)
	return c, err
}

// DeleteJSONConfig removes a saved configuration, scoped to its owner.
func (s *Store) DeleteJSONConfig(id, userID int64) error {
	res, err := s.db.Exec(`DELETE FROM json_configs WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- generated templates ---

// CreateTemplate records a generated artifact for the user.
func (s *Store) CreateTemplate(userID int64, name, filePath string, sourceConfigID int64) (GeneratedTemplate, error) {
	createdAt := now()
	res, err := s.db.Exec(`INSERT INTO templates (user_id, name, file_path, source_config_id, created_at)
		VALUES (?, ?, ?, ?, ?)`, userID, name, filePath, sourceConfigID, createdAt)
	if err != nil {
		return GeneratedTemplate{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return GeneratedTemplate{}, err
	}
	return GeneratedTemplate{
		ID: id, UserID: userID, Name: name, FilePath: filePath,
		SourceConfigID: sourceConfigID, CreatedAt: createdAt,
	}, nil
}

// ListTemplates returns the user's generated templates, newest first.
func (s *Store) ListTemplates(userID int64) ([]GeneratedTemplate, error) {
	rows, err := s.db.Query(`SELECT id, user_id, name, file_path, source_config_id, created_at
		FROM templates WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []GeneratedTemplate
	for rows.Next() {
		var t GeneratedTemplate
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.FilePath, &t.SourceConfigID, &t.CreatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// GetTemplate returns one generated template, scoped to its owner.
func (s *Store) GetTemplate(id, userID int64) (GeneratedTemplate, error) {
	var t GeneratedTemplate
	err := s.db.QueryRow(`SELECT id, user_id, name, file_path, source_config_id, created_at
		FROM templates WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&t.ID, &t.UserID, &t.Name, &t.FilePath, &t.SourceConfigID, &t.CreatedAt)
	return t, err
}

// DeleteTemplate removes a generated template row and returns the deleted
// record so the caller can clean its artifact off disk.
func (s *Store) DeleteTemplate(id, userID int64) (GeneratedTemplate, error) {
	t, err := s.GetTemplate(id, userID)
	if err != nil {
		return GeneratedTemplate{}, err
	}
	if _, err := s.db.Exec(`DELETE FROM templates WHERE id = ?`, t.ID); err != nil {
		return GeneratedTemplate{}, err
	}
	return t, nil
}

// CountTemplates returns how many templates the user has generated.
func (s *Store) CountTemplates(userID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM templates WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// LastActivity returns the timestamp of the user's most recent generated
// template, or "" when there is none.
func (s *Store) LastActivity(userID int64) (string, error) {
	var ts sql.NullString
	err := s.db.QueryRow(`SELECT MAX(created_at) FROM templates WHERE user_id = ?`, userID).Scan(&ts)
	if err != nil {
		return "", err
	}
	return ts.String, nil
}

// --- history ---

// AddHistory appends an action to the user's activity log.
func (s *Store) AddHistory(userID int64, action string) error {
	_, err := s.db.Exec(`INSERT INTO history (user_id, action, created_at) VALUES (?, ?, ?)`,
		userID, action, now())
	return err
}

// ListHistory returns the user's most recent actions, newest first.
func (s *Store) ListHistory(userID int64, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`SELECT id, user_id, action, created_at FROM history
		WHERE user_id = ? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.UserID, &h.Action, &h.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}
