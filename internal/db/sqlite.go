package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/BorisDmv/multiblog-api/internal/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    username TEXT NOT NULL UNIQUE,
	    password_hash TEXT NOT NULL,
	    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    user_id INTEGER NOT NULL REFERENCES users(id),
	    title TEXT NOT NULL,
	    body TEXT NOT NULL,
	    image_url TEXT,
	    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS posts_user_id_idx ON posts (user_id)`,
}

// SQLiteStore implements Store on a local SQLite file. It backs local
// development and the test suites.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path. Foreign keys, WAL
// and a busy timeout are enabled on every pooled connection.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "blog.db"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	d, err := sql.Open("sqlite3", path+sep+"_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return &SQLiteStore{db: d}, nil
}

// Migrate creates the users and posts tables when missing.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() {
	_ = s.db.Close()
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `INSERT INTO users (username, password_hash) VALUES (?, ?)`, username, passwordHash)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	var u models.User
	err = s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("load created user: %w", err)
	}
	return &u, nil
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var u models.User
	err := s.db.QueryRowContext(ctx, `SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}

const sqlitePostColumns = `p.id, p.title, p.body, p.created_at, u.username, p.user_id, p.image_url`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row rowScanner) (models.Post, error) {
	var p models.Post
	var image sql.NullString
	if err := row.Scan(&p.ID, &p.Title, &p.Body, &p.CreatedAt, &p.Username, &p.UserID, &image); err != nil {
		return p, err
	}
	if image.Valid {
		v := image.String
		p.ImageURL = &v
	}
	return p, nil
}

func (s *SQLiteStore) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// LIMIT -1 means no limit in SQLite.
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlitePostColumns+`
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) GetPostByID(ctx context.Context, id int64) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+sqlitePostColumns+`
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = ?`, id)
	p, err := scanSQLitePost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) CreatePost(ctx context.Context, userID int64, title, body string, imageURL *string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `INSERT INTO posts (user_id, title, body, image_url) VALUES (?, ?, ?, NULLIF(?, ''))`,
		userID, title, body, imageURL)
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdatePost(ctx context.Context, id, ownerID int64, changes models.PostChanges) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	setImage, image := imageArgs(changes.ImageURL)
	res, err := s.db.ExecContext(ctx, `UPDATE posts
		SET title = ?, body = ?, image_url = CASE WHEN ? THEN NULLIF(?, '') ELSE image_url END
		WHERE id = ? AND user_id = ?`,
		changes.Title, changes.Body, setImage, image, id, ownerID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return s.checkAffected(ctx, res, id)
}

func (s *SQLiteStore) DeletePost(ctx context.Context, id, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ? AND user_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return s.checkAffected(ctx, res, id)
}

func (s *SQLiteStore) checkAffected(ctx context.Context, res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = ?)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe post: %w", err)
	}
	if exists {
		return ErrNotOwner
	}
	return ErrNotFound
}
