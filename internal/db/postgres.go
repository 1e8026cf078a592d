package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BorisDmv/multiblog-api/internal/models"
)

const pgUniqueViolation = "23505"

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
	    id BIGSERIAL PRIMARY KEY,
	    username TEXT NOT NULL UNIQUE,
	    password_hash TEXT NOT NULL,
	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
	    id BIGSERIAL PRIMARY KEY,
	    user_id BIGINT NOT NULL REFERENCES users(id),
	    title TEXT NOT NULL,
	    body TEXT NOT NULL,
	    image_url TEXT,
	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS posts_user_id_idx ON posts (user_id)`,
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the users and posts tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at
	`
	var created models.User
	err := s.pool.QueryRow(ctx, query, username, passwordHash).Scan(
		&created.ID,
		&created.Username,
		&created.PasswordHash,
		&created.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &created, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`
	var user models.User
	err := s.pool.QueryRow(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// A NULL limit means no limit in Postgres.
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
		SELECT p.id, p.title, p.body, p.created_at, u.username, p.user_id, p.image_url
		FROM posts p
		JOIN users u ON u.id = p.user_id
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.pool.Query(ctx, query, limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(
			&post.ID,
			&post.Title,
			&post.Body,
			&post.CreatedAt,
			&post.Username,
			&post.UserID,
			&post.ImageURL,
		); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return posts, nil
}

func (s *PostgresStore) GetPostByID(ctx context.Context, id int64) (*models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		SELECT p.id, p.title, p.body, p.created_at, u.username, p.user_id, p.image_url
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1
	`
	var post models.Post
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&post.ID,
		&post.Title,
		&post.Body,
		&post.CreatedAt,
		&post.Username,
		&post.UserID,
		&post.ImageURL,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

func (s *PostgresStore) CreatePost(ctx context.Context, userID int64, title, body string, imageURL *string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		INSERT INTO posts (user_id, title, body, image_url)
		VALUES ($1, $2, $3, NULLIF($4::text, ''))
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, userID, title, body, imageURL).Scan(&id); err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpdatePost(ctx context.Context, id, ownerID int64, changes models.PostChanges) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	const query = `
		UPDATE posts
		SET title = $3,
		    body = $4,
		    image_url = CASE WHEN $5::boolean THEN NULLIF($6::text, '') ELSE image_url END
		WHERE id = $1 AND user_id = $2
	`
	setImage, image := imageArgs(changes.ImageURL)
	tag, err := s.pool.Exec(ctx, query, id, ownerID, changes.Title, changes.Body, setImage, image)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrForeign(ctx, id)
	}
	return nil
}

func (s *PostgresStore) DeletePost(ctx context.Context, id, ownerID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1 AND user_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missOrForeign(ctx, id)
	}
	return nil
}

// missOrForeign classifies a conditional mutation that affected no rows.
func (s *PostgresStore) missOrForeign(ctx context.Context, id int64) error {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("probe post: %w", err)
	}
	if exists {
		return ErrNotOwner
	}
	return ErrNotFound
}

// imageArgs turns an optional image change into (apply, value) query args.
func imageArgs(imageURL *string) (bool, string) {
	if imageURL == nil {
		return false, ""
	}
	return true, *imageURL
}
