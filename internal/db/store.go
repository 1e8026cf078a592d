package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BorisDmv/multiblog-api/internal/models"
)

var (
	// ErrNotFound is returned by conditional mutations when the post does not exist.
	ErrNotFound = errors.New("db: not found")
	// ErrNotOwner is returned by conditional mutations when the post exists but
	// belongs to another user.
	ErrNotOwner = errors.New("db: not owner")
	// ErrDuplicate is returned when a unique constraint rejects an insert.
	ErrDuplicate = errors.New("db: duplicate")
)

const queryTimeout = 5 * time.Second

// Store is the persistence contract shared by the Postgres and SQLite backends.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// ListPosts returns posts newest first. A limit <= 0 returns every post.
	ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error)
	GetPostByID(ctx context.Context, id int64) (*models.Post, error)
	CreatePost(ctx context.Context, userID int64, title, body string, imageURL *string) (int64, error)
	// UpdatePost and DeletePost only touch the row when it is owned by ownerID.
	// They return ErrNotFound or ErrNotOwner when no row was affected.
	UpdatePost(ctx context.Context, id, ownerID int64, changes models.PostChanges) error
	DeletePost(ctx context.Context, id, ownerID int64) error

	Ping(ctx context.Context) error
	Close()
}

// Open connects to the store named by databaseURL and makes sure the schema
// exists. postgres:// and postgresql:// URLs use pgx; sqlite://path, file:
// URIs and *.db paths use SQLite.
func Open(ctx context.Context, databaseURL string, maxConns int32) (Store, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := NewPostgresStore(ctx, databaseURL, maxConns)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case strings.HasPrefix(databaseURL, "sqlite://"),
		strings.HasPrefix(databaseURL, "file:"),
		strings.HasSuffix(databaseURL, ".db"):
		store, err := NewSQLiteStore(strings.TrimPrefix(databaseURL, "sqlite://"))
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database url %q", redact(databaseURL))
	}
}

func redact(raw string) string {
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	return scheme + "://..."
}
