// Package blog holds the account and post rules: registration, login and
// ownership-checked post mutations.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/BorisDmv/multiblog-api/internal/auth"
	"github.com/BorisDmv/multiblog-api/internal/db"
	"github.com/BorisDmv/multiblog-api/internal/models"
)

// TokenIssuer mints session tokens for a logged-in user.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, time.Time, error)
}

type Service struct {
	store      db.Store
	tokens     TokenIssuer
	bcryptCost int

	dummyOnce sync.Once
	dummyHash string
}

func NewService(store db.Store, tokens TokenIssuer, bcryptCost int) *Service {
	return &Service{store: store, tokens: tokens, bcryptCost: bcryptCost}
}

// Session is what a successful login hands back to the caller.
type Session struct {
	Token     string
	ExpiresAt time.Time
	UserID    int64
	Username  string
}

// PostInput is the client-supplied content of a post.
type PostInput struct {
	Title    string
	Body     string
	ImageURL *string
}

// Register creates a user and returns its id.
func (s *Service) Register(ctx context.Context, username, password string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, invalid("username and password are required")
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return 0, invalid(fmt.Sprintf("password must be at most %d bytes", auth.MaxPasswordBytes))
		}
		return 0, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			return 0, ErrDuplicateUsername
		}
		return 0, err
	}
	return user.ID, nil
}

// Login checks credentials and mints a session token. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("username and password are required")
	}
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		auth.BurnPasswordCheck(password, s.unknownUserHash())
		return nil, ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	id := auth.Identity{UserID: user.ID, Username: user.Username}
	token, exp, err := s.tokens.Issue(id)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp, UserID: user.ID, Username: user.Username}, nil
}

// unknownUserHash is the digest compared against on logins for usernames that
// do not exist. It is built lazily at the configured cost.
func (s *Service) unknownUserHash() string {
	s.dummyOnce.Do(func() {
		hash, err := auth.DummyHash(s.bcryptCost)
		if err != nil {
			hash, _ = auth.DummyHash(bcrypt.DefaultCost)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Service) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	return s.store.ListPosts(ctx, limit, offset)
}

func (s *Service) GetPost(ctx context.Context, id int64) (*models.Post, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	return post, nil
}

// CreatePost stores a post owned by the caller and returns its id.
func (s *Service) CreatePost(ctx context.Context, caller auth.Identity, in PostInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}
	return s.store.CreatePost(ctx, caller.UserID, in.Title, in.Body, in.ImageURL)
}

// UpdatePost changes a post owned by the caller. The ownership check and the
// write happen in one conditional statement.
func (s *Service) UpdatePost(ctx context.Context, caller auth.Identity, id int64, in PostInput) error {
	if err := in.validate(); err != nil {
		return err
	}
	err := s.store.UpdatePost(ctx, id, caller.UserID, models.PostChanges{
		Title:    in.Title,
		Body:     in.Body,
		ImageURL: in.ImageURL,
	})
	return ownership(err)
}

// DeletePost removes a post owned by the caller.
func (s *Service) DeletePost(ctx context.Context, caller auth.Identity, id int64) error {
	return ownership(s.store.DeletePost(ctx, id, caller.UserID))
}

func ownership(err error) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, db.ErrNotOwner):
		return ErrForbidden
	default:
		return err
	}
}

func (in PostInput) validate() error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Body) == "" {
		return invalid("title and body are required")
	}
	return nil
}
