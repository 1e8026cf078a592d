package blog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/BorisDmv/multiblog-api/internal/auth"
	"github.com/BorisDmv/multiblog-api/internal/db"
	"github.com/BorisDmv/multiblog-api/internal/models"
	"github.com/BorisDmv/multiblog-api/internal/testutil"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(testutil.OpenStore(t), testutil.NewIssuer(), bcrypt.MinCost)
}

func register(t *testing.T, s *Service, username string) auth.Identity {
	t.Helper()
	id, err := s.Register(context.Background(), username, "pw-"+username)
	require.NoError(t, err)
	return auth.Identity{UserID: id, Username: username}
}

func TestRegisterThenLogin(t *testing.T) {
	s := newService(t)
	ctx := context.Background()

	id, err := s.Register(ctx, "alice", "s3cret!")
	require.NoError(t, err)
	assert.NotZero(t, id)

	sess, err := s.Login(ctx, "alice", "s3cret!")
	require.NoError(t, err)
	assert.Equal(t, id, sess.UserID)
	assert.Equal(t, "alice", sess.Username)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	decoded, err := testutil.NewIssuer().Verify(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.Identity{UserID: id, Username: "alice"}, decoded)
}

func TestRegister_StoresDigestNotPlaintext(t *testing.T) {
	store := testutil.OpenStore(t)
	s := NewService(store, testutil.NewIssuer(), bcrypt.MinCost)
	_, err := s.Register(context.Background(), "alice", "plain-pw")
	require.NoError(t, err)

	u, err := store.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEqual(t, "plain-pw", u.PasswordHash)
	assert.True(t, auth.CheckPassword("plain-pw", u.PasswordHash))
}

func TestRegister_DuplicateUsernameRegardlessOfPassword(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	_, err := s.Register(ctx, "alice", "one")
	require.NoError(t, err)

	for _, pw := range []string{"one", "two", "a much longer password"} {
		_, err := s.Register(ctx, "alice", pw)
		assert.ErrorIs(t, err, ErrDuplicateUsername, pw)
	}
}

func TestRegister_Validation(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	cases := map[string][2]string{
		"empty username":    {"", "pw"},
		"blank username":    {"   ", "pw"},
		"empty password":    {"alice", ""},
		"password too long": {"alice", strings.Repeat("p", 73)},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := s.Register(ctx, c[0], c[1])
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestLogin_EnumerationResistance(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	register(t, s, "alice")

	_, wrongPw := s.Login(ctx, "alice", "nope")
	_, noUser := s.Login(ctx, "mallory", "nope")

	assert.ErrorIs(t, wrongPw, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPw.Error(), noUser.Error())
}

func TestLogin_UnknownUserComparesAtConfiguredCost(t *testing.T) {
	const cost = bcrypt.MinCost + 1
	store := testutil.OpenStore(t)
	s := NewService(store, testutil.NewIssuer(), cost)
	ctx := context.Background()
	register(t, s, "alice")

	_, err := s.Login(ctx, "mallory", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	alice, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	realCost, err := bcrypt.Cost([]byte(alice.PasswordHash))
	require.NoError(t, err)
	dummyCost, err := bcrypt.Cost([]byte(s.unknownUserHash()))
	require.NoError(t, err)

	assert.Equal(t, cost, realCost)
	assert.Equal(t, realCost, dummyCost, "unknown-user and wrong-password paths must hash at the same cost")
}

func TestLogin_Validation(t *testing.T) {
	s := newService(t)
	_, err := s.Login(context.Background(), "", "x")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPosts_CreateGetRoundTrip(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")

	id, err := s.CreatePost(ctx, alice, PostInput{Title: "T", Body: "B"})
	require.NoError(t, err)

	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "T", p.Title)
	assert.Equal(t, "B", p.Body)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, alice.UserID, p.UserID)
	assert.Nil(t, p.ImageURL)

	_, err = s.GetPost(ctx, id+1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPosts_CreateRequiresTitleAndBody(t *testing.T) {
	s := newService(t)
	alice := register(t, s, "alice")
	for _, in := range []PostInput{{Body: "B"}, {Title: "T"}, {Title: " ", Body: "B"}} {
		_, err := s.CreatePost(context.Background(), alice, in)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)
	}
}

func TestPosts_OwnershipOnUpdate(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	id, err := s.CreatePost(ctx, alice, PostInput{Title: "T", Body: "B"})
	require.NoError(t, err)

	err = s.UpdatePost(ctx, bob, id, PostInput{Title: "X", Body: "Y"})
	assert.ErrorIs(t, err, ErrForbidden)

	err = s.UpdatePost(ctx, alice, id, PostInput{Title: "T2", Body: "B2"})
	require.NoError(t, err)
	p, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "T2", p.Title)
	assert.Equal(t, "alice", p.Username, "owner never changes")

	err = s.UpdatePost(ctx, alice, id+99, PostInput{Title: "T", Body: "B"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdatePost(ctx, alice, id, PostInput{Title: "", Body: "B"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPosts_OwnershipOnDelete(t *testing.T) {
	s := newService(t)
	ctx := context.Background()
	alice := register(t, s, "alice")
	bob := register(t, s, "bob")

	id, err := s.CreatePost(ctx, alice, PostInput{Title: "T", Body: "B"})
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeletePost(ctx, bob, id), ErrForbidden)
	assert.ErrorIs(t, s.DeletePost(ctx, alice, id+99), ErrNotFound, "missing post is NotFound, not Forbidden")
	require.NoError(t, s.DeletePost(ctx, alice, id))

	_, err = s.GetPost(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

// failingStore fails every call with a storage error.
type failingStore struct {
	db.Store
	err error
}

func (f failingStore) CreateUser(context.Context, string, string) (*models.User, error) {
	return nil, f.err
}

func (f failingStore) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, f.err
}

func (f failingStore) DeletePost(context.Context, int64, int64) error {
	return f.err
}

func TestStorageFailuresAreNotTaxonomyErrors(t *testing.T) {
	boom := errors.New("connection refused")
	s := NewService(failingStore{err: boom}, testutil.NewIssuer(), bcrypt.MinCost)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrDuplicateUsername)

	_, err = s.Login(ctx, "alice", "pw")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)

	err = s.DeletePost(ctx, auth.Identity{UserID: 1, Username: "alice"}, 1)
	assert.ErrorIs(t, err, boom)
}
