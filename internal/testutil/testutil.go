package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/BorisDmv/multiblog-api/internal/auth"
	"github.com/BorisDmv/multiblog-api/internal/db"
)

// Secret signs every token minted by the helpers below.
const Secret = "test-secret"

// OpenStore opens a migrated SQLite store in a temp dir and closes it when
// the test ends.
func OpenStore(t *testing.T) *db.SQLiteStore {
	t.Helper()
	store, err := db.NewSQLiteStore(filepath.Join(t.TempDir(), "blog.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return store
}

// NewIssuer returns an issuer using Secret and a one hour lifetime.
func NewIssuer() *auth.Issuer {
	return auth.NewIssuer([]byte(Secret), time.Hour)
}

// Token returns a valid bearer token for the given user.
func Token(t *testing.T, userID int64, username string) string {
	t.Helper()
	tok, _, err := NewIssuer().Issue(auth.Identity{UserID: userID, Username: username})
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}
