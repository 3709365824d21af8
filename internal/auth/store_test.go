package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkoenig/gmailcli/internal/config"
)

func testStore(t *testing.T) (*FileStore, *config.Paths) {
	t.Helper()
	root := t.TempDir()
	paths := config.NewPaths(filepath.Join(root, "config"), filepath.Join(root, "cache"))
	require.NoError(t, os.MkdirAll(paths.TokensDir(), 0o700))
	return NewFileStore(paths), paths
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, paths := testStore(t)

	in := &Record{
		AccessToken:  "T1",
		RefreshToken: "R1",
		Expiry:       time.Now().Add(time.Hour).Unix(),
		Scope:        "gmail.modify gmail.send",
		TokenType:    "Bearer",
		Email:        "dev@example.com",
	}
	require.NoError(t, store.Save("default", in))

	info, err := os.Stat(paths.TokenFile("default"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err := store.Load("default")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFileStoreLoadAbsent(t *testing.T) {
	store, _ := testStore(t)

	rec, err := store.Load("missing")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFileStoreSaveLeavesNoTempFiles(t *testing.T) {
	store, paths := testStore(t)

	require.NoError(t, store.Save("default", &Record{AccessToken: "T1"}))

	entries, err := os.ReadDir(paths.TokensDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "default.json", entries[0].Name())
	assert.Equal(t, ".json", filepath.Ext(entries[0].Name()))
}

func TestFileStoreClear(t *testing.T) {
	store, paths := testStore(t)

	require.NoError(t, store.Save("default", &Record{AccessToken: "T1"}))
	require.NoError(t, store.Clear("default"))

	_, err := os.Stat(paths.TokenFile("default"))
	assert.True(t, os.IsNotExist(err))

	// Clearing again is not an error.
	require.NoError(t, store.Clear("default"))
}

func TestRecordValid(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		rec  *Record
		want bool
	}{
		{name: "nil record", rec: nil, want: false},
		{name: "empty access token", rec: &Record{Expiry: now.Add(time.Hour).Unix()}, want: false},
		{name: "no expiry never expires", rec: &Record{AccessToken: "T1"}, want: true},
		{name: "well before expiry", rec: &Record{AccessToken: "T1", Expiry: now.Add(time.Hour).Unix()}, want: true},
		{name: "inside the skew window", rec: &Record{AccessToken: "T1", Expiry: now.Add(30 * time.Second).Unix()}, want: false},
		{name: "already expired", rec: &Record{AccessToken: "T1", Expiry: now.Add(-time.Minute).Unix()}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rec.Valid(now); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}
