package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

func testToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  "access-1",
		TokenType:    "Bearer",
		RefreshToken: "refresh-1",
		Expiry:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFileTokenRepositoryMissingFile(t *testing.T) {
	repo := NewFileTokenRepository(filepath.Join(t.TempDir(), "token.json"), nil)

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenNotFound))
}

func TestFileTokenRepositoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	repo := NewFileTokenRepository(path, nil)

	require.NoError(t, repo.Save(context.Background(), testToken()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", loaded.AccessToken)
	assert.Equal(t, "refresh-1", loaded.RefreshToken)
	assert.True(t, loaded.Expiry.Equal(testToken().Expiry))
}

func TestFileTokenRepositoryCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := NewFileTokenRepository(path, nil).Load(context.Background())
	require.Error(t, err)
	assert.False(t, appErrors.Is(err, appErrors.ErrTokenNotFound))
}

func TestRedisTokenRepositoryLoadMissing(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisTokenRepository(client, "calendar-bot:token", nil)

	mock.ExpectGet("calendar-bot:token").RedisNil()

	_, err := repo.Load(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrTokenNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisTokenRepositorySaveAndLoad(t *testing.T) {
	client, mock := redismock.NewClientMock()
	repo := NewRedisTokenRepository(client, "calendar-bot:token", nil)

	payload, err := json.Marshal(testToken())
	require.NoError(t, err)

	mock.ExpectSet("calendar-bot:token", payload, 0).SetVal("OK")
	require.NoError(t, repo.Save(context.Background(), testToken()))

	mock.ExpectGet("calendar-bot:token").SetVal(string(payload))
	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", loaded.AccessToken)
	require.NoError(t, mock.ExpectationsWereMet())
}
