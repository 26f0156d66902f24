package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

// FileTokenRepository persists the calendar credential as JSON on disk.
type FileTokenRepository struct {
	path   string
	logger *zap.Logger
}

// NewFileTokenRepository constructs a file-backed token store.
func NewFileTokenRepository(path string, logger *zap.Logger) *FileTokenRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileTokenRepository{path: path, logger: logger}
}

// Load reads the stored token. A missing file yields ErrTokenNotFound.
func (r *FileTokenRepository) Load(ctx context.Context) (*oauth2.Token, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("read token file %s: %w", r.path, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", r.path, err)
	}
	return &token, nil
}

// Save writes the token atomically with owner-only permissions.
func (r *FileTokenRepository) Save(ctx context.Context, token *oauth2.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace token file %s: %w", r.path, err)
	}

	r.logger.Debug("calendar token persisted", zap.String("path", r.path))
	return nil
}

// RedisTokenRepository keeps the credential under a single Redis key.
type RedisTokenRepository struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisTokenRepository constructs a Redis-backed token store.
func NewRedisTokenRepository(client *redis.Client, key string, logger *zap.Logger) *RedisTokenRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisTokenRepository{client: client, key: key, logger: logger}
}

// Load fetches the stored token. A missing key yields ErrTokenNotFound.
func (r *RedisTokenRepository) Load(ctx context.Context) (*oauth2.Token, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrTokenNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", r.key, err)
	}
	return &token, nil
}

// Save stores the token without expiry; the refresh token outlives the access token.
func (r *RedisTokenRepository) Save(ctx context.Context, token *oauth2.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	r.logger.Debug("calendar token persisted", zap.String("key", r.key))
	return nil
}
