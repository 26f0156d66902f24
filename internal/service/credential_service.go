package service

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/calendar/v3"

	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

type tokenStore interface {
	Load(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, token *oauth2.Token) error
}

// Authorizer obtains a brand-new token through user consent.
type Authorizer interface {
	Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error)
}

// LoadOAuthConfig reads a Google client-secret file with the read-only calendar scope.
func LoadOAuthConfig(path string) (*oauth2.Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client secret %s: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(raw, calendar.CalendarReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret %s: %w", path, err)
	}
	return cfg, nil
}

// CredentialService owns the calendar credential for the process lifetime.
// The first caller acquires it; concurrent callers wait on the same acquisition.
type CredentialService struct {
	oauth      *oauth2.Config
	store      tokenStore
	authorizer Authorizer
	metrics    *MetricsService
	logger     *zap.Logger

	mu     sync.RWMutex
	source oauth2.TokenSource
	group  singleflight.Group
}

// NewCredentialService constructs the service. A nil authorizer disables interactive consent.
func NewCredentialService(oauthCfg *oauth2.Config, store tokenStore, authorizer Authorizer, metrics *MetricsService, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{
		oauth:      oauthCfg,
		store:      store,
		authorizer: authorizer,
		metrics:    metrics,
		logger:     logger,
	}
}

// TokenSource returns the cached token source, acquiring it on first use.
func (s *CredentialService) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if src := s.cached(); src != nil {
		return src, nil
	}

	v, err, _ := s.group.Do("calendar", func() (interface{}, error) {
		if src := s.cached(); src != nil {
			return src, nil
		}
		// Shared by every waiter, so one caller going away must not abort it.
		src, err := s.acquire(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.source = src
		s.mu.Unlock()
		return src, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(oauth2.TokenSource), nil
}

func (s *CredentialService) cached() oauth2.TokenSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

func (s *CredentialService) acquire(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := s.store.Load(ctx)
	if err != nil && !appErrors.Is(err, appErrors.ErrTokenNotFound) {
		s.metrics.RecordCredential("load", OutcomeFailure)
		return nil, authFailure(err, "load persisted calendar credential")
	}

	switch {
	case token != nil && token.Valid():
		s.metrics.RecordCredential("load", OutcomeSuccess)
		s.logger.Info("using persisted calendar credential")
	case token != nil && token.RefreshToken != "":
		refreshed, rerr := s.oauth.TokenSource(ctx, token).Token()
		if rerr != nil {
			s.metrics.RecordCredential("refresh", OutcomeFailure)
			s.logger.Warn("calendar credential refresh failed, falling back to consent", zap.Error(rerr))
			if token, err = s.authorize(ctx); err != nil {
				return nil, err
			}
			break
		}
		s.metrics.RecordCredential("refresh", OutcomeSuccess)
		s.logger.Info("calendar credential refreshed")
		token = refreshed
		if err := s.persist(ctx, token); err != nil {
			return nil, err
		}
	default:
		if token, err = s.authorize(ctx); err != nil {
			return nil, err
		}
	}

	return &persistingTokenSource{
		base:   s.oauth.TokenSource(ctx, token),
		store:  s.store,
		logger: s.logger,
		last:   token.AccessToken,
	}, nil
}

func (s *CredentialService) authorize(ctx context.Context) (*oauth2.Token, error) {
	if s.authorizer == nil {
		s.metrics.RecordCredential("consent", OutcomeSkipped)
		return nil, appErrors.Clone(appErrors.ErrAuthentication, "calendar credential requires interactive consent, which is disabled")
	}
	s.logger.Warn("no usable calendar credential, starting interactive authorization")
	token, err := s.authorizer.Authorize(ctx, s.oauth)
	if err != nil {
		s.metrics.RecordCredential("consent", OutcomeFailure)
		return nil, authFailure(err, "interactive calendar authorization failed")
	}
	s.metrics.RecordCredential("consent", OutcomeSuccess)
	if err := s.persist(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

func (s *CredentialService) persist(ctx context.Context, token *oauth2.Token) error {
	if err := s.store.Save(ctx, token); err != nil {
		return authFailure(err, "persist calendar credential")
	}
	return nil
}

func authFailure(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrAuthentication.Code, appErrors.ErrAuthentication.Status, message)
}

// persistingTokenSource saves every token the underlying source rotates in.
type persistingTokenSource struct {
	base   oauth2.TokenSource
	store  tokenStore
	logger *zap.Logger

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.store.Save(context.Background(), token); err != nil {
			p.logger.Warn("failed to persist refreshed calendar credential", zap.Error(err))
		} else {
			p.last = token.AccessToken
			p.logger.Info("refreshed calendar credential persisted")
		}
	}
	return token, nil
}
