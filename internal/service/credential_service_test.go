package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	appErrors "github.com/noah-isme/shift-bots/pkg/errors"
)

type memoryTokenStore struct {
	mu      sync.Mutex
	token   *oauth2.Token
	loadErr error
	loads   int
	saves   []*oauth2.Token
}

func (s *memoryTokenStore) Load(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.token == nil {
		return nil, appErrors.ErrTokenNotFound
	}
	copied := *s.token
	return &copied, nil
}

func (s *memoryTokenStore) Save(ctx context.Context, token *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *token
	s.token = &copied
	s.saves = append(s.saves, &copied)
	return nil
}

func (s *memoryTokenStore) stats() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads, len(s.saves)
}

type countingAuthorizer struct {
	calls int32
	delay time.Duration
	token *oauth2.Token
	err   error
}

func (a *countingAuthorizer) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	atomic.AddInt32(&a.calls, 1)
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.token, nil
}

func validToken(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
}

func tokenEndpoint(t *testing.T, calls *int32, status int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"refreshed","token_type":"Bearer","refresh_token":"refresh","expires_in":3600}`))
	}))
}

func TestCredentialServiceUsesPersistedValidToken(t *testing.T) {
	store := &memoryTokenStore{token: validToken("stored")}
	auth := &countingAuthorizer{}
	svc := NewCredentialService(&oauth2.Config{}, store, auth, nil, nil)

	ts, err := svc.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "stored", tok.AccessToken)

	loads, saves := store.stats()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 0, saves)
	assert.Zero(t, atomic.LoadInt32(&auth.calls))
}

func TestCredentialServiceCachedTokenNeedsNoFurtherAuthentication(t *testing.T) {
	store := &memoryTokenStore{token: validToken("stored")}
	auth := &countingAuthorizer{}
	svc := NewCredentialService(&oauth2.Config{}, store, auth, nil, nil)

	first, err := svc.TokenSource(context.Background())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.TokenSource(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, again)
	}

	loads, saves := store.stats()
	assert.Equal(t, 1, loads)
	assert.Equal(t, 0, saves)
	assert.Zero(t, atomic.LoadInt32(&auth.calls))
}

func TestCredentialServiceRefreshesExpiredToken(t *testing.T) {
	var calls int32
	srv := tokenEndpoint(t, &calls, http.StatusOK)
	defer srv.Close()

	expired := &oauth2.Token{AccessToken: "old", RefreshToken: "refresh", Expiry: time.Now().Add(-time.Hour)}
	store := &memoryTokenStore{token: expired}
	auth := &countingAuthorizer{}
	cfg := &oauth2.Config{ClientID: "id", ClientSecret: "secret", Endpoint: oauth2.Endpoint{TokenURL: srv.URL}}
	svc := NewCredentialService(cfg, store, auth, NewMetricsService(), nil)

	ts, err := svc.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)

	assert.Equal(t, "refreshed", tok.AccessToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Zero(t, atomic.LoadInt32(&auth.calls))
	require.NotNil(t, store.token)
	assert.Equal(t, "refreshed", store.token.AccessToken)
}

func TestCredentialServiceFallsBackToConsentWhenRefreshRejected(t *testing.T) {
	var calls int32
	srv := tokenEndpoint(t, &calls, http.StatusBadRequest)
	defer srv.Close()

	store := &memoryTokenStore{token: &oauth2.Token{AccessToken: "old", RefreshToken: "revoked", Expiry: time.Now().Add(-time.Hour)}}
	auth := &countingAuthorizer{token: validToken("consented")}
	cfg := &oauth2.Config{Endpoint: oauth2.Endpoint{TokenURL: srv.URL}}
	svc := NewCredentialService(cfg, store, auth, nil, nil)

	ts, err := svc.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "consented", tok.AccessToken)
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.calls))
	assert.Equal(t, "consented", store.token.AccessToken)
}

func TestCredentialServiceConsentWhenNoToken(t *testing.T) {
	store := &memoryTokenStore{}
	auth := &countingAuthorizer{token: validToken("consented")}
	svc := NewCredentialService(&oauth2.Config{}, store, auth, nil, nil)

	_, err := svc.TokenSource(context.Background())
	require.NoError(t, err)

	_, saves := store.stats()
	assert.Equal(t, 1, saves)
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.calls))
}

func TestCredentialServiceConsentWhenExpiredWithoutRefreshToken(t *testing.T) {
	store := &memoryTokenStore{token: &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Hour)}}
	auth := &countingAuthorizer{token: validToken("consented")}
	svc := NewCredentialService(&oauth2.Config{}, store, auth, nil, nil)

	_, err := svc.TokenSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.calls))
}

func TestCredentialServiceNonInteractiveFailsWithAuthenticationError(t *testing.T) {
	svc := NewCredentialService(&oauth2.Config{}, &memoryTokenStore{}, nil, nil, nil)

	_, err := svc.TokenSource(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAuthentication))
	assert.Equal(t, http.StatusUnauthorized, appErrors.FromError(err).Status)
}

func TestCredentialServiceFailedAcquisitionIsNotCached(t *testing.T) {
	store := &memoryTokenStore{}
	auth := &countingAuthorizer{err: errors.New("user closed browser")}
	svc := NewCredentialService(&oauth2.Config{}, store, auth, nil, nil)

	_, err := svc.TokenSource(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAuthentication))

	auth.err = nil
	auth.token = validToken("second-try")
	_, err = svc.TokenSource(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&auth.calls))
}

func TestCredentialServiceStoreErrorIsAuthenticationFailure(t *testing.T) {
	store := &memoryTokenStore{loadErr: errors.New("permission denied")}
	svc := NewCredentialService(&oauth2.Config{}, store, &countingAuthorizer{}, nil, nil)

	_, err := svc.TokenSource(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAuthentication))
}

func TestCredentialServiceSerializesConcurrentAcquisition(t *testing.T) {
	store := &memoryTokenStore{}
	auth := &countingAuthorizer{token: validToken("consented"), delay: 50 * time.Millisecond}
	svc := NewCredentialService(&oauth2.Config{}, store, auth, nil, nil)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TokenSource(context.Background())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&auth.calls))
}

func TestPersistingTokenSourceSavesRotatedTokens(t *testing.T) {
	store := &memoryTokenStore{}
	rotating := &sequenceTokenSource{tokens: []*oauth2.Token{validToken("a"), validToken("a"), validToken("b")}}
	src := &persistingTokenSource{base: rotating, store: store, logger: zap.NewNop(), last: "a"}

	for i := 0; i < 3; i++ {
		_, err := src.Token()
		require.NoError(t, err)
	}

	_, saves := store.stats()
	assert.Equal(t, 1, saves)
	assert.Equal(t, "b", store.token.AccessToken)
}

type sequenceTokenSource struct {
	tokens []*oauth2.Token
	i      int
}

func (s *sequenceTokenSource) Token() (*oauth2.Token, error) {
	tok := s.tokens[s.i]
	if s.i < len(s.tokens)-1 {
		s.i++
	}
	return tok, nil
}
