package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// LoopbackAuthorizer runs the installed-app consent flow with a redirect to
// a throwaway listener on 127.0.0.1.
type LoopbackAuthorizer struct {
	timeout time.Duration
	logger  *zap.Logger
	prompt  func(authURL string)
}

// NewLoopbackAuthorizer logs the consent URL and waits up to timeout for the redirect.
func NewLoopbackAuthorizer(timeout time.Duration, logger *zap.Logger) *LoopbackAuthorizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	a := &LoopbackAuthorizer{timeout: timeout, logger: logger}
	a.prompt = func(authURL string) {
		a.logger.Warn("open this URL in a browser to authorize calendar access", zap.String("url", authURL))
	}
	return a
}

type callbackResult struct {
	code string
	err  error
}

// Authorize blocks until the browser redirect arrives, then exchanges the code.
func (a *LoopbackAuthorizer) Authorize(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}

	flow := *cfg
	flow.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := uuid.NewString()

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			}
			res := callbackResult{code: q.Get("code")}
			switch {
			case q.Get("error") != "":
				res.err = fmt.Errorf("consent denied: %s", q.Get("error"))
				http.Error(w, "Authorization was denied.", http.StatusForbidden)
			case res.code == "":
				res.err = errors.New("redirect carried no authorization code")
				http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			default:
				_, _ = fmt.Fprintln(w, "Calendar access authorized. You can close this window.")
			}
			select {
			case results <- res:
			default:
			}
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("oauth redirect listener stopped", zap.Error(err))
		}
	}()
	defer srv.Close() //nolint:errcheck

	a.prompt(flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	waitCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	select {
	case <-waitCtx.Done():
		return nil, fmt.Errorf("waiting for oauth redirect: %w", waitCtx.Err())
	case res := <-results:
		if res.err != nil {
			return nil, res.err
		}
		token, err := flow.Exchange(waitCtx, res.code)
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return token, nil
	}
}
