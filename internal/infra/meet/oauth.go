package meet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

var ErrNoToken = fmt.Errorf("no cached Google token, run the auth command first")

// LoadOAuthConfig reads an installed-app client secret file.
func LoadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google credentials %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Google credentials %s: %w", credentialsFile, err)
	}
	return cfg, nil
}

// TokenFile caches an OAuth token as JSON.
type TokenFile struct {
	Path string
}

func (f TokenFile) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", f.Path, err)
	}
	return &tok, nil
}

func (f TokenFile) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// persistingSource writes every newly issued token back to the cache file.
type persistingSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	file   TokenFile
	last   string
	logger *logrus.Entry
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.file.Save(tok); err != nil {
			p.logger.WithError(err).Warn("Refreshed token could not be cached")
		} else {
			p.last = tok.AccessToken
		}
	}
	return tok, nil
}

// NewHTTPClient returns a client authorized with the cached token, refreshing
// and re-caching it as needed.
func NewHTTPClient(ctx context.Context, cfg *oauth2.Config, file TokenFile, logger *logrus.Entry) (*http.Client, error) {
	tok, err := file.Load()
	if err != nil {
		return nil, err
	}
	src := &persistingSource{
		base:   cfg.TokenSource(ctx, tok),
		file:   file,
		last:   tok.AccessToken,
		logger: logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Authorize runs the installed-app flow on a loopback redirect: it hands the
// consent URL to openURL, waits for Google to redirect back, exchanges the
// code and caches the token.
func Authorize(ctx context.Context, cfg *oauth2.Config, file TokenFile, openURL func(string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to open loopback listener: %w", err)
	}
	defer ln.Close()

	conf := *cfg
	conf.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	type result struct {
		code string
		err  error
	}
	// Only the first callback is used. Repeats, such as a reloaded redirect
	// page, must not block their handler.
	results := make(chan result, 1)
	deliver := func(res result) {
		select {
		case results <- res:
		default:
		}
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		case q.Get("error") != "":
			deliver(result{err: fmt.Errorf("authorization denied: %s", q.Get("error"))})
		case q.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		default:
			deliver(result{code: q.Get("code")})
		}
		fmt.Fprintln(w, "Авторизация завершена, окно можно закрыть.")
	})}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	openURL(conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier)))

	var res result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := file.Save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}
