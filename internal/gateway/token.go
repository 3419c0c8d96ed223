package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// usado quando o gateway não informa expires_in
	DefaultTokenLifetime = 20 * time.Minute
	// margem descontada do prazo informado pelo gateway
	TokenExpiryMargin = 60 * time.Second
)

type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	InvoiceCode  string
	ReceiverCode string
	Timeout      time.Duration
}

func (c Config) hasCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// TokenProvider mantém um único token de acesso em cache. Vários requests
// que descobrem o token vencido ao mesmo tempo disparam uma só autenticação.
type TokenProvider struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
	now  func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	flight singleflight.Group
}

func NewTokenProvider(cfg Config, httpClient *http.Client, log *zap.Logger) *TokenProvider {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &TokenProvider{
		cfg:  cfg,
		http: httpClient,
		log:  log,
		now:  time.Now,
	}
}

func (p *TokenProvider) cached() (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.token != "" && p.now().Before(p.expiresAt) {
		return p.token, true
	}
	return "", false
}

func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if !p.cfg.hasCredentials() {
		return "", &Error{Op: ErrCredentialsMissing}
	}

	if tok, ok := p.cached(); ok {
		return tok, nil
	}

	v, err, _ := p.flight.Do("token", func() (any, error) {
		if tok, ok := p.cached(); ok {
			return tok, nil
		}
		// o refresh não pode morrer junto com o request que o iniciou
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout())
		defer cancel()
		return p.refresh(fctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate descarta o token atual (ex.: gateway respondeu 401).
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.token = ""
	p.expiresAt = time.Time{}
	p.mu.Unlock()
}

func (p *TokenProvider) timeout() time.Duration {
	if p.cfg.Timeout > 0 {
		return p.cfg.Timeout
	}
	return 15 * time.Second
}

func (p *TokenProvider) refresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v2/auth/token", nil)
	if err != nil {
		return "", &Error{Op: ErrAuthFailed, Err: err}
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)

	resp, err := p.http.Do(req)
	if err != nil {
		return "", &Error{Op: ErrAuthFailed, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Error{Op: ErrAuthFailed, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		p.log.Warn("gateway auth rejected", zap.Int("status", resp.StatusCode))
		return "", &Error{Op: ErrAuthFailed, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", &Error{Op: ErrAuthFailed, Err: fmt.Errorf("decode token: %w", err)}
	}
	if tr.AccessToken == "" {
		return "", &Error{Op: ErrAuthFailed, StatusCode: resp.StatusCode, Body: "empty access_token"}
	}

	now := p.now()
	expiresAt := tokenExpiry(now, tr.ExpiresIn)

	p.mu.Lock()
	p.token = tr.AccessToken
	p.expiresAt = expiresAt
	p.mu.Unlock()

	p.log.Info("gateway token refreshed", zap.Time("expires_at", expiresAt))
	return tr.AccessToken, nil
}

// tokenExpiry interpreta expires_in como segundos de vida ou, quando grande
// o bastante para ser um epoch, como instante absoluto.
func tokenExpiry(now time.Time, expiresIn int64) time.Time {
	if expiresIn <= 0 {
		return now.Add(DefaultTokenLifetime)
	}

	var lifetime time.Duration
	if expiresIn > 1_000_000_000 {
		lifetime = time.Unix(expiresIn, 0).Sub(now)
	} else {
		lifetime = time.Duration(expiresIn) * time.Second
	}

	margin := TokenExpiryMargin
	if lifetime/10 < margin {
		margin = lifetime / 10
	}
	lifetime -= margin
	if lifetime <= 0 {
		return now
	}
	return now.Add(lifetime)
}
