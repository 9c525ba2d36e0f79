// Package google turns Google sign-in results into provider assertions.
//
// Two entry points exist: the authorization-code redirect flow (AuthCodeURL + Exchange) and
// the ID-token credential posted by the browser sign-in button (VerifyIDToken). Both return
// an assertion only after Google itself has vouched for the identity.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"

	"auth_backend/internal/feature/auth/domain"
	"auth_backend/internal/feature/auth/domain/entity"
	httpclient "auth_backend/internal/platform/http"
)

const (
	defaultUserInfoURL  = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
	defaultTimeout      = 10 * time.Second

	// maxResponseBytes caps provider response bodies.
	maxResponseBytes = 1 << 20
)

var (
	// ErrNotConfigured is returned when no client id is set.
	ErrNotConfigured = errors.New("google sign-in is not configured")
	// ErrRejected means Google did not vouch for the presented code or credential.
	ErrRejected = errors.New("google rejected the credential")
	// ErrUnreachable means Google could not be reached or answered with a server error.
	ErrUnreachable = errors.New("google is unreachable")
)

// Config holds the OAuth client settings. The URL fields default to Google's public endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	Timeout      time.Duration

	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	TokenInfoURL string
}

// Provider talks to Google's OAuth endpoints.
type Provider struct {
	oauth        *oauth2.Config
	client       *http.Client
	userInfoURL  string
	tokenInfoURL string
}

// NewProvider creates a Provider from cfg.
func NewProvider(cfg Config) *Provider {
	endpoint := googleoauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	p := &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		client:       httpclient.NewHTTPClient(timeout),
		userInfoURL:  defaultUserInfoURL,
		tokenInfoURL: defaultTokenInfoURL,
	}
	if cfg.UserInfoURL != "" {
		p.userInfoURL = cfg.UserInfoURL
	}
	if cfg.TokenInfoURL != "" {
		p.tokenInfoURL = cfg.TokenInfoURL
	}
	return p
}

// Enabled reports whether a client id is configured.
func (p *Provider) Enabled() bool {
	return p.oauth.ClientID != ""
}

// AuthCodeURL returns the consent page URL carrying state.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "select_account"))
}

type userInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades an authorization code for a token and reads the user's profile.
func (p *Provider) Exchange(ctx context.Context, code string) (entity.ProviderAssertion, error) {
	a, err := p.exchange(ctx, code)
	return a, classify(err)
}

func (p *Provider) exchange(ctx context.Context, code string) (entity.ProviderAssertion, error) {
	if !p.Enabled() {
		return entity.ProviderAssertion{}, ErrNotConfigured
	}
	if strings.TrimSpace(code) == "" {
		return entity.ProviderAssertion{}, fmt.Errorf("%w: missing authorization code", ErrRejected)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil && re.Response.StatusCode < http.StatusInternalServerError {
			return entity.ProviderAssertion{}, fmt.Errorf("%w: token exchange: %v", ErrRejected, err)
		}
		return entity.ProviderAssertion{}, fmt.Errorf("%w: token exchange: %v", ErrUnreachable, err)
	}

	var info userInfo
	if err := p.getJSON(ctx, p.oauth.Client(ctx, tok), p.userInfoURL, nil, &info); err != nil {
		return entity.ProviderAssertion{}, fmt.Errorf("userinfo: %w", err)
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return entity.ProviderAssertion{}, fmt.Errorf("%w: email not verified", ErrRejected)
	}
	return entity.NewProviderAssertion(info.ID, info.Email, info.Name, info.Picture)
}

// tokenInfo is the tokeninfo response. Google encodes booleans as strings here.
type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// VerifyIDToken validates an ID token credential with Google's tokeninfo endpoint.
// The token must be issued for this client and carry a verified email.
func (p *Provider) VerifyIDToken(ctx context.Context, credential string) (entity.ProviderAssertion, error) {
	a, err := p.verifyIDToken(ctx, credential)
	return a, classify(err)
}

func (p *Provider) verifyIDToken(ctx context.Context, credential string) (entity.ProviderAssertion, error) {
	if !p.Enabled() {
		return entity.ProviderAssertion{}, ErrNotConfigured
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return entity.ProviderAssertion{}, domain.New(domain.KindValidation, "google credential is required")
	}

	q := url.Values{"id_token": {credential}}
	var info tokenInfo
	if err := p.getJSON(ctx, p.client, p.tokenInfoURL, q, &info); err != nil {
		return entity.ProviderAssertion{}, fmt.Errorf("tokeninfo: %w", err)
	}
	if info.Aud != p.oauth.ClientID {
		slog.Warn("google credential issued for another client", "aud", info.Aud)
		return entity.ProviderAssertion{}, fmt.Errorf("%w: audience mismatch", ErrRejected)
	}
	if info.EmailVerified != "true" {
		return entity.ProviderAssertion{}, fmt.Errorf("%w: email not verified", ErrRejected)
	}
	return entity.NewProviderAssertion(info.Sub, info.Email, info.Name, info.Picture)
}

// classify wraps provider failures in the auth error taxonomy. The sentinels stay reachable
// through errors.Is.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotConfigured):
		return domain.Wrap(domain.KindNotFound, "google sign-in is not enabled", err)
	case errors.Is(err, ErrRejected):
		return domain.Wrap(domain.KindUnauthorized, "google sign-in failed", err)
	case errors.Is(err, ErrUnreachable), errors.Is(err, context.DeadlineExceeded):
		return domain.Wrap(domain.KindUnavailable, "google sign-in is temporarily unavailable", err)
	}
	return err
}

func (p *Provider) getJSON(ctx context.Context, client *http.Client, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if query != nil {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRejected, err)
	}
	return nil
}
