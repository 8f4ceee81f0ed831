package github

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/passvault-app/passvault/internal/common"
)

// authProvider supplies the Authorization header value for API calls.
type authProvider interface {
	header(ctx context.Context) (string, error)
}

// tokenAuth is a static personal access token.
type tokenAuth string

func (t tokenAuth) header(context.Context) (string, error) {
	return "Bearer " + string(t), nil
}

// appAuth authenticates as a GitHub App installation: a short-lived RS256
// JWT signed with the app key is exchanged for an installation token, which
// is cached until shortly before it expires.
type appAuth struct {
	baseURL        string
	appID          string
	installationID int64
	key            *rsa.PrivateKey
	http           *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

func newAppAuth(baseURL, appID string, installationID int64, privateKeyPEM []byte) (*appAuth, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: parse app private key: %v", common.ErrValidation, err)
	}
	return &appAuth{
		baseURL:        baseURL,
		appID:          appID,
		installationID: installationID,
		key:            key,
		http:           &http.Client{Timeout: requestTimeout},
	}, nil
}

func (a *appAuth) header(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token != "" && time.Now().Before(a.expires) {
		return "Bearer " + a.token, nil
	}
	if err := a.refresh(ctx); err != nil {
		return "", err
	}
	return "Bearer " + a.token, nil
}

// appJWT signs the app-level JWT. iat is backdated to tolerate clock skew.
func (a *appAuth) appJWT() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-30 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
}

func (a *appAuth) refresh(ctx context.Context) error {
	signed, err := a.appJWT()
	if err != nil {
		return fmt.Errorf("sign app jwt: %w", err)
	}

	url := fmt.Sprintf("%s/app/installations/%d/access_tokens", a.baseURL, a.installationID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("User-Agent", userAgent)

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: installation token: %v", common.ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%w: installation token: %s", common.ErrStorageUnavailable, apiError(resp))
	}

	var body struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: decode installation token: %v", common.ErrStorageUnavailable, err)
	}
	if strings.TrimSpace(body.Token) == "" {
		return fmt.Errorf("%w: empty installation token", common.ErrStorageUnavailable)
	}

	a.token = body.Token
	// renew a minute early so in-flight requests never carry a dead token
	a.expires = body.ExpiresAt.Add(-time.Minute)
	return nil
}
