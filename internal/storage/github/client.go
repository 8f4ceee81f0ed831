// Package github persists the vault snapshot as a file in a GitHub
// repository through the contents API. The file's blob SHA acts as the
// revision: saves pass the SHA captured on load, so a concurrent update on
// the remote surfaces as a conflict instead of a silent overwrite.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/passvault-app/passvault/internal/common"
	"github.com/sethvargo/go-retry"
)

const (
	defaultBaseURL = "https://api.github.com"
	acceptHeader   = "application/vnd.github.v3+json"
	userAgent      = "passvault"

	requestTimeout = 15 * time.Second
	retryBase      = 250 * time.Millisecond
	maxRetries     = 3
)

// Client is a minimal GitHub contents-API client scoped to one repository
// and branch.
type Client struct {
	baseURL string
	owner   string
	repo    string
	branch  string
	auth    authProvider
	http    *http.Client
}

// NewClient returns a client authenticating with a personal access token.
func NewClient(owner, repo, branch, token string) *Client {
	return newClient(owner, repo, branch, tokenAuth(token))
}

// NewAppClient returns a client authenticating as a GitHub App
// installation. privateKeyPEM is the app's RSA signing key.
func NewAppClient(owner, repo, branch, appID string, installationID int64, privateKeyPEM []byte) (*Client, error) {
	auth, err := newAppAuth(defaultBaseURL, appID, installationID, privateKeyPEM)
	if err != nil {
		return nil, err
	}
	return newClient(owner, repo, branch, auth), nil
}

func newClient(owner, repo, branch string, auth authProvider) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		owner:   owner,
		repo:    repo,
		branch:  branch,
		auth:    auth,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// SetBaseURL points the client at a different API root (GitHub Enterprise,
// test servers).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
	if a, ok := c.auth.(*appAuth); ok {
		a.baseURL = c.baseURL
	}
}

// fileContent mirrors the contents-API response for a single file.
type fileContent struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Size     int    `json:"size"`
	Name     string `json:"name"`
	Path     string `json:"path"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch"`
}

type putResponse struct {
	Content fileContent `json:"content"`
}

func (c *Client) contentsURL(path string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, path)
}

// getFile fetches the file at path on the configured branch.
// A missing file maps to common.ErrNotFound.
func (c *Client) getFile(ctx context.Context, path string) (*fileContent, error) {
	var fc fileContent
	err := c.doJSON(ctx, http.MethodGet, c.contentsURL(path)+"?ref="+c.branch, nil, &fc)
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

// putFile creates or updates the file and returns the new blob SHA. sha is
// the revision expected on the remote; empty means "create".
func (c *Client) putFile(ctx context.Context, path string, content []byte, message, sha string) (string, error) {
	body := putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     sha,
		Branch:  c.branch,
	}
	var resp putResponse
	if err := c.doJSON(ctx, http.MethodPut, c.contentsURL(path), body, &resp); err != nil {
		return "", err
	}
	return resp.Content.SHA, nil
}

// pingRepo checks the repository is reachable with the configured
// credentials.
func (c *Client) pingRepo(ctx context.Context) error {
	url := fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo)
	return c.doJSON(ctx, http.MethodGet, url, nil, nil)
}

// doJSON performs one API call with bounded exponential retries on
// transport errors and 5xx responses. Terminal statuses are mapped onto the
// shared error taxonomy.
func (c *Client) doJSON(ctx context.Context, method, url string, in, out any) error {
	var reqBody []byte
	if in != nil {
		var err error
		reqBody, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	backoff := retry.WithMaxRetries(maxRetries, retry.NewExponential(retryBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var body io.Reader
		if reqBody != nil {
			body = bytes.NewReader(reqBody)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		header, err := c.auth.header(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", header)
		req.Header.Set("Accept", acceptHeader)
		req.Header.Set("User-Agent", userAgent)
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", common.ErrStorageUnavailable, err))
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode response: %v", common.ErrStorageUnavailable, err)
		}
		return nil
	})
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, apiError(resp))
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%w: %s", common.ErrConflict, apiError(resp))
	// the contents API reports a stale SHA as 422
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", common.ErrConflict, apiError(resp))
	case resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("%w: %s", common.ErrStorageUnavailable, apiError(resp)))
	default:
		return fmt.Errorf("%w: %s", common.ErrStorageUnavailable, apiError(resp))
	}
}

func apiError(resp *http.Response) string {
	text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Sprintf("github api %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
}

// decodeContent reverses the contents-API base64 encoding, which inserts
// newlines every 60 characters.
func decodeContent(fc *fileContent) ([]byte, error) {
	if fc.Encoding != "base64" {
		return nil, fmt.Errorf("%w: unsupported encoding %q", common.ErrStorageUnavailable, fc.Encoding)
	}
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(fc.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("%w: decode content: %v", common.ErrStorageUnavailable, err)
	}
	return raw, nil
}
