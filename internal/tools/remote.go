package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/logging"
	"github.com/dwern/persona/internal/retry"
)

// Credentials is the ladder every remote tool resolves before calling its
// provider: a statically configured long-lived token wins, otherwise the
// refresh token is exchanged at the provider's OAuth token endpoint. With
// neither present the integration is unconfigured, which is not an error.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	TokenURL     string
}

// Configured reports whether any usable credential is present.
func (c Credentials) Configured() bool {
	return c.AccessToken != "" || c.RefreshToken != ""
}

// Bearer resolves a bearer token, exchanging the refresh token if needed.
// Tokens are resolved fresh per invocation; nothing is cached across requests.
func (c Credentials) Bearer(ctx context.Context) (string, error) {
	if c.AccessToken != "" {
		return c.AccessToken, nil
	}
	if c.RefreshToken == "" {
		return "", fault.New(fault.KindConfiguration, "no credential configured")
	}

	conf := &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: c.TokenURL},
	}
	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: c.RefreshToken}).Token()
	if err != nil {
		return "", fault.Wrap(fault.KindAuth, "refresh token exchange failed", err)
	}
	return tok.AccessToken, nil
}

// apiClient is the shared HTTP plumbing for remote tools: bearer auth, retry
// with backoff on transient failures, status-to-fault mapping.
type apiClient struct {
	http   *http.Client
	policy retry.Policy
	log    *logging.Logger
}

func newAPIClient(log *logging.Logger) *apiClient {
	return &apiClient{
		http:   &http.Client{Timeout: 30 * time.Second},
		policy: retry.ProviderPolicy(),
		log:    log,
	}
}

// getJSON fetches url with the bearer token, retrying transient failures.
func (a *apiClient) getJSON(ctx context.Context, url, bearer string) ([]byte, error) {
	return retry.Do(ctx, a.policy, a.log, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Accept", "application/json")

		resp, err := a.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fault.FromStatus(resp.StatusCode, truncate(string(body), 200))
		}
		return body, nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// unconfiguredMessage is the soft result for an integration with no credential.
func unconfiguredMessage(what string) string {
	return fmt.Sprintf("The %s integration is not configured, so no live data is available. Mention that this data source is currently offline.", what)
}
