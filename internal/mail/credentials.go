package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// ErrCredentials means the Gmail refresh token is missing, expired or
// revoked. Only an operator can fix it by running oauth-init again.
var ErrCredentials = errors.New("gmail credentials unavailable")

// CredentialProvider turns a stored refresh token into access tokens.
type CredentialProvider struct {
	config       *oauth2.Config
	refreshToken string
}

func NewCredentialProvider(clientID, clientSecret, refreshToken string) *CredentialProvider {
	return &CredentialProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{gmail.GmailSendScope},
		},
		refreshToken: strings.TrimSpace(refreshToken),
	}
}

// TokenSource returns a source that refreshes access tokens on demand.
func (p *CredentialProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if p.refreshToken == "" || p.config.ClientID == "" || p.config.ClientSecret == "" {
		return nil, fmt.Errorf("%w: client id, client secret and refresh token are required", ErrCredentials)
	}
	return p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken}), nil
}

// Token fetches a valid access token, refreshing it if needed.
func (p *CredentialProvider) Token(ctx context.Context) (*oauth2.Token, error) {
	ts, err := p.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, credentialError(ctx, err)
	}
	return tok, nil
}

// credentialError maps token endpoint failures to ErrCredentials and leaves
// every other error alone.
func credentialError(ctx context.Context, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return err
	}
	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	slog.ErrorContext(ctx, "Gmail refresh token rejected, run oauth-init to authorize again",
		"status", status,
		"error_code", re.ErrorCode)
	return fmt.Errorf("%w: %v", ErrCredentials, err)
}
