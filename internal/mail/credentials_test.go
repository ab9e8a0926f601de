package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialProvider_MissingToken(t *testing.T) {
	p := NewCredentialProvider("id", "secret", "  ")

	_, err := p.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrCredentials)

	_, err = NewGmailSender(context.Background(), p, "bot@example.com")
	assert.ErrorIs(t, err, ErrCredentials)
}

func TestCredentialProvider_Refresh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("refresh_token") != "good" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	good := NewCredentialProvider("id", "secret", "good")
	good.config.Endpoint.TokenURL = srv.URL
	tok, err := good.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", tok.AccessToken)

	revoked := NewCredentialProvider("id", "secret", "revoked")
	revoked.config.Endpoint.TokenURL = srv.URL
	_, err = revoked.Token(context.Background())
	assert.ErrorIs(t, err, ErrCredentials)
}
