package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// oauth-init runs the consent flow once and prints the refresh token the
// Gmail sender needs. Config is loaded without validation since the token
// does not exist yet.
func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)

	token, err := run(cfg)
	if err != nil {
		logger.Error("OAuth flow failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("Add this to your environment:")
	fmt.Printf("GOOGLE_REFRESH_TOKEN=%s\n", token.RefreshToken)
}

func run(cfg *config.Config) (*oauth2.Token, error) {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return nil, errors.New("set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET")
	}

	port := strconv.Itoa(cfg.OAuthRedirectPort)
	oc := oauthConfig(cfg, "http://localhost:"+port+"/callback")
	state := uuid.NewString()

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", callbackHandler(state, codeCh, errCh))
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", oc.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := oc.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("token exchange: %w", err)
		}
		if tok.RefreshToken == "" {
			return nil, errors.New("no refresh token returned; revoke the app's access and retry")
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, errors.New("authorization timed out")
	}
}

func oauthConfig(cfg *config.Config, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{gmail.GmailSendScope},
	}
}

func callbackHandler(state string, codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("consent denied: %s", e):
			default:
			}
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	}
}
