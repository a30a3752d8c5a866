package notify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/zealmehta21/nevermiss/internal/errors"
)

// AuthPort is the localhost port that receives the OAuth redirect.
const AuthPort = "6789"

// Gmail sends messages through the Gmail API as the authorized account.
type Gmail struct {
	svc  *gmail.Service
	from string
}

// NewGmail creates a sender from client options (an authorized HTTP client,
// or an endpoint override in tests).
func NewGmail(ctx context.Context, from string, opts ...option.ClientOption) (*Gmail, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfig("unable to create gmail client: " + err.Error())
	}
	return &Gmail{svc: svc, from: from}, nil
}

// OpenGmail loads the OAuth client secrets and saved token and returns a sender.
// A missing token is a CONFIG error: run the interactive authorization first.
func OpenGmail(ctx context.Context, credentialsFile, tokenFile, from string) (*Gmail, error) {
	cfg, err := LoadOAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}
	tok, err := TokenFromFile(tokenFile)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("no gmail token at %s; run `nevermiss auth gmail` first", tokenFile))
	}
	return NewGmail(ctx, from, option.WithHTTPClient(cfg.Client(ctx, tok)))
}

// Send delivers msg to the given address.
func (g *Gmail) Send(ctx context.Context, to string, msg *Message) error {
	if !validAddress(to) {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid recipient %q", to))
	}
	raw, err := buildMIME(g.from, to, msg)
	if err != nil {
		return errors.NewInternal(err)
	}
	_, err = g.svc.Users.Messages.Send("me", &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}).Context(ctx).Do()
	if err != nil {
		return errors.NewUpstream("gmail send failed", err)
	}
	return nil
}

// LoadOAuthConfig reads a credentials.json downloaded from the Google Cloud console.
func LoadOAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("unable to read client secret file %s: %v", credentialsFile, err))
	}
	cfg, err := google.ConfigFromJSON(b, gmail.GmailSendScope)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("unable to parse client secret file: %v", err))
	}
	cfg.RedirectURL = "http://localhost:" + AuthPort + "/oauth2callback"
	return cfg, nil
}

// TokenFromFile reads a saved OAuth token.
func TokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// SaveToken writes tok to path, readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

// Authorize runs the browser consent flow: it prints the consent URL to out,
// waits for the redirect on localhost, and saves the token.
func Authorize(ctx context.Context, cfg *oauth2.Config, tokenFile string, out io.Writer) error {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", "localhost:"+AuthPort)
	if err != nil {
		return fmt.Errorf("failed to start listener on port %s: %w", AuthPort, err)
	}

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				errCh <- fmt.Errorf("authorization code not found in redirect URL")
				return
			}
			fmt.Fprint(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	defer srv.Close()

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(out, "Open the following URL in your browser to authorize NeverMiss to send mail:\n%s\n", authURL)
	log.Println("Waiting for authorization code...")

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exCtx, code)
		if err != nil {
			return fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return SaveToken(tokenFile, tok)
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
