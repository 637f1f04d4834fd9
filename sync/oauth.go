// ABOUTME: OAuth configuration and per-user token storage for the People API
// ABOUTME: Resolves access tokens from stored credentials, refreshing and saving as needed
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/harperreed/peoplesync/models"
)

// ContactsScope is the only scope the directory sync needs.
const ContactsScope = "https://www.googleapis.com/auth/contacts.readonly"

// ErrNoStoredToken means the user never connected this integration.
var ErrNoStoredToken = errors.New("no stored credential")

// NewOAuthConfig creates OAuth2 config for the People API.
func NewOAuthConfig(cfg *Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{ContactsScope},
		Endpoint:     google.Endpoint,
	}
}

// TokenStore keeps one OAuth token per user and client type on disk.
type TokenStore struct {
	dir string
}

// NewTokenStore creates a token store rooted at dir.
func NewTokenStore(dir string) *TokenStore {
	return &TokenStore{dir: dir}
}

// TokenPath returns where a user's token for a client type is stored.
func (s *TokenStore) TokenPath(userID string, clientType models.ClientType) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.json", filepath.Base(userID), clientType))
}

// SaveToken writes the token with owner-only permissions.
func (s *TokenStore) SaveToken(userID string, clientType models.ClientType, token *oauth2.Token) error {
	path := s.TokenPath(userID, clientType)

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// LoadToken reads a stored token. A missing file returns ErrNoStoredToken.
func (s *TokenStore) LoadToken(userID string, clientType models.ClientType) (*oauth2.Token, error) {
	f, err := os.Open(s.TokenPath(userID, clientType))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoStoredToken
		}
		return nil, fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var token oauth2.Token
	if err := json.NewDecoder(f).Decode(&token); err != nil {
		return nil, fmt.Errorf("failed to decode token: %w", err)
	}

	return &token, nil
}

// FileTokenProvider is the CredentialProvider backed by a TokenStore.
type FileTokenProvider struct {
	config *oauth2.Config
	store  *TokenStore
}

// NewFileTokenProvider creates a credential provider.
func NewFileTokenProvider(config *oauth2.Config, store *TokenStore) *FileTokenProvider {
	return &FileTokenProvider{config: config, store: store}
}

// AccessToken returns a valid access token, refreshing and persisting it when
// expired. A rejected refresh is permanent; a network failure is transient.
func (p *FileTokenProvider) AccessToken(ctx context.Context, userID, resource string, clientType models.ClientType) (string, error) {
	if resource != models.ProviderGooglePeople {
		return "", fmt.Errorf("unsupported credential resource %q", resource)
	}
	if !clientType.Valid() {
		return "", fmt.Errorf("unsupported client type %q", clientType)
	}

	stored, err := p.store.LoadToken(userID, clientType)
	if err != nil {
		return "", err
	}

	fresh, err := p.config.TokenSource(ctx, stored).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return "", fmt.Errorf("failed to refresh token: %w", err)
		}
		return "", &TransientError{Op: "refresh token", Err: err}
	}

	if fresh.AccessToken != stored.AccessToken {
		if err := p.store.SaveToken(userID, clientType, fresh); err != nil {
			return "", &TransientError{Op: "save refreshed token", Err: err}
		}
	}

	return fresh.AccessToken, nil
}
