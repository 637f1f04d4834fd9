// ABOUTME: Connect command for authorizing a user's Google directory
// ABOUTME: Runs the OAuth browser flow, stores the token and arms the initial sync
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/harperreed/peoplesync/models"
	"github.com/harperreed/peoplesync/sync"
)

// ConnectCommand authorizes a user and registers their integration.
func ConnectCommand(env *Env, args []string) error {
	fs := flag.NewFlagSet("connect", flag.ExitOnError)
	userID := fs.String("user", "", "User ID that owns the directory (required)")
	clientType := fs.String("client-type", string(models.ClientTypeDesktop), "OAuth client type (desktop, web, ios, android)")
	_ = fs.Parse(args)

	if *userID == "" {
		return fmt.Errorf("--user is required")
	}
	ct := models.ClientType(*clientType)
	if !ct.Valid() {
		return fmt.Errorf("unknown client type %q", *clientType)
	}

	config := sync.NewOAuthConfig(env.Config)
	if config.ClientID == "" || config.ClientSecret == "" {
		return fmt.Errorf("google OAuth credentials not configured. Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables")
	}

	ctx := context.Background()

	token, err := authorize(ctx, config, env)
	if err != nil {
		return err
	}

	store := sync.NewTokenStore(env.Config.TokenDir)
	if err := store.SaveToken(*userID, ct, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	fmt.Fprintf(env.Out, "\n✓ Authenticated successfully\n")
	fmt.Fprintf(env.Out, "✓ Tokens saved to %s\n", store.TokenPath(*userID, ct))

	integ, err := registerIntegration(ctx, env, *userID, ct)
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Out, "✓ Integration %s armed for initial sync\n\n", integ.ID)
	fmt.Fprintf(env.Out, "Run 'peoplesync sync run --integration %s --user %s --initial' to sync now.\n", integ.ID, *userID)
	return nil
}

// registerIntegration creates (or re-enables) the user's integration and
// arms an immediate initial sync.
func registerIntegration(ctx context.Context, env *Env, userID string, ct models.ClientType) (*models.Integration, error) {
	integrations, err := env.Integrations.ListIntegrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	var integ *models.Integration
	for i := range integrations {
		if integrations[i].UserID == userID && integrations[i].ClientType == ct {
			integ = &integrations[i]
			break
		}
	}

	if integ == nil {
		integ = &models.Integration{
			ID:         uuid.New().String(),
			UserID:     userID,
			Provider:   models.ProviderGooglePeople,
			ClientType: ct,
			Enabled:    true,
		}
		if err := env.Integrations.CreateIntegration(ctx, integ); err != nil {
			return nil, fmt.Errorf("failed to create integration: %w", err)
		}
	} else {
		// Re-authorizing clears a credential-failure halt
		if err := env.Integrations.UpdateIntegration(ctx, integ.ID, models.IntegrationUpdate{
			SyncEnabled:  models.Some(true),
			Status:       models.Some(models.SyncStatusIdle),
			ErrorMessage: models.Some[*string](nil),
		}); err != nil {
			return nil, fmt.Errorf("failed to re-enable integration: %w", err)
		}
	}

	rescheduler := sync.NewTriggerRescheduler(env.Triggers)
	if err := rescheduler.Reschedule(ctx, sync.RescheduleRequest{
		IntegrationID: integ.ID,
		UserID:        userID,
		IsInitialSync: true,
	}); err != nil {
		return nil, err
	}

	return integ, nil
}

// authorize runs the local callback server and waits for the OAuth code.
func authorize(ctx context.Context, config *oauth2.Config, env *Env) (*oauth2.Token, error) {
	redirect, err := url.Parse(config.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect URL: %w", err)
	}

	callbackPath := redirect.Path
	if callbackPath == "" {
		callbackPath = "/"
	}

	state := uuid.New().String()
	callbackChan := make(chan *oauth2.Token, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errChan <- fmt.Errorf("OAuth state mismatch")
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			http.Error(w, "exchange failed", http.StatusBadGateway)
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()
	defer func() { _ = server.Shutdown(ctx) }()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))

	fmt.Fprintln(env.Out, "Opening browser for Google OAuth...")
	fmt.Fprintf(env.Out, "\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	if err := openBrowser(authURL); err != nil {
		env.Logger.Debug("failed to open browser", "err", err)
	}

	select {
	case token := <-callbackChan:
		return token, nil
	case err := <-errChan:
		return nil, fmt.Errorf("OAuth flow failed: %w", err)
	}
}

// openBrowser attempts to open URL in default browser
func openBrowser(target string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
		args = []string{target}
	case "windows":
		cmd = "cmd"
		args = []string{"/c", "start", target}
	default:
		cmd = "xdg-open"
		args = []string{target}
	}

	return exec.Command(cmd, args...).Start()
}
