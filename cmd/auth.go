package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/CzzzzzzJ/shuaigou-dy/internal/repositories"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/server"
	"github.com/CzzzzzzJ/shuaigou-dy/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin signs the user in via the configured OAuth provider, creates or
// refreshes the local account, and claims the daily sign-in bonus.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	creds := r.config.Credentials.OAuth
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: oauth client_id and client_secret must be configured", shared.ErrMissingCredentials)
	}

	email := cmd.String("email")
	if email == "" {
		return fmt.Errorf("%w: --email is required", shared.ErrMissingArgument)
	}
	name := cmd.String("name")

	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  creds.AuthURL,
			TokenURL: creds.TokenURL,
		},
	}

	token, err := r.doOAuth(oauthConfig)
	if err != nil {
		return err
	}
	r.logger.Info("authorization complete", "token_type", token.TokenType)

	db, err := r.openDB()
	if err != nil {
		return err
	}

	users := repositories.NewUserRepository(db)
	ledger := repositories.NewPointsLedger(db)

	user, err := users.Upsert(email, name, "", r.config.Points.DailyAllowance)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}

	credited, err := ledger.CreditSignInBonus(user.ID(), r.config.Points.SignInBonus)
	if err != nil {
		return fmt.Errorf("failed to credit sign-in bonus: %w", err)
	}

	points, err := ledger.Balance(user.ID())
	if err != nil {
		return fmt.Errorf("failed to read balance: %w", err)
	}

	r.writePlain("✓ Signed in as %s\n", user.Email())
	if credited {
		r.writePlain("✓ Daily sign-in bonus credited: +%d points\n", r.config.Points.SignInBonus)
	} else {
		r.writePlainln("Sign-in bonus already claimed today.")
	}
	r.writePlain("Current balance: %d points\n", points)
	return nil
}

// AuthStatus checks whether the local API server is up.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.loadConfig(cmd)

	url := fmt.Sprintf("http://%s:%d/health", r.config.Server.Host, r.config.Server.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.writePlain("✗ Server at %s returned %d\n", url, resp.StatusCode)
		return fmt.Errorf("%w: unexpected status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	r.writePlain("✓ Server at %s is healthy\n", url)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(oauthConfig *oauth2.Config) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	oauthHandler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
