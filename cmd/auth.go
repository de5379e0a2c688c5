package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/onair/internal/server"
	"github.com/desertthunder/onair/internal/services"
	"github.com/desertthunder/onair/internal/shared"
)

const authTimeout = 2 * time.Minute

// AuthLogin performs the OAuth2 authorization code flow and stores the token.
//
// Starts a local HTTP server, opens the browser for user authorization, and exchanges the code for a token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	oauthConfig, err := services.NewOAuthConfig(r.config.Credentials.Nicolive)
	if err != nil {
		return err
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}

	token, err := r.doOAuth(ctx, oauthConfig, timeout)
	if err != nil {
		return err
	}

	if err := a.auth.Login(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Token saved to %s\n\n", r.config.Database.Path)
	r.writePlain("You can now use: onair program fetch\n")
	return nil
}

func (r *Runner) doOAuth(ctx context.Context, config *oauth2.Config, timeout time.Duration) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	verifier := oauth2.GenerateVerifier()
	authURL := services.AuthURL(config, state, verifier)
	oauthHandler := server.NewOAuthHandler(config, state, verifier)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	serverCtx, stop := context.WithCancel(ctx)
	defer stop()

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Serve(serverCtx, serverAddr, router, r.logger)
	}()

	r.writePlain("→ Opening browser for Nicolive authorization...\n")
	if err := r.open(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := r.clock.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = fmt.Errorf("callback server stopped")
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.Chan():
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	stop()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// AuthLogout removes the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.auth.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus reports whether a token is stored and when it expires.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if r.config.Credentials.Nicolive.AccessToken != "" {
		return r.writePlain("Using a static access token from configuration\n")
	}

	a, err := r.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	token, err := a.auth.Token()
	if err != nil {
		r.logger.Debug("no stored token", "err", err)
		return r.writePlain("Not logged in (run 'onair auth login')\n")
	}

	r.writePlain("Logged in\n")
	if !token.Expiry.IsZero() {
		r.writePlain("Access token expires: %s\n", token.Expiry.Local().Format(time.RFC1123))
	}
	if token.RefreshToken == "" {
		r.writePlain("No refresh token stored; log in again when the access token expires\n")
	}
	return nil
}
