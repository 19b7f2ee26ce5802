package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tessro/cadence/internal/api"
	"github.com/tessro/cadence/internal/browser"
	"github.com/tessro/cadence/internal/session"
	"github.com/tessro/cadence/internal/wizard"
)

var (
	loginEmail    string
	loginPassword string
	loginGoogle   bool

	profileName   string
	profileEmail  string
	profileAvatar string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your Cadence account",
	Long:  `Commands for signing in and out and managing your account.`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	Long: `Sign in with email and password, or with Google in the browser.

Without --email and --password a form is shown on interactive terminals.
With --google a browser window opens and the sign-in completes on a local
callback server (see api.callback_addr).`,
	RunE: runAuthLogin,
}

var authRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	RunE:  runAuthRegister,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runAuthStatus,
}

var authProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update your name, email or avatar",
	RunE:  runAuthProfile,
}

var authPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Change your password",
	RunE:  runAuthPassword,
}

var authDeleteCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Permanently delete your account",
	RunE:  runAuthDelete,
}

func init() {
	authLoginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email")
	authLoginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (prefer the interactive form)")
	authLoginCmd.Flags().BoolVar(&loginGoogle, "google", false, "sign in with Google in the browser")

	authProfileCmd.Flags().StringVar(&profileName, "name", "", "display name")
	authProfileCmd.Flags().StringVar(&profileEmail, "email", "", "email address")
	authProfileCmd.Flags().StringVar(&profileAvatar, "avatar", "", "upload an avatar image")

	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authRegisterCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authProfileCmd)
	authCmd.AddCommand(authPasswordCmd)
	authCmd.AddCommand(authDeleteCmd)
	rootCmd.AddCommand(authCmd)
}

func printSignedIn(u *api.User) error {
	if JSONOutput() {
		return printJSON(map[string]any{
			"status": "authenticated",
			"user":   u,
		})
	}
	fmt.Printf("Signed in as %s (%s)\n", u.DisplayName(), u.Email)
	return nil
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if loginGoogle {
		return loginWithBrowser(ctx, a)
	}

	creds, ok, err := wizard.NewInteractive().PromptLogin(api.Credentials{Email: loginEmail, Password: loginPassword})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("--email and --password are required when not running in a terminal")
	}

	u, err := a.session.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	return printSignedIn(u)
}

func loginWithBrowser(ctx context.Context, a *app) error {
	callbackServer, err := session.NewCallbackServer(cfg.API.CallbackAddr)
	if err != nil {
		return fmt.Errorf("failed to start callback server: %w", err)
	}
	callbackServer.Start()
	defer func() { _ = callbackServer.Shutdown(context.Background()) }()

	authURL := session.AuthorizeURL(cfg.API.BaseURL, cfg.API.OAuthPath, callbackServer.URL())

	fmt.Println("Opening browser for Google sign-in...")
	if err := browser.Open(authURL); err != nil {
		fmt.Printf("Could not open browser automatically.\n")
		fmt.Printf("Please open this URL in your browser:\n\n%s\n\n", authURL)
	}

	fmt.Println("Waiting for sign-in...")
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	result, err := callbackServer.Wait(ctx)
	if err != nil {
		return fmt.Errorf("sign-in timed out: %w", err)
	}
	if err := result.Err(); err != nil {
		return err
	}

	if err := a.session.Establish(ctx, result.Token, result.User); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	return printSignedIn(&result.User)
}

func runAuthRegister(cmd *cobra.Command, args []string) error {
	if !wizard.IsTerminal() {
		return fmt.Errorf("registration needs an interactive terminal")
	}
	reg, err := wizard.PromptRegistration()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	u, err := a.session.Register(ctx, reg)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return printSignedIn(u)
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.session.Token() == "" {
		if JSONOutput() {
			return printJSON(map[string]string{"status": "not_authenticated"})
		}
		fmt.Println("Not signed in.")
		return nil
	}

	if err := a.session.Logout(ctx); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}

	if JSONOutput() {
		return printJSON(map[string]string{"status": "logged_out"})
	}
	fmt.Println("Signed out.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.session.IsAuthenticated() {
		if JSONOutput() {
			return printJSON(map[string]any{"authenticated": false})
		}
		fmt.Println("Not signed in.")
		fmt.Println("Run 'cadence auth login' to sign in.")
		return nil
	}

	expires, hasExpiry := a.session.ExpiresAt()

	u, err := a.session.Refresh(ctx)
	if err != nil {
		if JSONOutput() {
			return printJSON(map[string]any{
				"authenticated": false,
				"error":         err.Error(),
			})
		}
		fmt.Printf("Session is no longer valid: %v\n", err)
		fmt.Println("Run 'cadence auth login' to sign in again.")
		return nil
	}

	if JSONOutput() {
		out := map[string]any{
			"authenticated": true,
			"user":          u,
			"language":      a.session.Language(),
		}
		if hasExpiry {
			out["expires_at"] = expires
		}
		return printJSON(out)
	}

	fmt.Printf("Signed in as: %s (%s)\n", u.DisplayName(), u.Email)
	fmt.Printf("Role: %s\n", u.Role)
	if hasExpiry {
		fmt.Printf("Token expires: %s (%s)\n", expires.Format(time.RFC3339), ago(expires))
	}
	return nil
}

func runAuthProfile(cmd *cobra.Command, args []string) error {
	upd := api.ProfileUpdate{Name: profileName, Email: profileEmail}
	if upd == (api.ProfileUpdate{}) && profileAvatar == "" {
		return fmt.Errorf("nothing to change. Pass --name, --email or --avatar")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	var u *api.User
	if upd != (api.ProfileUpdate{}) {
		if u, err = a.client.UpdateMe(ctx, upd); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
	}
	if profileAvatar != "" {
		f, err := os.Open(profileAvatar)
		if err != nil {
			return err
		}
		defer f.Close()
		if u, err = a.client.UploadAvatar(ctx, api.File{Name: filepath.Base(profileAvatar), Reader: f}); err != nil {
			return fmt.Errorf("failed to upload avatar: %w", err)
		}
	}

	// Keep the stored profile in step with the server.
	if err := a.session.Establish(ctx, a.session.Token(), *u); err != nil {
		return err
	}

	if JSONOutput() {
		return printJSON(u)
	}
	fmt.Printf("Profile updated for %s\n", u.DisplayName())
	return nil
}

func runAuthPassword(cmd *cobra.Command, args []string) error {
	if !wizard.IsTerminal() {
		return fmt.Errorf("changing the password needs an interactive terminal")
	}
	current, next, err := wizard.PromptPasswordChange()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	if err := a.client.ChangePassword(ctx, current, next); err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	fmt.Println("Password changed.")
	return nil
}

func runAuthDelete(cmd *cobra.Command, args []string) error {
	if !wizard.IsTerminal() {
		return fmt.Errorf("deleting the account needs an interactive terminal")
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireAuth(); err != nil {
		return err
	}

	ok, err := wizard.Confirm("Permanently delete your account and uploads?")
	if err != nil || !ok {
		return err
	}
	password, err := wizard.PromptPassword("Confirm with your password")
	if err != nil {
		return err
	}

	if err := a.client.DeleteAccount(ctx, password); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if err := a.session.Logout(ctx); err != nil {
		a.logger.Debug("local sign-out after delete failed", zap.Error(err))
	}
	fmt.Println("Account deleted.")
	return nil
}
