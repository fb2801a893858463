package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/bluecarbon/internal/domain"
	"github.com/aryan0dhankhar/bluecarbon/internal/service"
)

var (
	loginEmail  string
	loginRole   string
	loginOrg    string
	loginRegion string
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Session management (login, logout, who)",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with an email and a role",
	Example: `  bluecarbon auth login --email ravi@coast.org --role FISHERMAN
  bluecarbon auth login --email esg@acme.com --role CORPORATE --org "Acme Corp"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var res service.LoginResult
		err := newClient().do(http.MethodPost, "/auth/login", map[string]string{
			"email":        loginEmail,
			"role":         loginRole,
			"organization": loginOrg,
			"region":       loginRegion,
		}, &res)
		if err != nil {
			return err
		}
		if err := saveToken(res.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		warn(res.Warning)
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s (%s, %s)\n", res.User.Email, res.User.Role, res.User.Organization)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if c.token != "" {
			// The token is removed even if the server cannot be reached
			if err := c.do(http.MethodPost, "/auth/logout", nil, nil); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "! server logout failed: %v\n", err)
			}
		}
		os.Remove(tokenFile())
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
		return nil
	},
}

var whoCmd = &cobra.Command{
	Use:   "who",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient()
		if c.token == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in")
			return nil
		}
		var me struct {
			User *domain.User `json:"user"`
		}
		if err := c.do(http.MethodGet, "/auth/me", nil, &me); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s (%s) %s, %s\n", me.User.Email, me.User.Role, me.User.Organization, me.User.ID)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "user email")
	loginCmd.Flags().StringVar(&loginRole, "role", "", "FISHERMAN, NGO, ADMIN or CORPORATE")
	loginCmd.Flags().StringVar(&loginOrg, "org", "", "organization (optional)")
	loginCmd.Flags().StringVar(&loginRegion, "region", "", "region (optional)")
	_ = loginCmd.MarkFlagRequired("email")
	_ = loginCmd.MarkFlagRequired("role")

	authCmd.AddCommand(loginCmd, logoutCmd, whoCmd)
}
