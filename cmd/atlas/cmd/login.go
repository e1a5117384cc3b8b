package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlashq/atlas-go"
	"github.com/atlashq/atlas-go/session"
)

var loginUsername string
var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session credential",
	Long: `Sign in to the Atlas API with a username and password.

On success the session credential is stored on disk (see credentials.path
in the config) so subsequent commands stay signed in.

Examples:
  atlas login -u you@example.com
  atlas login -u you@example.com -p secret`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "account username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "account password (prompted when omitted)")
	_ = loginCmd.MarkFlagRequired("username")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	password := loginPassword
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	e, err := newEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close(ctx)

	token, err := e.client.Login(ctx, loginUsername, password)
	if err != nil {
		if errors.Is(err, atlas.ErrAuthInvalid) {
			return errors.New("login failed: the server rejected those credentials")
		}
		return fmt.Errorf("login failed: %w", err)
	}

	e.store.Login(ctx, token)
	snap := e.store.Settle(ctx)
	if snap.Status != session.StatusAuthenticated {
		if snap.Err != "" {
			return fmt.Errorf("login failed: %s", snap.Err)
		}
		return errors.New("login failed: session did not become authenticated")
	}

	fmt.Printf("Signed in as %s (id %d)\n", snap.Identity.Name, snap.Identity.ID)
	return nil
}
