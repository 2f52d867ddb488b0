package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	var creds domain.Credentials

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and merge the guest cart into the account cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if creds.Password == "" {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				creds.Password = p
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				user, err := a.session.Login(ctx, creds)
				if err != nil {
					return err
				}
				a.syncGuestCart(ctx)
				return out.Emit(user, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Signed in as %s <%s>\n", user.Name, user.Email)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password (read from stdin when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	var reg domain.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if reg.Password == "" {
				p, err := readPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				reg.Password = p
			}
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				user, err := a.session.Register(ctx, reg)
				if err != nil {
					return err
				}
				a.syncGuestCart(ctx)
				return out.Emit(user, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Registered %s <%s>\n", user.Name, user.Email)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "display name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password (read from stdin when empty)")
	cmd.Flags().StringVar(&reg.ConfirmPassword, "confirm-password", "", "repeat the password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.session.Logout(ctx); err != nil {
					// The local session is gone either way.
					a.logger.Warn("server logout failed", "error", err)
				}
				return out.Emit(map[string]bool{"signedIn": false}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, "Signed out")
					return err
				})
			})
		},
	}
}

func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if !a.session.Authenticated() {
					return errors.New("not signed in")
				}
				user, err := a.session.Me(ctx)
				if err != nil {
					return err
				}
				return out.Emit(user, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%s <%s> (%s)\n", user.Name, user.Email, user.Role)
					return err
				})
			})
		},
	}
}

// syncGuestCart merges a cart built before sign-in. A failed merge leaves the
// mirror untouched for a later "cart sync".
func (a *app) syncGuestCart(ctx context.Context) {
	if len(a.cart.Snapshot().Items) == 0 {
		return
	}
	if err := a.cart.Sync(ctx); err != nil {
		a.logger.Warn("failed to merge guest cart", "error", err)
		return
	}
	a.publish()
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
