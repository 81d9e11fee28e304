package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/terra-clan/learning-engine/internal/auth"
	"github.com/terra-clan/learning-engine/internal/models"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Secret  string
	Subject string
	Name    string
	Avatar  string
	Role    string
	TTL     time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development bearer token",
		Long: `Sign a bearer token with the server's shared secret.

The secret defaults to AUTH_JWT_SECRET. A random subject is used when
--subject is empty.`,
		Example: `  learnctl token --name Ana
  learnctl token --role admin --name Ops --ttl 1h`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.Secret, "secret", os.Getenv("AUTH_JWT_SECRET"), "signing secret")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "student ID (random if empty)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name")
	cmd.Flags().StringVar(&opts.Avatar, "avatar", "", "avatar URL")
	cmd.Flags().StringVar(&opts.Role, "role", string(models.RoleStudent), "role (student|admin)")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}

func runToken(opts *TokenOptions, w io.Writer) error {
	if opts.Secret == "" {
		return NewExitError(ExitCommandError, "no secret: pass --secret or set AUTH_JWT_SECRET")
	}

	subject := opts.Subject
	if subject == "" {
		subject = uuid.NewString()
	}
	name := opts.Name
	if name == "" {
		name = subject
	}

	p := &models.Principal{
		ID:     subject,
		Name:   name,
		Avatar: opts.Avatar,
		Role:   models.Role(opts.Role),
	}

	token, err := auth.NewIssuer(opts.Secret, opts.TTL).Issue(p)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to issue token", err)
	}

	out := printer{format: opts.Format, w: w}
	return out.emit(map[string]interface{}{
		"token":   token,
		"subject": subject,
		"role":    p.Role,
		"expires": time.Now().Add(opts.TTL).UTC(),
	}, func(w io.Writer) { fmt.Fprintln(w, token) })
}
