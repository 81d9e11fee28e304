// Package cli implements learnctl, the operator command line for a
// learning-engine server.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/learning-engine/pkg/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server  string
	Token   string
	Course  string
	Format  string // "json" | "text"
	Timeout time.Duration
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for learnctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "learnctl",
		Short: "learnctl - learning-engine operator tool",
		Long:  "Inspect live presence and mint development tokens for a learning-engine server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("LEARNCTL_SERVER", "http://localhost:8080"), "learning-engine base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", os.Getenv("LEARNCTL_TOKEN"), "bearer token")
	cmd.PersistentFlags().StringVarP(&opts.Course, "course", "c", "", "course ID")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().DurationVar(&opts.Timeout, "timeout", 10*time.Second, "request timeout")

	cmd.AddCommand(NewMonitorCommand(opts))
	cmd.AddCommand(NewCountsCommand(opts))
	cmd.AddCommand(NewEnrollmentsCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) client() (*client.Client, error) {
	if o.Token == "" {
		return nil, NewExitError(ExitCommandError, "no token: pass --token or set LEARNCTL_TOKEN")
	}
	return client.NewClient(o.Server, o.Token, client.WithTimeout(o.Timeout)), nil
}

func (o *RootOptions) requireCourse() error {
	if o.Course == "" {
		return NewExitError(ExitCommandError, "--course is required")
	}
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
