package cli

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/credvault/internal/config"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/vault"
)

// defaultDir is a test seam for the per-user vault directory.
var defaultDir = vault.DefaultDir

// session is what PersistentPreRunE prepares for the commands.
type session struct {
	app *App
}

// Execute runs the credvault command line with the process streams.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	s := &session{}

	root := &cobra.Command{
		Use:           "credvault",
		Short:         "Encrypted account vault for S3-compatible file storage",
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}

			log, err := logging.New(errOut, cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}

			dir := cfg.Dir
			if dir == "" {
				if dir, err = defaultDir(); err != nil {
					return err
				}
			}

			v := vault.Open(dir, log)
			log.Debug(cmd.Context(), "vault opened", "dir", dir, "accounts", v.Accounts.Len())

			s.app = NewApp(cfg, v.Accounts, log, in, out)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s.app.Run(cmd.Context())
			return nil
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(accountsCmd(s), forgetCmd(s), fetchCmd(s))
	return root
}

func accountsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List saved accounts, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.Accounts(cmd.Context())
		},
	}
}

func forgetCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <account>",
		Short: "Delete a saved account by name or identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.app.Forget(cmd.Context(), args[0])
		},
	}
}

func fetchCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url> [dest]",
		Short: "Download a shared link",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			return s.app.Fetch(cmd.Context(), args[0], dest)
		},
	}
}
