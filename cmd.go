package main

import (
	"context"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/derekg/geofront-cli/internal/config"
	"github.com/derekg/geofront-cli/internal/i18n"
)

// Style definitions using lipgloss
var (
	// Theme colors
	primaryColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	infoColor    = lipgloss.Color("#3B82F6")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	infoStyle = lipgloss.NewStyle().
			Foreground(infoColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Underline(true)

	aliasStyle = lipgloss.NewStyle().
			Foreground(infoColor)
)

// NewRootCmd creates the command tree for app
func NewRootCmd(app *App) *cobra.Command {
	cfg := app.cfg

	rootCmd := &cobra.Command{
		Use:          config.ClientName,
		Short:        i18n.T("root_short"),
		Long:         titleStyle.Render(config.ClientName) + " - " + i18n.T("root_long"),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg.AddressIndexSet = cmd.Flags().Changed("address-index")
			return app.setup()
		},
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&cfg.Debug, "debug", "d", false, i18n.T("flag_verbose"))
	flags.BoolVarP(&cfg.NoOpenBrowser, "no-open-browser", "O", false, i18n.T("flag_no_open_browser"))
	flags.StringVarP(&cfg.SSHProgram, "ssh", "S", "", i18n.T("flag_ssh"))
	flags.StringVar(&cfg.SCPProgram, "scp", "", i18n.T("flag_scp"))
	flags.StringVar(&cfg.Language, "lang", "", i18n.T("flag_lang"))
	flags.IntVar(&cfg.AddressIndex, "address-index", 0, i18n.T("flag_address_index"))

	rootCmd.AddCommand(
		newStartCmd(app),
		newAuthenticateCmd(app),
		newLogoutCmd(app),
		newRemotesCmd(app),
		newRemoteCmd(app),
		newAuthorizeCmd(app),
		newSSHCmd(app),
		newSCPCmd(app),
		newGoCmd(app),
		newColonizeCmd(app),
		newKeysCmd(app),
		newMasterKeyCmd(app),
		newVersionCmd(app),
	)

	return rootCmd
}

func newStartCmd(app *App) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "start [server-url]",
		Short: i18n.T("start_short"),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var url string
			if len(args) == 1 {
				url = args[0]
			}
			return app.runStart(cmd.Context(), url, force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, i18n.T("flag_force"))
	return cmd
}

func newAuthenticateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "authenticate",
		Short: i18n.T("authenticate_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runAuthenticate(cmd.Context())
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: i18n.T("logout_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runLogout(cmd.Context())
		},
	}
}

func newRemotesCmd(app *App) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "remotes",
		Short: i18n.T("remotes_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runRemotes(cmd.Context(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("flag_remotes_verbose"))
	return cmd
}

func newRemoteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remote [user@]alias",
		Short: i18n.T("remote_short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runRemote(cmd.Context(), args[0])
		},
	}
}

func newAuthorizeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "authorize [user@]alias",
		Short: i18n.T("authorize_short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runAuthorize(cmd.Context(), args[0])
		},
	}
}

func addSSHFlags(cmd *cobra.Command, req *sshRequest) {
	cmd.Flags().StringVarP(&req.Identity, "identity", "i", "", i18n.T("flag_identity"))
	cmd.Flags().StringArrayVarP(&req.Options, "option", "o", nil, i18n.T("flag_option"))
	cmd.Flags().StringVarP(&req.DynamicPort, "dynamic-port", "D", "", i18n.T("flag_dynamic_port"))
	cmd.Flags().BoolVarP(&req.Tunnel, "tunnel", "t", false, i18n.T("flag_tunnel"))
}

func newSSHCmd(app *App) *cobra.Command {
	var req sshRequest
	cmd := &cobra.Command{
		Use:   "ssh [user@]alias [command...]",
		Short: i18n.T("ssh_short"),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Spec = args[0]
			req.RemoteCommand = args[1:]
			return app.runSSH(cmd.Context(), req)
		},
	}
	addSSHFlags(cmd, &req)
	// Everything after the alias belongs to the remote command
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newSCPCmd(app *App) *cobra.Command {
	var req copyRequest
	cmd := &cobra.Command{
		Use:   "scp source destination",
		Short: i18n.T("scp_short"),
		Long:  i18n.T("scp_short") + "\n\n" + i18n.T("copy_needs_remote"),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Source, req.Destination = args[0], args[1]
			req.SCPProgram = app.cfg.SCPProgram
			return app.runSCP(cmd.Context(), req)
		},
	}
	cmd.Flags().BoolVarP(&req.Recursive, "recursive", "r", false, i18n.T("flag_recursive"))
	cmd.Flags().StringVarP(&req.Identity, "identity", "i", "", i18n.T("flag_identity"))
	cmd.Flags().StringArrayVarP(&req.Options, "option", "o", nil, i18n.T("flag_option"))
	cmd.Flags().BoolVarP(&req.Tunnel, "tunnel", "t", false, i18n.T("flag_tunnel"))
	return cmd
}

func newGoCmd(app *App) *cobra.Command {
	var req sshRequest
	cmd := &cobra.Command{
		Use:   "go",
		Short: i18n.T("go_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runGo(cmd.Context(), req)
		},
	}
	addSSHFlags(cmd, &req)
	return cmd
}

func newColonizeCmd(app *App) *cobra.Command {
	var identity string
	cmd := &cobra.Command{
		Use:   "colonize [user@]alias",
		Short: i18n.T("colonize_short"),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runColonize(cmd.Context(), args[0], identity)
		},
	}
	cmd.Flags().StringVarP(&identity, "identity", "i", "", i18n.T("flag_identity"))
	return cmd
}

func newKeysCmd(app *App) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: i18n.T("keys_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runKeys(cmd.Context(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("flag_keys_verbose"))
	return cmd
}

func newMasterKeyCmd(app *App) *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "masterkey",
		Short: i18n.T("masterkey_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runMasterKey(cmd.Context(), verbose)
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, i18n.T("flag_masterkey"))
	return cmd
}

func newVersionCmd(app *App) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: i18n.T("version_short"),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runVersion(short)
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, i18n.T("version_short"))
	return cmd
}

// ExecuteWithFang runs the command tree with Fang enhancements
func ExecuteWithFang(ctx context.Context, app *App) error {
	return fang.Execute(ctx, NewRootCmd(app), fang.WithVersion(config.Version))
}
