package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/five82/shelf/internal/app"
	"github.com/five82/shelf/internal/library"
	"github.com/five82/shelf/internal/validate"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	configPath string
	apiURL     string
	poll       time.Duration
}

func (o *rootOptions) appOptions() app.Options {
	return app.Options{
		ConfigPath: o.configPath,
		APIURL:     o.apiURL,
		PollEvery:  o.poll,
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "shelf",
		Short:         "Terminal client for the school library",
		Long:          "shelf browses the catalog and manages loans against the library API.\nRun without a subcommand to open the interactive interface.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts.appOptions())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/shelf/config.toml)")
	cmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "library API base URL (overrides SHELF_API_URL and the config file)")
	cmd.PersistentFlags().DurationVar(&opts.poll, "poll", 0, "background loan refresh interval for librarians, e.g. 30s (0 disables)")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newLogoutCommand(opts))
	cmd.AddCommand(newWhoamiCommand(opts))
	return cmd
}

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			if strings.TrimSpace(username) == "" {
				fmt.Fprint(out, "Username: ")
				line, err := readLine(in)
				if err != nil {
					return fmt.Errorf("read username: %w", err)
				}
				username = line
			}
			password, err := readPassword(out, in, terminalFD(cmd.InOrStdin()), "Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if err := validate.Login(username, password); err != nil {
				return err
			}

			svc, err := app.Bootstrap(opts.appOptions())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Session.Login(cmd.Context(), username, password); err != nil {
				return errors.New(library.Message(err))
			}
			sess, _ := svc.Session.Current()
			fmt.Fprintf(out, "Signed in as %s (%s)\n", sess.User.FullName(), sess.Role().Label())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account username (prompted when empty)")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Bootstrap(opts.appOptions())
			if err != nil {
				return err
			}
			defer svc.Close()

			svc.Session.Logout()
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account behind the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := app.Bootstrap(opts.appOptions())
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.Resume(cmd.Context()); err != nil {
				return errors.New(library.Message(err))
			}
			sess, ok := svc.Session.Current()
			if !ok {
				return errors.New("not signed in; run shelf login")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s)\n", sess.User.FullName(), sess.User.Username)
			fmt.Fprintf(out, "role:    %s\n", sess.Role().Label())
			fmt.Fprintf(out, "api:     %s\n", svc.Client.BaseURL())
			if exp, ok := svc.Session.ExpiresAt(); ok {
				fmt.Fprintf(out, "expires: %s\n", exp.Local().Format(time.RFC1123))
			}
			return nil
		},
	}
}

// terminalFD returns the descriptor behind r when it is a terminal, or -1.
func terminalFD(r io.Reader) int {
	f, ok := r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return -1
	}
	return int(f.Fd())
}

// readPassword reads without echo from a terminal and falls back to a plain
// line otherwise, so the command can be scripted.
func readPassword(out io.Writer, in *bufio.Reader, fd int, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	if fd >= 0 {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
