package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dgnsrekt/plurk-comet/internal/api"
	"github.com/dgnsrekt/plurk-comet/internal/credential"
)

func loginCmd() *cobra.Command {
	var (
		consumerKey    string
		consumerSecret string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize this CLI and store the access token",
		Long: `Authorize this CLI against a Plurk app and store the keys.

Register an app at https://www.plurk.com/PlurkApp/ to get a consumer key and
secret. The command prints an authorization URL; open it, grant access and
paste the PIN shown by Plurk.

Examples:
  # First login, prompting for the consumer secret
  plurk login --consumer-key abc123

  # Refresh the access token of an existing key file
  plurk login -k ./key.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := keyPath()

			keys, err := credential.Load(path)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					return err
				}
				keys = &credential.Keys{}
			}
			if consumerKey != "" {
				keys.Consumer.Key = consumerKey
			}
			if consumerSecret != "" {
				keys.Consumer.Secret = consumerSecret
			}

			in := bufio.NewReader(cmd.InOrStdin())
			if keys.Consumer.Key == "" {
				if keys.Consumer.Key, err = prompt(cmd.ErrOrStderr(), in, "Consumer key: "); err != nil {
					return err
				}
			}
			if keys.Consumer.Secret == "" {
				if keys.Consumer.Secret, err = promptSecret(cmd, in, "Consumer secret: "); err != nil {
					return err
				}
			}

			if err := authorizeWith(cmd, in, keys); err != nil {
				return err
			}
			if err := keys.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved keys to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&consumerKey, "consumer-key", "", "app consumer key")
	cmd.Flags().StringVar(&consumerSecret, "consumer-secret", "", "app consumer secret (prompted when omitted)")

	return cmd
}

// authorize runs the PIN flow reading from the command's stdin.
func authorize(cmd *cobra.Command, keys *credential.Keys) error {
	return authorizeWith(cmd, bufio.NewReader(cmd.InOrStdin()), keys)
}

func authorizeWith(cmd *cobra.Command, in *bufio.Reader, keys *credential.Keys) error {
	auth := api.NewAuthorizer(cfg.API.BaseURL, keys.Consumer.Key, keys.Consumer.Secret)

	reqToken, reqSecret, authorizeURL, err := auth.RequestToken()
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	fmt.Fprintln(out, "Open this URL in a browser and authorize the app:")
	fmt.Fprintln(out, " ", authorizeURL)

	pin, err := prompt(out, in, "PIN: ")
	if err != nil {
		return err
	}
	if pin == "" {
		return errors.New("no PIN entered")
	}

	token, secret, err := auth.AccessToken(reqToken, reqSecret, pin)
	if err != nil {
		return err
	}
	keys.SetToken(token, secret)
	return nil
}

func prompt(out io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptSecret reads without echo when stdin is a terminal.
func promptSecret(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	f, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return prompt(cmd.ErrOrStderr(), in, label)
	}

	fmt.Fprint(cmd.ErrOrStderr(), label)
	secret, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(string(secret)), nil
}
