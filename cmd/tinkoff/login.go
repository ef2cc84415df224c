package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff"
	"github.com/mishannn/tinkoff/internal/config"
)

const maxCodeAttempts = 3

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and print the session identity",
	Long: `Sign in with username and password. When the bank asks for an SMS
code it is read from stdin. The resulting wuid and sessionid can be passed to
the other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := login(cmd.Context(), cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "wuid:      %s\n", id.WebUserID)
		fmt.Fprintf(w, "sessionid: %s\n", id.SessionID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringP("username", "u", "", "login (default from config)")
	loginCmd.Flags().StringP("password", "p", "", "password (default from config)")
	_ = v.BindPFlag("username", loginCmd.Flags().Lookup("username"))
	_ = v.BindPFlag("password", loginCmd.Flags().Lookup("password"))
}

func login(ctx context.Context, cfg *config.Config, log *zap.Logger, in io.Reader, out io.Writer) (tinkoff.Identity, error) {
	if cfg.Username == "" || cfg.Password == "" {
		return tinkoff.Identity{}, errors.New("username and password are required")
	}

	opts := append(cfg.ClientOptions(), tinkoff.WithLogger(log.Named("client")))
	client, err := tinkoff.New(ctx, tinkoff.Identity{}, opts...)
	if err != nil {
		return tinkoff.Identity{}, err
	}

	_, err = client.SignUp(ctx, cfg.Username, cfg.Password)
	if challenge, ok := tinkoff.AsChallenge(err); ok {
		err = confirm(ctx, client, challenge, bufio.NewScanner(in), out)
	}
	if err != nil {
		return tinkoff.Identity{}, err
	}

	payload, err := client.LevelUp(ctx)
	if err != nil {
		return tinkoff.Identity{}, err
	}
	if state, err := tinkoff.ParseSessionState(payload); err == nil {
		log.Info("session established", zap.String("access_level", state.AccessLevel))
	}

	return client.Identity(), nil
}

func confirm(ctx context.Context, client *tinkoff.Client, challenge tinkoff.Challenge, in *bufio.Scanner, out io.Writer) error {
	for attempt := 1; ; attempt++ {
		fmt.Fprint(out, "SMS code: ")
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return fmt.Errorf("failed to read code: %w", err)
			}
			return errors.New("no confirmation code given")
		}

		_, err := client.Confirm(ctx, challenge, strings.TrimSpace(in.Text()))
		if err == nil {
			return nil
		}

		var invalid *tinkoff.InvalidRequestDataError
		if !errors.As(err, &invalid) || attempt == maxCodeAttempts {
			return err
		}
		fmt.Fprintln(out, invalid.Message)
	}
}
