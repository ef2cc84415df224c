package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mishannn/tinkoff"
	"github.com/mishannn/tinkoff/internal/config"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts and balances of a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		wuid, _ := cmd.Flags().GetString("wuid")
		session, _ := cmd.Flags().GetString("session")

		return listAccounts(cmd.Context(), cfg, logger, tinkoff.Identity{WebUserID: wuid, SessionID: session}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)

	accountsCmd.Flags().String("wuid", "", "web user id printed by login")
	accountsCmd.Flags().String("session", "", "session id printed by login")
	_ = accountsCmd.MarkFlagRequired("wuid")
	_ = accountsCmd.MarkFlagRequired("session")
}

func listAccounts(ctx context.Context, cfg *config.Config, log *zap.Logger, id tinkoff.Identity, out io.Writer) error {
	opts := append(cfg.ClientOptions(), tinkoff.WithLogger(log.Named("client")))
	client, err := tinkoff.New(ctx, id, opts...)
	if err != nil {
		return err
	}

	accounts, err := client.Accounts(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewTable(out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{Borders: tw.BorderNone}),
	)
	table.Header("ID", "Name", "Type", "Balance")
	for _, a := range accounts {
		if err := table.Append(a.ID, a.Name, a.AccountType, a.MoneyAmount.String()); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	balances := tinkoff.Balances(accounts)
	currencies := make([]string, 0, len(balances))
	for c := range balances {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	fmt.Fprintln(out)
	for _, c := range currencies {
		fmt.Fprintf(out, "total %s: %s\n", c, balances[c].StringFixed(2))
	}
	return nil
}
