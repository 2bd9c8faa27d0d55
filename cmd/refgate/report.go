package main

import (
	"fmt"
	"io"
	"log/slog"
	"refgate/entity"
	"refgate/impl/core"
	"refgate/internal/config"

	"github.com/spf13/cobra"
)

func newReportCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Print admitted total and top referrers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.Load(rootOpts.configPath)
			if err != nil {
				return err
			}
			db, err := openDatabase(conf)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			log := slog.New(slog.NewTextHandler(io.Discard, nil))
			rep, err := core.New(db, conf.Referral, log).AdminReport(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), rep)
		},
	}
}

func printReport(w io.Writer, rep *entity.Report) error {
	if _, err := fmt.Fprintf(w, "members: %d/%d\n", rep.Admitted, rep.Capacity); err != nil {
		return err
	}
	for i, r := range rep.Leaderboard {
		if _, err := fmt.Fprintf(w, "%2d. %d %d\n", i+1, r.UserId, r.ReferralCount); err != nil {
			return err
		}
	}
	return nil
}

