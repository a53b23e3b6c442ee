package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	natsadapter "github.com/samirrijal/circlerun/internal/adapters/nats"
	"github.com/samirrijal/circlerun/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print loop and favourite events from NATS as JSON lines",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer sub.Close()

		if err := sub.SubscribeGenerations(ctx, func(_ context.Context, e *domain.GenerationEvent) error {
			return printJSON(e)
		}); err != nil {
			return err
		}
		if err := sub.SubscribeFavorites(ctx, func(_ context.Context, e *domain.FavoritesEvent) error {
			return printJSON(e)
		}); err != nil {
			return err
		}

		slog.Info("watching loop events, ctrl-c to stop")
		<-ctx.Done()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
