/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/counseldesk/apiserver/config"
	"github.com/counseldesk/apiserver/internal/events"
)

// tailCmd represents the tail command. It follows one change-feed channel
// and prints every event, which is handy when debugging consumers.
var tailCmd = &cobra.Command{
	Use:   "tail [channel]",
	Short: "Follow a change-feed channel",
	Long: `Follows one change-feed channel and prints every entity-changed
event as it arrives. Valid channels: users, notifications, assignments,
messages, appointments.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		channel := args[0]
		switch channel {
		case events.ChannelUsers, events.ChannelNotifications, events.ChannelAssignments,
			events.ChannelMessages, events.ChannelAppointments:
		default:
			return fmt.Errorf("unknown channel %q", channel)
		}

		cfg := config.LoadConfig()
		feed, err := openFeed(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer func() {
			_ = feed.Close()
		}()

		log.Printf("following %s", channel)
		err = feed.Subscribe(cmd.Context(), channel, func(ctx context.Context, change events.Change) error {
			fmt.Fprintf(os.Stdout, "%s %s id=%d\n", change.Entity, change.Action, change.ID)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(tailCmd)
}

func openFeed(ctx context.Context, cfg config.Config) (*events.Feed, error) {
	if cfg.BrokerBackend == "pubsub" {
		backend, err := events.NewPubSubBackend(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return events.NewFeed(backend), nil
	}
	backend, err := events.NewRabbitMQBackend(cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}
	return events.NewFeed(backend), nil
}
