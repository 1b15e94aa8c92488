package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uspace/uatrack/pkg/eventbus"
	redisclient "github.com/uspace/uatrack/pkg/store/redis"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print campaign and bug events as the relay publishes them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			redis, err := redisclient.NewClient(ctx, &cfg.Redis)
			if err != nil {
				return err
			}
			defer redis.Close()

			return watch(ctx, eventbus.NewBus(redis.Client()), os.Stdout)
		},
	}
}

func watch(ctx context.Context, bus *eventbus.Bus, w io.Writer) error {
	events := bus.Subscribe(ctx, eventbus.ChannelCampaign, eventbus.ChannelBug)
	for event := range events {
		printEvent(w, event)
	}
	return nil
}

func printEvent(w io.Writer, event *eventbus.Event) {
	ts := time.Unix(event.Timestamp, 0).UTC().Format(time.RFC3339)

	if strings.HasPrefix(event.Type, "bug.") {
		var bug eventbus.BugEvent
		if err := event.Decode(&bug); err == nil {
			fmt.Fprintf(w, "%s %s bug %s %s -> %s\n", ts, color.YellowString(event.Type), bug.BugID, bug.From, bug.To)
			return
		}
	} else {
		var campaign eventbus.CampaignEvent
		if err := event.Decode(&campaign); err == nil {
			fmt.Fprintf(w, "%s %s campaign %s", ts, color.CyanString(event.Type), campaign.CampaignID)
			if campaign.To != "" {
				fmt.Fprintf(w, " %s -> %s", campaign.From, campaign.To)
			}
			fmt.Fprintln(w)
			return
		}
	}
	fmt.Fprintf(w, "%s %s %s\n", ts, event.Type, string(event.Data))
}
