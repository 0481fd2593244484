package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"grepconsole/src/console"
	"grepconsole/src/pipeline"
	"grepconsole/src/sink"
)

var consumeFlags struct {
	grep    grepFlags
	publish bool
}

// consumeCmd greps output published by other processes
var consumeCmd = &cobra.Command{
	Use:   "consume [console-id]",
	Short: "Grep console output published to the broker",
	Long: `Follow the output that 'run --publish' publishes and print the lines the
grep expression forwards. Without a console id the output of every published
console is grepped; lines of different processes and streams never mix.

Requires distributed mode (REDPANDA_BROKERS).

Example:
  grepconsole consume -e error 0b7c6f2e-5d1a-4f7e-9a51-3f1f2f0e8c11`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		consoleID := ""
		if len(args) == 1 {
			consoleID = args[0]
		}
		return wrapError(consumeOutput(consoleID))
	},
}

func init() {
	consumeFlags.grep.register(consumeCmd)
	consumeCmd.Flags().BoolVar(&consumeFlags.publish, "publish", false, "publish matched lines to the matches topic")
}

func consumeOutput(consoleID string) error {
	if err := requireDistributed("consume"); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.Open(ctx, appConfig, log)
	if err != nil {
		return err
	}
	defer p.Close()

	writer := sink.NewWriter(os.Stdout, os.Stderr, "")
	name := "published output"
	if consoleID != "" {
		name = consoleID
	}
	src := console.New(console.Options{
		Name:         name,
		HistoryLines: appConfig.HistoryLines,
		Profile:      appConfig.Profile(),
		Logger:       log,
		Notifier:     writer,
	})
	model := consumeFlags.grep.model()
	g, err := src.OpenGrep(&model, console.GrepOptions{})
	if err != nil {
		return err
	}
	if _, err := g.Attach(console.SinkListener(writer), false); err != nil {
		return err
	}
	if consumeFlags.publish {
		bs := sink.NewBrokerSink(p.Broker, g.ID(), g.Title, log)
		go bs.Run(ctx)
		if _, err := g.Attach(console.SinkListener(bs), false); err != nil {
			return err
		}
		log.Info("Publishing matches of grep console %s", g.ID())
	}

	pipeline.Start(ctx, p.Broker, src, consoleID)
	log.Info("Consuming %s, press Ctrl+C to stop", name)
	<-ctx.Done()
	return nil
}
