package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"grepconsole/src/console"
	"grepconsole/src/grep"
	"grepconsole/src/ingest"
	"grepconsole/src/logger"
	"grepconsole/src/pipeline"
	"grepconsole/src/sink"
	"grepconsole/src/source"
	"grepconsole/src/tui"
)

// flushTimeout bounds publishing the matches still queued when a run ends.
const flushTimeout = 5 * time.Second

var runFlags struct {
	grep     grepFlags
	name     string
	dir      string
	encoding string
	pty      bool
	publish  bool
	noTUI    bool
}

// runCmd runs a command and greps its output
var runCmd = &cobra.Command{
	Use:   "run [flags] command [args...]",
	Short: "Run a command and grep its output live",
	Long: `Run a command and show its output next to a grep console that follows it.

Everything the command already printed is replayed into a grep console when it
is opened or changed, so an expression can be refined while the command runs.

With --name the grep consoles pinned to that run configuration are reopened,
and consoles pinned from the UI are remembered for the next run (persistent
with DATABASE_URL).

With --publish the output and the matched lines are published to the broker
so 'consume' and 'serve' in other processes can follow them.

Example:
  grepconsole run -e error -- make test
  grepconsole run --no-tui -r -e 'FAIL|panic' go test ./...`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapError(runCommand(args))
	},
}

func init() {
	runFlags.grep.register(runCmd)
	flags := runCmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&runFlags.name, "name", "n", "", "run configuration name; reopens its pinned grep consoles")
	flags.StringVar(&runFlags.dir, "dir", "", "working directory of the command")
	flags.StringVar(&runFlags.encoding, "encoding", "", "character set of the command output (default utf-8)")
	flags.BoolVar(&runFlags.pty, "pty", false, "run the command on a pseudo terminal")
	flags.BoolVar(&runFlags.publish, "publish", false, "publish output and matches to the broker")
	flags.BoolVar(&runFlags.noTUI, "no-tui", false, "print matched lines instead of starting the interactive UI")
}

func runCommand(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc, err := sourceEncoding(runFlags.encoding)
	if err != nil {
		return err
	}
	if runFlags.grep.set() {
		if _, err := grep.Compile(runFlags.grep.model()); err != nil {
			return err
		}
	}

	useTUI := !runFlags.noTUI
	runLog := log
	if useTUI {
		// The UI owns the terminal.
		runLog = logger.NewSilentLogger()
	}

	p, err := pipeline.Open(ctx, appConfig, runLog)
	if err != nil {
		return err
	}
	defer p.Close()

	writer := sink.NewWriter(os.Stdout, os.Stderr, "")
	var bridge *tui.Bridge
	var notifier grep.Notifier = writer
	if useTUI {
		bridge = tui.NewBridge()
		notifier = bridge
	}

	command := &source.Command{
		Name:     args[0],
		Args:     args[1:],
		Dir:      runFlags.dir,
		Encoding: enc,
		Logger:   runLog,
	}
	src := console.New(console.Options{
		Name:         command.String(),
		HistoryLines: appConfig.HistoryLines,
		Profile:      appConfig.Profile(),
		Logger:       runLog,
		Notifier:     notifier,
	})

	if runFlags.publish {
		if _, err := src.Attach(ingest.NewPublisher(ctx, p.Broker, src.ID(), runLog), false); err != nil {
			return err
		}
		runLog.Info("Publishing output of console %s", src.ID())
	}

	greps, pins, err := openGreps(ctx, p, src, runLog)
	if err != nil {
		return err
	}

	var brokerSinks []*sink.BrokerSink
	if !useTUI {
		for _, g := range greps {
			prefix := ""
			if len(greps) > 1 {
				prefix = "[" + g.Title() + "] "
			}
			if _, err := g.Attach(console.SinkListener(sink.NewWriter(os.Stdout, os.Stderr, prefix)), false); err != nil {
				return err
			}
		}
	}
	if runFlags.publish {
		for _, g := range greps {
			bs := sink.NewBrokerSink(p.Broker, g.ID(), g.Title, runLog)
			go bs.Run(ctx)
			if _, err := g.Attach(console.SinkListener(bs), false); err != nil {
				return err
			}
			brokerSinks = append(brokerSinks, bs)
		}
	}

	cmdCtx, cancelCmd := context.WithCancel(ctx)
	defer cancelCmd()
	exitCh := make(chan source.Exit, 1)
	go func() {
		if runFlags.pty {
			exitCh <- command.RunPTY(cmdCtx, src)
		} else {
			exitCh <- command.Run(cmdCtx, src)
		}
	}()

	var exit source.Exit
	if useTUI {
		var pinFn tui.PinFunc
		if pins != nil {
			pinFn = pins.pin
		}
		if err := runUI(ctx, bridge, src, greps[0], pinFn); err != nil {
			return err
		}
		cancelCmd()
		exit = <-exitCh
	} else {
		exit = <-exitCh
	}

	flushBrokerSinks(brokerSinks, runLog)

	if exit.Err != nil && !errors.Is(cmdCtx.Err(), context.Canceled) {
		return exit.Err
	}
	if exit.Code != 0 && !useTUI {
		return errProcessExit{code: exit.Code}
	}
	return nil
}

// openGreps opens the grep consoles of a run: the pinned ones of the run
// configuration, and one for the grep flags. Without either an empty grep
// console is opened for the UI.
func openGreps(ctx context.Context, p *pipeline.Pipeline, src *console.Console, log logger.Logger) ([]*console.Console, *pinner, error) {
	var greps []*console.Console
	var pins *pinner
	var opts console.GrepOptions

	if runFlags.name != "" {
		if appConfig.DatabaseURL == "" {
			log.Warn("Pins are kept in memory; set DATABASE_URL to keep them between runs")
		}
		pins = &pinner{ctx: ctx, store: p.Store, runConfig: runFlags.name, log: log}
		opts.OnApply = pins.onApply

		if _, err := ensureRunConfiguration(ctx, p.Store, runFlags.name); err != nil {
			return nil, nil, err
		}
		saved, err := p.Store.ListPins(ctx, runFlags.name)
		if err != nil {
			return nil, nil, err
		}
		greps = restorePins(src, saved, pins.onApply, log)
		log.Info("Reopened %d pinned grep consoles of %s", len(greps), runFlags.name)
	}

	if runFlags.grep.set() || len(greps) == 0 {
		g, err := src.OpenGrep(runFlags.grep.modelOrNil(), opts)
		if err != nil {
			return nil, nil, err
		}
		greps = append([]*console.Console{g}, greps...)
	}
	return greps, pins, nil
}

// runUI shows src and g until the user quits.
func runUI(ctx context.Context, bridge *tui.Bridge, src, g *console.Console, pin tui.PinFunc) error {
	for _, c := range []*console.Console{src, g} {
		detach, err := bridge.Watch(c)
		if err != nil {
			return err
		}
		defer detach()
	}

	model := tui.NewMainModel(tui.Options{Source: src, Grep: g, Pin: pin})
	program := tui.Program(model, tea.WithContext(ctx))

	bridgeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go bridge.Run(bridgeCtx, program)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func flushBrokerSinks(sinks []*sink.BrokerSink, log logger.Logger) {
	if len(sinks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for _, bs := range sinks {
		if err := bs.Flush(ctx); err != nil {
			log.Warn("Failed to publish remaining matches: %v", err)
		}
		if n := bs.Dropped(); n > 0 {
			log.Warn("%d matched lines were dropped while the broker was slow", n)
		}
	}
}
