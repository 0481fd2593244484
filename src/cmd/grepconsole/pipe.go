package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"grepconsole/src/console"
	"grepconsole/src/contracts"
	"grepconsole/src/sink"
	"grepconsole/src/source"
)

const stdinProducer = "stdin"

var pipeFlags struct {
	grep     grepFlags
	encoding string
}

// pipeCmd greps standard input
var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "Grep standard input",
	Long: `Read standard input as console output and print the lines the grep
expression forwards. Input is passed on line by line, so a line split across
reads is still matched as one line, and a last line without a newline is
matched when the input ends.

Example:
  tail -f server.log | grepconsole pipe -e timeout`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return wrapError(pipeInput())
	},
}

func init() {
	pipeFlags.grep.register(pipeCmd)
	pipeCmd.Flags().StringVar(&pipeFlags.encoding, "encoding", "", "character set of the input (default utf-8)")
}

func pipeInput() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	enc, err := sourceEncoding(pipeFlags.encoding)
	if err != nil {
		return err
	}

	writer := sink.NewWriter(os.Stdout, os.Stderr, "")
	src := console.New(console.Options{
		Name:         stdinProducer,
		HistoryLines: appConfig.HistoryLines,
		Profile:      appConfig.Profile(),
		Logger:       log,
		Notifier:     writer,
	})
	model := pipeFlags.grep.model()
	g, err := src.OpenGrep(&model, console.GrepOptions{})
	if err != nil {
		return err
	}
	if _, err := g.Attach(console.SinkListener(writer), false); err != nil {
		return err
	}

	dst := &terminatingWriter{dst: src}
	if err := source.ReadFrom(ctx, os.Stdin, stdinProducer, contracts.ContentNormal, enc, dst); err != nil && ctx.Err() == nil {
		return err
	}
	dst.finish()
	return nil
}

// terminatingWriter passes complete lines on and holds the unterminated rest of
// the input until its newline arrives. At the end of input the held text goes
// out as one terminated line, so it is matched however long stdin stayed open
// after it.
type terminatingWriter struct {
	dst         source.ChunkWriter
	producer    string
	contentType contracts.ContentType
	tail        string
}

func (w *terminatingWriter) Write(chunk contracts.Chunk) {
	w.producer, w.contentType = chunk.Producer, chunk.Type
	text := w.tail + chunk.Text
	i := strings.LastIndexByte(text, '\n')
	w.tail = text[i+1:]
	if i >= 0 {
		w.dst.Write(contracts.Chunk{Producer: chunk.Producer, Text: text[:i+1], Type: chunk.Type})
	}
}

func (w *terminatingWriter) finish() {
	if w.tail != "" {
		w.dst.Write(contracts.Chunk{Producer: w.producer, Text: w.tail + "\n", Type: w.contentType})
		w.tail = ""
	}
}
