package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/creack/pty"
	"golang.org/x/text/encoding"

	"grepconsole/src/contracts"
	"grepconsole/src/logger"
)

// Producer ids of the streams a Command writes.
const (
	ProducerStdout = "stdout"
	ProducerStderr = "stderr"
	ProducerPTY    = "pty"
	ProducerSystem = "system"
)

// Command is a process whose output is streamed into a console.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string // appended to the current environment

	// Encoding is the character set of the output. nil means UTF-8.
	Encoding encoding.Encoding
	// Rows and Cols size the pseudo terminal of RunPTY. Zero keeps the default.
	Rows, Cols uint16

	Logger logger.Logger
}

// Exit describes how a command finished.
type Exit struct {
	Code int
	Err  error // set when the process could not be started or waited for
}

func (c *Command) log() logger.Logger {
	if c.Logger == nil {
		return logger.NewSilentLogger()
	}
	return c.Logger
}

func (c *Command) command(ctx context.Context) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	return cmd
}

func (c *Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Run starts the process with separate stdout and stderr pipes and streams both
// into dst until the process exits. Stderr is written as error content. A
// system line with the exit code is written last.
func (c *Command) Run(ctx context.Context, dst ChunkWriter) Exit {
	log := c.log()
	cmd := c.command(ctx)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return c.fail(dst, fmt.Errorf("stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return c.fail(dst, fmt.Errorf("stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return c.fail(dst, fmt.Errorf("start %s: %w", c.Name, err))
	}
	log.Debug("[Command] Started %s (pid %d)", c, cmd.Process.Pid)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := ReadFrom(ctx, stdout, ProducerStdout, contracts.ContentNormal, c.Encoding, dst); err != nil {
			log.Warn("[Command] %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := ReadFrom(ctx, stderr, ProducerStderr, contracts.ContentError, c.Encoding, dst); err != nil {
			log.Warn("[Command] %v", err)
		}
	}()
	// Pipes must be drained before Wait closes them.
	wg.Wait()

	return c.finish(dst, cmd.Wait())
}

// RunPTY starts the process on a pseudo terminal and streams its output into
// dst until the process exits. Stdout and stderr share the terminal, so all
// output is written as normal content under the pty producer.
func (c *Command) RunPTY(ctx context.Context, dst ChunkWriter) Exit {
	log := c.log()
	cmd := c.command(ctx)

	var size *pty.Winsize
	if c.Rows > 0 && c.Cols > 0 {
		size = &pty.Winsize{Rows: c.Rows, Cols: c.Cols}
	}
	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return c.fail(dst, fmt.Errorf("start %s on pty: %w", c.Name, err))
	}
	defer ptmx.Close()
	log.Debug("[Command] Started %s on pty (pid %d)", c, cmd.Process.Pid)

	if err := ReadFrom(ctx, ptmx, ProducerPTY, contracts.ContentNormal, c.Encoding, dst); err != nil {
		log.Warn("[Command] %v", err)
	}
	return c.finish(dst, cmd.Wait())
}

func (c *Command) fail(dst ChunkWriter, err error) Exit {
	c.log().Error("[Command] %v", err)
	writeSystem(dst, fmt.Sprintf("Failed to run %s: %v\n", c, err))
	return Exit{Code: -1, Err: err}
}

func (c *Command) finish(dst ChunkWriter, err error) Exit {
	exit := Exit{}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		exit.Code = exitErr.ExitCode()
	default:
		exit.Code = -1
		exit.Err = err
	}
	writeSystem(dst, fmt.Sprintf("\nProcess finished with exit code %d\n", exit.Code))
	c.log().Debug("[Command] %s exited with code %d", c, exit.Code)
	return exit
}

func writeSystem(dst ChunkWriter, text string) {
	dst.Write(contracts.Chunk{Producer: ProducerSystem, Text: text, Type: contracts.ContentSystem})
}
