package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"grepconsole/src/contracts"
	"grepconsole/src/grep"
	"grepconsole/src/pipeline"
	"grepconsole/src/store"
)

// pinCmd groups the pin management commands
var pinCmd = &cobra.Command{
	Use:   "pin",
	Short: "Manage pinned grep consoles",
	Long: `Pinned grep consoles are reopened by 'run --name <run configuration>'.
Pins live in Postgres when DATABASE_URL is set.`,
}

var pinAddFlags struct {
	grep   grepFlags
	parent string
}

var pinListCmd = &cobra.Command{
	Use:   "list <run-configuration>",
	Short: "List the pinned grep consoles of a run configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st store.Store) error {
			pins, err := st.ListPins(ctx, args[0])
			if err != nil {
				return err
			}
			if len(pins) == 0 {
				fmt.Printf("No pinned grep consoles for %s\n", args[0])
				return nil
			}
			for _, pin := range pins {
				fmt.Println(formatPin(pin))
			}
			return nil
		})
	},
}

var pinAddCmd = &cobra.Command{
	Use:   "add <run-configuration>",
	Short: "Pin a grep console to a run configuration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model := pinAddFlags.grep.model()
		if _, err := grep.Compile(model); err != nil {
			return wrapError(err)
		}
		return withStore(func(ctx context.Context, st store.Store) error {
			if _, err := ensureRunConfiguration(ctx, st, args[0]); err != nil {
				return err
			}
			pin := contracts.PinnedGrep{
				ConsoleUUID:       uuid.NewString(),
				ParentConsoleUUID: pinAddFlags.parent,
				RunConfiguration:  args[0],
				Model:             model.ToContract(),
			}
			if err := st.SavePin(ctx, pin); err != nil {
				return err
			}
			fmt.Println(pin.ConsoleUUID)
			return nil
		})
	},
}

var pinRmCmd = &cobra.Command{
	Use:   "rm <run-configuration> <console-uuid>",
	Short: "Remove a pinned grep console",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, st store.Store) error {
			return st.DeletePin(ctx, args[0], args[1])
		})
	},
}

func init() {
	pinAddFlags.grep.register(pinAddCmd)
	pinAddCmd.Flags().StringVar(&pinAddFlags.parent, "parent", "", "console UUID of the pinned grep this one is derived from")
	pinCmd.AddCommand(pinListCmd, pinAddCmd, pinRmCmd)
}

func withStore(fn func(ctx context.Context, st store.Store) error) error {
	ctx := context.Background()
	if appConfig.DatabaseURL == "" {
		log.Warn("DATABASE_URL is not set; pins are not kept after this command")
	}
	st, err := pipeline.OpenStore(ctx, appConfig)
	if err != nil {
		return wrapError(err)
	}
	defer st.Close()
	return wrapError(fn(ctx, st))
}

func formatPin(pin contracts.PinnedGrep) string {
	flags := ""
	for _, f := range []struct {
		set  bool
		name string
	}{
		{pin.Model.CaseSensitive, "case"},
		{pin.Model.WholeWords, "words"},
		{pin.Model.Regex, "regex"},
		{pin.Model.Exclude, "exclude"},
	} {
		if f.set {
			flags += " +" + f.name
		}
	}
	line := fmt.Sprintf("%s  %q%s", pin.ConsoleUUID, pin.Model.Expression, flags)
	if pin.ParentConsoleUUID != "" {
		line += "  (from " + pin.ParentConsoleUUID + ")"
	}
	return line
}
