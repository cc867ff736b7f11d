package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mwantia/vesta/pkg/repl"
	"github.com/mwantia/vesta/pkg/runtime"
)

// VersionInfo carries the build identity stamped in by main.
type VersionInfo struct {
	Version string
	Commit  string
}

func NewRootCommand(info VersionInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vesta [script]",
		Short: "Vesta - a homoiconic scripting language",
		Long: `Vesta is an interpreter for a homoiconic, dynamically typed
language in the Rebol family: code is data, data is code.

With no arguments it starts the interactive REPL.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			interactive, _ := cmd.Flags().GetBool("interactive")
			plain, _ := cmd.Flags().GetBool("plain")

			in, err := createInterp(cmd)
			if err != nil {
				return err
			}
			defer in.Shutdown()

			ran := false

			if len(args) == 1 {
				content, err := os.ReadFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to read file: %w", err)
				}
				if err := run(in, string(content)); err != nil {
					return err
				}
				ran = true
			}

			if command, _ := cmd.Flags().GetString("eval"); command != "" {
				if err := run(in, command); err != nil {
					return err
				}
				ran = true
			}

			// A one-shot run closes immediately unless asked to stay open.
			if ran && !interactive {
				return nil
			}

			if plain {
				return repl.New(in, os.Stdin, os.Stdout, os.Stderr).Run(ctx)
			}
			return repl.RunTUI(in)
		},
	}

	cmd.Flags().BoolP("interactive", "i", false, "Keep open after executing (default is 'false')")
	cmd.Flags().StringP("eval", "c", "", "Execute a single Vesta expression")
	cmd.Flags().Bool("plain", false, "Use the line-based REPL instead of the TUI")
	cmd.Flags().Bool("trace", false, "Enable debug tracing")
	cmd.Flags().String("trace-file", "", "Write the trace log to a rotating file")
	cmd.Flags().Int("pool-scale", 1, "Allocator segment scale")
	// Set version printed by './vesta --version'
	cmd.Version = fmt.Sprintf("%s.%s", info.Version, info.Commit)

	return cmd
}

// run evaluates source and prints the molded final value (without the
// REPL's "== " prefix).
func run(in *runtime.Interp, source string) error {
	out, err := in.Do(source)
	if err != nil {
		return fmt.Errorf("runtime error: %w", err)
	}
	if out.Kind() != runtime.KindVoid {
		fmt.Println(runtime.Mold(out))
	}
	in.Release(out)
	return nil
}

// createInterp builds the interpreter from the command's flags.
func createInterp(cmd *cobra.Command) (*runtime.Interp, error) {
	scale, _ := cmd.Flags().GetInt("pool-scale")
	opts := []runtime.Option{
		runtime.WithPoolScale(scale),
		runtime.WithStdout(os.Stdout),
	}

	trace, _ := cmd.Flags().GetBool("trace")
	traceFile, _ := cmd.Flags().GetString("trace-file")

	if trace || traceFile != "" {
		logOpts := &hclog.LoggerOptions{
			Name:  "vesta",
			Level: hclog.Debug,
		}
		if trace {
			logOpts.Level = hclog.Trace
		}
		if traceFile != "" {
			logOpts.Output = &lumberjack.Logger{
				Filename:   traceFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
			}
		}
		opts = append(opts, runtime.WithLogger(hclog.New(logOpts)))
	}

	return runtime.New(opts...), nil
}
