package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tsgonest/tsoapi/internal/config"
	"github.com/tsgonest/tsoapi/internal/watcher"
)

// GenerateOptions captures everything that influences one generate run after
// merging flags over the config file.
type GenerateOptions struct {
	// Cwd is the directory relative paths resolve against.
	Cwd string
	// ConfigPath is empty when the config file should be discovered.
	ConfigPath string
	// Files override the config's entry globs when non-empty.
	Files []string
	Out   string
	// Indent overrides the config indent when non-nil.
	Indent  *config.Indent
	Force   bool
	Watch   bool
	Strict  bool
	Quiet   bool
	Timing  bool
	Verbose bool

	Stderr io.Writer
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [files or globs...]",
		Short: "Generate the OpenAPI document",
		Long: "Generate the OpenAPI document for the controllers matched by the config's files globs, " +
			"or by the given arguments. Nothing is written when generation fails.",
		Example: strings.TrimSpace(`  tsoapi generate
  tsoapi generate --out openapi.yaml --indent 2
  tsoapi -c api/tsoapi.config.json generate 'src/controllers/**/*.ts'
  tsoapi generate --watch`),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveGenerateOptions(cmd, args)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringP("out", "o", "", "Output file (overrides outputFile)")
	flags.String("indent", "", "JSON indentation: a number of spaces or a literal string")
	flags.Bool("force", false, "Regenerate even if the build cache is up to date")
	flags.Bool("watch", false, "Regenerate whenever a source file changes")
	flags.Bool("strict", false, "Treat warnings as errors")
	flags.Bool("quiet", false, "Suppress warnings")
	flags.Bool("timing", false, "Print a timing breakdown")

	return cmd
}

func resolveGenerateOptions(cmd *cobra.Command, args []string) (*GenerateOptions, error) {
	opts, err := baseOptions(cmd, args)
	if err != nil {
		return nil, err
	}
	if err := applyGenerateFlags(cmd.Flags(), opts); err != nil {
		return nil, err
	}
	if opts.Strict && opts.Quiet {
		return nil, newUsageError("generate: --strict and --quiet are mutually exclusive")
	}
	return opts, nil
}

// baseOptions reads the persistent flags shared by every command.
func baseOptions(cmd *cobra.Command, args []string) (*GenerateOptions, error) {
	opts := &GenerateOptions{Files: args, Stderr: cmd.ErrOrStderr()}

	flags := cmd.Flags()
	var err error
	if opts.ConfigPath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if opts.Cwd, err = flags.GetString("cwd"); err != nil {
		return nil, err
	}
	if opts.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}
	opts.ConfigPath = strings.TrimSpace(opts.ConfigPath)
	if opts.Cwd == "" {
		if opts.Cwd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("could not get working directory: %w", err)
		}
	}
	return opts, nil
}

func applyGenerateFlags(flags *pflag.FlagSet, opts *GenerateOptions) error {
	var err error
	if flags.Changed("out") {
		if opts.Out, err = flags.GetString("out"); err != nil {
			return err
		}
		opts.Out = strings.TrimSpace(opts.Out)
	}
	if flags.Changed("indent") {
		value, err := flags.GetString("indent")
		if err != nil {
			return err
		}
		indent, err := parseIndent(value)
		if err != nil {
			return err
		}
		opts.Indent = &indent
	}
	for name, dst := range map[string]*bool{
		"force":  &opts.Force,
		"watch":  &opts.Watch,
		"strict": &opts.Strict,
		"quiet":  &opts.Quiet,
		"timing": &opts.Timing,
	} {
		if *dst, err = flags.GetBool(name); err != nil {
			return err
		}
	}
	return nil
}

// parseIndent reads a number of spaces, or takes the value literally with
// "\t" unescaped.
func parseIndent(value string) (config.Indent, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return "", newUsageError(fmt.Sprintf("generate: invalid --indent %d", n))
		}
		return config.Indent(strings.Repeat(" ", min(n, 10))), nil
	}
	return config.Indent(strings.ReplaceAll(value, `\t`, "\t")), nil
}

func runGenerate(ctx context.Context, opts *GenerateOptions) error {
	logger := newLogger(opts.Stderr, opts.Verbose)

	res, err := generate(ctx, opts, logger, opts.Force || opts.Watch)
	if !opts.Watch {
		return err
	}
	if err != nil {
		fmt.Fprintf(opts.Stderr, "error: %v\n", err)
	}

	dirs, configPath := watchTargets(opts, res)
	logger.Info("watching for changes", "dirs", strings.Join(dirs, ", "))

	var mu sync.Mutex
	w := watcher.New(dirs, []string{".ts", ".tsx"}, watcher.DefaultDebounce, func(events []watcher.Event) {
		mu.Lock()
		defer mu.Unlock()
		logger.Debug("change detected", "events", len(events), "first", events[0].Path)
		if _, err := generate(ctx, opts, logger, true); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(opts.Stderr, "error: %v\n", err)
		}
	})
	if configPath != "" {
		w.AddFile(configPath)
	}
	return w.Watch(ctx)
}

// timings records per-phase durations for --timing.
type timings struct {
	config, discovery, program, controllers, document, compliance, write time.Duration
	total                                                                time.Duration
}

func (t timings) print(w io.Writer) {
	fmt.Fprintf(w, "\n--- timing ---\n")
	fmt.Fprintf(w, "  config:        %s\n", t.config.Round(time.Millisecond))
	fmt.Fprintf(w, "  discovery:     %s\n", t.discovery.Round(time.Millisecond))
	fmt.Fprintf(w, "  program:       %s\n", t.program.Round(time.Millisecond))
	fmt.Fprintf(w, "  controllers:   %s\n", t.controllers.Round(time.Millisecond))
	fmt.Fprintf(w, "  document:      %s\n", t.document.Round(time.Millisecond))
	fmt.Fprintf(w, "  compliance:    %s\n", t.compliance.Round(time.Millisecond))
	fmt.Fprintf(w, "  write:         %s\n", t.write.Round(time.Millisecond))
	fmt.Fprintf(w, "  total:         %s\n", t.total.Round(time.Millisecond))
}
