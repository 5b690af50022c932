package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"tinygo.org/x/go-llvm"

	"github.com/thiremani/safec/codegen"
	"github.com/thiremani/safec/compiler"
	"github.com/thiremani/safec/config"
	"github.com/thiremani/safec/diag"
	"github.com/thiremani/safec/ir"
	"github.com/thiremani/safec/parser"
)

const (
	EMIT_IR   = "ir"
	EMIT_LLVM = "llvm"

	IR_SUFFIX   = ".ir"
	LLVM_SUFFIX = ".ll"
)

var validEmits = []string{EMIT_IR, EMIT_LLVM}

// errFailed is returned once diagnostics have been written; main only sets
// the exit status for it.
var errFailed = errors.New("instrumentation failed")

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Cache   string
}

// InstrumentOptions holds flags for the instrument command.
type InstrumentOptions struct {
	*RootOptions
	Config     string
	Nonnull    bool
	Boundary   bool
	SafeRegion bool
	Emit       string
	Report     string
	Output     string
	NoCache    bool
}

func newRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "safecc",
		Short: "safecc - enhanced-C safety instrumentation",
		Long: `safecc derives nullability and bounds contracts from __attribute__
annotations in C sources, injects runtime checks and reports violations it
can prove statically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
			slog.SetDefault(slog.New(handler))
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Cache, "cache", "", "cache directory (default $SAFECCACHE or the user cache dir)")

	cmd.AddCommand(newInstrumentCommand(opts))
	cmd.AddCommand(newRuntimeCommand(opts))
	cmd.AddCommand(newCleanCommand(opts))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	})
	return cmd
}

func (o *RootOptions) cacheDir() string {
	if o.Cache != "" {
		return o.Cache
	}
	return defaultCache()
}

func newInstrumentCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InstrumentOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "instrument <file.c>...",
		Short: "Instrument C sources with nonnull and bounds checks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validEmits, opts.Emit) {
				return fmt.Errorf("invalid emit %q: must be one of %v", opts.Emit, validEmits)
			}
			if !slices.Contains(diag.ValidFormats, opts.Report) {
				return fmt.Errorf("invalid report %q: must be one of %v", opts.Report, diag.ValidFormats)
			}
			policy, err := opts.policy(cmd)
			if err != nil {
				return err
			}
			return runInstrument(cmd, opts, policy, args)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "YAML policy file")
	cmd.Flags().BoolVar(&opts.Nonnull, "nonnull", false, "enable nonnull checking")
	cmd.Flags().BoolVar(&opts.Boundary, "boundary", false, "enable boundary checking")
	cmd.Flags().BoolVar(&opts.SafeRegion, "safe-region", false, "make missing bounds in __Safe__ regions errors")
	cmd.Flags().StringVar(&opts.Emit, "emit", EMIT_LLVM, "output kind (ir|llvm)")
	cmd.Flags().StringVar(&opts.Report, "report", diag.FormatText, "diagnostic format (text|json|sarif)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file, or directory for several inputs")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "do not read or write the output cache")
	return cmd
}

// policy loads the config file, then applies the flags given on the
// command line.
func (o *InstrumentOptions) policy(cmd *cobra.Command) (config.Options, error) {
	policy := config.Default()
	if o.Config != "" {
		var err error
		if policy, err = config.Load(o.Config); err != nil {
			return policy, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("nonnull") {
		policy.NonnullCheck = o.Nonnull
	}
	if flags.Changed("boundary") {
		policy.BoundaryCheck = o.Boundary
	}
	if flags.Changed("safe-region") {
		policy.SafeRegion = o.SafeRegion
	}
	return policy, nil
}

func runInstrument(cmd *cobra.Command, opts *InstrumentOptions, policy config.Options, files []string) error {
	var cache *Cache
	if !opts.NoCache {
		var err error
		if cache, err = OpenCache(opts.cacheDir()); err != nil {
			slog.Warn("cache disabled", "err", err)
		}
	}

	failed := false
	for _, file := range files {
		src, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		entry, err := instrumentCached(cache, file, src, policy, opts)
		if err != nil {
			return err
		}
		if _, err := cmd.ErrOrStderr().Write(entry.Report); err != nil {
			return err
		}
		if entry.Errors > 0 {
			failed = true
			continue
		}
		if err := writeOutput(cmd.OutOrStdout(), opts, file, len(files), entry.Output); err != nil {
			return err
		}
	}
	if failed {
		return errFailed
	}
	return nil
}

func instrumentCached(cache *Cache, file string, src []byte, policy config.Options, opts *InstrumentOptions) (*Entry, error) {
	if cache == nil {
		return instrument(file, src, policy, opts.Emit, opts.Report)
	}
	short, full, err := cacheKey(file, src, policy, opts.Emit, opts.Report)
	if err != nil {
		return nil, err
	}
	if e, ok := cache.Get(short, full); ok {
		return e, nil
	}
	e, err := instrument(file, src, policy, opts.Emit, opts.Report)
	if err != nil {
		return nil, err
	}
	if err := cache.Put(short, full, e); err != nil {
		slog.Warn("cache write failed", "file", file, "err", err)
	}
	return e, nil
}

func newReporter(policy config.Options) *diag.Reporter {
	rep := diag.NewReporter()
	rep.Limit = policy.ErrorLimit
	rep.WarningsAsErrors = policy.WarningsAsErrors
	return rep
}

// instrument runs the front end, the instrumentation and the requested
// back end over one file.
func instrument(file string, src []byte, policy config.Options, emit, report string) (*Entry, error) {
	rep := newReporter(policy)
	slog.Debug("parse", "file", file)
	tu, errs := parser.Parse(file, string(src))
	rep.AddCompileErrors(errs, diag.CodeSyntax)

	var out []byte
	if rep.ErrorCount() == 0 {
		slog.Debug("instrument", "file", file, "nonnull", policy.NonnullCheck,
			"boundary", policy.BoundaryCheck, "safe_region", policy.SafeRegion)
		mod := compiler.Compile(tu, policy, rep)
		if rep.ErrorCount() == 0 {
			var err error
			if out, err = emitModule(mod, emit); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := rep.Write(&buf, report, "safecc", Version); err != nil {
		return nil, err
	}
	return &Entry{Output: out, Report: buf.Bytes(), Errors: rep.ErrorCount()}, nil
}

func emitModule(mod *ir.Module, emit string) ([]byte, error) {
	if emit == EMIT_IR {
		return []byte(mod.String()), nil
	}
	ctx := llvm.NewContext()
	defer ctx.Dispose()
	m, err := codegen.Generate(ctx, mod)
	if err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

func writeOutput(stdout io.Writer, opts *InstrumentOptions, file string, nfiles int, out []byte) error {
	if opts.Output == "" {
		_, err := stdout.Write(out)
		return err
	}
	path := opts.Output
	if nfiles > 1 {
		suffix := LLVM_SUFFIX
		if opts.Emit == EMIT_IR {
			suffix = IR_SUFFIX
		}
		base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		path = filepath.Join(opts.Output, base+suffix)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	slog.Debug("write output", "path", path)
	return os.WriteFile(path, out, 0644)
}

func newRuntimeCommand(rootOpts *RootOptions) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Write the C runtime instrumented programs link against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				id, err := runtimeID()
				if err != nil {
					return err
				}
				dir = filepath.Join(rootOpts.cacheDir(), RUNTIME_DIR, id)
			}
			if err := extractRuntime(dir); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
	cmd.Flags().StringVarP(&dir, "output", "o", "", "output directory")
	return cmd
}

func newCleanCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove cached outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cache, err := OpenCache(rootOpts.cacheDir())
			if err != nil {
				return err
			}
			return cache.Clean()
		},
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, "safecc:", err)
		}
		os.Exit(1)
	}
}
