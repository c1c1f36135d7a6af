// Package cmd provides the command-line interface of the cache simulator.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/cachesim/analysis"
	"github.com/sarchlab/cachesim/cache"
	"github.com/sarchlab/cachesim/config"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/simulation"
	"github.com/sarchlab/cachesim/trace"
)

// exitError carries the exit code of a failed run. Its message has already
// been printed.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return "exit status " + strconv.Itoa(e.code)
}

type options struct {
	envFile string

	record        string
	recordBackend string

	clickHouseAddr     string
	clickHouseDB       string
	clickHouseUser     string
	clickHousePassword string

	perfPeriod uint64
	perfCSV    string

	monitor     bool
	monitorPort int
	openBrowser bool

	verbose bool
}

// NewRootCommand creates the cachesim command. The results are written to
// stdout and the logs to stderr.
func NewRootCommand(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "cachesim [flags] <size> <assoc> <replacement> <write> <trace>",
		Short: "Cachesim replays a memory access trace on a set-associative cache.",
		Long: `Cachesim replays a memory access trace on a set-associative ` +
			`cache with 64-byte blocks and reports the miss ratio and the ` +
			`traffic to the backing memory. Replacement 0 selects LRU and ` +
			`any other value FIFO. Write 1 selects write-back and any other ` +
			`value write-through.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args, stdout, stderr)
		},
	}

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	// Positional arguments may be negative numbers, so flags must come
	// first.
	rootCmd.Flags().SetInterspersed(false)

	flags := rootCmd.Flags()
	flags.StringVar(&opts.envFile, "env-file", "",
		"dotenv file with CACHESIM_* defaults (default .env if present)")
	flags.StringVar(&opts.record, "record", "",
		"record every access and a run summary under this name")
	flags.StringVar(&opts.recordBackend, "record-backend", config.BackendSQLite,
		"recording backend, sqlite or clickhouse")
	flags.StringVar(&opts.clickHouseAddr, "clickhouse-addr", "",
		"ClickHouse server address")
	flags.StringVar(&opts.clickHouseDB, "clickhouse-db", "",
		"ClickHouse database")
	flags.StringVar(&opts.clickHouseUser, "clickhouse-user", "",
		"ClickHouse user")
	flags.StringVar(&opts.clickHousePassword, "clickhouse-password", "",
		"ClickHouse password")
	flags.Uint64Var(&opts.perfPeriod, "perf-period", 0,
		"report the miss ratio every this many accesses, 0 for the whole run")
	flags.StringVar(&opts.perfCSV, "perf-csv", "",
		"write the miss ratio report into this CSV file instead of the recording")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"serve the progress and statistics over HTTP")
	flags.IntVar(&opts.monitorPort, "monitor-port", 0,
		"port of the monitor, random if 0")
	flags.BoolVar(&opts.openBrowser, "open-browser", false,
		"open the monitor in a browser")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"print debug logs")

	return rootCmd
}

// Run executes the command with the given arguments and returns the exit
// code.
func Run(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCommand(stdout, stderr)
	rootCmd.SetArgs(markPositionals(rootCmd.Flags(), args))

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)

	return 1
}

// markPositionals inserts "--" before the first positional argument when it
// is a negative number, which would otherwise be parsed as shorthand flags.
func markPositionals(flags *pflag.FlagSet, args []string) []string {
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch {
		case arg == "--" || !strings.HasPrefix(arg, "-"):
			return args
		case isNumber(arg):
			marked := make([]string, 0, len(args)+1)
			marked = append(marked, args[:i]...)
			marked = append(marked, "--")

			return append(marked, args[i:]...)
		case strings.Contains(arg, "="):
		case strings.HasPrefix(arg, "--"):
			if takesValue(flags.Lookup(arg[2:])) {
				i++
			}
		case len(arg) == 2:
			if takesValue(flags.ShorthandLookup(arg[1:])) {
				i++
			}
		}
	}

	return args
}

func isNumber(arg string) bool {
	_, err := strconv.Atoi(arg)
	return err == nil
}

// takesValue tells if the flag consumes the next argument as its value.
func takesValue(f *pflag.Flag) bool {
	return f != nil && f.NoOptDefVal == ""
}

// Execute runs the command on the process arguments and exits. Recorders
// are flushed on the way out.
func Execute() {
	atexit.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}

type cacheArgs struct {
	byteSize    int
	assoc       int
	replacement int
	write       int
	tracePath   string
}

func parseArgs(args []string) (cacheArgs, error) {
	var (
		a   cacheArgs
		err error
	)

	for i, dst := range []*int{&a.byteSize, &a.assoc, &a.replacement, &a.write} {
		*dst, err = strconv.Atoi(args[i])
		if err != nil {
			return cacheArgs{}, err
		}
	}

	a.tracePath = args[4]

	return a, nil
}

func (a cacheArgs) replacementPolicy() cache.ReplacementPolicy {
	if a.replacement == 0 {
		return cache.LRU
	}

	return cache.FIFO
}

func (a cacheArgs) writePolicy() cache.WritePolicy {
	if a.write == 1 {
		return cache.WriteBack
	}

	return cache.WriteThrough
}

func run(
	cmd *cobra.Command,
	opts *options,
	args []string,
	stdout, stderr io.Writer,
) error {
	if len(args) != 5 {
		return nil
	}

	cArgs, err := parseArgs(args)
	if err != nil {
		fmt.Fprintln(stdout, "Error: Invalid arguments")
		return &exitError{code: 1}
	}

	if err := applyConfig(cmd, opts); err != nil {
		return err
	}

	if opts.perfPeriod > 0 && opts.perfCSV == "" && opts.record == "" {
		return errors.New("--perf-period needs --record or --perf-csv")
	}

	log := newLogger(stderr, opts.verbose)

	model, err := cache.New(cArgs.byteSize, cArgs.assoc,
		cArgs.replacementPolicy(), cArgs.writePolicy())
	if err != nil {
		fmt.Fprintf(stdout, "Error: %v\n", err)
		return &exitError{code: 1}
	}

	traceFile, err := trace.Open(cArgs.tracePath)
	if err != nil {
		log.WithError(err).Debug("cannot open trace")
		fmt.Fprintln(stdout, "Error: Could not open the trace file.")

		return &exitError{code: 1}
	}
	defer traceFile.Close()

	builder := simulation.MakeBuilder().
		WithModel(model).
		WithLogger(log)

	var recorder datarecording.DataRecorder
	if opts.record != "" {
		recorder = newRecorder(opts)
		builder = builder.WithDataRecorder(recorder)
	}

	if opts.perfPeriod > 0 || opts.perfCSV != "" {
		builder = builder.WithPerfAnalyzer(newPerfAnalyzer(opts, recorder))
	}

	var monitor *monitoring.Monitor
	if opts.monitor {
		monitor, err = startMonitor(opts, log)
		if err != nil {
			return err
		}
		defer stopMonitor(monitor, log)

		builder = builder.WithMonitor(monitor)
	}

	sim, err := builder.Build()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	stats, err := sim.Run(ctx, traceFile)
	if err != nil {
		log.WithError(err).Error("simulation interrupted")
		_ = sim.Terminate()

		return &exitError{code: 1}
	}

	if err := sim.Terminate(); err != nil {
		log.WithError(err).Warn("closing the recorder failed")
	}

	fmt.Fprintf(stdout, "Miss Ratio: %.6f\n", stats.MissRatio())
	fmt.Fprintf(stdout, "Writes: %d\n", stats.Writes)
	fmt.Fprintf(stdout, "Reads: %d\n", stats.Reads)

	return nil
}

// applyConfig fills the flags that were not given on the command line from
// the environment.
func applyConfig(cmd *cobra.Command, opts *options) error {
	c, err := config.Load(opts.envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()

	setString := func(name string, dst *string, v string) {
		if !flags.Changed(name) {
			*dst = v
		}
	}

	setBool := func(name string, dst *bool, v bool) {
		if !flags.Changed(name) {
			*dst = v
		}
	}

	setString("record", &opts.record, c.Record)
	setString("record-backend", &opts.recordBackend, c.RecordBackend)
	setString("clickhouse-addr", &opts.clickHouseAddr, c.ClickHouseAddr)
	setString("clickhouse-db", &opts.clickHouseDB, c.ClickHouseDB)
	setString("clickhouse-user", &opts.clickHouseUser, c.ClickHouseUser)
	setString("clickhouse-password", &opts.clickHousePassword,
		c.ClickHousePassword)
	setBool("monitor", &opts.monitor, c.Monitor)
	setBool("open-browser", &opts.openBrowser, c.OpenBrowser)
	setBool("verbose", &opts.verbose, c.Verbose)

	if !flags.Changed("monitor-port") {
		opts.monitorPort = c.MonitorPort
	}

	switch opts.recordBackend {
	case config.BackendSQLite, config.BackendClickHouse:
		return nil
	default:
		return fmt.Errorf("unknown record backend %q", opts.recordBackend)
	}
}

func newLogger(out io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	return log
}

func newRecorder(opts *options) datarecording.DataRecorder {
	if opts.recordBackend == config.BackendClickHouse {
		return datarecording.NewClickHouseRecorder(datarecording.ClickHouseOptions{
			Addr:     opts.clickHouseAddr,
			Database: opts.clickHouseDB,
			Username: opts.clickHouseUser,
			Password: opts.clickHousePassword,
		})
	}

	return datarecording.NewDataRecorder(opts.record)
}

func newPerfAnalyzer(
	opts *options,
	recorder datarecording.DataRecorder,
) *analysis.PerfAnalyzer {
	builder := analysis.MakePerfAnalyzerBuilder().WithPeriod(opts.perfPeriod)

	if opts.perfCSV != "" {
		builder = builder.WithCSVBackend(opts.perfCSV)
	} else {
		builder = builder.WithRecorderBackend(recorder)
	}

	return builder.Build()
}

func startMonitor(
	opts *options,
	log logrus.FieldLogger,
) (*monitoring.Monitor, error) {
	monitor := monitoring.NewMonitor(log).WithPortNumber(opts.monitorPort)

	url, err := monitor.StartServer()
	if err != nil {
		return nil, fmt.Errorf("starting monitor: %w", err)
	}

	if opts.openBrowser {
		monitor.OpenBrowser(url)
	}

	return monitor, nil
}

func stopMonitor(monitor *monitoring.Monitor, log logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := monitor.StopServer(ctx); err != nil {
		log.WithError(err).Warn("stopping monitor failed")
	}
}
