// Package cli implements the bufdev command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/calvinalkan/bufdev/internal/config"
	"github.com/calvinalkan/bufdev/internal/logging"
	"github.com/calvinalkan/bufdev/internal/metrics"
	"github.com/calvinalkan/bufdev/pkg/bufdev"
)

const shutdownTimeout = 2 * time.Second

// globalFlags are parsed before the command name.
type globalFlags struct {
	fs          *flag.FlagSet
	workDir     string
	configPath  string
	count       int
	capacity    int
	base        int
	singleOpen  bool
	logLevel    string
	metricsAddr string
	help        bool
}

func newGlobalFlags() *globalFlags {
	g := &globalFlags{fs: flag.NewFlagSet("bufdev", flag.ContinueOnError)}

	g.fs.SetInterspersed(false)
	g.fs.SetOutput(io.Discard)
	g.fs.StringVarP(&g.workDir, "cwd", "C", "", "run as if started in `dir`")
	g.fs.StringVarP(&g.configPath, "config", "c", "", "use config `file` instead of .bufdev.json")
	g.fs.IntVar(&g.count, "count", 0, "number of instances")
	g.fs.IntVar(&g.capacity, "capacity", 0, "bytes per instance")
	g.fs.IntVar(&g.base, "base", 0, "identifier of the first instance")
	g.fs.BoolVar(&g.singleOpen, "single-open", false, "allow one open session per instance")
	g.fs.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error")
	g.fs.StringVar(&g.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on `addr`")
	g.fs.BoolVarP(&g.help, "help", "h", false, "show help")

	return g
}

func (g *globalFlags) overrides() config.Overrides {
	var o config.Overrides

	if g.fs.Changed("count") {
		o.Count = &g.count
	}

	if g.fs.Changed("capacity") {
		o.Capacity = &g.capacity
	}

	if g.fs.Changed("base") {
		o.Base = &g.base
	}

	if g.fs.Changed("single-open") {
		o.SingleOpen = &g.singleOpen
	}

	if g.fs.Changed("log-level") {
		o.LogLevel = &g.logLevel
	}

	return o
}

// Run is the main entry point. Returns exit code.
//
// sigCh may be nil. A value received on it cancels the running command.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	o := NewIO(out, errOut)

	g := newGlobalFlags()

	if len(args) > 0 {
		args = args[1:]
	}

	err := g.fs.Parse(args)
	if err != nil {
		o.ErrPrintln("error:", err)
		printUsage(NewIO(errOut, errOut), g, nil)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	// Config debug output honors --log-level; the resolved level applies after.
	bootLog, err := logging.New(logging.Config{Level: g.logLevel}, errOut)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	cfg, err := config.Load(config.LoadInput{
		WorkDirOverride: g.workDir,
		ConfigPath:      g.configPath,
		Overrides:       g.overrides(),
		Env:             env,
		Logger:          bootLog,
	})
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel}, errOut)
	if err != nil {
		o.ErrPrintln("error:", err)

		return 1
	}

	defer func() { _ = log.Sync() }()

	app := &app{in: in, env: env, cfg: cfg, log: log, metricsAddr: g.metricsAddr}
	commands := app.commands()

	rest := g.fs.Args()

	if g.help {
		printUsage(o, g, commands)

		return 0
	}

	name := "shell"
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}

	if name == "help" {
		printUsage(o, g, commands)

		return 0
	}

	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, rest)
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	printUsage(NewIO(errOut, errOut), g, commands)

	return 1
}

// app carries what commands share after global setup.
type app struct {
	in          io.Reader
	env         map[string]string
	cfg         config.Config
	log         *zap.Logger
	metricsAddr string
}

func (a *app) commands() []*Command {
	return []*Command{
		ShellCmd(a),
		PrintConfigCmd(&a.cfg),
		InitConfigCmd(&a.cfg, a.env),
	}
}

// newRegistry builds the registry from the resolved config and, when
// requested, starts the metrics endpoint. The returned stop func shuts the
// endpoint down.
func (a *app) newRegistry() (*bufdev.Registry, func(), error) {
	opts := a.cfg.Options()
	opts.Logger = a.log

	stop := func() {}

	var srv *metrics.Server

	if a.metricsAddr != "" {
		m := metrics.New()
		opts.Observer = m

		var err error

		srv, err = m.Listen(a.metricsAddr, a.log)
		if err != nil {
			return nil, nil, err
		}

		stop = func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			shutdownErr := srv.Shutdown(ctx)
			if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
				a.log.Warn("metrics shutdown", zap.Error(shutdownErr))
			}
		}
	}

	reg, err := bufdev.New(opts)
	if err != nil {
		stop()

		return nil, nil, fmt.Errorf("create registry: %w", err)
	}

	return reg, stop, nil
}

func printUsage(o *IO, g *globalFlags, commands []*Command) {
	o.Println("bufdev - bounded buffer devices driven like character devices")
	o.Println()
	o.Println("Usage: bufdev [global flags] [command] [args]")
	o.Println()
	o.Println("Commands (default: shell):")

	for _, cmd := range commands {
		o.Println(cmd.HelpLine())
	}

	o.Println()
	o.Println("Global flags:")

	var buf strings.Builder
	g.fs.SetOutput(&buf)
	g.fs.PrintDefaults()
	g.fs.SetOutput(io.Discard)
	o.Printf("%s", buf.String())
}
