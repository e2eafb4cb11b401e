// Package suite wires the use case checkers into a runnable command:
// flag handling, configuration merging, service connection, execution,
// output, and report writing.
package suite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/redfish-tools/usecase-checkers/internal/version"
	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/result"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/account"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/boot"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/ethernet"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/power"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/query"
	"github.com/redfish-tools/usecase-checkers/pkg/checks/thermal"
	"github.com/redfish-tools/usecase-checkers/pkg/config"
	"github.com/redfish-tools/usecase-checkers/pkg/logging"
	"github.com/redfish-tools/usecase-checkers/pkg/printer"
	"github.com/redfish-tools/usecase-checkers/pkg/report"
	"github.com/redfish-tools/usecase-checkers/pkg/service"
	"github.com/redfish-tools/usecase-checkers/pkg/util/iostreams"
)

// ToolName identifies this tool in reports.
const ToolName = "rf-usecase-checker"

const (
	defaultReportDir = "reports"
	defaultTimeout   = 30 * time.Minute
)

// ErrChecksFailed signals that the run completed but at least one check
// recorded a failure; the command exits non-zero without extra output.
var ErrChecksFailed = errors.New("one or more checks failed")

// serviceClient is what Run needs from a connected service: the checker
// operations plus run metadata and secondary sessions for credential
// testing.
type serviceClient interface {
	checker.Service
	Info(ctx context.Context) service.Info
	NewSession(ctx context.Context, username, password string) (checker.Service, error)
}

// clientAdapter narrows *service.Client to serviceClient.
type clientAdapter struct {
	*service.Client
}

func (a clientAdapter) NewSession(ctx context.Context, username, password string) (checker.Service, error) {
	c, err := a.Client.NewSession(ctx, username, password)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// Options contains the check command configuration.
type Options struct {
	IO iostreams.Interface

	Host     string
	Username string
	Password string
	Security string
	Insecure bool

	Relaxed           bool
	Target            string
	BootTarget        string
	FallbackSystemURI string

	ReportDir    string
	OutputFormat string
	NoColor      bool
	Checks       []string
	ConfigFile   string
	Debug        bool
	Timeout      time.Duration

	// cfg is the resolved configuration (populated during Complete).
	cfg config.Config

	// registry is populated explicitly during Complete to avoid global
	// state and enable test isolation.
	registry *checker.Registry

	// flags tracks which flags were set, so unset ones defer to the
	// configuration file.
	flags *pflag.FlagSet

	// connect is swapped out by tests.
	connect func(ctx context.Context, cfg service.Config, log *zap.SugaredLogger) (serviceClient, error)
}

// NewOptions creates Options with defaults.
func NewOptions(streams iostreams.Interface) *Options {
	return &Options{
		IO:           streams,
		Security:     string(service.SecurityAlways),
		ReportDir:    defaultReportDir,
		OutputFormat: printer.FormatTable,
		Checks:       []string{"*"},
		Timeout:      defaultTimeout,
		connect: func(ctx context.Context, cfg service.Config, log *zap.SugaredLogger) (serviceClient, error) {
			c, err := service.Connect(ctx, cfg, service.WithLogger(log))
			if err != nil {
				return nil, err
			}

			return clientAdapter{c}, nil
		},
	}
}

// AddFlags registers the command flags.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Host, "rhost", "", "Address of the Redfish service")
	fs.StringVarP(&o.Username, "user", "u", "", "Username for authentication")
	fs.StringVarP(&o.Password, "password", "p", "", "Password for authentication")
	fs.StringVar(&o.Security, "secure", o.Security, "Transport security policy (Always, IfSendingCredentials, Never)")
	fs.BoolVar(&o.Insecure, "insecure", false, "Skip TLS certificate verification")
	fs.StringVar(&o.Target, "target", "", "Restrict checks to one collection member (Id, URI, AssetTag, or 'first')")
	fs.StringVar(&o.BootTarget, "boot-target", "", "Boot source to use for boot override testing")
	fs.BoolVar(&o.Relaxed, "relaxed", false, "Downgrade soft requirement failures to warnings")
	fs.StringVar(&o.ReportDir, "report-dir", o.ReportDir, "Directory receiving the report files")
	fs.StringArrayVar(&o.Checks, "checks", o.Checks, "Checker selector patterns (repeatable; '*', an ID, or a glob)")
	fs.StringVarP(&o.OutputFormat, "output", "o", o.OutputFormat, "Output format (table, json)")
	fs.BoolVar(&o.NoColor, "no-color", false, "Disable colored output")
	fs.StringVar(&o.ConfigFile, "config", "", "Path to a suite configuration file")
	fs.BoolVar(&o.Debug, "debug", false, "Enable debug logging")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Maximum duration for the whole run")

	o.flags = fs
}

// changed reports whether a flag was set on the command line. Without a
// flag set (tests driving Options directly) a field counts as set when it
// differs from its default.
func (o *Options) changed(name string) bool {
	if o.flags != nil {
		return o.flags.Changed(name)
	}

	switch name {
	case "secure":
		return o.Security != string(service.SecurityAlways)
	case "insecure":
		return o.Insecure
	case "relaxed":
		return o.Relaxed
	case "report-dir":
		return o.ReportDir != defaultReportDir
	case "timeout":
		return o.Timeout != defaultTimeout
	default:
		return false
	}
}

// Complete resolves the configuration file against the flags and builds
// the checker registry. Flags win over the file; the file wins over the
// built-in defaults.
func (o *Options) Complete() error {
	o.cfg = config.Default()
	if o.ConfigFile != "" {
		cfg, err := config.Load(o.ConfigFile)
		if err != nil {
			return err
		}
		o.cfg = cfg
	}

	if o.Host != "" {
		o.cfg.Host = o.Host
	}
	if o.Username != "" {
		o.cfg.Username = o.Username
	}
	if o.Password != "" {
		o.cfg.Password = o.Password
	}
	if o.changed("secure") {
		o.cfg.Security = service.SecurityMode(o.Security)
	}
	if o.changed("insecure") {
		o.cfg.Insecure = o.Insecure
	}
	if o.changed("relaxed") {
		o.cfg.Relaxed = o.Relaxed
	}
	if o.Target != "" {
		o.cfg.Target = o.Target
	}
	if o.BootTarget != "" {
		o.cfg.BootTarget = o.BootTarget
	}
	if o.FallbackSystemURI != "" {
		o.cfg.FallbackSystemURI = o.FallbackSystemURI
	}
	if o.changed("report-dir") {
		o.cfg.ReportDir = o.ReportDir
	}
	if o.changed("timeout") {
		o.cfg.Timeout = o.Timeout
	}

	registry := checker.NewRegistry()

	powerChecker := power.New()
	powerChecker.PollAttempts = o.cfg.PowerPoll.Attempts
	powerChecker.PollInterval = o.cfg.PowerPoll.Interval
	registry.MustRegister(powerChecker)

	bootChecker := boot.New()
	bootChecker.PollAttempts = o.cfg.BootPoll.Attempts
	bootChecker.PollInterval = o.cfg.BootPoll.Interval
	registry.MustRegister(bootChecker)

	registry.MustRegister(thermal.New())
	registry.MustRegister(account.New())
	registry.MustRegister(query.New())
	registry.MustRegister(ethernet.New())

	o.registry = registry

	return nil
}

// Validate checks that all required options are valid.
func (o *Options) Validate() error {
	if o.cfg.Host == "" {
		return errors.New("a service address is required (--rhost)")
	}
	if o.cfg.Username == "" {
		return errors.New("a username is required (--user)")
	}
	if err := o.cfg.Security.Validate(); err != nil {
		return err
	}
	if o.OutputFormat != printer.FormatTable && o.OutputFormat != printer.FormatJSON {
		return fmt.Errorf("invalid output format: %s (must be one of: table, json)", o.OutputFormat)
	}
	if err := checker.ValidatePatterns(o.Checks); err != nil {
		return err
	}
	if o.cfg.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}

	return nil
}

// Registry exposes the populated registry for listing.
func (o *Options) Registry() *checker.Registry {
	return o.registry
}

// Run connects to the service, executes the selected checkers, prints the
// results, and writes the report. A connection failure aborts before any
// report is written.
func (o *Options) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	runID := report.NewRunID()

	logger, closeLog, err := logging.New(logging.Options{
		Debug:    o.Debug,
		Dir:      o.cfg.ReportDir,
		FileName: fmt.Sprintf("RedfishUseCaseCheckersDebug_%s.log", runID),
		Console:  zapcore.AddSync(o.IO.ErrOut()),
	})
	if err != nil {
		return err
	}
	defer closeLog()

	started := time.Now().UTC()

	client, err := o.connect(ctx, service.Config{
		Host:     o.cfg.Host,
		Username: o.cfg.Username,
		Password: o.cfg.Password,
		Security: o.cfg.Security,
		Insecure: o.cfg.Insecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("connecting to service at %s: %w", o.cfg.Host, err)
	}
	defer func() {
		_ = client.Close()
	}()

	target := &checker.Target{
		Service:           client,
		Results:           result.NewSet(o.cfg.Relaxed),
		NewSession:        client.NewSession,
		Selector:          checker.TargetSelector(o.cfg.Target),
		BootTarget:        o.cfg.BootTarget,
		FallbackSystemURI: o.cfg.FallbackSystemURI,
		Log:               logger,
	}

	executor := checker.NewExecutor(o.registry)
	if err := executor.ExecuteSelective(ctx, target, o.Checks); err != nil {
		return err
	}

	out := printer.NewPrinter(printer.Options{
		OutputFormat: o.OutputFormat,
		IOStreams:    o.IO,
		NoColor:      o.NoColor,
	})
	if err := out.PrintResults(target.Results); err != nil {
		return err
	}

	info := client.Info(ctx)

	summaryPath, err := report.Write(o.cfg.ReportDir, report.RunInfo{
		ID:          runID,
		Tool:        ToolName,
		ToolVersion: version.GetVersion(),
		Host:        o.cfg.Host,
		Username:    o.cfg.Username,
		Relaxed:     o.cfg.Relaxed,
		Started:     started,
		Finished:    time.Now().UTC(),
		Service:     info,
	}, target.Results)
	if err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	o.IO.Errorf("Report written to %s", summaryPath)

	if target.Results.Overall() == result.StatusFail {
		return ErrChecksFailed
	}

	return nil
}
