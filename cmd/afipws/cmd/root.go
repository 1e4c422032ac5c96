package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/logger"
	"github.com/rezonia/afipws/internal/model"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	version = "1.0.0"

	// Global flags
	configPath   string
	verbose      bool
	outputFormat string
	trace        bool
	logLevel     string
	separator    string
)

var rootCmd = &cobra.Command{
	Use:   "afipws",
	Short: "Argentine government web services client",
	Long: `afipws talks to the AFIP, ARBA and traceability web services.

Supports:
  - AFIP: WSAA tickets, WSCOC, WSCTG, WSLPG, wDigDepFiel and Padrón
  - ARBA: COT waybill files and IIBB rates
  - Traceability: TrazaMed, TrazaProdMed, TrazaRenpre, TrazaVet and TrazaFito

Examples:
  # Check every AFIP service
  afipws status

  # Get an access ticket for WSCTG
  afipws auth wsctg --config afipws.yaml

  # Look up a taxpayer in the local registry
  afipws padron buscar 20267565393 --format table

  # Start the HTTP API
  afipws serve --address :8080`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration (env overrides apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, table)")
	rootCmd.PersistentFlags().BoolVar(&trace, "trace", false, "Log raw SOAP requests and responses")
	rootCmd.PersistentFlags().StringVar(&separator, "sep", "", "Print parameter tables as rows joined by this separator (e.g. ||)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")
}

// loadClient reads the configuration and builds the service facade
func loadClient() (*afipws.Client, error) {
	cfg, err := afipws.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if trace {
		cfg.Trace = true
		cfg.LogLevel = "debug"
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	printVerbose("Environment: %s, production: %t\n", cfg.Environment, cfg.Production)

	log := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)
	return afipws.New(cfg, afipws.WithLogger(log), afipws.WithMetrics(appMetrics()))
}

// commandTimeout bounds a single command, WSAA login included
const commandTimeout = 5 * time.Minute

// commandContext is cancelled on interrupt or after commandTimeout
func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// printParams prints a parameter table, as separated rows when --sep is set
func printParams(params []model.Parameter) error {
	if separator == "" {
		return printResult(params)
	}
	for _, row := range model.FormatParameters(params, separator) {
		fmt.Println(row)
	}
	return nil
}

// paramSeparator is --sep, model.DefaultSeparator when unset
func paramSeparator() string {
	if separator == "" {
		return model.DefaultSeparator
	}
	return separator
}

// readInput decodes a JSON request file into v
func readInput(path string, v any) error {
	if path == "" {
		return fmt.Errorf("an --input file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse input %s: %w", path, err)
	}
	return nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// parseID parses a numeric argument such as a CUIT, COE or CTG
func parseID(name, value string) (int64, error) {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, value)
	}
	return n, nil
}

// openClient hands the facade itself to runWith
func openClient(c *afipws.Client, _ context.Context) (*afipws.Client, error) {
	return c, nil
}

// runWith builds a service client with open, runs fn and prints its result
func runWith[T any](open func(*afipws.Client, context.Context) (T, error), fn func(context.Context, T) (any, error)) error {
	client, err := loadClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext()
	defer cancel()
	svc, err := open(client, ctx)
	if err != nil {
		return err
	}
	res, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	if params, ok := res.([]model.Parameter); ok {
		return printParams(params)
	}
	return printResult(res)
}
