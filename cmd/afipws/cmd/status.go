package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/pkg/afipws"
)

var statusCmd = &cobra.Command{
	Use:   "status [services...]",
	Short: "Check the AFIP servers (dummy)",
	Long: `Call the dummy operation of AFIP services and report the application,
database and authentication servers.

Without arguments every AFIP service is checked.

Examples:
  afipws status
  afipws status wsctg wslpg --format table`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

// StatusResult is the outcome of one dummy call
type StatusResult struct {
	Service afipws.Service `json:"service"`
	OK      bool           `json:"ok"`
	afipws.ServerStatus
	Error string `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := loadClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext()
	defer cancel()

	registry, err := client.Registry(ctx)
	if err != nil {
		return err
	}

	services := registry.Services()
	if len(args) > 0 {
		services = services[:0]
		for _, a := range args {
			services = append(services, afipws.Service(a))
		}
	}

	results := make([]StatusResult, 0, len(services))
	allOK := true
	for _, s := range services {
		printVerbose("Checking: %s\n", s)
		r := StatusResult{Service: s}
		status, err := registry.Status(ctx, s)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.ServerStatus = status
			r.OK = status.OK()
		}
		if !r.OK {
			allOK = false
		}
		results = append(results, r)
	}

	if err := printResult(results); err != nil {
		return err
	}
	if !allOK {
		return fmt.Errorf("some services are not available")
	}
	return nil
}
