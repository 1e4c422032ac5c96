package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	authRawXML bool
)

var authCmd = &cobra.Command{
	Use:   "auth [service]",
	Short: "Obtain a WSAA access ticket",
	Long: `Obtain an access ticket (TA) for a service, reusing the cached one while
it is still valid.

The ticket metadata is printed; token and sign are only shown with --xml,
which prints the full loginTicketResponse.

Examples:
  afipws auth wsctg
  afipws auth wslpg --xml > ta.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runAuth,
}

func init() {
	rootCmd.AddCommand(authCmd)

	authCmd.Flags().BoolVar(&authRawXML, "xml", false, "Print the raw ticket XML")
}

func runAuth(cmd *cobra.Command, args []string) error {
	client, err := loadClient()
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := commandContext()
	defer cancel()

	printVerbose("Requesting ticket for %s\n", args[0])
	ticket, err := client.Ticket(ctx, args[0])
	if err != nil {
		return err
	}

	if authRawXML {
		if ticket.XML == "" {
			return fmt.Errorf("ticket for %s has no XML", args[0])
		}
		fmt.Println(ticket.XML)
		return nil
	}
	return printResult(ticketInfo(ticket))
}

// TicketInfo is the printable part of an access ticket
type TicketInfo struct {
	*afipws.Ticket
	CUIT      string `json:"cuit,omitempty"`
	ExpiresIn string `json:"expires_in"`
}

func ticketInfo(t *afipws.Ticket) TicketInfo {
	return TicketInfo{
		Ticket:    t,
		CUIT:      t.CUIT(),
		ExpiresIn: time.Until(t.ExpirationTime).Round(time.Second).String(),
	}
}
