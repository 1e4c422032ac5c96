package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/wdigdepfiel"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	depfielInput      string
	depfielAcceptedAt string
)

var depfielCmd = &cobra.Command{
	Use:   "depfiel",
	Short: "Customs folder digitalisation notices (wDigDepFiel)",
	Long: `Notify AFIP customs that a folder was received or digitalised.

Examples:
  afipws depfiel recepcion --input legajo.json --fecha 2024-01-25T10:30:00-03:00
  afipws depfiel digitalizacion --input digitalizacion.json`,
}

var depfielReceiptCmd = &cobra.Command{
	Use:   "recepcion",
	Short: "Notify the reception and acceptance of the folder in --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f wdigdepfiel.Folder
		if err := readInput(depfielInput, &f); err != nil {
			return err
		}
		acceptedAt := time.Now()
		if depfielAcceptedAt != "" {
			var err error
			if acceptedAt, err = time.Parse(time.RFC3339, depfielAcceptedAt); err != nil {
				return fmt.Errorf("invalid --fecha: %w", err)
			}
		}
		return runWith((*afipws.Client).DepFiel, func(ctx context.Context, c *wdigdepfiel.Client) (any, error) {
			return c.AvisoRecepAcept(ctx, f, acceptedAt)
		})
	},
}

var depfielDigitCmd = &cobra.Command{
	Use:   "digitalizacion",
	Short: "Notify the digitalisation described in --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var d wdigdepfiel.Digitalisation
		if err := readInput(depfielInput, &d); err != nil {
			return err
		}
		printVerbose("Images: %d\n", d.Total())
		return runWith((*afipws.Client).DepFiel, func(ctx context.Context, c *wdigdepfiel.Client) (any, error) {
			return c.AvisoDigit(ctx, d)
		})
	},
}

func init() {
	rootCmd.AddCommand(depfielCmd)
	depfielCmd.AddCommand(depfielReceiptCmd, depfielDigitCmd)

	depfielCmd.PersistentFlags().StringVar(&depfielInput, "input", "", "JSON request file")
	depfielReceiptCmd.Flags().StringVar(&depfielAcceptedAt, "fecha", "", "Acceptance time (RFC 3339), now by default")
}
