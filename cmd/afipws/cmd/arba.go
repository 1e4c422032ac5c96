package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/arba"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	iibbFrom string
	iibbTo   string
)

var cotCmd = &cobra.Command{
	Use:   "cot",
	Short: "ARBA transport codes (COT)",
	Long: `Upload waybill files to ARBA and obtain the transport codes (COT).

The file name must follow the TB_<cuit>_<plant>_<date>_<seq>.txt convention
ARBA requires. Credentials come from arba.user and arba.password.`,
}

var cotSubmitCmd = &cobra.Command{
	Use:   "presentar <archivo>",
	Short: "Upload a waybill file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(openCOT, func(ctx context.Context, c *arba.COT) (any, error) {
			receipt, err := c.PresentarRemito(ctx, args[0])
			if err != nil {
				return nil, err
			}
			for _, w := range receipt.Waybills {
				if !w.Processed {
					printVerbose("Waybill %s rejected: %d errors\n", w.UniqueNumber, len(w.Errors))
				}
			}
			return receipt, nil
		})
	},
}

var iibbCmd = &cobra.Command{
	Use:   "iibb",
	Short: "ARBA gross income tax rates (IIBB)",
}

var iibbQueryCmd = &cobra.Command{
	Use:   "consultar <cuit>",
	Short: "Query the perception and retention rates of a taxpayer",
	Long: `Query the rates ARBA assigns to a taxpayer for a period. Dates use
YYYYMMDD; the period defaults to the current month.

Examples:
  afipws iibb consultar 30123456789
  afipws iibb consultar 30123456789 --desde 20240101 --hasta 20240131`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cuit, err := parseID("CUIT", args[0])
		if err != nil {
			return err
		}
		from, to, err := iibbPeriod(time.Now())
		if err != nil {
			return err
		}
		return runWith(openIIBB, func(ctx context.Context, c *arba.IIBB) (any, error) {
			return c.ConsultarContribuyentes(ctx, from, to, cuit)
		})
	},
}

func init() {
	rootCmd.AddCommand(cotCmd, iibbCmd)
	cotCmd.AddCommand(cotSubmitCmd)
	iibbCmd.AddCommand(iibbQueryCmd)

	iibbQueryCmd.Flags().StringVar(&iibbFrom, "desde", "", "Period start (YYYYMMDD)")
	iibbQueryCmd.Flags().StringVar(&iibbTo, "hasta", "", "Period end (YYYYMMDD)")
}

func openCOT(c *afipws.Client, _ context.Context) (*arba.COT, error) {
	return c.COT()
}

func openIIBB(c *afipws.Client, _ context.Context) (*arba.IIBB, error) {
	return c.IIBB()
}

// iibbPeriod resolves --desde and --hasta, defaulting to the month of now
func iibbPeriod(now time.Time) (time.Time, time.Time, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 1, -1)
	var err error
	if iibbFrom != "" {
		if from, err = time.Parse(arba.DateLayout, iibbFrom); err != nil {
			return from, to, fmt.Errorf("invalid --desde: %w", err)
		}
	}
	if iibbTo != "" {
		if to, err = time.Parse(arba.DateLayout, iibbTo); err != nil {
			return from, to, fmt.Errorf("invalid --hasta: %w", err)
		}
	}
	if to.Before(from) {
		return from, to, fmt.Errorf("--hasta is before --desde")
	}
	return from, to, nil
}
