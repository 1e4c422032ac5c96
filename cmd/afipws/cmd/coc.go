package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/wscoc"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	cocInput   string
	cocTourist bool
	cocDJAS    bool
)

var cocCmd = &cobra.Command{
	Use:   "coc",
	Short: "Currency purchase requests (WSCOC)",
	Long: `Generate, inform and query currency purchase requests (COC).

Examples:
  # List the currencies
  afipws coc tabla monedas --format table

  # Generate a request from a JSON file
  afipws coc generar --input solicitud.json

  # Confirm or decline a generated request
  afipws coc informar 12345 CO

  # Query and cancel a COC
  afipws coc consultar 51234567
  afipws coc anular 51234567 20267565393`,
}

var cocTableCmd = &cobra.Command{
	Use:   "tabla <name>",
	Short: "Print a parameter table",
	Long: `Print a parameter table: monedas, destinos, tipos_documento, estados,
excepciones_djai, destinos_djai, excepciones_djas, destinos_djas,
tipos_referencia, destinos_tipo_referencia.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.Table(ctx, args[0])
		})
	},
}

var cocGenerateCmd = &cobra.Command{
	Use:   "generar",
	Short: "Generate a purchase request from --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cocTourist {
			var p wscoc.TouristPurchase
			if err := readInput(cocInput, &p); err != nil {
				return err
			}
			return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
				return c.GenerarSolicitudCompraDivisaTurExt(ctx, p)
			})
		}
		var p wscoc.Purchase
		if err := readInput(cocInput, &p); err != nil {
			return err
		}
		printVerbose("Currency amount: %s %s\n", p.ForeignAmount().StringFixed(2), p.CurrencyCode)
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.GenerarSolicitudCompraDivisa(ctx, p)
		})
	},
}

var cocInformCmd = &cobra.Command{
	Use:   "informar <codigo_solicitud> <estado>",
	Short: "Confirm (CO) or decline (DC) a request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := parseID("request code", args[0])
		if err != nil {
			return err
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.InformarSolicitudCompraDivisa(ctx, code, args[1])
		})
	},
}

var cocQueryCmd = &cobra.Command{
	Use:   "consultar <coc>",
	Short: "Query a COC",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coc, err := parseID("COC", args[0])
		if err != nil {
			return err
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.ConsultarCOC(ctx, coc)
		})
	},
}

var cocRequestCmd = &cobra.Command{
	Use:   "solicitud <codigo_solicitud>",
	Short: "Query a purchase request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := parseID("request code", args[0])
		if err != nil {
			return err
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.ConsultarSolicitudCompraDivisa(ctx, code)
		})
	},
}

var cocListCmd = &cobra.Command{
	Use:   "solicitudes",
	Short: "List purchase requests, filtered by an optional --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var f wscoc.Filter
		if cocInput != "" {
			if err := readInput(cocInput, &f); err != nil {
				return err
			}
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.ConsultarSolicitudesCompraDivisas(ctx, f)
		})
	},
}

var cocCancelCmd = &cobra.Command{
	Use:   "anular <coc> <cuit_comprador>",
	Short: "Cancel a COC",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		coc, err := parseID("COC", args[0])
		if err != nil {
			return err
		}
		buyer, err := parseID("CUIT", args[1])
		if err != nil {
			return err
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.AnularCOC(ctx, coc, buyer)
		})
	},
}

var cocCUITCmd = &cobra.Command{
	Use:   "cuit <nro_doc> [tipo_doc]",
	Short: "Find the CUITs of a document number (DNI by default)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseID("document number", args[0])
		if err != nil {
			return err
		}
		docType := 96
		if len(args) == 2 {
			if docType, err = strconv.Atoi(args[1]); err != nil {
				return err
			}
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.ConsultarCUIT(ctx, doc, docType)
		})
	},
}

var cocDeclarationCmd = &cobra.Command{
	Use:   "djai <codigo> <cuit>",
	Short: "Query an import declaration (DJAI), or a DJAS with --djas",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cuit, err := parseID("CUIT", args[1])
		if err != nil {
			return err
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			if cocDJAS {
				return c.ConsultarDJAS(ctx, args[0], cuit)
			}
			return c.ConsultarDJAI(ctx, args[0], cuit)
		})
	},
}

var cocReferenceCmd = &cobra.Command{
	Use:   "referencia <tipo> <codigo>",
	Short: "Query a reference document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		refType, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return runCOC(func(ctx context.Context, c *wscoc.Client) (any, error) {
			return c.ConsultarReferencia(ctx, refType, args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(cocCmd)
	cocCmd.AddCommand(cocTableCmd, cocGenerateCmd, cocInformCmd, cocQueryCmd, cocRequestCmd,
		cocListCmd, cocCancelCmd, cocCUITCmd, cocDeclarationCmd, cocReferenceCmd)

	cocCmd.PersistentFlags().StringVar(&cocInput, "input", "", "JSON request file")
	cocGenerateCmd.Flags().BoolVar(&cocTourist, "turista", false, "Foreign tourist purchase")
	cocDeclarationCmd.Flags().BoolVar(&cocDJAS, "djas", false, "Query a DJAS instead of a DJAI")
}

// runCOC runs fn with a WSCOC client and reports the recorded
// inconsistencies in verbose mode
func runCOC(fn func(ctx context.Context, c *wscoc.Client) (any, error)) error {
	return runWith((*afipws.Client).WSCOC, func(ctx context.Context, c *wscoc.Client) (any, error) {
		res, err := fn(ctx, c)
		for _, m := range c.LastInconsistencies() {
			printVerbose("Inconsistency: %s\n", m)
		}
		for _, m := range c.LastObservations() {
			printVerbose("Observation: %s\n", m)
		}
		return res, err
	})
}
