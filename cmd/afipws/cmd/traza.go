package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/traza"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	trazaInput    string
	trazaMode     string
	trazaDate     string
	trazaQuantity int
	trazaList     string
)

// trazaServices are the accepted service arguments
var trazaServices = []string{"med", "prodmed", "renpre", "vet", "fito"}

var trazaCmd = &cobra.Command{
	Use:   "traza",
	Short: "Traceability services (TrazaMed, TrazaProdMed, TrazaRenpre, TrazaVet, TrazaFito)",
	Long: `Inform, confirm, cancel and list traceability transactions.

The first argument of every subcommand selects the service: med, prodmed,
renpre, vet or fito. Credentials come from the traza section of the
configuration.

Examples:
  # Inform a medicine dispatch
  afipws traza enviar med --input evento.json

  # Inform several medical products in one call
  afipws traza enviar prodmed --input productos.json

  # Confirm, alert or cancel transactions
  afipws traza confirmar renpre 123456 --fecha 25/01/2024
  afipws traza alerta med 123456,123457
  afipws traza cancelar vet 7000001

  # List transactions
  afipws traza transacciones med --lista no-confirmadas --input filtro.json`,
}

var trazaSendCmd = &cobra.Command{
	Use:       "enviar <servicio>",
	Short:     "Inform a transaction from --input",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: trazaServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			switch args[0] {
			case "med":
				var m traza.Medicine
				if err := readInput(trazaInput, &m); err != nil {
					return nil, err
				}
				med := c.TrazaMed()
				switch trazaMode {
				case "fraccion":
					return med.SendMedicamentosFraccion(ctx, m)
				case "dhserie":
					return med.SendMedicamentosDHSerie(ctx, m)
				}
				return med.SendMedicamentos(ctx, m)
			case "prodmed":
				var products []traza.Product
				if err := readInput(trazaInput, &products); err != nil {
					return nil, err
				}
				pm := c.TrazaProdMed()
				for _, p := range products {
					n, err := pm.CrearTransaccion(p)
					if err != nil {
						return nil, err
					}
					printVerbose("Queued product %d\n", n)
				}
				return pm.InformarProducto(ctx)
			case "renpre":
				var p traza.Precursor
				if err := readInput(trazaInput, &p); err != nil {
					return nil, err
				}
				return c.TrazaRenpre().SaveTransacciones(ctx, p)
			}
			var m traza.Movement
			if err := readInput(trazaInput, &m); err != nil {
				return nil, err
			}
			return senasa(c, args[0]).SaveTransaccion(ctx, m)
		})
	},
}

var trazaCancelCmd = &cobra.Command{
	Use:       "cancelar <servicio> <codigo_transaccion>",
	Short:     "Cancel a transaction",
	Args:      cobra.ExactArgs(2),
	ValidArgs: trazaServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := args[1]
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			switch args[0] {
			case "med":
				return c.TrazaMed().SendCancelacTransacc(ctx, code)
			case "prodmed":
				return c.TrazaProdMed().SendCancelacTransacc(ctx, code)
			case "renpre":
				return c.TrazaRenpre().SendCancelacTransacc(ctx, code)
			case "vet", "fito":
				return senasa(c, args[0]).SendCancelaTransac(ctx, code)
			}
			return nil, unknownTraza(args[0])
		})
	},
}

var trazaConfirmCmd = &cobra.Command{
	Use:       "confirmar <servicio> <id_transaccion>",
	Short:     "Confirm a received transaction",
	Args:      cobra.ExactArgs(2),
	ValidArgs: trazaServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID("transaction id", args[1])
		if err != nil {
			return err
		}
		date := time.Now()
		if trazaDate != "" {
			if date, err = time.Parse(traza.DateLayout, trazaDate); err != nil {
				return fmt.Errorf("invalid --fecha: %w", err)
			}
		}
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			switch args[0] {
			case "med":
				return c.TrazaMed().SendConfirmaTransacc(ctx, id, date)
			case "renpre":
				return c.TrazaRenpre().SendConfirmaTransacc(ctx, id, date)
			case "vet", "fito":
				return senasa(c, args[0]).SendConfirmaTransacc(ctx, id, date, trazaQuantity)
			}
			return nil, unsupportedTraza(args[0], "confirmar")
		})
	},
}

var trazaAlertCmd = &cobra.Command{
	Use:       "alerta <servicio> <ids>",
	Short:     "Alert received transactions (comma separated ids)",
	Args:      cobra.ExactArgs(2),
	ValidArgs: trazaServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := args[1]
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			switch args[0] {
			case "med":
				return c.TrazaMed().SendAlertaTransacc(ctx, ids)
			case "renpre":
				return c.TrazaRenpre().SendAlertaTransacc(ctx, ids)
			case "vet", "fito":
				return senasa(c, args[0]).SendAlertaTransacc(ctx, ids)
			}
			return nil, unsupportedTraza(args[0], "alerta")
		})
	},
}

var trazaListCmd = &cobra.Command{
	Use:   "transacciones <servicio>",
	Short: "List transactions, filtered by an optional --input",
	Long: `List transactions. For med, --lista selects no-confirmadas or
alertados instead of the informed transactions.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: trazaServices,
	RunE: func(cmd *cobra.Command, args []string) error {
		var q traza.Query
		if trazaInput != "" {
			if err := readInput(trazaInput, &q); err != nil {
				return err
			}
		}
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			switch args[0] {
			case "med":
				med := c.TrazaMed()
				switch trazaList {
				case "no-confirmadas":
					return med.GetTransaccionesNoConfirmadas(ctx, q)
				case "alertados":
					return med.GetEnviosPropiosAlertados(ctx, q)
				}
				return med.GetTransaccionesWS(ctx, q)
			case "prodmed":
				return c.TrazaProdMed().GetTransaccionesWS(ctx, q)
			case "renpre":
				return c.TrazaRenpre().GetTransaccionesWS(ctx, q)
			case "vet", "fito":
				return senasa(c, args[0]).GetTransacciones(ctx, q)
			}
			return nil, unknownTraza(args[0])
		})
	},
}

var trazaCatalogCmd = &cobra.Command{
	Use:       "catalogo <med|prodmed>",
	Short:     "Query the electronic catalogue, filtered by --input",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"med", "prodmed"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var q traza.CatalogQuery
		if err := readInput(trazaInput, &q); err != nil {
			return err
		}
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			switch args[0] {
			case "med":
				return c.TrazaMed().GetCatalogoElectronicoByGTIN(ctx, q)
			case "prodmed":
				return c.TrazaProdMed().GetCatalogoElectronicoByGTIN(ctx, q)
			}
			return nil, unsupportedTraza(args[0], "catalogo")
		})
	},
}

var trazaStockCmd = &cobra.Command{
	Use:   "stock",
	Short: "Query the TrazaMed stock, filtered by --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q traza.StockQuery
		if err := readInput(trazaInput, &q); err != nil {
			return err
		}
		return runTraza(func(ctx context.Context, c *afipws.Client) (any, error) {
			return c.TrazaMed().GetConsultaStock(ctx, q)
		})
	},
}

func init() {
	rootCmd.AddCommand(trazaCmd)
	trazaCmd.AddCommand(trazaSendCmd, trazaCancelCmd, trazaConfirmCmd, trazaAlertCmd,
		trazaListCmd, trazaCatalogCmd, trazaStockCmd)

	trazaCmd.PersistentFlags().StringVar(&trazaInput, "input", "", "JSON request file")
	trazaSendCmd.Flags().StringVar(&trazaMode, "modo", "", "TrazaMed variant (fraccion, dhserie)")
	trazaConfirmCmd.Flags().StringVar(&trazaDate, "fecha", "", "Operation date (DD/MM/YYYY), today by default")
	trazaConfirmCmd.Flags().IntVar(&trazaQuantity, "cantidad", 0, "Received quantity (vet, fito)")
	trazaListCmd.Flags().StringVar(&trazaList, "lista", "", "TrazaMed list (no-confirmadas, alertados)")
}

func runTraza(fn func(ctx context.Context, c *afipws.Client) (any, error)) error {
	return runWith(openClient, fn)
}

// senasa returns the SENASA client of service, vet or fito
func senasa(c *afipws.Client, service string) *traza.SENASA {
	if service == "fito" {
		return c.TrazaFito()
	}
	return c.TrazaVet()
}

func unknownTraza(service string) error {
	return fmt.Errorf("unknown traceability service %q", service)
}

func unsupportedTraza(service, op string) error {
	return fmt.Errorf("%s does not support %s", service, op)
}
