package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/wslpg"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	lpgInput      string
	lpgIssuePoint int
	lpgOrder      int64
	lpgCOE        int64
	lpgPDF        string
	lpgSecondary  bool
	lpgKind       string
)

var lpgCmd = &cobra.Command{
	Use:   "lpg",
	Short: "Grain settlements and certifications (WSLPG)",
	Long: `Authorize, adjust, cancel and query grain settlements (LPG) and
primary certifications (C1116).

Examples:
  # Parameter tables
  afipws lpg tabla granos --format table
  afipws lpg tabla puertos --sep "||"

  # Next order number and authorization
  afipws lpg ultimo 1
  afipws lpg autorizar --input liquidacion.json

  # Query a settlement and save its PDF
  afipws lpg consultar --coe 330100000357 --pdf liq.pdf`,
}

var lpgTableCmd = &cobra.Command{
	Use:   "tabla <name>",
	Short: "Print a parameter table",
	Long: `Print a parameter table: campanias, granos, grados_referencia,
certificados_deposito, deducciones, retenciones, puertos, actividades,
actividades_representado, provincias.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.Table(ctx, args[0])
		})
	},
}

var lpgLocalitiesCmd = &cobra.Command{
	Use:   "localidades <provincia> [localidad]",
	Short: "List the localities of a province, or describe one of them",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		province, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		if len(args) == 2 {
			locality, err := strconv.Atoi(args[1])
			if err != nil {
				return err
			}
			return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
				return c.BuscarLocalidades(ctx, province, locality)
			})
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.ConsultarLocalidadesPorProvincia(ctx, province)
		})
	},
}

var lpgOperationsCmd = &cobra.Command{
	Use:   "tipos-operacion <actividad>",
	Short: "List the operation types of an activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		activity, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.ConsultarTiposOperacion(ctx, activity)
		})
	},
}

var lpgGradesCmd = &cobra.Command{
	Use:   "grados <grano>",
	Short: "List the delivered grades of a grain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		grain, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.ConsultarGradoEntregadoXTipoGrano(ctx, grain)
		})
	},
}

// LastOrder is the last authorized order number of an issue point
type LastOrder struct {
	IssuePoint  int   `json:"pto_emision"`
	OrderNumber int64 `json:"nro_orden"`
}

var lpgLastCmd = &cobra.Command{
	Use:   "ultimo <pto_emision>",
	Short: "Last order number of settlements (or --tipo secundaria|certificacion)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pto, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			var (
				n   int64
				err error
			)
			switch lpgKind {
			case "secundaria":
				n, err = c.ConsultarLiquidacionSecundariaUltNroOrden(ctx, pto)
			case "certificacion":
				n, err = c.ConsultarCertificacionUltNroOrden(ctx, pto)
			default:
				n, err = c.ConsultarUltNroOrden(ctx, pto)
			}
			if err != nil {
				return nil, err
			}
			return LastOrder{IssuePoint: pto, OrderNumber: n}, nil
		})
	},
}

var lpgQueryCmd = &cobra.Command{
	Use:   "consultar",
	Short: "Query a document by --coe or by --pto and --nro",
	Long: `Query a settlement (default), secondary settlement, certification or
adjustment, selected with --tipo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l := wslpg.Lookup{IssuePoint: lpgIssuePoint, OrderNumber: lpgOrder, COE: lpgCOE}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			switch lpgKind {
			case "secundaria":
				return c.ConsultarLiquidacionSecundaria(ctx, l, lpgPDF)
			case "certificacion":
				return c.ConsultarCertificacion(ctx, l, lpgPDF)
			case "ajuste":
				return c.ConsultarAjuste(ctx, l)
			}
			return c.ConsultarLiquidacion(ctx, l, lpgPDF)
		})
	},
}

var lpgAuthorizeCmd = &cobra.Command{
	Use:   "autorizar",
	Short: "Authorize a settlement from --input (--secundaria for a secondary one)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if lpgSecondary {
			var s wslpg.SecondarySettlement
			if err := readInput(lpgInput, &s); err != nil {
				return err
			}
			return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
				return c.AutorizarLiquidacionSecundaria(ctx, &s)
			})
		}
		var s wslpg.Settlement
		if err := readInput(lpgInput, &s); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.AutorizarLiquidacion(ctx, &s)
		})
	},
}

var lpgEstimateCmd = &cobra.Command{
	Use:   "estimar",
	Short: "Preview the totals of the settlement in --input without calling AFIP",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s wslpg.Settlement
		if err := readInput(lpgInput, &s); err != nil {
			return err
		}
		if err := s.Validate(); err != nil {
			return err
		}
		return printResult(s.Estimar())
	},
}

var lpgAdvanceCmd = &cobra.Command{
	Use:   "anticipo",
	Short: "Authorize an advance payment from --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var s wslpg.Settlement
		if err := readInput(lpgInput, &s); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.AutorizarAnticipo(ctx, &s)
		})
	},
}

var lpgCancelAdvanceCmd = &cobra.Command{
	Use:   "cancelar-anticipo <pto_emision> <nro_orden> <coe>",
	Short: "Cancel an advance payment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		pto, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		order, err := parseID("order number", args[1])
		if err != nil {
			return err
		}
		coe, err := parseID("COE", args[2])
		if err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.CancelarAnticipo(ctx, pto, order, coe)
		})
	},
}

// CancelResult is the outcome of a cancellation
type CancelResult struct {
	COE       int64  `json:"coe"`
	Resultado string `json:"resultado"`
}

var lpgCancelCmd = &cobra.Command{
	Use:   "anular <coe>",
	Short: "Cancel a settlement (or --tipo secundaria|certificacion)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coe, err := parseID("COE", args[0])
		if err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			var (
				res string
				err error
			)
			switch lpgKind {
			case "secundaria":
				res, err = c.AnularLiquidacionSecundaria(ctx, coe)
			case "certificacion":
				res, err = c.AnularCertificacion(ctx, coe)
			default:
				res, err = c.AnularLiquidacion(ctx, coe)
			}
			if err != nil {
				return nil, err
			}
			return CancelResult{COE: coe, Resultado: res}, nil
		})
	},
}

var lpgCertifyCmd = &cobra.Command{
	Use:   "certificacion",
	Short: "Authorize a primary certification from --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cert wslpg.Certification
		if err := readInput(lpgInput, &cert); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.AutorizarCertificacion(ctx, &cert)
		})
	},
}

var lpgQualityCmd = &cobra.Command{
	Use:   "calidad <coe>",
	Short: "Inform the quality of a certification from --input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coe, err := parseID("COE", args[0])
		if err != nil {
			return err
		}
		var q wslpg.Quality
		if err := readInput(lpgInput, &q); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.InformarCalidadCertificacion(ctx, coe, q)
		})
	},
}

var lpgAdjustCmd = &cobra.Command{
	Use:   "ajustar",
	Short: "Adjust a settlement from --input",
	Long: `Adjust a settlement. --tipo selects the variant: unificado (default),
papel, contrato or secundaria.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var a wslpg.Adjustment
		if err := readInput(lpgInput, &a); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			switch lpgKind {
			case "papel":
				return c.AjustarLiquidacionUnificadoPapel(ctx, &a)
			case "contrato":
				return c.AjustarLiquidacionContrato(ctx, &a)
			case "secundaria":
				return c.AjustarLiquidacionSecundaria(ctx, &a)
			}
			return c.AjustarLiquidacionUnificado(ctx, &a)
		})
	},
}

var lpgSearchCTGCmd = &cobra.Command{
	Use:   "buscar-ctg",
	Short: "List the CTGs available to certify, filtered by --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q wslpg.CTGSearch
		if err := readInput(lpgInput, &q); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.BuscarCTG(ctx, q)
		})
	},
}

var lpgBalanceCmd = &cobra.Command{
	Use:   "saldo",
	Short: "List certificates with available balance, filtered by --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q wslpg.BalanceSearch
		if err := readInput(lpgInput, &q); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			return c.BuscarCertConSaldoDisponible(ctx, q)
		})
	},
}

var lpgContractCmd = &cobra.Command{
	Use:   "contrato",
	Short: "List the COEs of a contract given in --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var q wslpg.ContractQuery
		if err := readInput(lpgInput, &q); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			if lpgSecondary {
				return c.ConsultarLiquidacionesSecundariasPorContrato(ctx, q)
			}
			return c.ConsultarLiquidacionesPorContrato(ctx, q)
		})
	},
}

var lpgAssociateCmd = &cobra.Command{
	Use:   "asociar <coe>",
	Short: "Associate a settlement with the contract given in --input",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coe, err := parseID("COE", args[0])
		if err != nil {
			return err
		}
		var q wslpg.ContractQuery
		if err := readInput(lpgInput, &q); err != nil {
			return err
		}
		return runLPG(func(ctx context.Context, c *wslpg.Client) (any, error) {
			if lpgSecondary {
				return c.AsociarLiquidacionSecundariaAContrato(ctx, coe, q)
			}
			return c.AsociarLiquidacionAContrato(ctx, coe, q)
		})
	},
}

func init() {
	rootCmd.AddCommand(lpgCmd)
	lpgCmd.AddCommand(lpgTableCmd, lpgLocalitiesCmd, lpgOperationsCmd, lpgGradesCmd, lpgLastCmd,
		lpgQueryCmd, lpgAuthorizeCmd, lpgEstimateCmd, lpgAdvanceCmd, lpgCancelAdvanceCmd, lpgCancelCmd,
		lpgCertifyCmd, lpgQualityCmd, lpgAdjustCmd, lpgSearchCTGCmd, lpgBalanceCmd,
		lpgContractCmd, lpgAssociateCmd)

	lpgCmd.PersistentFlags().StringVar(&lpgInput, "input", "", "JSON request file")

	lpgQueryCmd.Flags().IntVar(&lpgIssuePoint, "pto", 0, "Issue point")
	lpgQueryCmd.Flags().Int64Var(&lpgOrder, "nro", 0, "Order number")
	lpgQueryCmd.Flags().Int64Var(&lpgCOE, "coe", 0, "COE")
	lpgQueryCmd.Flags().StringVar(&lpgPDF, "pdf", "", "Save the document PDF to this path")

	for _, c := range []*cobra.Command{lpgLastCmd, lpgQueryCmd, lpgCancelCmd, lpgAdjustCmd} {
		c.Flags().StringVar(&lpgKind, "tipo", "", "Document kind")
	}
	for _, c := range []*cobra.Command{lpgAuthorizeCmd, lpgContractCmd, lpgAssociateCmd} {
		c.Flags().BoolVar(&lpgSecondary, "secundaria", false, "Secondary settlement")
	}
}

// runLPG runs fn with a WSLPG client and reports the errors and
// observations of the last call in verbose mode
func runLPG(fn func(ctx context.Context, c *wslpg.Client) (any, error)) error {
	return runWith((*afipws.Client).WSLPG, func(ctx context.Context, c *wslpg.Client) (any, error) {
		res, err := fn(ctx, c)
		for _, m := range c.LastErrors() {
			printVerbose("Error: %s\n", m)
		}
		for _, m := range c.LastObservations() {
			printVerbose("Observation: %s\n", m)
		}
		return res, err
	})
}
