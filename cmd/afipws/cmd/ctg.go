package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/wsctg"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	ctgInput   string
	ctgWaybill int64
	ctgNumber  int64
	ctgPlate   string
)

var ctgCmd = &cobra.Command{
	Use:   "ctg",
	Short: "Grain transport codes (WSCTG)",
	Long: `Request, confirm and query grain transport codes (CTG).

Examples:
  # Parameter tables
  afipws ctg tabla especies --format table
  afipws ctg localidades 1

  # Request a CTG from a JSON file
  afipws ctg solicitar --input ctg.json

  # Confirm the arrival and the definitive weight
  afipws ctg arribo --input arribo.json
  afipws ctg definitivo 512345679 10000001 --establecimiento 1 --cosecha 1819 --kilos 28000

  # Download the certificate
  afipws ctg constancia 10000001 ctg.pdf`,
}

var ctgTableCmd = &cobra.Command{
	Use:   "tabla <provincias|especies|cosechas|establecimientos>",
	Short: "Print a parameter table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			switch args[0] {
			case "provincias":
				return c.ConsultarProvincias(ctx)
			case "especies":
				return c.ConsultarEspecies(ctx)
			case "cosechas":
				return c.ConsultarCosechas(ctx)
			case "establecimientos":
				return c.ConsultarEstablecimientos(ctx)
			}
			return nil, fmt.Errorf("unknown table %q", args[0])
		})
	},
}

var ctgLocalitiesCmd = &cobra.Command{
	Use:   "localidades <provincia>",
	Short: "List the localities of a province",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		province, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.ConsultarLocalidadesPorProvincia(ctx, province)
		})
	},
}

var ctgRequestCmd = &cobra.Command{
	Use:   "solicitar",
	Short: "Request a CTG from --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in wsctg.InitialRequest
		if err := readInput(ctgInput, &in); err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.SolicitarCTGInicial(ctx, in)
		})
	},
}

var ctgPendingDataCmd = &cobra.Command{
	Use:   "dato-pendiente <carta_porte> <horas> <patente> <cuit_transportista>",
	Short: "Complete the pending data of a CTG",
	Args:  cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		waybill, err := parseID("waybill", args[0])
		if err != nil {
			return err
		}
		hours, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		carrier, err := parseID("CUIT", args[3])
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.SolicitarCTGDatoPendiente(ctx, waybill, hours, args[2], carrier)
		})
	},
}

var ctgArrivalCmd = &cobra.Command{
	Use:   "arribo",
	Short: "Confirm the arrival from --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in wsctg.ArrivalRequest
		if err := readInput(ctgInput, &in); err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.ConfirmarArribo(ctx, in)
		})
	},
}

var (
	ctgEstablishment int64
	ctgHarvest       string
	ctgNetWeight     int64
	ctgReason        string
	ctgKm            int
)

var ctgDefinitiveCmd = &cobra.Command{
	Use:   "definitivo <carta_porte> <ctg>",
	Short: "Confirm the definitive weight",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		waybill, ctg, err := waybillAndCTG(args)
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.ConfirmarDefinitivo(ctx, waybill, ctg, ctgEstablishment, ctgHarvest, ctgNetWeight)
		})
	},
}

var ctgCancelCmd = &cobra.Command{
	Use:   "anular <carta_porte> <ctg>",
	Short: "Cancel a CTG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		waybill, ctg, err := waybillAndCTG(args)
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.AnularCTG(ctx, waybill, ctg)
		})
	},
}

var ctgRejectCmd = &cobra.Command{
	Use:   "rechazar <carta_porte> <ctg>",
	Short: "Reject a CTG at destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		waybill, ctg, err := waybillAndCTG(args)
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.RechazarCTG(ctx, waybill, ctg, ctgReason)
		})
	},
}

var ctgReturnCmd = &cobra.Command{
	Use:   "regresar <carta_porte> <ctg>",
	Short: "Send a rejected shipment back to origin",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		waybill, ctg, err := waybillAndCTG(args)
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.RegresarAOrigenCTGRechazado(ctx, waybill, ctg, ctgKm)
		})
	},
}

var ctgRedirectCmd = &cobra.Command{
	Use:   "cambiar-destino",
	Short: "Redirect a rejected shipment from --input",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in wsctg.Redirect
		if err := readInput(ctgInput, &in); err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.CambiarDestinoDestinatarioCTGRechazado(ctx, in)
		})
	},
}

var ctgQueryCmd = &cobra.Command{
	Use:   "consultar",
	Short: "List CTGs by waybill, number or plate",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := wsctg.Query{
			WaybillNumber: ctgWaybill,
			CTG:           ctgNumber,
			Plate:         ctgPlate,
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.ConsultarCTG(ctx, q)
		})
	},
}

var ctgListCmd = &cobra.Command{
	Use:   "listar <rechazados|pendientes|activos>",
	Short: "List rejected, pending resolution or active CTGs (activos uses --patente)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			switch args[0] {
			case "rechazados":
				return c.ConsultarCTGRechazados(ctx)
			case "pendientes":
				return c.CTGsPendientesResolucion(ctx)
			case "activos":
				return c.ConsultarCTGActivosPorPatente(ctx, ctgPlate)
			}
			return nil, fmt.Errorf("unknown list %q", args[0])
		})
	},
}

var ctgDetailCmd = &cobra.Command{
	Use:   "detalle <ctg>",
	Short: "Show the detail of a CTG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctg, err := parseID("CTG", args[0])
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.ConsultarDetalleCTG(ctx, ctg)
		})
	},
}

var ctgCertificateCmd = &cobra.Command{
	Use:   "constancia <ctg> <archivo.pdf>",
	Short: "Download the CTG certificate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctg, err := parseID("CTG", args[0])
		if err != nil {
			return err
		}
		return runCTG(func(ctx context.Context, c *wsctg.Client) (any, error) {
			return c.ConsultarConstanciaCTGPDF(ctx, ctg, args[1])
		})
	},
}

func init() {
	rootCmd.AddCommand(ctgCmd)
	ctgCmd.AddCommand(ctgTableCmd, ctgLocalitiesCmd, ctgRequestCmd, ctgPendingDataCmd, ctgArrivalCmd,
		ctgDefinitiveCmd, ctgCancelCmd, ctgRejectCmd, ctgReturnCmd, ctgRedirectCmd,
		ctgQueryCmd, ctgListCmd, ctgDetailCmd, ctgCertificateCmd)

	ctgCmd.PersistentFlags().StringVar(&ctgInput, "input", "", "JSON request file")

	ctgQueryCmd.Flags().Int64Var(&ctgWaybill, "carta-porte", 0, "Waybill number")
	ctgQueryCmd.Flags().Int64Var(&ctgNumber, "ctg", 0, "CTG number")
	ctgQueryCmd.Flags().StringVar(&ctgPlate, "patente", "", "Truck plate")
	ctgListCmd.Flags().StringVar(&ctgPlate, "patente", "", "Truck plate")

	ctgDefinitiveCmd.Flags().Int64Var(&ctgEstablishment, "establecimiento", 0, "Receiving establishment")
	ctgDefinitiveCmd.Flags().StringVar(&ctgHarvest, "cosecha", "", "Harvest code")
	ctgDefinitiveCmd.Flags().Int64Var(&ctgNetWeight, "kilos", 0, "Net weight in kilograms")
	ctgRejectCmd.Flags().StringVar(&ctgReason, "motivo", "", "Rejection reason")
	ctgReturnCmd.Flags().IntVar(&ctgKm, "km", 0, "Kilometres back to origin")
}

func waybillAndCTG(args []string) (int64, int64, error) {
	waybill, err := parseID("waybill", args[0])
	if err != nil {
		return 0, 0, err
	}
	ctg, err := parseID("CTG", args[1])
	if err != nil {
		return 0, 0, err
	}
	return waybill, ctg, nil
}

// runCTG runs fn with a WSCTG client and reports the controls in verbose mode
func runCTG(fn func(ctx context.Context, c *wsctg.Client) (any, error)) error {
	return runWith((*afipws.Client).WSCTG, func(ctx context.Context, c *wsctg.Client) (any, error) {
		res, err := fn(ctx, c)
		for _, m := range c.LastObservations() {
			printVerbose("Control: %s\n", m)
		}
		return res, err
	})
}
