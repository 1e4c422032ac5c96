package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/padron"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	padronReplace bool
	padronLimit   int
	padronDocType int
	padronIVA     int
)

var padronCmd = &cobra.Command{
	Use:   "padron",
	Short: "Taxpayer registry (Padrón)",
	Long: `Keep a local sqlite copy of the AFIP taxpayer registry and query the
public REST registry.

Examples:
  # Download and import the registry
  afipws padron descargar

  # Local lookups
  afipws padron buscar 20267565393 --format table
  afipws padron nombre "PEREZ JUAN" --limit 5

  # Online lookups
  afipws padron consultar 20267565393
  afipws padron varios 20267565393 30500010912`,
}

// ImportResult reports a registry import
type ImportResult struct {
	Path     string `json:"path"`
	Imported int    `json:"imported"`
	Total    int    `json:"total"`
}

var padronDownloadCmd = &cobra.Command{
	Use:   "descargar [archivo.zip]",
	Short: "Download the registry archive and import it when it changed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(openClient, func(ctx context.Context, c *afipws.Client) (any, error) {
			path := filepath.Join(filepath.Dir(c.Config().Padron.DBPath), "padron.zip")
			if len(args) == 1 {
				path = args[0]
			}
			n, err := c.DescargarPadron(ctx, path)
			if err != nil {
				return nil, err
			}
			return importResult(ctx, c, path, n)
		})
	},
}

var padronImportCmd = &cobra.Command{
	Use:   "importar <archivo>",
	Short: "Import a registry file (zip or txt)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(openClient, func(ctx context.Context, c *afipws.Client) (any, error) {
			store, err := c.Padron()
			if err != nil {
				return nil, err
			}
			n, err := store.Procesar(ctx, args[0], padronReplace)
			if err != nil {
				return nil, err
			}
			return importResult(ctx, c, args[0], n)
		})
	},
}

var padronLookupCmd = &cobra.Command{
	Use:   "buscar <nro_doc>",
	Short: "Look a taxpayer up in the local registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseID("document number", args[0])
		if err != nil {
			return err
		}
		return runPadronStore(func(ctx context.Context, s *padron.Store) (any, error) {
			return s.Buscar(ctx, doc, padronDocType)
		})
	},
}

var padronNameCmd = &cobra.Command{
	Use:   "nombre <denominacion>",
	Short: "Find CUITs by name in the local registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPadronStore(func(ctx context.Context, s *padron.Store) (any, error) {
			return s.BuscarCUIT(ctx, args[0], padronLimit)
		})
	},
}

var padronAddressesCmd = &cobra.Command{
	Use:   "domicilios <nro_doc>",
	Short: "List the stored addresses of a taxpayer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := parseID("document number", args[0])
		if err != nil {
			return err
		}
		return runPadronStore(func(ctx context.Context, s *padron.Store) (any, error) {
			return s.ConsultarDomicilios(ctx, doc, padronDocType, padronIVA)
		})
	},
}

var padronQueryCmd = &cobra.Command{
	Use:   "consultar <cuit>",
	Short: "Look a taxpayer up in the online registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cuit, err := parseID("CUIT", args[0])
		if err != nil {
			return err
		}
		return runWith(openPadronAPI, func(ctx context.Context, a *padron.API) (any, error) {
			return a.Consultar(ctx, cuit)
		})
	},
}

var padronCertificateCmd = &cobra.Command{
	Use:   "constancia <cuit> <archivo.pdf>",
	Short: "Download the registration certificate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cuit, err := parseID("CUIT", args[0])
		if err != nil {
			return err
		}
		return runWith(openPadronAPI, func(ctx context.Context, a *padron.API) (any, error) {
			return a.DescargarConstancia(ctx, cuit, args[1])
		})
	},
}

// LookupResult is one printable result of a bulk lookup
type LookupResult struct {
	CUIT     int64            `json:"cuit"`
	Taxpayer *padron.Taxpayer `json:"taxpayer,omitempty"`
	Error    string           `json:"error,omitempty"`
}

var padronBulkCmd = &cobra.Command{
	Use:   "varios <cuit>...",
	Short: "Look several taxpayers up concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cuits := make([]int64, 0, len(args))
		for _, a := range args {
			cuit, err := parseID("CUIT", a)
			if err != nil {
				return err
			}
			cuits = append(cuits, cuit)
		}
		return runWith(openPadronAPI, func(ctx context.Context, a *padron.API) (any, error) {
			lookups, err := a.BuscarVarios(ctx, cuits)
			if err != nil {
				return nil, err
			}
			results := make([]LookupResult, len(lookups))
			for i, l := range lookups {
				results[i] = LookupResult{CUIT: l.CUIT, Taxpayer: l.Taxpayer}
				if l.Err != nil {
					results[i].Error = l.Err.Error()
				}
			}
			return results, nil
		})
	},
}

var padronParamsCmd = &cobra.Command{
	Use:   "parametros <recurso>",
	Short: "Print a parameter table of the online registry",
	Long: `Print a parameter table of the online registry, one row per entry
with the values joined by --sep (|| by default).

Examples:
  afipws padron parametros provincias
  afipws padron parametros actividades --sep ";"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sep := paramSeparator()
		return runWith(openPadronAPI, func(ctx context.Context, a *padron.API) (any, error) {
			return a.ObtenerTablaParametros(ctx, args[0], sep)
		})
	},
}

func init() {
	rootCmd.AddCommand(padronCmd)
	padronCmd.AddCommand(padronDownloadCmd, padronImportCmd, padronLookupCmd, padronNameCmd,
		padronAddressesCmd, padronQueryCmd, padronCertificateCmd, padronBulkCmd, padronParamsCmd)

	padronImportCmd.Flags().BoolVar(&padronReplace, "replace", false, "Replace the stored registry")
	padronNameCmd.Flags().IntVar(&padronLimit, "limit", 10, "Maximum number of results")
	for _, c := range []*cobra.Command{padronLookupCmd, padronAddressesCmd} {
		c.Flags().IntVar(&padronDocType, "tipo-doc", padron.DocTypeCUIT, "Document type")
	}
	padronAddressesCmd.Flags().IntVar(&padronIVA, "cat-iva", 0, "IVA category filter")
}

func openPadronStore(c *afipws.Client, _ context.Context) (*padron.Store, error) {
	return c.Padron()
}

func openPadronAPI(c *afipws.Client, _ context.Context) (*padron.API, error) {
	return c.PadronAPI(), nil
}

func runPadronStore(fn func(ctx context.Context, s *padron.Store) (any, error)) error {
	return runWith(openPadronStore, fn)
}

func importResult(ctx context.Context, c *afipws.Client, path string, n int) (ImportResult, error) {
	store, err := c.Padron()
	if err != nil {
		return ImportResult{}, err
	}
	total, err := store.Count(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	printVerbose("Imported %d rows\n", n)
	return ImportResult{Path: path, Imported: n, Total: total}, nil
}
