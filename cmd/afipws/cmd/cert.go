package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/credential"
	"github.com/rezonia/afipws/internal/trust"
	"github.com/rezonia/afipws/pkg/afipws"
)

var (
	caFile   string
	skipOCSP bool

	csrCUIT    string
	csrCompany string
	csrAlias   string
	csrKeyOut  string
	csrOut     string
	csrBits    int
)

var certCmd = &cobra.Command{
	Use:   "cert",
	Short: "Check the taxpayer certificate",
	Long: `Inspect the configured certificate before talking to WSAA.

Checks:
  - Validity window (warns 30 days before expiration)
  - Certificate chain (to the configured or system roots)
  - Certificate revocation (OCSP, unless --skip-ocsp)
  - CUIT in the subject serial number

Examples:
  # Check the certificate from the configuration
  afipws cert --config afipws.yaml

  # Check against the AFIP CA chain
  afipws cert --ca-file afip-ca.crt

  # Create a key and certificate request for a new alias
  afipws cert csr --cuit 20267565393 --company "Empresa SA" --alias facturacion`,
	RunE: runCert,
}

var csrCmd = &cobra.Command{
	Use:   "csr",
	Short: "Create a private key and certificate request",
	RunE:  runCSR,
}

func init() {
	rootCmd.AddCommand(certCmd)
	certCmd.AddCommand(csrCmd)

	certCmd.Flags().StringVar(&caFile, "ca-file", "", "Custom CA certificate file (PEM format)")
	certCmd.Flags().BoolVar(&skipOCSP, "skip-ocsp", false, "Skip OCSP revocation check")

	csrCmd.Flags().StringVar(&csrCUIT, "cuit", "", "Taxpayer CUIT (11 digits)")
	csrCmd.Flags().StringVar(&csrCompany, "company", "", "Company name (O)")
	csrCmd.Flags().StringVar(&csrAlias, "alias", "", "Certificate alias (CN)")
	csrCmd.Flags().StringVar(&csrKeyOut, "key-out", "afipws.key", "Private key output path")
	csrCmd.Flags().StringVar(&csrOut, "out", "afipws.csr", "Certificate request output path")
	csrCmd.Flags().IntVar(&csrBits, "bits", credential.DefaultKeyBits, "RSA key size")
	_ = csrCmd.MarkFlagRequired("cuit")
	_ = csrCmd.MarkFlagRequired("alias")
}

func runCert(cmd *cobra.Command, args []string) error {
	cfg, err := afipws.LoadConfig(configPath)
	if err != nil {
		return err
	}
	cred, err := cfg.LoadCredential()
	if err != nil {
		return err
	}

	var opts []trust.TrustStoreOption
	if caFile == "" {
		caFile = cfg.Cert.CAFile
	}
	if caFile != "" {
		opts = append(opts, trust.WithCAFile(caFile))
	}
	if skipOCSP || cfg.Cert.SoftFailOCSP {
		opts = append(opts, trust.WithSoftFail())
	}

	store, err := trust.NewTrustStore(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trust store: %w", err)
	}

	printVerbose("Inspecting: %s\n", cred.Certificate.Subject.String())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report := credential.Inspect(ctx, cred, store, time.Now())

	if outputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(report)
	}

	if !report.Valid {
		return fmt.Errorf("certificate check failed")
	}
	return nil
}

func printReport(r *credential.Report) {
	statusIcon := "✓"
	statusText := "VALID"
	if !r.Valid {
		statusIcon = "✗"
		statusText = "INVALID"
	}
	fmt.Printf("%s Certificate: %s\n", statusIcon, statusText)

	if s := r.Subject; s != nil {
		fmt.Printf("  Subject: %s\n", s.Name)
		if s.Organization != "" {
			fmt.Printf("  Org:     %s\n", s.Organization)
		}
		if s.Issuer != "" {
			fmt.Printf("  Issuer:  %s\n", s.Issuer)
		}
		fmt.Printf("  Valid:   %s - %s\n", s.ValidFrom.Format(time.RFC3339), s.ValidTo.Format(time.RFC3339))
	}
	if r.CUIT != "" {
		fmt.Printf("  CUIT:    %s\n", r.CUIT)
	}

	check := func(ok bool) string {
		if ok {
			return "✓"
		}
		return "✗"
	}
	fmt.Printf("  Validity:   %s\n", check(r.WithinValidity))
	fmt.Printf("  Cert Chain: %s\n", check(r.ChainValid))
	revokeStatus := string(r.Revocation)
	if skipOCSP {
		revokeStatus = "- (skipped)"
	}
	fmt.Printf("  Revocation: %s\n", revokeStatus)

	for _, e := range r.Errors {
		fmt.Printf("  ✗ %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Printf("  ⚠ %s\n", w)
	}
}

func runCSR(cmd *cobra.Command, args []string) error {
	key, keyPEM, err := credential.GenerateKey(csrBits)
	if err != nil {
		return err
	}
	csr, err := credential.CreateCSR(key, csrCUIT, csrCompany, csrAlias)
	if err != nil {
		return err
	}
	if err := os.WriteFile(csrKeyOut, keyPEM, 0o600); err != nil {
		return fmt.Errorf("failed to write key: %w", err)
	}
	if err := os.WriteFile(csrOut, csr, 0o644); err != nil {
		return fmt.Errorf("failed to write certificate request: %w", err)
	}
	fmt.Printf("Key written to %s\n", csrKeyOut)
	fmt.Printf("Certificate request written to %s\n", csrOut)
	return nil
}
