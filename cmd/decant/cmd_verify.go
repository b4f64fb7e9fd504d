package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
)

func newVerifyCmd(a *app) *cobra.Command {
	var (
		checksum  string
		signature string
		keyrings  []string
		verifyAll bool
	)

	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify an installer against a checksum or publisher signature",
		Long: `Verify a downloaded installer before building from it.

Supports:
  - Checksums: SHA256 digest or a "<hash>  <file>" checksum file
  - OpenPGP: detached signatures checked against local public keys`,
		Example: `  # Verify a digest
  decant verify setup.exe --checksum 3a7bd3e2360a3d...

  # Verify against a checksum file
  decant verify setup.exe --checksum setup.exe.sha256

  # Verify an OpenPGP signature
  decant verify setup.exe --signature setup.exe.asc --keyring vendor.asc

  # Pick up setup.exe.sha256 and setup.exe.asc automatically
  decant verify setup.exe --all --keyring vendor.asc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filePath := args[0]
			out := cmd.OutOrStdout()

			// Auto-detect sidecar files if --all is specified
			if verifyAll {
				if checksum == "" && fileExists(filePath+".sha256") {
					checksum = filePath + ".sha256"
				}
				if signature == "" {
					for _, ext := range []string{".asc", ".sig"} {
						if fileExists(filePath + ext) {
							signature = filePath + ext
							break
						}
					}
				}
			}

			fmt.Fprintf(out, "Verifying %s\n\n", filepath.Base(filePath))
			var checked int
			var failures []error

			if checksum != "" {
				checked++
				if err := verifyChecksum(cmd, filePath, checksum); err != nil {
					fmt.Fprintf(out, "✗ Checksum verification FAILED: %v\n", err)
					failures = append(failures, err)
				} else {
					fmt.Fprintln(out, "✓ Checksum verified")
				}
			}

			if signature != "" {
				checked++
				verifier := gateways.NewSignatureVerifier(a.logger.Component("signature"))
				signer, err := verifier.Verify(ctx, filePath, signature, keyrings)
				if err != nil {
					fmt.Fprintf(out, "✗ Signature verification FAILED: %v\n", err)
					failures = append(failures, err)
				} else {
					fmt.Fprintf(out, "✓ Signature verified (signer %s)\n", signer)
				}
			}

			if checked == 0 {
				return errors.New("no verification checks performed (specify --checksum, --signature or --all)")
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d of %d verification checks failed: %w", len(failures), checked, errors.Join(failures...))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&checksum, "checksum", "", "Expected SHA256 digest or checksum file")
	cmd.Flags().StringVar(&signature, "signature", "", "Detached OpenPGP signature file")
	cmd.Flags().StringSliceVar(&keyrings, "keyring", nil, "Public key file (repeatable)")
	cmd.Flags().BoolVar(&verifyAll, "all", false, "Use <file>.sha256 and <file>.asc when present")
	return cmd
}

// verifyChecksum accepts either a bare digest or a checksum file
func verifyChecksum(cmd *cobra.Command, filePath, checksum string) error {
	expected := checksum
	if fileExists(checksum) {
		//nolint:gosec // G304: checksum file is a user-provided path for verification
		data, err := os.ReadFile(checksum)
		if err != nil {
			return fmt.Errorf("failed to read checksum file: %w", err)
		}
		// Format: "hash  filename"
		parts := strings.Fields(string(data))
		if len(parts) < 1 {
			return errors.New("invalid checksum file format")
		}
		expected = parts[0]
	}
	return gateways.NewChecksumCalculator().VerifyChecksum(cmd.Context(), filePath, expected)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
