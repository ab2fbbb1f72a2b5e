// keygen is a CLI tool for generating the CND signing key pair in JWK format.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cndcrypto "github.com/clearance-networks/cnd-service/internal/crypto"
	"github.com/clearance-networks/cnd-service/internal/version"
)

// file naming convention - name.public.jwk and name.private.jwk
const (
	publicKeyFileNameFormat  = "%s.public.jwk"
	privateKeyFileNameFormat = "%s.private.jwk"
)

var (
	name      string
	outputDir string
	keyType   string
	rsaSize   int
	kid       string
	pemExport bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "JWK key generator for the CND service",
		Long:              "Generate RSA or Ed25519 key pairs in JWK format for signing clearance certificates",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		Long:  "Generate a new RSA or Ed25519 key pair in JWK format. The private key is read by cnd-server (SIGNING_KEY_PATH); the public key is what the server publishes on /.well-known/jwks.json",
		RunE:  runGenerate,
	}

	generateCmd.Flags().StringVarP(&name, "name", "n", "", "Key name used in the output filenames [required]")
	generateCmd.Flags().StringVarP(&keyType, "type", "t", "ed25519", "Key type: rsa or ed25519")
	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated keys [required]")
	generateCmd.Flags().IntVarP(&rsaSize, "size", "s", 4096, "RSA key size in bits (2048 or 4096, default: 4096)")
	generateCmd.Flags().StringVarP(&kid, "kid", "k", "", "Key ID (default: auto-generated from thumbprint)")
	generateCmd.Flags().BoolVar(&pemExport, "pem", false, "Also export the private key as PKCS#8 PEM")
	generateCmd.MarkFlagRequired("name")
	generateCmd.MarkFlagRequired("outputdir")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if keyType != "rsa" && keyType != "ed25519" {
		return fmt.Errorf("invalid key type: %s (must be 'rsa' or 'ed25519')", keyType)
	}

	// make the directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	var privateKey any
	var err error
	if keyType == "rsa" {
		fmt.Printf("Generating %d-bit RSA key pair: %s\n", rsaSize, name)
		privateKey, err = cndcrypto.GenerateRSAKeyPair(rsaSize)
	} else {
		fmt.Printf("Generating Ed25519 key pair: %s\n", name)
		privateKey, err = cndcrypto.GenerateEd25519KeyPair()
	}
	if err != nil {
		return fmt.Errorf("failed to generate %s key: %w", keyType, err)
	}

	return saveKeyPair(privateKey)
}

func saveKeyPair(privateKey any) error {
	// Generate key ID from the RFC 7638 thumbprint if not provided. The
	// thumbprint only covers the required public members, so the private key
	// yields the same value as its public half.
	keyID := kid
	if keyID == "" {
		var err error
		keyID, err = cndcrypto.Thumbprint(privateKey)
		if err != nil {
			return fmt.Errorf("failed to generate key ID: %w", err)
		}
	}

	publicFile := fmt.Sprintf(publicKeyFileNameFormat, name)
	if err := cndcrypto.SavePublicKeyToJWKFile(privateKey, keyID, outputDir, publicFile); err != nil {
		return fmt.Errorf("failed to save public key: %w", err)
	}
	fmt.Printf("✓ Public JWK:  %s/%s (kid: %s)\n", outputDir, publicFile, keyID)

	privateFile := fmt.Sprintf(privateKeyFileNameFormat, name)
	if err := cndcrypto.SavePrivateKeyToJWKFile(privateKey, keyID, outputDir, privateFile); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	fmt.Printf("✓ Private JWK: %s/%s (kid: %s)\n", outputDir, privateFile, keyID)

	if pemExport {
		pemFile := name + ".private.pem"
		if err := cndcrypto.SavePrivateKeyToPEMFile(privateKey, outputDir, pemFile); err != nil {
			return fmt.Errorf("failed to save PEM key: %w", err)
		}
		fmt.Printf("✓ Private PEM: %s/%s\n", outputDir, pemFile)
	}

	return nil
}
