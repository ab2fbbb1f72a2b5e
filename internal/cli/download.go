package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var outputPath string

var downloadCmd = &cobra.Command{
	Use:   "download <code>",
	Short: "Download the certificate document",
	Long:  `Download the stored certificate artifact for a validation code. The signed artifact is returned when signing has completed, the raw document otherwise`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		url := fmt.Sprintf("%s/api/cnd/download/%s", serverURL, args[0])
		data, err := fetchBytes(cmd.Context(), url)
		if err != nil {
			return err
		}

		if outputPath == "" {
			_, err := os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", outputPath, err)
		}
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", len(data), outputPath)
		return nil
	},
}

func init() {
	downloadCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the document to a file instead of stdout")
}
