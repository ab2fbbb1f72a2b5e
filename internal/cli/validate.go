package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/clearance-networks/cnd-service/internal/cnd"
)

var validateCmd = &cobra.Command{
	Use:   "validate <code>",
	Short: "Check the status of a certificate",
	Long:  `Query the server for the status of a validation code. The certificate is valid once it reports status SIGNED`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var resp cnd.ValidationResponse
		url := fmt.Sprintf("%s/api/cnd/validate/%s", serverURL, args[0])
		if err := doJSON(cmd.Context(), http.MethodGet, url, nil, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}
