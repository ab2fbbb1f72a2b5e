package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/clearance-networks/cnd-service/internal/cnd"
)

var (
	withPeriod    bool
	withSignature bool
	channel       string
)

var issueCmd = &cobra.Command{
	Use:   "issue <unit-id>",
	Short: "Request issuance of a clearance certificate",
	Long:  `Request issuance of a debt clearance certificate for a unit. The server answers immediately with a validation code; use the validate command to poll for the signed state`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := cnd.IssueRequest{
			WithPeriod:    withPeriod,
			WithSignature: withSignature,
			Channel:       channel,
		}

		var resp cnd.IssueResponse
		url := fmt.Sprintf("%s/api/cnd/issue/%s", serverURL, args[0])
		if err := doJSON(cmd.Context(), http.MethodPost, url, req, &resp); err != nil {
			return err
		}
		return printJSON(resp)
	},
}

func init() {
	issueCmd.Flags().BoolVar(&withPeriod, "with-period", false, "Include the covered period in the certificate")
	issueCmd.Flags().BoolVar(&withSignature, "with-signature", false, "Request a visible signature block")
	issueCmd.Flags().StringVar(&channel, "channel", "CLI", "Origin channel recorded with the request")
}
