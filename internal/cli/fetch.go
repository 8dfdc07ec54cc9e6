package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dimitrmo/cygaz/internal/app"
	"github.com/dimitrmo/cygaz/internal/petrol"
)

var (
	fetchTypeID int
	fetchJSON   bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch current prices for one petroleum type and print them",
	RunE: func(cmd *cobra.Command, args []string) error {
		t, ok := petrol.TypeFromID(fetchTypeID)
		if !ok {
			return fmt.Errorf("--type must be between 1 and 5, got %d", fetchTypeID)
		}

		opts := app.FetchOptions{
			Type: t,
			JSON: fetchJSON,
		}

		return getApp().Fetch(cmd.Context(), opts)
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchTypeID, "type", int(petrol.Unlead95), "Petroleum type id (1-5)")
	fetchCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print the result as JSON")
}
