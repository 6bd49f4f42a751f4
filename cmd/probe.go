package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/campaign"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check that the text and image generation servers are reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		sm, closeFn, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		s, err := sm.Get(ctx)
		if err != nil {
			return err
		}

		report := campaign.Probe(ctx, s)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
}
