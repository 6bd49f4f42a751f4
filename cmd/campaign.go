package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/model"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run and inspect lead campaigns",
}

// -- campaign run --

var campaignRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Scrape and enrich leads for a business type and location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		businessType, _ := cmd.Flags().GetString("type")
		location, _ := cmd.Flags().GetString("location")
		n, _ := cmd.Flags().GetInt("leads")

		env, err := initApp(ctx, "campaign", campaign.LogSink)
		if err != nil {
			return err
		}
		defer env.Close()

		c, sum, err := env.Campaigns.Run(ctx, model.CampaignRequest{
			BusinessType:  businessType,
			Location:      location,
			NumberOfLeads: n,
		})
		if c != nil {
			zap.L().Info("campaign finished",
				zap.Int64("campaign_id", c.ID),
				zap.Int("succeeded", sum.Succeeded),
				zap.Int("failed", sum.Failed),
			)
			fmt.Fprintf(os.Stdout, "Campaign %d (%s): %d ready, %d failed\n", c.ID, c.Name, sum.Succeeded, sum.Failed)
		}
		if err != nil {
			return eris.Wrap(err, "campaign run")
		}
		return nil
	},
}

// -- campaign list --

var campaignListCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		campaigns, err := st.ListCampaigns(ctx)
		if err != nil {
			return eris.Wrap(err, "campaign list")
		}
		if len(campaigns) == 0 {
			fmt.Fprintln(os.Stderr, "No campaigns found.")
			return nil
		}
		formatCampaignList(os.Stdout, campaigns)
		return nil
	},
}

func init() {
	campaignRunCmd.Flags().String("type", "", "business type to search for (e.g. plumbing)")
	campaignRunCmd.Flags().String("location", "", "city or region to search in")
	campaignRunCmd.Flags().Int("leads", 10, "number of leads to collect")
	_ = campaignRunCmd.MarkFlagRequired("type")
	_ = campaignRunCmd.MarkFlagRequired("location")

	campaignCmd.AddCommand(campaignRunCmd)
	campaignCmd.AddCommand(campaignListCmd)
	rootCmd.AddCommand(campaignCmd)
}

// formatCampaignList writes a tabular list of campaigns to w.
func formatCampaignList(out io.Writer, campaigns []model.Campaign) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tREQUESTED\tLEADS\tREADY\tSENT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t-----\t-----\t----\t-------")
	for _, c := range campaigns {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%s\n",
			c.ID,
			truncate(c.Name, 40),
			c.NumberOfLeads,
			c.TotalLeads,
			c.ReadyLeads,
			c.SentLeads,
			c.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncate shortens s to at most n runes for compact display.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
