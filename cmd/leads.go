package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Review, edit, send and export leads",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a campaign's leads in processing order",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		campaignID, _ := cmd.Flags().GetInt64("campaign")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if _, err := st.GetCampaign(ctx, campaignID); err != nil {
			return eris.Wrap(err, "leads list")
		}
		leads, err := st.ListLeads(ctx, campaignID)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}
		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}
		formatLeadList(os.Stdout, leads)
		return nil
	},
}

// -- leads show --

var leadsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show full details of a lead",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		id, _ := cmd.Flags().GetInt64("id")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		lead, err := st.GetLead(ctx, id)
		if err != nil {
			return eris.Wrap(err, "leads show")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(lead)
	},
}

// -- leads edit-email --

var leadsEditEmailCmd = &cobra.Command{
	Use:   "edit-email",
	Short: "Replace a lead's generated email with the contents of a file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		id, _ := cmd.Flags().GetInt64("id")
		path, _ := cmd.Flags().GetString("file")

		content, err := readInput(path, cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := initApp(ctx, "store", campaign.LogSink)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Campaigns.UpdateLeadEmail(ctx, id, string(content))
		if err != nil {
			return eris.Wrap(err, "leads edit-email")
		}
		fmt.Fprintf(os.Stdout, "Updated email for lead %d (%s)\n", lead.ID, lead.CompanyName)
		return nil
	},
}

// -- leads send --

var leadsSendCmd = &cobra.Command{
	Use:   "send",
	Short: "Email a reviewed lead and mark it sent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		id, _ := cmd.Flags().GetInt64("id")

		env, err := initApp(ctx, "store", campaign.LogSink)
		if err != nil {
			return err
		}
		defer env.Close()

		lead, err := env.Campaigns.SendLead(ctx, id)
		if err != nil {
			return eris.Wrap(err, "leads send")
		}
		fmt.Fprintf(os.Stdout, "Sent lead %d (%s) to %s\n", lead.ID, lead.CompanyName, *lead.ContactEmail)
		return nil
	},
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a campaign's leads to an .xlsx file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		campaignID, _ := cmd.Flags().GetInt64("campaign")
		out, _ := cmd.Flags().GetString("out")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := st.GetCampaign(ctx, campaignID)
		if err != nil {
			return eris.Wrap(err, "leads export")
		}
		leads, err := st.ListLeads(ctx, campaignID)
		if err != nil {
			return eris.Wrap(err, "leads export")
		}
		if out == "" {
			out = fmt.Sprintf("campaign_%d_leads.xlsx", c.ID)
		}
		if err := export.SaveLeadsXLSX(out, c, leads); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d leads to %s\n", len(leads), out)
		return nil
	},
}

func init() {
	leadsListCmd.Flags().Int64("campaign", 0, "campaign ID")
	_ = leadsListCmd.MarkFlagRequired("campaign")

	leadsShowCmd.Flags().Int64("id", 0, "lead ID")
	_ = leadsShowCmd.MarkFlagRequired("id")

	leadsEditEmailCmd.Flags().Int64("id", 0, "lead ID")
	leadsEditEmailCmd.Flags().String("file", "-", "file holding the new email text (- for stdin)")
	_ = leadsEditEmailCmd.MarkFlagRequired("id")

	leadsSendCmd.Flags().Int64("id", 0, "lead ID")
	_ = leadsSendCmd.MarkFlagRequired("id")

	leadsExportCmd.Flags().Int64("campaign", 0, "campaign ID")
	leadsExportCmd.Flags().String("out", "", "output path (default campaign_<id>_leads.xlsx)")
	_ = leadsExportCmd.MarkFlagRequired("campaign")

	leadsCmd.AddCommand(leadsListCmd, leadsShowCmd, leadsEditEmailCmd, leadsSendCmd, leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}

// readInput reads path, or stdin when path is "-" or empty.
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		return data, eris.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", path)
	}
	return data, nil
}

// formatLeadList writes a tabular list of leads to w.
func formatLeadList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tWEBSITE\tEMAIL\tSTATUS\tPROCESSED")
	_, _ = fmt.Fprintln(w, "--\t-------\t-------\t-----\t------\t---------")
	for _, l := range leads {
		email := "-"
		if l.HasContactEmail() {
			email = *l.ContactEmail
		}
		processed := "-"
		if l.ProcessedAt != nil {
			processed = l.ProcessedAt.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			l.ID,
			truncate(l.CompanyName, 30),
			truncate(l.WebsiteURL, 40),
			email,
			l.Status,
			processed,
		)
	}
	_ = w.Flush()
}
