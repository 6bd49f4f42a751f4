package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show, export, import and reset runtime settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings (password hidden)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		sm, closeFn, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		s, err := sm.Get(ctx)
		if err != nil {
			return eris.Wrap(err, "settings show")
		}
		if s.EmailPassword != "" {
			s.EmailPassword = "********"
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	},
}

var settingsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write settings as YAML without the email password",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		out, _ := cmd.Flags().GetString("out")

		sm, closeFn, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if out == "" || out == "-" {
			return sm.Export(ctx, os.Stdout)
		}
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "create %s", out)
		}
		if err := sm.Export(ctx, f); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrapf(f.Close(), "close %s", out)
	},
}

var settingsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate and save settings from a YAML file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, _ := cmd.Flags().GetString("file")

		data, err := readInput(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		sm, closeFn, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if _, err := sm.Import(ctx, bytes.NewReader(data)); err != nil {
			return eris.Wrap(err, "settings import")
		}
		fmt.Fprintln(os.Stdout, "Settings imported.")
		return nil
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore default settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sm, closeFn, err := openSettings(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		if err := sm.Reset(cmd.Context()); err != nil {
			return eris.Wrap(err, "settings reset")
		}
		fmt.Fprintln(os.Stdout, "Settings reset to defaults.")
		return nil
	},
}

var settingsTestEmailCmd = &cobra.Command{
	Use:   "test-email",
	Short: "Send a test message to the configured sender address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, "store", campaign.LogSink)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Campaigns.SendTestEmail(ctx); err != nil {
			return eris.Wrap(err, "settings test-email")
		}
		fmt.Fprintln(os.Stdout, "Test email sent.")
		return nil
	},
}

var settingsVerifyEmailCmd = &cobra.Command{
	Use:   "verify-email",
	Short: "Check the SMTP connection and credentials without sending",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		env, err := initApp(ctx, "store", campaign.LogSink)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Campaigns.VerifyMail(ctx); err != nil {
			return eris.Wrap(err, "settings verify-email")
		}
		fmt.Fprintln(os.Stdout, "SMTP connection OK.")
		return nil
	},
}

func init() {
	settingsExportCmd.Flags().String("out", "-", "output path (- for stdout)")
	settingsImportCmd.Flags().String("file", "-", "YAML file to import (- for stdin)")

	settingsCmd.AddCommand(settingsShowCmd, settingsExportCmd, settingsImportCmd, settingsResetCmd, settingsTestEmailCmd, settingsVerifyEmailCmd)
	rootCmd.AddCommand(settingsCmd)
}

// openSettings opens the store and returns a settings manager over it.
func openSettings(cmd *cobra.Command) (*settings.Manager, func(), error) {
	st, err := openStore(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	return settings.NewManager(st, settings.Defaults(cfg)), func() { _ = st.Close() }, nil
}
