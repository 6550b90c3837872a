package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/logger"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage transform settings in the settings database",
	Long: `Manage the transform settings stored in the settings database.

Known codes:
  bank_id, account_no, bank_code, const_symbol  bank account for EUR invoices
  store_id                                      store injected into stock items
  feed_url, hash                                shop product feed
  eur_rate                                      CZK per EUR for foreign prices

Examples:
  pohoda-xml settings list
  pohoda-xml settings set eur_rate=25.10 store_id=SKLAD
  pohoda-xml settings import pohoda.yaml`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set code=value [code=value...]",
	Short: "Update settings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSettingsSet,
}

var settingsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Update settings from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsImport,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsListCmd, settingsSetCmd, settingsImportCmd)
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	store, service, err := openSettings(newLogger(logger.FormatText))
	if err != nil {
		return err
	}
	defer store.Close()

	list, err := service.List(cmd.Context())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CATEGORY\tCODE\tNAME\tVALUE")
	fmt.Fprintln(tw, "--------\t----\t----\t-----")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Category, s.Code, s.Name, s.Value)
	}
	return tw.Flush()
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	values, err := parseAssignments(args)
	if err != nil {
		return err
	}
	return updateSettings(cmd, values)
}

func runSettingsImport(cmd *cobra.Command, args []string) error {
	values, err := config.ReadSettingsFile(args[0])
	if err != nil {
		return err
	}
	return updateSettings(cmd, values)
}

func updateSettings(cmd *cobra.Command, values map[string]string) error {
	for code := range values {
		if !config.IsKey(code) {
			return fmt.Errorf("unknown setting %q", code)
		}
	}

	store, service, err := openSettings(newLogger(logger.FormatText))
	if err != nil {
		return err
	}
	defer store.Close()

	updated, err := service.Update(cmd.Context(), values)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %d settings: %s\n", len(updated), strings.Join(updated, ", "))
	return nil
}

// parseAssignments splits code=value arguments
func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		code, value, ok := strings.Cut(arg, "=")
		if !ok || code == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected code=value", arg)
		}
		values[strings.TrimSpace(code)] = strings.TrimSpace(value)
	}
	return values, nil
}
