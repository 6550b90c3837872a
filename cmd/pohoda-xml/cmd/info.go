package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/processor"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about Pohoda XML files",
	Long: `Display information about XML files without transforming them.

Shows:
  - Detected document kind (invoice, receipt, shop feed, product feed)
  - For invoices: invoice, item, combo and service line counts and currencies
  - For other kinds: item count

Examples:
  pohoda-xml info faktury.xml
  pohoda-xml info exports/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	for _, file := range files {
		printFileInfo(file)
		fmt.Println()
	}
	return nil
}

func printFileInfo(filePath string) {
	fmt.Printf("File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Printf("  Error: %v\n", err)
		return
	}
	fmt.Printf("  Size: %d bytes\n", info.Size())
	fmt.Printf("  Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Printf("  Error reading file: %v\n", err)
		return
	}

	det, err := processor.Detect(data)
	if err != nil {
		fmt.Printf("  Kind: %s\n", kindName(processor.DetectKind(data)))
		fmt.Printf("  Error: %v\n", err)
		return
	}
	fmt.Printf("  Kind: %s\n", kindName(det.Kind))

	if sum := det.Invoice; sum != nil {
		fmt.Printf("  Invoices: %d\n", sum.Invoices)
		fmt.Printf("  Items: %d (combos: %d, service lines: %d)\n", sum.Items, sum.Combos, sum.ServiceLines)
		if len(sum.Currencies) > 0 {
			fmt.Printf("  Currencies: %s\n", strings.Join(sum.Currencies, ", "))
		}
		return
	}
	if det.Kind != model.DialectUnknown {
		fmt.Printf("  Items: %d\n", det.Items)
	}
}

func kindName(k model.Dialect) string {
	switch k {
	case model.DialectInvoice:
		return "Invoice (Pohoda dataPack)"
	case model.DialectReceipt:
		return "Stock receipt (Pohoda prijemka)"
	case model.DialectShop:
		return "SHOP stock feed"
	case model.DialectFeed:
		return "Product feed"
	default:
		return "Unknown"
	}
}
