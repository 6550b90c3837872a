package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/pohoda-xml/internal/logger"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/processor"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt [files...]",
	Short: "Convert stock receipts to the SHOP feed",
	Long: `Convert Pohoda stock receipts (prijemka) to the SHOP/SHOPITEM stock
feed. Each input is written as parsed_<name>.

No settings or network access are needed.

Examples:
  pohoda-xml receipt prijemka.xml > shop.xml
  pohoda-xml receipt receipts/ -o out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReceipt,
}

func init() {
	rootCmd.AddCommand(receiptCmd)

	receiptCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (default: stdout for a single file)")
}

func runReceipt(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to process")
	}
	if len(files) > 1 && outputDir == "" {
		return fmt.Errorf("%d files found, use --output-dir to write more than one", len(files))
	}
	if err := checkOutputNames(files); err != nil {
		return err
	}

	pipeline := processor.NewPipeline(processor.WithLogger(newLogger(logger.FormatText)))
	ctx := cmd.Context()

	failed := 0
	for _, file := range files {
		printVerbose("Converting: %s\n", file)

		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		result := pipeline.ProcessReceiptBytes(ctx, data)
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, result.Error)
			continue
		}
		printVerbose("  Items: %d\n", len(result.Items))

		if err := writeOutput(outputName(model.DialectReceipt, file), result.Output); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}
