package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/pohoda-xml/internal/logger"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/processor"
)

var (
	outputDir   string
	timeout     time.Duration
	concurrency int
)

var transformCmd = &cobra.Command{
	Use:   "transform [files...]",
	Short: "Transform Pohoda invoice exports",
	Long: `Transform one or more Pohoda XML documents.

Invoices are rewritten in place of their combo lines, prices and
headers and written as modified_<name>. Stock receipts found among the
inputs are converted to the SHOP feed and written as parsed_<name>.

The product feed is fetched once per invoice that contains a combo
item. A feed failure fails that invoice; other files are still written.

Examples:
  pohoda-xml transform faktury.xml > modified_faktury.xml
  pohoda-xml transform exports/ -o out/
  pohoda-xml transform '*.xml' -o out/ --settings pohoda.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTransform,
}

func init() {
	rootCmd.AddCommand(transformCmd)

	transformCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Output directory (default: stdout for a single file)")
	transformCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "Processing timeout for the whole batch")
	transformCmd.Flags().IntVar(&concurrency, "concurrency", processor.DefaultConcurrency, "Files processed in parallel")
}

func runTransform(cmd *cobra.Command, args []string) error {
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

	printVerbose("Found %d files to process\n", len(files))

	l := newLogger(logger.FormatText)
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := loadSettings(ctx, l)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	inputs := make([]processor.Input, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		inputs = append(inputs, processor.Input{Name: file, Data: data})
	}

	pipeline := processor.NewPipeline(
		processor.WithFeedTimeout(appConfig.FeedTimeout),
		processor.WithLogger(l),
		processor.WithConcurrency(concurrency),
	)
	results := pipeline.ProcessBatch(ctx, inputs, s)

	failed := 0
	for i, result := range results {
		name := inputs[i].Name
		printVerbose("Processing: %s\n", name)

		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, result.Error)
			continue
		}
		for _, w := range result.Warnings {
			printVerbose("  Warning: %s\n", w)
		}
		if r := result.Report; r != nil {
			printVerbose("  Combos: %d, created items: %d, prices: %d, stores: %d, headers: %d (%s)\n",
				r.ExpandedCombos, r.CreatedItems, r.NormalizedPrices, r.InjectedStores, r.EnrichedHeaders, result.Duration)
		}

		if err := writeOutput(outputName(result.Kind, name), result.Output); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

// outputName prefixes the base name of an input by what was done to it
func outputName(kind model.Dialect, input string) string {
	base := filepath.Base(input)
	if kind == model.DialectReceipt {
		return "parsed_" + base
	}
	return "modified_" + base
}

// checkOutputNames fails when two inputs would write the same output file
func checkOutputNames(files []string) error {
	seen := make(map[string]string, len(files))
	for _, file := range files {
		base := filepath.Base(file)
		if prev, ok := seen[base]; ok {
			return fmt.Errorf("%s and %s would both be written as %s, process them separately", prev, file, base)
		}
		seen[base] = file
	}
	return nil
}

// writeOutput writes data to name inside --output-dir, or to stdout
func writeOutput(name string, data []byte) error {
	if outputDir == "" {
		_, err := os.Stdout.Write(data)
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(outputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	printVerbose("  Wrote %s\n", path)
	return nil
}
