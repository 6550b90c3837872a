package pohoda

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/rezonia/pohoda-xml/internal/feed"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/processor"
)

// Options configures a Processor
type Options struct {
	// FeedTimeout bounds one product feed request
	FeedTimeout time.Duration
	// Source replaces the HTTP product feed client
	Source ProductSource
	// Concurrency bounds TransformBatch
	Concurrency int
	Logger      *slog.Logger
}

// DefaultOptions returns the default processor options
func DefaultOptions() Options {
	return Options{
		FeedTimeout: feed.DefaultTimeout,
		Concurrency: processor.DefaultConcurrency,
	}
}

// TransformResult is a transformed invoice document
type TransformResult struct {
	Output   []byte
	Report   *Report
	Warnings []string
	Duration time.Duration
}

// ReceiptResult is a receipt converted to the SHOP feed
type ReceiptResult struct {
	Output []byte
	Items  []ReceiptItem
}

// Detection describes a document without transforming it
type Detection = processor.Detection

// Processor transforms Pohoda documents
type Processor struct {
	pipeline *processor.Pipeline
}

// NewProcessor creates a processor with the given options
func NewProcessor(opts Options) *Processor {
	pipelineOpts := []processor.PipelineOption{
		processor.WithConcurrency(opts.Concurrency),
	}
	if opts.FeedTimeout > 0 {
		pipelineOpts = append(pipelineOpts, processor.WithFeedTimeout(opts.FeedTimeout))
	}
	if opts.Source != nil {
		pipelineOpts = append(pipelineOpts, processor.WithProductSource(opts.Source))
	}
	if opts.Logger != nil {
		pipelineOpts = append(pipelineOpts, processor.WithLogger(opts.Logger))
	}

	return &Processor{pipeline: processor.NewPipeline(pipelineOpts...)}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultOptions())
}

// Transform rewrites the invoice document read from r. A nil s applies no
// optional step. On error no output is returned.
func (p *Processor) Transform(ctx context.Context, r io.Reader, s *Settings) (*TransformResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(model.DialectInvoice, "input", "failed to read input", err)
	}

	result := p.pipeline.ProcessInvoiceBytes(ctx, data, s)
	if result.Error != nil {
		return nil, result.Error
	}
	return &TransformResult{
		Output:   result.Output,
		Report:   result.Report,
		Warnings: result.Warnings,
		Duration: result.Duration,
	}, nil
}

// ConvertReceipt converts the stock receipt read from r to the SHOP feed
func (p *Processor) ConvertReceipt(ctx context.Context, r io.Reader) (*ReceiptResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewParseError(model.DialectReceipt, "input", "failed to read input", err)
	}

	result := p.pipeline.ProcessReceiptBytes(ctx, data)
	if result.Error != nil {
		return nil, result.Error
	}
	return &ReceiptResult{Output: result.Output, Items: result.Items}, nil
}

// TransformBatch transforms documents concurrently. Invoices and receipts
// are told apart by content. Results and errors keep the input order; a
// failed document leaves a nil result and its error.
func (p *Processor) TransformBatch(ctx context.Context, inputs [][]byte, s *Settings) ([]*TransformResult, []error) {
	batch := make([]processor.Input, len(inputs))
	for i, data := range inputs {
		batch[i] = processor.Input{Data: data}
	}

	results := make([]*TransformResult, len(inputs))
	errs := make([]error, len(inputs))
	for i, res := range p.pipeline.ProcessBatch(ctx, batch, s) {
		if res.Error != nil {
			errs[i] = res.Error
			continue
		}
		results[i] = &TransformResult{
			Output:   res.Output,
			Report:   res.Report,
			Warnings: res.Warnings,
			Duration: res.Duration,
		}
	}
	return results, errs
}

// Detect identifies a document and counts its items
func Detect(data []byte) (*Detection, error) {
	return processor.Detect(data)
}

// Transform rewrites an invoice with a default processor
func Transform(ctx context.Context, r io.Reader, s *Settings) (*TransformResult, error) {
	return NewDefaultProcessor().Transform(ctx, r, s)
}

// ConvertReceipt converts a stock receipt with a default processor
func ConvertReceipt(ctx context.Context, r io.Reader) (*ReceiptResult, error) {
	return NewDefaultProcessor().ConvertReceipt(ctx, r)
}
