// Package processor is the entry point for document transforms: it parses
// input, dispatches on the document kind and serializes the result.
package processor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rezonia/pohoda-xml/internal/config"
	"github.com/rezonia/pohoda-xml/internal/feed"
	"github.com/rezonia/pohoda-xml/internal/invoice"
	"github.com/rezonia/pohoda-xml/internal/model"
	"github.com/rezonia/pohoda-xml/internal/receipt"
	"github.com/rezonia/pohoda-xml/internal/xmltree"
)

// DefaultConcurrency bounds ProcessBatch
const DefaultConcurrency = 4

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result contains the outcome of one transform. Output is nil whenever
// Error is set.
type Result struct {
	Kind     model.Dialect
	Output   []byte
	Report   *invoice.Report
	Items    []model.ReceiptItem
	Warnings []string
	Duration time.Duration
	Error    error
}

// Input is one named document of a batch
type Input struct {
	Name string
	Data []byte
}

// Pipeline orchestrates document transforms
type Pipeline struct {
	rewriter    *invoice.Rewriter
	logger      *slog.Logger
	concurrency int
}

// PipelineOption configures the pipeline
type PipelineOption func(*pipelineConfig)

type pipelineConfig struct {
	source      invoice.ProductSource
	feedTimeout time.Duration
	logger      *slog.Logger
	concurrency int
}

// WithProductSource sets where combo products are looked up
func WithProductSource(src invoice.ProductSource) PipelineOption {
	return func(cfg *pipelineConfig) {
		cfg.source = src
	}
}

// WithFeedTimeout sets the timeout of the default feed client
func WithFeedTimeout(d time.Duration) PipelineOption {
	return func(cfg *pipelineConfig) {
		cfg.feedTimeout = d
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) PipelineOption {
	return func(cfg *pipelineConfig) {
		cfg.logger = l
	}
}

// WithConcurrency sets how many documents ProcessBatch handles at once
func WithConcurrency(n int) PipelineOption {
	return func(cfg *pipelineConfig) {
		cfg.concurrency = n
	}
}

// NewPipeline creates a new processing pipeline
func NewPipeline(opts ...PipelineOption) *Pipeline {
	cfg := &pipelineConfig{
		feedTimeout: feed.DefaultTimeout,
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.source == nil {
		cfg.source = feed.NewClient(
			feed.WithTimeout(cfg.feedTimeout),
			feed.WithLogger(cfg.logger),
		)
	}
	if cfg.concurrency < 1 {
		cfg.concurrency = 1
	}

	return &Pipeline{
		rewriter:    invoice.NewRewriter(cfg.source, invoice.WithLogger(cfg.logger)),
		logger:      cfg.logger,
		concurrency: cfg.concurrency,
	}
}

// ProcessInvoice reads an invoice document from r and transforms it
func (p *Pipeline) ProcessInvoice(ctx context.Context, r io.Reader, s *config.Settings) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Kind: model.DialectInvoice, Error: fmt.Errorf("failed to read input: %w", err)}
	}
	return p.ProcessInvoiceBytes(ctx, data, s)
}

// ProcessInvoiceBytes transforms an invoice document
func (p *Pipeline) ProcessInvoiceBytes(ctx context.Context, data []byte, s *config.Settings) *Result {
	start := time.Now()
	result := &Result{Kind: model.DialectInvoice}
	defer func() { result.Duration = time.Since(start) }()

	doc, err := xmltree.Parse(data)
	if err != nil {
		result.Error = model.NewParseError(model.DialectInvoice, "document", "XML parsing failed", err)
		return result
	}

	report, err := p.rewriter.Rewrite(ctx, doc, s)
	if err != nil {
		result.Error = err
		return result
	}

	out, err := doc.Bytes()
	if err != nil {
		result.Error = err
		return result
	}

	result.Output = out
	result.Report = report
	result.Warnings = report.Warnings()
	return result
}

// ProcessReceipt reads a receipt document from r and converts it
func (p *Pipeline) ProcessReceipt(ctx context.Context, r io.Reader) *Result {
	data, err := io.ReadAll(r)
	if err != nil {
		return &Result{Kind: model.DialectReceipt, Error: fmt.Errorf("failed to read input: %w", err)}
	}
	return p.ProcessReceiptBytes(ctx, data)
}

// ProcessReceiptBytes converts a receipt document into a SHOP document
func (p *Pipeline) ProcessReceiptBytes(ctx context.Context, data []byte) *Result {
	start := time.Now()
	result := &Result{Kind: model.DialectReceipt}
	defer func() { result.Duration = time.Since(start) }()

	out, items, err := receipt.Convert(data)
	if err != nil {
		result.Error = err
		return result
	}

	p.logger.InfoContext(ctx, "receipt converted", "items", len(items))
	result.Output = out
	result.Items = items
	return result
}

// Process detects the document kind and runs the matching transform
func (p *Pipeline) Process(ctx context.Context, data []byte, s *config.Settings) *Result {
	switch kind := DetectKind(data); kind {
	case model.DialectInvoice:
		return p.ProcessInvoiceBytes(ctx, data, s)
	case model.DialectReceipt:
		return p.ProcessReceiptBytes(ctx, data)
	default:
		return &Result{
			Kind:  kind,
			Error: model.NewParseError(kind, "document", "unsupported document kind", nil),
		}
	}
}

// ProcessBatch runs Process on every input. Results keep the input order;
// each document is transformed on its own.
func (p *Pipeline) ProcessBatch(ctx context.Context, inputs []Input, s *config.Settings) []*Result {
	results := make([]*Result, len(inputs))
	sem := make(chan struct{}, p.concurrency)

	var wg sync.WaitGroup
	for i, in := range inputs {
		wg.Add(1)
		go func(idx int, in Input) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := ctx.Err(); err != nil {
				results[idx] = &Result{Kind: model.DialectUnknown, Error: err}
				return
			}
			results[idx] = p.Process(ctx, in.Data, s)
		}(i, in)
	}
	wg.Wait()

	return results
}

// DetectKind identifies the dialect of data by its element names.
// Unparseable input is DialectUnknown.
func DetectKind(data []byte) model.Dialect {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return model.DialectUnknown
	}

	doc, err := xmltree.Parse(trimmed)
	if err != nil {
		return model.DialectUnknown
	}
	root := doc.Root()

	switch root.Tag {
	case "SHOP":
		return model.DialectShop
	case "PRODUCTS":
		return model.DialectFeed
	case "dataPack":
		if hasDescendant(root, "invoice") {
			return model.DialectInvoice
		}
		if hasDescendant(root, "prijemka") {
			return model.DialectReceipt
		}
	}
	return model.DialectUnknown
}
