// Package pipeline orchestrates the stages of processing a ROM with a schema.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/romschema/internal/app"
	"github.com/retroenv/romschema/internal/config"
	"github.com/retroenv/romschema/internal/detector"
	"github.com/retroenv/romschema/internal/loader"
	"github.com/retroenv/romschema/internal/options"
	"github.com/retroenv/romschema/internal/render"
	"github.com/retroenv/romschema/internal/rom"
	"github.com/retroenv/romschema/internal/schema"
	"github.com/retroenv/romschema/internal/verification"
	"github.com/retroenv/romschema/internal/writer"
)

var errInvalidEdit = errors.New("invalid edit")

// Result contains the outcome of a pipeline run.
type Result struct {
	Document *rom.Document
	ROM      *loader.ROM
	Info     detector.Info
}

// Pipeline orchestrates the complete processing workflow.
type Pipeline struct {
	logger   *log.Logger
	detector *detector.Detector
	loader   *loader.Loader
}

// New creates a new processing pipeline.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{
		logger:   logger,
		detector: detector.New(logger),
		loader:   loader.New(),
	}
}

// Execute loads the schema and the ROM file of the options and runs all
// stages on them.
func (p *Pipeline) Execute(ctx context.Context, opts options.Program, listing io.Writer) (*Result, error) {
	def, err := p.loader.LoadSchema(opts.Schema)
	if err != nil {
		return nil, err
	}
	r, err := p.loader.Load(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("loading rom: %w", err)
	}
	return p.ExecuteWithData(ctx, def, r, opts, listing)
}

// ExecuteWithData runs the pipeline with a loaded schema and ROM.
// This is useful for testing and programmatic usage where the data is already in memory.
func (p *Pipeline) ExecuteWithData(ctx context.Context, def *schema.Definition, r *loader.ROM,
	opts options.Program, listing io.Writer) (*Result, error) {

	info := p.detector.Detect(opts.Input, r.Data)
	docOpts := config.CreateDocumentOptions(p.logger, opts, def.Mode, info.Mode)

	doc, err := rom.New(def, r.Data, docOpts)
	if err != nil {
		return nil, fmt.Errorf("creating document: %w", err)
	}
	app.PrintInfo(p.logger, opts, doc, info)
	result := &Result{Document: doc, ROM: r, Info: info}

	if opts.Verify {
		if err := verification.VerifyOutput(ctx, p.logger, def, r.Data, docOpts); err != nil {
			return nil, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}

	if err := p.applyEdits(doc, opts.Set); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("applying edits: %w", err)
	}

	if err := writer.New(doc, listing, options.NewListing(opts)).Write(); err != nil {
		return nil, fmt.Errorf("writing listing: %w", err)
	}

	if opts.Render != "" {
		if err := p.render(doc, opts); err != nil {
			return nil, err
		}
	}

	if opts.Write != "" {
		if err := p.loader.Write(opts.Write, r, doc.Assemble()); err != nil {
			return nil, fmt.Errorf("writing rom: %w", err)
		}
		p.logger.Info("ROM written", log.String("file", opts.Write))
	}
	return result, nil
}

// edit is a value assignment from the command line.
type edit struct {
	link  string
	value string
}

func parseEdit(s string) (edit, error) {
	link, value, ok := strings.Cut(s, "=")
	link = strings.TrimSpace(link)
	if !ok || link == "" {
		return edit{}, fmt.Errorf("%w '%s', expected link=value", errInvalidEdit, s)
	}
	return edit{link: link, value: value}, nil
}

// applyEdits applies all edits as a single undoable transaction.
func (p *Pipeline) applyEdits(doc *rom.Document, edits []string) error {
	if len(edits) == 0 {
		return nil
	}

	doc.BeginTransaction("Command line edits")
	defer doc.EndTransaction()

	for _, s := range edits {
		e, err := parseEdit(s)
		if err != nil {
			return err
		}
		if err := applyEdit(doc, e); err != nil {
			return fmt.Errorf("applying edit '%s': %w", s, err)
		}
		p.logger.Debug("Applied edit", log.String("link", e.link), log.String("value", e.value))
	}
	return nil
}

func applyEdit(doc *rom.Document, e edit) error {
	n, err := doc.Resolve(e.link)
	if err != nil {
		return err
	}

	switch v := n.(type) {
	case *rom.Field:
		if v.IsBool() {
			b, err := strconv.ParseBool(e.value)
			if err != nil {
				return fmt.Errorf("%w: %w", errInvalidEdit, err)
			}
			v.SetBool(b)
			return nil
		}
		value, err := strconv.ParseInt(e.value, 0, 64)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidEdit, err)
		}
		v.SetValue(value)
		return nil

	case *rom.Text:
		v.SetText(e.value)
		return nil

	default:
		return fmt.Errorf("%w: %s nodes can not be edited", errInvalidEdit, n.Kind())
	}
}

func (p *Pipeline) render(doc *rom.Document, opts options.Program) error {
	img, err := render.Render(doc, render.Options{
		Graphics: opts.Render,
		Palette:  opts.Palette,
		Columns:  opts.Columns,
		Scale:    opts.Scale,
	})
	if err != nil {
		return fmt.Errorf("rendering graphics: %w", err)
	}

	file, err := os.Create(opts.RenderOut)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", opts.RenderOut, err)
	}
	if err := render.WritePNG(file, img); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", opts.RenderOut, err)
	}
	p.logger.Info("Graphics rendered", log.String("file", opts.RenderOut))
	return nil
}
