// Package batch generates many shots from a prompt file through the studio
// backend.
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/manash/cinestudio/internal/image"
	"github.com/manash/cinestudio/internal/journal"
	"github.com/manash/cinestudio/internal/security"
	"github.com/manash/cinestudio/pkg/models"
)

type Result struct {
	Index    int
	Prompt   string
	URL      string
	Path     string
	Error    error
	Duration time.Duration
}

// Options holds the dock settings every item starts from. OutputDir empty
// means results stay in the backend library only.
type Options struct {
	OutputDir   string
	Gear        models.Gear
	AspectRatio string
	Strength    float64
	Parallel    int
	StopOnError bool
	DelayMs     int
}

// Generator is the slice of the backend a batch needs.
type Generator interface {
	GenerateImage(ctx context.Context, req *models.GenerateImageRequest) (*models.GenerateImageResponse, error)
}

type Recorder interface {
	Record(ctx context.Context, e *journal.Entry) error
}

type Processor struct {
	backend Generator
	saver   *image.Saver
	journal Recorder
	out     io.Writer
	err     io.Writer
	outMu   sync.Mutex
}

// NewProcessor wires a batch run. saver and rec may be nil.
func NewProcessor(backend Generator, saver *image.Saver, rec Recorder, out, errOut io.Writer) *Processor {
	return &Processor{
		backend: backend,
		saver:   saver,
		journal: rec,
		out:     out,
		err:     errOut,
	}
}

func (p *Processor) printf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.out, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) errorf(format string, args ...interface{}) {
	p.outMu.Lock()
	fmt.Fprintf(p.err, format, args...)
	p.outMu.Unlock()
}

func (p *Processor) Process(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	if opts.Parallel <= 1 {
		return p.processSequential(ctx, items, opts)
	}
	return p.processParallel(ctx, items, opts)
}

func (p *Processor) processSequential(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	for i, item := range items {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := p.processItem(ctx, item, opts, i+1, total)
		results[i] = result

		if result.Error != nil && opts.StopOnError {
			return results, fmt.Errorf("stopped at item %d: %w", i+1, result.Error)
		}

		if opts.DelayMs > 0 && i < len(items)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(time.Duration(opts.DelayMs) * time.Millisecond):
			}
		}
	}

	return results, nil
}

func (p *Processor) processParallel(ctx context.Context, items []Item, opts *Options) ([]Result, error) {
	results := make([]Result, len(items))
	total := len(items)

	type job struct {
		index int
		item  Item
	}

	jobs := make(chan job)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	stopped := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return opts.StopOnError && firstErr != nil
	}

	workers := min(opts.Parallel, len(items))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil || stopped() {
					continue
				}

				result := p.processItem(ctx, j.item, opts, j.index+1, total)

				mu.Lock()
				results[j.index] = result
				if result.Error != nil && firstErr == nil {
					firstErr = result.Error
				}
				mu.Unlock()
			}
		}()
	}

	for i, item := range items {
		if stopped() || ctx.Err() != nil {
			break
		}
		jobs <- job{index: i, item: item}
	}
	close(jobs)

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	if opts.StopOnError && firstErr != nil {
		return results, fmt.Errorf("batch stopped due to error: %w", firstErr)
	}

	return results, nil
}

func (p *Processor) processItem(ctx context.Context, item Item, opts *Options, current, total int) Result {
	start := time.Now()
	result := Result{
		Index:  item.Index,
		Prompt: item.Prompt,
	}
	fail := func(err error) Result {
		result.Error = err
		result.Duration = time.Since(start)
		p.errorf("       Error: %v\n", err)
		return result
	}

	p.printf("[%d/%d] Developing: %q...\n", current, total, truncate(item.Prompt, 50))

	req, err := buildRequest(item, opts)
	if err != nil {
		return fail(fmt.Errorf("validation failed: %w", err))
	}

	resp, err := p.backend.GenerateImage(ctx, req)
	p.record(ctx, item, req, resp, err)
	if err != nil {
		return fail(fmt.Errorf("generation failed: %w", err))
	}
	result.URL = resp.ImageURL

	if opts.OutputDir != "" && p.saver != nil {
		path := filepath.Join(opts.OutputDir, generateFilename(item.Index, item.Prompt))
		if err := p.saver.SaveTo(ctx, resp.ImageURL, path); err != nil {
			return fail(fmt.Errorf("save failed: %w", err))
		}
		result.Path = path
	}

	result.Duration = time.Since(start)
	if result.Path != "" {
		p.printf("       Saved: %s\n", result.Path)
	} else {
		p.printf("       Added to library: %s\n", result.URL)
	}

	return result
}

// buildRequest applies the item's overrides on top of the batch defaults.
// References naming readable local files are inlined as data URLs.
func buildRequest(item Item, opts *Options) (*models.GenerateImageRequest, error) {
	gear := opts.Gear
	if item.Camera != "" {
		c, err := models.FindCamera(item.Camera)
		if err != nil {
			return nil, err
		}
		gear.Camera = c
	}
	if item.Lens != "" {
		l, err := models.FindLens(item.Lens)
		if err != nil {
			return nil, err
		}
		gear.Lens = l
	}
	if item.FocalLength != "" {
		f, err := models.FindFocalLength(item.FocalLength)
		if err != nil {
			return nil, err
		}
		gear.FocalLength = f
	}

	ratio := opts.AspectRatio
	if item.AspectRatio != "" {
		ratio = item.AspectRatio
	}
	if _, err := models.FindAspectRatio(ratio); err != nil {
		return nil, err
	}

	strength := opts.Strength
	if item.Strength != nil {
		strength = *item.Strength
	}
	if err := models.ValidateStrength(strength); err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(item.References))
	for _, ref := range item.References {
		if data, err := image.ReadAsDataURL(ref); err == nil {
			refs = append(refs, data)
			continue
		}
		if err := security.ValidateMediaURL(ref); err != nil {
			return nil, fmt.Errorf("reference %q: %w", ref, err)
		}
		refs = append(refs, ref)
	}

	if strings.TrimSpace(item.Prompt) == "" && len(refs) == 0 {
		return nil, models.ErrEmptyPromptAndReferences
	}

	return models.NewImageRequest(item.Prompt, gear, ratio, refs, strength), nil
}

func (p *Processor) record(ctx context.Context, item Item, req *models.GenerateImageRequest, resp *models.GenerateImageResponse, err error) {
	if p.journal == nil {
		return
	}

	e := &journal.Entry{
		Operation: journal.OpGenerateImage,
		Prompt:    item.Prompt,
		Metadata: journal.Metadata{
			Camera:      req.Camera,
			Lens:        req.Lens,
			FocalLength: req.FocalLength,
			AspectRatio: req.AspectRatio,
			Strength:    req.ImageStrength,
			References:  len(req.ReferenceImages),
		},
	}
	if err != nil {
		e.Status = journal.StatusFailed
		e.Detail = err.Error()
	} else {
		e.Metadata.ResultURL = resp.ImageURL
	}

	if jerr := p.journal.Record(ctx, e); jerr != nil {
		p.errorf("       Warning: failed to record operation: %v\n", jerr)
	}
}

func generateFilename(index int, prompt string) string {
	return fmt.Sprintf("%03d-%s.jpg", index, sanitizePrompt(prompt))
}

var nonSlugChars = regexp.MustCompile(`[^a-zA-Z0-9\s-]`)

func sanitizePrompt(prompt string) string {
	sanitized := nonSlugChars.ReplaceAllString(prompt, "")
	sanitized = strings.ToLower(sanitized)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	sanitized = strings.TrimLeft(sanitized, "-")

	if len(sanitized) > 50 {
		sanitized = sanitized[:50]
	}
	sanitized = strings.TrimSuffix(sanitized, "-")

	if sanitized == "" {
		sanitized = "shot"
	}

	return security.SanitizeFilename(sanitized)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func (p *Processor) PrintSummary(results []Result) {
	var successful, failed int
	var errs []Result

	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			errs = append(errs, r)
		case r.URL != "":
			successful++
		}
	}

	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, "Summary:")
	fmt.Fprintf(p.out, "  Successful: %d/%d shots\n", successful, len(results))
	if failed > 0 {
		fmt.Fprintf(p.out, "  Failed: %d (see errors below)\n", failed)
	}
	if skipped := len(results) - successful - failed; skipped > 0 {
		fmt.Fprintf(p.out, "  Skipped: %d\n", skipped)
	}

	if len(errs) > 0 {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, "Errors:")
		for _, e := range errs {
			fmt.Fprintf(p.out, "  [%d] %q: %v\n", e.Index, truncate(e.Prompt, 40), e.Error)
		}
	}
}
