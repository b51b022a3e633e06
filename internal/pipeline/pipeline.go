// Package pipeline implements the fan-out that turns a batch of fetched
// or parsed review records into stored, rendered, and shared state.
package pipeline

import (
	"context"

	"github.com/samskrta/review-image/internal/review"
)

// Store is the subset of internal/store.Store the pipeline needs.
type Store interface {
	Has(id string) bool
	Add(r *review.Record) error
	MarkProcessed(id string, imageGenerated, chatShared *bool)
}

// RenderRequest carries everything a Renderer needs to produce one image
// from a review record. The pipeline leaves Template, Size and Format
// empty, so the renderer's own defaults apply.
type RenderRequest struct {
	ReviewerName string
	ReviewText   string
	Rating       int
	TechName     string
	TechPhotoURL string
	Source       string
	Template     string
	Size         string
	Format       string
}

// RenderResult is a rendered image and the format it was encoded in.
type RenderResult struct {
	Image  []byte
	Format string
}

// Renderer is the subset of internal/render.Coordinator the pipeline needs.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (RenderResult, error)
}

// Sharer is the subset of internal/chat.Client the pipeline needs.
type Sharer interface {
	Share(ctx context.Context, r review.Record, image []byte, format string) error
}

// Options configures a Pipeline's auto-generate/auto-share behavior,
// read from the config document's ingestion block.
type Options struct {
	AutoGenerate          bool
	AutoShare             bool
	MinRatingForAutoShare int
}

const defaultMinRatingForAutoShare = 4

// StepError records a failure at one of process()'s non-blocking steps.
type StepError struct {
	RecordID string `json:"record_id"`
	Step     string `json:"step"`
	Message  string `json:"message"`
}

// Summary is the result of a Process call.
type Summary struct {
	New       int         `json:"new"`
	Duplicate int         `json:"duplicate"`
	Generated int         `json:"generated"`
	Shared    int         `json:"shared"`
	Errors    []StepError `json:"errors"`
}

// Pipeline wires a store, renderer, and sharer together to implement the
// per-record fan-out contract.
type Pipeline struct {
	store    Store
	renderer Renderer
	sharer   Sharer
	opts     Options
}

// New builds a Pipeline. opts.MinRatingForAutoShare defaults to 4 when zero.
func New(store Store, renderer Renderer, sharer Sharer, opts Options) *Pipeline {
	if opts.MinRatingForAutoShare == 0 {
		opts.MinRatingForAutoShare = defaultMinRatingForAutoShare
	}
	return &Pipeline{store: store, renderer: renderer, sharer: sharer, opts: opts}
}

// Process runs every record through the four-step contract in order:
// dedup, store, optional auto-generate, optional auto-share. Errors in
// generate do not block the store write; errors in share do not block the
// generated flag. Records are processed sequentially, preserving order.
func (p *Pipeline) Process(ctx context.Context, records []review.Record) Summary {
	var sum Summary

	for i := range records {
		r := records[i]

		if p.store.Has(r.ID) {
			sum.Duplicate++
			continue
		}

		if err := p.store.Add(&r); err != nil {
			sum.Duplicate++
			continue
		}
		sum.New++

		imageGenerated := false
		var image []byte
		var format string

		if p.opts.AutoGenerate {
			result, err := p.renderer.Render(ctx, RenderRequest{
				ReviewerName: r.ReviewerName,
				ReviewText:   r.ReviewText,
				Rating:       r.Rating,
				TechName:     r.TechName,
				TechPhotoURL: r.TechPhotoURL,
				Source:       r.Source,
			})
			if err != nil {
				sum.Errors = append(sum.Errors, StepError{RecordID: r.ID, Step: "generate", Message: err.Error()})
			} else {
				imageGenerated = true
				image = result.Image
				format = result.Format
				generated := true
				p.store.MarkProcessed(r.ID, &generated, nil)
				sum.Generated++
			}
		}

		if p.opts.AutoShare && imageGenerated && r.Rating >= p.opts.MinRatingForAutoShare {
			if err := p.sharer.Share(ctx, r, image, format); err != nil {
				sum.Errors = append(sum.Errors, StepError{RecordID: r.ID, Step: "share", Message: err.Error()})
			} else {
				shared := true
				p.store.MarkProcessed(r.ID, nil, &shared)
				sum.Shared++
			}
		}
	}

	return sum
}

