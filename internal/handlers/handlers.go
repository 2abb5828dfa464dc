package handlers

import (
	"context"
	"time"

	"media-variants/internal/cachepath"
	"media-variants/internal/streaming"
	"media-variants/internal/transcoder"
)

// VariantService produces image variants.
type VariantService interface {
	EnsureVariant(ctx context.Context, rel string, width int) (string, error)
}

// ThumbnailService produces video poster frames.
type ThumbnailService interface {
	EnsureThumbnail(ctx context.Context, rel string) (string, bool)
}

// TranscodeService reports and starts background transcodes.
type TranscodeService interface {
	Status(rel string) (transcoder.Status, error)
	Start(rel string)
}

// Tools reports which external collaborators were found at startup.
type Tools struct {
	FFmpeg    bool `json:"ffmpeg"`
	Vips      bool `json:"vips"`
	RawWorker bool `json:"rawWorker"`
	Watcher   bool `json:"watcher"`
}

// Handlers serves derivatives for assets under a media root.
type Handlers struct {
	paths      *cachepath.Resolver
	images     VariantService
	thumbnails ThumbnailService
	transcodes TranscodeService
	tools      Tools
	started    time.Time

	streamConfig streaming.Config
}

// New returns Handlers over the given services.
func New(paths *cachepath.Resolver, images VariantService, thumbnails ThumbnailService, transcodes TranscodeService, tools Tools) *Handlers {
	return &Handlers{
		paths:      paths,
		images:     images,
		thumbnails: thumbnails,
		transcodes: transcodes,
		tools:      tools,
		started:    time.Now(),

		streamConfig: streaming.DefaultConfig(),
	}
}
