package publish

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"vidgate/internal/logging"
	"vidgate/internal/queue"
	"vidgate/internal/staging"
)

// ContentCDN is the slice of the CDN client the publisher needs.
type ContentCDN interface {
	Publish(ctx context.Context, key, localPath, contentType string) (string, error)
	WaitReady(ctx context.Context, publicURL string, interval, timeout time.Duration) error
	Unpublish(ctx context.Context, key string) error
}

// QuarantineStore preserves rejected source material for appeals.
type QuarantineStore interface {
	Put(ctx context.Context, bucket, key, localPath string) (string, error)
}

// Result carries the public addresses of a published item.
type Result struct {
	PublicURL    string
	ThumbnailURL string
}

// Publisher pushes approved clips to the CDN and rejected sources into
// quarantine.
type Publisher struct {
	cdn              ContentCDN
	quarantine       QuarantineStore
	quarantineBucket string
	ffmpegBinary     string
	thumbnailTimeout time.Duration
	readyInterval    time.Duration
	readyTimeout     time.Duration
	logger           *slog.Logger
}

// Options configures a Publisher.
type Options struct {
	CDN              ContentCDN
	Quarantine       QuarantineStore
	QuarantineBucket string
	FFmpegBinary     string
	ThumbnailTimeout time.Duration
	ReadyInterval    time.Duration
	ReadyTimeout     time.Duration
	Logger           *slog.Logger
}

// New constructs a Publisher.
func New(opts Options) *Publisher {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Publisher{
		cdn:              opts.CDN,
		quarantine:       opts.Quarantine,
		quarantineBucket: opts.QuarantineBucket,
		ffmpegBinary:     opts.FFmpegBinary,
		thumbnailTimeout: opts.ThumbnailTimeout,
		readyInterval:    opts.ReadyInterval,
		readyTimeout:     opts.ReadyTimeout,
		logger:           logger,
	}
}

// PublishApproved pushes the normalized clip and its thumbnail to the CDN and
// blocks until the edge serves the clip. The clip is not considered live
// until the ready check passes.
func (p *Publisher) PublishApproved(ctx context.Context, item *queue.Item, clipPath string) (Result, error) {
	var result Result

	clipKey := "items/" + item.ItemKey + "/clip.mp4"
	publicURL, err := p.cdn.Publish(ctx, clipKey, clipPath, "video/mp4")
	if err != nil {
		return result, err
	}

	thumbnailURL, thumbKey := p.publishThumbnail(ctx, item, clipPath)

	if err := p.cdn.WaitReady(ctx, publicURL, p.readyInterval, p.readyTimeout); err != nil {
		// The clip already sits at the origin. Withdraw it so an item the
		// queue records as failed is never fetchable from the edge.
		p.withdraw(ctx, clipKey)
		if thumbKey != "" {
			p.withdraw(ctx, thumbKey)
		}
		return result, err
	}

	result.PublicURL = publicURL
	result.ThumbnailURL = thumbnailURL
	return result, nil
}

// publishThumbnail grabs and uploads the poster. A missing poster never
// blocks an approved clip; on failure the item simply publishes without
// thumbnail artwork.
func (p *Publisher) publishThumbnail(ctx context.Context, item *queue.Item, clipPath string) (url, key string) {
	thumbPath := filepath.Join(filepath.Dir(clipPath), "thumbnail.jpg")
	if err := Thumbnail(ctx, p.ffmpegBinary, clipPath, thumbPath, item.Kind, p.thumbnailTimeout); err != nil {
		p.logger.Warn("thumbnail generation failed, publishing without artwork",
			logging.String("item_key", item.ItemKey),
			logging.Error(err))
		return "", ""
	}
	thumbKey := "items/" + item.ItemKey + "/thumbnail.jpg"
	thumbnailURL, err := p.cdn.Publish(ctx, thumbKey, thumbPath, "image/jpeg")
	if err != nil {
		p.logger.Warn("thumbnail upload failed, publishing without artwork",
			logging.String("item_key", item.ItemKey),
			logging.Error(err))
		return "", ""
	}
	return thumbnailURL, thumbKey
}

func (p *Publisher) withdraw(ctx context.Context, key string) {
	// The ready wait may have spent the caller's deadline already.
	if err := p.cdn.Unpublish(context.WithoutCancel(ctx), key); err != nil {
		p.logger.Warn("failed to withdraw object from CDN",
			logging.String("cdn_key", key),
			logging.Error(err))
	}
}

// QuarantineRejected preserves the original upload in the quarantine bucket
// and returns its reference for the appeal trail.
func (p *Publisher) QuarantineRejected(ctx context.Context, item *queue.Item, sourcePath string) (string, error) {
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".bin"
	}
	key := staging.KeyFor(item.ItemKey, "source"+ext)
	return p.quarantine.Put(ctx, p.quarantineBucket, key, sourcePath)
}
