// Package imaging produces the obfuscated image shown for entities that are
// rendered blurred while a roll is live.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/okian/rollbot/pkg/logger"
)

// AttachmentName is the file name blurred images are sent under.
const AttachmentName = "blurred_image.jpg"

const (
	defaultSigma   = 7.0
	maxSourceBytes = 16 << 20
)

var (
	ErrFetch  = errors.New("image fetch failed")
	ErrDecode = errors.New("image decode failed")
)

// Blurrer fetches an image, applies a gaussian blur and re-encodes it as JPEG.
type Blurrer struct {
	client  *http.Client
	sigma   float64
	quality int
	log     logger.Logger
}

// New creates a Blurrer.
func New(opts ...Option) *Blurrer {
	b := &Blurrer{
		client:  &http.Client{Timeout: 10 * time.Second},
		sigma:   defaultSigma,
		quality: 80,
		log:     logger.Named("imaging"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Blur returns the JPEG bytes of the blurred image at imageRef.
func (b *Blurrer) Blur(ctx context.Context, imageRef string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageRef, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrFetch, resp.StatusCode)
	}

	src, err := imaging.Decode(io.LimitReader(resp.Body, maxSourceBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	blurred := imaging.Blur(src, b.sigma)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, blurred, imaging.JPEG, imaging.JPEGQuality(b.quality)); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	b.log.Debug(ctx, "image blurred",
		logger.String("ref", imageRef),
		logger.Int("bytes", buf.Len()),
		logger.Duration("took", time.Since(start)))
	return buf.Bytes(), nil
}
