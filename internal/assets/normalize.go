package assets

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// embeddedMarker separates an optional data-URI prefix from the payload.
const embeddedMarker = "base64,"

// decodeEmbedded decodes an inline payload. The text after "base64," is used
// when present, otherwise the whole reference.
func decodeEmbedded(ref string) ([]byte, error) {
	payload := ref
	if i := strings.Index(ref, embeddedMarker); i >= 0 {
		payload = ref[i+len(embeddedMarker):]
	}
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, fmt.Errorf("empty embedded payload")
	}

	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("decode embedded payload: %w", lastErr)
}

// normalize turns raw image bytes into an Asset the backend can embed.
// Baseline JPEG and 8-bit non-interlaced PNG within maxPixels pass through;
// any other format, or anything larger, is decoded, downscaled to fit
// maxPixels on its long edge and re-encoded as PNG.
func normalize(data []byte, maxPixels int) (*Asset, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}

	fits := maxPixels <= 0 || max(cfg.Width, cfg.Height) <= maxPixels
	switch {
	case fits && format == "jpeg":
		return &Asset{Data: data, Type: "jpg", Width: cfg.Width, Height: cfg.Height}, nil
	case fits && format == "png" && embeddablePNG(data):
		return &Asset{Data: data, Type: "png", Width: cfg.Width, Height: cfg.Height}, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %s image: %w", format, err)
	}

	w, h := scaledSize(cfg.Width, cfg.Height, maxPixels)
	var src image.Image = img
	if w != cfg.Width || h != cfg.Height {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return &Asset{Data: buf.Bytes(), Type: "png", Width: w, Height: h}, nil
}

// embeddablePNG checks the IHDR bit depth and interlace method; the backend
// only embeds 8-bit non-interlaced PNG streams.
func embeddablePNG(data []byte) bool {
	// 8 signature + 4 length + 4 type + 4 width + 4 height + depth, color, compression, filter, interlace
	if len(data) < 29 {
		return false
	}
	return data[24] <= 8 && data[28] == 0
}

func scaledSize(w, h, maxPixels int) (int, int) {
	long := max(w, h)
	if maxPixels <= 0 || long <= maxPixels {
		return w, h
	}
	scale := float64(maxPixels) / float64(long)
	return max(1, int(float64(w)*scale+0.5)), max(1, int(float64(h)*scale+0.5))
}
