// Package preprocess - prepares camera frames for the grasp network and
// records the scale factors the post-processing pipeline later inverts.
package preprocess

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/vmrn-ai/go-grasp/inference"
)

// Config defines how frames are prepared for the network input.
type Config struct {
	// InputWidth and InputHeight are the fixed network input dimensions.
	InputWidth  int
	InputHeight int
	// PixelMeans are subtracted per RGB channel after scaling to [0, 255].
	PixelMeans [3]float32
}

// Frame is a preprocessed frame: the CHW float32 network input plus the
// image metadata every decode step downstream consumes.
type Frame struct {
	Data []float32
	Info inference.ImageInfo
}

// Prepare resizes a frame to the network input resolution and lays it out
// as a CHW float32 buffer. The returned ImageInfo carries the scale factors
// relating network-input coordinates back to the original frame, which
// RecoverScale divides out after decoding.
func Prepare(img image.Image, cfg Config) (*Frame, error) {
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 {
		return nil, errors.Errorf(
			"network input dimensions must be positive, got %dx%d",
			cfg.InputWidth, cfg.InputHeight)
	}
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 {
		return nil, errors.New("cannot preprocess an empty frame")
	}

	resized := resize.Resize(uint(cfg.InputWidth), uint(cfg.InputHeight), img, resize.Lanczos3)

	channelSize := cfg.InputWidth * cfg.InputHeight
	data := make([]float32, 3*channelSize)
	red := data[0:channelSize]
	green := data[channelSize : 2*channelSize]
	blue := data[2*channelSize : 3*channelSize]

	i := 0
	for y := 0; y < cfg.InputHeight; y++ {
		for x := 0; x < cfg.InputWidth; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) - cfg.PixelMeans[0]
			green[i] = float32(g>>8) - cfg.PixelMeans[1]
			blue[i] = float32(b>>8) - cfg.PixelMeans[2]
			i++
		}
	}

	return &Frame{
		Data: data,
		Info: inference.ImageInfo{
			Height: float32(cfg.InputHeight),
			Width:  float32(cfg.InputWidth),
			ScaleX: float32(cfg.InputWidth) / float32(srcW),
			ScaleY: float32(cfg.InputHeight) / float32(srcH),
		},
	}, nil
}
