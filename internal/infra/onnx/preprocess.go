package onnx

import (
	"fmt"
	"image"

	"github.com/fiapx/fiapx-fingerprint-service/internal/domain/entity"
	"github.com/nfnt/resize"
)

type Layout string

const (
	LayoutNHWC Layout = "NHWC"
	LayoutNCHW Layout = "NCHW"
)

type ChannelOrder string

const (
	ChannelsRGB ChannelOrder = "rgb"
	ChannelsBGR ChannelOrder = "bgr"
)

// Preprocess resizes frame to size x size and writes it into dst scaled to
// [-1, 1] (x/127.5 - 1), the MobileNetV2 input range. dst must hold
// 3*size*size values.
func Preprocess(frame image.Image, size int, layout Layout, order ChannelOrder, dst []float32) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", entity.ErrDecode)
	}
	b := frame.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: empty frame %v", entity.ErrDecode, b)
	}
	if frame.ColorModel() == nil {
		return fmt.Errorf("%w: frame has no color model", entity.ErrDecode)
	}
	plane := size * size
	if len(dst) != 3*plane {
		return fmt.Errorf("input buffer holds %d values, want %d", len(dst), 3*plane)
	}

	resized := resize.Resize(uint(size), uint(size), frame, resize.Bilinear)
	rb := resized.Bounds()

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, g, bl, _ := resized.At(rb.Min.X+x, rb.Min.Y+y).RGBA()
			c0, c1, c2 := r>>8, g>>8, bl>>8
			if order == ChannelsBGR {
				c0, c2 = c2, c0
			}

			px := y*size + x
			switch layout {
			case LayoutNCHW:
				dst[px] = scale(c0)
				dst[plane+px] = scale(c1)
				dst[2*plane+px] = scale(c2)
			default:
				dst[3*px] = scale(c0)
				dst[3*px+1] = scale(c1)
				dst[3*px+2] = scale(c2)
			}
		}
	}
	return nil
}

func scale(v uint32) float32 {
	return float32(v)/127.5 - 1
}
