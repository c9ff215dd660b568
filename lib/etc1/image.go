// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"context"
	"image"
	"io"
	"log/slog"
)

// MaxDimension is the largest supported image width or height.
const MaxDimension = 65532

// EncodeOptions are optional arguments to Encode. The zero value is valid and
// means to use the default configuration.
type EncodeOptions struct {
	Quality   Quality
	Dithering bool
}

func (o *EncodeOptions) packParams() PackParams {
	if o == nil {
		return PackParams{}
	}
	return PackParams{Quality: o.Quality, Dithering: o.Dithering}
}

// Stats summarize an Encoder's work so far.
type Stats struct {
	Blocks int

	// TotalError is the sum of PackBlock's returned errors.
	TotalError uint64
}

// Encoder encodes an image's 4×4 blocks. Blocks right of and below the image
// are padded by repeating the right and bottom edge pixels.
//
// An Encoder is not safe for concurrent use, but multiple Encoders (for the
// same source image) can run concurrently, each encoding different rows.
type Encoder struct {
	ctx     Context
	params  PackParams
	pixels  [16]Pixel
	extract func(blockX int, blockY int)
	bounds  image.Rectangle
	stats   Stats
}

// NewEncoder returns an Encoder for src.
func NewEncoder(src image.Image, params PackParams) *Encoder {
	e := &Encoder{
		params: params,
		bounds: src.Bounds(),
	}
	e.extract = makeExtract(&e.pixels, src)
	return e
}

// BlocksWide returns the number of blocks in each row.
func (e *Encoder) BlocksWide() int { return (e.bounds.Dx() + 3) / 4 }

// BlocksHigh returns the number of block rows.
func (e *Encoder) BlocksHigh() int { return (e.bounds.Dy() + 3) / 4 }

// AppendRow appends the encoded blocks of the given block row (counting in
// blocks, not pixels) to dst.
func (e *Encoder) AppendRow(dst []byte, blockRow int) []byte {
	y := e.bounds.Min.Y + (4 * blockRow)
	for x := e.bounds.Min.X; x < e.bounds.Max.X; x += 4 {
		e.extract(x, y)
		b, err := e.ctx.PackBlock(&e.pixels, e.params)
		dst = append(dst, b[:]...)
		e.stats.Blocks++
		e.stats.TotalError += err
	}
	return dst
}

// Stats returns the statistics accumulated by AppendRow.
func (e *Encoder) Stats() Stats { return e.stats }

// Encode writes src to dst as a sequence of ETC1 blocks, in row-major block
// order. It does not write any container header.
//
// options may be nil, which means to use the default configuration.
func Encode(dst io.Writer, src image.Image, options *EncodeOptions) error {
	if (dst == nil) || (src == nil) {
		return ErrBadArgument
	}
	b := src.Bounds()
	if (b.Dx() > MaxDimension) || (b.Dy() > MaxDimension) {
		return ErrImageIsTooLarge
	}

	e := NewEncoder(src, options.packParams())
	buf := make([]byte, 0, BytesPerBlock*e.BlocksWide())
	for blockRow := range e.BlocksHigh() {
		buf = e.AppendRow(buf[:0], blockRow)
		if _, err := dst.Write(buf); err != nil {
			return err
		}
	}

	LogStats("etc1: encoded", b, e.params, e.stats)
	return nil
}

// LogStats logs, at debug level, the Stats of encoding an image with the
// given bounds.
func LogStats(msg string, bounds image.Rectangle, params PackParams, s Stats) {
	l := Logger()
	if !l.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	mse := 0.0
	if s.Blocks > 0 {
		mse = float64(s.TotalError) / float64(16*s.Blocks)
	}
	l.Debug(msg,
		slog.Int("width", bounds.Dx()),
		slog.Int("height", bounds.Dy()),
		slog.String("quality", params.Quality.String()),
		slog.Bool("dithering", params.Dithering),
		slog.Int("blocks", s.Blocks),
		slog.Uint64("total_error", s.TotalError),
		slog.Float64("mse_per_pixel", mse),
	)
}

// NewImage returns an image whose width and height are those requested,
// rounded up to a multiple of 4. Decode decodes into such images.
//
// It returns an error if the width or height is negative or too large.
func NewImage(width int, height int) (*image.RGBA, error) {
	if (width < 0) || (width > MaxDimension) ||
		(height < 0) || (height > MaxDimension) {
		return nil, ErrBadArgument
	}
	return image.NewRGBA(image.Rect(0, 0, (width+3)&^3, (height+3)&^3)), nil
}

// Decode reads ETC1 blocks, in row-major block order, from r into dst. dst's
// width and height must be multiples of 4.
func Decode(dst *image.RGBA, r io.Reader) error {
	if (dst == nil) || (r == nil) {
		return ErrBadArgument
	}
	b := dst.Bounds()
	if ((b.Dx() & 3) != 0) || ((b.Dy() & 3) != 0) {
		return ErrBadArgument
	}

	bw, bh := b.Dx()/4, b.Dy()/4
	buf := make([]byte, BytesPerBlock*bw)
	pixels := [16]Pixel{}
	inconsistent := 0

	for blockRow := range bh {
		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}

		for blockCol := range bw {
			blk := Block(buf[BytesPerBlock*blockCol:][:BytesPerBlock])
			if !UnpackBlock(&pixels, blk, false) {
				inconsistent++
			}

			for y := range 4 {
				i := dst.PixOffset(b.Min.X+(4*blockCol), b.Min.Y+(4*blockRow)+y)
				row := dst.Pix[i : i+16]
				for x, p := range pixels[4*y : 4*y+4] {
					row[(4*x)+0] = p.R
					row[(4*x)+1] = p.G
					row[(4*x)+2] = p.B
					row[(4*x)+3] = p.A
				}
			}
		}
	}

	if inconsistent > 0 {
		Logger().Warn("etc1: blocks with out-of-range differential colors",
			slog.Int("count", inconsistent),
			slog.Int("width", b.Dx()),
			slog.Int("height", b.Dy()),
		)
	}
	return nil
}
