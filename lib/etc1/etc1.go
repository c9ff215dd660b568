// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

// ----------------

// Package etc1 implements an encoder and decoder for ETC1 (Ericsson Texture
// Compression, version 1) 4×4 RGB blocks.
//
// Each 4×4 block of pixels is compressed to 8 bytes. The block is split into
// two 8 pixel sub-blocks (left/right halves, or top/bottom halves when the
// flip bit is set). Each sub-block has a base color and one of eight
// intensity tables, and each pixel has a 2 bit selector into that table. The
// two base colors are either both 444 ("absolute" mode) or a 555 color plus a
// 333 signed delta ("differential" mode).
//
// The encoder searches a neighborhood of the quantized color lattice around
// each sub-block's average color, with a table driven fast path for solid
// colors. The Quality option trades CPU time for lower error.
//
// ETC1 is specified at
// https://registry.khronos.org/DataFormat/specs/1.3/dataformat.1.3.html#ETC1
package etc1

import (
	"errors"
	"strings"
)

var (
	ErrBadArgument     = errors.New("etc1: bad argument")
	ErrBadQuality      = errors.New("etc1: bad quality")
	ErrImageIsTooLarge = errors.New("etc1: image is too large")
)

// BytesPerBlock is the size of an encoded 4×4 block.
const BytesPerBlock = 8

// Pixel is an 8 bit per channel color. Alpha is carried through but not
// compressed: PackBlock ignores it and UnpackBlock either preserves the
// destination's alpha or sets it to 0xFF.
type Pixel struct {
	R, G, B, A uint8
}

// Quality is the encoder's search effort. Higher values never produce a
// larger error than QualitySuperFast for the same input.
type Quality uint8

const (
	QualitySuperFast = Quality(0)
	QualityFast      = Quality(1)
	QualityNormal    = Quality(2)
	QualityBetter    = Quality(3)
	QualitySlow      = Quality(4)

	numQualities = 5
)

var qualityNames = [numQualities]string{
	QualitySuperFast: "superfast",
	QualityFast:      "fast",
	QualityNormal:    "normal",
	QualityBetter:    "better",
	QualitySlow:      "slow",
}

func (q Quality) String() string {
	if int(q) < len(qualityNames) {
		return qualityNames[q]
	}
	return "invalid"
}

// ParseQuality parses a case-insensitive Quality name, such as "slow".
func ParseQuality(s string) (Quality, error) {
	s = strings.ToLower(s)
	for i, name := range qualityNames {
		if s == name {
			return Quality(i), nil
		}
	}
	return 0, ErrBadQuality
}

// PackParams are the per-block encoding parameters. The zero value is valid
// and means QualitySuperFast without dithering.
type PackParams struct {
	Quality Quality

	// Dithering applies Floyd-Steinberg error diffusion to the block (on the
	// 555 lattice) before searching. The returned error is still measured
	// against the undithered pixels.
	Dithering bool
}
