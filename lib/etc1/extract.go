// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"image"
)

// makeExtract returns a closure that extracts the 4×4 block from src with the
// given top-left corner (in src's coordinate space), writing non-premultiplied
// colors to pixels.
//
// Out-of-bound pixels right of and below the image are substituted with the
// nearest in-bound pixel from the right and bottom edges.
func makeExtract(pixels *[16]Pixel, src image.Image) func(blockX int, blockY int) {
	maxPoint := src.Bounds().Max
	mX1 := maxPoint.X - 1
	mY1 := maxPoint.Y - 1

	if srcNRGBA, ok := src.(*image.NRGBA); ok {
		return func(blockX int, blockY int) {
			for y := range 4 {
				for x := range 4 {
					c := srcNRGBA.NRGBAAt(min(mX1, blockX+x), min(mY1, blockY+y))
					pixels[(4*y)+x] = Pixel{c.R, c.G, c.B, c.A}
				}
			}
		}

	} else if srcRGBA, ok := src.(*image.RGBA); ok {
		return func(blockX int, blockY int) {
			for y := range 4 {
				for x := range 4 {
					c := srcRGBA.RGBAAt(min(mX1, blockX+x), min(mY1, blockY+y))
					if (c.A != 0x00) && (c.A != 0xFF) {
						c.R = uint8((uint32(c.R) * 0xFF) / uint32(c.A))
						c.G = uint8((uint32(c.G) * 0xFF) / uint32(c.A))
						c.B = uint8((uint32(c.B) * 0xFF) / uint32(c.A))
					}
					pixels[(4*y)+x] = Pixel{c.R, c.G, c.B, c.A}
				}
			}
		}

	} else if srcRGBA64, ok := src.(image.RGBA64Image); ok {
		return func(blockX int, blockY int) {
			for y := range 4 {
				for x := range 4 {
					c := srcRGBA64.RGBA64At(min(mX1, blockX+x), min(mY1, blockY+y))
					if (c.A != 0x0000) && (c.A != 0xFFFF) {
						c.R = uint16((uint32(c.R) * 0xFFFF) / uint32(c.A))
						c.G = uint16((uint32(c.G) * 0xFFFF) / uint32(c.A))
						c.B = uint16((uint32(c.B) * 0xFFFF) / uint32(c.A))
					}
					pixels[(4*y)+x] = Pixel{
						uint8(c.R >> 8),
						uint8(c.G >> 8),
						uint8(c.B >> 8),
						uint8(c.A >> 8),
					}
				}
			}
		}
	}

	return func(blockX int, blockY int) {
		for y := range 4 {
			for x := range 4 {
				r, g, b, a := src.At(min(mX1, blockX+x), min(mY1, blockY+y)).RGBA()
				if (a != 0x0000) && (a != 0xFFFF) {
					r = (r * 0xFFFF) / a
					g = (g * 0xFFFF) / a
					b = (b * 0xFFFF) / a
				}
				pixels[(4*y)+x] = Pixel{
					uint8(r >> 8),
					uint8(g >> 8),
					uint8(b >> 8),
					uint8(a >> 8),
				}
			}
		}
	}
}
