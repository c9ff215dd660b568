// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

func clampI32(x int32, lo int32, hi int32) int32 {
	return max(lo, min(hi, x))
}

// expand5 scales a 5 bit channel value to 8 bits.
func expand5(c uint8) int32 {
	return int32(c<<3) | int32(c>>2)
}

// expand4 scales a 4 bit channel value to 8 bits.
func expand4(c uint8) int32 {
	return int32(c) | int32(c<<4)
}

func expand(c uint8, color4 bool) int32 {
	if color4 {
		return expand4(c)
	}
	return expand5(c)
}

// packDelta3 maps a delta in [-4, 3] to its 3 bit two's complement form.
func packDelta3(d int32) uint32 {
	if d < 0 {
		d += 8
	}
	return uint32(d) & 7
}

func unpackDelta3(u uint32) int32 {
	d := int32(u & 7)
	if d >= 4 {
		d -= 8
	}
	return d
}

// coordinates locate a sub-block's base color on the quantized color lattice
// (444 when color4, otherwise 555), plus its intensity table.
type coordinates struct {
	unscaled   [3]uint8
	intenTable uint8
	color4     bool
}

func (c *coordinates) scaled() (ret [3]int32) {
	for i, u := range c.unscaled {
		ret[i] = expand(u, c.color4)
	}
	return ret
}

// blockColors returns the four colors, indexed by Selector, that c makes
// available to a sub-block.
func (c *coordinates) blockColors() (ret [4][3]int32) {
	base := c.scaled()
	for s, delta := range intenTables[c.intenTable] {
		ret[s] = [3]int32{
			clampI32(base[0]+delta, 0, 255),
			clampI32(base[1]+delta, 0, 255),
			clampI32(base[2]+delta, 0, 255),
		}
	}
	return ret
}

// colorDistance is the squared Euclidean RGB distance.
func colorDistance(p Pixel, c [3]int32) uint64 {
	dr := int64(p.R) - int64(c[0])
	dg := int64(p.G) - int64(c[1])
	db := int64(p.B) - int64(c[2])
	return uint64((dr * dr) + (dg * dg) + (db * db))
}

func sameRGB(p Pixel, q Pixel) bool {
	return (p.R == q.R) && (p.G == q.G) && (p.B == q.B)
}
