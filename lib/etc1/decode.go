// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

// UnpackBlock decodes b to 16 pixels, in row-major order. If preserveAlpha is
// set then dst's alpha values are left unchanged, otherwise they are set to
// 0xFF.
//
// It returns false if b is a differential block whose second base color
// (the 555 color plus delta) is outside [0, 31] in some channel. No encoder
// produces such blocks. Decoding still proceeds, clamping that channel.
func UnpackBlock(dst *[16]Pixel, b Block, preserveAlpha bool) (ok bool) {
	ok = true
	coords := [2]coordinates{}
	if b.DiffBit() {
		c0 := b.Base5Color()
		d := b.Delta3()
		c1 := [3]uint8{}
		for i := range 3 {
			v := int32(c0[i]) + d[i]
			if (v < 0) || (limit5 < v) {
				ok = false
				v = clampI32(v, 0, limit5)
			}
			c1[i] = uint8(v)
		}
		coords[0].unscaled = c0
		coords[1].unscaled = c1
	} else {
		coords[0] = coordinates{unscaled: b.Base4Color(0), color4: true}
		coords[1] = coordinates{unscaled: b.Base4Color(1), color4: true}
	}
	coords[0].intenTable = b.IntenTable(0)
	coords[1].intenTable = b.IntenTable(1)

	colors := [2][4][3]int32{
		coords[0].blockColors(),
		coords[1].blockColors(),
	}

	flip := b.FlipBit()
	for y := range 4 {
		for x := range 4 {
			subblock := x >> 1
			if flip {
				subblock = y >> 1
			}
			c := &colors[subblock][b.selector(x, y)]
			p := &dst[(4*y)+x]
			p.R = uint8(c[0])
			p.G = uint8(c[1])
			p.B = uint8(c[2])
			if !preserveAlpha {
				p.A = 0xFF
			}
		}
	}
	return ok
}

// UnpackBlockSlice is like UnpackBlock but decodes the first BytesPerBlock
// bytes of src to a slice of exactly 16 pixels.
func UnpackBlockSlice(dst []Pixel, src []byte, preserveAlpha bool) (bool, error) {
	if (len(dst) != 16) || (len(src) < BytesPerBlock) {
		return false, ErrBadArgument
	}
	return UnpackBlock((*[16]Pixel)(dst), Block(src[:BytesPerBlock]), preserveAlpha), nil
}
