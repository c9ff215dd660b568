// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"math"
)

// Context holds the scratch space used by PackBlock. Its zero value is ready
// to use, and it carries no state from one PackBlock call to the next.
//
// A Context is not safe for concurrent use. Encoding in parallel needs one
// Context per goroutine.
type Context struct {
	optimizer      optimizer
	params         optimizerParams
	dithered       [16]Pixel
	subblockPixels [8]Pixel

	// results[0] and results[1] are the sub-blocks of the combination being
	// tried. results[2] is the solid color candidate.
	results [3]optimizerResult
}

// assembly is a whole block's worth of sub-block encodings.
type assembly struct {
	err     uint64
	results [2]optimizerResult
	flip    bool
	color4  bool
}

// PackBlock encodes 16 pixels, in row-major order, as an ETC1 block. It
// returns the block and its total error: the sum, over the 16 pixels, of the
// squared Euclidean RGB distance between pixels and the decoded block.
//
// Encoding always succeeds. Alpha is ignored.
func (c *Context) PackBlock(pixels *[16]Pixel, params PackParams) (Block, uint64) {
	b := Block{}

	p0 := pixels[0]
	solid := true
	for _, p := range pixels[1:] {
		if !sameRGB(p, p0) {
			solid = false
			break
		}
	}
	if solid {
		err := packSolidColor(&b, [3]uint8{p0.R, p0.G, p0.B})
		return b, err
	}

	work := pixels
	if params.Dithering {
		ditherBlock(&c.dithered, pixels)
		work = &c.dithered
	}

	// The SuperFast result is the starting point for every Quality, so that
	// a higher Quality can only lower the error.
	best := assembly{err: math.MaxUint64}
	floor := QualitySuperFast.tuning()
	c.search(&best, work, floor)
	tuning := params.Quality.tuning()

	if !params.Dithering {
		if tuning != floor {
			c.search(&best, work, tuning)
		}
		best.encode(&b)
		return b, best.err
	}

	// The searches rank candidates against the dithered pixels, but the
	// returned error is against the original pixels. The SuperFast block is
	// kept unless the requested Quality's block is better by that measure.
	best.encode(&b)
	bErr := blockError(pixels, &b)
	if tuning != floor {
		c.search(&best, work, tuning)
		b2 := Block{}
		best.encode(&b2)
		if b2Err := blockError(pixels, &b2); b2Err < bErr {
			return b2, b2Err
		}
	}
	return b, bErr
}

// PackBlockSlice is like PackBlock but takes a slice of exactly 16 pixels and
// writes the encoded block to the first BytesPerBlock bytes of dst.
func (c *Context) PackBlockSlice(dst []byte, src []Pixel, params PackParams) (uint64, error) {
	if (len(src) != 16) || (len(dst) < BytesPerBlock) {
		return 0, ErrBadArgument
	}
	b, err := c.PackBlock((*[16]Pixel)(src), params)
	copy(dst, b[:])
	return err, nil
}

// search tries each (flip, color4) combination, replacing best with any
// combination whose total error is lower.
func (c *Context) search(best *assembly, pixels *[16]Pixel, tuning *qualityTuning) {
	p := &c.params
	p.pixels = c.subblockPixels[:]
	p.tuning = tuning

	for flip := range 2 {
		for _, color4 := range [2]bool{false, true} {
			diffMode := !color4
			trialErr := uint64(0)

			subblock := 0
			for ; subblock < 2; subblock++ {
				sp := &c.subblockPixels
				for i, xy := range subblockPixelXY[flip][subblock] {
					sp[i] = pixels[(4*int(xy[1]))+int(xy[0])]
				}

				var base *[3]uint8
				if diffMode && (subblock == 1) {
					base = &c.results[0].coords.unscaled
				}

				solidErr := uint64(math.MaxUint64)
				if tuning.solidSubblocks && isSolidSubblock(sp) {
					solidErr = packSolidColorConstrained(&c.results[2], len(sp),
						[3]uint8{sp[0].R, sp[0].G, sp[0].B}, diffMode, base)
				}

				p.useColor4 = color4
				p.constrainAgainstBaseColor5 = base != nil
				if base != nil {
					p.baseColor5 = *base
				}
				p.scanDeltas = tuning.scanDeltas

				res := &c.results[subblock]
				c.optimizer.init(p, res)
				ok := c.optimizer.compute()
				if ok {
					p.scanDeltas = nil
					if (res.err > escalationThreshold1) && (len(tuning.escalation1) > 0) {
						p.scanDeltas = tuning.escalation1
					} else if res.err > escalationThreshold0 {
						p.scanDeltas = tuning.escalation0
					}
					if len(p.scanDeltas) > 0 {
						c.optimizer.compute()
					}
				}

				if solidErr < res.err {
					*res = c.results[2]
					ok = true
				}
				if !ok {
					break
				}

				trialErr += res.err
				if trialErr >= best.err {
					break
				}
			}

			if subblock < 2 {
				continue
			}
			best.err = trialErr
			best.results = [2]optimizerResult{c.results[0], c.results[1]}
			best.flip = flip != 0
			best.color4 = color4
		}
	}
}

func isSolidSubblock(sp *[8]Pixel) bool {
	for _, q := range sp[1:] {
		if !sameRGB(q, sp[0]) {
			return false
		}
	}
	return true
}

// encode writes a's colors, intensity tables and selectors to b.
func (a *assembly) encode(b *Block) {
	c0 := &a.results[0].coords
	c1 := &a.results[1].coords

	*b = Block{}
	b.SetFlipBit(a.flip)
	b.SetDiffBit(!a.color4)
	if a.color4 {
		b.SetBase4Color(0, c0.unscaled)
		b.SetBase4Color(1, c1.unscaled)
	} else {
		b.SetBase5Color(c0.unscaled)
		b.SetDelta3([3]int32{
			int32(c1.unscaled[0]) - int32(c0.unscaled[0]),
			int32(c1.unscaled[1]) - int32(c0.unscaled[1]),
			int32(c1.unscaled[2]) - int32(c0.unscaled[2]),
		})
	}
	b.SetIntenTable(0, c0.intenTable)
	b.SetIntenTable(1, c1.intenTable)

	flip := boolToU32(a.flip)
	for subblock := range 2 {
		selectors := &a.results[subblock].selectors
		for i, xy := range subblockPixelXY[flip][subblock] {
			b.setSelector(int(xy[0]), int(xy[1]), selectors[i])
		}
	}
}

// blockError returns the total squared RGB error of b's decoding relative to
// pixels.
func blockError(pixels *[16]Pixel, b *Block) (err uint64) {
	decoded := [16]Pixel{}
	UnpackBlock(&decoded, *b, false)
	for i, p := range pixels {
		q := decoded[i]
		err += colorDistance(p, [3]int32{int32(q.R), int32(q.G), int32(q.B)})
	}
	return err
}

// quantRBTab maps an 8 bit value, offset by 8, to the nearest value on the
// 555 lattice (scaled back to 8 bits).
var quantRBTab = func() (t [256 + 16]uint8) {
	for i := range t {
		v := clampI32(int32(i)-8, 0, 255)
		t[i] = uint8(expand5(uint8(mul8Bit(v, 31))))
	}
	return t
}()

func mul8Bit(a int32, b int32) int32 {
	t := (a * b) + 128
	return (t + (t >> 8)) >> 8
}

func quantRB(v int32) int32 {
	return int32(quantRBTab[clampI32(v+8, 0, int32(len(quantRBTab)-1))])
}

func pixelChannel(p *Pixel, ch int) *uint8 {
	switch ch {
	case 0:
		return &p.R
	case 1:
		return &p.G
	}
	return &p.B
}

// ditherBlock applies Floyd-Steinberg error diffusion (weights 7, 3, 5 and 1
// sixteenths), quantizing each channel to the 555 lattice. Alpha is copied.
func ditherBlock(dst *[16]Pixel, src *[16]Pixel) {
	*dst = *src
	for ch := range 3 {
		errs := [2][4]int32{}
		ep1, ep2 := &errs[0], &errs[1]

		for y := range 4 {
			row := 4 * y
			in := [4]int32{}
			for x := range 4 {
				in[x] = int32(*pixelChannel(&src[row+x], ch))
			}

			out := [4]int32{}
			out[0] = quantRB(in[0] + ((3*ep2[1] + 5*ep2[0]) >> 4))
			ep1[0] = in[0] - out[0]
			out[1] = quantRB(in[1] + ((7*ep1[0] + 3*ep2[2] + 5*ep2[1] + ep2[0]) >> 4))
			ep1[1] = in[1] - out[1]
			out[2] = quantRB(in[2] + ((7*ep1[1] + 3*ep2[3] + 5*ep2[2] + ep2[1]) >> 4))
			ep1[2] = in[2] - out[2]
			out[3] = quantRB(in[3] + ((7*ep1[2] + 5*ep2[3] + ep2[2]) >> 4))
			ep1[3] = in[3] - out[3]

			for x := range 4 {
				*pixelChannel(&dst[row+x], ch) = uint8(out[x])
			}
			ep1, ep2 = ep2, ep1
		}
	}
}
