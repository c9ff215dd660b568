// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allQualities = [numQualities]Quality{
	QualitySuperFast,
	QualityFast,
	QualityNormal,
	QualityBetter,
	QualitySlow,
}

// makeTestBlocks returns a deterministic mix of noisy, smooth, gradient and
// two-tone blocks.
func makeTestBlocks(n int, seed uint64) [][16]Pixel {
	rng := rand.New(rand.NewPCG(seed, 0x65746331))
	channel := func(v int) uint8 { return uint8(max(0, min(255, v))) }

	ret := make([][16]Pixel, n)
	for k := range ret {
		p := &ret[k]
		base := [3]int{rng.IntN(256), rng.IntN(256), rng.IntN(256)}

		switch k % 4 {
		case 0:
			for i := range p {
				p[i] = Pixel{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 0xFF}
			}
		case 1:
			for i := range p {
				p[i] = Pixel{
					channel(base[0] + rng.IntN(25) - 12),
					channel(base[1] + rng.IntN(25) - 12),
					channel(base[2] + rng.IntN(25) - 12),
					0xFF,
				}
			}
		case 2:
			step := [3]int{rng.IntN(41) - 20, rng.IntN(41) - 20, rng.IntN(41) - 20}
			for i := range p {
				x, y := i%4, i/4
				p[i] = Pixel{
					channel(base[0] + step[0]*x + step[1]*y),
					channel(base[1] + step[1]*x + step[2]*y),
					channel(base[2] + step[2]*x + step[0]*y),
					0xFF,
				}
			}
		case 3:
			other := Pixel{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256)), 0xFF}
			for i := range p {
				if (i%4) < 2 || (rng.IntN(8) == 0) {
					p[i] = Pixel{uint8(base[0]), uint8(base[1]), uint8(base[2]), 0xFF}
				} else {
					p[i] = other
				}
			}
		}
	}
	return ret
}

func decodedError(tt *testing.T, pixels *[16]Pixel, b Block) uint64 {
	tt.Helper()
	decoded := [16]Pixel{}
	UnpackBlock(&decoded, b, false)
	err := uint64(0)
	for i, p := range pixels {
		q := decoded[i]
		err += colorDistance(p, [3]int32{int32(q.R), int32(q.G), int32(q.B)})
	}
	return err
}

func TestPackRoundTripError(tt *testing.T) {
	ctx := &Context{}
	blocks := makeTestBlocks(80, 1)
	for _, q := range allQualities {
		for _, dithering := range []bool{false, true} {
			params := PackParams{Quality: q, Dithering: dithering}
			for k := range blocks {
				b, err := ctx.PackBlock(&blocks[k], params)
				if got := decodedError(tt, &blocks[k], b); got != err {
					tt.Fatalf("q=%v, dithering=%t, k=%d: decoded error %d, returned %d",
						q, dithering, k, got, err)
				}
			}
		}
	}
}

func TestPackMonotonicInQuality(tt *testing.T) {
	ctx := &Context{}
	for _, dithering := range []bool{false, true} {
		for k, pixels := range makeTestBlocks(400, 2) {
			_, superFast := ctx.PackBlock(&pixels, PackParams{Quality: QualitySuperFast, Dithering: dithering})
			for _, q := range allQualities[1:] {
				_, err := ctx.PackBlock(&pixels, PackParams{Quality: q, Dithering: dithering})
				if err > superFast {
					tt.Fatalf("dithering=%t, k=%d, q=%v: error %d exceeds SuperFast's %d",
						dithering, k, q, err, superFast)
				}
			}
		}
	}
}

func TestPackDitheredGradientMonotonic(tt *testing.T) {
	// Smooth gradients are where dithering most often misleads the search.
	ctx := &Context{}
	for k := range 64 {
		pixels := [16]Pixel{}
		for i := range pixels {
			x, y := i%4, i/4
			pixels[i] = Pixel{
				uint8(37 + ((k % 8) * x) + (3 * y)),
				uint8(37 + (2 * x) + ((k / 8) * y)),
				uint8(47 + (5 * x) + (k % 5)),
				0xFF,
			}
		}
		_, superFast := ctx.PackBlock(&pixels, PackParams{Quality: QualitySuperFast, Dithering: true})
		_, slow := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow, Dithering: true})
		require.LessOrEqual(tt, slow, superFast, "k=%d", k)
	}
}

func TestPackSlowBeatsSuperFastOnAverage(tt *testing.T) {
	ctx := &Context{}
	total := [numQualities]uint64{}
	for _, pixels := range makeTestBlocks(100, 3) {
		for _, q := range []Quality{QualitySuperFast, QualitySlow} {
			_, err := ctx.PackBlock(&pixels, PackParams{Quality: q})
			total[q] += err
		}
	}
	require.Less(tt, total[QualitySlow], total[QualitySuperFast])
}

func TestPackIsDeterministic(tt *testing.T) {
	blocks := makeTestBlocks(20, 4)
	ctx0, ctx1 := &Context{}, &Context{}
	for k := range blocks {
		for _, q := range allQualities {
			params := PackParams{Quality: q}
			b0, err0 := ctx0.PackBlock(&blocks[k], params)
			// Reusing ctx1 across different blocks must not change results.
			ctx1.PackBlock(&blocks[(k+1)%len(blocks)], params)
			b1, err1 := ctx1.PackBlock(&blocks[k], params)
			require.Equal(tt, b0, b1, "k=%d, q=%v", k, q)
			require.Equal(tt, err0, err1, "k=%d, q=%v", k, q)
		}
	}
}

func TestPackDiffConstraint(tt *testing.T) {
	ctx := &Context{}
	diffBlocks := 0
	for k, pixels := range makeTestBlocks(120, 5) {
		for _, q := range allQualities {
			b, _ := ctx.PackBlock(&pixels, PackParams{Quality: q})

			for subblock := range 2 {
				if t := b.IntenTable(subblock); t > 7 {
					tt.Fatalf("k=%d, q=%v: intensity table %d", k, q, t)
				}
			}
			for x := range 4 {
				for y := range 4 {
					if s := b.Selector(x, y); s > 3 {
						tt.Fatalf("k=%d, q=%v: selector %d", k, q, s)
					}
				}
			}

			if !b.DiffBit() {
				continue
			}
			diffBlocks++
			c0 := b.Base5Color()
			for c, d := range b.Delta3() {
				if c1 := int32(c0[c]) + d; (c1 < 0) || (c1 > 31) {
					tt.Fatalf("k=%d, q=%v: channel %d: %d + %d is out of range", k, q, c, c0[c], d)
				}
			}
			decoded := [16]Pixel{}
			require.True(tt, UnpackBlock(&decoded, b, false))
		}
	}
	require.Positive(tt, diffBlocks)
}

func TestPackSolidColorExact(tt *testing.T) {
	rng := rand.New(rand.NewPCG(6, 6))
	ctx := &Context{}
	for range 200 {
		// Pick a (diff, table, selector) configuration and a packed value
		// per channel: the resulting color is exactly representable.
		diff := rng.IntN(2) == 1
		inten := uint8(rng.IntN(8))
		s := Selector(rng.IntN(4))
		limit := 16
		if diff {
			limit = 32
		}
		c := Pixel{A: 0xFF}
		c.R = uint8(decodeValue(diff, inten, s, uint8(rng.IntN(limit))))
		c.G = uint8(decodeValue(diff, inten, s, uint8(rng.IntN(limit))))
		c.B = uint8(decodeValue(diff, inten, s, uint8(rng.IntN(limit))))

		pixels := [16]Pixel{}
		for i := range pixels {
			pixels[i] = c
		}
		for _, q := range []Quality{QualitySuperFast, QualitySlow} {
			b, err := ctx.PackBlock(&pixels, PackParams{Quality: q})
			require.Zero(tt, err, "color=%v, q=%v", c, q)

			decoded := [16]Pixel{}
			UnpackBlock(&decoded, b, false)
			for _, p := range decoded {
				require.Equal(tt, c, p)
			}
		}
	}
}

func TestPackSolidColorScenarios(tt *testing.T) {
	testCases := []struct {
		color   Pixel
		wantErr uint64
		want    uint64
	}{
		{Pixel{124, 58, 198, 0xFF}, 0, 0x8040C802FFFFFFFF},
		{Pixel{0, 0, 0, 0xFF}, 0, 0x00000000FFFFFFFF},
		{Pixel{255, 255, 255, 0xFF}, 0, 0xFFFFFF0000000000},

		// No single (diff, table, selector) triple reproduces all three
		// channels of (128, 64, 200). The best has a per pixel squared
		// error of 8.
		{Pixel{128, 64, 200, 0xFF}, 16 * 8, 0x6020A84A0000FFFF},
	}

	ctx := &Context{}
	for _, tc := range testCases {
		pixels := [16]Pixel{}
		for i := range pixels {
			pixels[i] = tc.color
		}
		b, err := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow})
		if err != tc.wantErr {
			tt.Errorf("tc=%v: error: got %d, want %d", tc.color, err, tc.wantErr)
		}
		if got := b.Uint64(); got != tc.want {
			tt.Errorf("tc=%v: block: got 0x%016X, want 0x%016X", tc.color, got, tc.want)
		}
		if got := decodedError(tt, &pixels, b); got != err {
			tt.Errorf("tc=%v: decoded error %d, returned %d", tc.color, got, err)
		}
	}
}

// bestSolidError is the per pixel squared error of the best encoding of a
// solid color, by brute force.
func bestSolidError(c [3]uint8) uint64 {
	best := uint64(1 << 62)
	for _, diff := range []bool{false, true} {
		limit := uint8(limit4)
		if diff {
			limit = limit5
		}
		for inten := range uint8(8) {
			for s := range Selector(4) {
				total := uint64(0)
				for ch := range 3 {
					chBest := uint64(1 << 62)
					for packed := uint8(0); packed <= limit; packed++ {
						d := int64(decodeValue(diff, inten, s, packed)) - int64(c[ch])
						chBest = min(chBest, uint64(d*d))
					}
					total += chBest
				}
				best = min(best, total)
			}
		}
	}
	return best
}

func TestPackSolidColorNeverBeatsBruteForce(tt *testing.T) {
	// The solid color path only searches ±1 around each channel, so it can
	// miss the optimum. It can never beat it.
	ctx := &Context{}
	rng := rand.New(rand.NewPCG(10, 0x65746331))
	for k := range 300 {
		c := [3]uint8{uint8(rng.IntN(256)), uint8(rng.IntN(256)), uint8(rng.IntN(256))}
		pixels := [16]Pixel{}
		for i := range pixels {
			pixels[i] = Pixel{c[0], c[1], c[2], 0xFF}
		}
		_, err := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow})
		require.GreaterOrEqual(tt, err, 16*bestSolidError(c), "k=%d, c=%v", k, c)
	}

	// A color where the ±1 search falls short: 13 per pixel against 12.
	c := [3]uint8{15, 100, 62}
	pixels := [16]Pixel{}
	for i := range pixels {
		pixels[i] = Pixel{c[0], c[1], c[2], 0xFF}
	}
	_, err := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow})
	require.Equal(tt, uint64(16*12), 16*bestSolidError(c))
	require.Equal(tt, uint64(16*13), err)
}

func TestPackSolidColorReachesOptimumForListedColors(tt *testing.T) {
	ctx := &Context{}
	for _, c := range [][3]uint8{{128, 64, 200}, {255, 0, 0}, {17, 200, 3}, {90, 91, 92}} {
		pixels := [16]Pixel{}
		for i := range pixels {
			pixels[i] = Pixel{c[0], c[1], c[2], 0xFF}
		}
		_, err := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow})
		assert.Equal(tt, 16*bestSolidError(c), err, "c=%v", c)
	}
}

func TestPackRepackDecoded(tt *testing.T) {
	ctx := &Context{}
	for k, pixels := range makeTestBlocks(40, 7) {
		b, err := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow})

		decoded := [16]Pixel{}
		UnpackBlock(&decoded, b, false)
		b2, err2 := ctx.PackBlock(&decoded, PackParams{Quality: QualitySlow})
		if err2 > err {
			tt.Fatalf("k=%d: re-encoding error %d exceeds first encoding's %d", k, err2, err)
		}
		if got := decodedError(tt, &decoded, b2); got != err2 {
			tt.Fatalf("k=%d: decoded error %d, returned %d", k, got, err2)
		}
	}
}

func TestPackIgnoresAlpha(tt *testing.T) {
	ctx := &Context{}
	for k, pixels := range makeTestBlocks(20, 8) {
		b0, err0 := ctx.PackBlock(&pixels, PackParams{Quality: QualityNormal})
		for i := range pixels {
			pixels[i].A = uint8(17 * i)
		}
		b1, err1 := ctx.PackBlock(&pixels, PackParams{Quality: QualityNormal})
		require.Equal(tt, b0, b1, "k=%d", k)
		require.Equal(tt, err0, err1, "k=%d", k)
	}
}

func TestPackBlockSlice(tt *testing.T) {
	ctx := &Context{}
	_, err := ctx.PackBlockSlice(make([]byte, 8), make([]Pixel, 15), PackParams{})
	require.ErrorIs(tt, err, ErrBadArgument)
	_, err = ctx.PackBlockSlice(make([]byte, 7), make([]Pixel, 16), PackParams{})
	require.ErrorIs(tt, err, ErrBadArgument)

	pixels := makeTestBlocks(1, 9)[0]
	dst := make([]byte, 8)
	got, err := ctx.PackBlockSlice(dst, pixels[:], PackParams{Quality: QualityFast})
	require.NoError(tt, err)

	b, want := ctx.PackBlock(&pixels, PackParams{Quality: QualityFast})
	require.Equal(tt, want, got)
	require.Equal(tt, b[:], dst)
}

func TestDitherBlock(tt *testing.T) {
	src := [16]Pixel{}
	for i := range src {
		v := uint8(8*i + 3)
		src[i] = Pixel{v, 255 - v, 128, uint8(i)}
	}
	dst := [16]Pixel{}
	ditherBlock(&dst, &src)

	for i, p := range dst {
		require.Equal(tt, src[i].A, p.A, "i=%d: alpha", i)
		for ch := range 3 {
			v := *pixelChannel(&p, ch)
			// Every output is on the 555 lattice.
			require.Equal(tt, int32(v), expand5(v>>3), "i=%d, ch=%d", i, ch)
		}
	}
}

func ExampleContext_PackBlock() {
	pixels := [16]Pixel{}
	for i := range pixels {
		pixels[i] = Pixel{124, 58, 198, 0xFF}
	}

	ctx := &Context{}
	b, err := ctx.PackBlock(&pixels, PackParams{Quality: QualitySlow})
	fmt.Printf("block=% 02X error=%d\n", b[:], err)

	decoded := [16]Pixel{}
	ok := UnpackBlock(&decoded, b, false)
	fmt.Printf("ok=%t first=%v\n", ok, decoded[0])
	// Output:
	// block=80 40 C8 02 FF FF FF FF error=0
	// ok=true first={124 58 198 255}
}
