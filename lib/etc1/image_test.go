// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"bytes"
	"image"
	"image/color"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func makeTestImage(w int, h int) *image.NRGBA {
	m := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			m.SetNRGBA(x, y, color.NRGBA{
				R: uint8(20 * x),
				G: uint8(30 * y),
				B: uint8(7 * (x + y)),
				A: 0xFF,
			})
		}
	}
	return m
}

func TestEncodeDecodeImage(tt *testing.T) {
	testCases := []struct {
		w, h int
	}{
		{4, 4},
		{10, 7},
		{1, 1},
		{0, 0},
	}

	for _, tc := range testCases {
		src := makeTestImage(tc.w, tc.h)
		for _, q := range []Quality{QualitySuperFast, QualityBetter} {
			params := PackParams{Quality: q}
			e := NewEncoder(src, params)
			encoded := []byte(nil)
			for blockRow := range e.BlocksHigh() {
				encoded = e.AppendRow(encoded, blockRow)
			}
			wantLen := BytesPerBlock * ((tc.w + 3) / 4) * ((tc.h + 3) / 4)
			if len(encoded) != wantLen {
				tt.Fatalf("tc=%v: length: got %d, want %d", tc, len(encoded), wantLen)
			}

			buf := &bytes.Buffer{}
			if err := Encode(buf, src, &EncodeOptions{Quality: q}); err != nil {
				tt.Fatalf("tc=%v: Encode: %v", tc, err)
			}
			if !bytes.Equal(buf.Bytes(), encoded) {
				tt.Fatalf("tc=%v: Encode and Encoder.AppendRow differ", tc)
			}

			dst, err := NewImage(tc.w, tc.h)
			if err != nil {
				tt.Fatalf("tc=%v: NewImage: %v", tc, err)
			}
			if err := Decode(dst, bytes.NewReader(encoded)); err != nil {
				tt.Fatalf("tc=%v: Decode: %v", tc, err)
			}

			// The Encoder's total error covers the padded blocks, whose
			// out-of-bounds pixels repeat the edges.
			b := dst.Bounds()
			total := uint64(0)
			for y := range b.Dy() {
				for x := range b.Dx() {
					s := src.NRGBAAt(min(x, tc.w-1), min(y, tc.h-1))
					d := dst.RGBAAt(x, y)
					if d.A != 0xFF {
						tt.Fatalf("tc=%v: (%d, %d): alpha 0x%02X", tc, x, y, d.A)
					}
					total += colorDistance(Pixel{s.R, s.G, s.B, s.A},
						[3]int32{int32(d.R), int32(d.G), int32(d.B)})
				}
			}
			if got := e.Stats().TotalError; got != total {
				tt.Fatalf("tc=%v, q=%v: Stats.TotalError: got %d, want %d", tc, q, got, total)
			}
		}
	}
}

func TestEncodeSubImage(tt *testing.T) {
	src := makeTestImage(13, 9)
	sub := src.SubImage(image.Rect(3, 2, 11, 9))

	origin := image.NewNRGBA(image.Rect(0, 0, 8, 7))
	for y := range 7 {
		for x := range 8 {
			origin.SetNRGBA(x, y, src.NRGBAAt(x+3, y+2))
		}
	}

	got, want := &bytes.Buffer{}, &bytes.Buffer{}
	require.NoError(tt, Encode(got, sub, nil))
	require.NoError(tt, Encode(want, origin, nil))
	require.Equal(tt, want.Bytes(), got.Bytes())
}

// plainImage hides every method but those of image.Image.
type plainImage struct {
	image.Image
}

func TestEncodeExtractPaths(tt *testing.T) {
	// The same opaque image through each of makeExtract's branches.
	nrgba := makeTestImage(8, 8)
	rgba := image.NewRGBA(nrgba.Bounds())
	rgba64 := image.NewRGBA64(nrgba.Bounds())
	for y := range 8 {
		for x := range 8 {
			c := nrgba.NRGBAAt(x, y)
			rgba.SetRGBA(x, y, color.RGBA{c.R, c.G, c.B, c.A})
			rgba64.Set(x, y, c)
		}
	}

	want := &bytes.Buffer{}
	require.NoError(tt, Encode(want, nrgba, nil))
	for _, m := range []image.Image{rgba, rgba64, plainImage{nrgba}} {
		got := &bytes.Buffer{}
		require.NoError(tt, Encode(got, m, nil))
		require.Equal(tt, want.Bytes(), got.Bytes(), "%T", m)
	}
}

func TestEncodeBadArguments(tt *testing.T) {
	require.ErrorIs(tt, Encode(nil, makeTestImage(4, 4), nil), ErrBadArgument)
	require.ErrorIs(tt, Encode(io.Discard, nil, nil), ErrBadArgument)

	huge := image.NewUniform(color.White)
	require.ErrorIs(tt, Encode(io.Discard, huge, nil), ErrImageIsTooLarge)
}

func TestNewImage(tt *testing.T) {
	m, err := NewImage(5, 9)
	require.NoError(tt, err)
	require.Equal(tt, image.Rect(0, 0, 8, 12), m.Bounds())

	_, err = NewImage(-1, 4)
	require.ErrorIs(tt, err, ErrBadArgument)
	_, err = NewImage(4, MaxDimension+1)
	require.ErrorIs(tt, err, ErrBadArgument)
}

func TestDecodeTruncated(tt *testing.T) {
	dst, err := NewImage(8, 8)
	require.NoError(tt, err)

	require.ErrorIs(tt, Decode(dst, bytes.NewReader(make([]byte, 24))), io.ErrUnexpectedEOF)
	require.ErrorIs(tt, Decode(dst, bytes.NewReader(nil)), io.ErrUnexpectedEOF)

	odd := image.NewRGBA(image.Rect(0, 0, 6, 8))
	require.ErrorIs(tt, Decode(odd, bytes.NewReader(make([]byte, 64))), ErrBadArgument)
}
