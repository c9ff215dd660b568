// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

// ----------------

// Package nie implements the NIE (Naive) image file format.
//
// It is an incomplete implementation (and hence an internal package), only
// providing what's needed by the github.com/nigeltao/etc1 module: writing
// "bn4" and "bn8" files, which etc1pack emits and which tests compare
// byte-for-byte.
//
// NIE is specified at
// https://github.com/google/wuffs/blob/main/doc/spec/nie-spec.md
package nie

import (
	"errors"
	"image"
	"image/color"
)

var (
	ErrBadArgument = errors.New("nie: bad argument")
)

// HeaderLen is the size of a NIE header.
const HeaderLen = 16

// EncodeBN4 encodes m as a NIE file in BGRA order, non-premultiplied alpha, 4
// bytes per pixel (8 bits per channel).
func EncodeBN4(m image.Image) ([]byte, error) {
	return encode(m, '4')
}

// EncodeBN8 encodes m as a NIE file in BGRA order, non-premultiplied alpha, 8
// bytes per pixel (16 bits per channel).
func EncodeBN8(m image.Image) ([]byte, error) {
	return encode(m, '8')
}

func encode(m image.Image, depth byte) (ret []byte, retErr error) {
	if m == nil {
		return nil, ErrBadArgument
	}
	b := m.Bounds()
	if (uint64(b.Dx()) > 0x7FFFFFFF) || (uint64(b.Dy()) > 0x7FFFFFFF) {
		return nil, ErrBadArgument
	}

	bytesPerPixel := 4
	if depth == '8' {
		bytesPerPixel = 8
	}
	ret = make([]byte, 0, HeaderLen+(bytesPerPixel*b.Dx()*b.Dy()))
	ret = append(ret, 0x6E, 0xC3, 0xAF, 0x45, 0xFF, 'b', 'n', depth)
	ret = appendU32LE(ret, uint32(b.Dx()))
	ret = appendU32LE(ret, uint32(b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			at := nrgba64At(m, x, y)
			if depth == '8' {
				ret = append(ret,
					uint8(at.B>>0), uint8(at.B>>8),
					uint8(at.G>>0), uint8(at.G>>8),
					uint8(at.R>>0), uint8(at.R>>8),
					uint8(at.A>>0), uint8(at.A>>8),
				)
			} else {
				ret = append(ret,
					uint8(at.B>>8),
					uint8(at.G>>8),
					uint8(at.R>>8),
					uint8(at.A>>8),
				)
			}
		}
	}
	return ret, nil
}

// nrgba64At returns m's pixel at (x, y), with exact fast paths for the types
// that etc1 decodes to and encodes from.
func nrgba64At(m image.Image, x int, y int) color.NRGBA64 {
	switch m := m.(type) {
	case *image.RGBA:
		if at := m.RGBAAt(x, y); at.A == 0xFF {
			return color.NRGBA64{
				R: 0x101 * uint16(at.R),
				G: 0x101 * uint16(at.G),
				B: 0x101 * uint16(at.B),
				A: 0xFFFF,
			}
		}
	case *image.NRGBA:
		at := m.NRGBAAt(x, y)
		return color.NRGBA64{
			R: 0x101 * uint16(at.R),
			G: 0x101 * uint16(at.G),
			B: 0x101 * uint16(at.B),
			A: 0x101 * uint16(at.A),
		}
	case *image.NRGBA64:
		return m.NRGBA64At(x, y)
	}
	return color.NRGBA64Model.Convert(m.At(x, y)).(color.NRGBA64)
}

func appendU32LE(b []byte, u uint32) []byte {
	return append(b,
		uint8(u>>0),
		uint8(u>>8),
		uint8(u>>16),
		uint8(u>>24),
	)
}
