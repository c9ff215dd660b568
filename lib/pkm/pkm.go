// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

// ----------------

// Package pkm implements the PKM container format for ETC1 textures.
//
// A PKM file is a 16 byte header followed by the ETC1 blocks, in row-major
// block order, of a single mipmap level.
package pkm

import (
	"errors"
	"image"
	"image/color"
	"io"

	"github.com/nigeltao/etc1/lib/etc1"
)

// Magic is the byte string prefix of every PKM image file.
const Magic = "PKM "

// HeaderLen is the size of a PKM header.
const HeaderLen = 16

// formatETC1RGBNoMipmaps is the only PKM texture format implemented.
const formatETC1RGBNoMipmaps = 0x00

func init() {
	image.RegisterFormat("pkm", Magic, Decode, DecodeConfig)
}

var (
	ErrBadArgument     = errors.New("pkm: bad argument")
	ErrNotAPKMFile     = errors.New("pkm: not a PKM file")
	ErrImageIsTooLarge = errors.New("pkm: image is too large")
)

// DecodeConfig reads a PKM image configuration from r.
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := [HeaderLen]byte{}
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return image.Config{}, err
	} else if (buf[0] != Magic[0]) ||
		(buf[1] != Magic[1]) ||
		(buf[2] != Magic[2]) ||
		(buf[3] != Magic[3]) ||
		((buf[4] != '1') && (buf[4] != '2')) ||
		(buf[5] != '0') ||
		(buf[6] != 0x00) ||
		(buf[7] != formatETC1RGBNoMipmaps) {
		return image.Config{}, ErrNotAPKMFile
	}

	roundedUpWidth := (uint32(buf[8]) << 8) | uint32(buf[9])
	roundedUpHeight := (uint32(buf[10]) << 8) | uint32(buf[11])
	width := (uint32(buf[12]) << 8) | uint32(buf[13])
	height := (uint32(buf[14]) << 8) | uint32(buf[15])

	if (((width + 3) &^ 3) != roundedUpWidth) ||
		(((height + 3) &^ 3) != roundedUpHeight) {
		return image.Config{}, ErrNotAPKMFile
	}

	return image.Config{
		ColorModel: color.RGBAModel,
		Width:      int(width),
		Height:     int(height),
	}, nil
}

// Decode reads a PKM image from r.
func Decode(r io.Reader) (image.Image, error) {
	config, err := DecodeConfig(r)
	if err != nil {
		return nil, err
	}
	m, err := etc1.NewImage(config.Width, config.Height)
	if err != nil {
		return nil, err
	}
	if err = etc1.Decode(m, r); err != nil {
		return nil, err
	}
	return m.SubImage(image.Rect(0, 0, config.Width, config.Height)), nil
}

// AppendHeader appends the PKM header for an image of the given size to dst.
func AppendHeader(dst []byte, width int, height int) ([]byte, error) {
	if (width < 0) || (height < 0) {
		return dst, ErrBadArgument
	} else if (width > etc1.MaxDimension) || (height > etc1.MaxDimension) {
		return dst, ErrImageIsTooLarge
	}

	roundedUpW := (width + 3) &^ 3
	roundedUpH := (height + 3) &^ 3
	return append(dst,
		Magic[0], Magic[1], Magic[2], Magic[3],
		'1', '0', 0x00, formatETC1RGBNoMipmaps,
		uint8(roundedUpW>>8), uint8(roundedUpW>>0),
		uint8(roundedUpH>>8), uint8(roundedUpH>>0),
		uint8(width>>8), uint8(width>>0),
		uint8(height>>8), uint8(height>>0),
	), nil
}

// WriteHeader writes the PKM header for an image of the given size to w.
// Callers that produce the ETC1 blocks themselves, such as a parallel
// encoder, follow it with exactly BlocksWide × BlocksHigh blocks.
func WriteHeader(w io.Writer, width int, height int) error {
	buf, err := AppendHeader(make([]byte, 0, HeaderLen), width, height)
	if err != nil {
		return err
	}
	_, err = w.Write(buf)
	return err
}

// EncodeOptions are optional arguments to Encode. The zero value is valid and
// means to use the default configuration.
type EncodeOptions struct {
	// If zero, the default is etc1.QualitySuperFast.
	Quality etc1.Quality

	Dithering bool
}

// Encode writes src to w in the PKM format.
//
// options may be nil, which means to use the default configuration.
func Encode(w io.Writer, src image.Image, options *EncodeOptions) error {
	if (w == nil) || (src == nil) {
		return ErrBadArgument
	}
	b := src.Bounds()
	if err := WriteHeader(w, b.Dx(), b.Dy()); err != nil {
		return err
	}

	o := &etc1.EncodeOptions{}
	if options != nil {
		o.Quality = options.Quality
		o.Dithering = options.Dithering
	}
	return etc1.Encode(w, src, o)
}
