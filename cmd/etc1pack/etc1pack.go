// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

// ----------------

// etc1pack decodes and encodes the ETC1 (Ericsson Texture Compression) lossy
// image file format.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"math/bits"
	"os"

	"github.com/dblezek/tga"
	"github.com/klauspost/compress/zstd"
	"github.com/nigeltao/etc1/internal/config"
	"github.com/nigeltao/etc1/internal/nie"
	"github.com/nigeltao/etc1/lib/etc1"
	"github.com/nigeltao/etc1/lib/pkm"
	"github.com/spf13/pflag"
	"golang.org/x/exp/mmap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const usageStr = `etc1pack decodes and encodes the ETC1 lossy image file format.

Usage: choose one of

    etc1pack --decode [path]
    etc1pack --encode [path]

The path to the input image file is optional. If omitted, stdin is read.

When decoding you can also pass one of these flags (before the path):

    --output=nie-bn4
    --output=nie-bn8
    --output=png (this is the default)

When encoding you can also pass these flags (before the path):

    --output=pkm (this is the default)
    --quality=superfast|fast|normal|better|slow (default: normal)
    --dither
    --workers=N (default: the number of CPUs)
    --resize-pow2 (scale to power-of-two dimensions first)
    --zstd (compress the PKM output with Zstandard)

Either mode also takes:

    --config=path (a YAML file of encoding settings; flags override it)
    --verbose (log encoding statistics to stderr)

The output image (in NIE/PNG or PKM format) is written to stdout.

Decode inputs PKM, optionally Zstandard compressed, and outputs NIE/PNG.
Encode inputs BMP, GIF, JPEG, PNG, TGA, TIFF or WEBP and outputs PKM.
`

var (
	ErrBadOutputFlag  = errors.New("main: bad --output flag")
	ErrBadWorkersFlag = errors.New("main: bad --workers flag")
)

// zstdMagic is the first 4 bytes of every Zstandard frame.
const zstdMagic = "\x28\xB5\x2F\xFD"

func main() {
	if err := main1(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func main1() error {
	return ignoreHelp(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// ignoreHelp maps the error from asking for --help to success.
func ignoreHelp(err error) error {
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

type flags struct {
	decode  bool
	encode  bool
	output  string
	quality string
	dither  bool
	workers int
	config  string
	verbose bool
	resize  bool
	zstd    bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer, stderr io.Writer) error {
	f := flags{}
	fs := pflag.NewFlagSet("etc1pack", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { io.WriteString(stderr, usageStr) }
	fs.BoolVar(&f.decode, "decode", false, "whether to decode the input")
	fs.BoolVar(&f.encode, "encode", false, "whether to encode the input")
	fs.StringVar(&f.output, "output", "", "output format")
	fs.StringVar(&f.quality, "quality", "", "encoding quality")
	fs.BoolVar(&f.dither, "dither", false, "whether to dither before encoding")
	fs.IntVar(&f.workers, "workers", 0, "number of encoding goroutines")
	fs.StringVar(&f.config, "config", "", "YAML configuration file")
	fs.BoolVar(&f.verbose, "verbose", false, "whether to log encoding statistics")
	fs.BoolVar(&f.resize, "resize-pow2", false, "whether to scale to power-of-two dimensions")
	fs.BoolVar(&f.zstd, "zstd", false, "whether to compress the PKM output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	etc1.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	defer etc1.SetLogger(nil)

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if err := applyFlags(&cfg, fs, &f); err != nil {
		return err
	}

	var in io.ReadSeeker
	switch fs.NArg() {
	case 0:
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		in = bytes.NewReader(raw)
	case 1:
		r, err := mmap.Open(fs.Arg(0))
		if err != nil {
			return fmt.Errorf("open %q: %w", fs.Arg(0), err)
		}
		defer r.Close()
		in = io.NewSectionReader(r, 0, int64(r.Len()))
	default:
		return errors.New("too many filenames; the maximum is one")
	}

	if f.decode && !f.encode {
		return decode(stdout, in, f.output)
	}
	if !f.decode && f.encode {
		return encode(ctx, stdout, in, f.output, cfg)
	}
	return errors.New("must specify exactly one of --decode, --encode or --help")
}

// applyFlags overrides cfg with the flags that were set explicitly.
func applyFlags(cfg *config.Config, fs *pflag.FlagSet, f *flags) error {
	if fs.Changed("quality") {
		q, err := etc1.ParseQuality(f.quality)
		if err != nil {
			return fmt.Errorf("--quality=%q: %w", f.quality, err)
		}
		cfg.Quality = q
	}
	if fs.Changed("dither") {
		cfg.Dithering = f.dither
	}
	if fs.Changed("workers") {
		if f.workers <= 0 {
			return ErrBadWorkersFlag
		}
		cfg.Workers = f.workers
	}
	if fs.Changed("resize-pow2") {
		cfg.ResizePow2 = f.resize
	}
	if fs.Changed("zstd") {
		cfg.Zstd = f.zstd
	}
	return nil
}

func decode(w io.Writer, in io.ReadSeeker, output string) error {
	switch output {
	case "", "nie-bn4", "nie-bn8", "png":
		// No-op.
	default:
		return ErrBadOutputFlag
	}

	r, closer, err := maybeDecompress(in)
	if err != nil {
		return err
	}
	defer closer()

	src, err := pkm.Decode(r)
	if err != nil {
		return err
	}

	var dst []byte
	switch output {
	case "nie-bn4":
		dst, err = nie.EncodeBN4(src)
	case "nie-bn8":
		dst, err = nie.EncodeBN8(src)
	default:
		return png.Encode(w, src)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(dst)
	return err
}

// maybeDecompress wraps in with a Zstandard decoder if it starts with a
// Zstandard frame.
func maybeDecompress(in io.ReadSeeker) (io.Reader, func(), error) {
	magic := [4]byte{}
	n, err := io.ReadFull(in, magic[:])
	if (err != nil) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, err
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, nil, err
	}
	if (n < len(magic)) || (string(magic[:]) != zstdMagic) {
		return in, func() {}, nil
	}

	dec, err := zstd.NewReader(in)
	if err != nil {
		return nil, nil, fmt.Errorf("zstd: %w", err)
	}
	return dec, dec.Close, nil
}

func encode(ctx context.Context, w io.Writer, in io.ReadSeeker, output string, cfg config.Config) (retErr error) {
	switch output {
	case "", "pkm":
		// No-op.
	default:
		return ErrBadOutputFlag
	}

	src, err := decodeImage(in)
	if err != nil {
		return err
	}
	if cfg.ResizePow2 {
		src = resizePow2(src)
	}

	if cfg.Zstd {
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("zstd: %w", err)
		}
		defer func() {
			if err := zw.Close(); (err != nil) && (retErr == nil) {
				retErr = err
			}
		}()
		w = zw
	}

	params := etc1.PackParams{Quality: cfg.Quality, Dithering: cfg.Dithering}
	return encodeParallel(ctx, w, src, params, cfg.Workers)
}

// decodeImage decodes any registered image format, falling back to TGA,
// which has no magic number to register.
func decodeImage(in io.ReadSeeker) (image.Image, error) {
	src, _, err := image.Decode(in)
	if !errors.Is(err, image.ErrFormat) {
		return src, err
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	src, tgaErr := tga.Decode(in)
	if tgaErr != nil {
		return nil, fmt.Errorf("%w (tga: %v)", err, tgaErr)
	}
	return src, nil
}

// resizePow2 scales src up to the next power of two in each dimension.
func resizePow2(src image.Image) image.Image {
	b := src.Bounds()
	w, h := nextPow2(b.Dx()), nextPow2(b.Dy())
	if (w == b.Dx()) && (h == b.Dy()) {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// encodeParallel writes src to w in the PKM format, encoding block rows on up
// to workers goroutines. Each goroutine owns one etc1.Encoder, and so one
// etc1.Context, and encodes every workers'th row. The output is identical to
// pkm.Encode's.
func encodeParallel(ctx context.Context, w io.Writer, src image.Image, params etc1.PackParams, workers int) error {
	b := src.Bounds()
	if (b.Dx() > etc1.MaxDimension) || (b.Dy() > etc1.MaxDimension) {
		return etc1.ErrImageIsTooLarge
	}
	if err := pkm.WriteHeader(w, b.Dx(), b.Dy()); err != nil {
		return err
	}

	rows := make([][]byte, (b.Dy()+3)/4)
	workers = max(1, min(workers, len(rows)))
	encoders := make([]*etc1.Encoder, workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range encoders {
		e := etc1.NewEncoder(src, params)
		encoders[i] = e
		g.Go(func() error {
			for blockRow := i; blockRow < len(rows); blockRow += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows[blockRow] = e.AppendRow(nil, blockRow)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, row := range rows {
		if _, err := w.Write(row); err != nil {
			return err
		}
	}

	total := etc1.Stats{}
	for _, e := range encoders {
		s := e.Stats()
		total.Blocks += s.Blocks
		total.TotalError += s.TotalError
	}
	etc1.LogStats("etc1pack: encoded", b, params, total)
	return nil
}
