// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

// Block is an encoded 4×4 block. Viewed as a big-endian uint64, the bit
// layout is:
//
//	63..40  base colors: 555+333 (differential) or 444+444 (absolute)
//	39..37  first sub-block's intensity table
//	36..34  second sub-block's intensity table
//	33      diff bit
//	32      flip bit
//	31..16  selector MSB plane, bit (4*x + y) for pixel (x, y)
//	15..0   selector LSB plane, bit (4*x + y) for pixel (x, y)
type Block [BytesPerBlock]byte

// Bit offsets, within the big-endian uint64 view, of the Block fields.
const (
	bitFlip        = 32
	bitDiff        = 33
	bitIntenTable1 = 34
	bitIntenTable0 = 37
	bitSelectorLSB = 0
	bitSelectorMSB = 16

	widthIntenTable = 3
	widthColor5     = 5
	widthColor4     = 4
	widthDelta3     = 3
)

// Per channel (R, G, B) bit offsets of the differential mode colors.
var (
	bitsBase5  = [3]uint{59, 51, 43}
	bitsDelta3 = [3]uint{56, 48, 40}
)

// Per channel (R, G, B) bit offsets of the absolute mode colors, indexed by
// sub-block.
var bitsBase4 = [2][3]uint{
	{60, 52, 44},
	{56, 48, 40},
}

// BlockFromUint64 returns the Block whose big-endian encoding is u.
func BlockFromUint64(u uint64) (b Block) {
	writeU64BE(b[:], u)
	return b
}

// Uint64 returns b's big-endian encoding.
func (b *Block) Uint64() uint64 {
	return readU64BE(b[:])
}

func (b *Block) getBits(offset uint, width uint) uint32 {
	return uint32(b.Uint64()>>offset) & ((1 << width) - 1)
}

func (b *Block) setBits(offset uint, width uint, value uint32) {
	mask := ((uint64(1) << width) - 1) << offset
	u := b.Uint64() &^ mask
	u |= (uint64(value) << offset) & mask
	writeU64BE(b[:], u)
}

// DiffBit returns whether b uses differential (555+333) color coding.
func (b *Block) DiffBit() bool { return b.getBits(bitDiff, 1) != 0 }

// FlipBit returns whether b's sub-blocks are the top and bottom halves.
func (b *Block) FlipBit() bool { return b.getBits(bitFlip, 1) != 0 }

func (b *Block) SetDiffBit(diff bool) { b.setBits(bitDiff, 1, boolToU32(diff)) }
func (b *Block) SetFlipBit(flip bool) { b.setBits(bitFlip, 1, boolToU32(flip)) }

// IntenTable returns the intensity table index, in [0, 7], of the given
// sub-block (0 or 1).
func (b *Block) IntenTable(subblock int) uint8 {
	if subblock == 0 {
		return uint8(b.getBits(bitIntenTable0, widthIntenTable))
	}
	return uint8(b.getBits(bitIntenTable1, widthIntenTable))
}

func (b *Block) SetIntenTable(subblock int, t uint8) {
	if subblock == 0 {
		b.setBits(bitIntenTable0, widthIntenTable, uint32(t))
	} else {
		b.setBits(bitIntenTable1, widthIntenTable, uint32(t))
	}
}

// Base5Color returns the unscaled 555 base color of a differential block.
func (b *Block) Base5Color() (c [3]uint8) {
	for i, offset := range bitsBase5 {
		c[i] = uint8(b.getBits(offset, widthColor5))
	}
	return c
}

func (b *Block) SetBase5Color(c [3]uint8) {
	for i, offset := range bitsBase5 {
		b.setBits(offset, widthColor5, uint32(c[i]))
	}
}

// Delta3 returns the signed per channel deltas, each in [-4, 3], of a
// differential block.
func (b *Block) Delta3() (d [3]int32) {
	for i, offset := range bitsDelta3 {
		d[i] = unpackDelta3(b.getBits(offset, widthDelta3))
	}
	return d
}

func (b *Block) SetDelta3(d [3]int32) {
	for i, offset := range bitsDelta3 {
		b.setBits(offset, widthDelta3, packDelta3(d[i]))
	}
}

// Base4Color returns the unscaled 444 color of the given sub-block (0 or 1)
// of an absolute block.
func (b *Block) Base4Color(subblock int) (c [3]uint8) {
	for i, offset := range bitsBase4[subblock&1] {
		c[i] = uint8(b.getBits(offset, widthColor4))
	}
	return c
}

func (b *Block) SetBase4Color(subblock int, c [3]uint8) {
	for i, offset := range bitsBase4[subblock&1] {
		b.setBits(offset, widthColor4, uint32(c[i]))
	}
}

// selector returns the Selector of the pixel at (x, y).
func (b *Block) selector(x int, y int) Selector {
	i := uint((4 * x) + y)
	lsb := b.getBits(bitSelectorLSB+i, 1)
	msb := b.getBits(bitSelectorMSB+i, 1)
	return wireSelector((msb << 1) | lsb).selector()
}

func (b *Block) setSelector(x int, y int, s Selector) {
	i := uint((4 * x) + y)
	w := uint32(s.wire())
	b.setBits(bitSelectorLSB+i, 1, w&1)
	b.setBits(bitSelectorMSB+i, 1, w>>1)
}

// Selector returns the on-block 2 bit selector value, in [0, 3], of the pixel
// at (x, y). It is the index into the ETC1 specification's modifier table
// ordering (which is not monotonic in intensity).
func (b *Block) Selector(x int, y int) uint8 {
	return uint8(b.selector(x, y).wire())
}

func boolToU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func readU64BE(b []byte) uint64 {
	_ = b[7] // Early bounds check to guarantee safety of reads below.
	return uint64(b[7]) | uint64(b[6])<<8 | uint64(b[5])<<16 | uint64(b[4])<<24 |
		uint64(b[3])<<32 | uint64(b[2])<<40 | uint64(b[1])<<48 | uint64(b[0])<<56
}

func writeU64BE(b []byte, v uint64) {
	_ = b[7] // Early bounds check to guarantee safety of writes below.
	b[0] = byte(v >> 56)
	b[1] = byte(v >> 48)
	b[2] = byte(v >> 40)
	b[3] = byte(v >> 32)
	b[4] = byte(v >> 24)
	b[5] = byte(v >> 16)
	b[6] = byte(v >> 8)
	b[7] = byte(v)
}
