// Copyright 2025 The Etc2 Authors.
//
// Licensed under the Apache License, Version 2.0 <LICENSE-APACHE or
// https://www.apache.org/licenses/LICENSE-2.0>. This file may not be copied,
// modified, or distributed except according to those terms.
//
// SPDX-License-Identifier: Apache-2.0

package etc1

import (
	"sync"
)

// blockConfig packs a (diff, intensity table, selector, packed channel value)
// tuple as diff | inten<<1 | selector<<4 | packed<<8.
type blockConfig uint16

func makeBlockConfig(diff bool, inten uint8, s Selector, packed uint8) blockConfig {
	return blockConfig(boolToU32(diff)) |
		blockConfig(inten)<<1 |
		blockConfig(s)<<4 |
		blockConfig(packed)<<8
}

func (x blockConfig) diff() bool         { return (x & 1) != 0 }
func (x blockConfig) intenTable() uint8  { return uint8(x>>1) & 7 }
func (x blockConfig) selector() Selector { return Selector(x>>4) & 3 }
func (x blockConfig) packed() uint8      { return uint8(x >> 8) }

// inverseIndex is the low byte of a blockConfig: everything but the packed
// channel value.
func (x blockConfig) inverseIndex() uint8 { return uint8(x) & 0x3F }

// inverseEntry is a packed channel value in the low byte and the absolute
// error, between its decoding and the target value, in the high byte.
type inverseEntry uint16

func (e inverseEntry) packed() uint8 { return uint8(e) }
func (e inverseEntry) err() uint32   { return uint32(e >> 8) }

type lookupTables struct {
	// inverse is indexed by [blockConfig.inverseIndex][target value].
	inverse [64][256]inverseEntry

	// configs lists, for each 8 bit value, every blockConfig that decodes
	// to exactly that value.
	configs [256][]blockConfig
}

// lookup returns the lazily built, immutable, lookup tables.
var lookup = sync.OnceValue(buildLookupTables)

// decodeValue is the 8 bit value of one channel of one of a sub-block's
// colors.
func decodeValue(diff bool, inten uint8, s Selector, packed uint8) int32 {
	return clampI32(expand(packed, !diff)+intenTables[inten][s], 0, 255)
}

func buildLookupTables() *lookupTables {
	t := &lookupTables{}
	for d := range 2 {
		diff := d != 0
		limit := uint8(limit4)
		if diff {
			limit = limit5
		}

		for inten := range uint8(8) {
			for s := range Selector(4) {
				idx := makeBlockConfig(diff, inten, s, 0).inverseIndex()

				for target := range int32(256) {
					bestPacked, bestErr := uint8(0), int32(256)
					for packed := uint8(0); packed <= limit; packed++ {
						e := decodeValue(diff, inten, s, packed) - target
						if e < 0 {
							e = -e
						}
						if e < bestErr {
							bestPacked, bestErr = packed, e
							if bestErr == 0 {
								break
							}
						}
					}
					t.inverse[idx][target] = inverseEntry(bestPacked) | inverseEntry(bestErr)<<8
				}

				for packed := uint8(0); packed <= limit; packed++ {
					v := decodeValue(diff, inten, s, packed)
					t.configs[v] = append(t.configs[v], makeBlockConfig(diff, inten, s, packed))
				}
			}
		}
	}
	return t
}
