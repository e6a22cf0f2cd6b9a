// Copyright (c) 2025 Rafi / Elli
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import "unicode/utf8"

// =============================================================================
// CHUNK DECODER
// =============================================================================

// ChunkDecoder reassembles a UTF-8 text stream from arbitrary byte chunks.
//
// HTTP chunking splits the body at byte boundaries, so a multi-byte rune can
// straddle two chunks. The decoder holds back the trailing incomplete rune
// bytes of each chunk and prepends them to the next one, so every string it
// returns is valid UTF-8 and their concatenation equals the byte stream.
type ChunkDecoder struct {
	pending []byte
}

// NewChunkDecoder creates an empty decoder.
func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{}
}

// Decode consumes the next byte chunk and returns the complete text it can
// emit. The returned string may be empty when the chunk only extends a rune
// still waiting for its final bytes.
func (d *ChunkDecoder) Decode(chunk []byte) string {
	if len(chunk) == 0 {
		return ""
	}

	buf := chunk
	if len(d.pending) > 0 {
		buf = append(d.pending, chunk...)
		d.pending = nil
	}

	cut := incompleteTailStart(buf)
	if cut < len(buf) {
		d.pending = append([]byte(nil), buf[cut:]...)
		buf = buf[:cut]
	}
	return string(buf)
}

// Flush returns whatever bytes are still held back, as-is. A well-formed
// stream leaves nothing pending; anything returned here is a truncated rune
// from an upstream that died mid-character.
func (d *ChunkDecoder) Flush() string {
	if len(d.pending) == 0 {
		return ""
	}
	out := string(d.pending)
	d.pending = nil
	return out
}

// incompleteTailStart finds the index where a trailing incomplete UTF-8
// sequence begins, or len(buf) when the buffer ends on a rune boundary.
func incompleteTailStart(buf []byte) int {
	// A UTF-8 sequence is at most 4 bytes, so only the last 3 bytes can
	// start an incomplete rune.
	end := len(buf)
	for i := 1; i <= 3 && i <= end; i++ {
		b := buf[end-i]
		if b < 0x80 {
			// ASCII byte terminates any search.
			return end
		}
		if b >= 0xC0 {
			// Lead byte: complete only if its full sequence fits.
			r, size := utf8.DecodeRune(buf[end-i:])
			if r == utf8.RuneError && size <= 1 {
				return end - i
			}
			if size == i {
				return end
			}
			return end - i
		}
		// Continuation byte, keep scanning backwards.
	}
	return end
}
