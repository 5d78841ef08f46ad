// Package lfsr checks captured transport stream data against the 16-bit
// pseudo-random sequence the capture hardware emits in test mode.
package lfsr

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"github.com/herlein/isdbtune/pkg/isdb"
)

// Taps is the feedback polynomial of the Galois register
const Taps = 0xB400

var (
	// ErrMismatch is returned at the first word that differs from the sequence
	ErrMismatch = errors.New("stream does not match test sequence")

	// ErrTruncated is returned when the stream ends inside a word
	ErrTruncated = errors.New("stream ends with a partial word")
)

// Seed returns the first word emitted by a tuner in test mode. Satellite
// tuners count as 0 and terrestrial ones as 1.
func Seed(sys isdb.DeliverySystem, tuner int) uint16 {
	n := 0
	if sys == isdb.Terrestrial {
		n = 1
	}
	return uint16((1 + 2*n + tuner) * 12345)
}

// Next advances the register by one word
func Next(l uint16) uint16 {
	return (l >> 1) ^ (-(l & 1) & Taps)
}

// Verify reads little-endian words from r and compares them with the
// sequence starting at seed. It returns the number of bytes verified; on a
// mismatch that is the offset of the offending word.
func Verify(r io.Reader, seed uint16) (int64, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	var (
		offset int64
		word   [2]byte
	)
	want := seed
	for {
		n, err := io.ReadFull(br, word[:])
		if err == io.EOF {
			return offset, nil
		}
		if err == io.ErrUnexpectedEOF {
			return offset, fmt.Errorf("%w at offset 0x%X", ErrTruncated, offset)
		}
		if err != nil {
			return offset, fmt.Errorf("failed to read stream: %w", err)
		}
		got := uint16(word[0]) | uint16(word[1])<<8
		if got != want {
			return offset, fmt.Errorf("%w at offset 0x%X: got 0x%04X, want 0x%04X", ErrMismatch, offset, got, want)
		}
		offset += int64(n)
		want = Next(want)
	}
}

// Generate writes count words of the sequence starting at seed
func Generate(w io.Writer, seed uint16, count int) error {
	bw := bufio.NewWriter(w)
	l := seed
	for i := 0; i < count; i++ {
		if err := bw.WriteByte(byte(l)); err != nil {
			return err
		}
		if err := bw.WriteByte(byte(l >> 8)); err != nil {
			return err
		}
		l = Next(l)
	}
	return bw.Flush()
}
