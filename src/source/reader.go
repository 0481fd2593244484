// Package source runs processes and streams their output into a console.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"grepconsole/src/contracts"
)

// readBufferSize is the largest chunk handed to a console at once.
const readBufferSize = 4096

// ChunkWriter receives process output. *console.Console implements it.
type ChunkWriter interface {
	Write(chunk contracts.Chunk)
}

// ChunkWriterFunc adapts a function to the ChunkWriter interface.
type ChunkWriterFunc func(chunk contracts.Chunk)

func (f ChunkWriterFunc) Write(chunk contracts.Chunk) { f(chunk) }

// Encoding looks up a character set name such as "latin1" or "windows-1252".
// An empty name or "utf-8" returns nil, meaning no decoding.
func Encoding(charset string) (encoding.Encoding, error) {
	if charset == "" {
		return nil, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", charset, err)
	}
	if name, _ := htmlindex.Name(enc); name == "utf-8" {
		return nil, nil
	}
	return enc, nil
}

// ReadFrom copies r into dst as chunks of the given producer until EOF or ctx is done.
// Chunks never end inside a UTF-8 sequence. A non-nil enc converts the input
// to UTF-8 first.
func ReadFrom(ctx context.Context, r io.Reader, producer string, contentType contracts.ContentType, enc encoding.Encoding, dst ChunkWriter) error {
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}

	buf := make([]byte, readBufferSize)
	var carry []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			cut := completeUTF8(data)
			if cut > 0 {
				dst.Write(contracts.Chunk{Producer: producer, Text: string(data[:cut]), Type: contentType})
			}
			carry = append([]byte(nil), data[cut:]...)
		}
		if err != nil {
			if len(carry) > 0 {
				dst.Write(contracts.Chunk{Producer: producer, Text: string(carry), Type: contentType})
			}
			if isEndOfOutput(err) {
				return nil
			}
			return fmt.Errorf("read %s: %w", producer, err)
		}
	}
}

// completeUTF8 returns the length of the longest prefix of p that does not end
// inside a multi-byte sequence.
func completeUTF8(p []byte) int {
	for i := len(p) - 1; i >= 0 && i >= len(p)-utf8.UTFMax; i-- {
		if utf8.RuneStart(p[i]) {
			if utf8.FullRune(p[i:]) {
				return len(p)
			}
			return i
		}
	}
	return len(p)
}

// isEndOfOutput reports errors that mean the writing side is gone. A pty
// returns EIO once the child has exited.
func isEndOfOutput(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, syscall.EIO)
}
