package message

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"picoauth/internal/util/memzero"
)

const lengthPrefix = 4

// fieldWriter builds the hidden-field buffer that gets encrypted.
type fieldWriter struct {
	buf bytes.Buffer
}

func (w *fieldWriter) writeBytes(b []byte) {
	var l [lengthPrefix]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(b)))
	w.buf.Write(l[:])
	w.buf.Write(b)
}

func (w *fieldWriter) writeByte(b byte) { w.writeBytes([]byte{b}) }

func (w *fieldWriter) writeInt32(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.writeBytes(b[:])
}

// bytes hands the buffer to the caller, who must zero it.
func (w *fieldWriter) bytes() []byte { return w.buf.Bytes() }

// fieldReader parses a decrypted buffer. The first failure sticks; later
// reads return zero values and done reports the error.
type fieldReader struct {
	buf []byte
	err error
}

func (r *fieldReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrFieldDeserialization, fmt.Sprintf(format, args...))
	}
}

// readBytes returns a copy of the next field, or nil for an empty field.
func (r *fieldReader) readBytes(name string) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf) < lengthPrefix {
		r.fail("%s: truncated length", name)
		return nil
	}
	n := binary.BigEndian.Uint32(r.buf[:lengthPrefix])
	if uint64(n) > uint64(len(r.buf)-lengthPrefix) {
		r.fail("%s: length %d exceeds remaining %d bytes", name, n, len(r.buf)-lengthPrefix)
		return nil
	}
	field := r.buf[lengthPrefix : lengthPrefix+int(n)]
	r.buf = r.buf[lengthPrefix+int(n):]
	if n == 0 {
		return nil
	}
	return append([]byte(nil), field...)
}

func (r *fieldReader) readByte(name string) byte {
	b := r.readBytes(name)
	if r.err == nil && len(b) != 1 {
		r.fail("%s: want 1 byte, got %d", name, len(b))
		return 0
	}
	if r.err != nil {
		return 0
	}
	return b[0]
}

func (r *fieldReader) readInt32(name string) int32 {
	b := r.readBytes(name)
	if r.err == nil && len(b) != 4 {
		r.fail("%s: want 4 bytes, got %d", name, len(b))
	}
	if r.err != nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

// done reports the first error, or a trailing-data error.
func (r *fieldReader) done() error {
	if r.err == nil && len(r.buf) != 0 {
		r.fail("%d trailing bytes", len(r.buf))
	}
	return r.err
}

// parseFields runs parse over plaintext and zeroes plaintext afterwards.
func parseFields(plaintext []byte, parse func(r *fieldReader)) error {
	defer memzero.Zero(plaintext)
	r := &fieldReader{buf: plaintext}
	parse(r)
	return r.done()
}
