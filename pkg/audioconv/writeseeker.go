package audioconv

import (
	"errors"
	"io"
)

// memWriteSeeker is an in-memory io.WriteSeeker for the wav encoder,
// which rewinds to patch the RIFF header after writing samples.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		if need > cap(m.buf) {
			grown := make([]byte, len(m.buf), need*2)
			copy(grown, m.buf)
			m.buf = grown
		}
		m.buf = m.buf[:need]
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("audioconv: invalid seek whence")
	}
	if abs < 0 {
		return 0, errors.New("audioconv: negative seek position")
	}
	m.pos = int(abs)
	return abs, nil
}
