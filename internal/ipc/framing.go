package ipc

import "bytes"

// lineBuffer reassembles newline-delimited frames across reads. A partial
// line stays buffered until its newline arrives.
type lineBuffer struct {
	buf []byte
	max int
	// discarding is set while skipping the tail of an oversized line.
	discarding bool
}

func newLineBuffer(max int) *lineBuffer {
	return &lineBuffer{max: max}
}

// feed appends chunk and returns every complete, non-blank line. dropped
// counts lines thrown away for exceeding max.
func (b *lineBuffer) feed(chunk []byte) (lines [][]byte, dropped int) {
	b.buf = append(b.buf, chunk...)
	for {
		idx := bytes.IndexByte(b.buf, '\n')
		if idx < 0 {
			break
		}
		raw := b.buf[:idx]
		b.buf = b.buf[idx+1:]
		if b.discarding {
			b.discarding = false
			continue
		}
		if b.max > 0 && len(raw) > b.max {
			dropped++
			continue
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			continue
		}
		line := make([]byte, len(trimmed))
		copy(line, trimmed)
		lines = append(lines, line)
	}
	if b.max > 0 && len(b.buf) > b.max {
		b.buf = nil
		if !b.discarding {
			dropped++
		}
		b.discarding = true
	}
	if len(b.buf) == 0 {
		b.buf = nil
	} else {
		b.buf = append([]byte(nil), b.buf...)
	}
	return lines, dropped
}

// pending returns the number of buffered bytes without a newline yet.
func (b *lineBuffer) pending() int { return len(b.buf) }
