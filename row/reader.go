package row

import (
	"bufio"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

// Mark is the position of a row inside a stream. Seeking to a mark makes the
// next ReadRow return that row again.
type Mark struct {
	Offset int64 // byte offset of the first byte of the row
	Line   int   // 1-based line number of the row
}

// Reader reads rows line by line while keeping track of byte offsets, which
// is what lets the merge join rewind a sorted stream to a group mark.
type Reader struct {
	src    io.Reader
	buf    *bufio.Reader
	codec  Codec
	offset int64 // offset of the next unread byte
	start  int64 // offset of the last returned row
	line   int   // line number of the last returned row
	crlf   bool  // strip one trailing \r per line
}

// NewReader reads an input file. Lines may end in "\r\n".
func NewReader(r io.Reader, codec Codec) *Reader {
	return &Reader{
		src:   r,
		buf:   bufio.NewReader(r),
		codec: codec,
		crlf:  true,
	}
}

// NewRunReader reads rows written back by a Writer. Every byte before the
// newline belongs to the row, so a field ending in \r survives the round
// trip.
func NewRunReader(r io.Reader, codec Codec) *Reader {
	rd := NewReader(r, codec)
	rd.crlf = false
	return rd
}

// ReadRow returns the next row or io.EOF. A last line without a newline is
// still a row; a file ending in a newline has no extra empty row.
func (self *Reader) ReadRow() (Row, error) {
	data, err := self.buf.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(data) == 0 {
		return nil, io.EOF
	}
	self.start = self.offset
	self.offset += int64(len(data))
	self.line++
	data = strings.TrimSuffix(data, "\n")
	if self.crlf {
		data = strings.TrimSuffix(data, "\r")
	}
	return self.codec.Decode(data), nil
}

// Line is the line number of the last row returned by ReadRow.
func (self *Reader) Line() int { return self.line }

// Mark is the position of the last row returned by ReadRow.
func (self *Reader) Mark() Mark {
	return Mark{
		Offset: self.start,
		Line:   self.line,
	}
}

// Seek repositions the reader so that the next ReadRow returns the row at m.
// The underlying reader must be an io.Seeker.
func (self *Reader) Seek(m Mark) error {
	s, ok := self.src.(io.Seeker)
	if !ok {
		return errors.AssertionFailedf("row: %T does not support seeking", self.src)
	}
	if _, err := s.Seek(m.Offset, io.SeekStart); err != nil {
		return errors.Wrapf(err, "row: seek to offset %d", m.Offset)
	}
	self.buf.Reset(self.src)
	self.offset = m.Offset
	self.start = m.Offset
	self.line = m.Line - 1
	return nil
}

// ReadAll materializes every row of r.
func ReadAll(r io.Reader, codec Codec) ([]Row, error) {
	rd := NewReader(r, codec)
	out := []Row{}
	for {
		x, err := rd.ReadRow()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
}
