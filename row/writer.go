package row

import (
	"bufio"
	"io"
)

// Writer buffers encoded rows onto an output stream. It is the sink every
// join executor emits into; Flush must be called once the join is done.
type Writer struct {
	w     *bufio.Writer
	codec Codec
	rows  int64
	bytes int64
}

func NewWriter(w io.Writer, codec Codec) *Writer {
	return &Writer{
		w:     bufio.NewWriter(w),
		codec: codec,
	}
}

// Emit writes the joined pair as one output line.
func (self *Writer) Emit(left, right Row) error {
	self.rows++
	n, err := self.w.WriteString(self.codec.Encode(left, right))
	self.bytes += int64(n)
	return err
}

// WriteRow writes a single row, used for sorted runs on disk.
func (self *Writer) WriteRow(r Row) error {
	self.rows++
	n, err := self.w.WriteString(self.codec.EncodeRow(r))
	self.bytes += int64(n)
	return err
}

func (self *Writer) Rows() int64 { return self.rows }

// Bytes is the number of encoded bytes handed to the buffer so far.
func (self *Writer) Bytes() int64 { return self.bytes }

func (self *Writer) Flush() error { return self.w.Flush() }
