package join

import (
	"github.com/Olex1313/mhs-db-join/row"
)

// cursor walks one sorted stream of the merge join. It can be rewound to a
// previously marked row, which is how a duplicate-key group is re-scanned
// once per row of the other side.
type cursor struct {
	side  Side
	src   *Source
	pred  Predicate
	rd    *row.Reader
	cur   row.Row
	key   string
	eof   bool
	reads int // rows read, re-reads after a rewind included
}

func newCursor(
	side Side,
	src *Source,
	pred Predicate,
	codec row.Codec,
) *cursor {
	return &cursor{
		side: side,
		src:  src,
		pred: pred,
		rd:   row.NewRunReader(src.Input, codec),
	}
}

func (self *cursor) advance() error {
	r, err := self.rd.ReadRow()
	if err != nil {
		if isEOF(err) {
			self.eof = true
			self.cur = nil
			self.key = ""
			return nil
		}
		return unavailable(err, self.src)
	}
	key, err := self.pred.Key(self.side, r, self.rd.Line())
	if err != nil {
		return err
	}
	self.cur, self.key = r, key
	self.reads++
	return nil
}

// mark is the position of the current row.
func (self *cursor) mark() row.Mark {
	return self.rd.Mark()
}

// rewind repositions on the row at m and loads it as the current row.
func (self *cursor) rewind(m row.Mark) error {
	if err := self.rd.Seek(m); err != nil {
		return unavailable(err, self.src)
	}
	self.eof = false
	return self.advance()
}
