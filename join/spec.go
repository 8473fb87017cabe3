package join

import (
	"io"

	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
)

// Source is one input of a join: a row stream, the field to join on and the
// byte size the driver measured for it.
type Source struct {
	Name  string
	Field int // 0-based
	Size  int64
	Input io.Reader
}

// Spec fully describes one join call. It is not modified by executors.
type Spec struct {
	Left  Source
	Right Source
	Kind  Kind
	Codec row.Codec
}

func (self *Spec) Predicate() Predicate {
	return Predicate{
		LeftField:  self.Left.Field,
		RightField: self.Right.Field,
	}
}

func (self *Spec) Source(s Side) *Source {
	if s == SideLeft {
		return &self.Left
	}
	return &self.Right
}

func (self *Spec) Validate() error {
	if self.Left.Field < 0 || self.Right.Field < 0 {
		return errors.Newf(
			"join fields must be positive, got left=%d right=%d",
			self.Left.Field+1,
			self.Right.Field+1,
		)
	}
	if self.Left.Input == nil || self.Right.Input == nil {
		return errors.Mark(errors.New("join input is missing"), ErrInputUnavailable)
	}
	if self.Codec.Separator == "" {
		return errors.New("join codec has no separator")
	}
	return nil
}

// Sink receives every output row as a (left, right) pair. Padded sides are
// passed as row.Padding of the other table's width.
type Sink interface {
	Emit(left, right row.Row) error
}

// Executor runs one join algorithm to completion. An executor owns all of
// its transient state (index, chunk files, cursors) for the duration of
// Execute and releases it before returning.
type Executor interface {
	Name() string
	Execute(spec *Spec, out Sink) error
}

// Collector is a Sink keeping every row in memory.
type Collector struct {
	Codec row.Codec
	Rows  []string
}

func (self *Collector) Emit(left, right row.Row) error {
	self.Rows = append(self.Rows, self.Codec.Encode(left, right))
	return nil
}
