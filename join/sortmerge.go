package join

import (
	"log/slog"

	"github.com/Olex1313/mhs-db-join/extsort"
	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// SortMergeStats makes the rewind tradeoff observable: a key with a rows on
// the left and b rows on the right is answered with a-1 rewinds, each one
// re-reading the b right rows of the group, and no group is ever buffered.
type SortMergeStats struct {
	LeftRows      int
	RightRows     int
	LeftChunks    int
	RightChunks   int
	RightRowsRead int
	Rewinds       int
}

// SortMerge sorts both inputs externally and merges them. It is the only
// executor that never holds a whole input in memory.
//
// Output order follows the key order: within one key, each left row in input
// order is paired with every right row in input order; unmatched rows appear
// at their key's position.
type SortMerge struct {
	fs        afero.Fs
	tempDir   string
	chunkRows int
	log       *slog.Logger

	Stats SortMergeStats
}

func NewSortMerge(
	fs afero.Fs,
	tempDir string,
	chunkRows int,
	log *slog.Logger,
) *SortMerge {
	if log == nil {
		log = slog.Default()
	}
	if chunkRows <= 0 {
		chunkRows = extsort.DefaultChunkRows
	}
	return &SortMerge{
		fs:        fs,
		tempDir:   tempDir,
		chunkRows: chunkRows,
		log:       log,
	}
}

func (self *SortMerge) Name() string { return AlgoSortMerge.String() }

// sortedSide is one side after the external sort, reopened for merging.
type sortedSide struct {
	res  *extsort.Result
	file afero.File
	src  Source
}

func (self *SortMerge) sortSide(
	spec *Spec,
	side Side,
) (*sortedSide, error) {
	src := spec.Source(side)
	pred := spec.Predicate()
	res, err := extsort.Sort(self.fs, src.Input, extsort.Options{
		Codec:     spec.Codec,
		ChunkRows: self.chunkRows,
		TempDir:   self.tempDir,
		Log:       self.log,
		Key: func(r row.Row, line int) (string, error) {
			return pred.Key(side, r, line)
		},
	})
	if err != nil {
		if errors.Is(err, ErrMalformedRow) {
			return nil, err
		}
		return nil, unavailable(err, src)
	}
	f, err := self.fs.Open(res.Path)
	if err != nil {
		_ = self.fs.Remove(res.Path)
		return nil, unavailable(err, src)
	}
	return &sortedSide{
		res:  res,
		file: f,
		src: Source{
			Name:  src.Name + " (sorted)",
			Field: src.Field,
			Size:  res.Bytes,
			Input: f,
		},
	}, nil
}

func (self *SortMerge) release(s *sortedSide) {
	if s == nil {
		return
	}
	_ = s.file.Close()
	if err := self.fs.Remove(s.res.Path); err != nil {
		self.log.Warn("cannot remove sorted run", "path", s.res.Path, "error", err)
	}
}

func (self *SortMerge) Execute(spec *Spec, out Sink) error {
	self.Stats = SortMergeStats{}
	if err := spec.Validate(); err != nil {
		return err
	}

	left, err := self.sortSide(spec, SideLeft)
	if err != nil {
		return err
	}
	defer self.release(left)
	right, err := self.sortSide(spec, SideRight)
	if err != nil {
		return err
	}
	defer self.release(right)

	self.Stats.LeftRows = left.res.Rows
	self.Stats.RightRows = right.res.Rows
	self.Stats.LeftChunks = left.res.Chunks
	self.Stats.RightChunks = right.res.Chunks

	m := &merger{
		kind:  spec.Kind,
		out:   out,
		left:  newCursor(SideLeft, &left.src, spec.Predicate(), spec.Codec),
		right: newCursor(SideRight, &right.src, spec.Predicate(), spec.Codec),
		width: [2]int{left.res.Width, right.res.Width},
	}
	err = m.run()
	self.Stats.RightRowsRead = m.right.reads
	self.Stats.Rewinds = m.rewinds
	self.log.Debug("merge join done",
		"left_rows", self.Stats.LeftRows,
		"right_rows", self.Stats.RightRows,
		"right_rows_read", self.Stats.RightRowsRead,
		"rewinds", self.Stats.Rewinds,
	)
	return err
}

type merger struct {
	kind    Kind
	out     Sink
	left    *cursor
	right   *cursor
	width   [2]int // indexed by Side, 0 means the side is empty
	rewinds int
}

// pad emits the current row of side s against an empty row of the other
// side, if the join kind keeps unmatched rows of s.
func (self *merger) pad(s Side, r row.Row) error {
	if !self.kind.KeepsUnmatched(s) {
		return nil
	}
	other := s.Other()
	if self.width[other] == 0 {
		return degenerate(other)
	}
	if s == SideLeft {
		return self.out.Emit(r, row.Padding(self.width[other]))
	}
	return self.out.Emit(row.Padding(self.width[other]), r)
}

func (self *merger) run() error {
	l, r := self.left, self.right
	if err := l.advance(); err != nil {
		return err
	}
	if err := r.advance(); err != nil {
		return err
	}

	for !l.eof || !r.eof {
		switch {
		case l.eof || (!r.eof && l.key > r.key):
			if err := self.pad(SideRight, r.cur); err != nil {
				return err
			}
			if err := r.advance(); err != nil {
				return err
			}
		case r.eof || l.key < r.key:
			if err := self.pad(SideLeft, l.cur); err != nil {
				return err
			}
			if err := l.advance(); err != nil {
				return err
			}
		default:
			if err := self.group(); err != nil {
				return err
			}
		}
	}
	return nil
}

// group joins a run of equal keys. The right cursor is rewound to the group
// mark for every left row after the first, so the right group is read once
// per left row instead of being buffered. On return both cursors are past
// the key.
func (self *merger) group() error {
	l, r := self.left, self.right
	key := l.key
	mark := r.mark()
	first := true

	for !l.eof && l.key == key {
		if !first {
			if err := r.rewind(mark); err != nil {
				return err
			}
			self.rewinds++
		}
		first = false

		for !r.eof && r.key == key {
			if err := self.out.Emit(l.cur, r.cur); err != nil {
				return err
			}
			if err := r.advance(); err != nil {
				return err
			}
		}
		if err := l.advance(); err != nil {
			return err
		}
	}
	return nil
}
