// Package extsort sorts a row stream by a string key under a bounded memory
// budget. The input is cut into runs of at most ChunkRows rows, every run is
// sorted in memory and written to a temporary chunk file, and the chunks are
// then merged through a min-heap into one sorted file. Peak memory is one
// chunk during the split and one row per chunk during the merge.
//
// The sort is stable: rows with equal keys keep their input order.
package extsort

import (
	"io"
	"log/slog"
	"sort"

	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

const DefaultChunkRows = 100000

// KeyFunc extracts the sort key of a row. line is the 1-based input line.
type KeyFunc func(r row.Row, line int) (string, error)

type Options struct {
	Codec     row.Codec
	Key       KeyFunc
	ChunkRows int
	TempDir   string // "" means the OS temp dir
	Log       *slog.Logger
}

// Result describes the merged output. The caller owns Path and must remove
// it once done.
type Result struct {
	Path   string
	Rows   int
	Chunks int
	Width  int // column count of the first input row, 0 if the input is empty
	Bytes  int64
}

type keyedRow struct {
	key string
	row row.Row
}

type sorter struct {
	fs     afero.Fs
	opts   Options
	chunks []string
}

// Sort reads in to the end and writes its rows, ordered by key, to a new
// temporary file on fs. Every chunk file is removed before Sort returns,
// whether it succeeds or not.
func Sort(
	fs afero.Fs,
	in io.Reader,
	opts Options,
) (*Result, error) {
	if opts.Key == nil {
		return nil, errors.AssertionFailedf("extsort: no key function")
	}
	if opts.ChunkRows <= 0 {
		opts.ChunkRows = DefaultChunkRows
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	s := &sorter{
		fs:   fs,
		opts: opts,
	}
	defer s.cleanup()

	res, err := s.split(in)
	if err != nil {
		return nil, err
	}
	if err := s.merge(res); err != nil {
		return nil, err
	}
	opts.Log.Debug("external sort done",
		"rows", res.Rows,
		"chunks", res.Chunks,
		"size", humanize.IBytes(uint64(res.Bytes)),
	)
	return res, nil
}

// split cuts the input into sorted chunk files.
func (self *sorter) split(in io.Reader) (*Result, error) {
	res := &Result{}
	rd := row.NewReader(in, self.opts.Codec)
	buf := make([]keyedRow, 0, self.opts.ChunkRows)

	for {
		r, err := rd.ReadRow()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "extsort: read input")
		}
		key, err := self.opts.Key(r, rd.Line())
		if err != nil {
			return nil, err
		}
		if res.Rows == 0 {
			res.Width = len(r)
		}
		res.Rows++
		buf = append(buf, keyedRow{key: key, row: r})
		if len(buf) == self.opts.ChunkRows {
			if err := self.spill(buf); err != nil {
				return nil, err
			}
			buf = buf[:0]
		}
	}
	if len(buf) > 0 {
		if err := self.spill(buf); err != nil {
			return nil, err
		}
	}
	res.Chunks = len(self.chunks)
	return res, nil
}

func (self *sorter) spill(buf []keyedRow) (err error) {
	sort.SliceStable(buf, func(i, j int) bool {
		return buf[i].key < buf[j].key
	})

	f, err := afero.TempFile(self.fs, self.opts.TempDir, "extsort-chunk-*")
	if err != nil {
		return errors.Wrap(err, "extsort: create chunk")
	}
	self.chunks = append(self.chunks, f.Name())
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "extsort: close chunk")
		}
	}()

	w := row.NewWriter(f, self.opts.Codec)
	for _, kr := range buf {
		if err := w.WriteRow(kr.row); err != nil {
			return errors.Wrap(err, "extsort: write chunk")
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "extsort: write chunk")
	}
	self.opts.Log.Debug("chunk spilled", "chunk", len(self.chunks), "rows", len(buf))
	return nil
}

func (self *sorter) cleanup() {
	for _, name := range self.chunks {
		if err := self.fs.Remove(name); err != nil {
			self.opts.Log.Warn("cannot remove chunk", "path", name, "error", err)
		}
	}
	self.chunks = nil
}
