package extsort

import (
	"container/heap"
	"io"

	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// run is one open chunk during the merge, positioned on its head row.
type run struct {
	ord  int // chunk ordinal, breaks key ties so the merge stays stable
	file afero.File
	rd   *row.Reader
	head row.Row
	key  string
}

type runHeap []*run

func (h runHeap) Len() int { return len(h) }

func (h runHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].ord < h[j].ord
}

func (h runHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *runHeap) Push(x interface{}) { *h = append(*h, x.(*run)) }

func (h *runHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// next loads the following row of the run. It returns false at the end of
// the chunk.
func (self *run) next(key KeyFunc) (bool, error) {
	r, err := self.rd.ReadRow()
	if err == io.EOF {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "extsort: read chunk %s", self.file.Name())
	}
	k, err := key(r, self.rd.Line())
	if err != nil {
		return false, err
	}
	self.head, self.key = r, k
	return true, nil
}

// merge performs the k-way merge of every chunk into res.Path.
func (self *sorter) merge(res *Result) (err error) {
	out, err := afero.TempFile(self.fs, self.opts.TempDir, "extsort-sorted-*")
	if err != nil {
		return errors.Wrap(err, "extsort: create output")
	}
	res.Path = out.Name()
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, "extsort: close output")
		}
		if err != nil {
			_ = self.fs.Remove(res.Path)
			res.Path = ""
		}
	}()

	h := make(runHeap, 0, len(self.chunks))
	defer func() {
		for _, r := range h {
			_ = r.file.Close()
		}
	}()

	for ord, name := range self.chunks {
		f, err := self.fs.Open(name)
		if err != nil {
			return errors.Wrap(err, "extsort: open chunk")
		}
		r := &run{
			ord:  ord,
			file: f,
			rd:   row.NewRunReader(f, self.opts.Codec),
		}
		ok, err := r.next(self.opts.Key)
		if err != nil {
			_ = f.Close()
			return err
		}
		if !ok {
			_ = f.Close()
			continue
		}
		h = append(h, r)
	}
	heap.Init(&h)

	w := row.NewWriter(out, self.opts.Codec)
	for h.Len() > 0 {
		top := h[0]
		if err := w.WriteRow(top.head); err != nil {
			return errors.Wrap(err, "extsort: write output")
		}

		ok, err := top.next(self.opts.Key)
		if err != nil {
			return err
		}
		if ok {
			heap.Fix(&h, 0)
			continue
		}
		_ = top.file.Close()
		heap.Pop(&h)
	}
	if err := w.Flush(); err != nil {
		return errors.Wrap(err, "extsort: write output")
	}
	res.Bytes = w.Bytes()
	return nil
}
