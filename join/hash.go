package join

import (
	"log/slog"

	"github.com/Olex1313/mhs-db-join/row"
)

// bucket holds every build row sharing one key. matched is per bucket: a
// probe hit on the key matches all of its rows at once.
type bucket struct {
	rows    []row.Row
	matched bool
}

type hashIndex struct {
	buckets map[string]*bucket
	order   []*bucket // first-seen key order, makes the sweep deterministic
	width   int       // column count of the first build row, -1 if empty
	rows    int
}

// Hash indexes the smaller input (by byte size, ties to the left) and streams
// the other one against it, so memory is bounded by the build side.
//
// Output order: probe rows in input order, each followed by its bucket in
// build order or by its padded row; then unmatched buckets in first-seen key
// order.
type Hash struct {
	log *slog.Logger
}

func NewHash(log *slog.Logger) *Hash {
	if log == nil {
		log = slog.Default()
	}
	return &Hash{log: log}
}

func (self *Hash) Name() string { return AlgoHash.String() }

// BuildSide is the side the hash join will index for spec.
func BuildSide(spec *Spec) Side {
	if spec.Left.Size <= spec.Right.Size {
		return SideLeft
	}
	return SideRight
}

func (self *Hash) build(
	spec *Spec,
	side Side,
) (*hashIndex, error) {
	src := spec.Source(side)
	pred := spec.Predicate()
	idx := &hashIndex{
		buckets: make(map[string]*bucket),
		width:   -1,
	}
	rd := row.NewReader(src.Input, spec.Codec)
	for {
		r, err := rd.ReadRow()
		if err != nil {
			if isEOF(err) {
				return idx, nil
			}
			return nil, unavailable(err, src)
		}
		key, err := pred.Key(side, r, rd.Line())
		if err != nil {
			return nil, err
		}
		if idx.width < 0 {
			idx.width = len(r)
		}
		b, ok := idx.buckets[key]
		if !ok {
			b = &bucket{}
			idx.buckets[key] = b
			idx.order = append(idx.order, b)
		}
		b.rows = append(b.rows, r)
		idx.rows++
	}
}

// emitPair writes a pair given as (build row, probe row), putting each one on
// its own side.
func emitPair(
	out Sink,
	buildSide Side,
	build row.Row,
	probe row.Row,
) error {
	if buildSide == SideLeft {
		return out.Emit(build, probe)
	}
	return out.Emit(probe, build)
}

func (self *Hash) Execute(spec *Spec, out Sink) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	buildSide := BuildSide(spec)
	probeSide := buildSide.Other()

	idx, err := self.build(spec, buildSide)
	if err != nil {
		return err
	}
	self.log.Debug("hash index built",
		"build_side", buildSide.String(),
		"rows", idx.rows,
		"keys", len(idx.buckets),
	)

	probe := spec.Source(probeSide)
	pred := spec.Predicate()
	keepProbe := spec.Kind.KeepsUnmatched(probeSide)
	probeWidth := -1
	probed := 0

	rd := row.NewReader(probe.Input, spec.Codec)
	for {
		r, err := rd.ReadRow()
		if err != nil {
			if isEOF(err) {
				break
			}
			return unavailable(err, probe)
		}
		probed++
		if probeWidth < 0 {
			probeWidth = len(r)
		}
		key, err := pred.Key(probeSide, r, rd.Line())
		if err != nil {
			return err
		}

		if b, ok := idx.buckets[key]; ok {
			b.matched = true
			for _, m := range b.rows {
				if err := emitPair(out, buildSide, m, r); err != nil {
					return err
				}
			}
			continue
		}

		if !keepProbe {
			continue
		}
		if idx.width < 0 {
			return degenerate(buildSide)
		}
		if err := emitPair(out, buildSide, row.Padding(idx.width), r); err != nil {
			return err
		}
	}
	self.log.Debug("hash probe done", "probe_side", probeSide.String(), "rows", probed)

	if !spec.Kind.KeepsUnmatched(buildSide) {
		return nil
	}
	for _, b := range idx.order {
		if b.matched {
			continue
		}
		if probeWidth < 0 {
			return degenerate(probeSide)
		}
		for _, m := range b.rows {
			if err := emitPair(out, buildSide, m, row.Padding(probeWidth)); err != nil {
				return err
			}
		}
	}
	return nil
}
