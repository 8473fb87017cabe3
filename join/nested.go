package join

import (
	"log/slog"

	"github.com/Olex1313/mhs-db-join/row"
)

// NestedLoop materializes both inputs and compares every pair. It is the
// reference the other algorithms must agree with.
//
// Output order: for each left row in input order its matches in right order,
// or its padded row; then every unmatched right row in right order.
type NestedLoop struct {
	log *slog.Logger
}

func NewNestedLoop(log *slog.Logger) *NestedLoop {
	if log == nil {
		log = slog.Default()
	}
	return &NestedLoop{log: log}
}

func (self *NestedLoop) Name() string { return AlgoNested.String() }

// loadTable reads a whole side and checks every row is wide enough to carry
// the join key.
func loadTable(
	spec *Spec,
	side Side,
) ([]row.Row, error) {
	src := spec.Source(side)
	pred := spec.Predicate()
	rd := row.NewReader(src.Input, spec.Codec)
	out := []row.Row{}
	for {
		r, err := rd.ReadRow()
		if err != nil {
			if isEOF(err) {
				return out, nil
			}
			return nil, unavailable(err, src)
		}
		if _, err := pred.Key(side, r, rd.Line()); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
}

func (self *NestedLoop) Execute(spec *Spec, out Sink) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	left, err := loadTable(spec, SideLeft)
	if err != nil {
		return err
	}
	right, err := loadTable(spec, SideRight)
	if err != nil {
		return err
	}
	self.log.Debug("nested loop tables loaded",
		"left_rows", len(left),
		"right_rows", len(right),
	)

	pred := spec.Predicate()
	for _, l := range left {
		matched := false
		for _, r := range right {
			eq, err := pred.Equals(l, r)
			if err != nil {
				return err
			}
			if eq {
				matched = true
				if err := out.Emit(l, r); err != nil {
					return err
				}
			}
		}
		if matched || !spec.Kind.KeepsUnmatched(SideLeft) {
			continue
		}
		if len(right) == 0 {
			return degenerate(SideRight)
		}
		if err := out.Emit(l, row.Padding(len(right[0]))); err != nil {
			return err
		}
	}

	if !spec.Kind.KeepsUnmatched(SideRight) {
		return nil
	}
	for _, r := range right {
		matched := false
		for _, l := range left {
			eq, err := pred.Equals(l, r)
			if err != nil {
				return err
			}
			if eq {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if len(left) == 0 {
			return degenerate(SideLeft)
		}
		if err := out.Emit(row.Padding(len(left[0])), r); err != nil {
			return err
		}
	}
	return nil
}
