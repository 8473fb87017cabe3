package plan

import (
	"io"

	"github.com/Olex1313/mhs-db-join/join"
	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

func (self *Plan) open(
	side join.Side,
	md FileMetadata,
) (afero.File, error) {
	f, err := self.Config.Fs.Open(md.Path)
	if err != nil {
		return nil, self.err(
			"open",
			errors.Mark(errors.Wrapf(err, "%s input", side), join.ErrInputUnavailable),
		)
	}
	return f, nil
}

// Spec turns the plan into the join description handed to an executor,
// reading from the given inputs.
func (self *Plan) Spec(left, right io.Reader) *join.Spec {
	return &join.Spec{
		Left: join.Source{
			Name:  self.Left.Path,
			Field: self.Left.Field,
			Size:  self.Left.Size,
			Input: left,
		},
		Right: join.Source{
			Name:  self.Right.Path,
			Field: self.Right.Field,
			Size:  self.Right.Size,
			Input: right,
		},
		Kind:  self.Args.Kind,
		Codec: self.Config.Codec,
	}
}

// Run executes the plan and writes the result rows to out. Exactly one
// executor runs; a failure is returned as is and never retried with
// another algorithm. Rows already written stay written.
func (self *Plan) Run(out io.Writer) error {
	exec, err := self.Executor()
	if err != nil {
		return err
	}

	lf, err := self.open(join.SideLeft, self.Left)
	if err != nil {
		return err
	}
	defer lf.Close()
	rf, err := self.open(join.SideRight, self.Right)
	if err != nil {
		return err
	}
	defer rf.Close()

	log := self.Config.Log
	log.Debug("join started",
		"algorithm", exec.Name(),
		"kind", self.Args.Kind,
		"left", self.Left.Path,
		"left_size", formatSize(self.Left.Size),
		"right", self.Right.Path,
		"right_size", formatSize(self.Right.Size),
	)

	w := row.NewWriter(out, self.Config.Codec)
	if err := exec.Execute(self.Spec(lf, rf), w); err != nil {
		// rows still buffered are dropped, the result is invalid
		return self.err("execute", err)
	}
	if err := w.Flush(); err != nil {
		return self.err("output", errors.Wrap(err, "flush result"))
	}

	log.Debug("join done",
		"algorithm", exec.Name(),
		"rows", w.Rows(),
		"bytes", formatSize(w.Bytes()),
	)
	return nil
}
