package plan

import (
	"fmt"
	"log/slog"

	"github.com/Olex1313/mhs-db-join/extsort"
	"github.com/Olex1313/mhs-db-join/join"
	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

const (
	DefMemoryBudget    int64 = 4 << 30
	DefNestedLoopLimit int64 = 1 << 20
)

// Planner configuration. Used to customize how the algorithm is picked and
// how the executors run.
type Config struct {
	Codec           row.Codec
	MemoryBudget    int64 // bytes of input the process may hold at once
	NestedLoopLimit int64 // largest combined input handed to the nested loop
	ChunkRows       int   // rows per external sort chunk
	TempDir         string
	Fs              afero.Fs
	Log             *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Codec:           row.Codec{Separator: row.DefaultSeparator},
		MemoryBudget:    DefMemoryBudget,
		NestedLoopLimit: DefNestedLoopLimit,
		ChunkRows:       extsort.DefaultChunkRows,
		Fs:              afero.NewOsFs(),
		Log:             slog.Default(),
	}
}

// Args is the file-level description of a join as given on the command
// line. Fields are 0-based.
type Args struct {
	LeftPath   string
	LeftField  int
	RightPath  string
	RightField int
	Kind       join.Kind
	Algorithm  join.Algorithm // join.AlgoAuto if not forced
}

// FileMetadata is what the selector knows about an input.
type FileMetadata struct {
	Path  string
	Field int
	Size  int64
}

type Plan struct {
	Config Config
	Args   Args

	Left      FileMetadata
	Right     FileMetadata
	Algorithm join.Algorithm // never join.AlgoAuto once planned
	Forced    bool           // algorithm came from the caller
	Reason    string         // why the algorithm was chosen
}

func (self *Plan) err(stage string, cause error) error {
	return errors.Wrapf(cause, "stage(%s)", stage)
}

func (self *Plan) Kind() join.Kind { return self.Args.Kind }

// BuildSide is the side a hash join would index.
func (self *Plan) BuildSide() join.Side {
	return join.BuildSide(&join.Spec{
		Left:  join.Source{Size: self.Left.Size},
		Right: join.Source{Size: self.Right.Size},
	})
}

func (self *Plan) metadata(
	side join.Side,
	path string,
	field int,
) (FileMetadata, error) {
	if field < 0 {
		return FileMetadata{}, self.err(
			"metadata",
			errors.Newf("%s field must be positive, got %d", side, field+1),
		)
	}
	st, err := self.Config.Fs.Stat(path)
	if err != nil {
		return FileMetadata{}, self.err(
			"metadata",
			errors.Mark(errors.Wrapf(err, "%s input", side), join.ErrInputUnavailable),
		)
	}
	if st.IsDir() {
		return FileMetadata{}, self.err(
			"metadata",
			errors.Mark(errors.Newf("%s input %s is a directory", side, path), join.ErrInputUnavailable),
		)
	}
	return FileMetadata{
		Path:  path,
		Field: field,
		Size:  st.Size(),
	}, nil
}

// PlanJoin measures both inputs and settles on the algorithm, either the
// forced one or the one SelectAlgorithm picks. Nothing is read yet.
func PlanJoin(args Args, cfg Config) (*Plan, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.Codec.Separator == "" {
		cfg.Codec.Separator = row.DefaultSeparator
	}

	p := &Plan{
		Config: cfg,
		Args:   args,
	}

	var err error
	if p.Left, err = p.metadata(join.SideLeft, args.LeftPath, args.LeftField); err != nil {
		return nil, err
	}
	if p.Right, err = p.metadata(join.SideRight, args.RightPath, args.RightField); err != nil {
		return nil, err
	}

	switch args.Algorithm {
	case join.AlgoAuto:
		p.Algorithm, p.Reason = selectAlgorithm(p.Left, p.Right, cfg)
	case join.AlgoNested, join.AlgoHash, join.AlgoSortMerge:
		p.Algorithm = args.Algorithm
		p.Forced = true
		p.Reason = "forced by caller"
	default:
		return nil, p.err(
			"select",
			errors.Mark(
				errors.Newf("algorithm %d is not implemented", int(args.Algorithm)),
				join.ErrUnsupportedAlgorithm,
			),
		)
	}

	cfg.Log.Debug("join planned",
		"kind", args.Kind,
		"algorithm", p.Algorithm,
		"forced", p.Forced,
		"reason", p.Reason,
	)
	return p, nil
}

// SelectAlgorithm picks the executor for two inputs of the given sizes:
// the nested loop for inputs small enough that its quadratic cost does not
// matter, the hash join while the smaller side fits comfortably in the
// memory budget, and the external sort-merge join otherwise.
func SelectAlgorithm(
	left FileMetadata,
	right FileMetadata,
	cfg Config,
) join.Algorithm {
	a, _ := selectAlgorithm(left, right, cfg)
	return a
}

func selectAlgorithm(
	left FileMetadata,
	right FileMetadata,
	cfg Config,
) (join.Algorithm, string) {
	total := left.Size + right.Size
	smaller := left.Size
	if right.Size < smaller {
		smaller = right.Size
	}

	if total <= cfg.NestedLoopLimit && total <= cfg.MemoryBudget {
		return join.AlgoNested, fmt.Sprintf(
			"inputs total %s, within the nested loop limit of %s",
			formatSize(total),
			formatSize(cfg.NestedLoopLimit),
		)
	}
	// half the budget stays free for the map and row headers
	if smaller <= cfg.MemoryBudget/2 {
		return join.AlgoHash, fmt.Sprintf(
			"smaller input is %s, fits in half of the %s memory budget",
			formatSize(smaller),
			formatSize(cfg.MemoryBudget),
		)
	}
	return join.AlgoSortMerge, fmt.Sprintf(
		"smaller input is %s, more than half of the %s memory budget",
		formatSize(smaller),
		formatSize(cfg.MemoryBudget),
	)
}

// Executor constructs the single executor the plan settled on.
func (self *Plan) Executor() (join.Executor, error) {
	switch self.Algorithm {
	case join.AlgoNested:
		return join.NewNestedLoop(self.Config.Log), nil
	case join.AlgoHash:
		return join.NewHash(self.Config.Log), nil
	case join.AlgoSortMerge:
		return join.NewSortMerge(
			self.Config.Fs,
			self.Config.TempDir,
			self.Config.ChunkRows,
			self.Config.Log,
		), nil
	default:
		return nil, self.err(
			"execute",
			errors.Mark(
				errors.Newf("no executor for algorithm %s", self.Algorithm),
				join.ErrUnsupportedAlgorithm,
			),
		)
	}
}
