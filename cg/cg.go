package cg

import (
	"fmt"
	"strings"

	"github.com/Olex1313/mhs-db-join/plan"
	"github.com/cockroachdb/errors"
)

type Config struct {
	// PathsFromArgs makes the program read its inputs from ARGV[1] and
	// ARGV[2] instead of the paths baked into it.
	PathsFromArgs bool
}

func Generate(x *plan.Plan, config *Config) (string, error) {
	if config == nil {
		config = &Config{}
	}
	g := &queryCodeGen{
		query:  x,
		config: config,
	}
	return g.Gen()
}

// codegen from plan to *awk* code. Only the nested loop is expressed in awk,
// whatever algorithm the plan picked; the output multiset is the same.

type queryCodeGen struct {
	query  *plan.Plan
	config *Config
}

func (self *queryCodeGen) err(stage string, f string, args ...interface{}) error {
	return errors.Newf("codegen(%s): %s", stage, fmt.Sprintf(f, args...))
}

// quote renders s as an awk string literal.
func quote(s string) string {
	buf := &strings.Builder{}
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			buf.WriteString(`\\`)
		case '"':
			buf.WriteString(`\"`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}

func (self *queryCodeGen) path(md *plan.FileMetadata, argv int) string {
	if self.config.PathsFromArgs {
		return fmt.Sprintf("ARGV[%d]", argv)
	}
	return quote(md.Path)
}

func (self *queryCodeGen) genBegin() string {
	p := self.query
	lines := []string{
		fmt.Sprintf("  SEP = %s;", quote(p.Config.Codec.Separator)),
		fmt.Sprintf(
			"  lsize = load(%s, \"left\", %d, left, lkey, lwidth);",
			self.path(&p.Left, 1),
			p.Left.Field+1,
		),
		fmt.Sprintf(
			"  rsize = load(%s, \"right\", %d, right, rkey, rwidth);",
			self.path(&p.Right, 2),
			p.Right.Field+1,
		),
		"  join();",
		"  exit 0;",
	}
	return strings.Join(lines, "\n")
}

func (self *queryCodeGen) Gen() (string, error) {
	p := self.query
	if p == nil {
		return "", self.err("plan", "no plan")
	}
	if p.Config.Codec.Separator == "" {
		return "", self.err("plan", "empty separator")
	}
	if p.Left.Field < 0 || p.Right.Field < 0 {
		return "", self.err("plan", "join fields must be positive")
	}

	jg := &joinGen{cg: self}
	joinCode, err := jg.gen(p.Args.Kind)
	if err != nil {
		return "", err
	}

	// finally our skeleton will be done here
	return fmt.Sprintf(
		`# -----------------------------------------------------------------
# %s join of %s ($%d) and %s ($%d)
# -----------------------------------------------------------------
BEGIN {
%s
}

# -----------------------------------------------------------------
# join
# -----------------------------------------------------------------
%s
# -----------------------------------------------------------------
# builtins
# -----------------------------------------------------------------
%s`,
		p.Args.Kind,
		oneLine(p.Left.Path),
		p.Left.Field+1,
		oneLine(p.Right.Path),
		p.Right.Field+1,
		self.genBegin(),
		joinCode,
		builtinAWK,
	), nil
}

// oneLine keeps a path from breaking out of the header comment.
func oneLine(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}
