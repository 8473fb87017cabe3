package config

import (
	"math"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Bytes is a byte count written the human way, "512MiB", "4GiB" or a plain
// number. It works as a command line flag and as a YAML scalar.
type Bytes int64

var _ pflag.Value = (*Bytes)(nil)
var _ yaml.Unmarshaler = (*Bytes)(nil)
var _ yaml.Marshaler = Bytes(0)

func ParseBytes(s string) (Bytes, error) {
	if s == "" {
		return 0, errors.New("empty byte size")
	}
	if s[0] == '-' {
		return 0, errors.Newf("byte size %q is negative", s)
	}
	v, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, errors.Wrapf(err, "byte size %q", s)
	}
	if v > math.MaxInt64 {
		return 0, errors.Newf("byte size %q is too large", s)
	}
	return Bytes(v), nil
}

// String uses the MiB, GiB suffixes, the same unit the parser reads.
func (self Bytes) String() string {
	if self < 0 {
		// only reachable from code, the parser never yields one
		return strconv.FormatInt(int64(self), 10) + " B"
	}
	return humanize.IBytes(uint64(self))
}

func (self *Bytes) Set(s string) error {
	v, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*self = v
	return nil
}

func (self *Bytes) Type() string { return "bytes" }

func (self *Bytes) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return errors.Newf("line %d: byte size must be a scalar", n.Line)
	}
	v, err := ParseBytes(n.Value)
	if err != nil {
		return errors.Wrapf(err, "line %d", n.Line)
	}
	*self = v
	return nil
}

func (self Bytes) MarshalYAML() (interface{}, error) {
	return self.String(), nil
}
