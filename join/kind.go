package join

import (
	"strings"

	"github.com/cockroachdb/errors"
)

type Kind int

const (
	KindLeft Kind = iota
	KindRight
	KindInner
	KindOuter
)

var kindByName = map[string]Kind{
	"left":  KindLeft,
	"right": KindRight,
	"inner": KindInner,
	"outer": KindOuter,
}

func ParseKind(s string) (Kind, error) {
	if k, ok := kindByName[strings.ToLower(s)]; ok {
		return k, nil
	}
	return 0, errors.Newf("unknown join kind %q, options are: left, right, inner, outer", s)
}

func (self Kind) String() string {
	switch self {
	case KindLeft:
		return "left"
	case KindRight:
		return "right"
	case KindInner:
		return "inner"
	case KindOuter:
		return "outer"
	default:
		return "unknown"
	}
}

// KeepsUnmatched reports whether rows of side s without a counterpart are
// part of the result, padded on the other side.
func (self Kind) KeepsUnmatched(s Side) bool {
	switch self {
	case KindOuter:
		return true
	case KindLeft:
		return s == SideLeft
	case KindRight:
		return s == SideRight
	default:
		return false
	}
}

type Side int

const (
	SideLeft Side = iota
	SideRight
)

func (self Side) String() string {
	if self == SideLeft {
		return "left"
	}
	return "right"
}

func (self Side) Other() Side {
	if self == SideLeft {
		return SideRight
	}
	return SideLeft
}

// Algorithm names one of the executors. AlgoAuto leaves the choice to the
// selector.
type Algorithm int

const (
	AlgoAuto Algorithm = iota
	AlgoNested
	AlgoHash
	AlgoSortMerge
)

var algorithmByName = map[string]Algorithm{
	"nested":     AlgoNested,
	"hash":       AlgoHash,
	"sort-merge": AlgoSortMerge,
}

// ParseAlgorithm resolves a forced algorithm name. An empty name means the
// caller did not force one.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return AlgoAuto, nil
	}
	if a, ok := algorithmByName[strings.ToLower(s)]; ok {
		return a, nil
	}
	return AlgoAuto, errors.Mark(
		errors.Newf("algorithm %q is not implemented, options are: nested, hash, sort-merge", s),
		ErrUnsupportedAlgorithm,
	)
}

func (self Algorithm) String() string {
	switch self {
	case AlgoAuto:
		return "auto"
	case AlgoNested:
		return "nested"
	case AlgoHash:
		return "hash"
	case AlgoSortMerge:
		return "sort-merge"
	default:
		return "unknown"
	}
}
