package join

import (
	"fmt"

	"github.com/Olex1313/mhs-db-join/row"
)

// Predicate is the equality of one field per side. Keys are compared as
// exact strings, never parsed.
type Predicate struct {
	LeftField  int
	RightField int
}

func (self Predicate) Field(s Side) int {
	if s == SideLeft {
		return self.LeftField
	}
	return self.RightField
}

// Key extracts the join key of a row of side s. line is only used for the
// error message and may be 0 when unknown.
func (self Predicate) Key(s Side, r row.Row, line int) (string, error) {
	field := self.Field(s)
	if field >= len(r) {
		return "", malformed(s, len(r), line, field)
	}
	return r[field], nil
}

func (self Predicate) Equals(left, right row.Row) (bool, error) {
	lk, err := self.Key(SideLeft, left, 0)
	if err != nil {
		return false, err
	}
	rk, err := self.Key(SideRight, right, 0)
	if err != nil {
		return false, err
	}
	return lk == rk, nil
}

func (self Predicate) String() string {
	return fmt.Sprintf("left.$%d == right.$%d", self.LeftField+1, self.RightField+1)
}
