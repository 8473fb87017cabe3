package row

import (
	"strings"

	"github.com/cockroachdb/errors"
)

const DefaultSeparator = ","

// Row is one decoded line of a delimited file. Every field is an opaque
// string, nothing is ever typed or trimmed.
type Row []string

// Padding returns a row of n empty fields, used in place of the missing side
// of an unmatched row.
func Padding(n int) Row {
	return make(Row, n)
}

// Codec turns lines into rows and pairs of rows into output lines.
type Codec struct {
	Separator string
}

func NewCodec(sep string) (Codec, error) {
	if sep == "" {
		return Codec{}, errors.New("row: separator must not be empty")
	}
	if strings.ContainsAny(sep, "\r\n") {
		return Codec{}, errors.Newf("row: separator %q must not contain a line break", sep)
	}
	return Codec{Separator: sep}, nil
}

// Decode splits a line (without its newline) on the separator. A line that
// is empty or ends with the separator carries a trailing empty field, so
// "a,b," has three fields and "" has one. Line endings are the Reader's job.
func (self Codec) Decode(line string) Row {
	return Row(strings.Split(line, self.Separator))
}

// Encode writes all left fields then all right fields, separated, without a
// trailing separator and terminated by a newline.
func (self Codec) Encode(left, right Row) string {
	buf := strings.Builder{}
	for i, f := range left {
		if i > 0 {
			buf.WriteString(self.Separator)
		}
		buf.WriteString(f)
	}
	for i, f := range right {
		if i > 0 || len(left) > 0 {
			buf.WriteString(self.Separator)
		}
		buf.WriteString(f)
	}
	buf.WriteByte('\n')
	return buf.String()
}

// EncodeRow is Encode for a single row. Decode(EncodeRow(r)) gives r back
// for any row produced by Decode.
func (self Codec) EncodeRow(r Row) string {
	return self.Encode(r, nil)
}
