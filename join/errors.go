package join

import (
	"io"

	"github.com/cockroachdb/errors"
)

// Every failure of a join call carries exactly one of these marks. None of
// them is recoverable: output produced before the error is not valid.
var (
	ErrInputUnavailable     = errors.New("input unavailable")
	ErrMalformedRow         = errors.New("malformed row")
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
	ErrDegenerateInput      = errors.New("degenerate input")
)

func unavailable(err error, src *Source) error {
	return errors.Mark(
		errors.Wrapf(err, "reading %s", src.Name),
		ErrInputUnavailable,
	)
}

func malformed(side Side, width int, line int, field int) error {
	if line > 0 {
		return errors.Mark(
			errors.Newf(
				"%s row at line %d has %d field(s), join field %d is out of range",
				side, line, width, field+1,
			),
			ErrMalformedRow,
		)
	}
	return errors.Mark(
		errors.Newf(
			"%s row has %d field(s), join field %d is out of range",
			side, width, field+1,
		),
		ErrMalformedRow,
	)
}

func degenerate(side Side) error {
	return errors.Mark(
		errors.Newf("%s input is empty, its column count is needed for padding", side),
		ErrDegenerateInput,
	)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
