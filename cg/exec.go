package cg

import (
	"io"
	"strings"

	gawki "github.com/benhoyt/goawk/interp"
	gawkp "github.com/benhoyt/goawk/parser"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// Execute runs an awk program in-process. files become ARGV[1..]. A
// non-zero exit status is returned as an error carrying what the program
// reported, which is also copied to errOut.
//
// goawk has no special "/dev/stderr", so the program's failure message is
// redirected to a temp file through ERRFILE and read back.
func Execute(
	code string,
	files []string,
	out io.Writer,
	errOut io.Writer,
) error {
	prog, err := gawkp.ParseProgram([]byte(code), nil)
	if err != nil {
		return errors.Wrap(err, "awk: parse")
	}
	interp, err := gawki.New(prog)
	if err != nil {
		return errors.Wrap(err, "awk: load")
	}

	fs := afero.NewOsFs()
	errFile, err := afero.TempFile(fs, "", "mhs-db-join-awk-*.err")
	if err != nil {
		return errors.Wrap(err, "awk: error file")
	}
	errPath := errFile.Name()
	_ = errFile.Close()
	defer func() { _ = fs.Remove(errPath) }()

	stderr := &strings.Builder{}
	status, err := interp.Execute(&gawki.Config{
		Output: out,
		Error:  stderr,
		Args:   files,
		Vars:   []string{"ERRFILE", errPath},
	})
	if err != nil {
		return errors.Wrap(err, "awk: run")
	}

	reported, err := afero.ReadFile(fs, errPath)
	if err != nil {
		return errors.Wrap(err, "awk: read error file")
	}
	stderr.Write(reported)
	if errOut != nil && stderr.Len() > 0 {
		_, _ = io.WriteString(errOut, stderr.String())
	}

	if status != 0 {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return errors.Newf("awk: exit status %d", status)
		}
		return errors.Newf("awk: exit status %d: %s", status, msg)
	}
	return nil
}
