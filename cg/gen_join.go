package cg

import (
	"strings"
	"text/template"

	"github.com/Olex1313/mhs-db-join/join"
)

// ----------------------------------------------------------------------------
// Join body's code generation. Both inputs are loaded into arrays first and
// then joined with a nested loop, the same order the native nested loop
// executor produces:
//
// for (i = 1; i <= lsize; i++) {
//   for (j = 1; j <= rsize; j++) {
//     if (lkey[i] == rkey[j]) print left[i] SEP right[j];
//   }
//   left row unmatched -> left[i] padded, if the kind keeps left rows
// }
// right rows never matched -> padded right[j], if the kind keeps right rows

const joinTemplate = `
function join(    i, j, matched, rmatched) {
  for (i = 1; i <= lsize; i++) {
    matched = 0;
    for (j = 1; j <= rsize; j++) {
      if ((lkey[i] "") == (rkey[j] "")) {
        matched = 1;
        rmatched[j] = 1;
        printf "%s%s%s\n", left[i], SEP, right[j];
      }
    }
    {{- if .KeepLeft}}
    if (!matched) {
      if (rsize == 0) {
        degenerate("right");
      }
      printf "%s%s\n", left[i], padding(rwidth[1]);
    }
    {{- end}}
  }
  {{- if .KeepRight}}
  for (j = 1; j <= rsize; j++) {
    if (!(j in rmatched)) {
      if (lsize == 0) {
        degenerate("left");
      }
      printf "%s%s\n", padding(lwidth[1]), right[j];
    }
  }
  {{- end}}
}
`

type joinGen struct {
	cg *queryCodeGen
}

func newtemplate(
	xx string,
) (*template.Template, error) {
	return template.New("[template]").Parse(xx)
}

func (self *joinGen) gen(kind join.Kind) (string, error) {
	t, err := newtemplate(joinTemplate)
	if err != nil {
		return "", self.cg.err("join", "invalid template: %s", err)
	}
	out := &strings.Builder{}
	if err := t.Execute(out, map[string]interface{}{
		"KeepLeft":  kind.KeepsUnmatched(join.SideLeft),
		"KeepRight": kind.KeepsUnmatched(join.SideRight),
	}); err != nil {
		return "", self.cg.err("join", "%s", err)
	}
	return out.String(), nil
}
