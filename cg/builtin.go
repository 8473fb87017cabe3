package cg

// Helpers shared by every generated program. Only POSIX awk is used so the
// output of --emit-awk runs under goawk, gawk, mawk and busybox alike.
//
// Fields are cut with index()/substr() rather than split(): split() treats a
// separator longer than one character as a regexp and a single space as
// "any run of blanks", neither of which is what the row codec does.
const builtinAWK = `
function split_row(line, out,    n, pos, seplen) {
  n = 0;
  seplen = length(SEP);
  while ((pos = index(line, SEP)) > 0) {
    out[++n] = substr(line, 1, pos - 1) "";
    line = substr(line, pos + seplen);
  }
  out[++n] = line "";
  return n;
}

function padding(n,    out, i) {
  out = "";
  for (i = 0; i < n; i++) {
    out = out SEP;
  }
  return out;
}

# ERRFILE can be set from outside (-v ERRFILE=...) to collect the message.
function fail(msg) {
  if (ERRFILE == "") {
    ERRFILE = "/dev/stderr";
  }
  printf "%s\n", msg > ERRFILE;
  close(ERRFILE);
  exit 2;
}

function malformed(side, lineno, nf, field) {
  fail(sprintf("%s row at line %d has %d field(s), join field %d is out of range", side, lineno, nf, field));
}

function degenerate(side) {
  fail(side " input is empty, its column count is needed for padding");
}

# load reads path into rows, keys and widths and returns the row count.
function load(path, side, field, rows, keys, widths,    n, rc, line, f, nf) {
  n = 0;
  while ((rc = (getline line < path)) > 0) {
    n++;
    sub(/\r$/, "", line);
    nf = split_row(line, f);
    if (nf < field) {
      malformed(side, n, nf, field);
    }
    rows[n] = line "";
    keys[n] = f[field] "";
    widths[n] = nf;
  }
  if (rc < 0) {
    fail("reading " path ": cannot open");
  }
  close(path);
  return n;
}
`
