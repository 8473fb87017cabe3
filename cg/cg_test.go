package cg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/Olex1313/mhs-db-join/join"
	"github.com/Olex1313/mhs-db-join/plan"
	"github.com/Olex1313/mhs-db-join/row"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const TEST_DIR = "./test"

// ---------------------------------------------------------------------------
// Cookbook driven verification of the generated awk programs. Each file under
// TEST_DIR is a small text document with tagged sections:
//
// ## a line comment
// @![name of section]
// @!attr1: val1
// @!attr2: val2
// @@@@@@@@@@@@@@@@@@ (start of the raw content, notes at least 3 @ should exist)
// @================= (end of the raw content, notes at least 3 = should exist)
//
// Sections understood:
//   table   @!name, content is the file body
//   join    @!left @!left_field @!right @!right_field @!kind, optional
//           @!separator, @!args (paths through ARGV) and @!awk: system
//   result  expected rows, @!order: none compares in order
//   error   expected message of a failing program
//   print   dump the generated program
//
// Every program that does not fail is also compared, row by row and in
// order, with the native nested loop executor on the same files.

type cookbook struct {
	filename string
	dir      string
	parsed   sectionList
	input    []string
	plan     *plan.Plan
	config   *Config
	code     string
	result   string
	runErr   error
	sysAwk   bool
}

type section struct {
	name         string
	attr         map[string]string
	content      string
	contentstart bool // used during parsing, not ideal
	contentbuf   []string
}

type sectionList []*section

func (self *section) addAttr(k, v string) {
	self.attr[k] = v
}

func (self *section) attrAt(k string) string {
	v, ok := self.attr[k]
	if ok {
		return v
	} else {
		return ""
	}
}

func (self *sectionList) get(n string) []*section {
	out := []*section{}
	for _, x := range *self {
		if x.name == n {
			out = append(out, x)
		}
	}
	return out
}

func (self *sectionList) getOne(n string) *section {
	x := self.get(n)
	if len(x) == 0 {
		return nil
	} else {
		return x[0]
	}
}

func (self *cookbook) charAt(
	x string,
	idx int,
) rune {
	if idx >= len(x) {
		return 0
	} else {
		r, _ := utf8.DecodeRuneInString(x[idx:])
		return r
	}
}

func (self *cookbook) idAt(
	x string,
	idx int,
) (string, int) {
	cursor := idx
	leading := true
	for cursor < len(x) {
		r, sz := utf8.DecodeRuneInString(x[cursor:])
		switch r {
		case ' ', '\r', '\b', '\n', '\t', '\v':
			if !leading {
				return x[idx:cursor], cursor
			}
			break
		default:
			if r == '_' || unicode.IsDigit(r) || unicode.IsLetter(r) {
				leading = false
				break
			} else {
				return x[idx:cursor], cursor
			}
		}
		cursor += sz
	}
	if leading {
		return "", -1
	} else {
		return x[idx:cursor], cursor
	}
}

func (self *cookbook) assignAt(
	x string,
	idx int,
) int {
	cursor := idx

	for cursor < len(x) {
		r, sz := utf8.DecodeRuneInString(x[cursor:])
		switch r {
		case ' ', '\r', '\b', '\n', '\t', '\v':
			break
		case '=', ':':
			return cursor + 1

		default:
			return -1
		}
		cursor += sz
	}
	return -1
}

func (self *cookbook) anyAt(
	x string,
	idx int,
) (string, int) {
	cursor := idx
	leading := true
	for cursor < len(x) {
		r, sz := utf8.DecodeRuneInString(x[cursor:])
		switch r {
		case ' ', '\r', '\b', '\n', '\t', '\v':
			if !leading {
				return x[idx:cursor], cursor
			}
			break
		default:
			leading = false
			break
		}
		cursor += sz
	}
	return x[idx:cursor], cursor
}

func (self *cookbook) parseLineMeta(
	l string,
	curSec *section,
) (bool, error) {
	switch self.charAt(l, 2) {
	case '[':
		if curSec.name != "" {
			return false, fmt.Errorf("section name already assigned")
		}
		pos := strings.Index(l, "]")
		if pos == -1 {
			return false, fmt.Errorf("section name should be closed by ]")
		}
		curSec.name = strings.TrimSpace(l[3:pos])
		return false, nil

	default:
		key, next := self.idAt(l, 2)
		if key == "" {
			return false, fmt.Errorf("expect an id for attribute")
		}
		next = self.assignAt(l, next)
		if next == -1 {
			return false, fmt.Errorf("expect an '=' for attribute assignment")
		}
		val, _ := self.anyAt(l, next)
		val = strings.TrimSpace(val)
		if val == "" {
			return false, fmt.Errorf("expect an value for attribute")
		}
		curSec.addAttr(key, val)
		return false, nil
	}
}

func (self *cookbook) parseLineContentStart(
	l string,
	curSec *section,
) (bool, error) {
	curSec.contentstart = true
	return false, nil
}

func (self *cookbook) parseLineContentEnd(
	l string,
	curSec *section,
) (bool, error) {
	curSec.contentstart = false
	curSec.content = strings.Join(curSec.contentbuf, "\n")
	return true, nil
}

func (self *cookbook) parseLine(
	l string,
	curSec *section,
) (bool, error) {
	l = strings.TrimSpace(l)

	switch self.charAt(l, 0) {
	default:
		if curSec.contentstart {
			curSec.contentbuf = append(curSec.contentbuf, l)
		}
		return false, nil
	case '@':
		nChar := self.charAt(l, 1)
		switch nChar {
		case '!':
			return self.parseLineMeta(l, curSec)
		case '@':
			// maybe content start
			return self.parseLineContentStart(l, curSec)
		case '=':
			return self.parseLineContentEnd(l, curSec)
		default:
			break
		}
	}
	return false, nil
}

func (self *cookbook) parse(
	data string,
) error {
	curSec := &section{
		attr: make(map[string]string),
	}

	for _, l := range strings.Split(data, "\n") {
		done, err := self.parseLine(l, curSec)
		if err != nil {
			return err
		}
		if done {
			self.parsed = append(self.parsed, curSec)
			curSec = &section{
				attr: make(map[string]string),
			}
		}
	}
	return nil
}

func (self *cookbook) parseFile() error {
	f, err := os.Open(self.filename)
	if err != nil {
		return fmt.Errorf("[parsing]: %s", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("[parsing]: %s", err)
	}
	if err := self.parse(string(data)); err != nil {
		return fmt.Errorf("[parsing]: %s", err)
	}
	return nil
}

func (self *cookbook) tablePath(name string) string {
	return filepath.Join(self.dir, name)
}

func (self *cookbook) prepareTable() error {
	for _, x := range self.parsed.get("table") {
		if name := x.attrAt("name"); name != "" {
			data := x.content
			if data != "" {
				data += "\n"
			}
			if err := os.WriteFile(
				self.tablePath(name),
				[]byte(data),
				0644,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

func (self *cookbook) attrInt(sec *section, k string, def int) (int, error) {
	v := sec.attrAt(k)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (self *cookbook) genAwk() error {
	yy := self.parsed.getOne("join")
	if yy == nil {
		return fmt.Errorf("[plan]: join is not found")
	}

	kind, err := join.ParseKind(yy.attrAt("kind"))
	if err != nil {
		return fmt.Errorf("[plan]: %s", err)
	}
	lf, err := self.attrInt(yy, "left_field", 1)
	if err != nil {
		return fmt.Errorf("[plan]: %s", err)
	}
	rf, err := self.attrInt(yy, "right_field", 1)
	if err != nil {
		return fmt.Errorf("[plan]: %s", err)
	}

	cfg := plan.DefaultConfig()
	cfg.Fs = afero.NewOsFs()
	if sep := yy.attrAt("separator"); sep != "" {
		if sep == "tab" {
			sep = "\t"
		}
		cfg.Codec = row.Codec{Separator: sep}
	}

	p, err := plan.PlanJoin(plan.Args{
		LeftPath:   self.tablePath(yy.attrAt("left")),
		LeftField:  lf - 1,
		RightPath:  self.tablePath(yy.attrAt("right")),
		RightField: rf - 1,
		Kind:       kind,
		Algorithm:  join.AlgoNested,
	}, cfg)
	if err != nil {
		return fmt.Errorf("[plan]: %s", err)
	}
	self.plan = p

	self.config = &Config{}
	if yy.attrAt("args") == "true" {
		self.config.PathsFromArgs = true
		self.input = []string{p.Left.Path, p.Right.Path}
	}
	self.sysAwk = yy.attrAt("awk") == "system"

	code, err := Generate(p, self.config)
	if err != nil {
		return fmt.Errorf("[plan]: %s", err)
	}
	self.code = code

	if p := self.parsed.getOne("print"); p != nil {
		print(self.code, "\n")
	}
	return nil
}

func (self *cookbook) runGoAwk() {
	buf := &strings.Builder{}
	self.runErr = Execute(self.code, self.input, buf, nil)
	self.result = buf.String()
}

func (self *cookbook) runSysAwk() error {
	awkPath, err := exec.LookPath("awk")
	if err != nil {
		return nil // no system awk, goawk result stands
	}
	awkFile := filepath.Join(self.dir, "join.awk")
	if err := os.WriteFile(awkFile, []byte(self.code), 0644); err != nil {
		return err
	}

	args := []string{
		"-f",
		awkFile,
	}
	args = append(args, self.input...)

	cmd := exec.Command(
		awkPath,
		args...,
	)
	stdout := &strings.Builder{}
	cmd.Stdout = stdout

	if err := cmd.Run(); err != nil {
		if self.runErr == nil {
			return fmt.Errorf("[awk]: system awk failed: %s", err)
		}
		return nil
	}
	if stdout.String() != self.result {
		return fmt.Errorf("[awk]: system awk {\n%s} and goawk {\n%s} differ",
			stdout.String(),
			self.result,
		)
	}
	return nil
}

func (self *cookbook) runNative() (string, error) {
	buf := &bytes.Buffer{}
	err := self.plan.Run(buf)
	return buf.String(), err
}

func (self *cookbook) run() error {
	if err := self.parseFile(); err != nil {
		return err
	}
	if err := self.prepareTable(); err != nil {
		return err
	}
	if err := self.genAwk(); err != nil {
		return err
	}
	self.runGoAwk()
	if self.sysAwk {
		if err := self.runSysAwk(); err != nil {
			return err
		}
	}
	return self.verify()
}

func toLines(x string) []string {
	out := []string{}
	for _, l := range strings.Split(x, "\n") {
		l = strings.TrimSpace(l)
		if len(l) == 0 {
			continue
		}
		out = append(out, l)
	}
	return out
}

func (self *cookbook) cmpLines(
	l []string,
	r []string,
	order bool,
) error {
	if order {
		l = append([]string{}, l...)
		r = append([]string{}, r...)
		sort.Strings(l)
		sort.Strings(r)
	}

	if len(l) != len(r) {
		return fmt.Errorf("lhs rhs row size not match")
	}
	for i := range l {
		if l[i] != r[i] {
			return fmt.Errorf("row(%d) ({%s} {%s}) not match", i, l[i], r[i])
		}
	}
	return nil
}

func (self *cookbook) verify() error {
	if yy := self.parsed.getOne("error"); yy != nil {
		if self.runErr == nil {
			return fmt.Errorf("[verify]: expect error {%s}, program succeeded", yy.content)
		}
		if !strings.Contains(self.runErr.Error(), yy.content) {
			return fmt.Errorf("[verify]: expect error {%s}, got {%s}", yy.content, self.runErr)
		}
		// the native executor fails the same way
		if _, err := self.runNative(); err == nil || !strings.Contains(err.Error(), yy.content) {
			return fmt.Errorf("[verify]: native error {%v} does not match {%s}", err, yy.content)
		}
		return nil
	}
	if self.runErr != nil {
		return fmt.Errorf("[awk]: %s", self.runErr)
	}

	if yy := self.parsed.getOne("result"); yy != nil {
		order := true
		if v := yy.attrAt("order"); v == "none" {
			order = false
		}
		lhs := toLines(yy.content)
		rhs := toLines(self.result)
		if err := self.cmpLines(lhs, rhs, order); err != nil {
			return fmt.Errorf("[verify]: expect{\n%s\n}, result{\n%s\n}, failed: %s",
				yy.content,
				self.result,
				err,
			)
		}
	}

	native, err := self.runNative()
	if err != nil {
		return fmt.Errorf("[native]: %s", err)
	}
	if native != self.result {
		return fmt.Errorf("[native]: native{\n%s}, awk{\n%s} differ", native, self.result)
	}
	return nil
}

func TestCodeGen(t *testing.T) {
	assert := assert.New(t)
	dirList := []string{TEST_DIR}
	tt := 0
	ttErr := 0

	for len(dirList) > 0 {
		dir := dirList[0]
		dirList = dirList[1:]

		fList, err := os.ReadDir(
			dir,
		)
		assert.True(err == nil)

		for _, fentry := range fList {
			path := filepath.Join(dir, fentry.Name())
			if fentry.IsDir() {
				dirList = append(dirList, path)
				continue
			} else {
				cb := &cookbook{
					filename: path,
					dir:      t.TempDir(),
				}
				tt++
				if err := cb.run(); err != nil {
					t.Errorf("cookbook(%s) failed: %s", path, err)
					ttErr++
				} else {
					t.Logf("cookbook(%s) passed", path)
				}
			}
		}
	}

	assert.True(tt > 0)
	t.Log(
		fmt.Sprintf(
			"total(%d), err(%d), ratio(%f)",
			tt,
			ttErr,
			float64(tt-ttErr)/float64(tt),
		),
	)
}

func TestQuote(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(`","`, quote(","))
	assert.Equal(`"a\"b"`, quote(`a"b`))
	assert.Equal(`"c:\\tmp\t"`, quote("c:\\tmp\t"))
}

func TestGenerateRejectsBadPlan(t *testing.T) {
	assert := assert.New(t)
	_, err := Generate(nil, nil)
	assert.Error(err)

	p := &plan.Plan{
		Config: plan.Config{Codec: row.Codec{Separator: ","}},
		Left:   plan.FileMetadata{Path: "l", Field: -1},
		Right:  plan.FileMetadata{Path: "r"},
	}
	_, err = Generate(p, nil)
	assert.Error(err)
}

func TestExecuteStatus(t *testing.T) {
	assert := assert.New(t)
	out := &strings.Builder{}
	errOut := &strings.Builder{}

	err := Execute(`BEGIN { print "hi"; print "boom" > ERRFILE; exit 3 }`, nil, out, errOut)
	require.Error(t, err)
	assert.Equal("awk: exit status 3: boom", err.Error())
	assert.Equal("hi\n", out.String())
	assert.Equal("boom\n", errOut.String())

	err = Execute(`BEGIN { print ARGV[1] "-" ARGV[2] }`, []string{"a", "b"}, out, nil)
	assert.NoError(err)
	assert.Equal("hi\na-b\n", out.String())

	err = Execute(`BEGIN { print (`, nil, out, nil)
	assert.Error(err)

	// the builtin fail() reports through the same channel
	errOut.Reset()
	err = Execute(builtinAWK+`BEGIN { SEP = ","; malformed("right", 4, 1, 3) }`, nil, out, errOut)
	require.Error(t, err)
	assert.Equal("awk: exit status 2: right row at line 4 has 1 field(s), join field 3 is out of range", err.Error())
	assert.Equal("right row at line 4 has 1 field(s), join field 3 is out of range\n", errOut.String())
}
