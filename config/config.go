// Package config holds the user facing settings of a join run. Settings
// come from three layers, each overriding the previous one: built-in
// defaults, an optional YAML file and command line flags.
package config

import (
	"bytes"
	"io"
	"log/slog"

	"github.com/Olex1313/mhs-db-join/extsort"
	"github.com/Olex1313/mhs-db-join/plan"
	"github.com/Olex1313/mhs-db-join/row"
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Separator       string `yaml:"separator"`
	MemoryBudget    Bytes  `yaml:"memory_budget"`
	NestedLoopLimit Bytes  `yaml:"nested_loop_limit"`
	ChunkRows       int    `yaml:"chunk_rows"`
	TempDir         string `yaml:"temp_dir"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
}

func Default() Config {
	return Config{
		Separator:       row.DefaultSeparator,
		MemoryBudget:    Bytes(plan.DefMemoryBudget),
		NestedLoopLimit: Bytes(plan.DefNestedLoopLimit),
		ChunkRows:       extsort.DefaultChunkRows,
		LogLevel:        LevelInfo,
		LogFormat:       FormatText,
	}
}

// Load reads a YAML file on top of the defaults. Unknown keys are an error
// so that a misspelt setting does not go unnoticed.
func Load(fs afero.Fs, path string) (Config, error) {
	cfg := Default()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

func (self *Config) Validate() error {
	if _, err := row.NewCodec(self.Separator); err != nil {
		return err
	}
	if self.MemoryBudget <= 0 {
		return errors.New("memory budget must be positive")
	}
	if self.NestedLoopLimit < 0 {
		return errors.New("nested loop limit must not be negative")
	}
	if self.ChunkRows <= 0 {
		return errors.Newf("chunk rows must be positive, got %d", self.ChunkRows)
	}
	if _, err := parseLevel(self.LogLevel); err != nil {
		return err
	}
	if self.LogFormat != FormatText && self.LogFormat != FormatJSON {
		return errors.Newf("log format %q is not one of: text, json", self.LogFormat)
	}
	return nil
}

// BindFlags registers one flag per setting, writing into self.
func (self *Config) BindFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&self.Separator, "separator", "s", self.Separator,
		"field separator of both inputs and of the output")
	flags.Var(&self.MemoryBudget, "memory-budget",
		"input bytes the join may hold in memory, e.g. 512MiB")
	flags.Var(&self.NestedLoopLimit, "nested-loop-limit",
		"largest combined input size joined with the nested loop")
	flags.IntVar(&self.ChunkRows, "chunk-rows", self.ChunkRows,
		"rows per sorted chunk of the sort-merge join")
	flags.StringVar(&self.TempDir, "temp-dir", self.TempDir,
		"directory for sort-merge chunk files, default is the system one")
	flags.StringVar(&self.LogLevel, "log-level", self.LogLevel,
		"log level: debug, info, warn, error")
	flags.StringVar(&self.LogFormat, "log-format", self.LogFormat,
		"log format: text, json")
}

// Merge copies from other every setting whose flag was set on the command
// line. other is the Config the flags were bound to.
func (self *Config) Merge(flags *pflag.FlagSet, other *Config) {
	if flags.Changed("separator") {
		self.Separator = other.Separator
	}
	if flags.Changed("memory-budget") {
		self.MemoryBudget = other.MemoryBudget
	}
	if flags.Changed("nested-loop-limit") {
		self.NestedLoopLimit = other.NestedLoopLimit
	}
	if flags.Changed("chunk-rows") {
		self.ChunkRows = other.ChunkRows
	}
	if flags.Changed("temp-dir") {
		self.TempDir = other.TempDir
	}
	if flags.Changed("log-level") {
		self.LogLevel = other.LogLevel
	}
	if flags.Changed("log-format") {
		self.LogFormat = other.LogFormat
	}
}

// Plan converts the settings into the planner configuration.
func (self *Config) Plan(fs afero.Fs, log *slog.Logger) plan.Config {
	return plan.Config{
		Codec:           row.Codec{Separator: self.Separator},
		MemoryBudget:    int64(self.MemoryBudget),
		NestedLoopLimit: int64(self.NestedLoopLimit),
		ChunkRows:       self.ChunkRows,
		TempDir:         self.TempDir,
		Fs:              fs,
		Log:             log,
	}
}
