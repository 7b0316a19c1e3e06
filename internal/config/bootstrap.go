// Package config implements the embedding bootstrap configuration: a
// load-level selector plus feature opt-outs and dialect flags, loadable
// from a YAML file.
//
// Grounded on internal/ext/config.go's funxy.yaml loader (os.ReadFile +
// yaml.Unmarshal + validate + setDefaults shape), reusing gopkg.in/yaml.v3
// the same way, retargeted from a Go-dependency-declaration file onto
// TeaScript's embedding bootstrap bitmask.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tsvm-lang/teascript/internal/context"
)

// LoadLevel selects how much of the standard library the host bootstraps
// (minimal/core-reduced/core/util/full). The core itself never
// interprets LoadLevel — it is an opaque value forwarded to whatever
// out-of-scope stdlib loader the embedding host wires up.
type LoadLevel string

const (
	LoadMinimal     LoadLevel = "minimal"
	LoadCoreReduced LoadLevel = "core-reduced"
	LoadCore        LoadLevel = "core"
	LoadUtil        LoadLevel = "util"
	LoadFull        LoadLevel = "full"
)

func (l LoadLevel) valid() bool {
	switch l {
	case LoadMinimal, LoadCoreReduced, LoadCore, LoadUtil, LoadFull:
		return true
	}
	return false
}

// FeatureOptOuts are the individual capability toggles: no-stdin/out/err,
// no-file-read/write/delete, no-eval.
type FeatureOptOuts struct {
	NoStdin      bool `yaml:"no_stdin"`
	NoStdout     bool `yaml:"no_stdout"`
	NoStderr     bool `yaml:"no_stderr"`
	NoFileRead   bool `yaml:"no_file_read"`
	NoFileWrite  bool `yaml:"no_file_write"`
	NoFileDelete bool `yaml:"no_file_delete"`
	NoEval       bool `yaml:"no_eval"`
}

// Bootstrap is the full embedding configuration bitmask, loadable from a
// YAML file (e.g. teascript.yaml) matching the funxy.yaml pattern.
type Bootstrap struct {
	LoadLevel LoadLevel      `yaml:"load_level"`
	OptOuts   FeatureOptOuts `yaml:"opt_outs"`
	Dialect   DialectConfig  `yaml:"dialect"`
}

// DialectConfig mirrors internal/context.Dialect's toggles ("dialect")
// in YAML-friendly form so a host config file can set them directly.
type DialectConfig struct {
	AutoDefineUnknownIdentifiers           bool `yaml:"auto_define_unknown_identifiers"`
	DeclareIdentifiersWithoutAssignAllowed bool `yaml:"declare_identifiers_without_assign_allowed"`
	UndefineUnknownIdentifiersAllowed      bool `yaml:"undefine_unknown_identifiers_allowed"`
	ParametersAreDefaultConst              bool `yaml:"parameters_are_default_const"`
}

// ToDialect converts the YAML-facing DialectConfig into the Context's
// runtime Dialect record.
func (d DialectConfig) ToDialect() context.Dialect {
	return context.Dialect{
		AutoDefineUnknownIdentifiers:           d.AutoDefineUnknownIdentifiers,
		DeclareIdentifiersWithoutAssignAllowed: d.DeclareIdentifiersWithoutAssignAllowed,
		UndefineUnknownIdentifiersAllowed:      d.UndefineUnknownIdentifiersAllowed,
		ParametersAreDefaultConst:              d.ParametersAreDefaultConst,
	}
}

// Default is the zero-opt-out, core load-level bootstrap used when no
// config file is supplied.
func Default() Bootstrap {
	return Bootstrap{LoadLevel: LoadCore}
}

// Load reads and parses a Bootstrap YAML file.
func Load(path string) (Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Bootstrap{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses Bootstrap YAML content from bytes, applying the same
// default-fill-then-validate order as funxy's ParseConfig.
func Parse(data []byte) (Bootstrap, error) {
	var b Bootstrap
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Bootstrap{}, fmt.Errorf("parsing bootstrap config: %w", err)
	}
	if b.LoadLevel == "" {
		b.LoadLevel = LoadCore
	}
	if !b.LoadLevel.valid() {
		return Bootstrap{}, fmt.Errorf("invalid load_level %q", b.LoadLevel)
	}
	return b, nil
}
