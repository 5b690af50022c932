// Package config holds the policy flags of the safety instrumentation and
// the driver options that go with them.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// Severities accepted by FuncPtrMismatch.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Options is read-only once compilation starts.
type Options struct {
	// NonnullCheck enables nonnull static diagnostics and runtime asserts.
	NonnullCheck bool `yaml:"nonnull_check"`
	// BoundaryCheck enables boundary tracking and bounds asserts.
	BoundaryCheck bool `yaml:"boundary_check"`
	// SafeRegion turns missing bounds inside __Safe__ blocks into errors.
	SafeRegion bool `yaml:"safe_region"`

	WarningsAsErrors bool   `yaml:"warnings_as_errors"`
	ErrorLimit       int    `yaml:"error_limit"`
	FuncPtrMismatch  string `yaml:"funcptr_mismatch"`
}

// Default returns the options used without a config file: every check off.
func Default() Options {
	return Options{FuncPtrMismatch: SeverityWarning}
}

// Enabled reports whether any part of the instrumentation runs.
func (o Options) Enabled() bool {
	return o.NonnullCheck || o.BoundaryCheck
}

type ErrorCode string

const (
	ErrCodeRead   ErrorCode = "CONFIG_READ"
	ErrCodeSyntax ErrorCode = "CONFIG_SYNTAX"
	ErrCodeSchema ErrorCode = "CONFIG_SCHEMA"
)

// ConfigError reports a config file that could not be used.
type ConfigError struct {
	Code    ErrorCode
	Path    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Code, e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Code, e.Path, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsSchemaError reports whether err is a schema violation.
func IsSchemaError(err error) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeSchema
	}
	return false
}

//go:embed schema.cue
var schemaSrc string

// Load reads a YAML config file on top of the defaults.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, &ConfigError{Code: ErrCodeRead, Path: path, Message: "cannot read config", Err: err}
	}
	return Parse(path, data)
}

// Parse decodes and validates config data. path is only used in errors.
func Parse(path string, data []byte) (Options, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Options{}, &ConfigError{Code: ErrCodeSyntax, Path: path, Message: "invalid YAML", Err: err}
	}
	if err := validate(raw); err != nil {
		return Options{}, &ConfigError{Code: ErrCodeSchema, Path: path, Message: "config does not match schema", Err: err}
	}

	opts := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return Options{}, &ConfigError{Code: ErrCodeSyntax, Path: path, Message: "invalid config", Err: err}
	}
	return opts, nil
}

// validate checks the raw document against the embedded CUE schema.
func validate(raw map[string]any) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		panic(fmt.Sprintf("embedded config schema: %v", err))
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if raw == nil {
		raw = map[string]any{}
	}
	v := def.Unify(ctx.Encode(raw))
	return v.Validate(cue.Concrete(true))
}
