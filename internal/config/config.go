package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Options is the recognized configuration surface of an export or import run.
type Options struct {
	Input     string `yaml:"input" validate:"required"`
	Output    string `yaml:"output" validate:"required"`
	Dataset   string `yaml:"dataset" validate:"required"`
	Document  string `yaml:"document"`
	Compare   YesNo  `yaml:"compare"`
	Debug     YesNo  `yaml:"debug"`
	Reference string `yaml:"reference" validate:"required_if=Compare true"`
	Pretty    bool   `yaml:"pretty"`
}

// ConfigurationError reports a missing or unusable option. It is raised
// before any input or output is touched.
type ConfigurationError struct {
	Option string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required option: %s", e.Option)
	}
	return fmt.Sprintf("invalid option %s: %s", e.Option, e.Reason)
}

// envKeys maps option names to environment variables.
var envKeys = map[string]string{
	"input":     "DSJSON_INPUT",
	"output":    "DSJSON_OUTPUT",
	"dataset":   "DSJSON_DATASET",
	"document":  "DSJSON_DOCUMENT",
	"compare":   "DSJSON_COMPARE",
	"debug":     "DSJSON_DEBUG",
	"reference": "DSJSON_REFERENCE",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads options from the YAML file at path (if any) and then applies
// environment overrides.
func Load(path string) (Options, error) {
	var o Options
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return o, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &o); err != nil {
			return o, &ConfigurationError{Option: "config", Reason: err.Error()}
		}
	}
	if err := o.ApplyEnv(os.LookupEnv); err != nil {
		return o, err
	}
	return o, nil
}

// ApplyEnv overrides options with any DSJSON_* variables that are set.
func (o *Options) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(opt string, dst *string) {
		if v, ok := lookup(envKeys[opt]); ok && v != "" {
			*dst = v
		}
	}
	yn := func(opt string, dst *YesNo) error {
		v, ok := lookup(envKeys[opt])
		if !ok || v == "" {
			return nil
		}
		parsed, err := ParseYesNo(v)
		if err != nil {
			return &ConfigurationError{Option: opt, Reason: err.Error()}
		}
		*dst = parsed
		return nil
	}

	str("input", &o.Input)
	str("output", &o.Output)
	str("dataset", &o.Dataset)
	str("document", &o.Document)
	str("reference", &o.Reference)
	if err := yn("compare", &o.Compare); err != nil {
		return err
	}
	return yn("debug", &o.Debug)
}

// Validate checks required options and returns the first problem as a
// ConfigurationError.
func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Tag() == "required" || fe.Tag() == "required_if" {
			return &ConfigurationError{Option: fe.Field()}
		}
		return &ConfigurationError{Option: fe.Field(), Reason: fe.Error()}
	}
	return fmt.Errorf("validate options: %w", err)
}

// DocumentName returns the configured document name, defaulting to
// "<dataset>.json".
func (o *Options) DocumentName() string {
	if o.Document != "" {
		return o.Document
	}
	return o.Dataset + ".json"
}
