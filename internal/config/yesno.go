package config

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// YesNo is a boolean switch spelled YES or NO.
type YesNo bool

// ParseYesNo accepts YES/NO (and TRUE/FALSE), case-insensitively.
func ParseYesNo(s string) (YesNo, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "TRUE":
		return true, nil
	case "NO", "N", "FALSE", "":
		return false, nil
	default:
		return false, fmt.Errorf("expected YES or NO, got %q", s)
	}
}

func (y YesNo) String() string {
	if y {
		return "YES"
	}
	return "NO"
}

// Set implements pflag.Value.
func (y *YesNo) Set(s string) error {
	v, err := ParseYesNo(s)
	if err != nil {
		return err
	}
	*y = v
	return nil
}

// Type implements pflag.Value.
func (y *YesNo) Type() string { return "YES|NO" }

func (y *YesNo) UnmarshalYAML(node *yaml.Node) error {
	return y.Set(node.Value)
}

func (y YesNo) MarshalYAML() (any, error) {
	return y.String(), nil
}
