package core

import (
	"fmt"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
)

// ConfigurationOptionType represents the possible types of a
// ConfigurationOption's value.
type ConfigurationOptionType int

const (
	// BoolConfigurationOption reflects the boolean value type.
	BoolConfigurationOption ConfigurationOptionType = iota
	// IntConfigurationOption reflects the integer value type.
	IntConfigurationOption
	// StringConfigurationOption reflects the string value type.
	StringConfigurationOption
)

func (opt ConfigurationOptionType) String() string {
	switch opt {
	case BoolConfigurationOption:
		return ""
	case IntConfigurationOption:
		return "int"
	case StringConfigurationOption:
		return "string"
	}
	panic(fmt.Sprintf("invalid ConfigurationOptionType value %d", opt))
}

// ConfigurationOption describes a tunable: its name, help text, CLI
// flag, value type and default. The CLI in cmd/stm declares its flags
// directly and does not build them from this type.
type ConfigurationOption struct {
	// Name identifies the option; also the key it is published under.
	Name string
	// Description is the CLI help text.
	Description string
	// Flag is the CLI token, with "--" prepended.
	Flag string
	// Type specifies the kind of the option's value.
	Type ConfigurationOptionType
	// Default is the initial value.
	Default interface{}
}

// EnvRulesDir is the environment variable which overrides code_rules_dir.
const EnvRulesDir = "STACK_MUNCHER_CODERULES_DIR"

// ResolveRulesDir applies the original stackmuncher config precedence:
// an explicitly-set CLI flag wins, otherwise the environment variable
// wins, otherwise the configured default is used. Either of flagValue /
// configuredDefault may be empty; flagWasSet distinguishes "--rules-dir"
// left at its zero value from the user explicitly passing an empty
// string.
func ResolveRulesDir(flagValue string, flagWasSet bool, configuredDefault string) (string, error) {
	var dir string
	switch {
	case flagWasSet:
		dir = flagValue
	case os.Getenv(EnvRulesDir) != "":
		dir = os.Getenv(EnvRulesDir)
	default:
		dir = configuredDefault
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("no rules directory configured: set --rules-dir, %s, or code_rules_dir", EnvRulesDir)
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return "", err
	}
	return expanded, nil
}
