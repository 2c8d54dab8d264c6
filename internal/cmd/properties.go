package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// propertiesValue is a repeatable -p/--properties key=value flag,
// accumulating into the property map passed to the root ExecutionContext.
// It's a custom pflag.Value rather than pflag's built-in StringToString
// so that each occurrence is exactly one pair, split at the first '=':
// a value may contain commas, which StringToString would split into
// separate pairs.
type propertiesValue struct {
	target *map[string]string
}

func newPropertiesValue(target *map[string]string) *propertiesValue {
	return &propertiesValue{target: target}
}

func (p *propertiesValue) String() string {
	if p.target == nil || *p.target == nil {
		return ""
	}
	parts := make([]string, 0, len(*p.target))
	for k, v := range *p.target {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (p *propertiesValue) Set(value string) error {
	key, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("must be of the form key=value, got %q", value)
	}
	if *p.target == nil {
		*p.target = map[string]string{}
	}
	(*p.target)[key] = val
	return nil
}

func (p *propertiesValue) Type() string {
	return "key=value"
}

var _ pflag.Value = &propertiesValue{}
