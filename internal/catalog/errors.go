package catalog

import (
	"fmt"
	"strings"
)

// ConfigurationError reports a catalog that violates a load-time invariant.
// A process holding one must not serve scoring requests.
type ConfigurationError struct {
	Component string
	Problems  []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s configuration invalid: %s", e.Component, strings.Join(e.Problems, "; "))
}

func configErr(component string, problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return &ConfigurationError{Component: component, Problems: problems}
}
