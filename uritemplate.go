package mcp

import (
	"fmt"

	"github.com/yosida95/uritemplate/v3"
)

// expandResourceTemplate substitutes params into a RFC 6570 URI template,
// percent-encoding each value, and returns the resulting concrete URI.
func expandResourceTemplate(template string, params map[string]string) (string, error) {
	tpl, err := uritemplate.New(template)
	if err != nil {
		return "", &ClientError{Reason: fmt.Sprintf("invalid resource URI template %q: %v", template, err)}
	}

	vars := uritemplate.Values{}
	for k, v := range params {
		vars.Set(k, uritemplate.String(v))
	}

	return tpl.Expand(vars)
}
