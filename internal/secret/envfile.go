package secret

import (
	"os"
	"strings"
)

// ParseEnvFile reads KEY=VALUE pairs from an env-file. Blank lines and
// comments are skipped, a leading "export " is tolerated, and single or
// double quotes around values are stripped.
func ParseEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseEnv(string(data)), nil
}

func ParseEnv(content string) map[string]string {
	vars := map[string]string{}
	for _, line := range strings.Split(content, "\n") {
		s := strings.TrimSpace(line)
		if s == "" || s[0] == '#' {
			continue
		}
		s = strings.TrimPrefix(s, "export ")
		eqIdx := strings.IndexByte(s, '=')
		if eqIdx <= 0 {
			continue
		}
		key := strings.TrimSpace(s[:eqIdx])
		val := stripQuotes(s[eqIdx+1:])
		vars[key] = val
	}
	return vars
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
