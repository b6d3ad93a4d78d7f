// Package ignore loads the substring rules used to suppress known false
// positives. Rules are matched case-insensitively against file content or
// classifier output.
package ignore

import (
	"bufio"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// DefaultPath is the conventional location of the rules file.
const DefaultPath = "scanner/ignore_list.txt"

// Rules is an ordered list of lower-cased substring patterns.
type Rules struct {
	patterns []string
}

// Load reads one pattern per line from path. Patterns are trimmed and
// lower-cased; blank lines and lines starting with '#' are skipped. A missing
// file yields empty rules.
func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Rules{}, nil
		}
		return nil, errors.Wrapf(err, "failed to open ignore file %s", path)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.ToLower(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read ignore file %s", path)
	}

	return &Rules{patterns: patterns}, nil
}

// New builds rules from in-memory patterns, normalising them like Load does.
func New(patterns ...string) *Rules {
	r := &Rules{}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			r.patterns = append(r.patterns, p)
		}
	}
	return r
}

// Patterns returns the loaded patterns.
func (r *Rules) Patterns() []string {
	if r == nil {
		return nil
	}
	return r.patterns
}

// Len returns the number of patterns.
func (r *Rules) Len() int {
	return len(r.Patterns())
}

// Match returns the first pattern contained in any of texts, compared
// case-insensitively.
func (r *Rules) Match(texts ...string) (string, bool) {
	if r.Len() == 0 {
		return "", false
	}

	for _, text := range texts {
		lower := strings.ToLower(text)
		for _, p := range r.patterns {
			if strings.Contains(lower, p) {
				return p, true
			}
		}
	}
	return "", false
}
