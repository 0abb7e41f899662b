package corpus

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

type claimsFile struct {
	Claims []any `json:"claims"`
}

// LoadClaims reads a {"claims": [...]} file. Entries are strings or objects
// carrying the claim under "claim" or "text". Blank claims are skipped.
func LoadClaims(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read claims: %w", err)
	}
	var f claimsFile
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse claims %s: %w", path, err)
	}
	var out []string
	for i, c := range f.Claims {
		var text string
		switch v := c.(type) {
		case string:
			text = v
		case map[string]any:
			if s, ok := v["claim"].(string); ok {
				text = s
			} else if s, ok := v["text"].(string); ok {
				text = s
			}
		default:
			return nil, fmt.Errorf("claim %d in %s is neither a string nor an object", i, path)
		}
		if strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	}
	return out, nil
}
