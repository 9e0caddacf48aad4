package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Mention is one structured party mention extracted from the free-text
// additional information of a regulator report
type Mention struct {
	Name         string          `json:"name"`
	TaxID        string          `json:"tax_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Transactions int             `json:"transactions,omitempty"`
	Platform     string          `json:"platform,omitempty"`
}

// ExtractMentions parses summarizer output into mentions using a two-stage
// contract: a strict JSON parse first, then a best-effort scan for object
// fragments. The second return value counts fragments that could not be
// parsed; failures are reported, never silently dropped.
func ExtractMentions(raw string) ([]Mention, int, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = stripCodeFence(trimmed)

	var list []Mention
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		return list, 0, nil
	}

	var single Mention
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil && single.Name != "" {
		return []Mention{single}, 0, nil
	}

	var wrapper struct {
		Mentions []Mention `json:"mentions"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && len(wrapper.Mentions) > 0 {
		return wrapper.Mentions, 0, nil
	}

	fragments := objectFragments(trimmed)
	if len(fragments) == 0 {
		return nil, 0, fmt.Errorf("extract mentions: no JSON content in response")
	}

	var mentions []Mention
	unparsed := 0
	for _, frag := range fragments {
		var m Mention
		if err := json.Unmarshal([]byte(frag), &m); err != nil || m.Name == "" {
			unparsed++
			continue
		}
		mentions = append(mentions, m)
	}

	return mentions, unparsed, nil
}

// objectFragments returns the top-level balanced {...} substrings of s
func objectFragments(s string) []string {
	var fragments []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					fragments = append(fragments, s[start:i+1])
					start = -1
				}
			}
		}
	}
	return fragments
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
