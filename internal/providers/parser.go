package providers

import "strings"

// Candidate is one entry of the ordered fallback list.
type Candidate struct {
	ID       string
	Backend  string
	Model    string
	Provider LLMProvider
}

// ParseCandidates reads "backend:model|backend:model". Blank entries are skipped.
func ParseCandidates(raw string) []Candidate {
	parts := strings.Split(raw, "|")
	out := make([]Candidate, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		c := Candidate{ID: p}
		if strings.Contains(p, ":") {
			x := strings.SplitN(p, ":", 2)
			c.Backend = strings.ToLower(strings.TrimSpace(x[0]))
			c.Model = strings.TrimSpace(x[1])
		} else {
			c.Backend = strings.ToLower(p)
		}
		out = append(out, c)
	}
	return out
}
