package discovery

import (
	"strings"
	"sync"
)

// MaxExpansions bounds the related keywords searched after the base keyword.
const MaxExpansions = 3

// Expander derives related keywords from the base keyword.
type Expander func(keyword string) []string

// Rule appends Suffixes to keywords that contain any of Triggers.
type Rule struct {
	Name     string
	Triggers []string
	Suffixes []string
}

// DefaultRules are the built-in topic heuristics
var DefaultRules = []Rule{
	{
		Name:     "gaming",
		Triggers: []string{"game", "gaming", "gamer", "esports", "minecraft", "fortnite", "roblox", "speedrun", "playthrough"},
		Suffixes: []string{"gameplay", "tutorial", "walkthrough"},
	},
	{
		Name:     "educational",
		Triggers: []string{"learn", "education", "tutorial", "course", "lesson", "how to", "study", "explained", "science", "math", "coding", "programming"},
		Suffixes: []string{"beginner", "course", "explained"},
	},
}

// DefaultFallback applies when no rule matches
var DefaultFallback = []string{"channel", "creator", "vlog"}

// Registry picks the first matching rule, or the fallback suffixes when no
// rule matches. Rules are checked in registration order.
type Registry struct {
	mu       sync.RWMutex
	rules    []Rule
	fallback []string
}

// NewRegistry creates a registry with the given fallback suffixes and rules
func NewRegistry(fallback []string, rules ...Rule) *Registry {
	return &Registry{rules: append([]Rule{}, rules...), fallback: append([]string{}, fallback...)}
}

// DefaultRegistry holds the gaming and educational heuristics.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultFallback, DefaultRules...)
}

// Register adds a rule after the existing ones.
func (r *Registry) Register(rule Rule) {
	r.mu.Lock()
	r.rules = append(r.rules, rule)
	r.mu.Unlock()
}

// Expand returns at most MaxExpansions related keywords. Suffixes already
// present in the keyword are skipped.
func (r *Registry) Expand(keyword string) []string {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil
	}
	lower := strings.ToLower(keyword)

	r.mu.RLock()
	suffixes := r.fallback
	for _, rule := range r.rules {
		if matchesAny(lower, rule.Triggers) {
			suffixes = rule.Suffixes
			break
		}
	}
	r.mu.RUnlock()

	var out []string
	for _, suffix := range suffixes {
		if strings.Contains(lower, strings.ToLower(suffix)) {
			continue
		}
		out = append(out, keyword+" "+suffix)
		if len(out) == MaxExpansions {
			break
		}
	}
	return out
}

func matchesAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
