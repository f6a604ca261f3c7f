package registry

import (
	"regexp"
	"strings"
)

// defaultHandlerName is used when no handler scores above routeThreshold.
const defaultHandlerName = "system"

// routeThreshold is the minimum score a handler must reach to be routed to;
// below it, routing falls back to the default system handler.
const routeThreshold = 0.3

const (
	templateWeight = 0.5
	keywordWeight  = 0.4
	keywordPerHit  = 0.1
	keywordExtra   = 0.2
	packageWeight  = 0.1
)

// Registry holds the discovered handler modules and performs scored routing.
type Registry struct {
	modules  []ModuleInfo
	patterns map[string][]*regexp.Regexp
}

// NewRegistry builds a Registry from already-discovered modules, compiling
// each module's declared task-patterns once up front.
func NewRegistry(modules []ModuleInfo) *Registry {
	r := &Registry{
		modules:  modules,
		patterns: make(map[string][]*regexp.Regexp, len(modules)),
	}
	for _, m := range modules {
		compiled := make([]*regexp.Regexp, 0, len(m.Patterns))
		for _, p := range m.Patterns {
			if re, err := regexp.Compile(p); err == nil {
				compiled = append(compiled, re)
			}
		}
		r.patterns[m.Name] = compiled
	}
	return r
}

// Modules returns the discovered handler modules, in discovery order.
func (r *Registry) Modules() []ModuleInfo {
	return r.modules
}

// ByName returns the module with the given name, if discovered.
func (r *Registry) ByName(name string) (ModuleInfo, bool) {
	for _, m := range r.modules {
		if m.Name == name {
			return m, true
		}
	}
	return ModuleInfo{}, false
}

// ScoredModule pairs a module with its routing score for one utterance.
type ScoredModule struct {
	Module ModuleInfo
	Score  float64
}

// Score computes the routing score of one module against an utterance, per
// the weighted template/keyword/package scheme.
func (r *Registry) Score(m ModuleInfo, utterance string) float64 {
	lower := strings.ToLower(utterance)
	score := 0.0

	for _, re := range r.patterns[m.Name] {
		if re.MatchString(utterance) {
			score += templateWeight
			break
		}
	}

	if len(m.Keywords) > 0 {
		kwScore := 0.0
		for _, kw := range m.Keywords {
			kwLower := strings.ToLower(kw)
			if kwLower == "" {
				continue
			}
			if strings.Contains(lower, kwLower) {
				kwScore += keywordPerHit
				if lower == kwLower {
					kwScore += keywordExtra
				}
			}
		}
		if kwScore > keywordWeight {
			kwScore = keywordWeight
		}
		score += kwScore
	}

	if m.PackageID != "" && strings.Contains(lower, strings.ToLower(m.PackageID)) {
		score += packageWeight
	}

	return score
}

// Route scores every discovered module against the utterance and returns the
// best match, falling back to the default "system" handler when the best
// score is below routeThreshold. The returned bool reports whether a
// non-default handler was chosen.
func (r *Registry) Route(utterance string) (ModuleInfo, bool) {
	var best ScoredModule
	for _, m := range r.modules {
		s := r.Score(m, utterance)
		if s > best.Score {
			best = ScoredModule{Module: m, Score: s}
		}
	}
	if best.Score < routeThreshold {
		if sys, ok := r.ByName(defaultHandlerName); ok {
			return sys, false
		}
		return ModuleInfo{Name: defaultHandlerName}, false
	}
	return best.Module, true
}

// RouteRanked returns every module's score against the utterance, sorted
// descending, for diagnostics and testing.
func (r *Registry) RouteRanked(utterance string) []ScoredModule {
	ranked := make([]ScoredModule, 0, len(r.modules))
	for _, m := range r.modules {
		ranked = append(ranked, ScoredModule{Module: m, Score: r.Score(m, utterance)})
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Score > ranked[j-1].Score; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return ranked
}
