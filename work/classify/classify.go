// Package classify assigns a content kind (live, movie, series) to catalog
// entries using a single table of tagged keyword rules evaluated against the
// lower-cased name, group label and URL.
//
// Classification is heuristic: the vocabulary is a closed set of broadcaster
// brands, VOD markers and season/episode tokens, and a name that legitimately
// mixes vocabularies ("Action Movies Live") resolves by rule priority rather
// than by understanding the content. That ambiguity is a documented
// limitation, not an error. Classify always returns exactly one kind.
package classify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grafana/regexp"

	"iptv-catalog/work/types"
)

// Field selects which part of an entry a rule is matched against.
type Field int

const (
	FieldName Field = iota
	FieldGroup
	FieldURL
)

// Rule priorities. A higher priority dominates when indicators for several
// kinds match the same entry: explicit movie words override season/episode
// tokens, season/episode tokens override everything else, broadcaster brands
// suppress generic VOD markers.
const (
	PriorityMovieExplicit = 95
	PrioritySeries        = 90
	PriorityLive          = 60
	PriorityVOD           = 40
)

// Rule is one tagged pattern in the classification table.
type Rule struct {
	Pattern  string
	Fields   []Field
	Kind     types.Kind
	Priority int

	re *regexp.Regexp
}

// Classifier evaluates an immutable, pre-compiled rule table. It is safe for
// concurrent use and Classify is a pure function of the entry's name, group
// and URL.
type Classifier struct {
	rules []Rule
}

// New returns a classifier loaded with the default rule table.
func New() *Classifier {
	c, err := NewWithRules(DefaultRules())
	if err != nil {
		// the default table is static; a compile failure is a programming error
		panic(fmt.Sprintf("classify: default rules failed to compile: %v", err))
	}
	return c
}

// NewWithRules compiles an explicit rule table, highest priority first.
func NewWithRules(rules []Rule) (*Classifier, error) {
	compiled := make([]Rule, len(rules))
	copy(compiled, rules)

	for i := range compiled {
		re, err := regexp.Compile(compiled[i].Pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid rule pattern %q: %w", compiled[i].Pattern, err)
		}
		compiled[i].re = re
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].Priority > compiled[j].Priority
	})

	return &Classifier{rules: compiled}, nil
}

// Classify returns the content kind for the entry.
//
// All rules run against the lower-cased fields, then a fixed precedence
// decides among the kinds that matched:
//
//  1. series, when a season/episode token matched and no explicit movie
//     word did;
//  2. movie, when a VOD indicator matched and no live-channel indicator
//     did (an explicit movie word also beats series tokens here);
//  3. live otherwise, the default for an unmarked entry.
func (c *Classifier) Classify(e *types.Entry) types.Kind {
	name := strings.ToLower(e.Name)
	group := strings.ToLower(e.Group)
	url := strings.ToLower(e.URL)

	best := map[types.Kind]int{}
	for i := range c.rules {
		rule := &c.rules[i]
		if rule.Priority <= best[rule.Kind] {
			continue // a stronger rule for this kind already matched
		}
		for _, field := range rule.Fields {
			var subject string
			switch field {
			case FieldName:
				subject = name
			case FieldGroup:
				subject = group
			case FieldURL:
				subject = url
			}
			if subject != "" && rule.re.MatchString(subject) {
				best[rule.Kind] = rule.Priority
				break
			}
		}
	}

	explicitMovie := best[types.KindMovie] >= PriorityMovieExplicit

	if best[types.KindSeries] > 0 && !explicitMovie {
		return types.KindSeries
	}
	if best[types.KindMovie] > 0 && best[types.KindLive] == 0 {
		return types.KindMovie
	}
	return types.KindLive
}

// ClassifyAll assigns Kind in place for every entry and returns the input
// slice for chaining.
func (c *Classifier) ClassifyAll(entries []*types.Entry) []*types.Entry {
	for _, e := range entries {
		e.Kind = c.Classify(e)
	}
	return entries
}
