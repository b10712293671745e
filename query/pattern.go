package query

import (
	"regexp"
	"strings"
)

const (
	wildcard        = ".*"
	caseInsensitive = "(?i)"
)

// Pattern is a regular expression as it travels through filter documents:
// the body without delimiters plus a flag string ("i", "gi", "").
type Pattern struct {
	Source string `json:"source" yaml:"source"`
	Flags  string `json:"flags" yaml:"flags"`
}

// PatternOf converts a compiled Go regexp. Go keeps flags inline, so a
// leading (?i) is lifted out into Flags.
func PatternOf(re *regexp.Regexp) Pattern {
	src := re.String()
	if strings.HasPrefix(src, caseInsensitive) {
		return Pattern{Source: strings.TrimPrefix(src, caseInsensitive), Flags: "i"}
	}
	return Pattern{Source: src}
}

// ParsePattern reads a "/source/flags" literal. Anything not in that form is
// taken as a bare source with no flags.
func ParsePattern(lit string) Pattern {
	if len(lit) >= 2 && lit[0] == '/' {
		if end := strings.LastIndexByte(lit, '/'); end > 0 {
			return Pattern{Source: lit[1:end], Flags: lit[end+1:]}
		}
	}
	return Pattern{Source: lit}
}

// CaseInsensitive reports whether the i flag is set.
func (p Pattern) CaseInsensitive() bool { return strings.ContainsRune(p.Flags, 'i') }

// Normalize turns p into a Neo4j substring-match regex: ".*source.*",
// prefixed with (?i) when case-insensitive. Existing outer wildcards are
// stripped first so normalizing twice never stacks them.
//
//	Normalize(Pattern{Source: "test", Flags: "i"}) // "(?i).*test.*"
func Normalize(p Pattern) string {
	src := p.Source
	if src != wildcard {
		src = strings.TrimPrefix(src, wildcard)
		src = strings.TrimSuffix(src, wildcard)
	}

	var out string
	if src == "" || src == wildcard {
		out = wildcard
	} else {
		out = wildcard + src + wildcard
	}

	if p.CaseInsensitive() {
		return caseInsensitive + out
	}
	return out
}

// asPattern recognises every pattern shape a filter value may take.
func asPattern(v any) (Pattern, bool) {
	switch t := v.(type) {
	case Pattern:
		return t, true
	case *Pattern:
		if t == nil {
			return Pattern{}, false
		}
		return *t, true
	case *regexp.Regexp:
		if t == nil {
			return Pattern{}, false
		}
		return PatternOf(t), true
	case Filter:
		if len(t) != 2 {
			return Pattern{}, false
		}
		return patternFields(t.Get)
	case map[string]any:
		if len(t) != 2 {
			return Pattern{}, false
		}
		return patternFields(func(k string) (any, bool) { v, ok := t[k]; return v, ok })
	}
	return Pattern{}, false
}

func patternFields(get func(string) (any, bool)) (Pattern, bool) {
	rawSrc, ok := get("source")
	if !ok {
		return Pattern{}, false
	}
	rawFlags, ok := get("flags")
	if !ok {
		return Pattern{}, false
	}
	src, ok := rawSrc.(string)
	if !ok {
		return Pattern{}, false
	}
	flags, ok := rawFlags.(string)
	if !ok {
		return Pattern{}, false
	}
	return Pattern{Source: src, Flags: flags}, true
}
