package resolve

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/refaktor/zigbind/decl"
)

type Match int

const (
	// MatchPrefix matches template instantiations by name prefix, e.g.
	// "ImVector<" matches "ImVector<ImWchar>".
	MatchPrefix Match = iota
	// MatchExact matches a fully-qualified name.
	MatchExact
	// MatchPattern matches a fully-qualified name against a regular
	// expression.
	MatchPattern
)

func (m Match) String() string {
	switch m {
	case MatchPrefix:
		return "prefix"
	case MatchExact:
		return "exact"
	case MatchPattern:
		return "pattern"
	default:
		panic("invalid match kind")
	}
}

// Rule maps every type name matched by its predicate to Canonical.
type Rule struct {
	Match Match
	// Prefix or exact name, depending on Match.
	Name      string
	Regexp    *regexp.Regexp
	Canonical string
}

// TemplateRule collapses every instantiation of template to canonical.
func TemplateRule(template, canonical string) Rule {
	if canonical == "" {
		canonical = template[strings.LastIndex(template, ":")+1:]
	}
	return Rule{Match: MatchPrefix, Name: template + "<", Canonical: canonical}
}

func PrefixRule(prefix, canonical string) Rule {
	return Rule{Match: MatchPrefix, Name: prefix, Canonical: canonical}
}

// AliasRule maps the fully-qualified name to canonical.
func AliasRule(qualifiedName, canonical string) Rule {
	return Rule{Match: MatchExact, Name: qualifiedName, Canonical: canonical}
}

func PatternRule(re *regexp.Regexp, canonical string) Rule {
	return Rule{Match: MatchPattern, Regexp: re, Canonical: canonical}
}

func (r Rule) matches(fullName string) bool {
	switch r.Match {
	case MatchPrefix:
		return strings.HasPrefix(fullName, r.Name)
	case MatchExact:
		return fullName == r.Name
	case MatchPattern:
		return r.Regexp.MatchString(fullName)
	default:
		return false
	}
}

func (r Rule) String() string {
	switch r.Match {
	case MatchPattern:
		return fmt.Sprintf("pattern %q => %v", r.Regexp, r.Canonical)
	default:
		return fmt.Sprintf("%v %q => %v", r.Match, r.Name, r.Canonical)
	}
}

// Rules is an ordered override table.
//
// Lookup tries prefix (template) rules first, then exact and pattern
// (alias) rules. Within each group, rules are tried in registration order
// and the first match wins.
type Rules []Rule

func (rs Rules) Validate() error {
	for i, r := range rs {
		if r.Canonical == "" {
			return fmt.Errorf("override %v: missing canonical name", i)
		}
		switch r.Match {
		case MatchPrefix, MatchExact:
			if r.Name == "" {
				return fmt.Errorf("override %v: empty %v", i, r.Match)
			}
		case MatchPattern:
			if r.Regexp == nil {
				return fmt.Errorf("override %v: missing pattern", i)
			}
		default:
			return fmt.Errorf("override %v: invalid match kind %v", i, int(r.Match))
		}
	}
	return nil
}

// Lookup returns the canonical name for ref, if any rule matches.
func (rs Rules) Lookup(ref decl.TypeRef) (string, bool) {
	if ref.Kind != decl.Named || ref.Anonymous {
		return "", false
	}
	return rs.LookupName(ref.FullName(), len(ref.Args) > 0)
}

// LookupName is like [Rules.Lookup] for a bare name. isInstance reports
// whether name carries generic arguments.
func (rs Rules) LookupName(name string, isInstance bool) (string, bool) {
	if isInstance || strings.Contains(name, "<") {
		for _, r := range rs {
			if r.Match == MatchPrefix && r.matches(name) {
				return r.Canonical, true
			}
		}
	}
	for _, r := range rs {
		if r.Match != MatchPrefix && r.matches(name) {
			return r.Canonical, true
		}
	}
	return "", false
}
