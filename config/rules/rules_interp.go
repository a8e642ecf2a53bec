package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
)

type SymbolKind int

const (
	SymbolStruct SymbolKind = iota
	SymbolEnum
	SymbolAlias
	// Free function
	SymbolFunc
	// Method bound as a free function (e.g. ImDrawList_AddLine)
	SymbolMethod
)

func (sym SymbolKind) String() string {
	switch sym {
	case SymbolStruct:
		return "Struct"
	case SymbolEnum:
		return "Enum"
	case SymbolAlias:
		return "Alias"
	case SymbolFunc:
		return "Func"
	case SymbolMethod:
		return "Method"
	default:
		panic("invalid symbol")
	}
}

func SymbolKindFromString(s string) (SymbolKind, bool) {
	for _, k := range []SymbolKind{SymbolStruct, SymbolEnum, SymbolAlias, SymbolFunc, SymbolMethod} {
		if strings.EqualFold(s, k.String()) {
			return k, true
		}
	}
	return -1, false
}

type Symbol struct {
	// Public name before rules are applied
	Name string
	// Owning struct of a method, namespace of other symbols
	Owner string
}

type SymbolSpec struct {
	Symbol
	Kind SymbolKind
}

// Rule selects symbols with regular expressions that must match the whole
// name, and applies its actions to them. Capture groups are available to
// Rename as \1 to \9, owner groups first.
type Rule struct {
	Select struct {
		Owner *regexp.Regexp `toml:"owner" yaml:"owner"`
		Name  *regexp.Regexp `toml:"name" yaml:"name"`
		Kind  string         `toml:"kind" yaml:"kind"`
	} `toml:"select" yaml:"select"`
	Actions struct {
		Include  *bool  `toml:"include" yaml:"include"`
		Rename   string `toml:"rename" yaml:"rename"`
		ToCasing string `toml:"to-casing" yaml:"to-casing"`
	} `toml:"action" yaml:"action"`
}

// Validate checks the rule's kind and casing names.
func (r *Rule) Validate() error {
	if r.Select.Kind != "" {
		if _, ok := SymbolKindFromString(r.Select.Kind); !ok {
			return fmt.Errorf("select: unknown symbol kind: %v", r.Select.Kind)
		}
	}
	switch r.Actions.ToCasing {
	case "", "snake", "camel", "lower-camel", "screaming-snake":
	default:
		return fmt.Errorf("action: unknown casing: %v", r.Actions.ToCasing)
	}
	return nil
}

func fullMatch(re *regexp.Regexp, s string) ([]string, bool) {
	m := re.FindStringSubmatch(s)
	if len(m) == 0 || len(m[0]) != len(s) {
		return nil, false
	}
	return m[1:], true
}

// Execute executes renaming rules on the given symbols, in rule order.
// Return value names maps each symbol to its new name, while included is
// whether the symbol should be public.
func Execute(rules []Rule, syms []SymbolSpec) (names map[Symbol]string, included map[Symbol]bool, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("execute rules: %w", err)
		}
	}()

	names = map[Symbol]string{}
	included = map[Symbol]bool{}
	taken := map[string]bool{} // to avoid collisions
	for _, sym := range syms {
		if _, ok := names[sym.Symbol]; ok {
			return nil, nil, fmt.Errorf("duplicate %v symbol: %v", sym.Kind, sym.Name)
		}
		names[sym.Symbol] = sym.Name
		included[sym.Symbol] = true
		taken[sym.Name] = true
	}

	for i := range rules {
		rule := &rules[i]
		if err := rule.Validate(); err != nil {
			return nil, nil, fmt.Errorf("rule %v: %w", i, err)
		}
		for _, sym := range syms {
			// Backrefs represent the '\1', '\2' etc. created by capture
			// groups in the owner and name selectors.
			var backrefs []string
			if rule.Select.Kind != "" && !strings.EqualFold(rule.Select.Kind, sym.Kind.String()) {
				continue
			}
			if rule.Select.Owner != nil {
				m, ok := fullMatch(rule.Select.Owner, sym.Owner)
				if !ok {
					continue
				}
				backrefs = append(backrefs, m...)
			}
			if rule.Select.Name != nil {
				m, ok := fullMatch(rule.Select.Name, names[sym.Symbol])
				if !ok {
					continue
				}
				backrefs = append(backrefs, m...)
			}

			renameTo := func(newName string) error {
				oldName := names[sym.Symbol]
				if newName == oldName {
					return nil
				}
				if taken[newName] {
					return fmt.Errorf("renaming %v to %v would cause a conflict",
						strconv.Quote(oldName), strconv.Quote(newName))
				}
				names[sym.Symbol] = newName
				delete(taken, oldName)
				taken[newName] = true
				return nil
			}

			if rule.Actions.Rename != "" {
				oldnew := make([]string, 0, 2*9)
				for i := range 9 {
					repl := ""
					if i < len(backrefs) {
						repl = backrefs[i]
					}
					oldnew = append(oldnew, `\`+strconv.Itoa(i+1), repl)
				}
				newName := strings.NewReplacer(oldnew...).Replace(rule.Actions.Rename)
				if err := renameTo(newName); err != nil {
					return nil, nil, err
				}
			}

			if rule.Actions.Include != nil {
				included[sym.Symbol] = *rule.Actions.Include
			}

			if rule.Actions.ToCasing != "" {
				name := names[sym.Symbol]
				var newName string
				switch rule.Actions.ToCasing {
				case "snake":
					newName = strcase.ToSnake(name)
				case "camel":
					newName = strcase.ToCamel(name)
				case "lower-camel":
					newName = strcase.ToLowerCamel(name)
				case "screaming-snake":
					newName = strcase.ToScreamingSnake(name)
				}
				if err := renameTo(newName); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	return
}
