package element

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Subset selects part of a tree: elements whose name is listed in Names, and
// every element below a group whose name or label is listed in Groups
// (case-insensitive). An empty Subset selects everything.
type Subset struct {
	Names  []string
	Groups []string
}

// Empty reports whether s selects the whole tree.
func (s Subset) Empty() bool {
	return len(ParseTokens(s.Names)) == 0 && len(ParseTokens(s.Groups)) == 0
}

// Apply returns a form holding the selected part of root. Groups are copied
// so owner labels keep resolving; groups left without elements are dropped.
// Nodes that are neither elements nor groups are replaced by their selected
// children. root itself is never modified.
func (s Subset) Apply(root Node) *Form {
	form := &Form{}
	if f, ok := root.(*Form); ok && f != nil {
		form.Name, form.Action, form.Method = f.Name, f.Action, f.Method
	}
	if root == nil {
		return form
	}

	nodes := root.Children()
	if _, ok := root.(*Form); !ok {
		nodes = []Node{root}
	}

	m := newSubsetMatcher(s)
	if m.empty() {
		form.Nodes = append([]Node(nil), nodes...)
		return form
	}
	form.Nodes = m.filter(nodes, false)
	return form
}

type subsetMatcher struct {
	names  map[string]struct{}
	groups map[string]struct{}
}

func newSubsetMatcher(s Subset) subsetMatcher {
	m := subsetMatcher{}
	if names := ParseTokens(s.Names); len(names) > 0 {
		m.names = make(map[string]struct{}, len(names))
		for _, name := range names {
			m.names[name] = struct{}{}
		}
	}
	if groups := ParseTokens(s.Groups); len(groups) > 0 {
		m.groups = make(map[string]struct{}, len(groups))
		for _, group := range groups {
			m.groups[normaliseToken(group)] = struct{}{}
		}
	}
	return m
}

func (m subsetMatcher) empty() bool {
	return len(m.names) == 0 && len(m.groups) == 0
}

func (m subsetMatcher) matchesName(name string) bool {
	_, ok := m.names[strings.TrimSpace(name)]
	return ok
}

func (m subsetMatcher) matchesGroup(g *Group) bool {
	for _, candidate := range []string{g.Name, g.Label} {
		if token := normaliseToken(candidate); token != "" {
			if _, ok := m.groups[token]; ok {
				return true
			}
		}
	}
	return false
}

func (m subsetMatcher) filter(nodes []Node, keepAll bool) []Node {
	var out []Node
	for _, node := range nodes {
		switch typed := node.(type) {
		case nil:
			continue
		case *Element:
			if typed == nil {
				continue
			}
			children := m.filter(typed.Nodes, keepAll)
			if keepAll || m.matchesName(typed.Name) {
				clone := *typed
				clone.Nodes = children
				out = append(out, &clone)
				continue
			}
			out = append(out, children...)
		case *Group:
			if typed == nil {
				continue
			}
			children := m.filter(typed.Nodes, keepAll || m.matchesGroup(typed))
			if len(children) == 0 {
				continue
			}
			clone := *typed
			clone.Nodes = children
			out = append(out, &clone)
		default:
			out = append(out, m.filter(node.Children(), keepAll)...)
		}
	}
	return out
}

// ParseTokens splits every entry of raw as a token list (see ParseTokenList)
// and returns the combined, de-duplicated tokens.
func ParseTokens(raw []string) []string {
	var tokens []string
	for _, entry := range raw {
		tokens = append(tokens, ParseTokenList(entry)...)
	}
	return dedupe(tokens)
}

// ParseTokenList reads a comma separated list or a JSON array of tokens.
// Tokens are trimmed and de-duplicated; case is preserved.
func ParseTokenList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	if strings.HasPrefix(raw, "[") {
		var parsed []any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			tokens := make([]string, 0, len(parsed))
			for _, entry := range parsed {
				if token := strings.TrimSpace(anyToString(entry)); token != "" {
					tokens = append(tokens, token)
				}
			}
			return dedupe(tokens)
		}
	}

	parts := strings.Split(raw, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if token := strings.TrimSpace(part); token != "" {
			tokens = append(tokens, token)
		}
	}
	return dedupe(tokens)
}

func normaliseToken(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

func anyToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
