package element

// Node is any entry of a form tree. Structural nodes (forms, groups,
// composite widgets) expose their children; leaf elements return nil.
type Node interface {
	Children() []Node
}

// Element describes a form control and the declarations the validator
// consumes. Validation is opaque here: it is handed to the configured rule
// strategy untouched, nil meaning "no rule".
type Element struct {
	Name        string
	Type        string
	Value       any
	Placeholder string
	Required    bool
	Validation  any

	// Label attributes, consulted in this order when a readable field name is
	// needed: LabelMissing, GroupLabel, Label, Legend.
	LabelMissing string
	GroupLabel   string
	Label        string
	Legend       string

	Nodes []Node
}

// Children returns the nested nodes of a composite element.
func (e *Element) Children() []Node {
	if e == nil {
		return nil
	}
	return e.Nodes
}

// Group is a structural container such as a fieldset. Groups carry no value
// and are never validated themselves.
type Group struct {
	Name   string
	Label  string
	Legend string
	Nodes  []Node
}

// Children returns the grouped nodes.
func (g *Group) Children() []Node {
	if g == nil {
		return nil
	}
	return g.Nodes
}

// Form is the root of an element tree.
type Form struct {
	Name   string
	Action string
	Method string
	Nodes  []Node
}

// Children returns the top-level nodes.
func (f *Form) Children() []Node {
	if f == nil {
		return nil
	}
	return f.Nodes
}

// Visitor receives each element of a tree together with its nearest
// enclosing group (nil at the top level).
type Visitor func(el *Element, owner *Group)

// Walk visits every *Element under root depth-first, parents before their
// children, in declaration order.
func Walk(root Node, visit Visitor) {
	if root == nil || visit == nil {
		return
	}
	walk(root, nil, visit)
}

func walk(node Node, owner *Group, visit Visitor) {
	switch typed := node.(type) {
	case nil:
		return
	case *Element:
		if typed == nil {
			return
		}
		visit(typed, owner)
	case *Group:
		if typed == nil {
			return
		}
		owner = typed
	}

	for _, child := range node.Children() {
		walk(child, owner, visit)
	}
}

// Entry pairs an element with its owning group.
type Entry struct {
	Element *Element
	Owner   *Group
}

// Elements returns the flat, ordered sequence produced by Walk.
func Elements(root Node) []Entry {
	var out []Entry
	Walk(root, func(el *Element, owner *Group) {
		out = append(out, Entry{Element: el, Owner: owner})
	})
	return out
}

// Find returns the first element named name, or nil.
func Find(root Node, name string) *Element {
	var found *Element
	Walk(root, func(el *Element, _ *Group) {
		if found == nil && el.Name == name {
			found = el
		}
	})
	return found
}
