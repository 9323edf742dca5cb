package task

import (
	"fmt"
	"io"
	"strings"
)

// Validate checks that an execution graph is a finite, well-formed tree:
// no nil children, no empty composites, no leaf without a body and no task
// that contains itself.
func Validate(root *Task) error {
	if root == nil {
		return fmt.Errorf("nil task")
	}
	visiting := make(map[*Task]bool)

	var visit func(t *Task, path []string) error
	visit = func(t *Task, path []string) error {
		path = append(path, t.Name)
		if visiting[t] {
			return fmt.Errorf("cycle detected involving '%s' (%s)", t.Name, strings.Join(path, " -> "))
		}
		switch t.Kind {
		case KindLeaf:
			if t.fn == nil {
				return fmt.Errorf("task '%s' has no body", t.Name)
			}
			return nil
		case KindSeries, KindParallel:
			if len(t.Children) == 0 {
				return fmt.Errorf("%s '%s' has no children", t.Kind, t.Name)
			}
		default:
			return fmt.Errorf("task '%s' has unknown kind %d", t.Name, t.Kind)
		}

		visiting[t] = true
		defer delete(visiting, t)
		for i, child := range t.Children {
			if child == nil {
				return fmt.Errorf("%s '%s' has a nil child at position %d", t.Kind, t.Name, i)
			}
			if err := visit(child, path); err != nil {
				return err
			}
		}
		return nil
	}
	return visit(root, nil)
}

// Leaves returns the names of the leaf tasks of a graph in definition order.
func Leaves(root *Task) []string {
	var out []string
	var walk func(t *Task)
	walk = func(t *Task) {
		if t.Kind == KindLeaf {
			out = append(out, t.Name)
			return
		}
		for _, c := range t.Children {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Fprint writes an indented tree view of the graph to w.
func Fprint(w io.Writer, root *Task) error {
	var walk func(t *Task, prefix string, last bool, top bool) error
	walk = func(t *Task, prefix string, last bool, top bool) error {
		branch, next := "", ""
		if !top {
			branch, next = "├── ", "│   "
			if last {
				branch, next = "└── ", "    "
			}
		}
		label := t.Name
		if t.Kind != KindLeaf {
			label = fmt.Sprintf("<%s> %s", t.Kind, t.Name)
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", prefix, branch, label); err != nil {
			return err
		}
		for i, c := range t.Children {
			if err := walk(c, prefix+next, i == len(t.Children)-1, false); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root, "", true, true)
}
