package model

import (
	"fmt"
	"io"
	"strings"
)

// Print writes a readable dump of an instance and its property values,
// descending at most maxDepth levels. Instances already printed on the
// current path are not expanded again.
func Print(w io.Writer, instance CoreInstance, maxDepth int) error {
	p := &printer{w: w, maxDepth: maxDepth, onPath: make(map[CoreInstance]bool)}
	p.print(instance, 0)
	return p.err
}

type printer struct {
	w        io.Writer
	maxDepth int
	onPath   map[CoreInstance]bool
	err      error
}

func (p *printer) printf(depth int, format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, strings.Repeat("    ", depth)+format+"\n", args...)
}

func (p *printer) print(instance CoreInstance, depth int) {
	if value, ok := instance.Primitive(); ok {
		p.printf(depth, "%v instance %s", value, classifierName(instance))
		return
	}
	p.printf(depth, "%s instance %s", displayName(instance), classifierName(instance))
	if depth >= p.maxDepth || p.onPath[instance] {
		return
	}
	p.onPath[instance] = true
	defer delete(p.onPath, instance)
	for _, key := range instance.Keys() {
		p.printf(depth+1, "%s(Property):", key)
		for _, value := range instance.ValuesToMany(key) {
			p.print(value, depth+2)
		}
	}
}

func displayName(instance CoreInstance) string {
	if name := instance.Name(); name != "" {
		return name
	}
	return fmt.Sprintf("Anonymous_%d", instance.ID())
}

func classifierName(instance CoreInstance) string {
	if c := instance.Classifier(); c != nil {
		return c.Name()
	}
	return "<none>"
}
