package discovery

import (
	"sort"
	"strings"
	"sync"

	"ctr/internal/domain"
)

// Registry is an in-memory namespace tree. Definitions register a typed
// function table under a dotted namespace path.
type Registry struct {
	mu   sync.Mutex
	root *registryNode
}

type registryNode struct {
	name     string
	children map[string]*registryNode
	defs     []domain.Definition
}

// NewRegistry creates an empty Registry
func NewRegistry() *Registry {
	return &Registry{root: newRegistryNode("")}
}

func newRegistryNode(name string) *registryNode {
	return &registryNode{name: name, children: make(map[string]*registryNode)}
}

// Method builds a method declared on the definition it is registered with
func Method(name string, body any) domain.Method {
	return domain.Method{Name: name, Body: body}
}

// InstanceMethod builds a method that needs a receiver of the given type.
// It is reported during discovery and never invoked.
func InstanceMethod(receiver, name string, body any) domain.Method {
	return domain.Method{Name: name, Receiver: receiver, Body: body}
}

// Define registers a definition under namespace ("" for the root)
func (r *Registry) Define(namespace, name string, methods ...domain.Method) domain.Definition {
	def := domain.Definition{Name: name, Methods: append([]domain.Method(nil), methods...)}
	r.Add(namespace, def)
	return def
}

// Extend registers a definition that inherits base's methods. Methods in
// methods with the same name as an inherited one override it in place.
func (r *Registry) Extend(namespace, name string, base domain.Definition, methods ...domain.Method) domain.Definition {
	own := make(map[string]domain.Method, len(methods))
	for _, m := range methods {
		own[m.Name] = m
	}

	def := domain.Definition{Name: name}
	for _, m := range base.Methods {
		if o, ok := own[m.Name]; ok {
			def.Methods = append(def.Methods, o)
			delete(own, m.Name)
			continue
		}
		if m.DeclaredBy == "" {
			m.DeclaredBy = base.Name
		}
		def.Methods = append(def.Methods, m)
	}
	for _, m := range methods {
		if _, ok := own[m.Name]; ok {
			def.Methods = append(def.Methods, m)
		}
	}

	r.Add(namespace, def)
	return def
}

// Add registers a prepared definition under namespace
func (r *Registry) Add(namespace string, def domain.Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.root
	if namespace != "" {
		for _, part := range strings.Split(namespace, ".") {
			if part == "" {
				continue
			}
			child, ok := n.children[part]
			if !ok {
				child = newRegistryNode(part)
				n.children[part] = child
			}
			n = child
		}
	}
	n.defs = append(n.defs, def)
}

// Root returns the root namespace
func (r *Registry) Root() Namespace {
	return registryNamespace{r: r, node: r.root}
}

type registryNamespace struct {
	r    *Registry
	node *registryNode
}

func (ns registryNamespace) Name() string {
	return ns.node.name
}

func (ns registryNamespace) Children() ([]Namespace, error) {
	ns.r.mu.Lock()
	defer ns.r.mu.Unlock()

	names := make([]string, 0, len(ns.node.children))
	for name := range ns.node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	children := make([]Namespace, 0, len(names))
	for _, name := range names {
		children = append(children, registryNamespace{r: ns.r, node: ns.node.children[name]})
	}
	return children, nil
}

func (ns registryNamespace) Definitions() ([]domain.Definition, error) {
	ns.r.mu.Lock()
	defer ns.r.mu.Unlock()
	return append([]domain.Definition(nil), ns.node.defs...), nil
}
