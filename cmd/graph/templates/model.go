package templates

import (
	"cmp"
	"slices"
	"strconv"

	"github.com/2oops/vue-collections/instance"
	"github.com/2oops/vue-collections/observer"
)

// Model is what the Graph template renders.
type Model struct {
	Clusters []Cluster
	Deps     []DepNode
}

// Cluster groups the watchers of one instance.
type Cluster struct {
	Index    int
	Name     string
	Watchers []WatcherNode
}

type WatcherNode struct {
	ID    uint64
	Label string
	Shape string
}

// DepNode is a dependency with the ids of the watchers subscribed to it.
type DepNode struct {
	ID          uint64
	Label       string
	Subscribers []uint64
}

// NewModel collects root and its descendants, depth first. Dependencies are
// labelled with the data path they guard where one is known.
func NewModel(root *instance.Instance) *Model {
	b := &builder{
		labels:   map[uint64]string{},
		watchers: map[uint64]bool{},
		deps:     map[uint64]*observer.Dep{},
	}
	root.Runtime().Untrack(func() {
		b.visit(root, root.Name())
	})

	m := &Model{Clusters: b.clusters}
	for _, d := range b.deps {
		node := DepNode{ID: d.ID(), Label: b.labels[d.ID()]}
		if node.Label == "" {
			node.Label = "dep #" + strconv.FormatUint(d.ID(), 10)
		}
		for _, sub := range d.Subscribers() {
			if b.watchers[sub.ID()] {
				node.Subscribers = append(node.Subscribers, sub.ID())
			}
		}
		m.Deps = append(m.Deps, node)
	}
	slices.SortFunc(m.Deps, func(a, b DepNode) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return m
}

type builder struct {
	clusters []Cluster
	labels   map[uint64]string
	watchers map[uint64]bool
	deps     map[uint64]*observer.Dep
}

func (b *builder) visit(vm *instance.Instance, path string) {
	b.label(path, vm.Data())

	c := Cluster{Index: len(b.clusters), Name: path}
	for _, w := range vm.Watchers() {
		b.watchers[w.ID()] = true
		c.Watchers = append(c.Watchers, WatcherNode{
			ID:    w.ID(),
			Label: watcherLabel(w),
			Shape: watcherShape(w),
		})
		for _, d := range w.Deps() {
			b.deps[d.ID()] = d
		}
	}
	b.clusters = append(b.clusters, c)

	for _, child := range vm.Children() {
		b.visit(child, joinPath(path, child.Name()))
	}
}

func (b *builder) label(path string, o *observer.Object) {
	if _, ok := b.labels[o.Dep().ID()]; ok {
		return
	}
	b.labels[o.Dep().ID()] = path + " {}"
	for _, key := range o.Keys() {
		keyPath := joinPath(path, key)
		if d := o.PropertyDep(key); d != nil {
			b.labels[d.ID()] = keyPath
		}
		switch v := o.Get(key).(type) {
		case *observer.Object:
			b.label(keyPath, v)
		case *observer.Array:
			b.labels[v.Dep().ID()] = keyPath + " []"
		}
	}
}
