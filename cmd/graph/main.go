package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/2oops/vue-collections/cmd/graph/templates"
	"github.com/2oops/vue-collections/instance"
	"github.com/2oops/vue-collections/observer"
	"github.com/urfave/cli/v3"
)

const (
	outKey      = "out"
	childrenKey = "children"
	writesKey   = "writes"
)

func main() {
	cmd := &cli.Command{
		Name:  "graph",
		Usage: "Print a Graphviz graph of a demo instance tree and its dependencies",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    outKey,
				Aliases: []string{"o"},
				Usage:   "Write the DOT output to this file instead of stdout",
			},
			&cli.UintFlag{
				Name:  childrenKey,
				Usage: "Number of list item instances under the root",
				Value: 3,
			},
			&cli.UintFlag{
				Name:  writesKey,
				Usage: "Writes applied and flushed before the graph is taken",
				Value: 1,
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	rt := observer.NewRuntime(observer.WithErrorHandler(func(err error, owner observer.Owner, info string) {
		log.Printf("%s: %v", info, err)
	}))
	root := demo(rt, int(cmd.Uint(childrenKey)))

	for i := 0; i < int(cmd.Uint(writesKey)); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		root.Set("title", fmt.Sprintf("todos (%d)", i+1))
		rt.Tick()
	}

	var w io.Writer = os.Stdout
	if path := cmd.String(outKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
		log.Printf("writing graph to %s", path)
	}
	templates.WriteGraph(w, templates.NewModel(root))
	return nil
}

// demo builds a todo list: the root renders a title and a remaining count, and
// every item is a child instance rendering its own entry.
func demo(rt *observer.Runtime, n int) *instance.Instance {
	items := make([]any, n)
	for i := range items {
		items[i] = map[string]any{"text": fmt.Sprintf("item %d", i), "done": i%2 == 1}
	}
	root := instance.New(rt, "todos", map[string]any{
		"title": "todos",
		"items": items,
	})

	if err := root.Computed("remaining", func(vm *instance.Instance) (any, error) {
		list := vm.Get("items").(*observer.Array)
		left := 0
		for i := 0; i < list.Len(); i++ {
			if !list.Get(i).(*observer.Object).Get("done").(bool) {
				left++
			}
		}
		return left, nil
	}); err != nil {
		log.Panic(err)
	}
	root.Watch(observer.Path("items"), func(value, old any) error {
		log.Printf("items changed")
		return nil
	}, instance.WatchOptions{Deep: true})
	root.Mount(func(vm *instance.Instance) (any, error) {
		return fmt.Sprintf("%s, %d left", vm.Get("title"), vm.Get("remaining")), nil
	}, nil)

	list := root.Get("items").(*observer.Array)
	for i := 0; i < list.Len(); i++ {
		item := list.Get(i).(*observer.Object)
		child := root.NewChild(fmt.Sprintf("item%d", i), map[string]any{"editing": false})
		child.Mount(func(vm *instance.Instance) (any, error) {
			mark := " "
			if item.Get("done").(bool) {
				mark = "x"
			}
			if vm.Get("editing").(bool) {
				return fmt.Sprintf("[%s] <input %q>", mark, item.Get("text")), nil
			}
			return fmt.Sprintf("[%s] %s", mark, item.Get("text")), nil
		}, nil)
	}
	return root
}
