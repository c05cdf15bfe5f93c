package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/2oops/vue-collections/instance"
	"github.com/2oops/vue-collections/observer"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

const (
	iterationsKey = "iterations"
	widthsKey     = "widths"
	heightsKey    = "heights"
	profileKey    = "profile"
	syncKey       = "sync"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark",
		Usage: "Measure write-to-flush propagation through chains of computed watchers",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:    iterationsKey,
				Aliases: []string{"n"},
				Usage:   "Writes measured per shape",
				Value:   100,
			},
			&cli.IntSliceFlag{
				Name:  widthsKey,
				Usage: "Number of independent chains",
				Value: []int64{1, 10, 100, 1_000},
			},
			&cli.IntSliceFlag{
				Name:  heightsKey,
				Usage: "Number of computed watchers per chain",
				Value: []int64{1, 10, 100, 1_000},
			},
			&cli.StringFlag{
				Name:  profileKey,
				Usage: "Write a CPU profile to this file",
				Value: "default.pgo",
			},
			&cli.BoolFlag{
				Name:  syncKey,
				Usage: "Flush inside every write instead of on the next tick",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

type shape struct {
	w, h int
}

func run(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String(profileKey); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	var shapes []shape
	for _, w := range cmd.IntSlice(widthsKey) {
		for _, h := range cmd.IntSlice(heightsKey) {
			shapes = append(shapes, shape{int(w), int(h)})
		}
	}
	iters := int(cmd.Uint(iterationsKey))
	opts := []observer.Option{
		observer.WithAsync(!cmd.Bool(syncKey)),
		observer.WithErrorHandler(func(err error, owner observer.Owner, info string) {
			log.Panicf("%s: %v", info, err)
		}),
	}

	log.Printf("warming up")
	benchmark("Observer", shapes, iters, func(s shape) func(int) {
		return propagateObserver(observer.NewRuntime(opts...), s)
	})
	benchmark("Instance", shapes, iters, func(s shape) func(int) {
		return propagateInstance(observer.NewRuntime(opts...), s)
	})
	return nil
}

// benchmark times every write returned by setup, one table row per shape.
func benchmark(title string, shapes []shape, iters int, setup func(shape) func(int)) {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	for _, s := range shapes {
		tach := tachymeter.New(&tachymeter.Config{Size: iters})
		write := setup(s)
		for i := 0; i < iters; i++ {
			start := time.Now()
			write(i + 2)
			tach.AddTime(time.Since(start))
		}

		calc := tach.Calc()
		tbl.AppendRows([]table.Row{
			{
				fmt.Sprintf("propagate: %d * %d", s.w, s.h),
				calc.Time.Avg,
				calc.Time.Min,
				calc.Time.P75,
				calc.Time.P99,
				calc.Time.Max,
			},
		})
	}
	tbl.Render()
}

// propagateObserver builds s.w chains of s.h lazy watchers over one source
// property, each chain read by a plain watcher.
func propagateObserver(rt *observer.Runtime, s shape) func(int) {
	src := observer.NewObject(rt, map[string]any{"v": 1})

	for i := 0; i < s.w; i++ {
		read := func() int { return src.Get("v").(int) }
		for j := 0; j < s.h; j++ {
			prev := read
			c := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
				return prev() + 1, nil
			}), nil, observer.Options{Lazy: true})
			read = func() int {
				if c.Dirty() {
					if err := c.Evaluate(); err != nil {
						log.Panic(err)
					}
				}
				if rt.Target() != nil {
					c.Depend()
				}
				return c.Value().(int)
			}
		}
		last := read
		observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
			return last(), nil
		}), nil, observer.Options{})
	}

	return func(v int) {
		src.Set("v", v)
		rt.Tick()
	}
}

// propagateInstance builds the same graph out of computed properties on one
// instance, with a mounted child instance rendering the end of every chain.
func propagateInstance(rt *observer.Runtime, s shape) func(int) {
	root := instance.New(rt, "root", map[string]any{"v": 1})

	for i := 0; i < s.w; i++ {
		last := "v"
		for j := 0; j < s.h; j++ {
			prev := last
			last = fmt.Sprintf("c%d_%d", i, j)
			if err := root.Computed(last, func(vm *instance.Instance) (any, error) {
				return vm.Get(prev).(int) + 1, nil
			}); err != nil {
				log.Panic(err)
			}
		}
		key := last
		root.NewChild(fmt.Sprintf("column%d", i), nil).Mount(func(*instance.Instance) (any, error) {
			return root.Get(key), nil
		}, nil)
	}

	return func(v int) {
		root.Set("v", v)
		rt.Tick()
	}
}
