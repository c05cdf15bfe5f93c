package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/2oops/vue-collections/observer"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

const (
	repeatsKey = "repeats"
	scaleKey   = "scale"
	onlyKey    = "only"
)

func main() {
	cmd := &cli.Command{
		Name:  "benchmark_dynamic",
		Usage: "Run layered graphs of computed watchers whose dependencies change between runs",
		Flags: []cli.Flag{
			&cli.UintFlag{
				Name:  repeatsKey,
				Usage: "Timed runs per config, the best one is reported",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  scaleKey,
				Usage: "Multiplier applied to every config's iteration count",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  onlyKey,
				Usage: "Run only configs whose name contains this text",
			},
		},
		Action: run,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

var perfTestCfgs = []benchmarkTestConfig{
	{
		name:           "simple component",
		width:          10,
		staticFraction: 1,
		nSources:       2,
		totalLayers:    5,
		readFraction:   0.2,
		iterations:     600000,
	},
	{
		name:           "dynamic component",
		width:          10,
		totalLayers:    10,
		staticFraction: 0.75,
		nSources:       6,
		readFraction:   0.2,
		iterations:     15000,
	},
	{
		name:           "large web app",
		width:          1000,
		totalLayers:    12,
		staticFraction: 0.95,
		nSources:       4,
		readFraction:   1,
		iterations:     7000,
	},
	{
		name:           "wide dense",
		width:          1000,
		totalLayers:    5,
		staticFraction: 1,
		nSources:       25,
		readFraction:   1,
		iterations:     3000,
	},
	{
		name:           "deep",
		width:          5,
		totalLayers:    500,
		staticFraction: 1,
		nSources:       3,
		readFraction:   1,
		iterations:     500,
	},
	{
		name:           "very dynamic",
		width:          100,
		totalLayers:    15,
		staticFraction: 0.5,
		nSources:       6,
		readFraction:   1,
		iterations:     2000,
	},
}

type benchmarkTestConfig struct {
	name           string  // unique name of the test
	width          int64   // width of the dependency graph
	totalLayers    int64   // depth of the dependency graph
	staticFraction float64 // fraction of nodes that always read all their sources
	nSources       int64   // sources read by each node
	readFraction   float64 // fraction of the last layer read after each write
	iterations     int64
}

type results struct {
	sum      int
	count    int64
	duration time.Duration
}

func run(ctx context.Context, cmd *cli.Command) error {
	log.Print("Starting dynamic graph benchmark, please wait...")
	defer log.Print("Finished dynamic graph benchmark")

	repeats := int(cmd.Uint(repeatsKey))
	scale := cmd.Float(scaleKey)
	only := cmd.String(onlyKey)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"size", "nSources", "read%", "static%",
		"nTimes", "test", "time", "evaluations", "updateRate", "sum", "title",
	})

	for _, cfg := range perfTestCfgs {
		if only != "" && !strings.Contains(cfg.name, only) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		cfg.iterations = max(1, int64(math.Round(float64(cfg.iterations)*scale)))
		log.Printf("Running '%s' config", cfg.name)

		counter := new(int64)
		rt := observer.NewRuntime(observer.WithErrorHandler(func(err error, owner observer.Owner, info string) {
			log.Panicf("%s: %v", info, err)
		}))
		graph := benchmarkMakeGraph(rt, &benchmarkMakeGraphConfig{
			counter:        counter,
			width:          cfg.width,
			totalLayers:    cfg.totalLayers,
			nSources:       cfg.nSources,
			staticFraction: cfg.staticFraction,
		})

		runOnce := func() int {
			return benchmarkRunGraph(graph, cfg.iterations, cfg.readFraction)
		}
		// warm up
		runOnce()

		best := &results{duration: time.Hour}
		for i := 0; i < repeats; i++ {
			log.Printf("Running '%s' config, iteration %d/%d %d%%", cfg.name, i+1, repeats, (i+1)*100/repeats)
			*counter = 0
			start := time.Now()
			sum := runOnce()
			duration := time.Since(start)

			if duration < best.duration {
				best.duration = duration
				best.sum = sum
				best.count = *counter
			}
		}

		updateRate := float64(best.count) / (float64(best.duration) / float64(time.Millisecond))

		table.Append([]string{
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers),
			fmt.Sprint(cfg.nSources),
			fmt.Sprint(cfg.readFraction),
			fmt.Sprint(cfg.staticFraction),
			humanize.Comma(cfg.iterations),
			cfg.name,
			fmt.Sprint(best.duration),
			humanize.Comma(best.count),
			humanize.Comma(int64(updateRate)),
			humanize.Comma(int64(best.sum)),
			title(cfg),
		})
	}
	table.Render()
	return nil
}

func title(cfg benchmarkTestConfig) string {
	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources))
	if cfg.staticFraction < 1 {
		sb.WriteString(" dynamic")
	}
	if cfg.readFraction < 1 {
		sb.WriteString(fmt.Sprintf(" read %0.2f%%", 100*cfg.readFraction))
	}
	return sb.String()
}

// cell is one readable node of the graph.
type cell interface {
	Read() int
}

// source is a key of the reactive object holding the graph inputs.
type source struct {
	state *observer.Object
	key   string
}

func (s *source) Read() int { return s.state.Get(s.key).(int) }

func (s *source) Write(v int) { s.state.Set(s.key, v) }

// computed is a lazy watcher read the way component computed properties are:
// evaluated when dirty, and forwarding its dependencies to the reader.
type computed struct {
	rt *observer.Runtime
	w  *observer.Watcher
}

func newComputed(rt *observer.Runtime, fn func() int) *computed {
	w := observer.NewWatcher(rt, nil, observer.Func(func(observer.Owner) (any, error) {
		return fn(), nil
	}), nil, observer.Options{Lazy: true})
	return &computed{rt: rt, w: w}
}

func (c *computed) Read() int {
	if c.w.Dirty() {
		if err := c.w.Evaluate(); err != nil {
			log.Panic(err)
		}
	}
	if c.rt.Target() != nil {
		c.w.Depend()
	}
	return c.w.Value().(int)
}

type benchmarkGraph struct {
	sources []*source
	layers  [][]cell
}

type benchmarkMakeGraphConfig struct {
	counter                      *int64
	width, totalLayers, nSources int64
	staticFraction               float64
}

func benchmarkMakeGraph(rt *observer.Runtime, cfg *benchmarkMakeGraphConfig) *benchmarkGraph {
	data := make(map[string]any, cfg.width)
	for i := int64(0); i < cfg.width; i++ {
		data[fmt.Sprintf("s%d", i)] = int(i)
	}
	state := observer.NewObject(rt, data)

	graph := &benchmarkGraph{sources: make([]*source, cfg.width)}
	row := make([]cell, cfg.width)
	for i := range graph.sources {
		graph.sources[i] = &source{state: state, key: fmt.Sprintf("s%d", i)}
		row[i] = graph.sources[i]
	}

	random := rand.New(rand.NewSource(0))
	graph.layers = make([][]cell, cfg.totalLayers-1)
	for l := range graph.layers {
		row = makeBenchmarkRow(rt, row, cfg, random)
		graph.layers[l] = row
	}
	return graph
}

// benchmarkRunGraph writes one source per iteration and reads some or all of
// the leaves. It returns the sum of the leaves read.
func benchmarkRunGraph(graph *benchmarkGraph, iterations int64, readFraction float64) int {
	random := rand.New(rand.NewSource(0))
	leaves := graph.layers[len(graph.layers)-1]
	skipCount := int(math.Round(float64(len(leaves)) * (1 - readFraction)))
	readLeaves := benchmarkRemoveElems(leaves, skipCount, random)

	for i := 0; i < int(iterations); i++ {
		sourceDex := i % len(graph.sources)
		graph.sources[sourceDex].Write(i + sourceDex)

		for _, leaf := range readLeaves {
			leaf.Read()
		}
	}

	sum := 0
	for _, leaf := range readLeaves {
		sum += leaf.Read()
	}
	return sum
}

func benchmarkRemoveElems[T any](src []T, rmCount int, rand *rand.Rand) []T {
	copyWithRemovals := make([]T, len(src))
	copy(copyWithRemovals, src)
	for i := 0; i < rmCount; i++ {
		rmDex := rand.Intn(len(copyWithRemovals))
		copyWithRemovals[rmDex] = copyWithRemovals[len(copyWithRemovals)-1]
		copyWithRemovals = copyWithRemovals[:len(copyWithRemovals)-1]
	}
	return copyWithRemovals
}

func makeBenchmarkRow(rt *observer.Runtime, sources []cell, cfg *benchmarkMakeGraphConfig, random *rand.Rand) []cell {
	row := make([]cell, len(sources))

	for myDex := range sources {
		mySources := make([]cell, 0, cfg.nSources)
		for sourceDex := 0; sourceDex < int(cfg.nSources); sourceDex++ {
			mySources = append(mySources, sources[(myDex+sourceDex)%len(sources)])
		}

		if random.Float64() < cfg.staticFraction {
			// static node, always reads every source
			row[myDex] = newComputed(rt, func() int {
				*cfg.counter++
				sum := 0
				for _, s := range mySources {
					sum += s.Read()
				}
				return sum
			})
			continue
		}

		first := mySources[0]
		tail := mySources[1:]
		row[myDex] = newComputed(rt, func() int {
			*cfg.counter++
			sum := first.Read()
			shouldDrop := sum&0x1 > 0
			dropDex := sum % len(tail)

			for i := 0; i < len(tail); i++ {
				if shouldDrop && i == dropDex {
					continue
				}
				sum += tail[i].Read()
			}
			return sum
		})
	}
	return row
}
