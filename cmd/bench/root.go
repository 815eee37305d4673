package bench

import (
	"fmt"
	"math"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dEBR/cmd/util"
	"github.com/ValentinKolb/dEBR/lib/ebr"
	"github.com/ValentinKolb/dEBR/lib/lockfree"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var Logger = logger.GetLogger("bench")

var (
	// BenchCmd benchmarks the hot paths of the reclamation domain
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmark pin, retire and the lock-free containers",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchThreads = 1
	benchSkip    = make([]string, 0)
	benchDomain  ebr.Config
)

func init() {
	util.SetupDomainFlags(BenchCmd)

	key := "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. pin,ring)"))
	key = "threads"
	BenchCmd.Flags().Int(key, 1, util.WrapString("Goroutines per CPU for the parallel benchmarks"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	conf, err := util.GetDomainConfig("bench")
	if err != nil {
		return err
	}
	benchDomain = conf
	benchThreads = max(viper.GetInt("threads"), 1)
	benchSkip = strings.Split(viper.GetString("skip"), ",")
	return nil
}

// Benchmark is a named benchmark. Body prepares shared state and returns the
// loop every parallel goroutine runs with its own handle.
type Benchmark struct {
	Name string
	Body func() func(h *ebr.Handle, pb *testing.PB)
}

// Benchmarks lists all benchmarks in the order they run
var Benchmarks = []Benchmark{
	{
		Name: "pin",
		Body: func() func(*ebr.Handle, *testing.PB) {
			return func(h *ebr.Handle, pb *testing.PB) {
				for pb.Next() {
					g := h.Pin()
					g.Release()
				}
			}
		},
	},
	{
		Name: "retire",
		Body: func() func(*ebr.Handle, *testing.PB) {
			return func(h *ebr.Handle, pb *testing.PB) {
				for pb.Next() {
					g := h.Pin()
					h.RetireFunc(func() {}, &g)
					g.Release()
				}
			}
		},
	},
	{
		Name: "stack",
		Body: func() func(*ebr.Handle, *testing.PB) {
			s := lockfree.NewStack[int]()
			return func(h *ebr.Handle, pb *testing.PB) {
				for i := 0; pb.Next(); i++ {
					s.Push(h, i)
					s.Pop(h)
				}
			}
		},
	},
	{
		Name: "queue",
		Body: func() func(*ebr.Handle, *testing.PB) {
			q := lockfree.NewQueue[int]()
			return func(h *ebr.Handle, pb *testing.PB) {
				for i := 0; pb.Next(); i++ {
					q.Enqueue(h, i)
					q.Dequeue(h)
				}
			}
		},
	},
	{
		Name: "ring",
		Body: func() func(*ebr.Handle, *testing.PB) {
			r := lockfree.NewRing[int](1024)
			return func(_ *ebr.Handle, pb *testing.PB) {
				for i := 0; pb.Next(); i++ {
					r.Push(i)
					r.Pop()
				}
			}
		},
	},
}

// Execute runs one benchmark. The domain is created per invocation with enough
// slots for every parallel goroutine.
func Execute(bm Benchmark, conf ebr.Config, threads int) testing.BenchmarkResult {
	return testing.Benchmark(func(b *testing.B) {
		conf := conf
		conf.Capacity = max(conf.Capacity, threads*runtime.GOMAXPROCS(0)+1)
		d, err := ebr.NewDomain(conf)
		if err != nil {
			b.Fatal(err)
		}
		b.Cleanup(d.Close)

		body := bm.Body()
		b.SetParallelism(threads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			h := d.Register()
			defer h.Unregister()
			body(h, pb)
		})
	})
}

func shouldSkip(name string) bool {
	return slices.Contains(benchSkip, name)
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Benchmarking epoch-based reclamation")
	fmt.Println(benchDomain.String())
	fmt.Printf("Threads: %d per CPU (%d CPUs)\n\n", benchThreads, runtime.GOMAXPROCS(0))

	if benchDomain.Drain == ebr.DrainImmediate {
		// parallel workers leave while others are still pinned
		Logger.Warningf("immediate drain is only safe once all other workers stopped, using deferred drain")
		benchDomain.Drain = ebr.DrainDeferred
	}

	for _, bm := range Benchmarks {
		if shouldSkip(bm.Name) {
			printResult(bm.Name, testing.BenchmarkResult{})
			continue
		}
		printResult(bm.Name, Execute(bm, benchDomain, benchThreads))
	}
	return nil
}

// printResult prints the result of a single benchmark
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}
