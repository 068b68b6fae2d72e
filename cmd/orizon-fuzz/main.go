package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/orizon-lang/orizon-fuzz/internal/artifactpool"
	"github.com/orizon-lang/orizon-fuzz/internal/cli"
	"github.com/orizon-lang/orizon-fuzz/internal/corpuswatch"
	"github.com/orizon-lang/orizon-fuzz/internal/corpusversion"
	"github.com/orizon-lang/orizon-fuzz/internal/coveragepool"
	"github.com/orizon-lang/orizon-fuzz/internal/coversensor"
	"github.com/orizon-lang/orizon-fuzz/internal/driver"
	"github.com/orizon-lang/orizon-fuzz/internal/failuresensor"
	"github.com/orizon-lang/orizon-fuzz/internal/feature"
	"github.com/orizon-lang/orizon-fuzz/internal/poolsensor"
	"github.com/orizon-lang/orizon-fuzz/internal/runtime/netstack"
	"github.com/orizon-lang/orizon-fuzz/internal/runtime/vfs"
	"github.com/orizon-lang/orizon-fuzz/internal/sink"
	"github.com/orizon-lang/orizon-fuzz/internal/sink/quicsink"
	"github.com/orizon-lang/orizon-fuzz/internal/testrunner/fuzz"
)

func main() {
	var (
		dur         time.Duration
		seed        int64
		maxLen      int
		numEdges    int
		corpusDir   string
		outRoot     string
		watch       bool
		quicAddr    string
		quicCert    string
		quicKey     string
		printStats  bool
		maxExecs    int
		crashMarker string
		minimize    bool
		showVersion bool
		jsonVersion bool
	)

	flag.DurationVar(&dur, "duration", 5*time.Second, "fuzzing duration")
	flag.Int64Var(&seed, "seed", 0, "random seed (0=time)")
	flag.IntVar(&maxLen, "max", 4096, "max candidate length in bytes")
	flag.IntVar(&numEdges, "edges", 1<<16, "size of the edge-counter array")
	flag.StringVar(&corpusDir, "corpus-dir", "", "optional seed directory, one file per seed")
	flag.StringVar(&outRoot, "out", "", "pool root directory for the NDJSON event log and VERSION marker")
	flag.BoolVar(&watch, "watch", false, "watch -corpus-dir for externally added seeds while running")
	flag.StringVar(&quicAddr, "quic-addr", "", "optional address to serve a live QUIC event stream on (e.g. :4242)")
	flag.StringVar(&quicCert, "quic-cert", "", "TLS certificate file for -quic-addr (default: generate a self-signed cert)")
	flag.StringVar(&quicKey, "quic-key", "", "TLS key file for -quic-addr, required with -quic-cert")
	flag.BoolVar(&printStats, "stats", false, "print pool statistics when the run finishes")
	flag.IntVar(&maxExecs, "max-execs", 0, "stop after this many executions (0=duration-bound only)")
	flag.StringVar(&crashMarker, "crash-marker", "CRASH", "demo target fails when a candidate contains this byte string")
	flag.BoolVar(&minimize, "minimize", false, "delta-debug the first admitted crash after the run finishes")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.BoolVar(&jsonVersion, "json", false, "with -version, print as JSON")
	flag.Parse()

	if showVersion {
		cli.PrintVersion("orizon-fuzz", jsonVersion)

		return
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	logger := log.New(os.Stderr, "orizon-fuzz: ", log.LstdFlags)

	fsys := vfs.NewOS()

	var ndjson *sink.File[[]byte, artifactpool.Index]

	var ndjsonCov *sink.File[[]byte, coveragepool.Index]

	if outRoot != "" {
		if err := fsys.MkdirAll(outRoot, 0o755); err != nil {
			logger.Fatalf("create pool root %s: %v", outRoot, err)
		}

		if err := corpusversion.EnsureCompatible(fsys, outRoot); err != nil {
			logger.Fatalf("pool root %s: %v", outRoot, err)
		}

		f, err := os.OpenFile(vfs.Join(outRoot, "events.ndjson"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Fatalf("open events.ndjson: %v", err)
		}
		defer f.Close()

		ndjson = sink.NewFile[[]byte, artifactpool.Index](f, encodeBytes)
		ndjsonCov = sink.NewFile[[]byte, coveragepool.Index](f, encodeBytes)
	}

	var quicServer *quicsink.Server

	if quicAddr != "" {
		var tlsCfg *tls.Config

		if quicCert != "" {
			var err error

			tlsCfg, err = netstack.LoadTLSConfig(quicCert, quicKey)
			if err != nil {
				logger.Fatalf("load quic tls config: %v", err)
			}
		}

		var err error

		quicServer, err = quicsink.Listen(quicAddr, tlsCfg)
		if err != nil {
			logger.Fatalf("quic listen on %s: %v", quicAddr, err)
		}
		defer quicServer.Close()

		logger.Printf("serving live event stream on %s", quicServer.Addr())

		go func() {
			for {
				if err := quicServer.AcceptObserver(context.Background()); err != nil {
					return
				}

				logger.Printf("observer connected")
			}
		}()
	}

	cov := coversensor.Shared(numEdges)
	var fail failuresensor.Sensor

	artifacts := artifactpool.New[[]byte]("artifacts", 0)
	coverage := coveragepool.New[[]byte]("coverage", numEdges, coversensor.DefaultCompareFeatureSpace)

	var firstCrash []byte

	artifactHandlers := []poolsensor.EventHandler[[]byte, artifactpool.Index]{
		loggingHandler[[]byte, artifactpool.Index](logger, "artifacts"),
		captureFirstCrash(&firstCrash),
	}
	if ndjson != nil {
		artifactHandlers = append(artifactHandlers, ndjson.Handle)
	}

	if quicServer != nil {
		artifactHandlers = append(artifactHandlers, quicsink.EventHandler[[]byte, artifactpool.Index](quicServer, encodeBytes))
	}

	coverageHandlers := []poolsensor.EventHandler[[]byte, coveragepool.Index]{loggingHandler[[]byte, coveragepool.Index](logger, "coverage")}
	if ndjsonCov != nil {
		coverageHandlers = append(coverageHandlers, ndjsonCov.Handle)
	}

	if quicServer != nil {
		coverageHandlers = append(coverageHandlers, quicsink.EventHandler[[]byte, coveragepool.Index](quicServer, encodeBytes))
	}

	d := driver.New[[]byte](cov, &fail, driver.Config{
		Logger:        logger,
		MaxIterations: maxExecs,
		TestSite:      "orizon-fuzz.target",
	})

	d.Bind(driver.Bind[[]byte, artifactpool.Index, *failuresensor.TestFailure](
		"artifacts", artifacts, &fail, cloneBytes, sink.Tee(artifactHandlers...),
	))
	d.Bind(driver.Bind[[]byte, coveragepool.Index, feature.Feature](
		"coverage", coverage, coveragepool.FeatureSensor{Sensor: cov}, cloneBytes, sink.Tee(coverageHandlers...),
	))

	seeds := loadSeedCorpus(fsys, corpusDir, logger)

	var corpusWatcher *corpuswatch.Watcher

	if watch && corpusDir != "" {
		var err error

		corpusWatcher, err = corpuswatch.New(corpusDir)
		if err != nil {
			logger.Fatalf("watch %s: %v", corpusDir, err)
		}
		defer corpusWatcher.Close()
	}

	mutator := newByteMutator(seed, maxLen, seeds, corpusWatcher)
	target := demoTarget([]byte(crashMarker))

	if err := d.RunFor(dur, mutator, target); err != nil {
		logger.Fatalf("run: %v", err)
	}

	if printStats {
		fmt.Printf("artifacts: %s\n", artifacts.Stats())
		fmt.Printf("coverage:  %s\n", coverage.Stats())
	}

	if minimize && firstCrash != nil {
		still := func(data []byte) bool { return target(data) != nil }
		shrunk := fuzz.Minimize(seed, firstCrash, still, 2*time.Second)
		logger.Printf("minimized crash: %d bytes -> %d bytes: %x", len(firstCrash), len(shrunk), shrunk)
	}
}

// captureFirstCrash remembers the first admitted artifact, so a run can be
// followed by a delta-debugging minimization pass over it.
func captureFirstCrash(out *[]byte) poolsensor.EventHandler[[]byte, artifactpool.Index] {
	return func(delta poolsensor.CorpusDelta[[]byte, artifactpool.Index], _ poolsensor.Stats) error {
		if *out == nil && delta.Add != nil && delta.Add.Case != nil {
			*out = append([]byte(nil), (*delta.Add.Case)...)
		}

		return nil
	}
}

// demoTarget is a minimal program under test: it fails whenever a candidate
// contains marker, standing in for the real target an embedder supplies
// (the mutator library and the target itself are named-but-unimplemented
// collaborators per spec.md §1).
func demoTarget(marker []byte) driver.Test[[]byte] {
	return func(value []byte) error {
		if len(marker) > 0 && bytes.Contains(value, marker) {
			return errors.New("candidate contains crash marker")
		}

		return nil
	}
}

func cloneBytes(v []byte) []byte {
	return append([]byte(nil), v...)
}

func encodeBytes(v []byte) ([]byte, error) {
	return v, nil
}

func loggingHandler[T any, Idx comparable](logger *log.Logger, name string) poolsensor.EventHandler[T, Idx] {
	return func(delta poolsensor.CorpusDelta[T, Idx], stats poolsensor.Stats) error {
		if delta.Add != nil {
			logger.Printf("%s: admitted %s (%s)", name, delta.Path, stats)
		}

		return nil
	}
}

func loadSeedCorpus(fsys vfs.FileSystem, dir string, logger *log.Logger) [][]byte {
	if dir == "" {
		return nil
	}

	entries, err := fsys.ReadDir(dir)
	if err != nil {
		logger.Printf("read corpus dir %s: %v", dir, err)

		return nil
	}

	var seeds [][]byte

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		data, err := readFile(fsys, vfs.Join(dir, e.Name()))
		if err != nil {
			continue
		}

		seeds = append(seeds, data)
	}

	return seeds
}

func readFile(fsys vfs.FileSystem, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, info.Size())
	_, err = f.Read(buf)

	return buf, err
}

// newByteMutator builds a driver.Mutator[[]byte] closing over a PRNG, an
// initial seed corpus, and (optionally) a live corpuswatch feed.
func newByteMutator(seed int64, maxLen int, seeds [][]byte, watcher *corpuswatch.Watcher) driver.Mutator[[]byte] {
	r := rand.New(rand.NewSource(seed))
	queue := append([][]byte(nil), seeds...)

	next := func() []byte {
		if watcher != nil {
			select {
			case s := <-watcher.Seeds():
				return s
			default:
			}
		}

		if len(queue) > 0 {
			s := queue[0]
			queue = queue[1:]

			return s
		}

		return []byte("ORIZON-FUZZ-SEED")
	}

	return func(parent *driver.Input[[]byte]) driver.Input[[]byte] {
		var base []byte

		if parent != nil && len(queue) == 0 && r.Intn(4) != 0 {
			base = parent.Value
		} else {
			base = next()
		}

		out := mutateBytes(r, base, maxLen)

		return driver.Input[[]byte]{Value: out, Complexity: float64(len(out))}
	}
}

func mutateBytes(r *rand.Rand, in []byte, maxLen int) []byte {
	out := append([]byte(nil), in...)

	switch {
	case len(out) == 0 || r.Intn(3) == 0:
		pos := r.Intn(len(out) + 1)
		b := byte(r.Intn(256))
		out = append(out[:pos], append([]byte{b}, out[pos:]...)...)
	case r.Intn(2) == 0:
		pos := r.Intn(len(out))
		out[pos] ^= 1 << uint(r.Intn(8))
	default:
		pos := r.Intn(len(out))
		out = append(out[:pos], out[pos+1:]...)
	}

	if len(out) > maxLen {
		out = out[:maxLen]
	}

	return out
}
