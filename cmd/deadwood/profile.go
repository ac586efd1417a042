package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/urfave/cli/v2"
)

const profilerKey = "profiler"

// profiler records a CPU profile for the whole command and a heap profile
// at exit, under <prefix>.cpu.pprof and <prefix>.mem.pprof.
type profiler struct {
	prefix string
	cpu    *os.File
}

func startProfiling(c *cli.Context) error {
	prefix := c.String("pprof")
	if prefix == "" {
		return nil
	}
	f, err := os.Create(prefix + ".cpu.pprof")
	if err != nil {
		return fmt.Errorf("creating CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return fmt.Errorf("starting CPU profile: %w", err)
	}
	c.App.Metadata[profilerKey] = &profiler{prefix: prefix, cpu: f}
	return nil
}

// stopProfiling reports on stderr so that profiled runs keep clean stdout.
func stopProfiling(c *cli.Context) error {
	p, ok := c.App.Metadata[profilerKey].(*profiler)
	if !ok {
		return nil
	}
	delete(c.App.Metadata, profilerKey)

	pprof.StopCPUProfile()
	if err := p.cpu.Close(); err != nil {
		return err
	}

	runtime.GC()
	mem, err := os.Create(p.prefix + ".mem.pprof")
	if err != nil {
		return fmt.Errorf("creating memory profile: %w", err)
	}
	defer mem.Close()
	if err := pprof.WriteHeapProfile(mem); err != nil {
		return fmt.Errorf("writing memory profile: %w", err)
	}

	fmt.Fprintf(c.App.ErrWriter, "Profiles written to %[1]s.cpu.pprof and %[1]s.mem.pprof\n", p.prefix)
	return nil
}
