// Package main provides the entry point for gbasim.
// gbasim runs GBA programs on an ARM7TDMI core, functionally or with
// cycle-level timing.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/gbasim/emu"
	"github.com/sarchlab/gbasim/loader"
	"github.com/sarchlab/gbasim/memory"
	"github.com/sarchlab/gbasim/statsview"
	"github.com/sarchlab/gbasim/timing/core"
	"github.com/sarchlab/gbasim/timing/waitstate"
)

var (
	timing          = flag.Bool("timing", false, "Enable timing simulation mode")
	configPath      = flag.String("config", "", "Path to wait-state configuration JSON file")
	verbose         = flag.Bool("v", false, "Verbose output")
	maxInstructions = flag.Uint64("max", 0, "Stop after this many instructions (0 for no limit)")
	biosPath        = flag.String("bios", "", "Path to a BIOS image; without one the BIOS is skipped")
	dump            = flag.Bool("dump", false, "Print the registers when the program stops")
	stats           = flag.Bool("stats", false, "Launch the statsview server (statsview build tag)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: gbasim [options] <program.gba|program.elf>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		atexit.Exit(1)
	}

	setupLogging(os.Stderr, *verbose)

	if *stats {
		if !statsview.Available() {
			slog.Warn("statsview not available; rebuild with -tags statsview")
		} else {
			statsview.Launch(os.Stdout)
			atexit.Register(statsview.Stop)
		}
	}

	programPath := flag.Arg(0)

	prog, err := loader.Load(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		atexit.Exit(1)
	}

	slog.Info("loaded program",
		"path", programPath,
		"entry", fmt.Sprintf("0x%08X", prog.EntryPoint),
		"segments", len(prog.Segments),
		"thumb", prog.Thumb,
	)
	if prog.Cartridge != nil {
		slog.Info("cartridge", "header", prog.Cartridge.Header.String())
	}

	mem, err := newMemory(prog, *biosPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	var e *emu.Emulator
	if *timing {
		e, err = runTiming(prog, mem, os.Stdout)
	} else {
		e, err = runEmulation(prog, mem, os.Stdout)
	}

	if *dump && e != nil {
		if dumpErr := e.DumpRegisters(os.Stdout); dumpErr != nil {
			slog.Error("register dump failed", "err", dumpErr)
		}
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

// setupLogging installs a text handler on w. Verbose output enables
// informational and trace records.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// newMemory builds the memory map with the program and optional BIOS
// loaded.
func newMemory(prog *loader.Program, biosPath string) (*memory.Map, error) {
	mem := memory.NewMap()

	if err := prog.LoadInto(mem); err != nil {
		return nil, err
	}

	if biosPath != "" {
		bios, err := os.ReadFile(biosPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read BIOS: %w", err)
		}
		if err := mem.LoadBIOS(bios); err != nil {
			return nil, err
		}
	}

	return mem, nil
}

// boot starts e at the program entry, either through the BIOS reset
// vector or by direct boot.
func boot(e *emu.Emulator, prog *loader.Program, withBIOS bool) {
	if withBIOS {
		e.Reset()
		return
	}

	e.SkipBIOS(prog.EntryPoint)
	if prog.Thumb {
		e.SetCPSR(e.CPSR().WithState(emu.StateThumb))
	}
}

// stopped reports whether err is a normal end of the run.
func stopped(err error) bool {
	return err == nil || errors.Is(err, emu.ErrMaxInstructions)
}

// run drives the emulator until it stops, reporting an invariant panic
// as a fatal emulation fault.
func run(e *emu.Emulator) (err error) {
	defer emu.RecoverFault(&err)
	return e.Run()
}

func loadWaitStates() (*waitstate.Table, error) {
	cfg := waitstate.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = waitstate.LoadConfig(*configPath)
		if err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wait-state config: %w", err)
	}

	return waitstate.NewTableWithConfig(cfg), nil
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(prog *loader.Program, mem *memory.Map, out io.Writer) (*emu.Emulator, error) {
	var opts []emu.EmulatorOption
	if *maxInstructions > 0 {
		opts = append(opts, emu.WithMaxInstructions(*maxInstructions))
	}
	if *configPath != "" {
		table, err := loadWaitStates()
		if err != nil {
			return nil, err
		}
		opts = append(opts, emu.WithWaitStates(table))
	}

	e := emu.NewEmulator(mem, opts...)
	boot(e, prog, *biosPath != "")

	err := run(e)
	if stopped(err) {
		err = nil
	}

	s := e.Stats()
	printStats(out, [][2]any{
		{"Instructions", s.Instructions},
		{"Skipped", s.Skipped},
		{"Exceptions", s.Exceptions},
		{"Cycles", s.Cycles},
	})

	return e, err
}

// runTiming runs the program on an Akita engine with wait states.
func runTiming(prog *loader.Program, mem *memory.Map, out io.Writer) (*emu.Emulator, error) {
	table, err := loadWaitStates()
	if err != nil {
		return nil, err
	}

	engine := sim.NewSerialEngine()
	c := core.NewBuilder().
		WithEngine(engine).
		WithBus(mem).
		WithWaitStates(table).
		WithMaxInstructions(*maxInstructions).
		Build("CPU")
	boot(c.Emulator(), prog, *biosPath != "")

	err = c.Run()

	s := c.Stats()
	rows := [][2]any{
		{"Instructions", s.Instructions},
		{"Exceptions", s.Exceptions},
		{"Cycles", s.Cycles},
		{"Stalls", s.Stalls},
		{"CPI", fmt.Sprintf("%.2f", cpi(s))},
	}
	if pf := table.Prefetch(); pf != nil {
		ps := pf.Stats()
		rows = append(rows, [2]any{"Prefetch hits", ps.Hits}, [2]any{"Prefetch misses", ps.Misses})
	}
	printStats(out, rows)

	return c.Emulator(), err
}

func cpi(s core.Stats) float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

func printStats(out io.Writer, rows [][2]any) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle("Statistics")
	for _, r := range rows {
		t.AppendRow(table.Row{r[0], r[1]})
	}
	t.Render()
}
