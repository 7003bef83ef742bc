// Package main provides the c68k host: it builds a memory map, loads a
// 68000 program image, resets a core and runs it slice by slice.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/m68kcore/bus"
	"github.com/sarchlab/m68kcore/emu"
	"github.com/sarchlab/m68kcore/loader"
)

var (
	configPath = flag.String("config", "", "Path to memory map JSON file")
	raw        = flag.Bool("raw", false, "Treat the image as a flat binary instead of ELF")
	base       = flag.Uint("base", 0, "Load address of a raw image")
	slices     = flag.Int("slices", -1, "Number of slices to run (default from config)")
	cycles     = flag.Int("cycles", 0, "Cycles per slice (default from config)")
	irqLevel   = flag.Int("irq", 0, "Interrupt level to assert periodically")
	irqEvery   = flag.Int("irq-every", 1, "Assert -irq every N slices")
	trace      = flag.Bool("trace", false, "Print bus accesses, resets and interrupts")
	verbose    = flag.Bool("v", false, "Verbose output")
)

// options are the parsed command line settings of one run.
type options struct {
	imagePath  string
	configPath string
	raw        bool
	base       uint32
	slices     int
	cycles     int32
	irqLevel   int32
	irqEvery   int
	trace      bool
	verbose    bool
}

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: c68k [options] <program.elf|image.bin>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	opts := options{
		imagePath:  flag.Arg(0),
		configPath: *configPath,
		raw:        *raw,
		base:       uint32(*base),
		slices:     *slices,
		cycles:     int32(*cycles),
		irqLevel:   int32(*irqLevel),
		irqEvery:   *irqEvery,
		trace:      *trace,
		verbose:    *verbose,
	}

	if err := run(opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// report summarizes a finished run.
type report struct {
	Slices       int
	Cycles       uint64
	Instructions uint64
	Interrupts   int
	Status       emu.Status
	Registers    emu.Registers
	Bus          bus.Stats
}

func run(opts options, stdout, stderr io.Writer) error {
	rep, err := simulate(opts, stdout, stderr)
	if rep != nil {
		printReport(stdout, opts, rep)
	}
	return err
}

func simulate(opts options, stdout, stderr io.Writer) (*report, error) {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg := bus.DefaultConfig()
	if opts.configPath != "" {
		var err error
		cfg, err = bus.LoadConfig(opts.configPath)
		if err != nil {
			return nil, err
		}
	}
	if opts.slices >= 0 {
		cfg.Slices = opts.slices
	}
	if opts.cycles > 0 {
		cfg.SliceCycles = opts.cycles
	}

	b, err := bus.NewFromConfig(cfg, bus.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	prog, err := loadProgram(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load program: %w", err)
	}
	if err := prog.LoadInto(b); err != nil {
		return nil, err
	}
	if opts.verbose {
		fmt.Fprintf(stdout, "Loaded: %s\n", opts.imagePath)
		fmt.Fprintf(stdout, "Entry point: 0x%06X\n", prog.EntryPoint)
		fmt.Fprintf(stdout, "Segments: %d\n", len(prog.Segments))
	}

	rep := &report{}
	x := &probe{}
	c := emu.NewCore(emu.WithLogger(logger), emu.WithExecutor(x))
	if err := b.Attach(c); err != nil {
		return nil, err
	}

	// The line is a pulse: acknowledging the interrupt drops it.
	c.SetInterruptCallback(emu.AcknowledgeFunc(func(l int32) int32 {
		rep.Interrupts++
		c.SetIRQ(0)
		return emu.AutovectorBase + l
	}))

	if opts.trace {
		t := &tracer{w: stdout}
		b.AcceptHook(t)
		c.AcceptHook(t)
	}

	c.Reset()

	var runErr error
	for i := 0; i < cfg.Slices; i++ {
		if opts.irqLevel > 0 && opts.irqEvery > 0 && (i+1)%opts.irqEvery == 0 {
			c.SetIRQ(opts.irqLevel)
		}
		if _, runErr = c.Exec(cfg.SliceCycles); runErr != nil {
			break
		}
		rep.Slices++
	}

	rep.Cycles = c.Cycles()
	rep.Instructions = x.instructions
	rep.Status = c.Status()
	rep.Registers = c.Registers()
	rep.Bus = b.Stats()
	return rep, runErr
}

func loadProgram(opts options) (*loader.Program, error) {
	if opts.raw {
		return loader.LoadRaw(opts.imagePath, opts.base)
	}
	return loader.Load(opts.imagePath)
}

func printReport(w io.Writer, opts options, rep *report) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", opts.imagePath)
	fmt.Fprintf(w, "Slices: %d\n", rep.Slices)
	fmt.Fprintf(w, "Total Cycles: %d\n", rep.Cycles)
	fmt.Fprintf(w, "Instructions: %d\n", rep.Instructions)
	fmt.Fprintf(w, "Interrupts: %d\n", rep.Interrupts)
	fmt.Fprintf(w, "Status: %s\n", rep.Status)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "%s\n", rep.Registers)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Bus:\n")
	fmt.Fprintf(w, "  Reads:     %d\n", rep.Bus.Reads)
	fmt.Fprintf(w, "  Writes:    %d\n", rep.Bus.Writes)
	fmt.Fprintf(w, "  Unmapped:  %d\n", rep.Bus.Unmapped)
	fmt.Fprintf(w, "  Discarded: %d\n", rep.Bus.Discarded)
	fmt.Fprintf(w, "  Resets:    %d\n", rep.Bus.Resets)
}

// tracer prints hook events from the bus and the core.
type tracer struct {
	w io.Writer
}

func (t *tracer) Func(ctx sim.HookCtx) {
	switch item := ctx.Item.(type) {
	case bus.Access:
		dir := "R"
		if item.Write {
			dir = "W"
		}
		region := item.Region
		if region == "" {
			region = "-"
		}
		fmt.Fprintf(t.w, "bus %s%d 0x%06X = 0x%0*X [%s]\n",
			dir, item.Size*8, item.Addr, item.Size*2, item.Value, region)
	case emu.InterruptEvent:
		fmt.Fprintf(t.w, "irq level %d vector 0x%02X from 0x%06X\n",
			item.Level, item.Vector, item.PC)
	case emu.Registers:
		if ctx.Pos == emu.HookPosReset {
			fmt.Fprintf(t.w, "reset ssp 0x%08X pc 0x%06X\n", item.SSP, item.PC)
		}
	}
}
