// Package main provides the entry point for c68k.
// c68k hosts a 68000 interpreter core on a configurable memory map.
//
// For the full CLI, use: go run ./cmd/c68k
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("c68k - 68000 interpreter host")
	fmt.Println("Built on the Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: c68k [options] <program.elf|image.bin>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config     Path to memory map JSON file")
	fmt.Println("  -raw        Treat the image as a flat binary")
	fmt.Println("  -base       Load address of a raw image")
	fmt.Println("  -slices     Number of slices to run")
	fmt.Println("  -cycles     Cycles per slice")
	fmt.Println("  -irq        Interrupt level to assert periodically")
	fmt.Println("  -irq-every  Assert -irq every N slices")
	fmt.Println("  -trace      Print bus accesses, resets and interrupts")
	fmt.Println("  -v          Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/c68k' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/c68k' instead.")
	}
}
