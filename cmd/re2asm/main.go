// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/ezrec/re2/asm"
	"github.com/ezrec/re2/config"
	"github.com/ezrec/re2/emulator"
)

func main() {
	var configPath string
	var output string
	var symbols bool
	var debug bool
	var verbose bool

	flag.StringVar(&configPath, "c", "", "re2.toml configuration file")
	flag.StringVar(&output, "o", "", "Image output file")
	flag.BoolVar(&symbols, "g", false, "Write debug symbols")
	flag.BoolVar(&debug, "debug", false, "Report debug diagnostics")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %v [options] <file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(emulator.EXIT_USAGE)
	}

	source := flag.Arg(0)

	var cfg *config.Config
	var err error
	if len(configPath) != 0 {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FindAndLoad(filepath.Dir(source))
	}
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	err = cfg.Apply()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	symbols = symbols || cfg.Assembler.Symbols
	if len(output) == 0 {
		output = cfg.ImagePath(source)
	}

	errors, err := assemble(cfg, source, output, symbols, debug, verbose, os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("%v: %v", source, err)
	}

	if errors > 0 {
		os.Exit(emulator.EXIT_FAILURE)
	}
}

// assemble translates a source file into an image. Diagnostics go to
// stderr, and the error and warning summary to stdout.
func assemble(cfg *config.Config, source string, output string, symbols bool, debug bool, verbose bool, stdout io.Writer, stderr io.Writer) (errors int, err error) {
	inf, err := os.Open(source)
	if err != nil {
		return
	}
	defer inf.Close()

	as := &asm.Assembler{
		Verbose: verbose || cfg.Assembler.Verbose,
		Debug:   debug || cfg.Assembler.Debug,
		Output:  stderr,
	}

	prog, perr := as.Parse(filepath.Base(source), inf)
	if prog == nil {
		err = perr
		return
	}

	// Symbols name the source as given, so the emulator can find it.
	prog.File = source

	errors = as.Reporter.Errors
	if perr == nil {
		werr := writeOutput(prog, output, symbols, cfg.SymbolsPath(output))
		if werr != nil {
			fmt.Fprintf(stderr, "%v: %v\n", output, werr)
			errors++
		}
	}

	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "%v error(s).\n", errors)
	fmt.Fprintf(stdout, "%v warning(s).\n", as.Reporter.Warnings)

	return
}

// writeOutput writes the image, and optionally the debug symbols.
func writeOutput(prog *asm.Program, output string, symbols bool, symPath string) (err error) {
	ouf, err := os.Create(output)
	if err != nil {
		return
	}

	_, err = prog.Image().WriteTo(ouf)
	cerr := ouf.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		return
	}

	if !symbols {
		return
	}

	symf, err := os.Create(symPath)
	if err != nil {
		return
	}

	_, err = prog.Symbols().WriteTo(symf)
	cerr = symf.Close()
	if err == nil {
		err = cerr
	}

	return
}
