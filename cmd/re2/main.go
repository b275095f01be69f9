// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ezrec/re2/config"
	"github.com/ezrec/re2/emulator"
	"github.com/ezrec/re2/image"
	"github.com/ezrec/re2/vm"
)

func main() {
	var configPath string
	var symPath string
	var verbose bool

	flag.StringVar(&configPath, "c", "", "re2.toml configuration file")
	flag.StringVar(&symPath, "sym", "", "Debug symbols file (default: <image>.sym, if present)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: %v [options] <file>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(emulator.EXIT_USAGE)
	}

	file := flag.Arg(0)

	var cfg *config.Config
	var err error
	if len(configPath) != 0 {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.FindAndLoad(filepath.Dir(file))
	}
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	err = cfg.Apply()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	os.Exit(run(cfg, file, symPath, verbose || cfg.VM.Verbose))
}

// run executes an image file, returning the process exit code.
func run(cfg *config.Config, file string, symPath string, verbose bool) (code int) {
	inf, err := os.Open(file)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return emulator.EXIT_FAILURE
	}
	defer inf.Close()

	img, err := image.Read(inf)
	if err != nil {
		log.Printf("ERROR: %v", err)
		return emulator.ExitCode(err)
	}

	sym := loadSymbols(cfg, file, symPath)

	output := bufio.NewWriter(os.Stdout)
	defer output.Flush()

	emu := emulator.NewEmulator(os.Stdin, output)
	emu.Verbose = verbose
	emu.Machine.StackBase = uint16(cfg.VM.Stack)

	err = emu.Load(img, sym)
	if err == nil && sym != nil && verbose {
		err = loadSource(emu, sym.File)
	}
	if err == nil {
		err = emu.Run()
	}

	var exit *vm.ErrExit
	if err != nil && !errors.As(err, &exit) {
		output.Flush()
		log.Printf("ERROR: %v", err)
	}

	return emulator.ExitCode(err)
}

// loadSymbols reads the debug symbols of an image, if any.
func loadSymbols(cfg *config.Config, file string, symPath string) (sym *image.Symbols) {
	explicit := len(symPath) != 0
	if !explicit {
		symPath = cfg.SymbolsPath(file)
	}

	inf, err := os.Open(symPath)
	if err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			log.Printf("%v: %v", symPath, err)
		}
		return
	}
	defer inf.Close()

	sym, err = image.ReadSymbols(inf)
	if err != nil {
		log.Printf("%v: %v", symPath, err)
		return nil
	}

	return
}

// loadSource reads the source listing named by the debug symbols.
// A missing source only disables line tracing.
func loadSource(emu *emulator.Emulator, source string) (err error) {
	inf, err := os.Open(source)
	if err != nil {
		log.Printf("%v: %v", source, err)
		return nil
	}
	defer inf.Close()

	return emu.LoadSource(inf)
}
