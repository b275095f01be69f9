// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"log"
	"os"

	"github.com/tliron/commonlog"

	"github.com/ezrec/re2/config"
	"github.com/ezrec/re2/lsp"
)

const VERSION = "0.1.0"

func main() {
	var verbosity int
	var logPath string

	flag.IntVar(&verbosity, "verbosity", 1, "Log verbosity (0 to 5)")
	flag.StringVar(&logPath, "log", "", "Log file (default: stderr)")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	if len(logPath) == 0 {
		commonlog.Configure(verbosity, nil)
	} else {
		commonlog.Configure(verbosity, &logPath)
	}

	cfg, err := config.FindAndLoad(".")
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	err = cfg.Apply()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}

	err = lsp.NewServer(VERSION).RunStdio()
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}
