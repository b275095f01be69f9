// Package config handles re2.toml toolchain configuration.
package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ezrec/re2/isa"
	"github.com/ezrec/re2/translate"
)

const (
	FILENAME          = "re2.toml" // Configuration file name.
	DEFAULT_EXTENSION = ".re"      // Default image file extension.
	SYMBOLS_EXTENSION = ".sym"     // Appended to the image path for debug symbols.
)

// Config represents a re2.toml configuration.
type Config struct {
	Assembler Assembler `toml:"assembler"`
	VM        Machine   `toml:"vm"`
	Locale    Locale    `toml:"locale"`

	// Path of the loaded file, empty for defaults.
	Path string `toml:"-"`
}

// Assembler configures re2asm.
type Assembler struct {
	Debug     bool   `toml:"debug"`     // Report debug level diagnostics.
	Symbols   bool   `toml:"symbols"`   // Write the debug symbol sidecar.
	Extension string `toml:"extension"` // Image file extension.
	Verbose   bool   `toml:"verbose"`   // Log each source line.
}

// Machine configures re2.
type Machine struct {
	Stack   int  `toml:"stack"`   // Initial SP and BP.
	Verbose bool `toml:"verbose"` // Trace each instruction.
}

// Locale selects the message language.
type Locale struct {
	Language string `toml:"language"` // BCP 47 tag, empty to detect.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Assembler: Assembler{Extension: DEFAULT_EXTENSION},
		VM:        Machine{Stack: isa.STACK_ADDR},
	}
}

// Load parses a configuration file. Unset values keep their defaults.
func Load(path string) (cfg *Config, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = &ErrConfig{Path: path, Err: err}
		return
	}

	cfg = Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		cfg = nil
		err = &ErrConfig{Path: path, Err: err}
		return
	}

	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		var keys []string
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		slices.Sort(keys)
		cfg = nil
		err = &ErrConfig{Path: path, Err: &ErrUnknownKey{Keys: keys}}
		return
	}

	err = cfg.validate()
	if err != nil {
		cfg = nil
		err = &ErrConfig{Path: path, Err: err}
		return
	}

	cfg.Path, err = filepath.Abs(path)
	if err != nil {
		cfg = nil
		return
	}

	return
}

// FindAndLoad walks up from startDir to find a re2.toml file, then loads it.
// Returns the defaults if no file is found.
func FindAndLoad(startDir string) (cfg *Config, err error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return
	}

	for {
		path := filepath.Join(dir, FILENAME)
		if _, serr := os.Stat(path); serr == nil {
			return Load(path)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

func (cfg *Config) validate() (err error) {
	if cfg.VM.Stack < 0 || cfg.VM.Stack > isa.MAX_ADDR {
		return ErrStackRange
	}

	ext := cfg.Assembler.Extension
	if len(ext) < 2 || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
		return ErrExtension
	}

	return
}

// Apply sets process wide state from the configuration: the message language.
func (cfg *Config) Apply() (err error) {
	return translate.SetLanguage(cfg.Locale.Language)
}

// ImagePath returns the image file name for a source file: the source
// extension is replaced with the configured one.
func (cfg *Config) ImagePath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + cfg.Assembler.Extension
}

// SymbolsPath returns the debug symbol file name for an image file.
func (cfg *Config) SymbolsPath(image string) string {
	return image + SYMBOLS_EXTENSION
}
