// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package asm

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/re2/image"
)

// Assembler is a single pass, multi-section assembler for RE^2 source.
//
// An Assembler is not safe for concurrent use; create one per source file.
type Assembler struct {
	Verbose bool      // If set, verbosely logs the assembler actions.
	Debug   bool      // If set, DEBUG level diagnostics are emitted.
	Output  io.Writer // Diagnostic stream. If nil, diagnostics are only collected.

	Reporter *Reporter        // Diagnostics of the last Parse.
	Labels   map[string]Label // Label table.
	Sections []*Section       // Sections, in source order.

	section    *Section // Current section.
	entry      int      // Literal entry address.
	entryLabel string   // Deferred entry label.
	entrySet   bool     // Set once .ENTRY is seen.

	source []string         // Source lines read so far.
	lines  []image.LineInfo // Address to line table.
	line   *Line            // Line being parsed.
	lineno int              // 1-based number of the line being parsed.
	marked bool             // Set once the current line has emitted a byte.
}

// Program is the result of assembling a source file.
type Program struct {
	File     string           // Source file name.
	Entry    uint16           // Entry point address.
	Sections []*Section       // Sections, in source order.
	Labels   map[string]Label // Label table.
	Lines    []image.LineInfo // Address to line table.
}

// reset prepares the assembler for a new source file.
func (asm *Assembler) reset(name string) {
	asm.Reporter = NewReporter(name, asm.Output)
	asm.Reporter.Debug = asm.Debug

	asm.Labels = make(map[string]Label)
	asm.Sections = nil
	asm.section = nil
	asm.entry = 0
	asm.entryLabel = ""
	asm.entrySet = false
	asm.source = nil
	asm.lines = nil
	asm.line = nil
	asm.lineno = 0
}

// Parse assembles an input stream. Unless the input fails to read, the
// returned program holds the sections produced even when the source has
// errors, and err is an *ErrAssembly if any errors were reported.
func (asm *Assembler) Parse(name string, input io.Reader) (prog *Program, err error) {
	asm.reset(name)

	aborted := false
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		text := scanner.Text()
		asm.source = append(asm.source, text)

		if asm.Verbose {
			log.Printf("%v: %v\n", len(asm.source), text)
		}

		if asm.parseLine(len(asm.source), text) {
			aborted = true
			break
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if !aborted {
		asm.finish()
	}

	prog = &Program{
		File:     name,
		Sections: asm.Sections,
		Labels:   maps.Clone(asm.Labels),
		Lines:    asm.lines,
	}

	if asm.entrySet {
		prog.Entry = uint16(asm.entry)
	}

	if asm.Reporter.Errors > 0 {
		err = &ErrAssembly{
			Errors:   asm.Reporter.Errors,
			Warnings: asm.Reporter.Warnings,
			Aborted:  aborted,
		}
	}

	return
}

// parseLine handles a single source line.
// Returns abort == true if parsing must stop.
func (asm *Assembler) parseLine(lineno int, text string) (abort bool) {
	asm.lineno = lineno
	asm.line = SplitLine(text)
	asm.marked = false

	tok, ok := asm.line.Next()
	if !ok {
		return
	}

	switch {
	case tok.Type == TOKEN_DIRECTIVE:
		abort = asm.directive(tok)
		if abort {
			return
		}
	case asm.section == nil:
		asm.Reporter.Error(f("expected: section header."), asm.at(0))
		abort = true
		return
	case strings.HasSuffix(tok.Text, ":"):
		asm.label(tok)
	default:
		asm.instruction(tok)
	}

	asm.checkEndLine()
	return
}

// label defines a label at the current section address.
func (asm *Assembler) label(tok Token) {
	if tok.Type != TOKEN_LABEL {
		asm.Reporter.Error(f("expected: label containing only letters and underscore."), asm.at(tok.Pos))
		return
	}

	if !asm.section.HasBase() {
		asm.Reporter.Error(f("expected: section base address must be defined before labels."), asm.at(tok.Pos))
		return
	}

	name, _, _ := tok.Group(1)
	asm.define(name, asm.section.Address(), asm.at(tok.Pos), false)
}

// finish performs the end of file checks and entry point resolution.
func (asm *Assembler) finish() {
	if asm.section != nil && !asm.section.HasBase() {
		asm.Reporter.Error(f("expected: section address base."), asm.sourceAt(asm.section.Line, 0))
	}

	if !asm.entrySet {
		asm.Reporter.Error(f("no entry point specified."), Location{})
	}

	if len(asm.entryLabel) != 0 {
		label, ok := asm.Labels[asm.entryLabel]
		if ok {
			asm.entry = int(label.Address)
		}
	}

	for _, name := range asm.unresolved() {
		asm.Reporter.Error(f("Unresolved label `%v`", name), Location{})
	}
}

// emit appends bytes to the current section, reporting an overflow once
// per section.
func (asm *Assembler) emit(data ...byte) (ok bool) {
	sec := asm.section

	address := sec.Address()
	err := sec.write(data...)
	if err != nil {
		if !sec.full {
			sec.full = true
			asm.Reporter.Error(err.Error(), asm.at(asm.line.Offset))
		}
		return
	}

	if !asm.marked && sec.HasBase() {
		asm.marked = true
		asm.lines = append(asm.lines, image.LineInfo{Address: uint16(address), Line: asm.lineno})
	}

	return true
}

// next consumes an operand token, reporting a missing or invalid token.
func (asm *Assembler) next() (tok Token, ok bool) {
	tok, ok = asm.line.Next()
	if !ok {
		asm.Reporter.Report(SITUATION_MISSING_TOKEN, asm.at(len(asm.line.Text)))
		return
	}

	if tok.Type == TOKEN_INVALID {
		asm.Reporter.Report(SITUATION_INVALID_TOKEN, asm.at(tok.Pos))
		ok = false
	}

	return
}

// checkEndLine reports, once, any tokens left on the line.
func (asm *Assembler) checkEndLine() {
	tok, ok := asm.line.Skip()
	if ok {
		asm.Reporter.Report(SITUATION_EXTRA_TOKEN, asm.at(tok.Pos))
	}
}

// at returns a location on the current line.
func (asm *Assembler) at(pos int) Location {
	return Location{Line: asm.lineno, Pos: pos, Source: asm.line.Text}
}

// sourceAt returns a location on an earlier line.
func (asm *Assembler) sourceAt(lineno int, pos int) Location {
	return Location{Line: lineno, Pos: pos, Source: asm.source[lineno-1]}
}

// hex16 formats a 16-bit address.
func hex16(value int) string {
	return fmt.Sprintf("0x%04x", value&0xffff)
}

// Image returns the loadable image of the program.
func (prog *Program) Image() (img *image.Image) {
	img = &image.Image{Entry: prog.Entry}

	for _, sec := range prog.Sections {
		img.Sections = append(img.Sections, image.Section{
			Base: uint16(max(sec.Base, 0)),
			Data: sec.Data,
		})
	}

	return
}

// Symbols returns the debug symbols of the program.
func (prog *Program) Symbols() (sym *image.Symbols) {
	sym = &image.Symbols{
		File:   prog.File,
		Labels: make(map[string]uint16, len(prog.Labels)),
		Lines:  prog.Lines,
	}

	for name, label := range prog.Labels {
		if label.Equate {
			continue
		}
		sym.Labels[name] = label.Address
	}

	sym.Sort()

	return
}

// Source returns the text of a 1-based source line of the last Parse.
func (asm *Assembler) Source(lineno int) (text string, ok bool) {
	if lineno < 1 || lineno > len(asm.source) {
		return
	}

	return asm.source[lineno-1], true
}
