package asm

import (
	"fmt"
	"io"
	"maps"
	"strings"
)

// Level is the severity of a diagnostic.
type Level int

const (
	LEVEL_NONE    = Level(0) // Never emitted.
	LEVEL_INFO    = Level(1) // Never emitted.
	LEVEL_DEBUG   = Level(2) // Emitted in debug mode only.
	LEVEL_WARNING = Level(3)
	LEVEL_ERROR   = Level(4)
)

func (lvl Level) String() string {
	switch lvl {
	case LEVEL_ERROR:
		return "Error"
	case LEVEL_WARNING:
		return "Warning"
	}
	return ""
}

// prefix is printed in front of a diagnostic message.
func (lvl Level) prefix() string {
	mode := lvl.String()
	if len(mode) == 0 {
		return ""
	}
	return f(mode) + ": "
}

// Situation is a recurring diagnostic condition with a replaceable message.
type Situation int

const (
	SITUATION_EXTRA_TOKEN      = Situation(iota) // trailing token after a complete statement
	SITUATION_INVALID_OFFSET                     // indirect offset outside a signed byte
	SITUATION_INVALID_REGISTER                   // register index out of range
	SITUATION_INVALID_TOKEN                      // token matches no category
	SITUATION_MISSING_TOKEN                      // operand missing, or of the wrong kind
	SITUATION_NUMBER_PARSE                       // number does not parse
	SITUATION_NUMBER_RANGE                       // number outside the permitted range
)

// Reporting is the severity and message template used for a situation.
type Reporting struct {
	Level   Level
	Message string
}

// NOTHING is a reporting that is never emitted.
var NOTHING = Reporting{Level: LEVEL_NONE}

// defaultReporting returns the registry of default situation messages.
func defaultReporting() map[Situation]Reporting {
	return map[Situation]Reporting{
		SITUATION_EXTRA_TOKEN: {LEVEL_ERROR,
			f("expected: line terminator or end of line.")},
		SITUATION_INVALID_OFFSET: {LEVEL_ERROR,
			f("expected: valid 8-bit number offset for indirect address.")},
		SITUATION_INVALID_REGISTER: {LEVEL_ERROR,
			f("expected: valid register number (0 to 15) or IP, BP, SP prefixed by `%%`.")},
		SITUATION_INVALID_TOKEN: {LEVEL_ERROR,
			f("expected: invalid character(s).")},
		SITUATION_MISSING_TOKEN: {LEVEL_ERROR,
			f("expected: missing token.")},
		SITUATION_NUMBER_PARSE: {LEVEL_ERROR,
			f("expected: valid hexadecimal or decimal number from $MIN to $MAX.")},
		SITUATION_NUMBER_RANGE: {LEVEL_ERROR,
			f("expected: valid hexadecimal or decimal number from $MIN to $MAX.")},
	}
}

// Location is a position in the source for a diagnostic.
// A zero Line means the diagnostic has no source position.
type Location struct {
	Line   int    // 1-based line number.
	Pos    int    // 0-based byte offset in Source.
	Source string // Full text of the source line.
}

// Column returns the 1-based column.
func (loc Location) Column() int {
	return loc.Pos + 1
}

// Diagnostic is a single emitted report.
type Diagnostic struct {
	Level   Level
	Message string
	Location
}

// Reporter collects, counts and prints assembler diagnostics.
type Reporter struct {
	File   string    // File name used in printed positions.
	Output io.Writer // Diagnostic stream; nil discards printed output.
	Debug  bool      // If set, DEBUG level reports are emitted.

	Errors      int          // Count of ERROR reports.
	Warnings    int          // Count of WARNING reports.
	Diagnostics []Diagnostic // All emitted reports, in order.

	registry map[Situation]Reporting
	saved    []map[Situation]Reporting
}

// NewReporter creates a reporter with the default situation registry.
func NewReporter(file string, output io.Writer) (rep *Reporter) {
	rep = &Reporter{
		File:     file,
		Output:   output,
		registry: defaultReporting(),
	}

	return
}

// Scope is an active override scope on a Reporter.
type Scope struct {
	rep   *Reporter
	depth int
}

// Begin saves the situation registry. Overrides made with SetDefault
// last until the returned scope is released.
func (rep *Reporter) Begin() *Scope {
	rep.saved = append(rep.saved, maps.Clone(rep.registry))
	return &Scope{rep: rep, depth: len(rep.saved)}
}

// Release restores the registry saved by Begin.
// Scopes must be released in reverse order of creation; releasing twice is a no-op.
func (sc *Scope) Release() {
	if sc.rep == nil {
		return
	}

	rep := sc.rep
	if sc.depth != len(rep.saved) {
		panic("asm: reporter scope released out of order")
	}

	rep.registry = rep.saved[len(rep.saved)-1]
	rep.saved = rep.saved[:len(rep.saved)-1]
	sc.rep = nil
}

// Depth returns the number of active override scopes.
func (rep *Reporter) Depth() int {
	return len(rep.saved)
}

// Default returns the reporting for a situation.
func (rep *Reporter) Default(situation Situation) Reporting {
	reporting, ok := rep.registry[situation]
	if !ok {
		return NOTHING
	}
	return reporting
}

// SetDefault replaces the reporting for a situation, returning the previous one.
func (rep *Reporter) SetDefault(situation Situation, reporting Reporting) (prior Reporting) {
	prior = rep.Default(situation)
	rep.registry[situation] = reporting
	return
}

// Report emits the current reporting for a situation.
// Expansions are placeholder/value pairs substituted into the message.
func (rep *Reporter) Report(situation Situation, loc Location, expansions ...string) {
	rep.Log(rep.Default(situation), loc, expansions...)
}

// Error emits an ERROR diagnostic outside of the situation registry.
func (rep *Reporter) Error(message string, loc Location) {
	rep.Log(Reporting{Level: LEVEL_ERROR, Message: message}, loc)
}

// Warning emits a WARNING diagnostic outside of the situation registry.
func (rep *Reporter) Warning(message string, loc Location) {
	rep.Log(Reporting{Level: LEVEL_WARNING, Message: message}, loc)
}

// Log emits a reporting at a location.
func (rep *Reporter) Log(reporting Reporting, loc Location, expansions ...string) {
	if len(expansions)%2 == 1 {
		panic("asm: expansion arguments must be paired")
	}

	switch reporting.Level {
	case LEVEL_ERROR:
		rep.Errors++
	case LEVEL_WARNING:
		rep.Warnings++
	case LEVEL_DEBUG:
		if !rep.Debug {
			return
		}
	default:
		return
	}

	message := reporting.Message
	for n := 0; n < len(expansions); n += 2 {
		message = strings.ReplaceAll(message, expansions[n], expansions[n+1])
	}

	rep.Diagnostics = append(rep.Diagnostics, Diagnostic{
		Level:    reporting.Level,
		Message:  message,
		Location: loc,
	})

	if rep.Output == nil {
		return
	}

	fmt.Fprintf(rep.Output, "%v%v\n", reporting.Level.prefix(), message)
	if loc.Line == 0 {
		return
	}
	fmt.Fprintf(rep.Output, "%v:%d:%d\n", rep.File, loc.Line, loc.Column())
	fmt.Fprintln(rep.Output, loc.Source)
	fmt.Fprintf(rep.Output, "%v^\n\n", strings.Repeat(" ", loc.Pos))
}
