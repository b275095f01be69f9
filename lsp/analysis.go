package lsp

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/ezrec/re2/asm"
	"github.com/ezrec/re2/internal"
	"github.com/ezrec/re2/isa"
)

// directiveHelp describes each directive, keyed by upper case name.
var directiveHelp = map[string]string{
	"SECTION": "Starts a new section. The previous section must have a base address.",
	"BASE":    "Sets the base address of the current section.",
	"ENTRY":   "Sets the program entry point to an address or label.",
	"STR":     "Emits a NUL terminated string.",
	"DB":      "Emits hexadecimal data bytes.",
	"EQU":     "Binds a name to the value of an expression.",
}

// Analysis is the result of assembling one document.
type Analysis struct {
	Diagnostics []asm.Diagnostic
	Labels      map[string]asm.Label
}

// Analyze assembles a document, collecting its diagnostics and labels.
func Analyze(name string, text string) (an *Analysis) {
	as := &asm.Assembler{}

	// Errors are carried in the reporter diagnostics.
	_, _ = as.Parse(name, strings.NewReader(text))

	an = &Analysis{
		Labels: as.Labels,
	}
	if as.Reporter != nil {
		an.Diagnostics = as.Reporter.Diagnostics
	}

	return
}

// isWordChar returns true for characters of names, mnemonics and directives.
func isWordChar(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// wordEnd returns the end of the token starting at pos.
func wordEnd(line string, pos int) int {
	end := pos
	for end < len(line) && line[end] != ' ' && line[end] != '\t' {
		end++
	}
	return end
}

// extractPrefix returns the word fragment before the cursor.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}

	return line[start:col]
}

// extractWord returns the word under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isWordChar(line[start-1]) {
		start--
	}

	end := col
	for end < len(line) && isWordChar(line[end]) {
		end++
	}

	return line[start:end]
}

// diagnostics converts assembler diagnostics to protocol diagnostics.
// Diagnostics without a source line are placed at the top of the document.
func (an *Analysis) diagnostics(source string) (list []protocol.Diagnostic) {
	list = []protocol.Diagnostic{}

	for _, diag := range an.Diagnostics {
		var severity protocol.DiagnosticSeverity
		switch diag.Level {
		case asm.LEVEL_ERROR:
			severity = protocol.DiagnosticSeverityError
		case asm.LEVEL_WARNING:
			severity = protocol.DiagnosticSeverityWarning
		default:
			continue
		}

		var rng protocol.Range
		if diag.Line > 0 {
			line := protocol.UInteger(diag.Line - 1)
			start := max(diag.Pos, 0)
			rng = protocol.Range{
				Start: protocol.Position{Line: line, Character: protocol.UInteger(start)},
				End:   protocol.Position{Line: line, Character: protocol.UInteger(wordEnd(diag.Source, start))},
			}
		}

		list = append(list, protocol.Diagnostic{
			Range:    rng,
			Severity: &severity,
			Source:   &source,
			Message:  diag.Message,
		})
	}

	return
}

// mnemonicHelp returns markdown describing the encodings of a mnemonic.
func mnemonicHelp(word string) (text string, ok bool) {
	var b strings.Builder

	if op, found := isa.Simple[word]; found {
		fmt.Fprintf(&b, "**%s**\n\n", word)
		info := isa.Operations[op]
		if info.Operand == isa.OPERAND_NONE {
			fmt.Fprintf(&b, "opcode `%02X`", uint8(op))
		} else {
			fmt.Fprintf(&b, "opcode `%02X`, %d operand byte(s)", uint8(op), info.Operand.Size())
		}
		return b.String(), true
	}

	if table, found := isa.Polymorphic[word]; found {
		fmt.Fprintf(&b, "**%s**\n\n| mode | opcode |\n|---|---|\n", word)
		for mode := range isa.Mode(isa.MODE_COUNT) {
			if op, supported := table.Opcode(mode); supported {
				fmt.Fprintf(&b, "| %v | `%02X` |\n", mode, uint8(op))
			}
		}
		if word == "POP" {
			fmt.Fprintf(&b, "| (none) | `%02X` |\n", uint8(isa.OP_POP))
		}
		return b.String(), true
	}

	if seq, found := isa.Pseudo[word]; found {
		fmt.Fprintf(&b, "**%s**\n\npseudo instruction: `% X`", word, seq)
		return b.String(), true
	}

	return
}

// hover returns markdown for a mnemonic, directive or label.
func (an *Analysis) hover(word string) (text string, ok bool) {
	if len(word) == 0 {
		return
	}

	upper := strings.ToUpper(word)

	if strings.HasPrefix(word, ".") {
		help, found := directiveHelp[upper[1:]]
		if !found {
			return
		}
		return fmt.Sprintf("**.%s**\n\n%s", upper[1:], help), true
	}

	if label, found := an.Labels[word]; found {
		if label.Equate {
			return fmt.Sprintf("**%s** = %d (`0x%04x`)\n\ndefined on line %d", word, label.Value, label.Address, label.Line), true
		}
		return fmt.Sprintf("**%s:** `0x%04x`\n\ndefined on line %d", word, label.Address, label.Line), true
	}

	return mnemonicHelp(upper)
}

// complete returns completion items for a prefix.
func (an *Analysis) complete(prefix string) (items []protocol.CompletionItem) {
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		items = append(items, protocol.CompletionItem{
			Label:  label,
			Kind:   &kind,
			Detail: &detail,
		})
	}

	if strings.HasPrefix(prefix, ".") {
		upper := strings.ToUpper(prefix[1:])
		for _, name := range isa.Directives {
			if strings.HasPrefix(name, upper) {
				add("."+name, protocol.CompletionItemKindKeyword, "directive")
			}
		}
		return
	}

	upper := strings.ToUpper(prefix)
	mnemonics := internal.SortedUnique(
		maps.Keys(isa.Simple),
		maps.Keys(isa.Polymorphic),
		maps.Keys(isa.Pseudo),
	)
	for _, name := range mnemonics {
		if strings.HasPrefix(name, upper) {
			add(name, protocol.CompletionItemKindFunction, "instruction")
		}
	}

	for _, name := range slices.Sorted(maps.Keys(an.Labels)) {
		if strings.HasPrefix(name, prefix) {
			if an.Labels[name].Equate {
				add(name, protocol.CompletionItemKindConstant, "equate")
			} else {
				add(name, protocol.CompletionItemKindVariable, fmt.Sprintf("0x%04x", an.Labels[name].Address))
			}
		}
	}

	return
}

// definition returns the location where a label is bound.
func (an *Analysis) definition(uri protocol.DocumentUri, word string) (loc []protocol.Location) {
	label, ok := an.Labels[word]
	if !ok || label.Line < 1 {
		return
	}

	line := protocol.UInteger(label.Line - 1)
	col := protocol.UInteger(max(label.Column-1, 0))
	end := col + protocol.UInteger(len(word))

	return []protocol.Location{{
		URI: uri,
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: col},
			End:   protocol.Position{Line: line, Character: end},
		},
	}}
}
