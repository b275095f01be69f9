package asm

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// evaluate computes a compile-time .EQU expression. Every label and equate
// bound so far is visible to the expression by name.
func (asm *Assembler) evaluate(expr string) (value int, err error) {
	thread := starlark.Thread{Name: "equ"}
	opts := syntax.FileOptions{}

	pred := starlark.StringDict{}
	for name, label := range asm.Labels {
		pred[name] = starlark.MakeInt(label.Value)
	}

	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "equ", prog, pred)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrExpression, err)
		return
	}

	st_int, ok := dict["rc"].(starlark.Int)
	if !ok {
		err = ErrNotAnInteger
		return
	}

	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrNotAnInteger
		return
	}

	value = int(st_int64)
	return
}
