// Package asm assembles RE^2 source text into relocatable sections.
//
// Source is line oriented. A line holds a directive, a label definition,
// or an instruction; '#' starts a comment.
//
//	.SECTION
//	.BASE 0x1000
//	.ENTRY main
//	main:
//	    PUSH $5
//	    PUSH $3
//	    ADD
//	    OUTPUTNUM
//	    EXIT $0
//
// Diagnostics are accumulated by a Reporter and printed in the form
//
//	Error: <message>
//	<file>:<line>:<column>
//	<source line>
//	    ^
package asm
