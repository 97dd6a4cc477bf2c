package ir

import (
	"fmt"
	"strings"
)

// Print renders a Context as the IR text format: one function per
// block of "fn name(params) -> ret { ... }", blocks as "label:" headers
// followed by indented instructions. The format is round-trippable by
// Parse.
func Print(ctx *Context) string {
	var b strings.Builder
	fmt.Fprintf(&b, "contract %s\n", ctx.Contract)
	for _, slot := range ctx.Storage {
		fmt.Fprintf(&b, "storage %s: %s = %d\n", slot.Name, slot.Type, slot.Slot)
	}
	for _, ev := range ctx.EventSignatures {
		fmt.Fprintf(&b, "event %s = %q\n", ev.Name, ev.Signature)
	}
	for _, fn := range ctx.OrderedFunctions() {
		b.WriteString("\n")
		PrintFunction(&b, fn)
	}
	for _, d := range ctx.DataSegment {
		fmt.Fprintf(&b, "\ndata %s = %x\n", d.Label, d.Bytes)
	}
	return b.String()
}

func PrintFunction(b *strings.Builder, fn *Function) {
	kind := "fn"
	if fn.External {
		kind = "ext fn"
	}
	if fn.Create {
		kind = "create fn"
	}
	fmt.Fprintf(b, "%s %s(", kind, fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s: %s", p.Name, p.Type)
	}
	b.WriteString(")")
	if fn.ReturnType != nil {
		fmt.Fprintf(b, " -> %s", fn.ReturnType)
	}
	if len(fn.Reads) > 0 {
		fmt.Fprintf(b, " reads(%s)", strings.Join(fn.Reads, ", "))
	}
	if len(fn.Writes) > 0 {
		fmt.Fprintf(b, " writes(%s)", strings.Join(fn.Writes, ", "))
	}
	b.WriteString(" {\n")
	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Label)
		for _, inst := range blk.AllInstructions() {
			fmt.Fprintf(b, "  %s\n", inst.String())
		}
	}
	b.WriteString("}\n")
}
