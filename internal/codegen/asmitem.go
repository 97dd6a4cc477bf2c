// Package codegen lowers a normalized ir.Function to the target VM's
// stack-machine instruction stream: the stack scheduler picks a
// layout-in/layout-out per block, then an instruction selector walks
// each block synthesizing DUP/SWAP/POP around each opcode.
package codegen

import "fmt"

// AsmKind tags one entry in the flat pre-assembly item stream that
// internal/asm consumes: byte opcodes, label definitions, label
// references, and raw data bytes.
type AsmKind int

const (
	KindOpcode AsmKind = iota
	KindLabelDef
	KindPushLabel
	KindPushLiteral
	KindRawData
)

// Item is one entry in the flat assembly sequence.
type Item struct {
	Kind    AsmKind
	Opcode  byte   // valid when Kind == KindOpcode
	Label   string // valid when Kind is KindLabelDef or KindPushLabel
	Literal []byte // big-endian minimal encoding; valid when Kind == KindPushLiteral
	Data    []byte // valid when Kind == KindRawData
	Source  SourceRef
}

// SourceRef threads debug info from ir.SourceAnnotation through to the
// final source map the assembler emits.
type SourceRef struct {
	File string
	Line int
}

// String renders one item in a readable listing form, used by the CLI's
// asm output. Bytecode emission never goes through here.
func (it Item) String() string {
	switch it.Kind {
	case KindOpcode:
		return fmt.Sprintf("  0x%02x", it.Opcode)
	case KindLabelDef:
		return it.Label + ":"
	case KindPushLabel:
		return "  PUSH @" + it.Label
	case KindPushLiteral:
		return fmt.Sprintf("  PUSH 0x%x", it.Literal)
	case KindRawData:
		return fmt.Sprintf("  DATA %x", it.Data)
	}
	return "  <invalid item>"
}
