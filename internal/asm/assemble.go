package asm

import (
	"kansoc/internal/codegen"
	"kansoc/internal/compilererr"
)

// Assemble lowers a flat codegen.Item stream to final bytecode. Label
// positions and each PUSH<label>'s size are mutually dependent (a
// label's offset depends on how many bytes every preceding PUSH<label>
// resolved to, and a PUSH's size depends on the resolved offset), so
// sizes start maximal (3 bytes, enough for any offset this compiler
// could plausibly produce) and shrink monotonically until a full pass
// produces no further shrink, settling on the minimal consistent
// encoding.
func Assemble(items []codegen.Item) (*Bytecode, error) {
	sizes := make([]int, len(items))
	for i, it := range items {
		if it.Kind == codegen.KindPushLabel {
			sizes[i] = 3
		}
	}

	var offsets []int
	for {
		offsets = computeOffsets(items, sizes)
		changed := false
		for i, it := range items {
			if it.Kind != codegen.KindPushLabel {
				continue
			}
			target, ok := findLabel(items, offsets, it.Label)
			if !ok {
				return nil, &compilererr.AssemblerError{Kind: compilererr.ErrUnresolvedSymbol, Detail: it.Label}
			}
			need := minimalPushSize(target)
			if need != sizes[i] {
				sizes[i] = need
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	bytes, sourceMap, err := encode(items, sizes, offsets)
	if err != nil {
		return nil, err
	}
	jumpdests, err := jumpdestMap(items, offsets, bytes)
	if err != nil {
		return nil, err
	}
	return &Bytecode{Bytes: bytes, SourceMap: sourceMap, JumpdestMap: jumpdests}, nil
}

func computeOffsets(items []codegen.Item, sizes []int) []int {
	offsets := make([]int, len(items))
	pos := 0
	for i, it := range items {
		offsets[i] = pos
		switch it.Kind {
		case codegen.KindOpcode, codegen.KindLabelDef:
			// A label definition lowers to a JUMPDEST byte (encode()
			// below always emits one), so it advances pos exactly like
			// an opcode; skipping this made every later item's offset
			// short by one byte per preceding label.
			pos++
		case codegen.KindPushLabel:
			pos += 1 + sizes[i]
		case codegen.KindPushLiteral:
			n := len(it.Literal)
			pos += 1 + n
		case codegen.KindRawData:
			pos += len(it.Data)
		}
	}
	return offsets
}

func findLabel(items []codegen.Item, offsets []int, label string) (int, bool) {
	for i, it := range items {
		if it.Kind == codegen.KindLabelDef && it.Label == label {
			return offsets[i], true
		}
	}
	return 0, false
}

func encode(items []codegen.Item, sizes, offsets []int) ([]byte, []SourceMapEntry, error) {
	var out []byte
	var sourceMap []SourceMapEntry
	for i, it := range items {
		start := len(out)
		switch it.Kind {
		case codegen.KindLabelDef:
			out = append(out, opJumpdest)
		case codegen.KindOpcode:
			out = append(out, it.Opcode)
		case codegen.KindPushLabel:
			target, ok := findLabel(items, offsets, it.Label)
			if !ok {
				return nil, nil, &compilererr.AssemblerError{Kind: compilererr.ErrUnresolvedSymbol, Detail: it.Label}
			}
			n := sizes[i]
			out = append(out, pushOpcode(n))
			out = append(out, encodeBigEndian(target, n)...)
		case codegen.KindPushLiteral:
			n := len(it.Literal)
			out = append(out, pushOpcode(n))
			out = append(out, it.Literal...)
		case codegen.KindRawData:
			out = append(out, it.Data...)
		}
		if it.Source.File != "" {
			sourceMap = append(sourceMap, SourceMapEntry{Offset: start, File: it.Source.File, Line: it.Source.Line})
		}
	}
	return out, sourceMap, nil
}

func encodeBigEndian(v, n int) []byte {
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v & 0xff)
		v >>= 8
	}
	return b
}

// jumpdestMap asserts every label def resolved to an actual JUMPDEST
// byte at its offset and returns the sorted list of valid jump-dest
// offsets for the assembler's own record.
func jumpdestMap(items []codegen.Item, offsets []int, bytes []byte) ([]int, error) {
	var out []int
	for i, it := range items {
		if it.Kind != codegen.KindLabelDef {
			continue
		}
		off := offsets[i]
		if off >= len(bytes) || bytes[off] != opJumpdest {
			return nil, &compilererr.AssemblerError{Kind: compilererr.ErrUnresolvedJumpDest, Detail: it.Label}
		}
		out = append(out, off)
	}
	return out, nil
}
