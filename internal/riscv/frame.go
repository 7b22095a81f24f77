// Package riscv implements the RISC-V backend: the Frame Planner (C6) and
// the RISC-V Emitter (C7) from spec.md §4.6-§4.7, consuming the typed raw
// IR graph internal/koopa builds from emitted Koopa text.
//
// Grounded on the teacher's pkg/codegen/qbe_backend.go in spirit (a
// two-pass per-function planning step ahead of instruction lowering) but
// the actual frame-slot bookkeeping here has no teacher analogue — the
// teacher targets QBE's SSA text and never plans a raw stack frame itself,
// so this is written from spec.md §4.6's algorithm directly, in the
// teacher's plain-loop, few-abstractions style.
package riscv

import "sysyc/internal/koopa"

type homeKind int

const (
	hkStack homeKind = iota
	hkRegister
	hkGlobal
)

type home struct {
	kind   homeKind
	offset int    // hkStack
	reg    string // hkRegister
	name   string // hkGlobal
}

// frame is the per-function layout computed by planFrame.
type frame struct {
	size          int
	isRASaved     bool
	stackParamNum int
	homes         map[*koopa.Value]home
}

func (f *frame) homeOf(v *koopa.Value) home {
	if h, ok := f.homes[v]; ok {
		return h
	}
	return home{}
}

func align16(n int) int {
	if n%16 == 0 {
		return n
	}
	return n + (16 - n%16)
}

// planFrame implements spec.md §4.6: two passes over the function's basic
// blocks compute is_ra_saved, the outgoing-argument area size, and a stack
// offset for every value that produces a non-unit result. FuncArgRef homes
// are assigned last since a stack-passed argument's offset depends on the
// now-final frame size.
func planFrame(fn *koopa.Function) *frame {
	f := &frame{homes: map[*koopa.Value]home{}}

	for _, bb := range fn.Blocks {
		for _, v := range bb.Values {
			if v.Kind == koopa.Call {
				f.isRASaved = true
				n := len(v.Args) - 8
				if n > f.stackParamNum {
					f.stackParamNum = n
				}
			}
		}
	}
	if f.stackParamNum < 0 {
		f.stackParamNum = 0
	}

	offset := f.stackParamNum * 4
	for _, bb := range fn.Blocks {
		for _, v := range bb.Values {
			switch v.Kind {
			case koopa.Alloc:
				f.homes[v] = home{kind: hkStack, offset: offset}
				offset += koopa.SizeOf(v.AllocType)
			case koopa.Load, koopa.GetElemPtr, koopa.GetPtr, koopa.Binary:
				f.homes[v] = home{kind: hkStack, offset: offset}
				offset += 4
			case koopa.Call:
				if v.Type.Kind != koopa.KindUnit {
					f.homes[v] = home{kind: hkStack, offset: offset}
					offset += 4
				}
			}
		}
	}

	f.size = align16(offset + raBytes(f.isRASaved))

	// FuncArgRef homes are assigned last: a stack-passed argument's offset
	// is expressed relative to the now-final frame size, reading into the
	// caller's outgoing argument area that sits just above our own frame.
	for i, ref := range fn.ArgRefs {
		if i < 8 {
			f.homes[ref] = home{kind: hkRegister, reg: regName(i)}
		} else {
			f.homes[ref] = home{kind: hkStack, offset: f.size + (i-8)*4}
		}
	}
	return f
}

func raBytes(saved bool) int {
	if saved {
		return 4
	}
	return 0
}

func regName(i int) string { return "a" + itoa(i) }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
