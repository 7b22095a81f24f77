package riscv

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"sysyc/internal/config"
	"sysyc/internal/diag"
	"sysyc/internal/koopa"
	"sysyc/internal/token"
)

type compiler struct {
	out         strings.Builder
	cfg         config.Config
	globalHomes map[*koopa.Value]home
	f           *frame
	fn          *koopa.Function
}

// Compile lowers a raw Koopa program to RISC-V assembly text, per
// spec.md §4.6-§4.7.
func Compile(prog *koopa.Program, cfg config.Config) string {
	c := &compiler{cfg: cfg, globalHomes: map[*koopa.Value]home{}}

	if len(prog.Globals) > 0 {
		c.out.WriteString(".data\n")
		for _, g := range prog.Globals {
			c.globalHomes[g] = home{kind: hkGlobal, name: g.Name}
			c.emitGlobal(g)
		}
		c.out.WriteString("\n")
	}

	c.out.WriteString(".text\n")
	for _, fn := range prog.Funcs {
		if fn.IsDecl() {
			continue
		}
		c.out.WriteString(".globl " + fn.Name + "\n")
		c.compileFunc(fn)
	}
	return c.out.String()
}

func (c *compiler) emitGlobal(g *koopa.Value) {
	fmt.Fprintf(&c.out, ".globl %s\n%s:\n", g.Name, g.Name)
	switch g.Init.Kind {
	case koopa.ZeroInit:
		fmt.Fprintf(&c.out, "  .zero %d\n", koopa.SizeOf(g.AllocType))
	case koopa.Integer:
		fmt.Fprintf(&c.out, "  .word %d\n", g.Init.IntVal)
	case koopa.Aggregate:
		c.emitAggregate(g.Init)
	default:
		diag.Raise(diag.InvariantError, token.Token{}, "unexpected global initializer kind")
	}
}

func (c *compiler) emitAggregate(v *koopa.Value) {
	switch v.Kind {
	case koopa.Integer:
		fmt.Fprintf(&c.out, "  .word %d\n", v.IntVal)
	case koopa.Aggregate:
		for _, e := range v.Elems {
			c.emitAggregate(e)
		}
	}
}

// homeOf resolves any operand's home, whether it belongs to a global or to
// the function currently being compiled.
func (c *compiler) homeOf(v *koopa.Value) home {
	if h, ok := c.globalHomes[v]; ok {
		return h
	}
	return c.f.homeOf(v)
}

func (c *compiler) compileFunc(fn *koopa.Function) {
	c.fn = fn
	c.f = planFrame(fn)

	if c.cfg.Verbose {
		fmt.Fprintf(&c.out, "  # frame %s: %s\n", fn.Name, humanize.Bytes(uint64(c.f.size)))
	}

	fmt.Fprintf(&c.out, "%s:\n", fn.Name)
	c.prologue()

	for i, bb := range fn.Blocks {
		if i > 0 {
			fmt.Fprintf(&c.out, "%s_%s:\n", fn.Name, bb.Name)
		}
		for _, v := range bb.Values {
			c.compileInstr(v)
		}
	}

	fmt.Fprintf(&c.out, "%s_end:\n", fn.Name)
	c.epilogue()
	c.out.WriteString("\n")
}

func (c *compiler) prologue() {
	if c.f.size == 0 {
		return
	}
	c.spAdjust(-c.f.size)
	if c.f.isRASaved {
		c.spStore("ra", c.f.size-4, "t0")
	}
}

func (c *compiler) epilogue() {
	if c.f.size == 0 {
		c.out.WriteString("  ret\n")
		return
	}
	if c.f.isRASaved {
		c.spLoad("ra", c.f.size-4, "t0")
	}
	c.spAdjust(c.f.size)
	c.out.WriteString("  ret\n")
}

func (c *compiler) spAdjust(delta int) {
	if delta >= -2048 && delta <= 2047 {
		fmt.Fprintf(&c.out, "  addi sp, sp, %d\n", delta)
		return
	}
	fmt.Fprintf(&c.out, "  li t0, %d\n", delta)
	c.out.WriteString("  add sp, sp, t0\n")
}

// spLoad/spStore are the sp-relative access helper from spec.md §4.7.
func (c *compiler) spLoad(reg string, off int, tmp string) {
	if off >= -2048 && off <= 2047 {
		fmt.Fprintf(&c.out, "  lw %s, %d(sp)\n", reg, off)
		return
	}
	fmt.Fprintf(&c.out, "  li %s, %d\n", tmp, off)
	fmt.Fprintf(&c.out, "  add %s, sp, %s\n", tmp, tmp)
	fmt.Fprintf(&c.out, "  lw %s, 0(%s)\n", reg, tmp)
}

func (c *compiler) spStore(reg string, off int, tmp string) {
	if off >= -2048 && off <= 2047 {
		fmt.Fprintf(&c.out, "  sw %s, %d(sp)\n", reg, off)
		return
	}
	fmt.Fprintf(&c.out, "  li %s, %d\n", tmp, off)
	fmt.Fprintf(&c.out, "  add %s, sp, %s\n", tmp, tmp)
	fmt.Fprintf(&c.out, "  sw %s, 0(%s)\n", reg, tmp)
}

// readInto loads the scalar value denoted by v into reg: a literal for
// Integer, a direct fetch from its home for a plain variable or a
// previously-computed result, and mv for a register-resident function
// argument.
func (c *compiler) readInto(v *koopa.Value, reg string) {
	switch v.Kind {
	case koopa.Integer:
		fmt.Fprintf(&c.out, "  li %s, %d\n", reg, v.IntVal)
	case koopa.GlobalAlloc:
		fmt.Fprintf(&c.out, "  la %s, %s\n", reg, v.Name)
		fmt.Fprintf(&c.out, "  lw %s, 0(%s)\n", reg, reg)
	case koopa.Alloc:
		h := c.homeOf(v)
		c.spLoad(reg, h.offset, tmp2(reg))
	default:
		h := c.homeOf(v)
		switch h.kind {
		case hkRegister:
			if h.reg != reg {
				fmt.Fprintf(&c.out, "  mv %s, %s\n", reg, h.reg)
			}
		case hkStack:
			c.spLoad(reg, h.offset, tmp2(reg))
		default:
			diag.Raise(diag.InvariantError, token.Token{}, "value has no readable home")
		}
	}
}

// writeFrom stores reg into v's own home, used after computing v's result.
func (c *compiler) writeFrom(v *koopa.Value, reg string) {
	h := c.homeOf(v)
	switch h.kind {
	case hkRegister:
		if h.reg != reg {
			fmt.Fprintf(&c.out, "  mv %s, %s\n", h.reg, reg)
		}
	case hkStack:
		c.spStore(reg, h.offset, tmp2(reg))
	default:
		diag.Raise(diag.InvariantError, token.Token{}, "value has no writable home")
	}
}

// addressInto computes the memory address v denotes (as opposed to
// readInto, which fetches the scalar/pointer value v denotes) into reg.
// Used for the base of getelemptr/getptr.
func (c *compiler) addressInto(v *koopa.Value, reg string) {
	switch v.Kind {
	case koopa.GlobalAlloc:
		fmt.Fprintf(&c.out, "  la %s, %s\n", reg, v.Name)
	case koopa.Alloc:
		h := c.homeOf(v)
		if h.offset >= -2048 && h.offset <= 2047 {
			fmt.Fprintf(&c.out, "  addi %s, sp, %d\n", reg, h.offset)
		} else {
			fmt.Fprintf(&c.out, "  li %s, %d\n", reg, h.offset)
			fmt.Fprintf(&c.out, "  add %s, sp, %s\n", reg, reg)
		}
	default:
		// base is itself a pointer value (a loaded parameter, or a chained
		// getptr/getelemptr result): the address IS its stored value.
		c.readInto(v, reg)
	}
}

func tmp2(reg string) string {
	if reg == "t0" {
		return "t1"
	}
	return "t0"
}

func (c *compiler) compileInstr(v *koopa.Value) {
	switch v.Kind {
	case koopa.Alloc:
		// no emission: space is implicit in the frame layout.

	case koopa.Load:
		src := v.Args[0]
		if src.Kind == koopa.Alloc || src.Kind == koopa.GlobalAlloc {
			c.readInto(src, "t0")
		} else {
			c.readInto(src, "t0")
			c.out.WriteString("  lw t0, 0(t0)\n")
		}
		c.writeFrom(v, "t0")

	case koopa.Store:
		val, dst := v.Args[0], v.Args[1]
		c.readInto(val, "t0")
		switch dst.Kind {
		case koopa.Alloc:
			h := c.homeOf(dst)
			c.spStore("t0", h.offset, "t1")
		case koopa.GlobalAlloc:
			fmt.Fprintf(&c.out, "  la t1, %s\n", dst.Name)
			c.out.WriteString("  sw t0, 0(t1)\n")
		default:
			c.readInto(dst, "t1")
			c.out.WriteString("  sw t0, 0(t1)\n")
		}

	case koopa.GetElemPtr:
		c.addressInto(v.Args[0], "t0")
		c.readInto(v.Args[1], "t1")
		c.out.WriteString("  slli t1, t1, 2\n")
		c.out.WriteString("  add t0, t0, t1\n")
		c.writeFrom(v, "t0")

	case koopa.GetPtr:
		c.readInto(v.Args[0], "t0")
		c.readInto(v.Args[1], "t1")
		c.out.WriteString("  slli t1, t1, 2\n")
		c.out.WriteString("  add t0, t0, t1\n")
		c.writeFrom(v, "t0")

	case koopa.Binary:
		c.readInto(v.Args[0], "t0")
		c.readInto(v.Args[1], "t1")
		c.emitBinOp(v.Op)
		c.writeFrom(v, "t0")

	case koopa.Branch:
		c.readInto(v.Args[0], "t0")
		fmt.Fprintf(&c.out, "  bnez t0, %s_%s\n", c.fn.Name, v.TrueBB.Name)
		fmt.Fprintf(&c.out, "  j %s_%s\n", c.fn.Name, v.FalseBB.Name)

	case koopa.Jump:
		fmt.Fprintf(&c.out, "  j %s_%s\n", c.fn.Name, v.Target.Name)

	case koopa.Return:
		if len(v.Args) > 0 {
			c.readInto(v.Args[0], "a0")
		}
		fmt.Fprintf(&c.out, "  j %s_end\n", c.fn.Name)

	case koopa.Call:
		c.emitCall(v)

	default:
		diag.Raise(diag.InvariantError, token.Token{}, "unhandled instruction kind %v", v.Kind)
	}
}

func (c *compiler) emitBinOp(op koopa.BinOp) {
	switch op {
	case koopa.ADD:
		c.out.WriteString("  add t0, t0, t1\n")
	case koopa.SUB:
		c.out.WriteString("  sub t0, t0, t1\n")
	case koopa.MUL:
		c.out.WriteString("  mul t0, t0, t1\n")
	case koopa.DIV:
		c.out.WriteString("  div t0, t0, t1\n")
	case koopa.MOD:
		c.out.WriteString("  rem t0, t0, t1\n")
	case koopa.EQ:
		c.out.WriteString("  xor t0, t0, t1\n  seqz t0, t0\n")
	case koopa.NE:
		c.out.WriteString("  xor t0, t0, t1\n  snez t0, t0\n")
	case koopa.LT:
		c.out.WriteString("  slt t0, t0, t1\n")
	case koopa.GT:
		c.out.WriteString("  sgt t0, t0, t1\n")
	case koopa.LE:
		c.out.WriteString("  sgt t0, t0, t1\n  seqz t0, t0\n")
	case koopa.GE:
		c.out.WriteString("  slt t0, t0, t1\n  seqz t0, t0\n")
	case koopa.AND:
		c.out.WriteString("  snez t0, t0\n  snez t1, t1\n  and t0, t0, t1\n")
	case koopa.OR:
		c.out.WriteString("  or t0, t0, t1\n  snez t0, t0\n")
	}
}

func (c *compiler) emitCall(v *koopa.Value) {
	for i, arg := range v.Args {
		if i < 8 {
			c.readInto(arg, regName(i))
		} else {
			c.readInto(arg, "t0")
			c.spStore("t0", (i-8)*4, "t1")
		}
	}
	fmt.Fprintf(&c.out, "  call %s\n", v.Callee.Name)
	if v.Type.Kind != koopa.KindUnit {
		c.writeFrom(v, "a0")
	}
}
