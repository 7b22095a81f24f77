// Package koopa implements the "external" Koopa IR textual parser and
// raw-program builder named by spec.md §6.2 (parse_from_string,
// new_raw_builder, build_raw_program) — there is no such library published
// for Go, so sysyc supplies its own, consumed only by internal/riscv.
//
// The type model mirrors spec.md §3's Koopa IR data model directly: typed
// values keyed by pointer identity (the "value_info_map keyed by identity
// of the raw-IR value node" of spec.md §5), basic blocks holding an ordered
// instruction list, and functions holding an ordered basic-block list.
package koopa

// Type is one of i32, pointer(T), array(T,n) or unit.
type TypeKind int

const (
	KindI32 TypeKind = iota
	KindUnit
	KindPointer
	KindArray
)

type Type struct {
	Kind TypeKind
	Elem *Type
	Len  int
}

var (
	I32  = &Type{Kind: KindI32}
	Unit = &Type{Kind: KindUnit}
)

func Ptr(t *Type) *Type       { return &Type{Kind: KindPointer, Elem: t} }
func Array(t *Type, n int) *Type { return &Type{Kind: KindArray, Elem: t, Len: n} }

// SizeOf implements spec.md §4.6's size_of: 4 bytes for i32 and pointer,
// n*size_of(T) for array(T,n).
func SizeOf(t *Type) int {
	switch t.Kind {
	case KindArray:
		return t.Len * SizeOf(t.Elem)
	case KindUnit:
		return 0
	default:
		return 4
	}
}

func (t *Type) String() string {
	switch t.Kind {
	case KindI32:
		return "i32"
	case KindUnit:
		return "unit"
	case KindPointer:
		return "*" + t.Elem.String()
	case KindArray:
		return "[" + t.Elem.String() + ", " + itoa(t.Len) + "]"
	}
	return "?"
}

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

type BinOp int

const (
	ADD BinOp = iota
	SUB
	MUL
	DIV
	MOD
	EQ
	NE
	LT
	GT
	LE
	GE
	AND
	OR
)

var binOpNames = map[string]BinOp{
	"add": ADD, "sub": SUB, "mul": MUL, "div": DIV, "mod": MOD,
	"eq": EQ, "ne": NE, "lt": LT, "gt": GT, "le": LE, "ge": GE,
	"and": AND, "or": OR,
}

type ValueKind int

const (
	Integer ValueKind = iota
	FuncArgRef
	Alloc
	GlobalAlloc
	Load
	Store
	GetElemPtr
	GetPtr
	Binary
	Branch
	Jump
	Call
	Return
	ZeroInit
	Aggregate
)

// Value is one instruction/operand node of the raw IR graph. Values that
// produce a result carry Name (their SSA identifier with the sigil
// stripped, "3" for %3 or "x" for @x) and Type; Values used only for control flow or side effects (Store, Branch,
// Jump, Return, void Call) have Type == Unit and no Name.
type Value struct {
	Kind ValueKind
	Type *Type
	Name string

	IntVal   int32 // Integer
	ArgIndex int   // FuncArgRef

	Op          BinOp    // Binary
	Args        []*Value // operand list; meaning depends on Kind (see below)
	Callee      *Function
	TrueBB      *BasicBlock
	FalseBB     *BasicBlock
	Target      *BasicBlock
	Elems       []*Value // Aggregate
	Init        *Value   // GlobalAlloc initializer (ZeroInit/Aggregate/Integer)
	AllocType   *Type    // Alloc/GlobalAlloc: the type being allocated
}

// Args conventions:
//   Load:       Args[0] = source pointer
//   Store:      Args[0] = value, Args[1] = destination pointer
//   GetElemPtr: Args[0] = base, Args[1] = index
//   GetPtr:     Args[0] = base, Args[1] = index
//   Binary:     Args[0] = lhs, Args[1] = rhs
//   Branch:     Args[0] = condition
//   Call:       Args = actual arguments
//   Return:     Args[0] = returned value (absent for void return)

type BasicBlock struct {
	Name   string
	Values []*Value
}

type Param struct {
	Name string
	Type *Type
}

type Function struct {
	Name    string
	Params  []*Param
	RetType *Type
	Blocks  []*BasicBlock // nil for a bare declaration

	// ArgRefs holds, in parameter order, the exact *Value node every
	// %<param> reference inside the body resolves to. The backend needs
	// this to assign FuncArgRef a home keyed by pointer identity rather
	// than reconstructing an unrelated node.
	ArgRefs []*Value
}

func (f *Function) IsDecl() bool { return f.Blocks == nil }

type Program struct {
	Globals []*Value // Kind == GlobalAlloc
	Funcs   []*Function
}

func (p *Program) FindFunc(name string) *Function {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
