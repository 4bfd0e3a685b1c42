package wasmtest

func I32Const(v int32) []byte     { return appendS32([]byte{0x41}, v) }
func Call(funcIdx uint32) []byte  { return appendU32([]byte{0x10}, funcIdx) }
func LocalGet(idx uint32) []byte  { return appendU32([]byte{0x20}, idx) }
func LocalSet(idx uint32) []byte  { return appendU32([]byte{0x21}, idx) }
func GlobalGet(idx uint32) []byte { return appendU32([]byte{0x23}, idx) }
func GlobalSet(idx uint32) []byte { return appendU32([]byte{0x24}, idx) }

// I32Load loads from the address on the stack plus offset.
func I32Load(offset uint32) []byte { return appendU32([]byte{0x28, 0x02}, offset) }

// Br and BrIf branch to the enclosing block or loop depth levels out.
func Br(depth uint32) []byte   { return appendU32([]byte{0x0c}, depth) }
func BrIf(depth uint32) []byte { return appendU32([]byte{0x0d}, depth) }

var (
	Drop   = []byte{0x1a}
	I32Add = []byte{0x6a}
	Block  = []byte{0x02, 0x40}
	Loop   = []byte{0x03, 0x40}
	End    = []byte{0x0b}
)

func params(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = I32
	}
	return p
}
