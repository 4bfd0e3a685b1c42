// Package wasmtest assembles small WebAssembly modules for tests.
//
// It covers just enough of the binary format for guests that import host
// functions, keep a linear memory and a bump allocator, and export _start.
package wasmtest

import "bytes"

// I32 is the only value type the builder emits.
const I32 byte = 0x7f

type funcType struct {
	params  []byte
	results []byte
}

type importFunc struct {
	module, name string
	typeIdx      uint32
}

type function struct {
	typeIdx uint32
	locals  uint32
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type global struct {
	init    int32
	mutable bool
}

type segment struct {
	offset uint32
	data   []byte
}

// Module is a WebAssembly module under construction. Imports must be added
// before any function is defined, since defined functions are indexed after them.
type Module struct {
	types   []funcType
	imports []importFunc
	funcs   []function
	pages   uint32
	globals []global
	exports []export
	data    []segment
}

func (m *Module) typeOf(params, results []byte) uint32 {
	for i, t := range m.types {
		if bytes.Equal(t.params, params) && bytes.Equal(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc declares an imported function and returns its function index.
func (m *Module) ImportFunc(module, name string, params, results []byte) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmtest: imports must precede defined functions")
	}
	m.imports = append(m.imports, importFunc{module: module, name: name, typeIdx: m.typeOf(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function with the given number of extra i32 locals. body is the
// instruction sequence without the final end.
func (m *Module) Func(params, results []byte, locals uint32, body ...[]byte) uint32 {
	m.funcs = append(m.funcs, function{
		typeIdx: m.typeOf(params, results),
		locals:  locals,
		body:    bytes.Join(body, nil),
	})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory gives the module one linear memory of pages 64KiB pages, exported as "memory".
func (m *Module) Memory(pages uint32) {
	m.pages = pages
	m.exports = append(m.exports, export{name: "memory", kind: 0x02})
}

// GlobalI32 declares an i32 global and returns its index.
func (m *Module) GlobalI32(init int32, mutable bool) uint32 {
	m.globals = append(m.globals, global{init: init, mutable: mutable})
	return uint32(len(m.globals) - 1)
}

func (m *Module) Export(name string, funcIdx uint32) {
	m.exports = append(m.exports, export{name: name, kind: 0x00, idx: funcIdx})
}

// Data places data at offset in memory 0 at instantiation.
func (m *Module) Data(offset uint32, data []byte) {
	m.data = append(m.data, segment{offset: offset, data: data})
}

// Bytes encodes the module.
func (m *Module) Bytes() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	if len(m.types) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.types)))
		for _, t := range m.types {
			b = append(b, 0x60)
			b = appendVec(b, t.params)
			b = appendVec(b, t.results)
		}
		out = appendSection(out, 1, b)
	}

	if len(m.imports) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.imports)))
		for _, imp := range m.imports {
			b = appendName(b, imp.module)
			b = appendName(b, imp.name)
			b = append(b, 0x00)
			b = appendU32(b, imp.typeIdx)
		}
		out = appendSection(out, 2, b)
	}

	if len(m.funcs) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			b = appendU32(b, f.typeIdx)
		}
		out = appendSection(out, 3, b)
	}

	if m.pages > 0 {
		b := []byte{0x01, 0x00}
		b = appendU32(b, m.pages)
		out = appendSection(out, 5, b)
	}

	if len(m.globals) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.globals)))
		for _, g := range m.globals {
			b = append(b, I32)
			if g.mutable {
				b = append(b, 0x01)
			} else {
				b = append(b, 0x00)
			}
			b = append(b, I32Const(g.init)...)
			b = append(b, 0x0b)
		}
		out = appendSection(out, 6, b)
	}

	if len(m.exports) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.exports)))
		for _, e := range m.exports {
			b = appendName(b, e.name)
			b = append(b, e.kind)
			b = appendU32(b, e.idx)
		}
		out = appendSection(out, 7, b)
	}

	if len(m.funcs) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body []byte
			if f.locals > 0 {
				body = appendU32(body, 1)
				body = appendU32(body, f.locals)
				body = append(body, I32)
			} else {
				body = appendU32(body, 0)
			}
			body = append(body, f.body...)
			body = append(body, 0x0b)
			b = appendU32(b, uint32(len(body)))
			b = append(b, body...)
		}
		out = appendSection(out, 10, b)
	}

	if len(m.data) > 0 {
		var b []byte
		b = appendU32(b, uint32(len(m.data)))
		for _, d := range m.data {
			b = append(b, 0x00)
			b = append(b, I32Const(int32(d.offset))...)
			b = append(b, 0x0b)
			b = appendU32(b, uint32(len(d.data)))
			b = append(b, d.data...)
		}
		out = appendSection(out, 11, b)
	}

	return out
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = appendU32(out, uint32(len(content)))
	return append(out, content...)
}

func appendVec(out []byte, items []byte) []byte {
	out = appendU32(out, uint32(len(items)))
	return append(out, items...)
}

func appendName(out []byte, name string) []byte {
	out = appendU32(out, uint32(len(name)))
	return append(out, name...)
}

func appendU32(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func appendS32(out []byte, v int32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
