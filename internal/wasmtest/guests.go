package wasmtest

const (
	EffectModule = "effect"
	WASIModule   = "wasi_snapshot_preview1"

	// outSlot is where guests ask the host to store (ptr, len) results.
	outSlot = 0
	// dataBase is where guests keep their constant strings.
	dataBase = 64
	heapBase = 1024
)

// HelloEffect prints "Hello, World!" through effect.put_line.
func HelloEffect() []byte {
	return PutLine("Hello, World!")
}

// PutLine prints line through effect.put_line and ignores the result.
func PutLine(line string) []byte {
	var m Module
	putLine := m.ImportFunc(EffectModule, "put_line", params(2), params(1))
	m.Memory(1)
	m.Data(dataBase, []byte(line))
	start := m.Func(nil, nil, 0,
		I32Const(dataBase), I32Const(int32(len(line))), Call(putLine), Drop,
	)
	m.Export("_start", start)
	return m.Bytes()
}

// HelloWASI prints "Hello, World!\n" with WASI fd_write to stdout.
func HelloWASI() []byte {
	const text = "Hello, World!\n"
	var m Module
	fdWrite := m.ImportFunc(WASIModule, "fd_write", params(4), params(1))
	m.Memory(1)
	// iovec {buf, len} at 0, nwritten at 8.
	m.Data(0, le32(dataBase, uint32(len(text))))
	m.Data(dataBase, []byte(text))
	start := m.Func(nil, nil, 0,
		I32Const(1), I32Const(0), I32Const(1), I32Const(8), Call(fdWrite), Drop,
	)
	m.Export("_start", start)
	return m.Bytes()
}

// Exit calls proc_exit(code).
func Exit(code int32) []byte {
	var m Module
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	start := m.Func(nil, nil, 0, I32Const(code), Call(procExit))
	m.Export("_start", start)
	return m.Bytes()
}

// LineStatus calls effect.<fn>(text) and exits with the errno it returned.
func LineStatus(fn, text string) []byte {
	var m Module
	call := m.ImportFunc(EffectModule, fn, params(2), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	m.Data(dataBase, []byte(text))
	start := m.Func(nil, nil, 0,
		I32Const(dataBase), I32Const(int32(len(text))), Call(call), Call(procExit),
	)
	m.Export("_start", start)
	return m.Bytes()
}

// WriteFile calls effect.<fn>(path, content), fn being write_utf8 or write_bytes,
// and exits with the errno it returned.
func WriteFile(fn, path string, content []byte) []byte {
	var m Module
	write := m.ImportFunc(EffectModule, fn, params(4), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	contentOff := uint32(dataBase + len(path))
	m.Data(dataBase, []byte(path))
	m.Data(contentOff, content)
	start := m.Func(nil, nil, 0,
		I32Const(dataBase), I32Const(int32(len(path))),
		I32Const(int32(contentOff)), I32Const(int32(len(content))),
		Call(write), Call(procExit),
	)
	m.Export("_start", start)
	return m.Bytes()
}

// EnvPrinter reads the environment variable name and prints its value.
// A failing call is reported as the exit code.
func EnvPrinter(name string) []byte {
	var m Module
	envVar := m.ImportFunc(EffectModule, "env_var", params(3), params(1))
	putLine := m.ImportFunc(EffectModule, "put_line", params(2), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	alloc := allocator(&m)

	m.Data(dataBase, []byte(name))
	start := m.Func(nil, nil, 1,
		I32Const(dataBase), I32Const(int32(len(name))), I32Const(outSlot), Call(envVar),
		LocalSet(0),
		Block,
		LocalGet(0), BrIf(0),
		I32Const(outSlot), I32Load(0), I32Const(outSlot), I32Load(4), Call(putLine), LocalSet(0),
		End,
		LocalGet(0), Call(procExit),
	)
	m.Export("_start", start)
	m.Export("allocate", alloc)
	return m.Bytes()
}

// EnvVarNoAllocate calls effect.env_var without exporting allocate and exits with the errno.
func EnvVarNoAllocate(name string) []byte {
	var m Module
	envVar := m.ImportFunc(EffectModule, "env_var", params(3), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	m.Data(dataBase, []byte(name))
	start := m.Func(nil, nil, 0,
		I32Const(dataBase), I32Const(int32(len(name))), I32Const(outSlot), Call(envVar), Call(procExit),
	)
	m.Export("_start", start)
	return m.Bytes()
}

// OutOfBounds calls effect.put_line with a range past the end of memory and exits with the errno.
func OutOfBounds() []byte {
	var m Module
	putLine := m.ImportFunc(EffectModule, "put_line", params(2), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	start := m.Func(nil, nil, 0,
		I32Const(65530), I32Const(100), Call(putLine), Call(procExit),
	)
	m.Export("_start", start)
	return m.Bytes()
}

// Echo copies standard input to standard output line by line through
// effect.get_line and effect.put_line, and exits with the errno that ended it.
func Echo() []byte {
	var m Module
	getLine := m.ImportFunc(EffectModule, "get_line", params(1), params(1))
	putLine := m.ImportFunc(EffectModule, "put_line", params(2), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	alloc := allocator(&m)
	start := m.Func(nil, nil, 1,
		Block,
		Loop,
		I32Const(outSlot), Call(getLine), LocalSet(0),
		LocalGet(0), BrIf(1),
		I32Const(outSlot), I32Load(0), I32Const(outSlot), I32Load(4), Call(putLine), Drop,
		Br(0),
		End,
		End,
		LocalGet(0), Call(procExit),
	)
	m.Export("_start", start)
	m.Export("allocate", alloc)
	return m.Bytes()
}

// SendRequest sends the JSON request and prints the JSON response it gets back.
// It exits with the errno of send_request.
func SendRequest(requestJSON string) []byte {
	var m Module
	send := m.ImportFunc(EffectModule, "send_request", params(3), params(1))
	putLine := m.ImportFunc(EffectModule, "put_line", params(2), params(1))
	procExit := m.ImportFunc(WASIModule, "proc_exit", params(1), nil)
	m.Memory(1)
	alloc := allocator(&m)
	m.Data(dataBase, []byte(requestJSON))
	start := m.Func(nil, nil, 1,
		I32Const(dataBase), I32Const(int32(len(requestJSON))), I32Const(outSlot), Call(send),
		LocalSet(0),
		Block,
		LocalGet(0), BrIf(0),
		I32Const(outSlot), I32Load(0), I32Const(outSlot), I32Load(4), Call(putLine), Drop,
		End,
		LocalGet(0), Call(procExit),
	)
	m.Export("_start", start)
	m.Export("allocate", alloc)
	return m.Bytes()
}

// allocator adds a bump allocate(size) -> ptr starting at heapBase.
func allocator(m *Module) uint32 {
	heap := m.GlobalI32(heapBase, true)
	return m.Func(params(1), params(1), 0,
		GlobalGet(heap),
		GlobalGet(heap), LocalGet(0), I32Add, GlobalSet(heap),
	)
}

func le32(vs ...uint32) []byte {
	out := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		out = append(out, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
	}
	return out
}
