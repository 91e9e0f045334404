// Package wasmtest holds small hand-assembled WebAssembly modules for tests.
package wasmtest

// CalculatorVersion is what Calculator's algorithm_version returns.
const CalculatorVersion = 20250306

// EmptyStart exports memory and an empty _start.
//
//	(module (memory (export "memory") 1) (func (export "_start")))
var EmptyStart = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x04, 0x01, 0x60, 0x00, 0x00, 0x03, 0x02,
	0x01, 0x00, 0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x13, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72,
	0x79, 0x02, 0x00, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x00, 0x0a, 0x04, 0x01, 0x02,
	0x00, 0x0b,
}

// TrapStart traps in _start.
//
//	(module (memory (export "memory") 1) (func (export "_start") unreachable))
var TrapStart = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x04, 0x01, 0x60, 0x00, 0x00, 0x03, 0x02,
	0x01, 0x00, 0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x13, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72,
	0x79, 0x02, 0x00, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x00, 0x0a, 0x05, 0x01, 0x03,
	0x00, 0x00, 0x0b,
}

// StdoutHello writes "hello\n" to stdout.
var StdoutHello = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x0c, 0x02, 0x60, 0x04, 0x7f, 0x7f, 0x7f,
	0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00, 0x02, 0x23, 0x01, 0x16, 0x77, 0x61, 0x73, 0x69, 0x5f, 0x73,
	0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31,
	0x08, 0x66, 0x64, 0x5f, 0x77, 0x72, 0x69, 0x74, 0x65, 0x00, 0x00, 0x03, 0x02, 0x01, 0x01, 0x05,
	0x03, 0x01, 0x00, 0x01, 0x07, 0x13, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x01, 0x0a, 0x0f, 0x01, 0x0d, 0x00, 0x41, 0x01,
	0x41, 0x08, 0x41, 0x01, 0x41, 0x00, 0x10, 0x00, 0x1a, 0x0b, 0x0b, 0x14, 0x01, 0x00, 0x41, 0x08,
	0x0b, 0x0e, 0x10, 0x00, 0x00, 0x00, 0x06, 0x00, 0x00, 0x00, 0x68, 0x65, 0x6c, 0x6c, 0x6f, 0x0a,
}

// StderrMixed writes "warn\n" followed by a flush request tagged "save" to stderr.
var StderrMixed = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x0c, 0x02, 0x60, 0x04, 0x7f, 0x7f, 0x7f,
	0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00, 0x02, 0x23, 0x01, 0x16, 0x77, 0x61, 0x73, 0x69, 0x5f, 0x73,
	0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31,
	0x08, 0x66, 0x64, 0x5f, 0x77, 0x72, 0x69, 0x74, 0x65, 0x00, 0x00, 0x03, 0x02, 0x01, 0x01, 0x05,
	0x03, 0x01, 0x00, 0x01, 0x07, 0x13, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00,
	0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x01, 0x0a, 0x0f, 0x01, 0x0d, 0x00, 0x41, 0x02,
	0x41, 0x08, 0x41, 0x01, 0x41, 0x00, 0x10, 0x00, 0x1a, 0x0b, 0x0b, 0x28, 0x01, 0x00, 0x41, 0x08,
	0x0b, 0x22, 0x10, 0x00, 0x00, 0x00, 0x1a, 0x00, 0x00, 0x00, 0x77, 0x61, 0x72, 0x6e, 0x0a, 0x00,
	0x48, 0x45, 0x41, 0x44, 0x4c, 0x45, 0x53, 0x53, 0x5f, 0x46, 0x4c, 0x55, 0x53, 0x48, 0x3a, 0x73,
	0x61, 0x76, 0x65, 0x00,
}

// CallWindowInfo calls the "window_info" host function and copies the
// reply line to stdout.
var CallWindowInfo = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x0c, 0x02, 0x60, 0x04, 0x7f, 0x7f, 0x7f,
	0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00, 0x02, 0x44, 0x02, 0x16, 0x77, 0x61, 0x73, 0x69, 0x5f, 0x73,
	0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31,
	0x08, 0x66, 0x64, 0x5f, 0x77, 0x72, 0x69, 0x74, 0x65, 0x00, 0x00, 0x16, 0x77, 0x61, 0x73, 0x69,
	0x5f, 0x73, 0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65,
	0x77, 0x31, 0x07, 0x66, 0x64, 0x5f, 0x72, 0x65, 0x61, 0x64, 0x00, 0x00, 0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x13, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02,
	0x00, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x02, 0x0a, 0x2f, 0x01, 0x2d, 0x00, 0x41,
	0x02, 0x41, 0x08, 0x41, 0x01, 0x41, 0x00, 0x10, 0x00, 0x1a, 0x41, 0x00, 0x41, 0x20, 0x41, 0x01,
	0x41, 0x28, 0x10, 0x01, 0x1a, 0x41, 0x34, 0x41, 0x28, 0x28, 0x02, 0x00, 0x36, 0x02, 0x00, 0x41,
	0x01, 0x41, 0x30, 0x41, 0x01, 0x41, 0x2c, 0x10, 0x00, 0x1a, 0x0b, 0x0b, 0x4d, 0x04, 0x00, 0x41,
	0x08, 0x0b, 0x08, 0x40, 0x00, 0x00, 0x00, 0x1f, 0x00, 0x00, 0x00, 0x00, 0x41, 0x20, 0x0b, 0x08,
	0x00, 0x04, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x41, 0x30, 0x0b, 0x08, 0x00, 0x04, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x41, 0xc0, 0x00, 0x0b, 0x1f, 0x00, 0x48, 0x45, 0x41, 0x44,
	0x4c, 0x45, 0x53, 0x53, 0x3a, 0x7b, 0x22, 0x66, 0x6e, 0x22, 0x3a, 0x22, 0x77, 0x69, 0x6e, 0x64,
	0x6f, 0x77, 0x5f, 0x69, 0x6e, 0x66, 0x6f, 0x22, 0x7d, 0x00,
}

// PollStdin calls the "stdin_poll" host function until a reply reports a
// line, then copies that reply to stdout.
var PollStdin = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x0c, 0x02, 0x60, 0x04, 0x7f, 0x7f, 0x7f,
	0x7f, 0x01, 0x7f, 0x60, 0x00, 0x00, 0x02, 0x44, 0x02, 0x16, 0x77, 0x61, 0x73, 0x69, 0x5f, 0x73,
	0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65, 0x77, 0x31,
	0x08, 0x66, 0x64, 0x5f, 0x77, 0x72, 0x69, 0x74, 0x65, 0x00, 0x00, 0x16, 0x77, 0x61, 0x73, 0x69,
	0x5f, 0x73, 0x6e, 0x61, 0x70, 0x73, 0x68, 0x6f, 0x74, 0x5f, 0x70, 0x72, 0x65, 0x76, 0x69, 0x65,
	0x77, 0x31, 0x07, 0x66, 0x64, 0x5f, 0x72, 0x65, 0x61, 0x64, 0x00, 0x00, 0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01, 0x07, 0x13, 0x02, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02,
	0x00, 0x06, 0x5f, 0x73, 0x74, 0x61, 0x72, 0x74, 0x00, 0x02, 0x0a, 0x3e, 0x01, 0x3c, 0x00, 0x03,
	0x40, 0x41, 0x02, 0x41, 0x08, 0x41, 0x01, 0x41, 0x00, 0x10, 0x00, 0x1a, 0x41, 0x00, 0x41, 0x20,
	0x41, 0x01, 0x41, 0x28, 0x10, 0x01, 0x1a, 0x41, 0x80, 0x08, 0x2d, 0x00, 0x0a, 0x41, 0xec, 0x00,
	0x47, 0x0d, 0x00, 0x0b, 0x41, 0x34, 0x41, 0x28, 0x28, 0x02, 0x00, 0x36, 0x02, 0x00, 0x41, 0x01,
	0x41, 0x30, 0x41, 0x01, 0x41, 0x2c, 0x10, 0x00, 0x1a, 0x0b, 0x0b, 0x4c, 0x04, 0x00, 0x41, 0x08,
	0x0b, 0x08, 0x40, 0x00, 0x00, 0x00, 0x1e, 0x00, 0x00, 0x00, 0x00, 0x41, 0x20, 0x0b, 0x08, 0x00,
	0x04, 0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x41, 0x30, 0x0b, 0x08, 0x00, 0x04, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x41, 0xc0, 0x00, 0x0b, 0x1e, 0x00, 0x48, 0x45, 0x41, 0x44, 0x4c,
	0x45, 0x53, 0x53, 0x3a, 0x7b, 0x22, 0x66, 0x6e, 0x22, 0x3a, 0x22, 0x73, 0x74, 0x64, 0x69, 0x6e,
	0x5f, 0x70, 0x6f, 0x6c, 0x6c, 0x22, 0x7d, 0x00,
}

// Calculator is a reactor exporting the calculator ABI:
//
//	algorithm_version() i32          returns 20250306
//	malloc(size i32) i32             bump allocator starting at 1024
//	free(ptr i32)
//	object_new(ptr, len i32) i32     returns len as the handle, 0 when empty
//	object_calculate(h, n300, n100, n50, miss i32, score i64, combo i32) f64
//	                                 returns the handle as a float
//	object_delete(h i32)
var Calculator = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, 0x01, 0x1f, 0x05, 0x60, 0x00, 0x01, 0x7f, 0x60,
	0x01, 0x7f, 0x01, 0x7f, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7f, 0x60, 0x07,
	0x7f, 0x7f, 0x7f, 0x7f, 0x7f, 0x7e, 0x7f, 0x01, 0x7c, 0x03, 0x07, 0x06, 0x00, 0x01, 0x02, 0x03,
	0x04, 0x02, 0x05, 0x03, 0x01, 0x00, 0x01, 0x06, 0x07, 0x01, 0x7f, 0x01, 0x41, 0x80, 0x08, 0x0b,
	0x07, 0x5e, 0x07, 0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, 0x02, 0x00, 0x11, 0x61, 0x6c, 0x67,
	0x6f, 0x72, 0x69, 0x74, 0x68, 0x6d, 0x5f, 0x76, 0x65, 0x72, 0x73, 0x69, 0x6f, 0x6e, 0x00, 0x00,
	0x06, 0x6d, 0x61, 0x6c, 0x6c, 0x6f, 0x63, 0x00, 0x01, 0x04, 0x66, 0x72, 0x65, 0x65, 0x00, 0x02,
	0x0a, 0x6f, 0x62, 0x6a, 0x65, 0x63, 0x74, 0x5f, 0x6e, 0x65, 0x77, 0x00, 0x03, 0x10, 0x6f, 0x62,
	0x6a, 0x65, 0x63, 0x74, 0x5f, 0x63, 0x61, 0x6c, 0x63, 0x75, 0x6c, 0x61, 0x74, 0x65, 0x00, 0x04,
	0x0d, 0x6f, 0x62, 0x6a, 0x65, 0x63, 0x74, 0x5f, 0x64, 0x65, 0x6c, 0x65, 0x74, 0x65, 0x00, 0x05,
	0x0a, 0x26, 0x06, 0x07, 0x00, 0x41, 0xc2, 0xfd, 0xd3, 0x09, 0x0b, 0x0b, 0x00, 0x23, 0x00, 0x23,
	0x00, 0x20, 0x00, 0x6a, 0x24, 0x00, 0x0b, 0x02, 0x00, 0x0b, 0x04, 0x00, 0x20, 0x01, 0x0b, 0x05,
	0x00, 0x20, 0x00, 0xb7, 0x0b, 0x02, 0x00, 0x0b,
}
