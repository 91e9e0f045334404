package smoke

import (
	"context"
	"errors"
	"fmt"

	"github.com/tetratelabs/wazero/api"
)

// Exports a calculator module must provide.
const (
	ExportVersion   = "algorithm_version"
	ExportMalloc    = "malloc"
	ExportFree      = "free"
	ExportNew       = "object_new"
	ExportCalculate = "object_calculate"
	ExportDelete    = "object_delete"
)

var ErrReleased = errors.New("object already released")

// WasmTarget calls a calculator through a module's exported functions.
type WasmTarget struct {
	mod                                      api.Module
	version, malloc, free, newObj, calc, del api.Function
}

// NewWasmTarget binds the calculator exports of mod.
func NewWasmTarget(mod api.Module) (*WasmTarget, error) {
	t := &WasmTarget{mod: mod}
	for name, fn := range map[string]*api.Function{
		ExportVersion:   &t.version,
		ExportMalloc:    &t.malloc,
		ExportFree:      &t.free,
		ExportNew:       &t.newObj,
		ExportCalculate: &t.calc,
		ExportDelete:    &t.del,
	} {
		*fn = mod.ExportedFunction(name)
		if *fn == nil {
			return nil, fmt.Errorf("module does not export %q", name)
		}
	}
	if mod.Memory() == nil {
		return nil, errors.New("module does not export memory")
	}
	return t, nil
}

func (t *WasmTarget) Version(ctx context.Context) (int, error) {
	res, err := t.version.Call(ctx)
	if err != nil {
		return 0, err
	}
	return int(int32(res[0])), nil
}

// New copies data into module memory and constructs an object from it.
func (t *WasmTarget) New(ctx context.Context, data []byte) (Object, error) {
	res, err := t.malloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("malloc: %w", err)
	}
	ptr := uint32(res[0])
	defer t.free.Call(ctx, uint64(ptr))

	if !t.mod.Memory().Write(ptr, data) {
		return nil, fmt.Errorf("write %d bytes at %#x: out of range", len(data), ptr)
	}

	res, err = t.newObj.Call(ctx, uint64(ptr), uint64(len(data)))
	if err != nil {
		return nil, err
	}
	handle := uint32(res[0])
	if handle == 0 {
		return nil, ErrConstruct
	}
	return &wasmObject{target: t, handle: handle}, nil
}

type wasmObject struct {
	target *WasmTarget
	handle uint32
}

func (o *wasmObject) Calculate(ctx context.Context, in Inputs) (float64, error) {
	if o.handle == 0 {
		return 0, ErrReleased
	}
	res, err := o.target.calc.Call(ctx,
		uint64(o.handle),
		api.EncodeI32(int32(in.Num300s)),
		api.EncodeI32(int32(in.Num100s)),
		api.EncodeI32(int32(in.Num50s)),
		api.EncodeI32(int32(in.NumMisses)),
		api.EncodeI64(in.Score),
		api.EncodeI32(int32(in.ComboMax)),
	)
	if err != nil {
		return 0, err
	}
	return api.DecodeF64(res[0]), nil
}

func (o *wasmObject) Delete(ctx context.Context) error {
	if o.handle == 0 {
		return ErrReleased
	}
	_, err := o.target.del.Call(ctx, uint64(o.handle))
	o.handle = 0
	return err
}
