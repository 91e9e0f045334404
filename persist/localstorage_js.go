//go:build js && wasm

package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"
)

// localStorageDurable keeps a snapshot as one JSON document in the
// browser's localStorage, under a key derived from the origin.
type localStorageDurable struct {
	key string
}

func (d *localStorageDurable) storage() (js.Value, error) {
	ls := js.Global().Get("localStorage")
	if ls.IsUndefined() || ls.IsNull() {
		return js.Value{}, fmt.Errorf("localStorage unavailable")
	}
	return ls, nil
}

func (d *localStorageDurable) Load(ctx context.Context) (snap Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage load: %v", r)
		}
	}()

	ls, err := d.storage()
	if err != nil {
		return nil, err
	}
	v := ls.Call("getItem", d.key)
	if v.IsNull() || v.IsUndefined() {
		return Snapshot{}, nil
	}
	snap = make(Snapshot)
	if err := json.Unmarshal([]byte(v.String()), &snap); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.key, err)
	}
	return snap, nil
}

func (d *localStorageDurable) Save(ctx context.Context, snap Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("localStorage save: %v", r)
		}
	}()

	ls, err := d.storage()
	if err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	ls.Call("setItem", d.key, string(data))
	return nil
}

func (d *localStorageDurable) Close() error { return nil }

func openDefaultDurable(origin, dataDir string) (Durable, error) {
	return &localStorageDurable{key: "persist:" + origin}, nil
}
