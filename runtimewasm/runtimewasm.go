package runtimewasm

import (
	"context"
	"strconv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/scale-codec/errors"
	"github.com/wippyai/scale-codec/scale"
)

const (
	metadataExport  = "Metadata_metadata"
	versionedExport = "Metadata_metadata_at_version"
	heapBaseExport  = "__heap_base"

	wasmPageSize = 65536
)

// Extract runs a runtime wasm blob's Metadata_metadata entry point and
// returns the raw metadata bytes, compact length prefix stripped. All
// host imports the blob declares are satisfied with zero-returning
// stubs, except the allocator which is backed by a real bump allocator.
func Extract(ctx context.Context, wasmBytes []byte) ([]byte, error) {
	// The response is a SCALE byte vector wrapping the metadata.
	raw, err := extract(ctx, wasmBytes, metadataExport, nil)
	if err != nil {
		return nil, err
	}
	out, _, err := scale.DecodeBytes(raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ExtractAtVersion runs Metadata_metadata_at_version for a specific
// metadata version (14 or 15). The runtime answers with an optional
// byte vector; a missing value means it cannot produce that version.
func ExtractAtVersion(ctx context.Context, wasmBytes []byte, version uint32) ([]byte, error) {
	args := scale.AppendUint(nil, uint64(version), 32)
	raw, err := extract(ctx, wasmBytes, versionedExport, args)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.InvalidData(errors.PhaseExtract, nil, "empty response")
	}
	if raw[0] == 0x00 {
		return nil, errors.NotFound(errors.PhaseExtract, "metadata version", strconv.Itoa(int(version)))
	}
	inner, _, err := scale.DecodeBytes(raw[1:])
	if err != nil {
		return nil, err
	}
	return inner, nil
}

func extract(ctx context.Context, wasmBytes []byte, entry string, args []byte) ([]byte, error) {
	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer rt.Close(ctx)

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExtract, errors.KindInvalidData, err, "compile runtime")
	}

	alloc := &bumpAllocator{}
	if err := stubImports(ctx, rt, compiled, alloc); err != nil {
		return nil, err
	}

	// Runtimes may declare a start function; skip it, the metadata entry
	// point needs no prior initialization.
	mod, err := rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName("").WithStartFunctions())
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExtract, errors.KindInvalidData, err, "instantiate runtime")
	}

	fn := mod.ExportedFunction(entry)
	if fn == nil {
		return nil, errors.NotFound(errors.PhaseExtract, "runtime export", entry)
	}

	var argPtr, argLen uint32
	if len(args) > 0 {
		argPtr, err = alloc.place(mod, args)
		if err != nil {
			return nil, err
		}
		argLen = uint32(len(args))
	}

	results, err := fn.Call(ctx, uint64(argPtr), uint64(argLen))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseExtract, errors.KindInvalidData, err, "call "+entry)
	}
	if len(results) != 1 {
		return nil, errors.InvalidData(errors.PhaseExtract, nil, "entry point returned no result")
	}

	// Result is (ptr, len) packed into one u64: pointer in the low half,
	// length in the high half.
	ptr := uint32(results[0])
	length := uint32(results[0] >> 32)
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		return nil, errors.InvalidData(errors.PhaseExtract, nil, "result out of memory bounds")
	}
	Logger().Debug("runtime responded",
		zap.String("entry", entry),
		zap.Uint32("bytes", length))

	// Detach from the wasm linear memory before the runtime closes.
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

// stubImports satisfies every import the compiled module declares. The
// allocator pair is functional; everything else answers with zeroes,
// which is enough for the metadata entry points.
func stubImports(ctx context.Context, rt wazero.Runtime, compiled wazero.CompiledModule, alloc *bumpAllocator) error {
	byModule := map[string][]api.FunctionDefinition{}
	for _, def := range compiled.ImportedFunctions() {
		modName, _, _ := def.Import()
		byModule[modName] = append(byModule[modName], def)
	}

	for modName, defs := range byModule {
		b := rt.NewHostModuleBuilder(modName)
		for _, def := range defs {
			_, name, _ := def.Import()

			var fn api.GoModuleFunc
			switch name {
			case "ext_allocator_malloc_version_1":
				fn = alloc.malloc
			case "ext_allocator_free_version_1":
				fn = alloc.free
			default:
				fn = zeroStub(modName, name, len(def.ResultTypes()))
			}
			b = b.NewFunctionBuilder().
				WithGoModuleFunction(fn, def.ParamTypes(), def.ResultTypes()).
				Export(name)
		}
		if _, err := b.Instantiate(ctx); err != nil {
			return errors.Wrap(errors.PhaseExtract, errors.KindInvalidData, err, "stub host module "+modName)
		}
	}
	return nil
}

func zeroStub(modName, name string, results int) api.GoModuleFunc {
	return func(_ context.Context, _ api.Module, stack []uint64) {
		Logger().Debug("stubbed host call", zap.String("module", modName), zap.String("func", name))
		for i := 0; i < results; i++ {
			stack[i] = 0
		}
	}
}

// bumpAllocator hands out memory past the runtime's heap base and never
// reclaims it. Extraction is a single short-lived call, so leaking is
// fine.
type bumpAllocator struct {
	next uint32
}

func (a *bumpAllocator) init(mod api.Module) {
	if a.next != 0 {
		return
	}
	if g := mod.ExportedGlobal(heapBaseExport); g != nil {
		a.next = uint32(g.Get())
		return
	}
	a.next = mod.Memory().Size()
}

func (a *bumpAllocator) alloc(mod api.Module, size uint32) (uint32, bool) {
	a.init(mod)
	mem := mod.Memory()

	ptr := (a.next + 7) &^ 7
	end := ptr + size
	if end > mem.Size() {
		pages := (end - mem.Size() + wasmPageSize - 1) / wasmPageSize
		if _, ok := mem.Grow(pages); !ok {
			return 0, false
		}
	}
	a.next = end
	return ptr, true
}

// malloc implements ext_allocator_malloc_version_1: (size i32) -> i32.
func (a *bumpAllocator) malloc(_ context.Context, mod api.Module, stack []uint64) {
	ptr, ok := a.alloc(mod, uint32(stack[0]))
	if !ok {
		stack[0] = 0
		return
	}
	stack[0] = uint64(ptr)
}

// free implements ext_allocator_free_version_1: (ptr i32) -> ().
func (a *bumpAllocator) free(_ context.Context, _ api.Module, _ []uint64) {}

// place copies host-side argument bytes into the guest's memory.
func (a *bumpAllocator) place(mod api.Module, data []byte) (uint32, error) {
	ptr, ok := a.alloc(mod, uint32(len(data)))
	if !ok {
		return 0, errors.InvalidData(errors.PhaseExtract, nil, "cannot grow runtime memory")
	}
	if !mod.Memory().Write(ptr, data) {
		return 0, errors.InvalidData(errors.PhaseExtract, nil, "argument write out of bounds")
	}
	return ptr, nil
}
