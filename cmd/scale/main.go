package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/scale-codec/client"
	"github.com/wippyai/scale-codec/metadata"
	"github.com/wippyai/scale-codec/registry"
	"github.com/wippyai/scale-codec/runtimewasm"
	"github.com/wippyai/scale-codec/storage"
	"github.com/wippyai/scale-codec/transcoder"
	"github.com/wippyai/scale-codec/value"
)

func main() {
	var (
		url      = flag.String("url", "", "Node websocket endpoint (ws:// or wss://)")
		file     = flag.String("file", "", "Path to a raw metadata file")
		wasmFile = flag.String("wasm", "", "Path to a runtime wasm blob")

		pallets     = flag.Bool("pallets", false, "List pallets and exit")
		typeID      = flag.Int("type", -1, "Show one type descriptor by id")
		hashTarget  = flag.String("hash", "", "Fingerprint a pallet, or 'full' for the whole snapshot")
		encodeCall  = flag.String("encode", "", "Encode a call (Pallet.call) with -args")
		argsLiteral = flag.String("args", "", "Call or storage arguments as a value literal, e.g. '(5, true)'")
		decodeKey   = flag.String("decode-key", "", "Decode a storage key (Pallet.Entry) given with -key")
		keyHex      = flag.String("key", "", "Storage key bytes as hex")
		storageKey  = flag.String("storage-key", "", "Build a storage key (Pallet.Entry) with -args")
		interactive = flag.Bool("i", false, "Interactive metadata explorer")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			client.SetLogger(logger)
			runtimewasm.SetLogger(logger)
		}
	}

	if err := run(*url, *file, *wasmFile, *pallets, *typeID, *hashTarget,
		*encodeCall, *argsLiteral, *decodeKey, *keyHex, *storageKey, *interactive); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(url, file, wasmFile string, pallets bool, typeID int, hashTarget,
	encodeCall, argsLiteral, decodeKey, keyHex, storageKey string, interactive bool) error {

	m, err := loadMetadata(url, file, wasmFile)
	if err != nil {
		return err
	}

	if interactive {
		return runInteractive(m, sourceName(url, file, wasmFile))
	}

	switch {
	case pallets:
		return listPallets(m)
	case typeID >= 0:
		return showType(m, registry.TypeId(typeID))
	case hashTarget != "":
		return showHash(m, hashTarget)
	case encodeCall != "":
		return encodeCallMode(m, encodeCall, argsLiteral)
	case decodeKey != "":
		return decodeKeyMode(m, decodeKey, keyHex)
	case storageKey != "":
		return storageKeyMode(m, storageKey, argsLiteral)
	default:
		return summarize(m)
	}
}

func sourceName(url, file, wasmFile string) string {
	switch {
	case url != "":
		return url
	case file != "":
		return file
	default:
		return wasmFile
	}
}

func loadMetadata(url, file, wasmFile string) (*metadata.Metadata, error) {
	sources := 0
	for _, s := range []string{url, file, wasmFile} {
		if s != "" {
			sources++
		}
	}
	if sources != 1 {
		fmt.Fprintln(os.Stderr, "Usage: scale -url ws://... | -file metadata.bin | -wasm runtime.wasm [mode]")
		fmt.Fprintln(os.Stderr, "Modes: -pallets | -type <id> | -hash <pallet|full> | -encode Pallet.call -args '(..)'")
		fmt.Fprintln(os.Stderr, "       -storage-key Pallet.Entry -args '(..)' | -decode-key Pallet.Entry -key 0x... | -i")
		return nil, fmt.Errorf("exactly one of -url, -file, -wasm is required")
	}

	switch {
	case url != "":
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		c, err := client.Dial(ctx, url)
		if err != nil {
			return nil, err
		}
		defer c.Close()
		return c.Metadata(ctx)

	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		return metadata.Decode(b)

	default:
		b, err := os.ReadFile(wasmFile)
		if err != nil {
			return nil, err
		}
		raw, err := runtimewasm.Extract(context.Background(), b)
		if err != nil {
			return nil, err
		}
		return metadata.Decode(raw)
	}
}

func summarize(m *metadata.Metadata) error {
	fmt.Printf("Metadata v%d: %d pallets, %d types, %d runtime APIs\n",
		m.Version, len(m.Pallets), m.Types.Len(), len(m.APIs))
	fmt.Printf("Extrinsic v%d, %d signed extensions\n",
		m.Extrinsic.Version, len(m.Extrinsic.SignedExtensions))
	fmt.Printf("Full hash: %s\n", hashHex(metadata.NewHasher(m).Hash()))
	return nil
}

func listPallets(m *metadata.Metadata) error {
	for i := range m.Pallets {
		p := &m.Pallets[i]
		parts := []string{}
		if p.Storage != nil {
			parts = append(parts, fmt.Sprintf("%d storage entries", len(p.Storage.Entries)))
		}
		if p.Calls != nil {
			parts = append(parts, fmt.Sprintf("%d calls", countVariants(m, *p.Calls)))
		}
		if len(p.Constants) > 0 {
			parts = append(parts, fmt.Sprintf("%d constants", len(p.Constants)))
		}
		detail := ""
		if len(parts) > 0 {
			detail = " (" + strings.Join(parts, ", ") + ")"
		}
		fmt.Printf("%3d  %s%s\n", p.Index, p.Name, detail)
	}
	return nil
}

func countVariants(m *metadata.Metadata, id registry.TypeId) int {
	t, ok := m.Types.Resolve(id)
	if !ok {
		return 0
	}
	return len(t.Variants)
}

func showType(m *metadata.Metadata, id registry.TypeId) error {
	t, ok := m.Types.Resolve(id)
	if !ok {
		return fmt.Errorf("type %d not found", id)
	}
	fmt.Printf("Type %d: %s\n", id, m.Types.Name(id))
	fmt.Printf("Kind: %s\n", t.Kind)
	if len(t.Path) > 0 {
		fmt.Printf("Path: %s\n", strings.Join(t.Path, "::"))
	}
	switch t.Kind {
	case registry.KindComposite:
		for _, f := range t.Fields {
			name := f.Name
			if name == "" {
				name = "_"
			}
			fmt.Printf("  %s: %s (type %d)\n", name, m.Types.Name(f.Type), f.Type)
		}
	case registry.KindVariant:
		for _, v := range t.Variants {
			fmt.Printf("  [%d] %s (%d fields)\n", v.Index, v.Name, len(v.Fields))
		}
	}
	return nil
}

func showHash(m *metadata.Metadata, target string) error {
	if target == "full" {
		fmt.Println(hashHex(metadata.NewHasher(m).Hash()))
		return nil
	}
	if _, err := m.PalletByName(target); err != nil {
		return err
	}
	fmt.Println(hashHex(metadata.NewHasher(m).OnlyPallets([]string{target}).Hash()))
	return nil
}

func encodeCallMode(m *metadata.Metadata, call, argsLiteral string) error {
	pallet, name, err := splitDotted(call)
	if err != nil {
		return err
	}
	p, err := m.PalletByName(pallet)
	if err != nil {
		return err
	}
	if p.Calls == nil {
		return fmt.Errorf("pallet %s has no calls", pallet)
	}
	if _, err := m.CallVariant(pallet, name); err != nil {
		return err
	}

	args, err := parseArgs(argsLiteral)
	if err != nil {
		return err
	}
	v := value.Value{Kind: value.KindVariant, Variant: name, Fields: args.Fields, Named: args.Named}

	enc := transcoder.NewEncoder(m.Types)
	inner, err := enc.Encode(v, *p.Calls)
	if err != nil {
		return err
	}
	// Prefix the pallet index to form the outer call encoding a node
	// accepts.
	fmt.Printf("0x%02x%s\n", p.Index, hex.EncodeToString(inner))
	return nil
}

func storageKeyMode(m *metadata.Metadata, entry, argsLiteral string) error {
	pallet, name, err := splitDotted(entry)
	if err != nil {
		return err
	}
	e, err := m.StorageEntry(pallet, name)
	if err != nil {
		return err
	}
	hashers, err := storage.HashersForEntry(e, m.Types)
	if err != nil {
		return err
	}

	var values []value.Value
	if argsLiteral != "" {
		args, err := parseArgs(argsLiteral)
		if err != nil {
			return err
		}
		values = args.Values()
	}

	key, err := storage.EncodeKey(m.Types, pallet, name, hashers, values)
	if err != nil {
		return err
	}
	fmt.Printf("0x%s\n", hex.EncodeToString(key))
	return nil
}

func decodeKeyMode(m *metadata.Metadata, entry, keyHex string) error {
	pallet, name, err := splitDotted(entry)
	if err != nil {
		return err
	}
	e, err := m.StorageEntry(pallet, name)
	if err != nil {
		return err
	}
	hashers, err := storage.HashersForEntry(e, m.Types)
	if err != nil {
		return err
	}

	raw, err := hex.DecodeString(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return fmt.Errorf("bad -key hex: %w", err)
	}
	parts, err := storage.DecodeKey(m.Types, pallet, name, hashers, raw)
	if err != nil {
		return err
	}

	if len(parts) == 0 {
		fmt.Println("plain entry, no key parts")
		return nil
	}
	for i, part := range parts {
		if v, ok := part.Value(); ok {
			fmt.Printf("part %d (%s): %s\n", i, part.Hasher, v)
		} else {
			fmt.Printf("part %d (%s): opaque hash 0x%s\n", i, part.Hasher, hex.EncodeToString(part.Hash))
		}
	}
	return nil
}

func splitDotted(s string) (string, string, error) {
	i := strings.IndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("expected Pallet.name, got %q", s)
	}
	return s[:i], s[i+1:], nil
}

// parseArgs reads -args as a value literal and coerces it into a
// composite, so a single scalar works for one-argument calls and keys.
func parseArgs(s string) (value.Value, error) {
	if s == "" {
		return value.Unnamed(), nil
	}
	v, err := value.Parse(s)
	if err != nil {
		return value.Value{}, fmt.Errorf("bad -args: %w", err)
	}
	return v.IntoComposite(), nil
}

func hashHex(h metadata.Hash) string {
	return "0x" + hex.EncodeToString(h[:])
}
