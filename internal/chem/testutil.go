package chem

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unsafe"
)

// NewFakeToolkit returns a Toolkit backed by deterministic in-process
// stand-ins for the native library, for use by other packages' tests
// that need a Toolkit but cannot load the real chemistry library.
//
// The fake's canonicalization is the identity function with whitespace
// trimmed; its substructure match is a plain substring test on the
// parsed text; its Avalon fingerprint hashes the molecule's original
// text into a deterministic bit pattern. These are not chemically
// meaningful — they exist only to exercise the binding layer above the
// native ABI (resource lifecycle, mutex serialization, error
// classification) independent of a real toolkit build.
func NewFakeToolkit() *Toolkit {
	var mu sync.Mutex
	nextHandle := uintptr(1)
	text := map[uintptr]string{}

	t := &Toolkit{}
	t.parseSmiles = func(smiles string, sanitize int32) uintptr {
		if strings.TrimSpace(smiles) == "" {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		h := nextHandle
		nextHandle++
		text[h] = strings.TrimSpace(smiles)
		return h
	}
	t.parseMolblock = func(molblock string) uintptr {
		// The fake's "canonical form" for a molblock is its title line
		// (the MDL molfile's first line), not the whole block — this
		// keeps fake-backed tests readable without pretending to
		// understand molfile geometry.
		title := strings.TrimSpace(firstLine(molblock))
		if title == "" {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		h := nextHandle
		nextHandle++
		text[h] = title
		return h
	}
	t.toCanonicalSmiles = func(mol uintptr) string {
		mu.Lock()
		defer mu.Unlock()
		return text[mol]
	}
	t.updatePropertyCache = func(mol uintptr) {}
	t.hasSubstructureMatch = func(haystack, needle uintptr) int32 {
		mu.Lock()
		defer mu.Unlock()
		if strings.Contains(text[haystack], text[needle]) {
			return 1
		}
		return 0
	}
	t.freeMol = func(mol uintptr) {
		mu.Lock()
		defer mu.Unlock()
		delete(text, mol)
	}
	t.lastError = func() string { return "parse: empty input" }
	t.toBinary = func(mol uintptr, outLen *int32) uintptr {
		mu.Lock()
		s := text[mol]
		mu.Unlock()
		buf := []byte(s)
		*outLen = int32(len(buf))
		if len(buf) == 0 {
			return 0
		}
		return uintptr(unsafe.Pointer(&buf[0]))
	}
	t.fromBinary = func(data unsafe.Pointer, length int32) uintptr {
		if length == 0 {
			return 0
		}
		s := string(unsafe.Slice((*byte)(data), int(length)))
		mu.Lock()
		defer mu.Unlock()
		h := nextHandle
		nextHandle++
		text[h] = s
		return h
	}
	t.freeBuffer = func(ptr uintptr) {}
	t.avalonFingerprint = func(mol uintptr, width, queryFlag int32, bitFlags uint32, outBuf unsafe.Pointer) int32 {
		mu.Lock()
		s := text[mol]
		mu.Unlock()
		if s == "" {
			return 0
		}
		out := unsafe.Slice((*byte)(outBuf), (int(width)+7)/8)
		hashFingerprintInto(s, out, int(width))
		return 1
	}
	return t
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// hashFingerprintInto deterministically sets bits in out (ceil(width/8)
// bytes) from s, using a handful of FNV hashes to spread set bits
// across the width the way a real structural fingerprint would.
func hashFingerprintInto(s string, out []byte, width int) {
	for k := 0; k < 4; k++ {
		h := fnv.New32a()
		_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", k, s)))
		bit := int(h.Sum32()) % width
		if bit < 0 {
			bit += width
		}
		out[bit/8] |= 1 << uint(bit%8)
	}
}
