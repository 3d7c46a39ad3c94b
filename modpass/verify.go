package modpass

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/bindpost/errors"
)

// MemoryExport is the memory export the direct-read accessors rely on.
const MemoryExport = "memory"

// Verify compiles bin with wazero and checks the export surface: no
// stub accessor may remain exported and the linear memory must be
// exported as "memory".
func Verify(ctx context.Context, bin []byte) error {
	cfg := wazero.NewRuntimeConfigInterpreter().WithCoreFeatures(api.CoreFeaturesV2)
	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	defer r.Close(ctx)

	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		return errors.RoundTrip("compile re-emitted module", err)
	}
	defer compiled.Close(ctx)

	var leftover []string
	for name := range compiled.ExportedFunctions() {
		if strings.HasSuffix(name, StubSuffix) {
			leftover = append(leftover, name)
		}
	}
	if len(leftover) > 0 {
		sort.Strings(leftover)
		return errors.RoundTrip(
			fmt.Sprintf("accessor stubs still exported: %s", strings.Join(leftover, ", ")), nil)
	}

	if _, ok := compiled.ExportedMemories()[MemoryExport]; !ok {
		return errors.RoundTrip(fmt.Sprintf("module does not export %q", MemoryExport), nil)
	}
	return nil
}
