// SPDX-License-Identifier: MIT

package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ManuGH/dhtnode/internal/log"
	"github.com/google/renameio/v2"
)

// WriteFile writes generated output with full durability guarantees using renameio.
// fsync before rename prevents a half-written header after power loss.
func WriteFile(ctx context.Context, path string, data []byte) error {
	logger := log.FromContext(ctx)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	// renameio handles: temp file creation, fsync, atomic rename, cleanup on error
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		// Cleanup on error - renameio removes temp file if not committed
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	// CloseAtomicallyReplace: fsync + rename (durable + atomic)
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}
	return nil
}

// WriteIfChanged writes data only when the file content differs. It reports
// whether a write happened.
func WriteIfChanged(ctx context.Context, path string, data []byte) (bool, error) {
	// #nosec G304 -- output paths are chosen by the operator
	current, err := os.ReadFile(path)
	if err == nil && string(current) == string(data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := WriteFile(ctx, path, data); err != nil {
		return false, err
	}
	return true, nil
}
