package processor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ProcessFile runs a drop-folder file through Process. The file is removed
// once its record is stored and moved to the failed folder otherwise.
func (p *implProcessor) ProcessFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open inbox file: %w", err)
	}

	outcome, err := p.Process(ctx, Upload{Filename: filepath.Base(path), Body: f})
	_ = f.Close()

	if err != nil {
		if moveErr := p.moveToFailed(ctx, path); moveErr != nil {
			p.logger.Warn(ctx, "Failed to move %s to failed folder: %v", path, moveErr)
		}
		return err
	}

	p.logger.Info(ctx, "Inbox file %s stored as meeting %d", filepath.Base(path), outcome.ID)
	if err := os.Remove(path); err != nil {
		p.logger.Warn(ctx, "Failed to remove inbox file %s: %v", path, err)
	}
	return nil
}

// moveToFailed moves a file into the failed folder, keeping its name.
func (p *implProcessor) moveToFailed(ctx context.Context, path string) error {
	if p.cfg.Paths.Failed == "" {
		return nil
	}
	if err := os.MkdirAll(p.cfg.Paths.Failed, 0o755); err != nil {
		return fmt.Errorf("create failed dir: %w", err)
	}

	destPath := filepath.Join(p.cfg.Paths.Failed, filepath.Base(path))
	p.logger.Info(ctx, "Moving to failed folder: %s -> %s", path, destPath)

	if err := os.Rename(path, destPath); err != nil {
		return fmt.Errorf("move to failed: %w", err)
	}
	return nil
}

// cleanupTempFile removes a temporary file, logs warning if fails
func (p *implProcessor) cleanupTempFile(ctx context.Context, filePath string) {
	if err := os.Remove(filePath); err != nil {
		p.metrics.CleanupFailed()
		p.logger.Warn(ctx, "Failed to cleanup temp file %s: %v", filePath, err)
	} else {
		p.logger.Debug(ctx, "Cleaned up temp file: %s", filePath)
	}
}
