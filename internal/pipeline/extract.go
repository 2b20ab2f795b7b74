package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"frida-keeper/internal/models"

	"github.com/dustin/go-humanize"
	"github.com/ulikunitz/xz"
)

/**
 * Decompress a single xz stream into the binary path
 * @param {string} archivePath - Path of the .xz archive
 * @returns {error} ErrExtraction when the stream is corrupt or the target cannot be written
 * @description
 * - Output is staged next to the binary and renamed over it, so a failed
 *   extraction never leaves a truncated binary behind
 */
func (p *Pipeline) Extract(archivePath string) error {
	in, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("%w: open archive: %v", models.ErrExtraction, err)
	}
	defer in.Close()

	reader, err := xz.NewReader(in)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	return p.install(reader)
}

/**
 * Bring a user supplied file into the binary path
 * @param {string} path - Local file, ".xz" suffix (case insensitive) means compressed
 * @param {func(string)} report - Receives human readable progress messages, may be nil
 * @returns {error} ErrManualFileInvalid when the file is missing
 */
func (p *Pipeline) PrepareManual(path string, report func(string)) error {
	if report == nil {
		report = func(string) {}
	}
	fi, err := os.Stat(path)
	if err != nil || fi.IsDir() {
		return fmt.Errorf("%w: %s", models.ErrManualFileInvalid, path)
	}
	report(fmt.Sprintf("Using file %s (%s)", filepath.Base(path), humanize.Bytes(uint64(fi.Size()))))

	if strings.HasSuffix(strings.ToLower(path), ".xz") {
		report("Extracting compressed file...")
		return p.Extract(path)
	}

	report("Copying binary...")
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrManualFileInvalid, err)
	}
	defer in.Close()
	if err := p.install(in); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) install(r io.Reader) error {
	dir := filepath.Dir(p.binaryPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create dir: %v", models.ErrExtraction, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p.binaryPath)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file: %v", models.ErrExtraction, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	if err := os.Rename(tmpPath, p.binaryPath); err != nil {
		return fmt.Errorf("%w: finalize: %v", models.ErrExtraction, err)
	}
	return nil
}
