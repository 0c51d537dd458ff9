package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	fixzip "github.com/hidez8891/zip"
	"go.uber.org/zap"

	"ric/misc"
	"ric/state"
)

// rewriteArchive copies the archive at path into dst replacing every
// convertible entry under pathIn with its converted form. Entry order, names
// and compression methods are preserved, everything else is transferred
// without recompression. "src" names the archive relative to the original
// input the same way processStylesheet gets it.
func rewriteArchive(ctx context.Context, path, pathIn, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Archive rewrite starting", zap.String("from", path))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Archive rewrite ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Archive rewrite completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	r, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("unable to open archive (%s): %w", path, err)
	}
	defer r.Close()

	outputName = buildOutputPath(src, dst, env)

	if err := ensureOutputPath(outputName, env, log); err != nil {
		return err
	}

	f, err := os.CreateTemp("", misc.GetAppName()+"-rezip-*.zip")
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	tmpName := f.Name()
	defer f.Close()

	zw := zip.NewWriter(f)
	defer zw.Close()

	count := 0
	for _, file := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		converted, err := rewriteEntry(ctx, zw, file, pathIn, log)
		if err != nil {
			return err
		}
		if converted {
			count++
		}
	}
	if count == 0 {
		log.Debug("Nothing to convert", zap.String("archive", path))
	}

	// make sure buffers are flushed before continuing
	if err := zw.Close(); err != nil {
		return fmt.Errorf("unable to close output archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("unable to finalize output file: %w", err)
	}
	// clean temporary file
	defer os.Remove(tmpName)

	if env.Cfg.Processing.FixZip {
		err = copyZipWithoutDataDescriptors(tmpName, outputName)
	} else {
		err = copyFile(tmpName, outputName)
	}
	if err != nil {
		return err
	}

	// Store conversion result for debugging
	if env.Rpt != nil {
		env.Rpt.Store(resultName(outputName, dst), outputName)
	}

	return nil
}

// rewriteEntry writes a single entry into zw, converting it when recognized
// and under pathIn, copying it raw otherwise. Reports whether conversion took
// place.
func rewriteEntry(ctx context.Context, zw *zip.Writer, f *zip.File, pathIn string, log *zap.Logger) (bool, error) {
	env := state.EnvFromContext(ctx)

	name := filepath.ToSlash(f.Name)
	if f.FileInfo().IsDir() || (len(pathIn) > 0 && !strings.HasPrefix(name, pathIn)) {
		return false, copyEntry(zw, f)
	}

	kind, enc, err := detectEntry(f)
	if err != nil {
		log.Warn("Keeping archive entry as is", zap.String("path", f.Name), zap.Error(err))
		return false, copyEntry(zw, f)
	}
	if !kind.Convertible() || (kind == InputKindVector && !env.Cfg.Processing.SVG.Enable) {
		return false, copyEntry(zw, f)
	}

	rc, err := f.Open()
	if err != nil {
		return false, fmt.Errorf("unable to read archive entry (%s): %w", f.Name, err)
	}
	defer rc.Close()

	var data []byte
	switch kind {
	case InputKindStylesheet:
		var raw []byte
		if raw, err = io.ReadAll(selectReader(rc, enc)); err == nil {
			data, err = convertStylesheetBytes(raw, f.Name, env, log)
		}
	case InputKindVector:
		data, err = convertVectorBytes(selectReader(rc, enc), f.Name, env, log)
	}
	if err != nil {
		if errors.Is(err, errSkipped) {
			log.Warn("Keeping archive entry as is", zap.String("path", f.Name), zap.Error(err))
			return false, copyEntry(zw, f)
		}
		return false, err
	}

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     f.Name,
		Method:   f.Method,
		Modified: f.Modified,
		NonUTF8:  f.NonUTF8,
	})
	if err != nil {
		return false, fmt.Errorf("unable to create archive entry (%s): %w", f.Name, err)
	}
	if _, err := w.Write(data); err != nil {
		return false, fmt.Errorf("unable to write archive entry (%s): %w", f.Name, err)
	}
	return true, nil
}

// copyEntry transfers an entry between archives without recompressing it.
func copyEntry(zw *zip.Writer, f *zip.File) error {
	if err := zw.Copy(f); err != nil {
		return fmt.Errorf("unable to copy archive entry (%s): %w", f.Name, err)
	}
	return nil
}

func copyZipWithoutDataDescriptors(from, to string) error {

	out, err := os.Create(to)
	if err != nil {
		return fmt.Errorf("unable to create target file (%s): %w", to, err)
	}
	defer out.Close()

	r, err := fixzip.OpenReader(from)
	if err != nil {
		return fmt.Errorf("unable to read archive file (%s): %w", from, err)
	}
	defer r.Close()

	w := fixzip.NewWriter(out)
	defer w.Close()

	for _, file := range r.File {
		// unset data descriptor flag.
		file.Flags &= ^fixzip.FlagDataDescriptor

		// copy zip entry
		if err := w.CopyFile(file); err != nil {
			return fmt.Errorf("unable to write target file (%s): %w", to, err)
		}
	}
	return nil
}

func copyFile(src, dst string) error {

	sourceFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destinationFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destinationFile.Close()

	if _, err = io.Copy(destinationFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}

	if err = destinationFile.Close(); err != nil {
		return fmt.Errorf("failed to close destination file: %w", err)
	}
	return nil
}
