package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"ric/config"
	"ric/css"
	"ric/ri"
	"ric/state"
)

// errSkipped marks a conversion abandoned under the "skip" on_error policy.
// Callers drop the file and keep the batch going.
var errSkipped = errors.New("conversion skipped")

var charsetRE = regexp.MustCompile(`^@charset "([^"]+)";`)

// decodeCharset honors a leading @charset rule. BOM based transcoding already
// happened by the time data gets here, so anything left is either ASCII
// compatible text or a code page named by the rule.
func decodeCharset(data []byte, log *zap.Logger) []byte {
	m := charsetRE.FindSubmatch(data)
	if m == nil {
		return data
	}
	label := string(m[1])

	r, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		log.Warn("Unknown character set in @charset rule. Ignoring...", zap.String("charset", label), zap.Error(err))
		return data
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		log.Warn("Unable to transcode stylesheet. Ignoring...", zap.String("charset", label), zap.Error(err))
		return data
	}
	return decoded
}

// declareCharsetUTF8 rewrites any @charset rule to name utf-8, output is
// always written as UTF-8.
func declareCharsetUTF8(sheet *css.Stylesheet) {
	for i := range sheet.Items {
		if at := sheet.Items[i].AtRule; at != nil && strings.EqualFold(at.Name, "@charset") {
			at.Prelude = `"utf-8"`
		}
	}
}

// convertDeclaration runs the engine over a single declaration honoring the
// on_error policy: fail surfaces the error, keep logs it and moves on, skip
// abandons the whole file.
func convertDeclaration(eng *ri.Engine, d *css.Declaration, policy config.OnError, log *zap.Logger) error {
	err := eng.VisitDeclaration(d)
	if err == nil {
		return nil
	}
	switch policy {
	case config.OnErrorKeep:
		log.Warn("Keeping declaration as is", zap.String("declaration", d.String()), zap.Error(err))
		return nil
	case config.OnErrorSkip:
		return fmt.Errorf("%w (%s): %v", errSkipped, d.Property, err)
	default:
		return fmt.Errorf("unable to convert declaration (%s): %w", d.String(), err)
	}
}

func convertDeclarations(eng *ri.Engine, decls []css.Declaration, policy config.OnError, log *zap.Logger) error {
	for i := range decls {
		if err := convertDeclaration(eng, &decls[i], policy, log); err != nil {
			return err
		}
	}
	return nil
}

func convertSheet(eng *ri.Engine, sheet *css.Stylesheet, policy config.OnError, log *zap.Logger) error {
	return sheet.VisitDeclarations(func(d *css.Declaration) error {
		return convertDeclaration(eng, d, policy, log)
	})
}

// convertStylesheetBytes parses, converts and serializes stylesheet text.
// Input must already be UTF-8 apart from a possible @charset labeled code
// page.
func convertStylesheetBytes(data []byte, src string, env *state.LocalEnv, log *zap.Logger) ([]byte, error) {
	data = decodeCharset(data, log)

	sheet, err := css.NewParser(log).Parse(data, src)
	if err != nil {
		return nil, fmt.Errorf("unable to parse stylesheet source (%s): %w", src, err)
	}
	if err := convertSheet(env.Eng, sheet, env.Cfg.Processing.OnError, log); err != nil {
		return nil, err
	}
	declareCharsetUTF8(sheet)

	return []byte(sheet.String()), nil
}

// processStylesheet converts a single stylesheet. "src" is part of the source
// path (always including file name) relative to the original path. When an
// actual file was specified it will be just the base file name without a
// path. When looking inside an archive or directory it will be the relative
// path inside the archive or directory. "dst" is the destination directory
// where the converted file should be written.
func processStylesheet(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		// NOTE: a bad stylesheet in the middle of a batch should not stop
		// remaining files from being processed.
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet source (%s): %w", src, err)
	}

	out, err := convertStylesheetBytes(data, src, env, log)
	if err != nil {
		if errors.Is(err, errSkipped) {
			log.Warn("Skipping stylesheet", zap.String("source", src), zap.Error(err))
			return nil
		}
		return err
	}

	outputName = buildOutputPath(src, dst, env)

	if err := ensureOutputPath(outputName, env, log); err != nil {
		return err
	}
	if err := os.WriteFile(outputName, out, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	// Store conversion result for debugging
	if env.Rpt != nil {
		env.Rpt.Store(resultName(outputName, dst), outputName)
	}

	return nil
}

// resultName derives a report entry name from the output path.
func resultName(outputName, dst string) string {
	rel, err := filepath.Rel(dst, outputName)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(outputName)
	}
	return filepath.ToSlash(filepath.Join("result", rel))
}
