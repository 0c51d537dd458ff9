package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/beevik/etree"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"

	"ric/config"
	"ric/css"
	"ric/ri"
	"ric/state"
)

// convertVectorBytes parses an SVG image and rewrites style attributes and
// style elements through the conversion engine. Everything else passes
// through untouched.
func convertVectorBytes(r io.Reader, src string, env *state.LocalEnv, log *zap.Logger) ([]byte, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("unable to parse vector image (%s): %w", src, err)
	}

	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("vector image has no root element (%s)", src)
	}

	if err := rewriteElement(root, css.NewParser(log), env.Eng, env.Cfg.Processing.OnError, log); err != nil {
		return nil, err
	}
	return doc.WriteToBytes()
}

// processVector converts a single SVG image. Path arguments follow the same
// conventions as processStylesheet.
func processVector(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Conversion starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Conversion ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("conversion panic: %v", r)
		} else {
			log.Info("Conversion completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	out, err := convertVectorBytes(r, src, env, log)
	if err != nil {
		if errors.Is(err, errSkipped) {
			log.Warn("Skipping vector image", zap.String("source", src), zap.Error(err))
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

// rewriteElement walks the element tree converting style attributes and the
// content of style elements.
func rewriteElement(el *etree.Element, p *css.Parser, eng *ri.Engine, policy config.OnError, log *zap.Logger) error {
	if attr := el.SelectAttr("style"); attr != nil && len(strings.TrimSpace(attr.Value)) > 0 {
		decls, err := p.ParseDeclarations([]byte(attr.Value))
		if err != nil {
			return fmt.Errorf("unable to parse style attribute: %w", err)
		}
		if err := convertDeclarations(eng, decls, policy, log); err != nil {
			return err
		}
		el.CreateAttr("style", joinDeclarations(decls))
	}

	if el.Tag == "style" {
		if text := el.Text(); len(strings.TrimSpace(text)) > 0 {
			sheet, err := p.Parse([]byte(text))
			if err != nil {
				return fmt.Errorf("unable to parse style element: %w", err)
			}
			if err := convertSheet(eng, sheet, policy, log); err != nil {
				return err
			}
			el.SetText("\n" + sheet.String())
		}
	}

	for _, child := range el.ChildElements() {
		if err := rewriteElement(child, p, eng, policy, log); err != nil {
			return err
		}
	}
	return nil
}

func joinDeclarations(decls []css.Declaration) string {
	parts := make([]string, len(decls))
	for i := range decls {
		parts[i] = decls[i].String()
	}
	return strings.Join(parts, "; ")
}
