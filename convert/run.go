package convert

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"

	"ric/archive"
	"ric/config"
	"ric/ri"
	"ric/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if to := strings.TrimSpace(cmd.String("to")); len(to) > 0 {
		env.Cfg.Conversion.RIUnit = to
	}

	if env.Eng, err = newEngine(&env.Cfg.Conversion); err != nil {
		return fmt.Errorf("unable to initialize conversion engine: %w", err)
	}

	env.NoDirs, env.Overwrite, env.Rezip = cmd.Bool("nodirs"), cmd.Bool("overwrite"), cmd.Bool("rezip")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst),
		zap.String("unit", env.Cfg.Conversion.Unit), zap.String("ri_unit", env.Cfg.Conversion.RIUnit))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// newEngine builds the conversion engine from configuration values.
func newEngine(conf *config.ConversionConfig) (*ri.Engine, error) {
	return ri.New(&ri.Options{
		BaseSize:          &conf.BaseSize,
		RIUnit:            &conf.RIUnit,
		Unit:              &conf.Unit,
		AbsoluteUnit:      &conf.AbsoluteUnit,
		MinUnitSize:       &conf.MinUnitSize,
		MinSize:           &conf.MinSize,
		Precision:         &conf.Precision,
		GroupedProperties: conf.GroupedProperties,
	})
}

// process handles the core conversion logic independently of CLI framework.
// It determines what the input is (directory, archive, single file or a path
// inside an archive) and processes accordingly.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exist - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return errors.New("unable to process directory")
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		kind, enc, err := detectFile(head)
		if err != nil {
			// checking format - but cannot open target file
			return fmt.Errorf("unable to check file type: %w", err)
		}

		if kind == InputKindArchive {
			// we need to look inside to see if path makes sense
			tail = strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator))
			storeInputCopy(env, head, log)
			if env.Rezip {
				if err := rewriteArchive(ctx, head, filepath.ToSlash(tail), filepath.Base(head), dst, log); err != nil {
					return fmt.Errorf("unable to process archive: %w", err)
				}
			} else if err := processArchive(ctx, head, filepath.ToSlash(tail), "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		if kind.Convertible() && len(tail) == 0 {
			// we have a convertible file, it cannot have tail
			if kind == InputKindVector && !env.Cfg.Processing.SVG.Enable {
				return fmt.Errorf("vector image processing is disabled (%s)", head)
			}
			storeInputCopy(env, head, log)
			// encoding will be handled properly by selectReader
			if file, err := os.Open(head); err != nil {
				log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
			} else {
				defer file.Close()
				if err := processInput(ctx, kind, selectReader(file, enc), filepath.Base(head), dst, log); err != nil {
					log.Error("Unable to process file", zap.String("file", head), zap.Error(err))
				}
			}
			break
		}
		return fmt.Errorf("input was not recognized as a stylesheet, vector image or archive (%s)", head)

	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processInput dispatches a single convertible input to its processor.
func processInput(ctx context.Context, kind InputKind, r io.Reader, src, dst string, log *zap.Logger) error {
	switch kind {
	case InputKindStylesheet:
		return processStylesheet(ctx, r, src, dst, log)
	case InputKindVector:
		return processVector(ctx, r, src, dst, log)
	default:
		// this should never happen
		panic(fmt.Sprintf("unexpected input kind %s", kind))
	}
}

// storeInputCopy preserves the original input in the debug report.
func storeInputCopy(env *state.LocalEnv, path string, log *zap.Logger) {
	if env.Rpt == nil {
		return
	}
	if err := env.Rpt.StoreCopy(filepath.ToSlash(filepath.Join("input", filepath.Base(path))), path); err != nil {
		log.Warn("Unable to store input copy in report", zap.String("file", path), zap.Error(err))
	}
}

// processDir walks the directory tree finding supported files and processes
// them in deterministic, natural sort order.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	env := state.EnvFromContext(ctx)

	var files []string
	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return err
	}
	sort.Sort(natural.StringSlice(files))

	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		kind, enc, err := detectFile(path)
		if err != nil {
			// checking format - but cannot open target file
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			continue
		}

		rel := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))

		if kind == InputKindArchive {
			count++
			storeInputCopy(env, path, log)
			if env.Rezip {
				if err := rewriteArchive(ctx, path, "", rel, dst, log); err != nil {
					log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
				}
			} else if err := processArchive(ctx, path, "", filepath.Dir(rel), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			continue
		}

		if kind == InputKindVector && !env.Cfg.Processing.SVG.Enable {
			log.Debug("Skipping vector image, processing disabled", zap.String("file", path))
			continue
		}
		if !kind.Convertible() {
			log.Debug("Skipping file, not recognized as stylesheet, vector image or archive", zap.String("file", path))
			continue
		}

		count++
		storeInputCopy(env, path, log)

		file, err := os.Open(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			continue
		}
		if err := processInput(ctx, kind, selectReader(file, enc), rel, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		file.Close()
	}
	return nil
}

// processArchive walks all files inside the archive, finds supported entries
// under "pathIn" and processes them into individual files.
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	err = archive.Walk(path, pathIn, func(archive string, f *zip.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		env := state.EnvFromContext(ctx)

		kind, enc, err := detectEntry(f)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", archive), zap.String("path", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		if kind == InputKindVector && !env.Cfg.Processing.SVG.Enable {
			log.Debug("Skipping vector image, processing disabled",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name))
			return nil
		}
		if !kind.Convertible() {
			log.Debug("Skipping file, not recognized as stylesheet or vector image",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name))
			return nil
		}

		count++

		r, err := f.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		cp := env.CodePage

		pathInArchive := f.FileHeader.Name
		if cp != nil && f.FileHeader.NonUTF8 {
			// forcing zip file name encoding
			if n, err := cp.NewDecoder().String(pathInArchive); err == nil {
				pathInArchive = n
			} else {
				n, _ = ianaindex.IANA.Name(cp)
				log.Warn("Unable to convert archive name from specified encoding",
					zap.String("charset", n), zap.String("path", pathInArchive), zap.Error(err))
			}
		}
		if err := processInput(ctx, kind, selectReader(r, enc), filepath.Join(pathOut, pathInArchive), dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", archive), zap.String("file", f.FileHeader.Name), zap.Error(err))
		}
		return nil
	})
	return err
}
