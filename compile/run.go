// Package compile turns markup files into runtime data blobs.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"vsmrt/archive"
	"vsmrt/blob"
	"vsmrt/markup"
	"vsmrt/runtimedata"
	"vsmrt/state"
	"vsmrt/writer"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

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

	if target := cmd.Uint("target-os"); target != 0 {
		env.Cfg.Writer.TargetOS = uint32(target)
	}
	if cmd.Bool("optimize") {
		env.Cfg.Writer.Optimize = true
	}
	env.NoDirs, env.Overwrite = cmd.Bool("nodirs"), cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil || env.CodePage == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting",
		zap.String("source", src), zap.String("destination", dst), zap.Stringer("target_os", env.TargetOS()))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process determines the input type (directory, archive, or single file) and
// processes accordingly. A path that continues past an existing archive names
// a prefix inside of it.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	var head, tail string
	for head = src; len(head) != 0; head, tail = filepath.Split(head) {
		if err := ctx.Err(); err != nil {
			return err
		}

		head = strings.TrimSuffix(head, string(filepath.Separator))

		fi, err := os.Stat(head)
		if err != nil {
			// does not exists - probably path in archive
			continue
		}

		if fi.Mode().IsDir() {
			if len(tail) != 0 {
				// directory cannot have tail - it would be simple file
				return fmt.Errorf("input source was not found (%s) => (%s)", head, strings.TrimPrefix(src, head))
			}
			if err := processDir(ctx, head, dst, log); err != nil {
				return fmt.Errorf("unable to process directory: %w", err)
			}
			break
		}

		if !fi.Mode().IsRegular() {
			return fmt.Errorf("unexpected path mode for (%s) => (%s)", head, strings.TrimPrefix(src, head))
		}

		isArchive, err := isArchiveFile(head)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if isArchive {
			tail = filepath.ToSlash(strings.TrimPrefix(strings.TrimPrefix(src, head), string(filepath.Separator)))
			if err := processArchive(ctx, head, tail, "", dst, log); err != nil {
				return fmt.Errorf("unable to process archive: %w", err)
			}
			break
		}

		ok, enc, err := isMarkupFile(head)
		if err != nil {
			return fmt.Errorf("unable to check file type: %w", err)
		}
		if ok && len(tail) == 0 {
			file, err := os.Open(head)
			if err != nil {
				return fmt.Errorf("unable to open source: %w", err)
			}
			defer file.Close()
			return processMarkup(ctx, selectReader(file, enc), filepath.Base(head), dst, log)
		}
		return fmt.Errorf("input was not recognized as markup (%s)", head)
	}
	if len(head) == 0 {
		return fmt.Errorf("input source was not found (%s)", src)
	}
	return nil
}

// processDir walks directory tree finding markup files and archives and
// processes them. Failures of single files are logged and skipped.
func processDir(ctx context.Context, dir, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("dir", dir))
		}
	}()

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

		isArchive, err := isArchiveFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if isArchive {
			if err := processArchive(ctx, path, "", filepath.Dir(strings.TrimPrefix(path, dir)), dst, log); err != nil {
				log.Error("Unable to process archive", zap.String("file", path), zap.Error(err))
			}
			return nil
		}

		ok, enc, err := isMarkupFile(path)
		if err != nil {
			log.Warn("Skipping file", zap.String("file", path), zap.Error(err))
			return nil
		}
		if !ok {
			log.Debug("Skipping file, not recognized as markup or archive", zap.String("file", path))
			return nil
		}

		count++

		file, err := os.Open(path)
		if err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
			return nil
		}
		defer file.Close()

		src := strings.TrimPrefix(strings.TrimPrefix(path, dir), string(filepath.Separator))
		if err := processMarkup(ctx, selectReader(file, enc), src, dst, log); err != nil {
			log.Error("Unable to process file", zap.String("file", path), zap.Error(err))
		}
		return nil
	})
	return err
}

// processArchive compiles all markup files inside archive under prefix
// "pathIn", outputs keep their archive paths below "pathOut".
func processArchive(ctx context.Context, path, pathIn, pathOut, dst string, log *zap.Logger) (err error) {
	count := 0
	defer func() {
		if err == nil && count == 0 {
			log.Debug("Nothing to process", zap.String("archive", path))
		}
	}()

	var dec *encoding.Decoder
	if cp := state.EnvFromContext(ctx).CodePage; cp != nil {
		dec = cp.NewDecoder()
	}

	err = archive.Walk(path, pathIn, dec, func(e archive.Entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.NameErr != nil {
			log.Warn("Unable to convert archive name from specified encoding",
				zap.String("path", e.Name), zap.Error(e.NameErr))
		}

		ok, enc, err := isMarkupInArchive(e.File)
		if err != nil {
			log.Warn("Skipping file in archive",
				zap.String("archive", e.Archive), zap.String("path", e.Name), zap.Error(err))
			return nil
		}
		if !ok {
			log.Debug("Skipping file, not recognized as markup", zap.String("archive", e.Archive), zap.String("file", e.Name))
			return nil
		}

		count++

		r, err := e.File.Open()
		if err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", e.Archive), zap.String("file", e.Name), zap.Error(err))
			return nil
		}
		defer r.Close()

		if err := processMarkup(ctx, selectReader(r, enc), filepath.Join(pathOut, filepath.FromSlash(e.Name)), dst, log); err != nil {
			log.Error("Unable to process file in archive",
				zap.String("archive", e.Archive), zap.String("file", e.Name), zap.Error(err))
		}
		return nil
	})
	return err
}

// processMarkup compiles single markup file. "src" is the source path
// relative to what was requested (always including file name), "dst" is the
// destination directory.
func processMarkup(ctx context.Context, r io.Reader, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Compilation starting", zap.String("from", src))
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Compilation ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("compilation panic: %v", r)
		} else if rerr == nil {
			log.Info("Compilation completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	source, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("unable to read source (%s): %w", src, err)
	}
	if env.Rpt != nil {
		env.Rpt.StoreData(filepath.ToSlash(filepath.Join("source", src)), source)
	}

	nodes, err := markup.ParseXAML(bytes.NewReader(source))
	if err != nil {
		return fmt.Errorf("unable to parse markup (%s): %w", src, err)
	}

	opts := writer.Options{OS: env.TargetOS(), Logger: log}
	if env.Cfg.Writer.Optimize {
		opts.Optimizer = markup.ScopePruner{}
	}
	b, err := writer.Compile(nodes, opts)
	if err != nil {
		return fmt.Errorf("unable to compile (%s): %w", src, err)
	}
	rd, err := runtimedata.FromBlob(b)
	if err != nil {
		return fmt.Errorf("unable to read back runtime data (%s): %w", src, err)
	}
	data, err := blob.Pack(b)
	if err != nil {
		return fmt.Errorf("unable to pack blob (%s): %w", src, err)
	}

	outputName = buildOutputPath(buildValues(src, b, rd), src, dst, env)

	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := os.WriteFile(outputName, data, 0644); err != nil {
		return fmt.Errorf("unable to write output: %w", err)
	}

	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", b.ID, outputExt), outputName)
	}
	return nil
}
