// Command deflatekit exercises the deflate/zlib/gzip/zip packages end to
// end from the command line: deflate/inflate a raw file, gzip/gunzip a
// file, or zip/unzip a directory tree.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/coldharbor/deflate/gzip"
	"github.com/coldharbor/deflate/internal/flate"
	"github.com/coldharbor/deflate/zip"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: deflatekit <deflate|inflate|gzip|gunzip|zip|unzip> [-password pw] <args...>")
	}
	cmd, rest := args[0], args[1:]

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	password := fs.String("password", "", "zip entry password (zip/unzip only)")
	verify := fs.Bool("verify", false, "verify checksums on decode (gunzip/unzip only); off by default for speed")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	rest = fs.Args()

	switch cmd {
	case "deflate":
		return runDeflate(rest)
	case "inflate":
		return runInflate(rest)
	case "gzip":
		return runGzip(rest)
	case "gunzip":
		return runGunzip(rest, *verify)
	case "zip":
		return runZip(rest, *password)
	case "unzip":
		return runUnzip(rest, *password, *verify)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runDeflate(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: deflatekit deflate <in> <out>")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer out.Close()
	return flate.Encode(out, src, flate.EncodeOptions{})
}

func runInflate(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: deflatekit inflate <in> <out>")
	}
	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	data, err := flate.Decode(in, flate.Options{})
	if err != nil {
		return err
	}
	return os.WriteFile(args[1], data, 0o644)
}

func runGzip(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: deflatekit gzip <in> <out>")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return err
	}
	out, err := gzip.Compress(src, gzip.Options{
		Header: gzip.Header{Name: filepath.Base(args[0]), ModTime: info.ModTime()},
	})
	if err != nil {
		return err
	}
	return os.WriteFile(args[1], out, 0o644)
}

func runGunzip(args []string, verify bool) error {
	if len(args) != 2 {
		return errors.New("usage: deflatekit gunzip [-verify] <in> <outdir>")
	}
	src, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	members, err := gzip.Decompress(src, gzip.DecompressOptions{Verify: verify})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(args[1], 0o755); err != nil {
		return err
	}
	for i, m := range members {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("member-%d", i)
		}
		if err := os.WriteFile(filepath.Join(args[1], name), m.Data, 0o644); err != nil {
			return err
		}
		log.Printf("wrote member %q (%d bytes)", name, len(m.Data))
	}
	return nil
}

func runZip(args []string, password string) error {
	if len(args) != 2 {
		return errors.New("usage: deflatekit zip <srcdir> <out.zip>")
	}
	w := zip.NewWriter()
	root := args[0]
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return w.Add(filepath.ToSlash(rel), data, zip.EntryOptions{
			ModTime:  info.ModTime(),
			Method:   zip.Deflate,
			Password: password,
		})
	})
	if err != nil {
		return err
	}
	out, err := w.Build()
	if err != nil {
		return err
	}
	return os.WriteFile(args[1], out, 0o644)
}

func runUnzip(args []string, password string, verify bool) error {
	if len(args) != 2 {
		return errors.New("usage: deflatekit unzip [-password pw] [-verify] <in.zip> <outdir>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	r, err := zip.Open(data, zip.OpenOptions{VerifyChecksums: verify})
	if err != nil {
		return err
	}
	for _, name := range r.Names() {
		if strings.Contains(name, "..") {
			return fmt.Errorf("refusing to extract suspicious entry name %q", name)
		}
		content, err := r.File(name, zip.FileOptions{Password: password})
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		dest := filepath.Join(args[1], filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return err
		}
		log.Printf("extracted %q (%d bytes)", name, len(content))
	}
	return nil
}
