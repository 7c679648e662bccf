package platform

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type archiveFormat string

const (
	archiveFormatZip   archiveFormat = "zip"
	archiveFormatTarGz archiveFormat = "tar.gz"
	archiveFormatTarXz archiveFormat = "tar.xz"
)

var formatSuffixes = []struct {
	suffix string
	format archiveFormat
}{
	{".zip", archiveFormatZip},
	{".tar.gz", archiveFormatTarGz},
	{".tgz", archiveFormatTarGz},
	{".tar.xz", archiveFormatTarXz},
	{".txz", archiveFormatTarXz},
}

func detectFormat(archivePath string) (archiveFormat, error) {
	name := strings.ToLower(filepath.Base(archivePath))
	for _, s := range formatSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.format, nil
		}
	}
	return "", fmt.Errorf("unsupported archive format %q", filepath.Base(archivePath))
}

func extractArchive(ctx context.Context, format archiveFormat, archivePath, dest string) error {
	switch format {
	case archiveFormatZip:
		return extractZip(archivePath, dest)
	case archiveFormatTarGz:
		return extractTarGz(archivePath, dest)
	case archiveFormatTarXz:
		return extractTarXz(ctx, archivePath, dest)
	default:
		return fmt.Errorf("unsupported archive format %q", format)
	}
}

// entry is one archive member, independent of the container format.
type entry struct {
	name string
	mode fs.FileMode
	link string
	body func() (io.ReadCloser, error)
}

// entryPath joins an archive entry name onto dest, rejecting names that
// escape it.
func entryPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes extract dir", name)
	}
	return target, nil
}

func (e entry) writeTo(dest string) error {
	target, err := entryPath(dest, e.name)
	if err != nil {
		return err
	}
	if e.mode.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	if e.mode&fs.ModeSymlink != 0 {
		// Toolchains ship relative links such as swift -> swift-frontend.
		if filepath.IsAbs(e.link) {
			return fmt.Errorf("archive entry %q links outside extract dir", e.name)
		}
		if _, err := entryPath(dest, filepath.Join(filepath.Dir(e.name), e.link)); err != nil {
			return err
		}
		_ = os.Remove(target)
		return os.Symlink(e.link, target)
	}

	src, err := e.body()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, e.mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func extractZip(archivePath, dest string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		e := entry{name: f.Name, mode: f.Mode(), body: f.Open}
		if e.mode&fs.ModeSymlink != 0 {
			// Zip stores the link target as the member's contents.
			if e.link, err = readAll(f.Open); err != nil {
				return fmt.Errorf("read link %s: %w", f.Name, err)
			}
		}
		if err := e.writeTo(dest); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func readAll(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	return string(data), err
}

func extractTarGz(archivePath, dest string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip reader: %w", err)
	}
	defer gz.Close()

	return untarStream(gz, dest)
}

// extractTarXz shells out to tar; the standard library has no xz reader.
func extractTarXz(ctx context.Context, archivePath, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("prepare extract dir: %w", err)
	}
	cmd := exec.CommandContext(ctx, "tar", "-xJf", archivePath, "-C", dest)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("tar extract: %v: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

func untarStream(r io.Reader, dest string) error {
	tr := tar.NewReader(r)
	body := func() (io.ReadCloser, error) { return io.NopCloser(tr), nil }
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}
		e := entry{name: hdr.Name, mode: hdr.FileInfo().Mode(), link: hdr.Linkname, body: body}
		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg, tar.TypeSymlink:
		default:
			continue
		}
		if err := e.writeTo(dest); err != nil {
			return fmt.Errorf("extract %s: %w", hdr.Name, err)
		}
	}
}
