package platform

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tcm/internal/toolchain"
)

type archiveEntry struct {
	name string
	body string
	link string
	dir  bool
}

func writeTarGz(t *testing.T, path string, entries []archiveEntry) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := &tar.Header{Name: e.name, Mode: 0o755}
		switch {
		case e.dir:
			hdr.Typeflag = tar.TypeDir
		case e.link != "":
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = e.link
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(e.body))
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func writeZip(t *testing.T, path string, entries []archiveEntry) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		hdr := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		body := e.body
		if e.link != "" {
			hdr.SetMode(os.ModeSymlink | 0o777)
			body = e.link
		} else {
			hdr.SetMode(0o755)
		}
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestLocal_InstallTarGz(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "swift-5.10.1-RELEASE-ubuntu22.04.tar.gz")
	writeTarGz(t, archive, []archiveEntry{
		{name: "swift-5.10.1-RELEASE-ubuntu22.04/", dir: true},
		{name: "swift-5.10.1-RELEASE-ubuntu22.04/usr/bin/swift-frontend", body: "#!/bin/sh\n"},
		{name: "swift-5.10.1-RELEASE-ubuntu22.04/usr/bin/swift", link: "swift-frontend"},
	})

	p := NewLocal(filepath.Join(tmp, "toolchains"), nil)
	v := toolchain.Stable(5, 10, 1)
	require.NoError(t, p.Install(context.Background(), v, archive))

	bin, err := p.BinDir(v)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "toolchains", "5.10.1", "usr", "bin"), bin)

	target, err := os.Readlink(filepath.Join(bin, "swift"))
	require.NoError(t, err)
	assert.Equal(t, "swift-frontend", target)

	entries, err := os.ReadDir(p.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1, "extract dir is cleaned up")

	require.NoError(t, p.Uninstall(context.Background(), v))
	_, err = os.Stat(p.ToolchainDir(v))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, p.Uninstall(context.Background(), v), "uninstalling a missing toolchain is not an error")
}

func TestLocal_InstallZip(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "toolchain.zip")
	writeZip(t, archive, []archiveEntry{{name: "bin/swift", body: "binary"}})

	p := NewLocal(filepath.Join(tmp, "toolchains"), nil)
	v := toolchain.Snapshot(toolchain.MainBranch, "2024-03-01")
	require.NoError(t, p.Install(context.Background(), v, archive))

	bin, err := p.BinDir(v)
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(bin, "swift"))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
}

func TestLocal_InstallZipWithLinks(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "toolchain.zip")
	writeZip(t, archive, []archiveEntry{
		{name: "usr/bin/swift-frontend", body: "binary"},
		{name: "usr/bin/swiftc", link: "swift-frontend"},
	})

	p := NewLocal(filepath.Join(tmp, "toolchains"), nil)
	v := toolchain.Stable(6, 0, 0)
	require.NoError(t, p.Install(context.Background(), v, archive))

	bin, err := p.BinDir(v)
	require.NoError(t, err)
	target, err := os.Readlink(filepath.Join(bin, "swiftc"))
	require.NoError(t, err)
	assert.Equal(t, "swift-frontend", target)

	archive = filepath.Join(tmp, "evil.zip")
	writeZip(t, archive, []archiveEntry{{name: "bin/swift", link: "/etc/passwd"}})
	assert.ErrorContains(t, p.Install(context.Background(), toolchain.Stable(1, 0, 0), archive), "links outside")
}

func TestLocal_InstallRejectsArchiveWithoutBin(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "toolchain.tar.gz")
	writeTarGz(t, archive, []archiveEntry{{name: "README", body: "hi"}})

	p := NewLocal(filepath.Join(tmp, "toolchains"), nil)
	v := toolchain.Stable(5, 10, 1)
	err := p.Install(context.Background(), v, archive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bin directory")
	_, statErr := os.Stat(p.ToolchainDir(v))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLocal_InstallRejectsEscapingEntries(t *testing.T) {
	tmp := t.TempDir()
	archive := filepath.Join(tmp, "evil.tar.gz")
	writeTarGz(t, archive, []archiveEntry{{name: "../../escaped", body: "x"}})

	p := NewLocal(filepath.Join(tmp, "toolchains"), nil)
	err := p.Install(context.Background(), toolchain.Stable(1, 0, 0), archive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
	_, statErr := os.Stat(filepath.Join(tmp, "escaped"))
	assert.True(t, os.IsNotExist(statErr))

	archive = filepath.Join(tmp, "evil-link.tar.gz")
	writeTarGz(t, archive, []archiveEntry{{name: "bin/swift", link: "../../../etc/passwd"}})
	err = p.Install(context.Background(), toolchain.Stable(1, 0, 0), archive)
	assert.Error(t, err)
}

func TestLocal_UnsupportedFormat(t *testing.T) {
	p := NewLocal(t.TempDir(), nil)
	err := p.Install(context.Background(), toolchain.Stable(1, 0, 0), "toolchain.pkg")
	assert.ErrorContains(t, err, "unsupported archive format")
}

func TestLocal_BinDirMissing(t *testing.T) {
	p := NewLocal(t.TempDir(), nil)
	_, err := p.BinDir(toolchain.Stable(1, 0, 0))
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]archiveFormat{
		"a.zip":    archiveFormatZip,
		"a.tar.gz": archiveFormatTarGz,
		"a.TGZ":    archiveFormatTarGz,
		"a.tar.xz": archiveFormatTarXz,
	}
	for name, want := range tests {
		got, err := detectFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
}
