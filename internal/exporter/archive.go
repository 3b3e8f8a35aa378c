package exporter

import (
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Archive compression methods.
const (
	StoreMethod   uint16 = zip.Store
	DeflateMethod uint16 = zip.Deflate

	// ZstdMethod is the zip method id for zstd-compressed entries (WinZip convention).
	ZstdMethod uint16 = zstd.ZipMethodWinZip
)

// ZipFiles writes an archive at dest holding each file under its base name.
func ZipFiles(dest string, files []string, method uint16) (string, error) {
	out, err := os.Create(dest)
	if err != nil {
		return "", newIOError("archive", dest, err)
	}

	zw := zip.NewWriter(out)
	if method == ZstdMethod {
		zw.RegisterCompressor(ZstdMethod, zstd.ZipCompressor())
	}

	for _, name := range files {
		if err := addToZip(zw, name, method); err != nil {
			zw.Close()
			out.Close()
			return "", newIOError("archive", dest, err)
		}
	}

	if err := zw.Close(); err != nil {
		out.Close()
		return "", newIOError("archive", dest, err)
	}
	if err := out.Close(); err != nil {
		return "", newIOError("archive", dest, err)
	}
	return dest, nil
}

func addToZip(zw *zip.Writer, name string, method uint16) error {
	in, err := os.Open(name)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = filepath.Base(name)
	hdr.Method = method

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
