package provider

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// tarArchive walks src (a file or a directory) and returns a tar stream
// whose entries are rooted at archiveRoot, for use with Docker's
// CopyToContainer and Kubernetes' tar-over-exec upload (spec.md §4.C).
func tarArchive(src, archiveRoot string) ([]byte, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", src, err)
	}

	var w bytes.Buffer
	tw := tar.NewWriter(&w)

	walkErr := func() error {
		if !info.IsDir() {
			return addTarFile(tw, src, archiveRoot, info)
		}
		return filepath.Walk(src, func(path string, fi fs.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(src, path)
			if err != nil {
				return err
			}
			name := archiveRoot
			if rel != "." {
				name = filepath.Join(archiveRoot, rel)
			}
			if fi.IsDir() {
				hdr, err := tar.FileInfoHeader(fi, "")
				if err != nil {
					return err
				}
				hdr.Name = name + "/"
				return tw.WriteHeader(hdr)
			}
			return addTarFile(tw, path, name, fi)
		})
	}()
	if walkErr != nil {
		return nil, walkErr
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func addTarFile(tw *tar.Writer, path, name string, info fs.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// untarFirstEntry extracts the first regular-file entry of a tar stream to
// dst, which is all CopyFromNode needs for the single-file reads it's used
// for (log/db-snapshot retrieval).
func untarFirstEntry(r io.Reader, dst string) error {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("no regular file found in archive")
		}
		if err != nil {
			return err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		out, err := os.Create(dst)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, tr)
		return err
	}
}

