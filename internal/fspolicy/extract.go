package fspolicy

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var archiveExtensions = map[string]struct{}{
	".zip": {}, ".tar": {}, ".tgz": {}, ".tar.gz": {},
}

func isArchive(name string) bool {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tar.gz") {
		return true
	}
	_, ok := archiveExtensions[filepath.Ext(lower)]
	return ok
}

// extractAll walks dir for archive files and extracts each one alongside
// itself, then removes the archive. Extraction targets are re-validated
// against dir on every entry to reject zip-slip paths the same way the
// delete-torrent use case rejects traversal out of its base directory.
func extractAll(dir string) error {
	var archives []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isArchive(d.Name()) {
			archives = append(archives, path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, archive := range archives {
		dest := filepath.Dir(archive)
		lower := strings.ToLower(archive)
		var extractErr error
		switch {
		case strings.HasSuffix(lower, ".zip"):
			extractErr = extractZip(archive, dest)
		case strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz"):
			extractErr = extractTarGz(archive, dest)
		case strings.HasSuffix(lower, ".tar"):
			extractErr = extractTar(archive, dest)
		}
		if extractErr != nil {
			return extractErr
		}
		if err := os.Remove(archive); err != nil {
			return err
		}
	}
	return nil
}

func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	destAbs := filepath.Clean(dest)
	for _, f := range r.File {
		target, err := safeExtractPath(destAbs, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := copyZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func copyZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

func extractTarGz(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	return extractTarReader(tar.NewReader(gz), dest)
}

func extractTar(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return err
	}
	defer f.Close()
	return extractTarReader(tar.NewReader(f), dest)
}

func extractTarReader(tr *tar.Reader, dest string) error {
	destAbs := filepath.Clean(dest)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeExtractPath(destAbs, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}

// safeExtractPath joins dest with an archive-relative entry name and
// rejects the result if it would land outside dest — the zip-slip guard,
// the same shape as removeTorrentFiles' outside-base-dir rejection.
func safeExtractPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	target = filepath.Clean(target)
	if !withinBase(dest, target) {
		return "", errors.New("archive entry escapes extraction directory: " + name)
	}
	return target, nil
}
