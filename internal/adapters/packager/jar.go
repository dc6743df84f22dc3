package packager

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"time"

	"github.com/klauspost/compress/zip"
	"go.trai.ch/kiln/internal/core/domain"
)

const (
	manifestName = "META-INF/MANIFEST.MF"
	manifest     = "Manifest-Version: 1.0\r\nCreated-By: kiln\r\n\r\n"
)

// jarEpoch is the modification time of every jar entry.
var jarEpoch = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

// Jar archives classesDir into jarPath. The manifest comes first and every other entry, directories
// included, follows in path order with a fixed modification time, so equal inputs give equal bytes.
// The archive is written to a temporary file and renamed into place.
func (p *Packager) Jar(ctx context.Context, classesDir, jarPath string) error {
	files, err := p.walker.RelativeFiles(classesDir)
	if err != nil {
		return packagingFailed(err, classesDir)
	}

	if err := os.MkdirAll(filepath.Dir(jarPath), domain.DirPerm); err != nil {
		return packagingFailed(err, jarPath)
	}
	tmp, err := os.CreateTemp(filepath.Dir(jarPath), filepath.Base(jarPath)+".tmp-*")
	if err != nil {
		return packagingFailed(err, jarPath)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := writeJar(ctx, tmp, classesDir, files); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return packagingFailed(err, jarPath)
	}
	if err := os.Chmod(tmp.Name(), domain.FilePerm); err != nil {
		return packagingFailed(err, jarPath)
	}
	if err := os.Rename(tmp.Name(), jarPath); err != nil {
		return packagingFailed(err, jarPath)
	}
	return nil
}

func writeJar(ctx context.Context, w io.Writer, classesDir string, files []string) error {
	zw := zip.NewWriter(w)

	if err := writeEntry(zw, manifestName, []byte(manifest)); err != nil {
		return packagingFailed(err, manifestName)
	}

	for _, name := range jarEntries(files) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if name[len(name)-1] == '/' {
			if err := writeDir(zw, name); err != nil {
				return packagingFailed(err, name)
			}
			continue
		}
		data, err := os.ReadFile(filepath.Join(classesDir, filepath.FromSlash(name)))
		if err != nil {
			return packagingFailed(err, name)
		}
		if err := writeEntry(zw, name, data); err != nil {
			return packagingFailed(err, name)
		}
	}

	if err := zw.Close(); err != nil {
		return packagingFailed(err, classesDir)
	}
	return nil
}

// jarEntries returns the sorted file and directory entries of an archive, without the manifest.
func jarEntries(files []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range files {
		if f == manifestName {
			continue
		}
		out = append(out, f)
		for dir := path.Dir(f); dir != "."; dir = path.Dir(dir) {
			name := dir + "/"
			if _, ok := seen[name]; ok {
				break
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func writeDir(zw *zip.Writer, name string) error {
	h := &zip.FileHeader{Name: name, Method: zip.Store, Modified: jarEpoch}
	h.SetMode(fs.ModeDir | 0o755)
	_, err := zw.CreateHeader(h)
	return err
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	h := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: jarEpoch}
	h.SetMode(domain.FilePerm)
	fw, err := zw.CreateHeader(h)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}
