// Package packager moves compiled output into place and archives it.
package packager

import (
	"context"
	"encoding/xml"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.trai.ch/kiln/internal/adapters/fs"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Packager = (*Packager)(nil)

// Packager implements ports.Packager on the local file system.
type Packager struct {
	walker *fs.Walker
}

// New creates a new Packager.
func New(walker *fs.Walker) *Packager {
	return &Packager{walker: walker}
}

// pluginDescriptor is the registration file compilers look for at the root of a plugin's classpath entry.
type pluginDescriptor struct {
	XMLName   xml.Name `xml:"plugin"`
	Name      string   `xml:"name"`
	Classname string   `xml:"classname"`
}

// Promote removes stale class files, moves the staged output into the class directory and writes the
// plugin descriptor. Plugin metadata emitted under a package directory is moved to the classes root.
// The staging directory is removed on success.
func (p *Packager) Promote(ctx context.Context, req *domain.PromoteRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(req.ClassesDir, domain.DirPerm); err != nil {
		return packagingFailed(err, req.ClassesDir)
	}

	for _, stale := range req.Stale {
		target := filepath.Join(req.ClassesDir, filepath.FromSlash(stale))
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return packagingFailed(err, target)
		}
		pruneEmptyParents(req.ClassesDir, filepath.Dir(target))
	}

	staged, err := p.walker.RelativeFiles(req.StagingDir)
	if err != nil {
		return packagingFailed(err, req.StagingDir)
	}
	for _, rel := range staged {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest := domain.PromotedPath(rel)
		if err := move(filepath.Join(req.StagingDir, filepath.FromSlash(rel)), filepath.Join(req.ClassesDir, filepath.FromSlash(dest))); err != nil {
			return err
		}
	}

	if req.Plugin != nil {
		if err := writeDescriptor(req.ClassesDir, req.Plugin); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(req.StagingDir); err != nil {
		return packagingFailed(err, req.StagingDir)
	}
	return nil
}

// Collect lists the class files below classesDir keyed by file name.
func (p *Packager) Collect(classesDir string) (domain.Products, error) {
	files, err := p.walker.RelativeFiles(classesDir)
	if err != nil {
		return nil, packagingFailed(err, classesDir)
	}
	products := domain.Products{}
	for _, rel := range files {
		if strings.HasSuffix(rel, ".class") {
			products.Add(path.Base(rel), rel)
		}
	}
	return products, nil
}

func move(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), domain.DirPerm); err != nil {
		return packagingFailed(err, dest)
	}
	if err := os.Rename(src, dest); err != nil {
		return packagingFailed(err, dest)
	}
	return nil
}

func writeDescriptor(classesDir string, plugin *domain.PluginInfo) error {
	data, err := xml.MarshalIndent(pluginDescriptor{Name: plugin.Name, Classname: plugin.Classname}, "", "  ")
	if err != nil {
		return packagingFailed(err, classesDir)
	}
	target := filepath.Join(classesDir, domain.PluginDescriptorName)
	if err := os.WriteFile(target, append(data, '\n'), domain.FilePerm); err != nil {
		return packagingFailed(err, target)
	}
	return nil
}

// pruneEmptyParents removes empty directories from dir up to, but not including, root.
func pruneEmptyParents(root, dir string) {
	for dir != root && strings.HasPrefix(dir, root) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func packagingFailed(err error, p string) error {
	return zerr.With(errors.Join(domain.ErrPackagingFailed, err), "path", p)
}
