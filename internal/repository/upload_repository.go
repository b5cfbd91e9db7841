package repository

import (
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"
)

// pdfSuffix is matched case-sensitively; "X.PDF" is not listed.
const pdfSuffix = ".pdf"

// StoredFile describes a file written by UploadRepo.Upload.
type StoredFile struct {
	Name        string // generated file name inside the upload directory
	Path        string // public path under which the file is served
	Size        int64  // number of bytes written
	ContentType string // sniffed MIME type, informational only
}

// UploadRepo persists uploaded files in one directory. The directory
// listing is the only index; there is no metadata record.
type UploadRepo struct {
	fs     afero.Fs
	dir    string
	prefix string
	now    func() time.Time
	rnd    func() int64
}

// NewUploadRepo returns a repo storing files in dir on fs and exposing them
// under the public prefix (e.g. "/documenti").
func NewUploadRepo(fs afero.Fs, dir, prefix string) *UploadRepo {
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		prefix = "/" + prefix
	}
	return &UploadRepo{
		fs:     fs,
		dir:    dir,
		prefix: prefix,
		now:    time.Now,
		rnd:    func() int64 { return rand.Int64N(1_000_000_001) },
	}
}

// Dir returns the upload directory.
func (r *UploadRepo) Dir() string { return r.dir }

// EnsureDir creates the upload directory when absent.
func (r *UploadRepo) EnsureDir() error {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	return nil
}

// Upload writes src under a name of the form
// {unixMillis}-{random}-{originalName}. Collisions are not detected; the
// random component makes them unlikely.
func (r *UploadRepo) Upload(src io.Reader, originalName string) (StoredFile, error) {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(originalName, `\`, "/")))
	if originalName == "" || base == "." || base == ".." || base == string(filepath.Separator) {
		return StoredFile{}, ErrNoFile
	}
	if err := r.EnsureDir(); err != nil {
		return StoredFile{}, err
	}
	name := strconv.FormatInt(r.now().UnixMilli(), 10) + "-" + strconv.FormatInt(r.rnd(), 10) + "-" + base

	f, err := r.fs.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return StoredFile{}, fmt.Errorf("create upload %s: %w", name, err)
	}
	// sniff while copying so the reader is consumed once
	head := &headBuffer{limit: 3072}
	n, err := io.Copy(f, io.TeeReader(src, head))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = r.fs.Remove(filepath.Join(r.dir, name))
		return StoredFile{}, fmt.Errorf("write upload %s: %w", name, err)
	}
	return StoredFile{
		Name:        name,
		Path:        r.publicPath(name),
		Size:        n,
		ContentType: mimetype.Detect(head.buf).String(),
	}, nil
}

// List returns the public paths of every file whose name ends in ".pdf".
func (r *UploadRepo) List() ([]string, error) {
	entries, err := afero.ReadDir(r.fs, r.dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), pdfSuffix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = r.publicPath(n)
	}
	return paths, nil
}

// Delete removes the file named by the last element of p. Only the base
// name is used, and it must resolve to a direct child of the upload
// directory. A missing file yields ErrUploadNotFound.
func (r *UploadRepo) Delete(p string) error {
	name, err := r.resolve(p)
	if err != nil {
		return err
	}
	full := filepath.Join(r.dir, name)
	info, err := r.fs.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrUploadNotFound, name)
		}
		return fmt.Errorf("stat upload %s: %w", name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidPath, name)
	}
	if err := r.fs.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrUploadNotFound, name)
		}
		return fmt.Errorf("remove upload %s: %w", name, err)
	}
	return nil
}

// resolve canonicalises a client supplied path to a file name inside dir.
func (r *UploadRepo) resolve(p string) (string, error) {
	// blank input is rejected, but the name itself is used as given:
	// "a.pdf " and "a.pdf" are different files
	if strings.TrimSpace(p) == "" {
		return "", ErrInvalidPath
	}
	p = strings.ReplaceAll(p, `\`, "/")
	name := path.Base(p)
	if name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	root := filepath.Clean(r.dir)
	full := filepath.Join(root, name)
	if rel, err := filepath.Rel(root, full); err != nil || rel != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return name, nil
}

func (r *UploadRepo) publicPath(name string) string {
	return r.prefix + "/" + name
}

// headBuffer keeps the first limit bytes written to it.
type headBuffer struct {
	buf   []byte
	limit int
}

func (h *headBuffer) Write(p []byte) (int, error) {
	if room := h.limit - len(h.buf); room > 0 {
		if len(p) < room {
			room = len(p)
		}
		h.buf = append(h.buf, p[:room]...)
	}
	return len(p), nil
}
