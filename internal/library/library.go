// Package library manages the game's directory of recorded routes.
package library

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/afero"
	"github.com/tamods/routekit/internal/codec"
	"github.com/tamods/routekit/internal/naming"
	"github.com/tamods/routekit/pkg/core"
)

var (
	// ErrNotFound is returned when a named route does not exist.
	ErrNotFound = errors.New("route not found")
	// ErrExists is returned by Write when the target exists and overwrite is off.
	ErrExists = errors.New("route already exists")
	// ErrInvalidName is returned for names that are not a plain file name.
	ErrInvalidName = errors.New("invalid route file name")
)

// Entry describes one route file in the library.
type Entry struct {
	Name    string           `json:"name"`
	Size    int64            `json:"size"`
	ModTime time.Time        `json:"modTime"`
	Route   naming.RouteName `json:"route"`
	Parsed  bool             `json:"parsed"`
}

// Library reads and writes route files in a single directory.
type Library struct {
	fs  afero.Fs
	dir string
}

// New returns a Library rooted at dir on fs.
func New(fs afero.Fs, dir string) *Library {
	return &Library{fs: fs, dir: dir}
}

// Dir returns the directory the library is rooted at.
func (l *Library) Dir() string {
	return l.dir
}

// Path returns the full path of name inside the library.
func (l *Library) Path(name string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(l.dir, name), nil
}

// List returns every .route file in the library, sorted by name.
func (l *Library) List() ([]Entry, error) {
	infos, err := afero.ReadDir(l.fs, l.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("routes directory %s: %w", l.dir, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read routes directory: %w", err)
	}

	entries := make([]Entry, 0, len(infos))
	for _, info := range infos {
		if !info.Mode().IsRegular() || !naming.HasExt(info.Name()) {
			continue
		}
		entries = append(entries, entryFor(info))
	}

	slices.SortFunc(entries, func(a, b Entry) int {
		return strings.Compare(a.Name, b.Name)
	})
	return entries, nil
}

// Stat returns the entry for name.
func (l *Library) Stat(name string) (Entry, error) {
	p, err := l.Path(name)
	if err != nil {
		return Entry{}, err
	}
	info, err := l.fs.Stat(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("failed to stat %s: %w", name, err)
	}
	return entryFor(info), nil
}

// Exists reports whether name is present in the library.
func (l *Library) Exists(name string) (bool, error) {
	p, err := l.Path(name)
	if err != nil {
		return false, err
	}
	return afero.Exists(l.fs, p)
}

// Read returns the raw bytes of name.
func (l *Library) Read(name string) ([]byte, error) {
	p, err := l.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := afero.ReadFile(l.fs, p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Load reads and decodes name.
func (l *Library) Load(name string) (core.RouteFile, error) {
	data, err := l.Read(name)
	if err != nil {
		return core.RouteFile{}, err
	}
	route, err := codec.Decode(data)
	if err != nil {
		return core.RouteFile{}, fmt.Errorf("%s: %w", name, err)
	}
	return route, nil
}

// Write stores data as name. Unless overwrite is set an existing file is
// left alone and ErrExists is returned.
func (l *Library) Write(name string, data []byte, overwrite bool) error {
	p, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create routes directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := l.fs.OpenFile(p, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", name, ErrExists)
		}
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return f.Close()
}

// Save encodes route and writes it as name.
func (l *Library) Save(name string, route core.RouteFile, overwrite bool) error {
	return l.Write(name, codec.Encode(route), overwrite)
}

// Delete removes name from the library.
func (l *Library) Delete(name string) error {
	p, err := l.Path(name)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

func entryFor(info os.FileInfo) Entry {
	e := Entry{
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	e.Route, e.Parsed = naming.Parse(info.Name())
	return e
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || path.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// DefaultRoutesDir is where the game client stores routes for the current
// user.
func DefaultRoutesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, "Documents", "My Games", "Tribes Ascend", "TribesGame", "config", "routes")
}
