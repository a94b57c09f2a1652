package migration

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/casa/wms/migrations"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

const sourceDriverName = "iofs"

// Source selects where migration files are read from. The zero value
// reads the set compiled into the binary.
type Source struct {
	Dir string
}

// EmbeddedSource returns the migrations shipped with the binary
func EmbeddedSource() Source {
	return Source{}
}

// DirSource reads migrations from a directory on disk
func DirSource(dir string) Source {
	return Source{Dir: dir}
}

// IsEmbedded reports whether the source is the compiled-in set
func (s Source) IsEmbedded() bool {
	return s.Dir == ""
}

func (s Source) String() string {
	if s.IsEmbedded() {
		return "embedded"
	}
	return s.Dir
}

func (s Source) fs() fs.FS {
	if s.IsEmbedded() {
		return migrations.FS
	}
	return os.DirFS(s.Dir)
}

func (s Source) open() (source.Driver, error) {
	driver, err := iofs.New(s.fs(), ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open migration source %s: %w", s, err)
	}
	return driver, nil
}

// ListVersions returns every version in the source in ascending order.
// A directory without migrations yields an empty list.
func ListVersions(src Source) ([]uint, error) {
	driver, err := src.open()
	if err != nil {
		if !src.IsEmbedded() && errors.Is(err, fs.ErrNotExist) {
			return []uint{}, nil
		}
		return nil, err
	}
	defer driver.Close()

	versions := make([]uint, 0)
	version, err := driver.First()
	for err == nil {
		versions = append(versions, version)
		version, err = driver.Next(version)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to enumerate migrations: %w", err)
	}
	return versions, nil
}

// ReadMigration returns the up and down SQL for a version
func ReadMigration(src Source, version uint) (up, down string, err error) {
	driver, err := src.open()
	if err != nil {
		return "", "", err
	}
	defer driver.Close()

	up, err = readBody(driver.ReadUp, version)
	if err != nil {
		return "", "", fmt.Errorf("read up %d: %w", version, err)
	}
	down, err = readBody(driver.ReadDown, version)
	if err != nil {
		return "", "", fmt.Errorf("read down %d: %w", version, err)
	}
	return up, down, nil
}

func readBody(read func(uint) (io.ReadCloser, string, error), version uint) (string, error) {
	r, _, err := read(version)
	if err != nil {
		return "", err
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Status compares the applied schema version with the available migrations
type Status struct {
	Version uint
	Dirty   bool
	Latest  uint
	Pending []uint
}

// UpToDate is true when nothing is pending and the last run finished cleanly
func (s *Status) UpToDate() bool {
	return len(s.Pending) == 0 && !s.Dirty
}

func newStatus(version uint, dirty bool, available []uint) *Status {
	st := &Status{Version: version, Dirty: dirty, Pending: []uint{}}
	for _, v := range available {
		if v > st.Latest {
			st.Latest = v
		}
		if v > version {
			st.Pending = append(st.Pending, v)
		}
	}
	return st
}
