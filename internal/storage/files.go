package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rentsplit/internal/core"
)

const (
	serverFile   = "server.json"
	ledgerDir    = "ledger"
	archiveDir   = "archive"
	activeFile   = "active.json"
	templateFile = "template.json"
)

// FileStore keeps the server state and ledgers as JSON documents:
//
//	<dir>/server.json
//	<dir>/ledger/active.json
//	<dir>/ledger/template.json
//	<dir>/ledger/archive/<name>.json
//
// Every write goes to a temp file in the target directory and is renamed
// into place, so a crash never leaves a truncated document behind.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, ledgerDir, archiveDir), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directories: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) LoadServer(_ context.Context) (core.ServerState, error) {
	var st core.ServerState
	if err := readJSON(filepath.Join(s.dir, serverFile), "server state", serverFile, &st); err != nil {
		return core.ServerState{}, err
	}
	return st, nil
}

func (s *FileStore) SaveServer(_ context.Context, st core.ServerState) error {
	return writeJSON(filepath.Join(s.dir, serverFile), st)
}

func (s *FileStore) LoadActive(_ context.Context) (core.Ledger, error) {
	return loadLedger(s.activePath(), "ledger", "active")
}

func (s *FileStore) SaveActive(_ context.Context, l core.Ledger) error {
	return writeJSON(s.activePath(), l)
}

// ArchiveActive copies the active ledger document, byte for byte, to the
// archive under name.
func (s *FileStore) ArchiveActive(_ context.Context, name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid archive name %q", name)
	}
	b, err := os.ReadFile(s.activePath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &core.NotFoundError{Kind: "ledger", Key: "active"}
		}
		return fmt.Errorf("read active ledger: %w", err)
	}
	if err := writeFile(s.archivePath(name), b); err != nil {
		return fmt.Errorf("write archive %q: %w", name, err)
	}
	return nil
}

// templateDoc is the part of template.json that is read. Its date is a
// placeholder and never decoded.
type templateDoc struct {
	List []core.Expense `json:"list"`
}

// LoadTemplate returns the blank ledger template, or an empty ledger when
// no template file exists.
func (s *FileStore) LoadTemplate(_ context.Context) (core.Ledger, error) {
	var doc templateDoc
	err := readJSON(filepath.Join(s.dir, ledgerDir, templateFile), "template", "template", &doc)
	if core.IsNotFound(err) {
		return core.Ledger{List: []core.Expense{}}, nil
	}
	if err != nil {
		return core.Ledger{}, err
	}
	l := core.Ledger{List: doc.List}
	l.Normalize()
	return l, nil
}

func (s *FileStore) LoadArchive(_ context.Context, name string) (core.Ledger, error) {
	if !validName(name) {
		return core.Ledger{}, &core.NotFoundError{Kind: "archive", Key: name}
	}
	return loadLedger(s.archivePath(name), "archive", name)
}

// ListArchives returns archive names (file stems) in directory order.
func (s *FileStore) ListArchives(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, ledgerDir, archiveDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list archives: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Ping checks the data directory is still reachable.
func (s *FileStore) Ping(_ context.Context) error {
	info, err := os.Stat(filepath.Join(s.dir, ledgerDir))
	if err != nil {
		return fmt.Errorf("stat ledger directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", filepath.Join(s.dir, ledgerDir))
	}
	return nil
}

func (s *FileStore) activePath() string {
	return filepath.Join(s.dir, ledgerDir, activeFile)
}

func (s *FileStore) archivePath(name string) string {
	return filepath.Join(s.dir, ledgerDir, archiveDir, name+".json")
}

// validName rejects anything that could escape the archive directory.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`+"\x00") {
		return false
	}
	return filepath.Base(name) == name
}

func loadLedger(path, kind, key string) (core.Ledger, error) {
	var l core.Ledger
	if err := readJSON(path, kind, key, &l); err != nil {
		return core.Ledger{}, err
	}
	l.Normalize()
	return l, nil
}

func readJSON(path, kind, key string, v any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &core.NotFoundError{Kind: kind, Key: key}
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return writeFile(path, append(b, '\n'))
}

func writeFile(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into %s: %w", path, err)
	}
	return nil
}
