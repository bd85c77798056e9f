package testutil

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"sync"

	"pathkit/internal/pathtree"
)

// MemNode is one entry of the in-memory filesystem.
type MemNode struct {
	Path    string
	Kind    pathtree.EntryKind
	Content []byte
	Target  string // symlink target, as stored
	Mode    fs.FileMode
}

type fault struct {
	op   string
	path string
	err  error
}

// MemFilesystem is an in-memory pathtree.Filesystem for tests. It models
// directories, regular files and symlinks, including broken and looping
// ones. Safe for concurrent use.
type MemFilesystem struct {
	mu     sync.Mutex
	fl     pathtree.Flavour
	nodes  map[string]*MemNode // keyed by Path.Key of the normalized path
	faults []fault
}

// NewMemFilesystem creates a POSIX-flavoured filesystem holding only "/".
func NewMemFilesystem() *MemFilesystem {
	return NewMemFilesystemIn(pathtree.Posix)
}

// NewMemFilesystemIn creates an empty filesystem for the given flavour.
// Roots spring into existence when something is added below them.
func NewMemFilesystemIn(fl pathtree.Flavour) *MemFilesystem {
	m := &MemFilesystem{fl: fl, nodes: make(map[string]*MemNode)}
	if fl.Separator() == '/' {
		m.put("/", &MemNode{Kind: pathtree.KindDir, Mode: 0o755})
	}
	return m
}

// AddDirectory adds a directory and any missing parents.
func (m *MemFilesystem) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(m.path(path))
}

// AddFile adds a file, creating missing parents.
func (m *MemFilesystem) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.path(path)
	m.mkdirAll(p.Dir())
	m.put(p.String(), &MemNode{Kind: pathtree.KindFile, Content: content, Mode: 0o644})
}

// AddSymlink adds a symlink to target, which need not exist.
func (m *MemFilesystem) AddSymlink(path, target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.path(path)
	m.mkdirAll(p.Dir())
	m.put(p.String(), &MemNode{Kind: pathtree.KindSymlink, Target: target, Mode: fs.ModeSymlink | 0o777})
}

// Node returns the entry stored at path without following a final symlink.
func (m *MemFilesystem) Node(path string) (*MemNode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, n, err := m.lookup(m.path(path), false)
	if err != nil || n == nil {
		return nil, false
	}
	return n, true
}

// ReadFile returns the content of the file at path, following symlinks.
func (m *MemFilesystem) ReadFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, n, err := m.lookup(m.path(path), true)
	if err != nil || n == nil || n.Kind != pathtree.KindFile {
		return nil, false
	}
	return n.Content, true
}

// Paths returns every stored path in sorted order.
func (m *MemFilesystem) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.nodes))
	for _, n := range m.nodes {
		out = append(out, n.Path)
	}
	slices.Sort(out)
	return out
}

// FailOn makes every later call of op on path return err. op is the
// lower-case method name, e.g. "copyfile" or "rename".
func (m *MemFilesystem) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, fault{op: op, path: m.path(path).Key(), err: err})
}

func (m *MemFilesystem) Exists(p pathtree.Path) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("exists", p); err != nil {
		return false, err
	}
	_, n, err := m.lookup(p, true)
	return n != nil, err
}

func (m *MemFilesystem) IsFile(p pathtree.Path) (bool, error) {
	return m.isKind("isfile", p, pathtree.KindFile)
}

func (m *MemFilesystem) IsDir(p pathtree.Path) (bool, error) {
	return m.isKind("isdir", p, pathtree.KindDir)
}

func (m *MemFilesystem) isKind(op string, p pathtree.Path, kind pathtree.EntryKind) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected(op, p); err != nil {
		return false, err
	}
	_, n, err := m.lookup(p, true)
	return n != nil && n.Kind == kind, err
}

func (m *MemFilesystem) IsSymlink(p pathtree.Path) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("issymlink", p); err != nil {
		return false, err
	}
	_, n, err := m.lookup(p, false)
	return n != nil && n.Kind == pathtree.KindSymlink, err
}

func (m *MemFilesystem) ReadSymlink(p pathtree.Path) (pathtree.Path, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("readsymlink", p); err != nil {
		return pathtree.Path{}, err
	}
	_, n, err := m.lookup(p, false)
	if err != nil {
		return pathtree.Path{}, err
	}
	if n == nil || n.Kind != pathtree.KindSymlink {
		return pathtree.Path{}, fmt.Errorf("readlink %s: not a symlink", p)
	}
	return pathtree.NewIn(m.fl, n.Target), nil
}

func (m *MemFilesystem) ReadDir(p pathtree.Path) ([]pathtree.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("readdir", p); err != nil {
		return nil, err
	}
	dir, n, err := m.lookup(p, true)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("readdir %s: %w", p, fs.ErrNotExist)
	}
	if n.Kind != pathtree.KindDir {
		return nil, fmt.Errorf("readdir %s: %w", p, pathtree.ErrNotADirectory)
	}
	var out []pathtree.DirEntry
	for _, c := range m.nodes {
		cp := m.path(c.Path)
		if cp.IsRoot() || !cp.Dir().Equal(dir) {
			continue
		}
		out = append(out, pathtree.DirEntry{Name: cp.Base(), Kind: c.Kind})
	}
	return out, nil
}

func (m *MemFilesystem) Mkdir(p pathtree.Path, recursive bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("mkdir", p); err != nil {
		return err
	}
	_, existing, err := m.lookup(p, false)
	if err != nil {
		return err
	}
	if existing != nil {
		if _, n, _ := m.lookup(p, true); recursive && n != nil && n.Kind == pathtree.KindDir {
			return nil
		}
		return fmt.Errorf("mkdir %s: %w", p, fs.ErrExist)
	}
	if recursive {
		return m.mkdirAll(p)
	}
	target, err := m.placement(p)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", p, err)
	}
	m.put(target.String(), &MemNode{Kind: pathtree.KindDir, Mode: 0o755})
	return nil
}

func (m *MemFilesystem) CopyFile(src, dst pathtree.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("copyfile", dst); err != nil {
		return err
	}
	_, in, err := m.lookup(src, true)
	if err != nil {
		return err
	}
	if in == nil {
		return fmt.Errorf("open %s: %w", src, fs.ErrNotExist)
	}
	if in.Kind != pathtree.KindFile {
		return fmt.Errorf("copy %s: %w", src, pathtree.ErrIsADirectory)
	}
	_, out, err := m.lookup(dst, false)
	if err != nil {
		return err
	}
	if out != nil && out.Kind == pathtree.KindDir {
		return fmt.Errorf("copy to %s: %w", dst, pathtree.ErrIsADirectory)
	}
	target, err := m.placement(dst)
	if err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	m.put(target.String(), &MemNode{Kind: pathtree.KindFile, Content: slices.Clone(in.Content), Mode: in.Mode})
	return nil
}

func (m *MemFilesystem) Symlink(target, link pathtree.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("symlink", link); err != nil {
		return err
	}
	_, n, err := m.lookup(link, false)
	if err != nil {
		return err
	}
	if n != nil {
		return fmt.Errorf("symlink %s: %w", link, fs.ErrExist)
	}
	at, err := m.placement(link)
	if err != nil {
		return fmt.Errorf("symlink %s: %w", link, err)
	}
	m.put(at.String(), &MemNode{Kind: pathtree.KindSymlink, Target: target.String(), Mode: fs.ModeSymlink | 0o777})
	return nil
}

func (m *MemFilesystem) RemoveFile(p pathtree.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("removefile", p); err != nil {
		return err
	}
	at, n, err := m.lookup(p, false)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("remove %s: %w", p, fs.ErrNotExist)
	}
	if n.Kind == pathtree.KindDir && m.hasChildren(at) {
		return fmt.Errorf("remove %s: directory not empty", p)
	}
	delete(m.nodes, at.Key())
	return nil
}

func (m *MemFilesystem) RemoveTree(p pathtree.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("removetree", p); err != nil {
		return err
	}
	at, n, err := m.lookup(p, false)
	if err != nil || n == nil {
		return err
	}
	for k, c := range m.nodes {
		if m.path(c.Path).HasPrefix(at) {
			delete(m.nodes, k)
		}
	}
	return nil
}

func (m *MemFilesystem) Rename(from, to pathtree.Path) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.injected("rename", from); err != nil {
		return err
	}
	src, n, err := m.lookup(from, false)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("rename %s: %w", from, fs.ErrNotExist)
	}
	dst, err := m.placement(to)
	if err != nil {
		return fmt.Errorf("rename to %s: %w", to, err)
	}
	if dst.HasPrefix(src) {
		return fmt.Errorf("rename %s into itself", from)
	}
	moved := make(map[string]*MemNode)
	for k, c := range m.nodes {
		cp := m.path(c.Path)
		if !cp.HasPrefix(src) {
			continue
		}
		rel, err := cp.RelativeTo(src)
		if err != nil {
			return err
		}
		delete(m.nodes, k)
		moved[dst.JoinPath(rel).Normalize().String()] = c
	}
	for text, c := range moved {
		m.put(text, c)
	}
	return nil
}

// WalkTree visits the tree depth-first, entering symlinked directories
// only when follow is set. A directory that resolves to one of its own
// ancestors is not entered.
func (m *MemFilesystem) WalkTree(root pathtree.Path, follow bool, fn func(p pathtree.Path, kind pathtree.EntryKind) error) error {
	m.mu.Lock()
	start, _, err := m.lookup(root, true)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.walkTree(root, follow, []string{start.Key()}, fn)
}

// walkTree enters a directory only when its resolved location is not
// already among ancestors.
func (m *MemFilesystem) walkTree(dir pathtree.Path, follow bool, ancestors []string, fn func(pathtree.Path, pathtree.EntryKind) error) error {
	entries, err := m.ReadDir(dir)
	if err != nil {
		return err
	}
	slices.SortFunc(entries, func(a, b pathtree.DirEntry) int { return strings.Compare(a.Name, b.Name) })
	for _, e := range entries {
		p := dir.Join(e.Name)
		if err := fn(p, e.Kind); err != nil {
			if errors.Is(err, pathtree.SkipDir) {
				continue
			}
			return err
		}
		if e.Kind != pathtree.KindDir && (e.Kind != pathtree.KindSymlink || !follow) {
			continue
		}
		m.mu.Lock()
		resolved, n, err := m.lookup(p, true)
		m.mu.Unlock()
		if err != nil || n == nil || n.Kind != pathtree.KindDir || slices.Contains(ancestors, resolved.Key()) {
			continue
		}
		if err := m.walkTree(p, follow, append(slices.Clip(ancestors), resolved.Key()), fn); err != nil {
			return err
		}
	}
	return nil
}

// path interprets text in the filesystem's flavour, normalized.
func (m *MemFilesystem) path(text string) pathtree.Path {
	return pathtree.NewIn(m.fl, text).Normalize()
}

func (m *MemFilesystem) put(text string, n *MemNode) {
	p := m.path(text)
	n.Path = p.String()
	m.nodes[p.Key()] = n
}

func (m *MemFilesystem) injected(op string, p pathtree.Path) error {
	key := m.path(p.String()).Key()
	for _, f := range m.faults {
		if f.op == op && f.path == key {
			return f.err
		}
	}
	return nil
}

func (m *MemFilesystem) hasChildren(dir pathtree.Path) bool {
	for _, c := range m.nodes {
		cp := m.path(c.Path)
		if !cp.IsRoot() && cp.Dir().Equal(dir) {
			return true
		}
	}
	return false
}

// mkdirAll creates p and its missing ancestors. Callers hold the lock.
func (m *MemFilesystem) mkdirAll(p pathtree.Path) error {
	if p.IsRoot() {
		if _, ok := m.nodes[p.Key()]; !ok {
			m.put(p.String(), &MemNode{Kind: pathtree.KindDir, Mode: 0o755})
		}
		return nil
	}
	_, entry, err := m.lookup(p, false)
	if err != nil {
		return err
	}
	if entry != nil {
		if _, n, _ := m.lookup(p, true); n == nil || n.Kind != pathtree.KindDir {
			return fmt.Errorf("mkdir %s: %w", p, pathtree.ErrNotADirectory)
		}
		return nil
	}
	if err := m.mkdirAll(p.Dir()); err != nil {
		return err
	}
	target, err := m.placement(p)
	if err != nil {
		return err
	}
	m.put(target.String(), &MemNode{Kind: pathtree.KindDir, Mode: 0o755})
	return nil
}

// placement resolves the parent of p through symlinks and returns where
// a new entry named p.Base() belongs. The parent must be a directory.
func (m *MemFilesystem) placement(p pathtree.Path) (pathtree.Path, error) {
	p = m.path(p.String())
	parent, n, err := m.lookup(p.Dir(), true)
	if err != nil {
		return pathtree.Path{}, err
	}
	if n == nil {
		return pathtree.Path{}, fs.ErrNotExist
	}
	if n.Kind != pathtree.KindDir {
		return pathtree.Path{}, pathtree.ErrNotADirectory
	}
	return parent.Join(p.Base()), nil
}

// lookup resolves p component by component, following symlinks in every
// component but the last, and the last too when followLast is set. It
// returns the resolved location and the node stored there, or a nil node
// when nothing is. Callers hold the lock.
func (m *MemFilesystem) lookup(p pathtree.Path, followLast bool) (pathtree.Path, *MemNode, error) {
	return m.lookupHops(m.path(p.String()), followLast, 0)
}

func (m *MemFilesystem) lookupHops(p pathtree.Path, followLast bool, hops int) (pathtree.Path, *MemNode, error) {
	var segs []string
	for s := range p.Segments() {
		segs = append(segs, s)
	}
	if len(segs) == 0 || !p.IsAbs() {
		return pathtree.Path{}, nil, fmt.Errorf("lookup %q: %w", p, pathtree.ErrInvalidPath)
	}
	cur := m.path(segs[0])
	for i, seg := range segs[1:] {
		next := cur.Join(seg)
		n := m.nodes[next.Key()]
		if n == nil {
			return next, nil, nil
		}
		last := i == len(segs)-2
		if n.Kind == pathtree.KindSymlink && (!last || followLast) {
			if hops >= 40 {
				return pathtree.Path{}, nil, fmt.Errorf("lookup %s: too many levels of symbolic links", p)
			}
			target := pathtree.NewIn(m.fl, n.Target)
			if !target.IsAbs() {
				target = cur.JoinPath(target)
			}
			target = target.Join(segs[i+2:]...).Normalize()
			return m.lookupHops(target, followLast, hops+1)
		}
		if !last && n.Kind != pathtree.KindDir {
			return next, nil, nil
		}
		cur = next
	}
	return cur, m.nodes[cur.Key()], nil
}

// Compile-time checks
var (
	_ pathtree.Filesystem = (*MemFilesystem)(nil)
	_ pathtree.TreeWalker = (*MemFilesystem)(nil)
)
