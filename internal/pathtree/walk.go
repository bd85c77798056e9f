package pathtree

import (
	"fmt"
	"io/fs"
	"iter"
	"slices"
	"strings"
	"sync"
)

// SkipDir may be returned by a TreeWalker callback to prune a directory.
var SkipDir = fs.SkipDir

// maxSymlinkHops bounds symlink chains followed while resolving a path.
const maxSymlinkHops = 40

// WalkMode selects the order in which Walk yields entries.
type WalkMode int

const (
	// BreadthFirst yields every entry at depth N before any at depth N+1.
	BreadthFirst WalkMode = iota

	// DepthFirst yields a directory's descendants before the directory.
	DepthFirst

	// Shallow yields the direct children of the root only.
	Shallow
)

func (m WalkMode) String() string {
	switch m {
	case DepthFirst:
		return "depth-first"
	case Shallow:
		return "shallow"
	default:
		return "breadth-first"
	}
}

// WalkOptions controls a traversal.
type WalkOptions struct {
	Mode WalkMode

	// FollowSymlinks descends into symlinked directories. Links are always
	// yielded as themselves.
	FollowSymlinks bool

	// Pattern restricts the yielded entries. It is matched against the
	// slash-separated path relative to the root and may use "**".
	// Directories that do not match are still descended.
	Pattern string

	// Ignore prunes entries: matched entries are neither yielded nor descended.
	Ignore []string

	// MaxDepth limits the descent. 0 means unlimited, 1 direct children only.
	MaxDepth int
}

// node is one entry discovered during a walk.
type node struct {
	path  Path
	rel   string // slash-separated, relative to the walk root
	depth int
	kind  EntryKind
	real  Path // symlink-free location, used as the cycle-guard key
	chain *ancestry
}

// ancestry is the list of resolved directory keys from a node up to the
// walk root. A directory is entered only if its key is not on the list.
type ancestry struct {
	key string
	up  *ancestry
}

func (a *ancestry) contains(key string) bool {
	for ; a != nil; a = a.up {
		if a.key == key {
			return true
		}
	}
	return false
}

type walker struct {
	e        *Engine
	root     Path
	opts     WalkOptions
	match    *globMatcher
	ignore   *IgnoreMatcher
	rootReal Path
}

func (e *Engine) newWalker(root Path, opts WalkOptions) (*walker, error) {
	abs, err := e.resolve(root)
	if err != nil {
		return nil, err
	}
	if err := e.requireDir(abs); err != nil {
		return nil, err
	}
	fl := abs.Flavour()
	match, err := newGlobMatcher(fl, opts.Pattern)
	if err != nil {
		return nil, err
	}
	ignore, err := NewIgnoreMatcher(fl, opts.Ignore)
	if err != nil {
		return nil, err
	}
	w := &walker{
		e:      e,
		root:   abs,
		opts:   opts,
		match:  match,
		ignore: ignore,
	}
	resolved, err := e.realPath(abs)
	if err != nil {
		return nil, err
	}
	w.rootReal = resolved
	return w, nil
}

// Walk traverses the tree below root. The root itself is not yielded.
//
// A directory that cannot be listed is reported as an error element and
// the walk goes on with the next one, unless the consumer stops. A setup
// failure (invalid root, missing root, bad pattern) is the only element.
func (e *Engine) Walk(root Path, opts WalkOptions) iter.Seq2[Path, error] {
	return func(yield func(Path, error) bool) {
		w, err := e.newWalker(root, opts)
		if err != nil {
			yield(Path{}, fmt.Errorf("walking %s: %w", root, err))
			return
		}
		e.logger.Debug("walking tree", "root", w.root, "mode", opts.Mode)
		w.run(func(n node, err error) bool { return yield(n.path, err) })
	}
}

// run drives the traversal selected by the walker's mode.
func (w *walker) run(yield func(node, error) bool) {
	start := node{path: w.root, real: w.rootReal, chain: &ancestry{key: w.rootReal.Key()}}
	switch w.opts.Mode {
	case Shallow:
		w.shallow(start, yield)
	case DepthFirst:
		w.depthFirst(start, yield)
	default:
		w.breadthFirst(start, yield)
	}
}

func (w *walker) shallow(root node, yield func(node, error) bool) {
	children, err := w.list(root)
	if err != nil {
		yield(root, err)
		return
	}
	for _, c := range children {
		if w.match.Match(c.rel) && !yield(c, nil) {
			return
		}
	}
}

func (w *walker) breadthFirst(root node, yield func(node, error) bool) {
	queue := []node{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]
		children, err := w.list(dir)
		if err != nil {
			if !yield(dir, err) {
				return
			}
			continue
		}
		for _, c := range children {
			if w.match.Match(c.rel) && !yield(c, nil) {
				return
			}
			ok, err := w.descend(&c)
			if err != nil {
				if !yield(c, err) {
					return
				}
				continue
			}
			if ok {
				queue = append(queue, c)
			}
		}
	}
}

// depthFirst yields post-order and reports whether the walk should go on.
func (w *walker) depthFirst(dir node, yield func(node, error) bool) bool {
	children, err := w.list(dir)
	if err != nil {
		return yield(dir, err)
	}
	for _, c := range children {
		ok, err := w.descend(&c)
		if err != nil {
			if !yield(c, err) {
				return false
			}
		} else if ok && !w.depthFirst(c, yield) {
			return false
		}
		if w.match.Match(c.rel) && !yield(c, nil) {
			return false
		}
	}
	return true
}

// list returns the children of dir that survive the ignore patterns,
// ordered by name.
func (w *walker) list(dir node) ([]node, error) {
	entries, err := w.e.fs.ReadDir(dir.path)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir.path, err)
	}
	slices.SortFunc(entries, func(a, b DirEntry) int { return strings.Compare(a.Name, b.Name) })

	out := make([]node, 0, len(entries))
	for _, ent := range entries {
		rel := ent.Name
		if dir.rel != "" {
			rel = dir.rel + "/" + ent.Name
		}
		if w.ignore.Match(rel) {
			continue
		}
		out = append(out, node{
			path:  dir.path.Join(ent.Name),
			rel:   rel,
			depth: dir.depth + 1,
			kind:  ent.Kind,
			real:  dir.real.Join(ent.Name),
			chain: dir.chain,
		})
	}
	return out, nil
}

// descend decides whether n is a directory the walk enters. A directory
// whose resolved location is already one of n's ancestors is not entered,
// so followed links cannot loop; other directories reached through
// several links are entered once per route.
func (w *walker) descend(n *node) (bool, error) {
	if w.opts.MaxDepth > 0 && n.depth >= w.opts.MaxDepth {
		return false, nil
	}
	switch n.kind {
	case KindDir:
		key := n.real.Key()
		if n.chain.contains(key) {
			return false, nil
		}
		n.chain = &ancestry{key: key, up: n.chain}
		return true, nil
	case KindSymlink:
		if !w.opts.FollowSymlinks {
			return false, nil
		}
	default:
		return false, nil
	}

	isDir, err := w.e.fs.IsDir(n.path)
	if err != nil {
		return false, fmt.Errorf("inspecting %s: %w", n.path, err)
	}
	if !isDir {
		return false, nil
	}
	resolved, err := w.e.realPath(n.path)
	if err != nil {
		return false, err
	}
	key := resolved.Key()
	if n.chain.contains(key) {
		w.e.logger.Warn("not descending into symlink, target is an ancestor", "path", n.path, "target", resolved)
		return false, nil
	}
	n.chain = &ancestry{key: key, up: n.chain}
	n.real = resolved
	return true, nil
}

// realPath resolves every symlink along p. The result is absolute and
// normalized; components that do not exist are kept as they are.
func (e *Engine) realPath(p Path) (Path, error) {
	hops := 0
	return e.realPathHops(p, &hops)
}

func (e *Engine) realPathHops(p Path, hops *int) (Path, error) {
	var cur Path
	for seg := range p.Normalize().Segments() {
		if cur.IsZero() {
			cur = p.with(seg)
			continue
		}
		next := cur.Join(seg)
		link, err := e.fs.IsSymlink(next)
		if err != nil {
			return Path{}, fmt.Errorf("inspecting %s: %w", next, err)
		}
		if !link {
			cur = next
			continue
		}
		*hops++
		if *hops > maxSymlinkHops {
			return Path{}, fmt.Errorf("resolving %s: too many levels of symbolic links", p)
		}
		target, err := e.fs.ReadSymlink(next)
		if err != nil {
			return Path{}, fmt.Errorf("reading link %s: %w", next, err)
		}
		target = p.with(target.String())
		if !target.IsAbs() {
			target = cur.JoinPath(target)
		}
		cur, err = e.realPathHops(target, hops)
		if err != nil {
			return Path{}, err
		}
	}
	return cur, nil
}

// Glob returns the entries below root matching pattern, breadth-first.
// The first error aborts the search.
func (e *Engine) Glob(root Path, pattern string) ([]Path, error) {
	var out []Path
	for p, err := range e.Walk(root, WalkOptions{Mode: BreadthFirst, Pattern: pattern}) {
		if err != nil {
			return out, fmt.Errorf("glob %q: %w", pattern, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Find is an unordered search for entries below root matching
// opts.Pattern. When the filesystem implements TreeWalker and no depth
// limit is set, the tree is enumerated through it, possibly in parallel.
// Results are sorted with Path.Compare; opts.Mode is ignored.
func (e *Engine) Find(root Path, opts WalkOptions) ([]Path, error) {
	tw, ok := e.fs.(TreeWalker)
	if !ok || opts.MaxDepth > 0 {
		var out []Path
		opts.Mode = BreadthFirst
		for p, err := range e.Walk(root, opts) {
			if err != nil {
				return nil, fmt.Errorf("find: %w", err)
			}
			out = append(out, p)
		}
		slices.SortFunc(out, Path.Compare)
		return out, nil
	}

	w, err := e.newWalker(root, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	e.logger.Debug("finding", "root", w.root, "pattern", opts.Pattern)

	var (
		mu  sync.Mutex
		out []Path
	)
	err = tw.WalkTree(w.root, opts.FollowSymlinks, func(p Path, kind EntryKind) error {
		rel, err := p.RelativeTo(w.root)
		if err != nil {
			return err
		}
		slash := toSlash(rel.Flavour(), rel.String())
		if w.ignoredUnder(slash) {
			if kind == KindDir {
				return SkipDir
			}
			return nil
		}
		if !w.match.Match(slash) {
			return nil
		}
		mu.Lock()
		out = append(out, p)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", w.root, err)
	}
	slices.SortFunc(out, Path.Compare)
	return out, nil
}

// ignoredUnder reports whether rel or any of its ancestors is ignored.
func (w *walker) ignoredUnder(rel string) bool {
	for i := 0; i <= len(rel); i++ {
		if (i == len(rel) || rel[i] == '/') && w.ignore.Match(rel[:i]) {
			return true
		}
	}
	return false
}
