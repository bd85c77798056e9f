package pathtree

import "fmt"

// SearchFileUp looks for a regular file called name in start and then in
// each of its ancestors. It stops at the root, or earlier if an ascent
// leaves the path unchanged, and returns None when nothing was found.
func (e *Engine) SearchFileUp(start Path, name string) (Option[Path], error) {
	if name == "" {
		return None[Path](), invalidPath(New(name), "empty file name")
	}
	cur, err := e.resolve(start)
	if err != nil {
		return None[Path](), err
	}
	for {
		candidate := cur.Join(name)
		ok, err := e.fs.IsFile(candidate)
		if err != nil {
			return None[Path](), fmt.Errorf("searching %s: %w", candidate, err)
		}
		if ok {
			e.logger.Debug("found file", "name", name, "path", candidate)
			return Some(candidate), nil
		}
		if cur.IsRoot() {
			return None[Path](), nil
		}
		parent := cur.Dir()
		if parent.Equal(cur) {
			return None[Path](), nil
		}
		cur = parent
	}
}
