package pathtree

import (
	"fmt"
	"iter"
	"strings"
)

// Path is an immutable handle on a filesystem location.
//
// The text is stored exactly as given to New; normalization only happens in
// Build, Join and the methods that document it. Every method returns a new
// Path and never modifies the receiver, so a Path can be shared freely
// between goroutines.
//
// Compare paths with Equal or Compare rather than ==: equality follows the
// case rule of the path's Flavour.
type Path struct {
	text string
	fl   Flavour
}

// New returns the native-flavour path for text, unmodified.
func New(text string) Path {
	return Path{text: text, fl: Native}
}

// NewIn returns a path for text interpreted by the given flavour.
func NewIn(fl Flavour, text string) Path {
	if fl == nil {
		fl = Native
	}
	return Path{text: text, fl: fl}
}

// Build joins the non-empty segments with the native separator and tidies
// the result (redundant separators and "." removed, ".." kept).
func Build(segments ...string) Path {
	return BuildIn(Native, segments...)
}

// BuildIn is Build for an explicit flavour.
func BuildIn(fl Flavour, segments ...string) Path {
	if fl == nil {
		fl = Native
	}
	return Path{text: join(fl, segments), fl: fl}
}

func (p Path) flavour() Flavour {
	if p.fl == nil {
		return Native
	}
	return p.fl
}

func (p Path) with(text string) Path {
	return Path{text: text, fl: p.flavour()}
}

// String returns the path text as stored.
func (p Path) String() string { return p.text }

// Flavour returns the syntax rules the path is interpreted with.
func (p Path) Flavour() Flavour { return p.flavour() }

// IsZero reports whether p is the empty path.
func (p Path) IsZero() bool { return p.text == "" }

// IsValid reports whether p is non-empty and syntactically valid.
func (p Path) IsValid() bool {
	return p.text != "" && p.flavour().Valid(p.text)
}

// IsAbs reports whether p is absolute. No filesystem access.
func (p Path) IsAbs() bool {
	return p.text != "" && p.flavour().IsAbs(p.text)
}

// IsRooted reports whether p starts at a root separator, with or without a
// volume. On Windows `\foo` is rooted but not absolute.
func (p Path) IsRooted() bool {
	f := p.flavour()
	vol := f.VolumeName(p.text)
	if len(vol) > 2 {
		return true
	}
	rest := p.text[len(vol):]
	return rest != "" && f.IsSeparator(rest[0])
}

// IsRoot reports whether p names the top of its namespace: "/" on POSIX,
// a drive root or UNC share root on Windows.
func (p Path) IsRoot() bool {
	if !p.IsValid() {
		return false
	}
	f := p.flavour()
	n := clean(f, p.text, true)
	if !f.IsAbs(n) {
		return false
	}
	rest := n[len(f.VolumeName(n)):]
	return rest == "" || rest == string(f.Separator())
}

// Normalize collapses redundant separators and "." segments and resolves
// ".." against the preceding segment. A ".." with nothing left to consume is
// kept in relative paths and dropped at the root of absolute ones.
func (p Path) Normalize() Path {
	return p.with(clean(p.flavour(), p.text, true))
}

// ExpandHome replaces a leading "~" segment with the home directory
// reported by env. Paths without the shorthand are returned unchanged.
func (p Path) ExpandHome(env Env) (Path, error) {
	f := p.flavour()
	t := p.text
	if t == "" || t[0] != '~' || len(t) > 1 && !f.IsSeparator(t[1]) {
		return p, nil
	}
	home, err := envOrProcess(env).HomeDir()
	if err != nil {
		return p, fmt.Errorf("expanding %q: %w", t, err)
	}
	return p.with(join(f, []string{home, t[1:]})), nil
}

// ToAbsolute expands the home shorthand, anchors relative paths on the
// working directory reported by env and normalizes the result.
func (p Path) ToAbsolute(env Env) (Path, error) {
	if p.text == "" {
		return p, invalidPath(p, "empty path")
	}
	e := envOrProcess(env)
	x, err := p.ExpandHome(e)
	if err != nil {
		return p, err
	}
	f := p.flavour()
	if f.IsAbs(x.text) {
		return x.Normalize(), nil
	}

	wd, err := e.Getwd()
	if err != nil {
		return p, fmt.Errorf("resolving %q: working directory: %w", p.text, err)
	}
	sep := string(f.Separator())
	if vol := f.VolumeName(x.text); vol != "" || x.IsRooted() {
		// Drive-relative ("C:foo") and rooted ("\foo") paths are anchored on a volume root.
		rest := x.text[len(vol):]
		if vol == "" {
			vol = f.VolumeName(wd)
		}
		return p.with(clean(f, vol+sep+rest, true)), nil
	}
	return p.with(clean(f, wd+sep+x.text, true)), nil
}

// Join appends segments and tidies the result. It neither expands the home
// shorthand nor makes the path absolute.
func (p Path) Join(segments ...string) Path {
	all := make([]string, 0, len(segments)+1)
	all = append(all, p.text)
	all = append(all, segments...)
	return p.with(join(p.flavour(), all))
}

// JoinPath is Join for Path segments.
func (p Path) JoinPath(others ...Path) Path {
	segments := make([]string, len(others))
	for i, o := range others {
		segments[i] = o.text
	}
	return p.Join(segments...)
}

// Parent returns the directory containing p. Relative paths are made
// absolute against env first; the parent of a root is the root itself.
func (p Path) Parent(env Env) (Path, error) {
	if p.text == "" {
		return p, invalidPath(p, "empty path")
	}
	if p.IsAbs() {
		return p.Normalize().Dir(), nil
	}
	abs, err := p.ToAbsolute(env)
	if err != nil {
		return p, err
	}
	return abs.Dir(), nil
}

// Dir strips the last segment lexically, without consulting the working
// directory. Roots are fixed points. For relative paths, stripping the only
// segment or a trailing ".." yields ".".
func (p Path) Dir() Path {
	if p.text == "" {
		return p
	}
	f := p.flavour()
	sep := f.Separator()
	t := clean(f, p.text, false)
	vol := f.VolumeName(t)
	rest := t[len(vol):]
	if rest == "" {
		return p.with(t)
	}
	i := strings.LastIndexByte(rest, sep)
	if rest[0] == sep {
		if i == 0 {
			return p.with(vol + string(sep))
		}
		return p.with(vol + rest[:i])
	}
	if i < 0 || rest[i+1:] == ".." {
		return p.with(vol + ".")
	}
	return p.with(vol + rest[:i])
}

// RelativeTo returns the lexical path leading from base to p. base must be
// valid and absolute; the result may begin with "..". A p that is already
// relative is returned unchanged. On Windows a rooted p without a volume
// is rejected, since it cannot be placed relative to base's volume.
func (p Path) RelativeTo(base Path) (Path, error) {
	if !base.IsValid() || !base.IsAbs() {
		return Path{}, invalidPath(base, "base must be a valid absolute path")
	}
	if !p.IsValid() {
		return Path{}, invalidPath(p, "invalid target")
	}
	if !p.IsAbs() {
		if p.IsRooted() {
			return Path{}, invalidPath(p, "target has a root but no volume")
		}
		return p, nil
	}
	f := p.flavour()
	t := clean(f, p.text, true)
	b := clean(f, base.text, true)
	tv, bv := f.VolumeName(t), f.VolumeName(b)
	if f.Fold(tv) != f.Fold(bv) {
		return Path{}, invalidPath(p, fmt.Sprintf("not on the volume of %q", base.text))
	}

	ts := components(f, t[len(tv):])
	bs := components(f, b[len(bv):])
	i := 0
	for i < len(ts) && i < len(bs) && f.Fold(ts[i]) == f.Fold(bs[i]) {
		i++
	}
	parts := make([]string, 0, len(bs)-i+len(ts)-i)
	for range bs[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, ts[i:]...)
	if len(parts) == 0 {
		return p.with("."), nil
	}
	return p.with(strings.Join(parts, string(f.Separator()))), nil
}

// HasPrefix reports whether base is p or one of its ancestors, comparing
// normalized components under the flavour's case rule.
func (p Path) HasPrefix(base Path) bool {
	if p.text == "" || base.text == "" {
		return false
	}
	f := p.flavour()
	t := clean(f, p.text, true)
	b := clean(f, base.text, true)
	tv, bv := f.VolumeName(t), f.VolumeName(b)
	if f.Fold(tv) != f.Fold(bv) || p.IsRooted() != base.IsRooted() {
		return false
	}
	ts := components(f, t[len(tv):])
	bs := components(f, b[len(bv):])
	if len(bs) == 1 && bs[0] == "." {
		bs = nil
	}
	if len(bs) > len(ts) {
		return false
	}
	for i := range bs {
		if f.Fold(bs[i]) != f.Fold(ts[i]) {
			return false
		}
	}
	return true
}

// Segments yields the anchor (volume and root separator) when present,
// followed by each component of the tidied path. The sequence can be
// ranged over any number of times.
func (p Path) Segments() iter.Seq[string] {
	return func(yield func(string) bool) {
		if p.text == "" {
			return
		}
		f := p.flavour()
		t := clean(f, p.text, false)
		vol := f.VolumeName(t)
		rest := t[len(vol):]
		anchor := vol
		if rest != "" && rest[0] == f.Separator() {
			anchor += string(f.Separator())
			rest = rest[1:]
		}
		if anchor != "" && !yield(anchor) {
			return
		}
		for _, c := range components(f, rest) {
			if !yield(c) {
				return
			}
		}
	}
}

// Base returns the last component. The base of a root is the root.
func (p Path) Base() string {
	if p.text == "" {
		return ""
	}
	f := p.flavour()
	t := clean(f, p.text, false)
	vol := f.VolumeName(t)
	rest := t[len(vol):]
	if rest == "" || rest == string(f.Separator()) {
		return t
	}
	return rest[strings.LastIndexByte(rest, f.Separator())+1:]
}

// Ext returns the suffix of the last component starting at its final dot,
// or "" if there is none. A leading dot alone (".profile") is not an extension.
func (p Path) Ext() string {
	name := p.Base()
	if name == "." || name == ".." {
		return ""
	}
	i := strings.LastIndexByte(name, '.')
	if i <= 0 {
		return ""
	}
	return name[i:]
}

// StripExt removes Ext from the last component.
func (p Path) StripExt() Path {
	ext := p.Ext()
	if ext == "" {
		return p
	}
	return p.with(strings.TrimSuffix(clean(p.flavour(), p.text, false), ext))
}

// WithExt appends ext to the last component. An existing extension is kept:
// "a.tar" with "gz" becomes "a.tar.gz".
func (p Path) WithExt(ext string) Path {
	if ext == "" || p.text == "" {
		return p
	}
	if ext[0] != '.' {
		ext = "." + ext
	}
	return p.with(clean(p.flavour(), p.text, false) + ext)
}

// Key returns the text in the form used for equality, suitable as a map key.
// Keys are only comparable between paths of the same flavour.
func (p Path) Key() string {
	return p.flavour().Fold(p.text)
}

// Compare orders paths by their folded text. Paths of different flavours
// order by flavour name and are never equal.
func (p Path) Compare(o Path) int {
	pf, of := p.flavour(), o.flavour()
	if pf != of {
		return strings.Compare(pf.String(), of.String())
	}
	return strings.Compare(pf.Fold(p.text), pf.Fold(o.text))
}

func (p Path) Equal(o Path) bool { return p.Compare(o) == 0 }
func (p Path) Less(o Path) bool  { return p.Compare(o) < 0 }

func join(f Flavour, segments []string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return clean(f, strings.Join(parts, string(f.Separator())), false)
}

// clean is filepath.Clean generalised over a Flavour. With resolveDotDot
// unset it only tidies: ".." segments survive untouched.
func clean(f Flavour, text string, resolveDotDot bool) string {
	if text == "" {
		return ""
	}
	sep := f.Separator()
	vol := f.VolumeName(text)
	rest := text[len(vol):]
	vol = toSeparator(f, vol)
	if rest == "" {
		if len(vol) > 2 {
			return vol
		}
		return vol + "."
	}

	n := len(rest)
	rooted := f.IsSeparator(rest[0])
	buf := make([]byte, 0, n+1)
	r, dotdot := 0, 0
	if rooted {
		buf = append(buf, sep)
		r, dotdot = 1, 1
	}
	for r < n {
		switch {
		case f.IsSeparator(rest[r]):
			r++
		case rest[r] == '.' && (r+1 == n || f.IsSeparator(rest[r+1])):
			r++
		case resolveDotDot && rest[r] == '.' && r+1 < n && rest[r+1] == '.' && (r+2 == n || f.IsSeparator(rest[r+2])):
			r += 2
			switch {
			case len(buf) > dotdot:
				w := len(buf) - 1
				for w > dotdot && buf[w] != sep {
					w--
				}
				buf = buf[:w]
			case !rooted:
				if len(buf) > 0 {
					buf = append(buf, sep)
				}
				buf = append(buf, '.', '.')
				dotdot = len(buf)
			}
		default:
			if rooted && len(buf) != 1 || !rooted && len(buf) != 0 {
				buf = append(buf, sep)
			}
			for ; r < n && !f.IsSeparator(rest[r]); r++ {
				buf = append(buf, rest[r])
			}
		}
	}
	if len(buf) == 0 {
		buf = append(buf, '.')
	}
	return vol + string(buf)
}

func toSeparator(f Flavour, s string) string {
	sep := f.Separator()
	b := []byte(s)
	for i := range b {
		if f.IsSeparator(b[i]) {
			b[i] = sep
		}
	}
	return string(b)
}

// components splits a volume-less text on separators, dropping empty parts.
func components(f Flavour, text string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || f.IsSeparator(text[i]) {
			if i > start {
				out = append(out, text[start:i])
			}
			start = i + 1
		}
	}
	return out
}
