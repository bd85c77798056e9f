package pathtree_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathkit/internal/pathtree"
	"pathkit/internal/testutil"
)

func posix(s string) pathtree.Path { return pathtree.NewIn(pathtree.Posix, s) }
func win(s string) pathtree.Path   { return pathtree.NewIn(pathtree.Windows, s) }

func segments(p pathtree.Path) []string {
	return slices.Collect(p.Segments())
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name     string
		fl       pathtree.Flavour
		segments []string
		want     string
	}{
		{"joins with separator", pathtree.Posix, []string{"a", "b", "c"}, "a/b/c"},
		{"collapses separators and dots", pathtree.Posix, []string{"a//", "./b/", "c/."}, "a/b/c"},
		{"keeps dot-dot", pathtree.Posix, []string{"a", "..", "b"}, "a/../b"},
		{"skips empty segments", pathtree.Posix, []string{"", "/usr", "", "lib"}, "/usr/lib"},
		{"no segments is zero", pathtree.Posix, nil, ""},
		{"windows separator", pathtree.Windows, []string{`C:\`, "Users", "me"}, `C:\Users\me`},
		{"windows accepts slashes", pathtree.Windows, []string{"C:/x", "y/z"}, `C:\x\y\z`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pathtree.BuildIn(tt.fl, tt.segments...).String())
		})
	}
}

func TestNew_StoresTextAsGiven(t *testing.T) {
	p := posix("a//b/./c/")
	assert.Equal(t, "a//b/./c/", p.String())
	assert.Equal(t, "a/b/c", p.Join().String())
}

func TestZeroPath(t *testing.T) {
	var p pathtree.Path
	assert.True(t, p.IsZero())
	assert.False(t, p.IsValid())
	assert.False(t, p.IsAbs())
	assert.False(t, p.IsRoot())
	assert.Equal(t, pathtree.Native, p.Flavour())
	assert.Empty(t, segments(p))
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		p    pathtree.Path
		want bool
	}{
		{posix("/usr/lib"), true},
		{posix("relative"), true},
		{posix(""), false},
		{posix("a\x00b"), false},
		{win(`C:\ok\file.txt`), true},
		{win(`C:\bad<name`), false},
		{win(`C:\a:b`), false},
		{win(`dir\what?`), false},
		{win(`\\host\share\x`), true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.IsValid(), "IsValid(%q)", tt.p)
	}
}

func TestIsAbsAndIsRooted(t *testing.T) {
	tests := []struct {
		p      pathtree.Path
		abs    bool
		rooted bool
	}{
		{posix("/a"), true, true},
		{posix("a/b"), false, false},
		{win(`C:\a`), true, true},
		{win(`\a`), false, true},
		{win(`C:a`), false, false},
		{win(`\\host\share`), true, true},
		{win(`a\b`), false, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.abs, tt.p.IsAbs(), "IsAbs(%q)", tt.p)
		assert.Equal(t, tt.rooted, tt.p.IsRooted(), "IsRooted(%q)", tt.p)
	}
}

func TestIsRoot(t *testing.T) {
	tests := []struct {
		p    pathtree.Path
		want bool
	}{
		{posix("/"), true},
		{posix("//"), true},
		{posix("/a/.."), true},
		{posix("/a"), false},
		{posix("."), false},
		{win(`C:\`), true},
		{win(`c:/`), true},
		{win(`C:\Windows`), false},
		{win(`C:`), false},
		{win(`\\host\share`), true},
		{win(`\\host\share\`), true},
		{win(`\\host\share\dir`), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.IsRoot(), "IsRoot(%q)", tt.p)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   pathtree.Path
		want string
	}{
		{posix("/a/b/../c"), "/a/c"},
		{posix("a/./b//c/"), "a/b/c"},
		{posix("../a/.."), ".."},
		{posix("../../x"), "../../x"},
		{posix("a/.."), "."},
		{posix("/.."), "/"},
		{posix("/../a"), "/a"},
		{win(`C:/a/b/../c`), `C:\a\c`},
		{win(`C:\..`), `C:\`},
		{win(`\\host\share\a\..\b`), `\\host\share\b`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Normalize().String(), "Normalize(%q)", tt.in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []pathtree.Path{
		posix("/a/b/../c/./d//"), posix("../../a/../b"), posix("."), posix("a/../.."),
		posix("/"), posix("x/y/z/../../.."), win(`C:\a\..\..\b`), win(`\\h\s\x\.\y`),
		win(`a\..\..\c`), win(`C:rel\..\x`),
	}
	for _, p := range inputs {
		once := p.Normalize()
		assert.Equal(t, once.String(), once.Normalize().String(), "Normalize not idempotent for %q", p)
	}
}

func TestExpandHome(t *testing.T) {
	env := testutil.NewStubEnv("/home/u", "/work")

	tests := []struct {
		in   string
		want string
	}{
		{"~", "/home/u"},
		{"~/notes.txt", "/home/u/notes.txt"},
		{"~/a//b", "/home/u/a/b"},
		{"~user/x", "~user/x"},
		{"a/~", "a/~"},
		{"/abs", "/abs"},
	}
	for _, tt := range tests {
		got, err := posix(tt.in).ExpandHome(env)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "ExpandHome(%q)", tt.in)
	}
}

func TestExpandHome_ErrorOnlyWithShorthand(t *testing.T) {
	env := testutil.NewStubEnv("", "/work")

	_, err := posix("~/x").ExpandHome(env)
	assert.Error(t, err)

	got, err := posix("plain").ExpandHome(env)
	require.NoError(t, err)
	assert.Equal(t, "plain", got.String())
}

func TestToAbsolute(t *testing.T) {
	env := testutil.NewStubEnv("/home/u", "/work/dir")

	tests := []struct {
		in   pathtree.Path
		want string
	}{
		{posix("x/../y"), "/work/dir/y"},
		{posix("~/d"), "/home/u/d"},
		{posix("/already/./abs"), "/already/abs"},
		{posix(".."), "/work"},
	}
	for _, tt := range tests {
		got, err := tt.in.ToAbsolute(env)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "ToAbsolute(%q)", tt.in)
	}
}

func TestToAbsolute_Windows(t *testing.T) {
	env := testutil.NewStubEnv(`C:\Users\me`, `C:\work`)

	tests := []struct {
		in   string
		want string
	}{
		{`sub\file`, `C:\work\sub\file`},
		{`\rooted`, `C:\rooted`},
		{`D:rel`, `D:\rel`},
		{`~\docs`, `C:\Users\me\docs`},
		{`\\srv\share\x\..`, `\\srv\share\`},
	}
	for _, tt := range tests {
		got, err := win(tt.in).ToAbsolute(env)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.String(), "ToAbsolute(%q)", tt.in)
	}
}

func TestToAbsolute_Failures(t *testing.T) {
	env := testutil.NewStubEnv("/home/u", "/work")
	env.WdErr = errors.New("cwd gone")

	_, err := posix("rel").ToAbsolute(env)
	assert.Error(t, err)

	_, err = posix("").ToAbsolute(env)
	assert.ErrorIs(t, err, pathtree.ErrInvalidPath)

	got, err := posix("/abs").ToAbsolute(env)
	require.NoError(t, err, "absolute paths do not need the working directory")
	assert.Equal(t, "/abs", got.String())
}

func TestParent(t *testing.T) {
	env := testutil.NewStubEnv("/home/u", "/work")

	got, err := posix("/tmp/parent/child").Parent(env)
	require.NoError(t, err)
	assert.True(t, got.Equal(posix("/tmp/parent")))

	got, err = posix("/").Parent(env)
	require.NoError(t, err)
	assert.True(t, got.Equal(posix("/")))

	got, err = posix("a/b").Parent(env)
	require.NoError(t, err)
	assert.Equal(t, "/work/a", got.String())

	got, err = posix("/a/b/../c/").Parent(env)
	require.NoError(t, err)
	assert.Equal(t, "/a", got.String())

	got, err = win(`C:\a`).Parent(env)
	require.NoError(t, err)
	assert.Equal(t, `C:\`, got.String())

	got, err = win(`\\host\share`).Parent(env)
	require.NoError(t, err)
	assert.Equal(t, `\\host\share`, got.String())
}

func TestParent_RootIsFixedPoint(t *testing.T) {
	for _, root := range []pathtree.Path{posix("/"), win(`C:\`), win(`\\host\share\`)} {
		got, err := root.Parent(nil)
		require.NoError(t, err)
		assert.True(t, got.IsRoot(), "Parent(%q) = %q", root, got)
		again, err := got.Parent(nil)
		require.NoError(t, err)
		assert.True(t, again.Equal(got))
	}
}

func TestDir(t *testing.T) {
	tests := []struct {
		in   pathtree.Path
		want string
	}{
		{posix("a/b"), "a"},
		{posix("a"), "."},
		{posix("."), "."},
		{posix("../.."), "."},
		{posix("a/.."), "."},
		{posix("/a"), "/"},
		{posix("/"), "/"},
		{posix("/a/b/"), "/a"},
		{win(`C:\a\b`), `C:\a`},
		{win(`C:rel`), `C:.`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.Dir().String(), "Dir(%q)", tt.in)
	}
}

func TestRelativeTo(t *testing.T) {
	tests := []struct {
		target, base pathtree.Path
		want         string
	}{
		{posix("/a/b/c"), posix("/a"), "b/c"},
		{posix("/a"), posix("/a/b/c"), "../.."},
		{posix("/a/x"), posix("/a/y/z"), "../../x"},
		{posix("/a/b"), posix("/a/b/"), "."},
		{posix("/"), posix("/"), "."},
		{win(`C:\Users\Me\docs`), win(`c:\users\me`), "docs"},
	}
	for _, tt := range tests {
		got, err := tt.target.RelativeTo(tt.base)
		require.NoError(t, err, "RelativeTo(%q, %q)", tt.target, tt.base)
		assert.Equal(t, tt.want, got.String(), "RelativeTo(%q, %q)", tt.target, tt.base)
	}
}

func TestRelativeTo_Invalid(t *testing.T) {
	tests := []struct {
		name         string
		target, base pathtree.Path
	}{
		{"relative base", posix("/a/b"), posix("a")},
		{"empty base", posix("/a/b"), posix("")},
		{"invalid target", posix("a\x00b"), posix("/a")},
		{"rooted target without a volume", win(`\x`), win(`C:\`)},
		{"different volumes", win(`D:\x`), win(`C:\`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.target.RelativeTo(tt.base)
			assert.ErrorIs(t, err, pathtree.ErrInvalidPath)
		})
	}
}

func TestRelativeTo_RelativeTargetIsUnchanged(t *testing.T) {
	tests := []struct {
		target, base pathtree.Path
	}{
		{posix("b/../c"), posix("/a")},
		{posix("../x"), posix("/a")},
		{win(`sub\f.txt`), win(`C:\a`)},
	}
	for _, tt := range tests {
		got, err := tt.target.RelativeTo(tt.base)
		require.NoError(t, err)
		assert.Equal(t, tt.target.String(), got.String())
	}
}

func TestRelativeTo_RoundTrip(t *testing.T) {
	cases := []struct{ p, base pathtree.Path }{
		{posix("/a/b/c"), posix("/a")},
		{posix("/a/b/c"), posix("/")},
		{posix("/a/./b//c"), posix("/a/b")},
		{posix("/x"), posix("/x")},
		{win(`C:\one\two`), win(`C:\`)},
		{win(`\\h\s\dir\f.txt`), win(`\\h\s`)},
	}
	for _, c := range cases {
		rel, err := c.p.RelativeTo(c.base)
		require.NoError(t, err)
		assert.True(t, c.base.JoinPath(rel).Normalize().Equal(c.p.Normalize()),
			"%q joined with %q", c.base, rel)
	}

	// Bases that are not a prefix still round-trip once normalized.
	rel, err := posix("/a/x").RelativeTo(posix("/a/y/z"))
	require.NoError(t, err)
	assert.Equal(t, "/a/x", posix("/a/y/z").JoinPath(rel).Normalize().String())
}

func TestHasPrefix(t *testing.T) {
	assert.True(t, posix("/a/b/c").HasPrefix(posix("/a")))
	assert.True(t, posix("/a/b").HasPrefix(posix("/a/b/")))
	assert.True(t, posix("/a").HasPrefix(posix("/")))
	assert.False(t, posix("/ab").HasPrefix(posix("/a")))
	assert.False(t, posix("a/b").HasPrefix(posix("/a")))
	assert.True(t, posix("a/b").HasPrefix(posix(".")))
	assert.True(t, win(`C:\Data\X`).HasPrefix(win(`c:\data`)))
	assert.False(t, win(`D:\Data`).HasPrefix(win(`C:\Data`)))
}

func TestSegments(t *testing.T) {
	assert.Equal(t, []string{"/", "a", "b"}, segments(posix("/a/b")))
	assert.Equal(t, []string{"a", "b"}, segments(posix("a//b/")))
	assert.Equal(t, []string{"/"}, segments(posix("/")))
	assert.Equal(t, []string{"a", "..", "b"}, segments(posix("a/../b")))
	assert.Equal(t, []string{`C:\`, "x", "y"}, segments(win(`C:/x/y`)))
	assert.Equal(t, []string{`\\h\s\`, "x"}, segments(win(`\\h\s\x`)))
	assert.Equal(t, []string{"C:", "rel"}, segments(win(`C:rel`)))
}

func TestSegments_Restartable(t *testing.T) {
	seq := posix("/a/b/c").Segments()
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	for s := range seq {
		assert.Equal(t, "/", s)
		break
	}
}

func TestExtensions(t *testing.T) {
	tests := []struct {
		in       pathtree.Path
		base     string
		ext      string
		stripped string
	}{
		{posix("a/b.txt"), "b.txt", ".txt", "a/b"},
		{posix("a.tar.gz"), "a.tar.gz", ".gz", "a.tar"},
		{posix(".profile"), ".profile", "", ".profile"},
		{posix("dir.d/file"), "file", "", "dir.d/file"},
		{posix("/"), "/", "", "/"},
		{posix(".."), "..", "", ".."},
		{posix("x/name./"), "name.", ".", "x/name"},
		{win(`C:\docs\report.PDF`), "report.PDF", ".PDF", `C:\docs\report`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.base, tt.in.Base(), "Base(%q)", tt.in)
		assert.Equal(t, tt.ext, tt.in.Ext(), "Ext(%q)", tt.in)
		assert.Equal(t, tt.stripped, tt.in.StripExt().String(), "StripExt(%q)", tt.in)
	}
}

func TestWithExt_Appends(t *testing.T) {
	assert.Equal(t, "a.tar.gz", posix("a.tar").WithExt("gz").String())
	assert.Equal(t, "dir/a.md", posix("dir/a").WithExt(".md").String())
	assert.Equal(t, "a", posix("a").WithExt("").String())
	assert.Equal(t, "", posix("").WithExt("txt").String())
}

func TestEquality(t *testing.T) {
	assert.False(t, posix("/A").Equal(posix("/a")))
	assert.True(t, pathtree.NewIn(pathtree.Darwin, "/Users/Me").Equal(pathtree.NewIn(pathtree.Darwin, "/users/me")))
	assert.True(t, win(`C:\Data\File.TXT`).Equal(win(`c:/data/file.txt`)))
	assert.False(t, posix("a/b").Equal(posix("a//b")), "equality does not normalize")
	assert.False(t, posix("/x").Equal(win("/x")), "flavours never compare equal")
}

func TestKey_AgreesWithEqual(t *testing.T) {
	a := pathtree.NewIn(pathtree.Darwin, "/Users/Me/Notes.md")
	b := pathtree.NewIn(pathtree.Darwin, "/users/ME/notes.MD")
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())

	seen := map[string]bool{win(`C:\X`).Key(): true}
	assert.True(t, seen[win(`c:/x`).Key()])
}

func TestOrdering_TotalOrder(t *testing.T) {
	paths := []pathtree.Path{
		posix("/a"), posix("/a/b"), posix("/B"), posix("/b"), posix("a"), posix(""),
		win(`C:\a`), win(`c:\A`), win(`D:\`), pathtree.NewIn(pathtree.Darwin, "/x"),
		pathtree.NewIn(pathtree.Darwin, "/X"),
	}
	for _, a := range paths {
		for _, b := range paths {
			assert.Equal(t, a.Equal(b), !a.Less(b) && !b.Less(a), "equality vs order for %q, %q", a, b)
			assert.Equal(t, a.Compare(b), -b.Compare(a), "antisymmetry for %q, %q", a, b)
			for _, c := range paths {
				if a.Less(b) && b.Less(c) {
					assert.True(t, a.Less(c), "transitivity %q < %q < %q", a, b, c)
				}
			}
		}
	}
}

func TestSort(t *testing.T) {
	ps := []pathtree.Path{posix("/c"), posix("/a/b"), posix("/a")}
	slices.SortFunc(ps, pathtree.Path.Compare)
	assert.Equal(t, []string{"/a", "/a/b", "/c"}, []string{ps[0].String(), ps[1].String(), ps[2].String()})
}

func TestImmutability(t *testing.T) {
	p := posix("/a/b.txt")
	_ = p.Join("c")
	_ = p.WithExt("gz")
	_ = p.Normalize()
	_ = p.Dir()
	_, _ = p.ToAbsolute(testutil.NewStubEnv("/h", "/w"))
	assert.Equal(t, "/a/b.txt", p.String())
}

func TestOption(t *testing.T) {
	some := pathtree.Some(posix("/x"))
	v, ok := some.Get()
	assert.True(t, ok)
	assert.True(t, some.IsSome())
	assert.Equal(t, "/x", v.String())

	none := pathtree.None[pathtree.Path]()
	assert.False(t, none.IsSome())
	assert.Equal(t, "/fallback", none.OrElse(posix("/fallback")).String())
}
