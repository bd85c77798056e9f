package pathtree_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pathkit/internal/pathtree"
)

func assertFile(t *testing.T, fsys interface {
	ReadFile(string) ([]byte, bool)
}, path, want string) {
	t.Helper()
	got, ok := fsys.ReadFile(path)
	if assert.True(t, ok, "%s should be a file", path) {
		assert.Equal(t, want, string(got), "content of %s", path)
	}
}

func TestCopyTo_Directory(t *testing.T) {
	e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
	addSampleTree(fsys)

	got, err := e.CopyTo(posix("d1"), posix("d1-cpy"))
	require.NoError(t, err)
	assert.Equal(t, "/root/d1-cpy", got.String())

	assertFile(t, fsys, "/root/d1-cpy/a.py", "print('a')")
	assertFile(t, fsys, "/root/d1-cpy/f1.txt", "one")
	assertFile(t, fsys, "/root/d1-cpy/d2/f2.txt", "two")
	assertFile(t, fsys, "/root/d1-cpy/d2/f3.py", "print(3)")
	assertFile(t, fsys, "/root/d1/f1.txt", "one")
}

func TestCopyTo_IntoExistingDirectory(t *testing.T) {
	e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
	addSampleTree(fsys)
	fsys.AddDirectory("/root/d2")

	got, err := e.CopyTo(posix("/root/d1"), posix("/root/d2"))
	require.NoError(t, err)
	assert.Equal(t, "/root/d2/d1", got.String())
	assertFile(t, fsys, "/root/d2/d1/d2/f3.py", "print(3)")

	_, err = e.CopyTo(posix("/root/d1"), posix("/root/d2"))
	assert.ErrorIs(t, err, pathtree.ErrDestinationExists, "an existing copy is never merged into")
}

func TestCopyTo_EmptyDirectory(t *testing.T) {
	e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
	fsys.AddDirectory("/root/empty")

	got, err := e.CopyTo(posix("empty"), posix("empty2"))
	require.NoError(t, err)
	ok, err := e.IsDir(got)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCopyTo_Refusals(t *testing.T) {
	tests := []struct {
		name      string
		src, dest string
		want      error
	}{
		{"file destination for a directory", "/root/d1", "/root/e/x.py", pathtree.ErrNotADirectory},
		{"destination inside the source", "/root/d1", "/root/d1/d2/inner", pathtree.ErrInvalidPath},
		{"copy onto itself", "/root/d1", "/root/d1", pathtree.ErrInvalidPath},
		{"missing source", "/root/nothing", "/root/out", pathtree.ErrSourceNotFound},
		{"invalid destination", "/root/d1", "", pathtree.ErrInvalidPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
			addSampleTree(fsys)
			before := fsys.Paths()

			_, err := e.CopyTo(posix(tt.src), posix(tt.dest))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, before, fsys.Paths(), "a refused copy writes nothing")
		})
	}
}

func TestCopyTo_PartialFailure(t *testing.T) {
	e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
	fsys.AddFile("/root/d1/f1.txt", []byte("one"))
	fsys.AddFile("/root/d1/d2/f2.txt", []byte("two"))
	fsys.FailOn("copyfile", "/root/out/d2/f2.txt", errBoom)

	_, err := e.CopyTo(posix("/root/d1"), posix("/root/out"))
	require.Error(t, err)

	var te *pathtree.TreeError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "copy", te.Op)
	assert.Equal(t, "/root/d1/d2/f2.txt", te.Path.String())
	assert.Equal(t, 2, te.Done)
	assert.ErrorIs(t, err, errBoom)

	assertFile(t, fsys, "/root/out/f1.txt", "one")
	_, ok := fsys.ReadFile("/root/out/d2/f2.txt")
	assert.False(t, ok)
}

func TestCopyTo_UnreadableSubdirectory(t *testing.T) {
	e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
	addSampleTree(fsys)
	fsys.FailOn("readdir", "/root/d1/d2", errBoom)

	_, err := e.CopyTo(posix("/root/d1"), posix("/root/out"))
	var te *pathtree.TreeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "/root/d1/d2", te.Path.String())
	assert.ErrorIs(t, err, errBoom)
}

func TestCopyTo_SymlinkPolicies(t *testing.T) {
	setup := func(t *testing.T, policy pathtree.SymlinkPolicy) (*pathtree.Engine, interface {
		ReadFile(string) ([]byte, bool)
	}, func(string) (kind pathtree.EntryKind, target string, ok bool)) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{Symlinks: policy})
		fsys.AddFile("/root/src/f1.txt", []byte("one"))
		fsys.AddSymlink("/root/src/ln", "f1.txt")
		fsys.AddFile("/root/other/x.py", []byte("x"))
		fsys.AddSymlink("/root/src/lnd", "/root/other")
		node := func(path string) (pathtree.EntryKind, string, bool) {
			n, ok := fsys.Node(path)
			if !ok {
				return pathtree.KindOther, "", false
			}
			return n.Kind, n.Target, true
		}
		return e, fsys, node
	}

	t.Run("dereference copies content", func(t *testing.T) {
		e, fsys, node := setup(t, pathtree.DereferenceSymlinks)
		_, err := e.CopyTo(posix("/root/src"), posix("/root/dst"))
		require.NoError(t, err)

		assertFile(t, fsys, "/root/dst/ln", "one")
		kind, _, _ := node("/root/dst/ln")
		assert.Equal(t, pathtree.KindFile, kind)
		kind, _, _ = node("/root/dst/lnd")
		assert.Equal(t, pathtree.KindDir, kind)
		assertFile(t, fsys, "/root/dst/lnd/x.py", "x")
	})

	t.Run("preserve recreates links", func(t *testing.T) {
		e, _, node := setup(t, pathtree.PreserveSymlinks)
		_, err := e.CopyTo(posix("/root/src"), posix("/root/dst"))
		require.NoError(t, err)

		kind, target, ok := node("/root/dst/ln")
		require.True(t, ok)
		assert.Equal(t, pathtree.KindSymlink, kind)
		assert.Equal(t, "f1.txt", target)

		kind, target, _ = node("/root/dst/lnd")
		assert.Equal(t, pathtree.KindSymlink, kind)
		assert.Equal(t, "/root/other", target)
		_, _, ok = node("/root/dst/lnd/x.py")
		assert.True(t, ok, "reachable through the recreated link")
	})

	t.Run("skip leaves links out", func(t *testing.T) {
		e, fsys, node := setup(t, pathtree.SkipSymlinks)
		_, err := e.CopyTo(posix("/root/src"), posix("/root/dst"))
		require.NoError(t, err)

		assertFile(t, fsys, "/root/dst/f1.txt", "one")
		_, _, ok := node("/root/dst/ln")
		assert.False(t, ok)
		_, _, ok = node("/root/dst/lnd")
		assert.False(t, ok)
	})

	t.Run("dereference copies a directory that a link reached first", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		fsys.AddFile("/root/src/z_dir/data.txt", []byte("data"))
		fsys.AddSymlink("/root/src/a_link", "z_dir")

		_, err := e.CopyTo(posix("/root/src"), posix("/root/dst"))
		require.NoError(t, err)

		assertFile(t, fsys, "/root/dst/a_link/data.txt", "data")
		assertFile(t, fsys, "/root/dst/z_dir/data.txt", "data")
	})

	t.Run("dereference fails on a broken link", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		fsys.AddFile("/root/src/a.txt", nil)
		fsys.AddSymlink("/root/src/z-broken", "/gone")

		_, err := e.CopyTo(posix("/root/src"), posix("/root/dst"))
		var te *pathtree.TreeError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, "/root/src/z-broken", te.Path.String())
		assert.Equal(t, 1, te.Done)
		assert.ErrorIs(t, err, pathtree.ErrSourceNotFound)
	})
}

func TestCopyFileTo(t *testing.T) {
	t.Run("copies to a new name", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		addSampleTree(fsys)

		got, err := e.CopyFileTo(posix("d1/f1.txt"), posix("copy.txt"), false)
		require.NoError(t, err)
		assert.Equal(t, "/root/copy.txt", got.String())
		assertFile(t, fsys, "/root/copy.txt", "one")
	})

	t.Run("copies into a directory under the base name", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		addSampleTree(fsys)

		got, err := e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/e"), false)
		require.NoError(t, err)
		assert.Equal(t, "/root/e/f1.txt", got.String())
		assertFile(t, fsys, "/root/e/f1.txt", "one")
	})

	t.Run("refuses to overwrite without rewrite", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		addSampleTree(fsys)

		_, err := e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/d1/d2/f2.txt"), false)
		assert.ErrorIs(t, err, pathtree.ErrDestinationExists)
		assertFile(t, fsys, "/root/d1/d2/f2.txt", "two")
	})

	t.Run("overwrites with rewrite", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		addSampleTree(fsys)

		_, err := e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/d1/d2/f2.txt"), true)
		require.NoError(t, err)
		assertFile(t, fsys, "/root/d1/d2/f2.txt", "one")
	})

	t.Run("a broken link at the destination counts as existing", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		addSampleTree(fsys)
		fsys.AddSymlink("/root/dangling", "/gone")

		_, err := e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/dangling"), false)
		assert.ErrorIs(t, err, pathtree.ErrDestinationExists)
	})

	t.Run("errors", func(t *testing.T) {
		e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
		addSampleTree(fsys)

		_, err := e.CopyFileTo(posix("/root/none"), posix("/root/x"), false)
		assert.ErrorIs(t, err, pathtree.ErrSourceNotFound)

		_, err = e.CopyFileTo(posix("/root/d1"), posix("/root/x"), false)
		assert.ErrorIs(t, err, pathtree.ErrIsADirectory)

		_, err = e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/d1/f1.txt"), true)
		assert.ErrorIs(t, err, pathtree.ErrInvalidPath)

		_, err = e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/d1"), false)
		assert.ErrorIs(t, err, pathtree.ErrInvalidPath, "copying a file into its own directory")

		fsys.FailOn("copyfile", "/root/y", errBoom)
		_, err = e.CopyFileTo(posix("/root/d1/f1.txt"), posix("/root/y"), false)
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestCopyTo_File(t *testing.T) {
	e, fsys, _ := newTestEngine(t, pathtree.EngineOptions{})
	addSampleTree(fsys)

	got, err := e.CopyTo(posix("/root/e/x.py"), posix("/root/d1"))
	require.NoError(t, err)
	assert.Equal(t, "/root/d1/x.py", got.String())
	assertFile(t, fsys, "/root/d1/x.py", "x")
}
