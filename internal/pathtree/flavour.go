package pathtree

import (
	"strings"

	"golang.org/x/text/cases"
)

// Flavour isolates the syntax rules of one namespace: separators, volume
// prefixes, absoluteness, case sensitivity and character validity.
// All path algebra is written against this interface.
type Flavour interface {
	// Separator is the separator written by joins and normalization.
	Separator() byte
	// IsSeparator reports whether c separates path components.
	IsSeparator(c byte) bool
	// VolumeName returns the leading volume prefix ("" if none).
	VolumeName(text string) string
	// IsAbs reports whether text is absolute.
	IsAbs(text string) bool
	// Fold maps text to the form used for equality, ordering and hashing.
	Fold(text string) string
	// Valid reports whether text is syntactically acceptable.
	Valid(text string) bool
	String() string
}

var (
	// Posix is the case-sensitive slash-separated namespace.
	Posix Flavour = posixFlavour{}

	// Darwin uses POSIX syntax with case-insensitive comparison.
	Darwin Flavour = posixFlavour{foldCase: true}

	// Windows is the drive-letter/UNC namespace.
	Windows Flavour = windowsFlavour{}
)

type posixFlavour struct {
	foldCase bool
}

func (posixFlavour) Separator() byte         { return '/' }
func (posixFlavour) IsSeparator(c byte) bool { return c == '/' }
func (posixFlavour) VolumeName(string) string {
	return ""
}

func (posixFlavour) IsAbs(text string) bool {
	return strings.HasPrefix(text, "/")
}

func (f posixFlavour) Fold(text string) string {
	if !f.foldCase {
		return text
	}
	return cases.Fold().String(text)
}

func (posixFlavour) Valid(text string) bool {
	return text != "" && strings.IndexByte(text, 0) < 0
}

func (f posixFlavour) String() string {
	if f.foldCase {
		return "darwin"
	}
	return "posix"
}

type windowsFlavour struct{}

func (windowsFlavour) Separator() byte { return '\\' }

func (windowsFlavour) IsSeparator(c byte) bool {
	return c == '\\' || c == '/'
}

// VolumeName recognises drive letters ("C:") and UNC shares
// ("\\host\share"). The result keeps the separators as written.
func (w windowsFlavour) VolumeName(text string) string {
	if len(text) >= 2 && text[1] == ':' && isLetter(text[0]) {
		return text[:2]
	}
	n := len(text)
	if n < 5 || !w.IsSeparator(text[0]) || !w.IsSeparator(text[1]) || w.IsSeparator(text[2]) {
		return ""
	}
	// \\host\share: the host runs to the next separator, the share to the one after.
	i := 3
	for i < n && !w.IsSeparator(text[i]) {
		i++
	}
	if i >= n-1 {
		return ""
	}
	i++
	if w.IsSeparator(text[i]) {
		return ""
	}
	for i < n && !w.IsSeparator(text[i]) {
		i++
	}
	return text[:i]
}

func (w windowsFlavour) IsAbs(text string) bool {
	vol := w.VolumeName(text)
	if vol == "" {
		return false
	}
	if len(vol) > 2 {
		// UNC shares are always absolute.
		return true
	}
	rest := text[len(vol):]
	return rest != "" && w.IsSeparator(rest[0])
}

func (windowsFlavour) Fold(text string) string {
	return cases.Fold().String(strings.ReplaceAll(text, "/", `\`))
}

func (w windowsFlavour) Valid(text string) bool {
	if text == "" {
		return false
	}
	rest := text[len(w.VolumeName(text)):]
	return !strings.ContainsAny(rest, "<>\"|?*:\x00")
}

func (windowsFlavour) String() string { return "windows" }

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}
