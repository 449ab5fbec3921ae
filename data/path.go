package data

import (
	"iter"
	"strings"

	"github.com/mwantia/objfs/data/errors"
)

const (
	Separator     = "/"
	SeparatorChar = '/'
	// HomeAlias stands for the root of the configured account.
	// It is only expanded when an absolute form is produced.
	HomeAlias = "~~"
)

// ObjectPath is an immutable hierarchical path naming a flat remote key.
// The zero value is the empty path.
type ObjectPath struct {
	path  string
	names []string
	home  string
}

// ParsePath joins first and more into a single path.
func ParsePath(first string, more ...string) (ObjectPath, error) {
	return ParsePathWithHome("", first, more...)
}

// ParsePathWithHome works like ParsePath but records the account that
// the home alias expands to.
func ParsePathWithHome(home, first string, more ...string) (ObjectPath, error) {
	joined := joinParts(first, more)
	if index := strings.IndexByte(joined, 0); index >= 0 {
		return ObjectPath{}, errors.InvalidPath(joined, "path included character \\u0000", index)
	}

	return newObjectPath(home, collapseSeparators(joined)), nil
}

// MustParsePath is like ParsePath but panics on invalid input.
func MustParsePath(first string, more ...string) ObjectPath {
	p, err := ParsePath(first, more...)
	if err != nil {
		panic(err)
	}
	return p
}

func joinParts(first string, more []string) string {
	if len(more) == 0 {
		return first
	}

	var builder strings.Builder
	builder.WriteString(first)

	for _, part := range more {
		if part == "" || part == Separator {
			continue
		}

		part = strings.TrimRight(collapseSeparators(part), Separator)
		if part == "" {
			continue
		}

		if builder.Len() > 0 && !strings.HasSuffix(builder.String(), Separator) && !strings.HasPrefix(part, Separator) {
			builder.WriteByte(SeparatorChar)
		}
		builder.WriteString(part)
	}

	if builder.Len() == 0 {
		if first == "" {
			return Separator
		}
		return first
	}

	return builder.String()
}

func collapseSeparators(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}

	var builder strings.Builder
	builder.Grow(len(s))

	previous := false
	for i := 0; i < len(s); i++ {
		if s[i] == SeparatorChar {
			if previous {
				continue
			}
			previous = true
		} else {
			previous = false
		}
		builder.WriteByte(s[i])
	}

	return builder.String()
}

func splitNames(s string) []string {
	var names []string
	for name := range strings.SplitSeq(s, Separator) {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func newObjectPath(home, s string) ObjectPath {
	return ObjectPath{
		path:  s,
		names: splitNames(s),
		home:  home,
	}
}

func buildPath(home string, absolute bool, names []string, trailing bool) ObjectPath {
	var builder strings.Builder
	if absolute {
		builder.WriteByte(SeparatorChar)
	}
	builder.WriteString(strings.Join(names, Separator))
	if trailing && len(names) > 0 {
		builder.WriteByte(SeparatorChar)
	}

	return ObjectPath{
		path:  builder.String(),
		names: names,
		home:  home,
	}
}

func (p ObjectPath) String() string {
	return p.path
}

func (p ObjectPath) IsAbsolute() bool {
	return strings.HasPrefix(p.path, Separator)
}

func (p ObjectPath) IsEmpty() bool {
	return p.path == ""
}

func (p ObjectPath) IsRoot() bool {
	return p.IsAbsolute() && len(p.names) == 0
}

func (p ObjectPath) Home() string {
	return p.home
}

// WithHome returns a copy of p that expands the home alias to account.
func (p ObjectPath) WithHome(account string) ObjectPath {
	p.home = account
	return p
}

// Segments returns a copy of the non-empty names of p.
func (p ObjectPath) Segments() []string {
	return append([]string(nil), p.names...)
}

func (p ObjectPath) hasTrailingSeparator() bool {
	return len(p.names) > 0 && strings.HasSuffix(p.path, Separator)
}

func (p ObjectPath) isRelativeMarker() bool {
	return p.path == "." || p.path == ".."
}

// Root returns "/" for absolute paths.
func (p ObjectPath) Root() (ObjectPath, bool) {
	if !p.IsAbsolute() {
		return ObjectPath{}, false
	}
	return buildPath(p.home, true, nil, false), true
}

func (p ObjectPath) FileName() (ObjectPath, bool) {
	if len(p.names) == 0 || p.isRelativeMarker() {
		return ObjectPath{}, false
	}
	return buildPath(p.home, false, p.names[len(p.names)-1:], false), true
}

func (p ObjectPath) Parent() (ObjectPath, bool) {
	if len(p.names) == 0 || p.isRelativeMarker() {
		return ObjectPath{}, false
	}

	absolute := p.IsAbsolute()
	if !absolute && len(p.names) < 2 {
		return ObjectPath{}, false
	}

	return buildPath(p.home, absolute, cloneNames(p.names[:len(p.names)-1]), false), true
}

// NameCount returns 0 for the root and 1 for the empty path.
func (p ObjectPath) NameCount() int {
	if p.IsEmpty() {
		return 1
	}
	return len(p.names)
}

func (p ObjectPath) NameAt(index int) (ObjectPath, error) {
	return p.Subpath(index, index+1)
}

func (p ObjectPath) Subpath(begin, end int) (ObjectPath, error) {
	if p.IsEmpty() && begin == 0 && end == 1 {
		return p, nil
	}

	if begin < 0 || end > len(p.names) || begin >= end {
		return ObjectPath{}, errors.InvalidArgument("subpath", "range [%d, %d) outside of %d names in '%s'", begin, end, len(p.names), p.path)
	}

	return buildPath(p.home, false, cloneNames(p.names[begin:end]), false), nil
}

// Resolve joins other onto p and normalizes the result.
func (p ObjectPath) Resolve(other ObjectPath) ObjectPath {
	if other.IsAbsolute() {
		return other
	}
	if p.IsEmpty() {
		return other.Normalize()
	}
	if other.IsEmpty() {
		return p
	}

	joined := p.path
	if !strings.HasSuffix(joined, Separator) {
		joined += Separator
	}
	joined += other.path

	return newObjectPath(p.home, joined).Normalize()
}

func (p ObjectPath) ResolvePath(other string) (ObjectPath, error) {
	o, err := ParsePathWithHome(p.home, other)
	if err != nil {
		return ObjectPath{}, err
	}
	return p.Resolve(o), nil
}

func (p ObjectPath) ResolveSibling(other ObjectPath) ObjectPath {
	if other.IsAbsolute() {
		return other
	}

	parent, ok := p.Parent()
	if !ok {
		if root, absolute := p.Root(); absolute {
			return root.Resolve(other)
		}
		return other
	}

	if other.IsEmpty() {
		return parent
	}
	return parent.Resolve(other)
}

func (p ObjectPath) ResolveSiblingPath(other string) (ObjectPath, error) {
	o, err := ParsePathWithHome(p.home, other)
	if err != nil {
		return ObjectPath{}, err
	}
	return p.ResolveSibling(o), nil
}

// Normalize removes "." names and lets ".." consume the preceding name.
// Surplus ".." names are dropped for both absolute and relative paths.
func (p ObjectPath) Normalize() ObjectPath {
	names := make([]string, 0, len(p.names))
	for _, name := range p.names {
		switch name {
		case ".":
		case "..":
			if len(names) > 0 {
				names = names[:len(names)-1]
			}
		default:
			names = append(names, name)
		}
	}

	trailing := strings.HasSuffix(p.path, Separator) && len(names) > 0

	return buildPath(p.home, p.IsAbsolute(), names, trailing)
}

func (p ObjectPath) StartsWith(other ObjectPath) bool {
	if p.IsAbsolute() != other.IsAbsolute() {
		return false
	}
	if other.IsEmpty() || p.IsEmpty() {
		return other.IsEmpty() && p.IsEmpty()
	}
	if len(other.names) > len(p.names) {
		return false
	}

	for i, name := range other.names {
		if p.names[i] != name {
			return false
		}
	}
	return true
}

func (p ObjectPath) StartsWithString(other string) bool {
	o, err := ParsePath(other)
	if err != nil {
		return false
	}
	return p.StartsWith(o)
}

// EndsWith matches other as a name suffix of p.
// An absolute other matches only a path with exactly the same names.
func (p ObjectPath) EndsWith(other ObjectPath) bool {
	if other.IsEmpty() || p.IsEmpty() {
		return other.IsEmpty() && p.IsEmpty()
	}

	if other.IsAbsolute() {
		return p.IsAbsolute() && equalNames(p.names, other.names)
	}
	if len(other.names) == 0 || len(other.names) > len(p.names) {
		return false
	}

	offset := len(p.names) - len(other.names)
	return equalNames(p.names[offset:], other.names)
}

func (p ObjectPath) EndsWithString(other string) bool {
	o, err := ParsePath(other)
	if err != nil {
		return false
	}
	return p.EndsWith(o)
}

// Relativize builds the relative path that leads from p to other.
// Both paths must be either absolute or relative.
func (p ObjectPath) Relativize(other ObjectPath) (ObjectPath, error) {
	if p.IsAbsolute() != other.IsAbsolute() {
		return ObjectPath{}, errors.InvalidArgument("relativize", "cannot relativize '%s' against '%s': mixed absolute and relative paths", other.path, p.path)
	}

	common := 0
	for common < len(p.names) && common < len(other.names) && p.names[common] == other.names[common] {
		common++
	}

	names := make([]string, 0, len(p.names)-common+len(other.names)-common)
	for range len(p.names) - common {
		names = append(names, "..")
	}
	names = append(names, other.names[common:]...)

	return buildPath(p.home, false, names, false), nil
}

// Iterator yields the cumulative sub-paths of p, starting at the root for
// absolute paths. Every call returns a fresh sequence.
func (p ObjectPath) Iterator() iter.Seq[ObjectPath] {
	return func(yield func(ObjectPath) bool) {
		absolute := p.IsAbsolute()
		if absolute {
			if !yield(buildPath(p.home, true, nil, false)) {
				return
			}
		}

		for i := range p.names {
			if !yield(buildPath(p.home, absolute, cloneNames(p.names[:i+1]), false)) {
				return
			}
		}
	}
}

// ToAbsolutePath expands a leading home alias to "/<account>".
// Paths without the alias are returned unchanged.
func (p ObjectPath) ToAbsolutePath() ObjectPath {
	if p.home == "" || len(p.names) == 0 || p.names[0] != HomeAlias {
		return p
	}

	names := append(splitNames(p.home), p.names[1:]...)
	return buildPath(p.home, true, names, p.hasTrailingSeparator())
}

// ToRealPath is the normalized absolute form of p.
func (p ObjectPath) ToRealPath() ObjectPath {
	return p.ToAbsolutePath().Normalize()
}

func (p ObjectPath) comparable() string {
	s := p.ToRealPath().path
	if len(s) > 1 {
		s = strings.TrimSuffix(s, Separator)
	}
	return s
}

// Compare orders paths by their normalized absolute string form, ignoring a
// trailing separator.
func (p ObjectPath) Compare(other ObjectPath) int {
	return strings.Compare(p.comparable(), other.comparable())
}

func (p ObjectPath) Equal(other ObjectPath) bool {
	return p.Compare(other) == 0
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cloneNames(names []string) []string {
	return append([]string(nil), names...)
}
