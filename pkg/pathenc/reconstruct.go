package pathenc

import (
	"strings"

	"github.com/taskdeck/core/errors"
	"github.com/taskdeck/core/pkg/profiling"
)

// Strategy names one of the ordered resolution strategies.
type Strategy string

const (
	// FromMetadata resolved through a metadata.json sidecar. Authoritative.
	FromMetadata Strategy = "metadata"
	// FromGreedyWalk resolved by walking the live filesystem and matching
	// segment windows against real directory entries.
	FromGreedyWalk Strategy = "greedy_walk"
	// FromNaiveSubstitution resolved by turning every hyphen back into a
	// separator. Last resort, and the only route without a usable oracle.
	FromNaiveSubstitution Strategy = "naive_substitution"
)

// Resolution is the outcome of reconstructing one flattened name.
// PathExists is a present-tense filesystem check computed after resolution;
// a reconstruction can succeed and still name a path that is not on disk.
type Resolution struct {
	Path       string   `json:"path"`
	Strategy   Strategy `json:"strategy"`
	PathExists bool     `json:"pathExists"`
}

// maxWindow bounds how many naive segments one real directory entry may span.
// Five covers names like "my-very-long-project-dir" without making the
// window scan quadratic on deep paths.
const maxWindow = 5

// Reconstructor is the best-effort inverse of Flatten. Strategies are tried
// in a fixed order and the first success wins: cached metadata, then the
// oracle-validated greedy walk, then naive substitution.
type Reconstructor struct {
	oracle Oracle
	cache  *MetadataCache
}

// NewReconstructor builds a Reconstructor over the given oracle. The cache
// may be nil for callers that have no projects root to persist into.
func NewReconstructor(oracle Oracle, cache *MetadataCache) *Reconstructor {
	return &Reconstructor{oracle: oracle, cache: cache}
}

// Reconstruct maps a flattened directory name back to a real path.
// A successful greedy walk whose result exists on disk is written through to
// the metadata cache so later runs take the fast path.
func (r *Reconstructor) Reconstruct(flattenedName string) (Resolution, error) {
	defer profiling.Start("pathenc.Reconstruct").Stop()

	if flattenedName == "" {
		return Resolution{}, errors.New(errors.ErrCodeInvalidInput, "empty flattened name")
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(flattenedName); ok {
			return Resolution{
				Path:       cached,
				Strategy:   FromMetadata,
				PathExists: r.oracle.Exists(cached),
			}, nil
		}
	}

	fn := parseFlattened(flattenedName)

	if path, ok := r.greedyWalk(fn); ok {
		res := Resolution{
			Path:       path,
			Strategy:   FromGreedyWalk,
			PathExists: r.oracle.Exists(path),
		}
		if res.PathExists && r.cache != nil {
			// Best effort; a failed sidecar write never fails the resolution
			_ = r.cache.Put(flattenedName, path)
		}
		return res, nil
	}

	path := fn.naive()
	return Resolution{
		Path:       path,
		Strategy:   FromNaiveSubstitution,
		PathExists: r.oracle.Exists(path),
	}, nil
}

// flatName is a flattened name decomposed into its root anchor and the naive
// hyphen-delimited segments that follow it.
type flatName struct {
	walkRoot string // directory the greedy walk starts from; "" when unanchored
	prefix   string // string prepended when joining naively
	sep      string // separator for naive joins
	segments []string
}

func parseFlattened(name string) flatName {
	switch {
	case len(name) >= 3 && isDriveLetter(name[0]) && name[1] == '-' && name[2] == '-':
		root := string(name[0]) + `:\`
		return flatName{walkRoot: root, prefix: root, sep: `\`, segments: splitSegments(name[3:])}
	case strings.HasPrefix(name, "-"):
		return flatName{walkRoot: "/", prefix: "/", sep: "/", segments: splitSegments(name[1:])}
	default:
		// Relative origin; nothing to anchor a walk on
		return flatName{walkRoot: "", prefix: "", sep: "/", segments: splitSegments(name)}
	}
}

func splitSegments(rest string) []string {
	if rest == "" {
		return nil
	}
	return strings.Split(rest, "-")
}

// naive applies the last-resort rule: all hyphens become separators.
func (f flatName) naive() string {
	if len(f.segments) == 0 {
		return f.prefix
	}
	return f.prefix + strings.Join(f.segments, f.sep)
}

// greedyWalk rebuilds the path level by level, validating each step against
// the oracle. It reports ok=false when the walk cannot start at all (no
// anchor, or the root itself cannot be listed); a listing failure deeper in
// the tree degrades to appending the remaining segments verbatim instead.
func (r *Reconstructor) greedyWalk(fn flatName) (string, bool) {
	if fn.walkRoot == "" {
		return "", false
	}

	result := fn.walkRoot
	segs := fn.segments
	first := true

	for len(segs) > 0 {
		entries, err := r.oracle.List(result)
		if err != nil {
			if first {
				return "", false
			}
			// Cannot look deeper; best-effort continuation with what is left
			for _, s := range segs {
				result = joinWith(result, s, fn.sep)
			}
			return result, true
		}
		first = false

		name, consumed := matchWindow(entries, segs)
		if consumed == 0 {
			// No candidate matched; consume the single next segment verbatim
			name, consumed = segs[0], 1
		}
		result = joinWith(result, name, fn.sep)
		segs = segs[consumed:]
	}

	if first {
		// Root-only name: confirm the anchor is listable before claiming it
		if _, err := r.oracle.List(result); err != nil {
			return "", false
		}
	}
	return result, true
}

// matchWindow searches windows of 1..maxWindow leading segments, longest
// first, for a directory entry that matches the window text. A window
// matches an entry that equals its hyphen-joined form, its dot-joined form
// (firstname.lastname account directories), a dot-prefixed single segment
// (hidden directories), or whose name starts with any of those,
// case-insensitively. Ties prefer the longest window, then the first
// directory entry encountered.
func matchWindow(entries []string, segs []string) (string, int) {
	for w := min(maxWindow, len(segs)); w >= 1; w-- {
		window := segs[:w]
		candidates := []string{
			strings.Join(window, "-"),
			strings.Join(window, "."),
		}
		if w == 1 {
			candidates = append(candidates, "."+window[0])
		}

		for _, entry := range entries {
			if exactMatch(entry, candidates) {
				return entry, w
			}
		}
		for _, entry := range entries {
			if prefixMatch(entry, candidates) {
				return entry, w
			}
		}
	}
	return "", 0
}

func exactMatch(entry string, candidates []string) bool {
	for _, c := range candidates {
		if c != "" && entry == c {
			return true
		}
	}
	return false
}

func prefixMatch(entry string, candidates []string) bool {
	lower := strings.ToLower(entry)
	for _, c := range candidates {
		if c != "" && strings.HasPrefix(lower, strings.ToLower(c)) {
			return true
		}
	}
	return false
}

func joinWith(base, name, sep string) string {
	if strings.HasSuffix(base, sep) {
		return base + name
	}
	return base + sep + name
}
