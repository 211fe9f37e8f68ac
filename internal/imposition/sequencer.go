package imposition

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	numericName  = regexp.MustCompile(`^\d+$`)
	pageMarker   = regexp.MustCompile(`p(\d{3,4})(?:\D|$)`)
	digitRun     = regexp.MustCompile(`\d+`)
	zeroPageName = regexp.MustCompile(`(^|\D)0{3,}(\D|$)`)
)

// Numbered is a page identifier with the page number parsed from it.
type Numbered struct {
	Name string
	Key  int
}

// Sequencer orders raw page identifiers by the page number in their names.
type Sequencer struct {
	// DropZeroPages removes "000" pages (covers, credits, fan art) first.
	DropZeroPages bool
	Decider       Decider
}

// Order returns the identifiers sorted by page number, after the optional
// page-zero filter.
func (s *Sequencer) Order(ctx context.Context, names []string) ([]Numbered, error) {
	if s.DropZeroPages {
		kept := names[:0:0]
		for _, n := range names {
			if IsZeroPage(n) {
				log.Debug().Str("page", n).Msg("dropping page-zero file")
				continue
			}
			kept = append(kept, n)
		}
		names = kept
	}
	if len(names) == 0 {
		return nil, nil
	}

	keyed, err := s.extractKeys(ctx, names)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(keyed, func(i, j int) bool { return keyed[i].Key < keyed[j].Key })
	for i := 1; i < len(keyed); i++ {
		if keyed[i].Key == keyed[i-1].Key {
			return nil, &DuplicateKeyError{Key: keyed[i].Key, First: keyed[i-1].Name, Second: keyed[i].Name}
		}
	}
	return keyed, nil
}

func (s *Sequencer) extractKeys(ctx context.Context, names []string) ([]Numbered, error) {
	if keyed, ok := keysWith(names, numericKey); ok {
		return keyed, nil
	}
	if keyed, ok := keysWith(names, pageMarkerKey); ok {
		return keyed, nil
	}

	keyed := make([]Numbered, 0, len(names))
	for _, n := range names {
		k, ok := looseKey(stem(n))
		if !ok {
			return nil, &AmbiguousNamingError{Name: n, Reason: "no pXXX marker and not exactly one 3-4 digit number"}
		}
		keyed = append(keyed, Numbered{Name: n, Key: k})
	}

	decider := s.Decider
	if decider == nil {
		decider = AlwaysNo
	}
	ok, err := decider.Confirm(ctx, Prompt{
		Question: QuestionLooseNaming,
		Detail: fmt.Sprintf("%d file names do not follow the NNN or pNNN format; the page number will be taken "+
			"from the single 3 or 4 digit number in each name", len(names)),
	})
	if err != nil {
		return nil, fmt.Errorf("confirm loose naming: %w", err)
	}
	if !ok {
		return nil, &AmbiguousNamingError{Reason: "loose 3-4 digit naming was not confirmed"}
	}
	log.Warn().Int("pages", len(names)).Msg("ordering pages by loose 3-4 digit numbers")
	return keyed, nil
}

func keysWith(names []string, key func(string) (int, bool)) ([]Numbered, bool) {
	out := make([]Numbered, 0, len(names))
	for _, n := range names {
		k, ok := key(stem(n))
		if !ok {
			return nil, false
		}
		out = append(out, Numbered{Name: n, Key: k})
	}
	return out, true
}

func numericKey(s string) (int, bool) {
	if !numericName.MatchString(s) {
		return 0, false
	}
	return atoi(s)
}

func pageMarkerKey(s string) (int, bool) {
	m := pageMarker.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	return atoi(m[1])
}

func looseKey(s string) (int, bool) {
	found := -1
	for _, run := range digitRun.FindAllString(s, -1) {
		if len(run) < 3 || len(run) > 4 {
			continue
		}
		if found >= 0 {
			return 0, false
		}
		found, _ = atoi(run)
	}
	return found, found >= 0
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// stem strips the directory and extension from a store key.
func stem(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// IsZeroPage reports whether a name follows the page-zero convention.
func IsZeroPage(name string) bool {
	return zeroPageName.MatchString(stem(name))
}
