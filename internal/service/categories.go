package service

import (
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
)

// fuzzyMatchRatio is the maximum edit-distance-to-length ratio for a raw
// category string to snap onto an existing vocabulary entry.
const fuzzyMatchRatio = 0.34

// Vocabulary is the shared category vocabulary. Both the intent interpreter
// and the ingestion pipeline normalize through the same instance so chat and
// imported expenses land in the same categories. Safe for concurrent use:
// interpretation and ingestion of independent requests may run at the same
// time.
type Vocabulary struct {
	mu    sync.RWMutex
	names []string
}

// NewVocabulary builds a vocabulary from known category names, preserving order.
func NewVocabulary(names []string) *Vocabulary {
	v := &Vocabulary{}
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			v.names = append(v.names, n)
		}
	}
	return v
}

// Names returns a copy of the known category names.
func (v *Vocabulary) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]string, len(v.names))
	copy(out, v.names)
	return out
}

// Add extends the vocabulary with a freshly created category.
func (v *Vocabulary) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, n := range v.names {
		if strings.EqualFold(n, name) {
			return
		}
	}
	v.names = append(v.names, name)
}

// Normalize maps a raw category string onto the vocabulary. It case-folds and
// trims, snaps to the closest known name within the fuzzy threshold, and
// otherwise returns a title-cased fresh name with matched=false.
func (v *Vocabulary) Normalize(raw string) (name string, matched bool) {
	folded := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if folded == "" {
		return "", false
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	best := ""
	bestDist := -1
	for _, known := range v.names {
		knownFolded := strings.ToLower(known)
		if knownFolded == folded {
			return known, true
		}
		dist := levenshtein.ComputeDistance(folded, knownFolded)
		if bestDist == -1 || dist < bestDist {
			best, bestDist = known, dist
		}
	}
	if best != "" {
		maxLen := len(folded)
		if len(best) > maxLen {
			maxLen = len(best)
		}
		if float64(bestDist)/float64(maxLen) <= fuzzyMatchRatio {
			return best, true
		}
	}
	return titleCase(folded), false
}

// categoryID derives a stable id from the category name so seeding and
// on-the-fly creation agree.
func categoryID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("cat:"+name)).String()
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
