package extraction

import (
	"sort"
	"strings"
)

// Canonicalize maps an ingredient or shopping-list name to its checked-state
// key: lowercase, then drop everything outside [a-z0-9]. "Olive Oil",
// "olive-oil" and "OLIVE_OIL" all become "oliveoil".
func Canonicalize(name string) string {
	lower := strings.ToLower(name)
	var b strings.Builder
	b.Grow(len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Ledger is the set of checked canonical keys for the live job. The
// ingredient list and the shopping list share one ledger. Not safe for
// concurrent use; Session guards it.
type Ledger struct {
	keys map[string]struct{}
}

// Toggle flips membership of name's key and returns the new state.
func (l *Ledger) Toggle(name string) bool {
	key := Canonicalize(name)
	if l.keys == nil {
		l.keys = make(map[string]struct{})
	}
	if _, ok := l.keys[key]; ok {
		delete(l.keys, key)
		return false
	}
	l.keys[key] = struct{}{}
	return true
}

// IsChecked reports whether name's key is in the ledger.
func (l *Ledger) IsChecked(name string) bool {
	_, ok := l.keys[Canonicalize(name)]
	return ok
}

// Clear empties the ledger.
func (l *Ledger) Clear() {
	l.keys = nil
}

// Len returns the number of checked keys.
func (l *Ledger) Len() int {
	return len(l.keys)
}

// Keys returns the checked keys in sorted order.
func (l *Ledger) Keys() []string {
	out := make([]string, 0, len(l.keys))
	for k := range l.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
