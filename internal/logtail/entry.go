package logtail

import (
	"strconv"
	"strings"
)

// Attr is one key=value pair from a log line.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed slog text-handler line.
type Entry struct {
	Time    string
	Level   string
	Message string
	Attrs   []Attr
	// Raw holds the original line when it is not in key=value form.
	Raw string
}

// Structured reports whether the line parsed into key=value pairs.
func (e Entry) Structured() bool {
	return e.Level != "" || e.Message != ""
}

// Parse splits a line written by slog.TextHandler into its parts. Lines that
// are not key=value pairs come back with only Raw set.
func Parse(line string) Entry {
	pairs, ok := splitPairs(line)
	if !ok || len(pairs) == 0 {
		return Entry{Raw: line}
	}
	var e Entry
	for _, p := range pairs {
		switch p.Key {
		case "time":
			e.Time = p.Value
		case "level":
			e.Level = p.Value
		case "msg":
			e.Message = p.Value
		default:
			e.Attrs = append(e.Attrs, p)
		}
	}
	if e.Level == "" && e.Message == "" {
		return Entry{Raw: line}
	}
	return e
}

func splitPairs(line string) ([]Attr, bool) {
	var out []Attr
	rest := strings.TrimSpace(line)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsAny(rest[:eq], " \t\"") {
			return nil, false
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, false
			}
			unq, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, false
			}
			value = unq
			rest = rest[len(quoted):]
		} else if sp := strings.IndexByte(rest, ' '); sp >= 0 {
			value = rest[:sp]
			rest = rest[sp:]
		} else {
			value = rest
			rest = ""
		}
		out = append(out, Attr{Key: key, Value: value})
		rest = strings.TrimLeft(rest, " ")
	}
	return out, true
}
