package metadata

import (
	"strconv"
	"strings"

	"github.com/rediwo/mysqlorm/ormerr"
)

// tagToken is one comma-separated piece of an `orm:"..."` tag: either a
// bare flag ("pk") or a key=value pair ("type=varchar").
type tagToken struct {
	Key   string
	Value string
	Flag  bool
}

func parseTag(raw string) []tagToken {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tokens := make([]tagToken, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if idx := strings.IndexByte(p, '='); idx >= 0 {
			tokens = append(tokens, tagToken{Key: strings.ToLower(p[:idx]), Value: p[idx+1:]})
		} else {
			tokens = append(tokens, tagToken{Key: strings.ToLower(p), Flag: true})
		}
	}
	return tokens
}

// knownColumnKeys and knownRelationKeys gate spec §6.2's "unknown attribute
// kinds on mapped classes are a hard error" rule: any tag token whose key
// isn't recognized for the property's classification fails descriptor
// construction.
var knownColumnKeys = map[string]bool{
	"column": true, "type": true, "length": true, "scale": true,
	"unsigned": true, "nullable": true, "notnull": true, "default": true,
	"extra": true, "key": true, "choices": true, "pk": true,
	"autoincrement": true, "unique": true, "getter": true, "setter": true,
}

var knownRelationKeys = map[string]bool{
	"relation": true, "column": true, "ondelete": true, "onupdate": true,
	"mappedby": true, "jointable": true, "joinproperty": true,
	"inversejoin": true, "cascade": true, "fkname": true, "nullable": true,
	"getter": true, "setter": true,
}

func validateKeys(tokens []tagToken, allowed map[string]bool, className, property string) error {
	for _, t := range tokens {
		if !allowed[t.Key] {
			return ormerr.New(ormerr.MappingError,
				"%s.%s: unknown annotation attribute %q", className, property, t.Key)
		}
	}
	return nil
}

func tagValue(tokens []tagToken, key string) (string, bool) {
	for _, t := range tokens {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

func tagFlag(tokens []tagToken, key string) bool {
	for _, t := range tokens {
		if t.Key == key {
			return true
		}
	}
	return false
}

func tagInt(tokens []tagToken, key string) (int, bool) {
	v, ok := tagValue(tokens, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
