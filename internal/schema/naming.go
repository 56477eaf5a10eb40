package schema

import (
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
)

// Underscore converts a camel-cased name to its snake_case column form.
func Underscore(name string) string {
	if name == "" {
		return ""
	}
	return inflect.Underscore(name)
}

// ShortName takes the first character of every underscore-delimited segment.
func ShortName(name string) string {
	var sb strings.Builder
	for _, segment := range strings.Split(name, "_") {
		if segment == "" {
			continue
		}
		r := []rune(segment)
		sb.WriteRune(r[0])
	}
	return sb.String()
}

// CleanupName turns a database identifier into a lowerCamel name usable as a
// placeholder. Names that do not start with a lowercase letter get an "arg" prefix.
func CleanupName(name string) string {
	cleaned := inflect.CamelizeDownFirst(strings.ToLower(name))
	if cleaned == "" {
		return "arg"
	}
	first := []rune(cleaned)[0]
	if first > unicode.MaxASCII || !unicode.IsLower(first) {
		cleaned = "arg" + cleaned
	}
	return cleaned
}
