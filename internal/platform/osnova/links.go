package osnova

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

var (
	linkTagPattern = regexp.MustCompile(`<a\s+[^>]*?href="(.*?)"[^>]*>`)
	bareURLPattern = regexp.MustCompile(`^https?://\S+$`)
)

// CleanLinks rewrites Osnova redirect wrappers (".../redirect?to=<target>")
// back to their targets everywhere in a post payload, so persisted
// data.json files carry direct links.
func CleanLinks(payload json.RawMessage) json.RawMessage {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return payload
	}

	cleaned, err := json.Marshal(cleanValue(doc))
	if err != nil {
		return payload
	}
	return cleaned
}

func cleanValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = cleanValue(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = cleanValue(item)
		}
		return v
	case string:
		return cleanText(v)
	default:
		return value
	}
}

func cleanText(text string) string {
	if bareURLPattern.MatchString(text) {
		return unwrapRedirect(text)
	}

	return linkTagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		match := linkTagPattern.FindStringSubmatch(tag)
		if match == nil {
			return tag
		}
		return `<a href="` + unwrapRedirect(match[1]) + `">`
	})
}

func unwrapRedirect(href string) string {
	if !strings.Contains(href, "redirect?to=") {
		return href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("to"); target != "" {
		return target
	}
	return href
}
