// Package processing holds the text helpers shared by extraction, ingestion and compilation.
package processing

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

var lineBreaks = regexp.MustCompile(`\r\n|[\n\r\v\f\x1c\x1d\x1e\x{85}\x{2028}\x{2029}]`)

// FlattenText turns rendered page text into one fragment per line.
// Lines break on \n, \r\n, \r and the Unicode line separators. Every line is trimmed
// and split on double spaces; empty fragments are dropped.
func FlattenText(raw string) string {
	if raw == "" {
		return ""
	}

	var fragments []string
	for _, line := range lineBreaks.Split(raw, -1) {
		for _, phrase := range strings.Split(strings.TrimSpace(line), "  ") {
			phrase = strings.TrimSpace(phrase)
			if phrase != "" {
				fragments = append(fragments, phrase)
			}
		}
	}
	return strings.Join(fragments, "\n")
}

// Truncate keeps the first limit characters of s. It never splits a multi-byte rune.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}

// MergeTags returns the sorted set union of every group, ignoring blank tags.
func MergeTags(groups ...[]string) []string {
	seen := make(map[string]struct{})
	for _, group := range groups {
		for _, tag := range group {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			seen[tag] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// UniqueIDs drops blank and repeated ids while preserving order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
