// Package filter implements the search and selection predicates shared by every list view.
package filter

import (
	"strings"
)

// All disables a category or status filter.
const All = "all"

// Options selects items from a list. Zero values disable each criterion.
type Options[T any] struct {
	Query      string
	TextFields func(T) []string

	Category   string
	CategoryOf func(T) string

	Status   string
	StatusOf func(T) string
}

// Apply returns the items matching every enabled criterion, preserving input order.
// Only the empty query disables text matching; whitespace is matched literally.
func Apply[T any](items []T, opts Options[T]) []T {
	query := opts.Query
	matched := make([]T, 0, len(items))

	for _, item := range items {
		if query != "" && !matchesText(opts.TextFields, item, query) {
			continue
		}

		if active(opts.Category) && (opts.CategoryOf == nil || opts.CategoryOf(item) != opts.Category) {
			continue
		}

		if active(opts.Status) && (opts.StatusOf == nil || opts.StatusOf(item) != opts.Status) {
			continue
		}

		matched = append(matched, item)
	}

	return matched
}

// Categories returns "all" followed by the distinct categories of items in first-seen order.
func Categories[T any](items []T, categoryOf func(T) string) []string {
	categories := []string{All}
	seen := map[string]bool{All: true}

	for _, item := range items {
		category := categoryOf(item)
		if seen[category] {
			continue
		}

		seen[category] = true
		categories = append(categories, category)
	}

	return categories
}

// Contains reports whether value contains query, ignoring case.
func Contains(value, query string) bool {
	return strings.Contains(strings.ToLower(value), strings.ToLower(query))
}

func matchesText[T any](fields func(T) []string, item T, query string) bool {
	if fields == nil {
		return false
	}

	for _, field := range fields(item) {
		if Contains(field, query) {
			return true
		}
	}

	return false
}

func active(value string) bool {
	return value != "" && value != All
}
