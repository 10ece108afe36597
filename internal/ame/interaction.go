package ame

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ParseSelectionIndices parses a comma-separated list of numbers or negative numbers (for exclusion).
// It returns a slice of 0-based indices and a boolean indicating if it's an exclusion list.
// Ranges such as 2-4 are accepted too.
func ParseSelectionIndices(input string, max int) ([]int, bool, error) {
	if input == "" {
		return nil, false, nil
	}

	indices := make(map[int]bool)
	exclude := false

	for _, part := range strings.Split(input, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.HasPrefix(part, "-") {
			exclude = true
			part = strings.TrimPrefix(part, "-")
		}

		lo, hi, err := parseSelectionRange(part)
		if err != nil {
			return nil, false, err
		}
		for idx := lo; idx <= hi; idx++ {
			if idx <= 0 || idx > max {
				return nil, false, fmt.Errorf("number out of range (1-%d): %d", max, idx)
			}
			indices[idx-1] = true
		}
	}

	var result []int
	if exclude {
		for i := 0; i < max; i++ {
			if !indices[i] {
				result = append(result, i)
			}
		}
	} else {
		for idx := range indices {
			result = append(result, idx)
		}
		sort.Ints(result)
	}

	return result, exclude, nil
}

func parseSelectionRange(part string) (int, int, error) {
	first, last, isRange := strings.Cut(part, "-")
	lo, err := strconv.Atoi(first)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid number: %s", part)
	}
	if !isRange {
		return lo, lo, nil
	}
	hi, err := strconv.Atoi(last)
	if err != nil || hi < lo {
		return 0, 0, fmt.Errorf("invalid range: %s", part)
	}
	return lo, hi, nil
}

// selectionAnswer interprets a reply to a selection prompt where an empty
// answer selects nothing.
func selectionAnswer(input string, count int) ([]int, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "", "n", "no", "none":
		return nil, nil
	case "a", "all", "y", "yes":
		indices := make([]int, count)
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}
	indices, _, err := ParseSelectionIndices(strings.TrimSpace(input), count)
	return indices, err
}
