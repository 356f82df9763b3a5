package query

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Joseda-hg/lazytodo/internal/model"
)

type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// AvailableTags returns every distinct tag in use, in locale-aware order.
func AvailableTags(tasks []model.Task) []string {
	seen := make(map[string]struct{})
	result := []string{}
	for _, task := range tasks {
		for _, tag := range task.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			result = append(result, tag)
		}
	}
	sortTags(result)
	return result
}

// TagCounts returns the available tags with the number of tasks carrying
// each. A task listing the same tag twice is counted once.
func TagCounts(tasks []model.Task) []TagCount {
	counts := make(map[string]int)
	for _, task := range tasks {
		seen := make(map[string]struct{}, len(task.Tags))
		for _, tag := range task.Tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			counts[tag]++
		}
	}

	result := make([]TagCount, 0, len(counts))
	for _, name := range AvailableTags(tasks) {
		result = append(result, TagCount{Name: name, Count: counts[name]})
	}
	return result
}

func sortTags(tags []string) {
	// Collators keep internal buffers and are not safe to share.
	collator := collate.New(language.Und)
	sort.SliceStable(tags, func(i, j int) bool {
		if cmp := collator.CompareString(tags[i], tags[j]); cmp != 0 {
			return cmp < 0
		}
		return strings.Compare(tags[i], tags[j]) < 0
	})
}
