package blog

import (
	"strconv"
	"strings"
)

// WordsPerMinute is the reading rate used by ReadingTime.
const WordsPerMinute = 200

// ReadingTime estimates how long body takes to read, rounded up to whole
// minutes with a floor of one: "1 min read" for 0..200 words, "2 min read"
// for 201..400 and so on.
func ReadingTime(body string) string {
	words := len(strings.Fields(body))
	minutes := (words + WordsPerMinute - 1) / WordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return strconv.Itoa(minutes) + " min read"
}
