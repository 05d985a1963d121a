package moderation

import (
	"bufio"
	"bytes"
	"embed"
	"io/fs"
	"sort"
	"strings"

	"pairchat/errors"
)

//go:embed censored/*.txt
var wordlists embed.FS

// Wordlists carries the parsed blacklists plus metadata for logging.
type Wordlists struct {
	Words     []string
	Languages []string
}

// LoadWordlists reads every embedded per-language .txt file, one word per
// line, and returns the deduplicated union.
func LoadWordlists() (*Wordlists, error) {
	entries, err := fs.ReadDir(wordlists, "censored")
	if err != nil {
		return nil, err
	}

	unique := make(map[string]struct{})
	var languages []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := wordlists.ReadFile("censored/" + entry.Name())
		if err != nil {
			return nil, err
		}

		// Scanner copes with \n and \r\n endings alike.
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			word := strings.TrimSpace(scanner.Text())
			if word == "" || strings.HasPrefix(word, "#") {
				continue
			}
			unique[strings.ToLower(word)] = struct{}{}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(unique) == 0 {
		return nil, errors.ErrEmptyWordlists
	}

	words := make([]string, 0, len(unique))
	for word := range unique {
		words = append(words, word)
	}
	sort.Strings(words)

	return &Wordlists{Words: words, Languages: languages}, nil
}
