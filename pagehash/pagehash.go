// Package pagehash fingerprints the DOM shape of an HTML document.
//
// Two captures of the same page usually differ in text (prices, timestamps)
// but keep their element structure. A 64-bit structure hash recorded per
// snapshot lets the pipeline cheaply ask "has this page been rebuilt since
// the definition was trained?", a retraining signal that output-drift checks
// alone can miss.
package pagehash

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"golang.org/x/net/html"
)

// shingleSize is the n-gram width over the tag sequence. Three tags per
// shingle keeps local structure (e.g. div>span>a) without making the hash
// hypersensitive to a single inserted element.
const shingleSize = 3

// Fingerprint computes a 64-bit SimHash over the document's start-tag
// sequence. Text content and attributes are ignored. Returns 0 for documents
// with no elements.
func Fingerprint(htmlStr string) uint64 {
	tags := tagSequence(htmlStr)
	if len(tags) == 0 {
		return 0
	}

	var vector [64]int
	accumulate := func(token string) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	if len(tags) < shingleSize {
		for _, t := range tags {
			accumulate(t)
		}
	} else {
		for i := 0; i <= len(tags)-shingleSize; i++ {
			accumulate(strings.Join(tags[i:i+shingleSize], ">"))
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// tagSequence walks the document with the tokenizer and collects start and
// self-closing tag names in document order.
func tagSequence(htmlStr string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(htmlStr))
	var tags []string
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return tags
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tags = append(tags, string(name))
		}
	}
}
