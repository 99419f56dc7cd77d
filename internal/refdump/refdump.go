// Package refdump parses reference-table dump files: blank-line separated
// blocks of label/value pairs describing one entity/level each. Dumps come
// from wiki scrapes or manual exports; the host appends them to the revision
// store.
package refdump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Block is one parsed entity/level stat block. ContentHash covers the raw
// fields in a canonical order, so reordered-but-identical dumps hash equal.
type Block struct {
	EntityID    string
	Level       int
	RawFields   map[string]string
	ContentHash string
}

// Parse reads every block from a dump. A block needs Entity and Level lines;
// blocks missing either are skipped with their index reported in skipped.
// All other label/value lines are kept verbatim as raw fields.
func Parse(text string) (blocks []Block, skipped []int) {
	for i, chunk := range splitBlocks(text) {
		b, ok := parseBlock(chunk)
		if !ok {
			skipped = append(skipped, i)
			continue
		}
		blocks = append(blocks, b)
	}
	return blocks, skipped
}

func splitBlocks(text string) []string {
	var chunks []string
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			chunks = append(chunks, strings.Join(cur, "\n"))
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return chunks
}

func parseBlock(chunk string) (Block, bool) {
	b := Block{RawFields: make(map[string]string)}
	haveEntity, haveLevel := false, false

	for _, line := range strings.Split(chunk, "\n") {
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		label = strings.TrimSpace(label)
		value = strings.TrimSpace(value)
		if label == "" || value == "" {
			continue
		}
		switch strings.ToLower(label) {
		case "entity":
			b.EntityID = value
			haveEntity = true
		case "level":
			lvl, err := strconv.Atoi(value)
			if err != nil {
				return Block{}, false
			}
			b.Level = lvl
			haveLevel = true
		default:
			b.RawFields[label] = value
		}
	}

	if !haveEntity || !haveLevel || len(b.RawFields) == 0 {
		return Block{}, false
	}
	b.ContentHash = hashFields(b.RawFields)
	return b, true
}

// hashFields hashes fields in sorted key order.
func hashFields(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		fmt.Fprintf(h, "%s\x00%s\x00", k, fields[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
