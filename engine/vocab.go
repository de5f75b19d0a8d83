package engine

import (
	"bufio"
	"os"
	"strings"
)

// wordBoundaryMarker is the SentencePiece-style marker the reference model
// family uses to denote the start of a new word (§4.4).
const wordBoundaryMarker = "▁"

// vocabulary maps token indices to sub-word strings and reconstructs
// natural text from a token sequence (§4.4).
type vocabulary struct {
	tokens  []string
	blankID int
}

// loadVocabulary reads a UTF-8 text file with one token per line, index =
// line number starting at 0. Grounded on ai/gigaam_rnnt.go's
// loadGigaAMRNNTVocab (bufio.Scanner, last-space-delimited "token id"
// lines). Unlike that reference, blankID is pinned to 0 rather than
// relocated to wherever a "<blk>"/"<blank>"/"[blank]" literal happens to
// appear in the file: §4.4 states unconditionally that index 0 is always
// the blank symbol, with no exception for vocab files that also contain
// such a literal token elsewhere.
func loadVocabulary(path string) (*vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tokens []string

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			tokens = append(tokens, "")
			continue
		}

		lastSpace := strings.LastIndex(line, " ")
		if lastSpace < 0 {
			lastSpace = strings.LastIndex(line, "\t")
		}

		var token string
		switch {
		case lastSpace > 0:
			token = line[:lastSpace]
		case lastSpace == 0:
			token = " "
		default:
			token = line
		}

		tokens = append(tokens, token)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return &vocabulary{tokens: tokens, blankID: 0}, nil
}

func (v *vocabulary) size() int { return len(v.tokens) }

// detokenize concatenates token strings for the given index sequence,
// starting a new word (preceded by a space) at each wordBoundaryMarker,
// and stripping the final string's leading whitespace (§4.4).
func (v *vocabulary) detokenize(tokenIDs []int) string {
	var b strings.Builder
	for _, id := range tokenIDs {
		if id < 0 || id >= len(v.tokens) {
			continue
		}
		tok := v.tokens[id]
		if strings.HasPrefix(tok, wordBoundaryMarker) {
			b.WriteByte(' ')
			b.WriteString(strings.TrimPrefix(tok, wordBoundaryMarker))
		} else {
			b.WriteString(tok)
		}
	}
	return strings.TrimLeft(b.String(), " \t\n")
}
