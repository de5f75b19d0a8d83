package dictionary

import "github.com/antzucaro/matchr"

// fuzzyLookup accepts a hit when the Levenshtein distance between key and a
// canonical term's phonetic key is within both the absolute and relative
// caps (§4.5 step 2: "≤ ceil(len/5) and ≤ 2 absolute").
func (d *Dictionary) fuzzyLookup(key string) (string, bool) {
	threshold := ceilDiv(len(key), d.maxRelDivisor)
	if threshold > d.maxAbsDistance {
		threshold = d.maxAbsDistance
	}

	best := ""
	bestDist := threshold + 1
	for candidateKey, t := range d.byKey {
		dist := matchr.Levenshtein(key, candidateKey)
		if dist <= threshold && dist < bestDist {
			bestDist = dist
			best = t.canonical
		}
	}
	if best == "" {
		return "", false
	}
	return best, true
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return a
	}
	return (a + b - 1) / b
}
