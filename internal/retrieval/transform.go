package retrieval

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxVariants bounds query expansion to the original plus four synonym
// expansions (spec §4.E).
const maxVariants = 5

// SynonymMap maps a lowercased term to its synonym set, loaded from the
// query_transforms YAML file (spec §6).
type SynonymMap map[string][]string

// Expand produces up to maxVariants query strings: the original query
// followed by up to four single-term substitutions drawn from synonyms. If
// synonyms is nil or expansion finds nothing to substitute, the result is
// just [query].
func Expand(query string, synonyms SynonymMap) []string {
	variants := []string{query}
	if synonyms == nil {
		return variants
	}
	tokens := strings.Fields(query)
	for _, tok := range tokens {
		lower := strings.ToLower(strings.Trim(tok, ".,!?;:()\"'"))
		subs, ok := synonyms[lower]
		if !ok {
			continue
		}
		for _, sub := range subs {
			if len(variants) >= maxVariants {
				return variants
			}
			variants = append(variants, strings.Replace(query, tok, sub, 1))
		}
	}
	return variants
}

// LoadSynonyms reads the query_transformations.yaml file (spec §6) into a
// SynonymMap. A missing file is not an error: it means no query expansion,
// not a misconfiguration.
func LoadSynonyms(path string) (SynonymMap, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SynonymMap{}, nil
		}
		return nil, err
	}
	var synonyms SynonymMap
	if err := yaml.Unmarshal(content, &synonyms); err != nil {
		return nil, err
	}
	return synonyms, nil
}
