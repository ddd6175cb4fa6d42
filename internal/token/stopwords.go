package token

var stopWords = func() map[string]bool {
	words := []string{
		// Articles
		"a", "an", "the",

		// Prepositions
		"of", "at", "by", "for", "with", "about", "into", "through",
		"to", "from", "up", "down", "in", "out", "on", "off", "over", "under",

		// Conjunctions
		"and", "or", "but", "if", "as", "than", "so", "nor",

		// Common verbs
		"is", "am", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did",
		"will", "would", "should", "could", "can", "may",

		// Other common words
		"this", "that", "these", "those",
		"what", "which", "who", "when", "where", "why", "how",
		"all", "each", "some", "no", "not", "only", "same", "then", "there",

		// URL noise
		"www", "http", "https", "html", "htm", "php", "index",
	}

	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}()
