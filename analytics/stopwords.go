package analytics

// stopWords is a curated, domain- and language-general list dropped
// during tokenization (§4.3.3). It intentionally keeps finance-jargon
// words like "bull"/"bear" that carry signal for this corpus.
var stopWords = buildStopWords()

func buildStopWords() map[string]bool {
	words := []string{
		"the", "and", "for", "are", "but", "not", "you", "all", "any",
		"can", "had", "her", "was", "one", "our", "out", "day", "get",
		"has", "him", "his", "how", "man", "new", "now", "old", "see",
		"two", "way", "who", "boy", "did", "its", "let", "put", "say",
		"she", "too", "use", "this", "that", "with", "have", "from",
		"they", "will", "would", "there", "their", "what", "about",
		"which", "when", "make", "like", "time", "just", "know",
		"take", "into", "year", "your", "good", "some", "could",
		"them", "than", "then", "look", "only", "come", "over",
		"think", "also", "back", "after", "work", "first", "well",
		"even", "want", "because", "these", "give", "most", "been",
		"much", "before", "right", "through", "each", "other", "being",
		"does", "doing", "while", "where", "here", "again", "more",
		"very", "should", "those", "such", "same", "still", "many",
		"own", "said", "says", "today", "yesterday", "tomorrow",
		"amp", "https", "http", "com", "www", "via",
	}
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}
