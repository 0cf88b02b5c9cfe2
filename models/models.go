package models

// Source is a named feed endpoint
type Source struct {
	Name string `json:"name" toml:"name"`
	URL  string `json:"url" toml:"url"`
}

// Article is the normalized record extracted from one feed item
type Article struct {
	Feed    string `json:"feed"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Outcome is the result of fetching and extracting a single source.
// A nil Err means the fetch succeeded, even if Articles is empty.
type Outcome struct {
	Source   Source
	Articles []Article
	Err      error
}

func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

// Failure describes a feed that could not be fetched or parsed
type Failure struct {
	Feed  string `json:"feed"`
	URL   string `json:"url"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// Result is the merged output of one aggregation run
type Result struct {
	Articles  []Article `json:"articles"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Failures  []Failure `json:"failures"`
}

// SearchInitEvent is sent first on a search stream
type SearchInitEvent struct {
	Stream string `json:"stream"`
	Query  string `json:"query"`
	Feeds  int    `json:"feeds"`
}

// SearchEndEvent terminates a search stream
type SearchEndEvent struct {
	Stream   string    `json:"stream"`
	Matches  int       `json:"matches"`
	Failures []Failure `json:"failures"`
}
