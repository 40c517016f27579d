package types

// TallyEntry is one canonical title's final count, sorted into
// AnalysisResult.Tally by count descending, ties broken by the order in
// which titles were first matched, then by title length ascending.
type TallyEntry struct {
	Title        string
	Count        int
	ContributingPosts []*Post
}

// AnalysisResult is the single serialized snapshot a pipeline run
// produces: the ranked tally, the posts that matched nothing, the total
// post count considered, and the root post for display.
type AnalysisResult struct {
	Tally         []TallyEntry
	Uncategorized []*Post
	PostCount     int
	RootPost      *Post
}
