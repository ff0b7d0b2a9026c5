package matching

// Match score constants. Higher scores indicate more specific matches;
// the qualifying resource with the highest total wins, ties broken by
// declaration order.
const (
	// ScoreLiteralSegment is awarded per literal path segment that
	// matches exactly.
	ScoreLiteralSegment = 10

	// ScorePathParamSegment is awarded per {name} path segment, which
	// matches any single non-empty segment. Lower than a literal
	// segment because it is less specific.
	ScorePathParamSegment = 5

	// ScoreQueryConstraint is awarded per required query parameter that
	// matches.
	ScoreQueryConstraint = 3

	// ScoreHeaderConstraint is awarded per required header that matches.
	ScoreHeaderConstraint = 3

	// ScoreBodyMatcher is awarded once when a resource declares a body
	// matcher and it matches, regardless of how many of its fields are
	// set (they are ANDed together, not scored individually).
	ScoreBodyMatcher = 4
)
