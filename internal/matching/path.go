package matching

import "strings"

// MatchResourcePath checks whether path satisfies template, a resource
// path template whose {name} segments match any single non-empty
// segment. Returns whether it matched, the accumulated specificity
// score, and any captured path parameters.
func MatchResourcePath(template, path string) (matched bool, score int, params map[string]string) {
	templateSegs := splitPath(template)
	pathSegs := splitPath(path)
	if len(templateSegs) != len(pathSegs) {
		return false, 0, nil
	}

	for i, seg := range templateSegs {
		if name, ok := pathParamName(seg); ok {
			if params == nil {
				params = make(map[string]string)
			}
			params[name] = pathSegs[i]
			score += ScorePathParamSegment
			continue
		}
		if seg != pathSegs[i] {
			return false, 0, nil
		}
		score += ScoreLiteralSegment
	}
	return true, score, params
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func pathParamName(seg string) (string, bool) {
	if len(seg) > 2 && strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
		return seg[1 : len(seg)-1], true
	}
	return "", false
}
