package har

import "strings"

// Find returns the first entry whose request method equals method and whose
// request URL ends with path. Entries are scanned in capture order, so when
// several entries qualify the earliest recorded one wins.
//
// The method comparison is case-sensitive and the suffix test is a literal
// string comparison; a query string is part of both sides.
func Find(l Log, method, path string) (Entry, bool) {
	for _, e := range l.Entries {
		if e.Request.Method == method && strings.HasSuffix(e.Request.URL, path) {
			return e, true
		}
	}
	return Entry{}, false
}
