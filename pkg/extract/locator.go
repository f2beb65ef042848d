// Package extract recovers offer records from listing pages: it locates embedded
// state blobs, finds product lists inside them, and resolves and normalizes the
// individual offer fields from either structured data or markup.
package extract

import (
	"regexp"

	"offer-hunter/pkg/jsonvalue"
)

// embeddedPatterns are tried in order; each captures one JSON blob.
var embeddedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*({.*?});\s*</script>`),
	regexp.MustCompile(`(?s)window\.__PRELOADED_STATE__\s*=\s*({.*?});\s*</script>`),
	regexp.MustCompile(`(?s)window\.__APOLLO_STATE__\s*=\s*({.*?});\s*</script>`),
	regexp.MustCompile(`(?s)<script id="__NEXT_DATA__" type="application/json">(.*?)</script>`),
}

// FindEmbedded returns the first embedded state blob in raw that parses as JSON.
// A page without one is normal and reported as false.
func FindEmbedded(raw string) (jsonvalue.Value, bool) {
	for _, pattern := range embeddedPatterns {
		for _, m := range pattern.FindAllStringSubmatch(raw, -1) {
			v, err := jsonvalue.ParseString(m[1])
			if err != nil {
				continue
			}
			return v, true
		}
	}
	return jsonvalue.Value{}, false
}
