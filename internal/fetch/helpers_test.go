package fetch

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

func readJSONBody(r *http.Request, out any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(out)
}

// countAliases counts how many aliased repository sub-selections a
// synthesized batch query contains, letting a fake GraphQL server infer
// the batch size a request was sent with.
func countAliases(query string) int {
	return strings.Count(query, "repository(owner:")
}
