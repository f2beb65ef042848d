package extract

import "offer-hunter/pkg/jsonvalue"

// knownProductPaths are the blob shapes seen on listing pages, most specific first.
var knownProductPaths = [][]string{
	{"results", "products"},
	{"products"},
	{"searchResult", "items"},
	{"props", "pageProps", "products"},
	{"props", "pageProps", "searchResult", "products"},
}

var productIndicatorKeys = []string{"title", "name", "price", "url"}

const maxSearchDepth = 3

// FindProducts returns the product-like records inside blob. Known shapes win;
// otherwise the first qualifying list within maxSearchDepth levels is used.
func FindProducts(blob jsonvalue.Value) []jsonvalue.Value {
	for _, path := range knownProductPaths {
		if v, ok := blob.Path(path...); ok {
			return v.Items()
		}
	}
	return searchProducts(blob, 0)
}

func searchProducts(v jsonvalue.Value, depth int) []jsonvalue.Value {
	if depth > maxSearchDepth {
		return nil
	}
	if looksLikeProducts(v) {
		return v.Items()
	}
	for _, key := range v.Keys() {
		child, _ := v.Get(key)
		if found := searchProducts(child, depth+1); len(found) > 0 {
			return found
		}
	}
	return nil
}

// looksLikeProducts: a non-empty list of mappings where at least one mapping
// carries a product indicator key.
func looksLikeProducts(v jsonvalue.Value) bool {
	items := v.Items()
	if len(items) == 0 {
		return false
	}
	indicated := false
	for _, item := range items {
		if item.Kind() != jsonvalue.Mapping {
			return false
		}
		if !indicated {
			for _, k := range productIndicatorKeys {
				if item.Has(k) {
					indicated = true
					break
				}
			}
		}
	}
	return indicated
}
