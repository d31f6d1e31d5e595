package staging

import (
	"fmt"
	"strings"
)

// Scheme prefixes every staging object reference stored on queue items.
const Scheme = "staging"

// URIFor builds the canonical staging reference for a bucket and key.
func URIFor(bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, bucket, strings.TrimPrefix(key, "/"))
}

// KeyFor builds the item-scoped object key for a named artifact.
func KeyFor(itemKey, name string) string {
	return fmt.Sprintf("items/%s/%s", itemKey, name)
}

// ParseURI splits a staging reference into bucket and key.
func ParseURI(uri string) (bucket, key string, err error) {
	prefix := Scheme + "://"
	if !strings.HasPrefix(uri, prefix) {
		return "", "", fmt.Errorf("staging uri %q: expected scheme %s://", uri, Scheme)
	}
	rest := strings.TrimPrefix(uri, prefix)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", fmt.Errorf("staging uri %q: expected %s://bucket/key", uri, Scheme)
	}
	return bucket, key, nil
}
