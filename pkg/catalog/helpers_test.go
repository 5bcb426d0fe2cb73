package catalog_test

import (
	"testing"

	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, src string) catalog.Document {
	t.Helper()
	doc, err := catalog.ParseDocument([]byte(src))
	require.NoError(t, err)
	return doc
}

func mustLinks(t *testing.T, src string) []catalog.Link {
	t.Helper()
	return mustDoc(t, `{"links": `+src+`}`).Links()
}

func hrefs(links []catalog.Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Href())
	}
	return out
}
