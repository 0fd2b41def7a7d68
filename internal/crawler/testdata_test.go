package crawler

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

// listingArticle renders one otomoto-style offer container. Empty arguments
// leave the matching block out.
func listingArticle(href, title, price, image, promoted string) string {
	var b strings.Builder
	b.WriteString(`<article data-id="1">`)
	if promoted != "" {
		fmt.Fprintf(&b, `<div class="ooa-1wmudpx">%s</div>`, promoted)
	}
	if title != "" {
		fmt.Fprintf(&b, `<p class="e2z61p70 ooa-1ed90th er34gjf0"><a href="%s">%s</a></p>`, href, title)
	}
	if price != "" {
		fmt.Fprintf(&b, `<div><h3 class="e6r213i1 ooa-1n2paoq er34gjf0">%s</h3></div>`, price)
	}
	if image != "" {
		fmt.Fprintf(&b, `<img class="e9xldqm4 ooa-2zzg2s" src="%s" alt="">`, image)
	}
	b.WriteString(`<dl>
		<dd data-parameter="mileage">182 000 km</dd>
		<dd data-parameter="fuel_type">Benzyna</dd>
		<dd data-parameter="gearbox">Manualna</dd>
		<dd data-parameter="year">2012</dd>
	</dl>
	<dl><dd class="ooa-1jb4k0u ecru18x15"><p class="ooa-gmxnzj">Kraków (Małopolskie)</p></dd></dl>`)
	b.WriteString(`</article>`)
	return b.String()
}

func listingPage(articles ...string) string {
	return "<html><body><main>" + strings.Join(articles, "\n") + "</main></body></html>"
}

func parseDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
