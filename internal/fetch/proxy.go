package fetch

import "strings"

// ProxyFunc rewrites a target URL so that fetching the result yields the
// target's body, typically through a CORS relay.
type ProxyFunc func(target string) string

// Direct fetches the target without a relay.
func Direct(target string) string { return target }

// TemplateProxy substitutes the target into a relay URL template containing
// "{url}", e.g. "https://urlreq.appspot.com/req?method=GET&url={url}".
// An empty template yields Direct.
func TemplateProxy(tmpl string) ProxyFunc {
	if tmpl == "" {
		return Direct
	}
	return func(target string) string {
		return strings.ReplaceAll(tmpl, "{url}", target)
	}
}

// SourceURL expands a source template containing "{identity}".
func SourceURL(tmpl, identity string) string {
	return strings.ReplaceAll(tmpl, "{identity}", identity)
}
