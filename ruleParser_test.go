package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRoutingRules(t *testing.T) {
	tests := []struct {
		description          string
		labels               map[string]string
		expectedRoutingURLs  []string
		expectedPathPrefixes []string
	}{
		{
			description: "single host and path prefix",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "Host(`app.example.com`) && PathPrefix(`/api`)",
			},
			expectedRoutingURLs:  []string{"http://app.example.com"},
			expectedPathPrefixes: []string{"/api"},
		},
		{
			description: "several hosts in one matcher and across routers are deduplicated in order",
			labels: map[string]string{
				"traefik.http.routers.a.rule": "Host(`one.local`, `two.local`)",
				"traefik.http.routers.b.rule": "Host(`two.local`) || Host(\"three.local\")",
			},
			expectedRoutingURLs:  []string{"http://one.local", "http://two.local", "http://three.local"},
			expectedPathPrefixes: []string{},
		},
		{
			description: "labels that are not router rules are ignored",
			labels: map[string]string{
				"traefik.http.routers.web.entrypoints": "Host(`ignored.local`)",
				"traefik.http.services.web.rule":       "Host(`ignored.local`)",
				"catalog.enable":                       "true",
			},
			expectedRoutingURLs:  []string{},
			expectedPathPrefixes: []string{},
		},
		{
			description: "other matchers do not contribute",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "HostRegexp(`{sub:[a-z]+}.local`) && Path(`/exact`) && Headers(`X-Host`, `a`)",
			},
			expectedRoutingURLs:  []string{},
			expectedPathPrefixes: []string{},
		},
		{
			description: "nested groups keep every literal of the matcher",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "(Host(`a.local`) || Host(`b.local`)) && !PathPrefix(`/admin`)",
			},
			expectedRoutingURLs:  []string{"http://a.local", "http://b.local"},
			expectedPathPrefixes: []string{"/admin"},
		},
		{
			description: "unterminated literal yields the part parsed before it",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "Host(`ok.local`) && PathPrefix(`/broken",
			},
			expectedRoutingURLs:  []string{"http://ok.local"},
			expectedPathPrefixes: []string{},
		},
		{
			description: "matcher without parenthesis is not an invocation",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "Host `nope.local`",
			},
			expectedRoutingURLs:  []string{},
			expectedPathPrefixes: []string{},
		},
		{
			description: "unbalanced parenthesis still returns the literals seen",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "Host(`open.local`",
			},
			expectedRoutingURLs:  []string{"http://open.local"},
			expectedPathPrefixes: []string{},
		},
		{
			description: "empty literals are skipped",
			labels: map[string]string{
				"traefik.http.routers.web.rule": "Host(``) && PathPrefix(` `)",
			},
			expectedRoutingURLs:  []string{},
			expectedPathPrefixes: []string{},
		},
		{
			description:          "no labels",
			labels:               nil,
			expectedRoutingURLs:  []string{},
			expectedPathPrefixes: []string{},
		},
	}

	for _, tc := range tests {
		routingURLs, pathPrefixes := parseRoutingRules(tc.labels)
		assert.Equal(t, tc.expectedRoutingURLs, routingURLs, tc.description)
		assert.Equal(t, tc.expectedPathPrefixes, pathPrefixes, tc.description)
	}
}

func TestTokenizeRule(t *testing.T) {
	tokens := tokenizeRule("Host(`a.local`) && PathPrefix('/x')")

	kinds := make([]tokenKind, 0, len(tokens))
	for _, tok := range tokens {
		kinds = append(kinds, tok.kind)
	}
	assert.Equal(t, []tokenKind{
		tokenIdent, tokenOpenParen, tokenString, tokenCloseParen,
		tokenOther, tokenOther,
		tokenIdent, tokenOpenParen, tokenString, tokenCloseParen,
	}, kinds)
	assert.Equal(t, "a.local", tokens[2].value)
	assert.Equal(t, "/x", tokens[8].value)
}
