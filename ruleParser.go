package main

import "strings"

const (
	routerRuleKeyPrefix = "traefik.http.routers."
	routerRuleKeySuffix = ".rule"
	hostMatcher         = "Host"
	pathPrefixMatcher   = "PathPrefix"
	routingURLScheme    = "http"
)

type tokenKind int

const (
	tokenIdent tokenKind = iota
	tokenOpenParen
	tokenCloseParen
	tokenString
	tokenOther
)

type token struct {
	kind  tokenKind
	value string
}

// tokenizeRule splits a routing rule into matcher names, parentheses and
// quoted literals. An unterminated literal ends the token stream.
func tokenizeRule(rule string) []token {
	var tokens []token
	for i := 0; i < len(rule); {
		c := rule[i]
		switch {
		case c == '(':
			tokens = append(tokens, token{kind: tokenOpenParen})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenCloseParen})
			i++
		case c == '`' || c == '"' || c == '\'':
			end := strings.IndexByte(rule[i+1:], c)
			if end < 0 {
				return tokens
			}
			tokens = append(tokens, token{kind: tokenString, value: rule[i+1 : i+1+end]})
			i += end + 2
		case isIdentByte(c):
			start := i
			for i < len(rule) && isIdentByte(rule[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdent, value: rule[start:i]})
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		default:
			tokens = append(tokens, token{kind: tokenOther, value: string(c)})
			i++
		}
	}
	return tokens
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// matcherArguments returns every string literal passed to an invocation of
// the named matcher. Literals inside nested groups of the invocation count too.
func matcherArguments(tokens []token, matcher string) []string {
	var args []string
	for i := 0; i < len(tokens); i++ {
		if tokens[i].kind != tokenIdent || tokens[i].value != matcher {
			continue
		}
		if i+1 >= len(tokens) || tokens[i+1].kind != tokenOpenParen {
			continue
		}
		depth := 0
		j := i + 1
		for ; j < len(tokens); j++ {
			switch tokens[j].kind {
			case tokenOpenParen:
				depth++
			case tokenCloseParen:
				depth--
			case tokenString:
				args = append(args, tokens[j].value)
			}
			if depth == 0 {
				break
			}
		}
		i = j
	}
	return args
}

func isRoutingRuleKey(key string) bool {
	return strings.HasPrefix(key, routerRuleKeyPrefix) && strings.HasSuffix(key, routerRuleKeySuffix)
}

// parseRoutingRules extracts hostnames (as scheme://host URLs) and path
// prefixes from all router rule labels. Keys are visited in sorted order so
// the first-seen order is stable across cycles.
func parseRoutingRules(labels map[string]string) (routingURLs []string, pathPrefixes []string) {
	for _, key := range sortedKeys(labels) {
		if !isRoutingRuleKey(key) {
			continue
		}
		tokens := tokenizeRule(labels[key])
		for _, host := range matcherArguments(tokens, hostMatcher) {
			host = strings.TrimSpace(host)
			if host == "" {
				continue
			}
			routingURLs = append(routingURLs, routingURLScheme+"://"+host)
		}
		for _, path := range matcherArguments(tokens, pathPrefixMatcher) {
			if strings.TrimSpace(path) == "" {
				continue
			}
			pathPrefixes = append(pathPrefixes, path)
		}
	}
	return dedupe(routingURLs), dedupe(pathPrefixes)
}

func dedupe(values []string) []string {
	result := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
