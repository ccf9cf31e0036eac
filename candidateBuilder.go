package main

import "strings"

// buildLanURLs joins each path prefix onto the base address with exactly one
// separator between them. Without a base address there are no LAN URLs.
func buildLanURLs(baseAddress string, pathPrefixes []string) []string {
	if baseAddress == "" {
		return []string{}
	}
	base := strings.TrimRight(baseAddress, "/")
	urls := make([]string, 0, len(pathPrefixes))
	for _, path := range pathPrefixes {
		urls = append(urls, base+"/"+strings.TrimLeft(path, "/"))
	}
	return dedupe(urls)
}

// buildCandidates orders probe candidates: hostname-derived first.
func buildCandidates(routingURLs []string, lanURLs []string) []string {
	all := make([]string, 0, len(routingURLs)+len(lanURLs))
	all = append(all, routingURLs...)
	all = append(all, lanURLs...)
	return dedupe(all)
}
