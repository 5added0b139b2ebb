package search

import (
	"sort"
	"strings"
)

// DomainSynonyms maps short domain terms to a block of related vocabulary,
// used to bridge the gap between a terse user query and the fuller wording
// that shows up in stored documentation.
var DomainSynonyms = map[string]string{
	"caching":     "cache cached caching invalidation ttl eviction lru redis memcached",
	"testing":     "test tests testing unit integration e2e suite coverage assertions mock fixture",
	"deployment":  "deploy deployment ci cd pipeline release rollout rollback staging production",
	"security":    "security auth authentication authorization encryption vulnerability secrets",
	"performance": "performance latency throughput optimization profiling benchmark bottleneck",
	"migration":   "migration migrate schema upgrade rollback breaking change versioning",
	"api":         "api endpoint rest graphql rpc route handler request response",
	"database":    "database db sql query schema index table transaction orm",
	"auth":        "authentication authorization jwt oauth session tokens login",
	"docker":      "docker container image dockerfile compose kubernetes k8s pod",
	"react":       "react component hook jsx state props render frontend",
	"typescript":  "typescript ts types interface generics tsconfig",
	"astro":       "astro island component ssr static site",
	"fastapi":     "fastapi python pydantic endpoint route async",
	"mcp":         "mcp model context protocol tool call server client",
	"rag":         "rag retrieval augmented generation embedding vector chunk",
	"chunking":    "chunking chunk split segment token window overlap",
	"monitoring":  "monitoring metrics observability logging tracing alerting dashboard",
}

// maxExpansionQueryLength is the cutoff above which a query is assumed to
// already be descriptive enough that synonym expansion would dilute it.
const maxExpansionQueryLength = 60

// QueryExpander appends one domain synonym block to short queries so BM25
// keyword search can bridge vocabulary gaps between the asker's words and
// the stored documents' words.
type QueryExpander struct {
	synonyms map[string]string
	terms    []string // sorted keys, for deterministic first-match order
}

// NewQueryExpander creates a query expander using the default domain synonym table.
func NewQueryExpander() *QueryExpander {
	terms := make([]string, 0, len(DomainSynonyms))
	for t := range DomainSynonyms {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return &QueryExpander{synonyms: DomainSynonyms, terms: terms}
}

// Expand appends the first matching synonym block for any term found in the
// query, provided the query is at most maxExpansionQueryLength characters.
// Longer queries pass through unchanged on the assumption they are already
// descriptive enough.
func (e *QueryExpander) Expand(query string) string {
	if len(query) > maxExpansionQueryLength {
		return query
	}

	lower := strings.ToLower(query)
	for _, term := range e.terms {
		if strings.Contains(lower, term) {
			return query + " " + e.synonyms[term]
		}
	}

	return query
}
