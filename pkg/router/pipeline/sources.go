package pipeline

import (
	"civic-chat-be/pkg/router"
)

// ExtractSources builds the citation list for a reply: executor-reported
// tables in consult order, then document chunks in retrieval order.
// Duplicates keep their first occurrence.
func ExtractSources(structuredResult *router.StructuredResult, unstructuredResult *router.UnstructuredResult) []router.SourceCitation {
	sources := []router.SourceCitation{}
	seen := make(map[string]bool)

	if structuredResult != nil {
		for _, table := range structuredResult.Tables {
			key := "sql|" + table
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, router.SourceCitation{
				Type:  "sql",
				Table: table,
			})
		}
	}

	if unstructuredResult != nil {
		for _, chunk := range unstructuredResult.Chunks {
			key := "rag|" + chunk.Source + "|" + chunk.DocType
			if seen[key] {
				continue
			}
			seen[key] = true
			sources = append(sources, router.SourceCitation{
				Type:    "rag",
				Source:  chunk.Source,
				DocType: chunk.DocType,
			})
		}
	}

	return sources
}
