package agent

import (
	"fmt"
	"strings"

	"github.com/kumar8074/SpectraRAG/core"
)

const generalSystemPrompt = "You are a helpful Assistant, Answer the user's question using your knowledge."

// contextFreeMarker prefixes answers the response agent produced without any
// retrieved context, so callers can tell them apart from grounded answers
// even when only the answer text survives.
const contextFreeMarker = "No relevant passages were found in the uploaded document; the following answer is based on general knowledge."

func expansionPrompt(query string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d search queries to search for to answer the user's question. ", n)
	b.WriteString("These search queries should be diverse in nature - do not generate repetitive ones. ")
	b.WriteString("Return exactly one query per line with no numbering.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	return b.String()
}

func groundedPrompt(query string, chunks []core.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant. Use the following context to answer the question. ")
	b.WriteString("Answer only from the context; if the context does not contain the answer, say so.\n\n")
	b.WriteString("Context:\n")
	b.WriteString(formatContext(chunks))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

func contextFreePrompt(query string) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant. No document context is available for this question, ")
	b.WriteString("so answer from your general knowledge.\n\n")
	b.WriteString("Question:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

func generalPrompt(query string) string {
	return generalSystemPrompt + "\n\nQuestion:\n" + query
}

// formatContext renders retrieved chunks as a numbered block naming each
// chunk's source document.
func formatContext(chunks []core.RetrievedChunk) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] (%s)\n%s", i+1, chunk.Source, chunk.Content)
	}
	return b.String()
}
