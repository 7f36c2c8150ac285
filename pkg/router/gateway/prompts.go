package gateway

import (
	"fmt"
	"strings"

	"civic-chat-be/pkg/router"
)

// Prompt builders for every gateway operation. The assistant persona is a
// friendly, non-technical guide to Dorchester community data; the decision
// prompts are strict closed-set classifiers.

const assistantPersona = "You are a friendly, non-technical assistant helping people understand Dorchester community data and policies.\n" +
	"Use clear, everyday language and imagine you are talking to a neighbor, not a technical expert.\n" +
	"Do NOT mention SQL, databases, retrieval methods, or internal tools."

func buildPlanReusePrompt(question string, recent []router.Turn, digest router.CacheDigest) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("You decide whether a cached retrieval result can answer a new question.\n")
	prompt.WriteString("The only thing that matters is whether the question is ANSWERABLE FROM THE CACHED DIGEST below.\n")
	prompt.WriteString("Topical similarity is NOT enough: a question on the same topic that asks for different figures, different time ranges, or different records needs fresh data.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<cached_digest>\n")
	prompt.WriteString(fmt.Sprintf("Previous question: %s\n", digest.Question))
	prompt.WriteString(fmt.Sprintf("Previous answer: %s\n", digest.Answer))
	prompt.WriteString(fmt.Sprintf("Mode: %s\n", digest.Mode))
	if digest.HasStructured {
		prompt.WriteString(fmt.Sprintf("Tables consulted: %s (%d rows)\n", strings.Join(digest.Tables, ", "), digest.RowCount))
	}
	if digest.HasUnstructured {
		prompt.WriteString(fmt.Sprintf("Documents consulted: %s (%d passages)\n", strings.Join(digest.Sources, ", "), digest.ChunkCount))
	}
	prompt.WriteString("</cached_digest>\n\n")

	writeRecentTurns(&prompt, recent)

	prompt.WriteString(fmt.Sprintf("New question: %s\n\n", question))
	prompt.WriteString("Reply with exactly one word:\n")
	prompt.WriteString("REUSE   - the cached digest already answers the new question\n")
	prompt.WriteString("REFRESH - fresh retrieval is needed\n")

	return prompt.String()
}

func buildClassifyPrompt(question string, recent []router.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("You are a routing classifier for a chatbot that combines structured civic records and community documents.\n")
	prompt.WriteString("Classify the user's question into exactly one mode.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<routing_rules>\n")
	prompt.WriteString("SQL     - pure statistics, counts, trends, comparisons, numeric breakdowns from civic tables\n")
	prompt.WriteString("          (service requests, incident reports, weekly events). Event and calendar questions are SQL:\n")
	prompt.WriteString("          schedules live in the weekly_events table, not in documents.\n")
	prompt.WriteString("RAG     - purely qualitative, descriptive, or policy questions answered by documents and transcripts,\n")
	prompt.WriteString("          including opinion and perspective questions ('what do residents think about...').\n")
	prompt.WriteString("HYBRID  - both numbers AND context are needed. Crime and safety questions are always HYBRID:\n")
	prompt.WriteString("          statistics come from the incident tables, community perspectives come from transcripts.\n")
	prompt.WriteString("HISTORY - a follow-up fully answerable from the prior conversation, with no new data needed\n")
	prompt.WriteString("          ('what was that number again?', 'can you rephrase that?').\n")
	prompt.WriteString("</routing_rules>\n\n")

	writeRecentTurns(&prompt, recent)

	prompt.WriteString(fmt.Sprintf("Question: %s\n\n", question))
	prompt.WriteString("Reply with exactly one word: SQL, RAG, HYBRID, or HISTORY.\n")

	return prompt.String()
}

func buildDraftSQLPrompt(question string, schema string, recent []router.Turn) string {
	var prompt strings.Builder

	prompt.WriteString("<task>\n")
	prompt.WriteString("Write ONE read-only SQL query for PostgreSQL that answers the user's question from the tables below.\n")
	prompt.WriteString("</task>\n\n")

	prompt.WriteString("<schema>\n")
	prompt.WriteString(schema)
	prompt.WriteString("\n</schema>\n\n")

	prompt.WriteString("<rules>\n")
	prompt.WriteString("1. SELECT statements only. Never write INSERT, UPDATE, DELETE, DDL, or multiple statements.\n")
	prompt.WriteString("2. Use only tables and columns listed in the schema.\n")
	prompt.WriteString("3. Prefer aggregates and ORDER BY for trend and count questions.\n")
	prompt.WriteString("4. Do not add a LIMIT clause unless the question asks for a specific number of rows.\n")
	prompt.WriteString("</rules>\n\n")

	writeRecentTurns(&prompt, recent)

	prompt.WriteString(fmt.Sprintf("Question: %s\n\n", question))
	prompt.WriteString("Reply with a single JSON object and nothing else: {\"sql\": \"SELECT ...\"}\n")

	return prompt.String()
}

func buildSQLAnswerPrompt(question string, resultBlock string) string {
	var prompt strings.Builder

	prompt.WriteString(assistantPersona)
	prompt.WriteString("\n\n")

	prompt.WriteString("<query_result>\n")
	prompt.WriteString(resultBlock)
	prompt.WriteString("\n</query_result>\n\n")

	prompt.WriteString("Use ONLY the query result above. Never invent figures that are not in it.\n")
	prompt.WriteString("If the result is limited, be honest about what it does and does not show.\n\n")

	prompt.WriteString(fmt.Sprintf("QUESTION: %s\n\n", question))
	prompt.WriteString("Please answer for the user in clear, everyday language:")

	return prompt.String()
}

func buildRAGAnswerPrompt(question string, contextBlock string, recent []router.Turn) string {
	var prompt strings.Builder

	prompt.WriteString(assistantPersona)
	prompt.WriteString("\n")
	prompt.WriteString("Use only the provided SOURCES and do not add information that is not supported by the text.\n")
	prompt.WriteString("When you quote or paraphrase people or documents, briefly explain who or what they are first.\n")
	if len(recent) > 0 {
		prompt.WriteString("You are in a conversation. Use previous messages for context when the question references earlier topics.\n")
	}
	prompt.WriteString("\n")

	writeRecentTurns(&prompt, recent)

	prompt.WriteString("SOURCES:\n")
	prompt.WriteString(contextBlock)
	prompt.WriteString("\n\n")
	prompt.WriteString(fmt.Sprintf("QUESTION: %s\n\n", question))
	prompt.WriteString("Please answer for the user in clear, everyday language:")

	return prompt.String()
}

func buildMergePrompt(question string, sqlAnswer string, ragAnswer string) string {
	var prompt strings.Builder

	prompt.WriteString(assistantPersona)
	prompt.WriteString("\n")
	prompt.WriteString("You have both numeric data (counts, trends, patterns) and contextual information (people's experiences, policy documents, community perspectives).\n")
	prompt.WriteString("Weave these together naturally into a single, cohesive answer that tells a complete story.\n")
	prompt.WriteString("Blend the numbers with the context so the user understands both what is happening and why it matters.\n")
	prompt.WriteString("Never invent data or trends not present in the inputs.\n\n")

	prompt.WriteString("<numeric_answer>\n")
	prompt.WriteString(sqlAnswer)
	prompt.WriteString("\n</numeric_answer>\n\n")

	prompt.WriteString("<contextual_answer>\n")
	prompt.WriteString(ragAnswer)
	prompt.WriteString("\n</contextual_answer>\n\n")

	prompt.WriteString(fmt.Sprintf("QUESTION: %s\n\n", question))
	prompt.WriteString("Please answer for the user in clear, everyday language:")

	return prompt.String()
}

func buildHistoryAnswerPrompt(question string, recent []router.Turn, digest router.CacheDigest) string {
	var prompt strings.Builder

	prompt.WriteString(assistantPersona)
	prompt.WriteString("\n")
	prompt.WriteString("Answer the user's question based ONLY on the conversation so far.\n")
	prompt.WriteString("Do not mention that you are using conversation history, just answer naturally.\n")
	prompt.WriteString("If the question references numbers or statistics mentioned earlier, reuse those.\n")
	prompt.WriteString("If you cannot answer from the conversation, politely say so and suggest a new question.\n\n")

	if digest.Answer != "" {
		prompt.WriteString("<previous_answer>\n")
		prompt.WriteString(digest.Answer)
		prompt.WriteString("\n</previous_answer>\n\n")
	}

	writeRecentTurns(&prompt, recent)

	prompt.WriteString(fmt.Sprintf("Current Question: %s\n\n", question))
	prompt.WriteString("Please answer the current question based on the conversation above:")

	return prompt.String()
}

func writeRecentTurns(prompt *strings.Builder, recent []router.Turn) {
	if len(recent) == 0 {
		return
	}
	prompt.WriteString("<conversation>\n")
	for _, turn := range recent {
		prompt.WriteString(fmt.Sprintf("%s: %s\n", strings.ToUpper(turn.Role), turn.Content))
	}
	prompt.WriteString("</conversation>\n\n")
}
