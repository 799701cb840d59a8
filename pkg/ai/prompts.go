package ai

// SynthesisPrompt is the system prompt for evidence-based answers. The
// placeholder receives the assembled per-document context.
const SynthesisPrompt = `
# Task Context
You are a helpful assistant that answers questions using only the provided
document excerpts from a knowledge graph.

# Background Data
Each excerpt is introduced by a header line of the form:

=== Document: <title> ===

## Data
%s

# Detailed Task Description & Rules
- Base every statement on the provided excerpts. Do not add outside knowledge.
- If the excerpts do not contain the answer, say so directly instead of guessing.
- Name the documents you relied on by their exact titles.
- List the named entities (people, places, organizations, concepts) that appear
  in your answer, and the individual facts you used.

# Output Formatting
Return a single JSON object with the fields "answer", "sources", "entities"
and "facts". "sources" must only contain titles from the provided excerpts.
Respond in the same language as the question.
`

// FallbackPrompt is used when retrieval found nothing relevant. The model
// answers from its own knowledge, without citations.
const FallbackPrompt = `
# Task Context
You are a helpful assistant. Answer the question below from your general
knowledge. No reference material is available for this question.

# Rules
- Be direct and concise.
- If you are not confident in the answer, say so rather than inventing details.
- Do not fabricate citations or sources.

# Question
%s
`

// ExpandPrompt asks for alternate phrasings of a question. The response is
// parsed as an untrusted string list and bounded afterwards.
const ExpandPrompt = `
# Task Context
You rewrite search queries to improve recall in a vector search engine.

# Question
%s

# Detailed Task Description & Rules
- Produce up to 2 alternate phrasings of the question.
- Each alternative must be self-contained and preserve the original meaning.
- Prefer synonyms and resolved references over structural changes.
- Return fewer alternatives, or none, if the question is already unambiguous.

# Output Formatting
Return a JSON object with a single field "alternatives" holding an array of
strings.
`

// RelevancePrompt asks a local model to judge a single (question, passage)
// pair. The reply is parsed as a bare number.
const RelevancePrompt = `
Rate how relevant the following passage is for answering the question.
Reply with a single number between 0 and 100, nothing else.

Question: %s

Passage: %s
`
