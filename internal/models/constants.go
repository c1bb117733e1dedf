package models

const (
	ContextSeparator = "\n---\n"
	ThinkTag         = `(?s)<think>.*?</think>`

	// AnsweredMarker prefixes the last line the model is asked to emit.
	AnsweredMarker = "ANSWERED:"
)

var (
	ContextPromptTemplate = `Answer the question as detailed as possible from the provided context.
If the answer is not in the provided context, say "The provided context does not mention" followed by what the question asks about, and do not make up an answer.
End your reply with a final line that reads exactly "ANSWERED: YES" when the context contains the answer, or "ANSWERED: NO" when it does not.

Context:
%s

Question:
%s

Answer:
`

	GeneralPromptTemplate = `Answer the question as detailed as possible using your general knowledge.

Question:
%s

Answer:
`

	// DefaultFallbackPhrases signal that the model could not answer from the context.
	DefaultFallbackPhrases = []string{
		"the provided context does not mention",
		"the provided context does not contain",
		"the context does not provide",
		"not mentioned in the provided context",
	}
)
