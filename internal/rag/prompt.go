package rag

import "fmt"

const promptTemplate = `Given the following extracted parts of a long document ("SOURCES") and a question ("QUESTION"), create a final answer max one paragraph long.
Don't try to make up an answer and use the text in the SOURCES only for the answer. If you don't know the answer, just say that you don't know.
QUESTION: %s
=========
SOURCES:
%s
=========
ANSWER:
`

func RenderPrompt(question string, summaries string) string {
	return fmt.Sprintf(promptTemplate, question, summaries)
}
