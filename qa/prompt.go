package qa

import (
	"strings"

	"pdfchat/llm"
)

const answerInstruction = `Answer the question as detailed as possible from the provided context, make sure to provide all the details, if the answer is not in the provided context just say, "Answer is not available in the context", don't provide the wrong answer.`

func promptMessages(contexts []string, question string) []llm.Message {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, chunk := range contexts {
		sb.WriteString(chunk)
		if i < len(contexts)-1 {
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(question)
	sb.WriteString("\n\nAnswer:")

	return []llm.Message{
		{Role: llm.RoleSystem, Content: answerInstruction},
		{Role: llm.RoleUser, Content: sb.String()},
	}
}
