package session

import (
	"postop/internal/handouts"
	"postop/internal/llm"
)

// BuildSystem returns the system instruction block: the fixed persona
// plus, when protocols loaded, the protocol appendix verbatim.
func BuildSystem(bundle *handouts.Bundle) string {
	system := systemPrompt
	if bundle != nil && bundle.Protocols != "" {
		system += protocolAppendixHeader + bundle.Protocols
	}
	return system
}

// BuildMessages converts the transcript into the outbound message list.
//
// When the transcript holds exactly one turn (the just-submitted first
// user message), the whole document sequence rides along as leading
// content blocks of that message, with the user's text as the trailing
// block. Every later call sends plain text turns only; the provider is
// expected to retain the documents from the first exchange.
func BuildMessages(turns []Turn, bundle *handouts.Bundle) []llm.Message {
	if len(turns) == 1 {
		blocks := make([]llm.ContentBlock, 0, bundle.DocumentCount()+1)
		if bundle != nil {
			for _, doc := range bundle.Documents {
				blocks = append(blocks, llm.PDFBlock(doc.Data))
			}
		}
		blocks = append(blocks, llm.TextBlock(turns[0].Content))
		return []llm.Message{{Role: string(turns[0].Role), Content: blocks}}
	}

	messages := make([]llm.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, llm.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return messages
}

// Assemble builds the full request payload for the current transcript.
func (s *Session) Assemble() (system string, messages []llm.Message) {
	return BuildSystem(s.bundle), BuildMessages(s.turns, s.bundle)
}
