package format

// The chat-completion request family (OpenAI-compatible backends).

const chatSystemPrompt = "Apply the user's instructions exactly. Output only the formatted text, with no commentary."

func buildChatBody(model, instruction, text string) map[string]any {
	return map[string]any{
		"model": model,
		"messages": []map[string]string{
			{"role": "system", "content": chatSystemPrompt},
			{"role": "user", "content": instruction + "\n\n" + text},
		},
	}
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// parseChatResponse returns the first choice's message content. A response
// without choices yields an empty string, not an error.
func parseChatResponse(res chatResponse) string {
	if len(res.Choices) == 0 {
		return ""
	}
	return res.Choices[0].Message.Content
}
