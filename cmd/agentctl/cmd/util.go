package cmd

import "github.com/openai/openai-go/shared"

func openAIModel(name string) shared.ChatModel {
	if name == "" {
		name = "gpt-4o"
	}
	return shared.ChatModel(name)
}
