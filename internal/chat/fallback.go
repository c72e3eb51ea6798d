package chat

import (
	"strings"
	"unicode"
)

type cannedReply struct {
	words   []string // whole-word matches
	phrases []string // substring matches
	reply   string
}

// Checked in order; the first match wins.
var cannedReplies = []cannedReply{
	{
		words: []string{"task", "tasks", "todo", "todos", "tarefa", "tarefas"},
		reply: "To create a task, open the board and add a title and an optional description. You can also ask the AI to draft or improve the description for you.",
	},
	{
		words: []string{"dashboard", "board", "painel"},
		reply: "The board lists all your tasks, newest first. From there you can complete, edit and delete tasks.",
	},
	{
		words:   []string{"ia", "ai"},
		phrases: []string{"inteligência artificial", "artificial intelligence"},
		reply:   "The AI helper writes a how-to description for a task from its title. Use \"improve\" while creating or editing a task.",
	},
	{
		words: []string{"help", "ajuda"},
		reply: "I can help with:\n• creating and managing tasks\n• using the AI description helper\n• finding your way around the board\n\nWhat would you like to know?",
	},
	{
		words: []string{"oi", "olá", "ola", "hello", "hi", "hey"},
		reply: "Hello! How can I help you today? Ask me how to use todoia, how to create tasks, or anything else about the app.",
	},
	{
		words: []string{"thanks", "thank", "obrigado", "obrigada", "valeu"},
		reply: "You're welcome! If you need anything else, just ask.",
	},
}

const defaultReply = "Interesting! To help you better, you can ask me about:\n• creating tasks\n• using the AI helper\n• the board\n• anything else about todoia."

// FallbackReply returns a canned answer chosen by keyword. It never returns
// an empty string.
func FallbackReply(message string) string {
	lower := strings.ToLower(message)
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		words[w] = true
	}

	for _, c := range cannedReplies {
		for _, w := range c.words {
			if words[w] {
				return c.reply
			}
		}
		for _, p := range c.phrases {
			if strings.Contains(lower, p) {
				return c.reply
			}
		}
	}
	return defaultReply
}
