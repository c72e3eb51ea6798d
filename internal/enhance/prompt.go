package enhance

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an assistant specialised in organisation and productivity.
When you receive a task you must:
1. Write or improve its description, focusing ONLY on content and execution.
2. NEVER repeat or mention the task title in the description.
3. Suggest concrete subtasks or steps to complete it.
4. Give practical tips and relevant details.
5. Keep a professional but approachable tone.

IMPORTANT: go straight to HOW to do it, not WHAT the task is.
Be concise but informative (at most 300 words).
Format the answer in markdown.`

// userPrompt builds the per-request instruction. With a current description
// the model elaborates on it; otherwise it generates one from scratch.
func userPrompt(title, current string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task: %q\n\n", title)
	if current = strings.TrimSpace(current); current != "" {
		fmt.Fprintf(&b, "Current description: %q\n\n", current)
		b.WriteString("Improve and expand this description, keeping the focus on the content without repeating the task title.")
	} else {
		b.WriteString("Write a detailed, useful description for this activity. Do not repeat the title; explain how to carry it out, the steps required and relevant tips.")
	}
	return b.String()
}
