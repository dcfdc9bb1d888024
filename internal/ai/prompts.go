package ai

import (
	"fmt"
	"strings"
)

// Prompt builders for the public mini tools. Each tool is a thin
// wrapper: one system prompt pinning the format, one user prompt built
// from the request.

// MetaTagPrompt asks for HTML meta tags for a page.
func MetaTagPrompt(title, description, keywords string) (system, user string) {
	system = "You are an SEO assistant. Respond ONLY with ready-to-paste HTML meta tags " +
		"(title, description, Open Graph, Twitter card). No commentary, no markdown fences."
	var b strings.Builder
	fmt.Fprintf(&b, "Page title: %s\n", title)
	if description != "" {
		fmt.Fprintf(&b, "Page description: %s\n", description)
	}
	if keywords != "" {
		fmt.Fprintf(&b, "Target keywords: %s\n", keywords)
	}
	return system, b.String()
}

// JokePrompt asks for a short joke about a topic.
func JokePrompt(topic, style string) (system, user string) {
	system = "You are a comedy writer. Respond with exactly one short, family-friendly joke. " +
		"No preamble, no explanation."
	if style != "" {
		user = fmt.Sprintf("Write a %s joke about: %s", style, topic)
	} else {
		user = fmt.Sprintf("Write a joke about: %s", topic)
	}
	return system, user
}

// PunPrompt asks for puns about a topic.
func PunPrompt(topic string) (system, user string) {
	system = "You are a pun generator. Respond with exactly three puns, one per line. " +
		"No numbering, no preamble."
	return system, fmt.Sprintf("Topic: %s", topic)
}

// InsultPrompt asks for a playful, harmless roast.
func InsultPrompt(target string) (system, user string) {
	system = "You are a roast writer for friendly banter. Respond with exactly one playful, " +
		"lighthearted roast. Keep it harmless and safe for work; never reference protected " +
		"characteristics, appearance, or anything genuinely hurtful."
	return system, fmt.Sprintf("Write a friendly roast about: %s", target)
}
