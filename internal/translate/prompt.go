package translate

import (
	"fmt"
	"strings"

	"chatlibre/internal/core"
	"chatlibre/internal/languages"
)

// MarkerPrefix starts the detected-language line the model is instructed to
// emit in detect mode, e.g. "LANG:fr". The reply parser looks for the same
// prefix.
const MarkerPrefix = "LANG:"

const (
	instructionFixed = "You are a translation service. Translate the text " +
		"provided by the user from %s to %s."
	instructionDetect = "You are a translation service. Detect which language " +
		"the text provided by the user is written in and translate it to %s. " +
		"On the very first line of your answer output exactly " +
		"\"" + MarkerPrefix + "\" followed by the ISO 639-1 code of the " +
		"detected language and nothing else (for example \"" + MarkerPrefix +
		"fr\"). Start the translation on the next line."
	instructionTextOnly = "Output only the translated text. Do not add " +
		"explanations, quotation marks or any markup."
	instructionHTML = "The text is HTML. Keep every HTML tag and attribute " +
		"untouched and translate only the text content. Do not add " +
		"explanations or extra markup."
	instructionEmoji = "Do not translate emoji shortcodes surrounded by " +
		"colons (e.g. :smile:) and do not translate emoticons or kaomoji."
)

// PromptBuilder turns a validated translation request into the
// instruction/content pair for the chat-completion call. Pure and
// deterministic: the same request always yields the same payload.
type PromptBuilder struct {
	registry *languages.Registry
}

// NewPromptBuilder returns a builder backed by the given language registry.
func NewPromptBuilder(registry *languages.Registry) *PromptBuilder {
	return &PromptBuilder{registry: registry}
}

// Build constructs the chat payload for req. It fails fast with an
// unsupported-language error when the target is outside the registry, so no
// billable provider call is made for a request that cannot succeed.
func (b *PromptBuilder) Build(req core.TranslationRequest) (core.ChatPayload, error) {
	if !b.registry.Supported(req.Target) {
		return core.ChatPayload{}, core.NewUnsupportedLanguageError(req.Target)
	}

	var sb strings.Builder
	target := b.registry.Name(req.Target)
	if req.DetectMode() {
		fmt.Fprintf(&sb, instructionDetect, target)
	} else {
		fmt.Fprintf(&sb, instructionFixed, b.registry.Name(req.Source), target)
	}
	sb.WriteByte(' ')
	if req.Format == core.FormatHTML {
		sb.WriteString(instructionHTML)
	} else {
		sb.WriteString(instructionTextOnly)
	}
	sb.WriteByte(' ')
	sb.WriteString(instructionEmoji)

	return core.ChatPayload{
		System: sb.String(),
		User:   req.Query,
	}, nil
}
