package core

// Well-known field values from the LibreTranslate request contract.
const (
	// SourceAuto asks the service to detect the source language itself.
	SourceAuto = "auto"

	FormatText = "text"
	FormatHTML = "html"
)

// TranslationRequest is a parsed and validated /translate request.
type TranslationRequest struct {
	// Query is the text to translate, already trimmed.
	Query string
	// Source is a language code or SourceAuto. Case is preserved as received.
	Source string
	// Target is the language code to translate into.
	Target string
	// Format is FormatText or FormatHTML.
	Format string
}

// DetectMode reports whether the caller asked for automatic source detection.
func (r TranslationRequest) DetectMode() bool {
	return r.Source == SourceAuto
}

// ChatPayload is the instruction/content pair sent to the chat-completion
// provider. It exists only for the duration of one request.
type ChatPayload struct {
	System string
	User   string
}

// Message is a single chat message in the provider wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the provider-side chat completion request body.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// ChatResponse is the provider-side chat completion response body.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Created int64    `json:"created"`
}

// Choice is a single completion choice.
type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
	Index        int     `json:"index"`
}

// Usage holds token usage reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the normalized result of one chat-completion call: the raw
// generated text plus the metadata worth keeping for usage records.
type Completion struct {
	Text  string
	ID    string
	Model string
	Usage Usage
}

// DetectedLanguage reports the language detected for a SourceAuto request.
// Confidence is nominal: the model gives no real score, so the formatter
// fills in a fixed value.
type DetectedLanguage struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// TranslationResponse is the externally visible LibreTranslate response shape.
type TranslationResponse struct {
	TranslatedText   string            `json:"translatedText"`
	DetectedLanguage *DetectedLanguage `json:"detectedLanguage,omitempty"`
}

// Language is one entry of the /languages discovery response.
type Language struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}
