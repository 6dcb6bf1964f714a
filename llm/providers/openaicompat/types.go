package openaicompat

// Message 表示 OpenAI 兼容的消息。Content 为字符串或 []ContentPart。
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// ContentPart 表示多段内容中的一段。
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL 表示图片引用。
type ImageURL struct {
	URL string `json:"url"`
}

// Request 表示 chat-completions 请求。
// 惩罚参数固定为 0，必须显式发送，所以不带 omitempty。
type Request struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      float64   `json:"temperature"`
	TopP             float64   `json:"top_p"`
	FrequencyPenalty float64   `json:"frequency_penalty"`
	PresencePenalty  float64   `json:"presence_penalty"`
}

// Choice 表示响应中的单个选项。
type Choice struct {
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
}

// Usage 表示 token 用量。
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response 表示 chat-completions 响应。
type Response struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}
