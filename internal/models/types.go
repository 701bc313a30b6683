package models

import "time"

// ProviderKind selects which LLM backend a bot process talks to
type ProviderKind string

const (
	// ProviderResponses is the stateless OpenAI Responses API
	ProviderResponses ProviderKind = "responses"

	// ProviderGemini is Gemini with a system turn and an optional pre-uploaded context file
	ProviderGemini ProviderKind = "gemini"

	// ProviderAssistant is the OpenAI Assistants API: threads, runs and polling
	ProviderAssistant ProviderKind = "assistant"
)

// String returns string representation of ProviderKind
func (k ProviderKind) String() string {
	return string(k)
}

// Telegram limits a single text message to 4096 characters
const MaxChunkSize = 4096

const (
	// NoAnswer replaces an empty model response
	NoAnswer = "Нет ответа от модели."

	// Apology is the only thing a user sees when a turn fails
	Apology = "Ошибка при обработке запроса. Попробуйте позже."

	// ProcessingText is the placeholder edited into the final answer
	ProcessingText = "Обрабатываю запрос..."
)

// UserID identifies the Telegram sender
type UserID = int64

// Turn is one inbound user message on its way to a provider.
// It lives only for the duration of the turn.
type Turn struct {
	ID         string
	UserID     UserID
	Username   string
	ChatID     int64
	MessageID  int
	Text       string
	Attachment string // provider file reference, if any
	Session    string // provider session token, set by the orchestrator
	ReceivedAt time.Time
}

// TurnResult is the outcome of a single turn
type TurnResult struct {
	Text     string
	Err      error
	Duration time.Duration
}

// Failed reports whether the turn produced an error instead of text
func (r TurnResult) Failed() bool {
	return r.Err != nil
}

// Exchange represents a logged request/response pair
type Exchange struct {
	ID              int64     `json:"id"`
	TurnID          string    `json:"turn_id"`
	UserID          int64     `json:"user_id"`
	Username        string    `json:"username,omitempty"`
	ChatID          int64     `json:"chat_id"`
	Provider        string    `json:"provider"`
	Model           string    `json:"model"`
	RequestText     string    `json:"request_text"`
	ResponseText    string    `json:"response_text"`
	ResponseLength  int       `json:"response_length"`
	ExecutionTimeMs int       `json:"execution_time_ms"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// BotConfig represents bot configuration
type BotConfig struct {
	Provider ProviderKind

	// Telegram settings
	TelegramToken string

	// OpenAI settings
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAITimeout int

	// Assistants API settings
	AssistantID             string
	AssistantPollIntervalMs int
	AssistantRunTimeout     int

	// Gemini settings
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout int

	// Context artifact
	ContextFile            string
	ContextRefreshSchedule string

	// Langfuse settings
	LangfusePublicKey string
	LangfuseSecretKey string
	LangfuseHost      string

	// Supabase settings
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTimeout int

	// App settings
	Timezone     string
	LogLevel     string
	Environment  string
	MaxChunkSize int
}

// LangfuseEnabled reports whether all Langfuse credentials are present
func (c *BotConfig) LangfuseEnabled() bool {
	return c.LangfusePublicKey != "" && c.LangfuseSecretKey != "" && c.LangfuseHost != ""
}

// ExchangeLogEnabled reports whether Supabase exchange logging is configured
func (c *BotConfig) ExchangeLogEnabled() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}
