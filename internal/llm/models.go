package llm

// SystemPrompt is sent ahead of every user request
const SystemPrompt = `Роль модели: маркетолог и контент-редактор маркетплейсов (Ozon/Wildberries).
Задача: создать карточку товара для маркетплейса по запросу пользователя.
Карточка должна включать:
- Название товара
- Краткое описание (1-2 предложения)
- Полное описание (5-7 предложений)
- Преимущества (список)
- Характеристики (список параметров)
- SEO-ключевые слова (через запятую)
Стиль: информативный и продающий, до 500 слов.`

// Observation names, one per provider
const (
	responsesObservation = "telegram-openai-responses"
	assistantObservation = "telegram-openai-assistant"
	geminiObservation    = "telegram-gemini"
)

// Default model identifiers
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"

	// assistantModel labels assistant observations; the real model is
	// configured on the assistant itself
	assistantModel = "openai-assistant"
)
