package llm

// Token pricing per 1M tokens (USD). OpenRouter model IDs; direct OpenAI
// model names included for the openai provider.
var pricing = map[string]modelPrice{
	// OpenRouter
	"qwen/qwen-2.5-72b-instruct":  {Input: 0.23, Output: 0.40},
	"qwen/qwen3-235b-a22b":        {Input: 0.20, Output: 0.60},
	"google/gemini-2.0-flash-001": {Input: 0.10, Output: 0.40},
	"google/gemini-2.5-flash":     {Input: 0.30, Output: 2.50},
	"deepseek/deepseek-chat-v3":   {Input: 0.25, Output: 0.85},
	"meta-llama/llama-3.3-70b-instruct": {Input: 0.12, Output: 0.30},

	// OpenAI direct
	"gpt-4o":        {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
	"gpt-4.1-mini":  {Input: 0.40, Output: 1.60},
	"gpt-3.5-turbo": {Input: 0.50, Output: 1.50},
}

type modelPrice struct {
	Input  float64 // per 1M input tokens
	Output float64 // per 1M output tokens
}

// EstimateCost returns the estimated cost in USD for the given model and token counts.
// Unknown models (including :free variants) cost zero.
func EstimateCost(model string, tokensIn, tokensOut int) float64 {
	p, ok := pricing[model]
	if !ok {
		return 0
	}
	return (float64(tokensIn) * p.Input / 1_000_000) + (float64(tokensOut) * p.Output / 1_000_000)
}
