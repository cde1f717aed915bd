// Package tokencount estimates prompt sizes for chat completion calls.
//
// Counts use tiktoken-go encodings. Non-OpenAI model ids fall back to the
// cl100k_base family, which is close enough for monitoring purposes.
package tokencount

import (
	"log/slog"
	"strings"
	"sync"

	tiktoken "github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	"github.com/fairyhunter13/career-consultant/internal/domain"
)

// Chat framing overhead, per the OpenAI cookbook.
const (
	tokensPerMessage = 3
	replyPriming     = 3
)

// UseOfflineLoader makes tiktoken read its BPE ranks from embedded data
// instead of downloading them on first use.
func UseOfflineLoader() {
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Counter caches encodings per model family and is safe for concurrent use.
type Counter struct {
	mu            sync.RWMutex
	encodingCache map[string]*tiktoken.Tiktoken
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	return &Counter{encodingCache: make(map[string]*tiktoken.Tiktoken)}
}

// DefaultCounter is shared by the completion client.
var DefaultCounter = NewCounter()

func (c *Counter) encodingFor(model string) (*tiktoken.Tiktoken, error) {
	family := normalizeModelName(model)

	c.mu.RLock()
	enc, ok := c.encodingCache[family]
	c.mu.RUnlock()
	if ok {
		return enc, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encodingCache[family]; ok {
		return enc, nil
	}
	enc, err := tiktoken.EncodingForModel(family)
	if err != nil {
		slog.Debug("falling back to cl100k_base encoding", slog.String("model", model), slog.Any("error", err))
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	c.encodingCache[family] = enc
	return enc, nil
}

// normalizeModelName maps provider-prefixed or non-OpenAI ids to a name
// tiktoken knows.
func normalizeModelName(model string) string {
	model = strings.ToLower(strings.TrimSpace(model))
	if i := strings.LastIndex(model, "/"); i >= 0 {
		model = model[i+1:]
	}
	model = strings.TrimSuffix(model, ":free")
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"):
		return "gpt-4o"
	case strings.HasPrefix(model, "gpt-3.5"):
		return "gpt-3.5-turbo"
	default:
		return "gpt-4"
	}
}

// CountTokens counts the tokens of text under model's encoding.
func (c *Counter) CountTokens(text, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

// CountChat counts a chat request made of a system prompt followed by
// history, including per-message framing and reply priming.
func (c *Counter) CountChat(system string, history []domain.Message, model string) (int, error) {
	enc, err := c.encodingFor(model)
	if err != nil {
		return 0, err
	}
	n := tokensPerMessage + len(enc.Encode("system", nil, nil)) + len(enc.Encode(system, nil, nil))
	for _, m := range history {
		n += tokensPerMessage
		n += len(enc.Encode(string(m.Role), nil, nil))
		n += len(enc.Encode(m.Content, nil, nil))
	}
	return n + replyPriming, nil
}

// EstimateChat is CountChat with a ~4 chars/token fallback on failure.
func (c *Counter) EstimateChat(system string, history []domain.Message, model string) int {
	n, err := c.CountChat(system, history, model)
	if err == nil {
		return n
	}
	slog.Warn("failed to count prompt tokens, using estimate", slog.String("model", model), slog.Any("error", err))
	chars := len(system)
	for _, m := range history {
		chars += len(m.Content)
	}
	return chars / 4
}
