package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/voyage/pkg/domain"
	"github.com/aretw0/voyage/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type piiMiddleware struct {
	next    ports.StateStore
	keys    []*regexp.Regexp
	content []*regexp.Regexp
}

// PIIConfig selects what gets masked before a state reaches the store.
type PIIConfig struct {
	// ArgKeys are patterns matched against tool call argument names;
	// matching values are replaced by Mask.
	ArgKeys []string

	// Content are patterns matched against message text and the email;
	// every match is replaced by Mask.
	Content []string
}

// NewPIIMiddleware creates a middleware that masks personal data on save.
// The state held by the caller is left untouched.
func NewPIIMiddleware(config PIIConfig) Middleware {
	keys := compileAll(config.ArgKeys)
	content := compileAll(config.Content)
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, keys: keys, content: content}
	}
}

func compileAll(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.State) error {
	cloned := state.Clone()

	for i := range cloned.Messages {
		msg := &cloned.Messages[i]
		msg.Content = m.maskText(msg.Content)
		for j := range msg.ToolCalls {
			maskArgs(msg.ToolCalls[j].Args, m.keys)
		}
	}
	cloned.Output = m.maskText(cloned.Output)

	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.State, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) maskText(s string) string {
	for _, p := range m.content {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

// maskArgs masks in place. Nested maps are copied first so the caller's
// values are never shared with the masked version.
func maskArgs(args map[string]any, patterns []*regexp.Regexp) {
	for k, v := range args {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				args[k] = Mask
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			cp := make(map[string]any, len(sub))
			for sk, sv := range sub {
				cp[sk] = sv
			}
			maskArgs(cp, patterns)
			args[k] = cp
		}
	}
}
