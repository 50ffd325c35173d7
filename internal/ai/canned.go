package ai

import "context"

const defaultCannedReply = "Let's find a middle ground. I can offer this price."

// Canned always answers with the same text. It stands in for a model in the
// demo and in tests.
type Canned struct {
	Reply string
}

func NewCanned(reply string) *Canned {
	if reply == "" {
		reply = defaultCannedReply
	}
	return &Canned{Reply: reply}
}

func (c *Canned) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.Reply, nil
}
