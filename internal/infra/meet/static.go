package meet

import (
	"context"

	domainMeet "meet_link_bot/internal/domain/meet"
)

// StaticProducer always returns the same permanent room.
type StaticProducer struct {
	url string
}

func NewStaticProducer(url string) *StaticProducer {
	return &StaticProducer{url: url}
}

func (p *StaticProducer) ProduceLink(ctx context.Context) (string, error) {
	if p.url == "" {
		return "", domainMeet.ErrNoLink
	}
	return p.url, nil
}
