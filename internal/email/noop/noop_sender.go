package noop

import (
	"context"
	"log"

	"fakturio/internal/port"
)

type noopSender struct{}

// NewSender creates a no-op EmailSender that logs messages to stdout.
func NewSender() port.EmailSender {
	return &noopSender{}
}

func (s *noopSender) Send(_ context.Context, subject, textBody string) error {
	log.Printf("[NOOP EMAIL] %s\n%s", subject, textBody)
	return nil
}
