package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"fakturio/internal/domain"
	"fakturio/internal/port"
)

// EventLogger writes pipeline events to the process log and, best effort, to
// the persistent processing log. A failed database write never fails the
// operation being logged.
type EventLogger struct {
	repo port.ProcessingLogRepository
}

// NewEventLogger creates an EventLogger. repo may be nil, in which case
// events only go to the process log.
func NewEventLogger(repo port.ProcessingLogRepository) *EventLogger {
	return &EventLogger{repo: repo}
}

// Info records an informational event.
func (l *EventLogger) Info(ctx context.Context, source, message string, invoiceID *uuid.UUID, details any) {
	l.write(ctx, domain.LogInfo, source, message, invoiceID, details)
}

// Warn records a recoverable anomaly.
func (l *EventLogger) Warn(ctx context.Context, source, message string, invoiceID *uuid.UUID, details any) {
	l.write(ctx, domain.LogWarn, source, message, invoiceID, details)
}

// Error records a failure.
func (l *EventLogger) Error(ctx context.Context, source, message string, invoiceID *uuid.UUID, details any) {
	l.write(ctx, domain.LogError, source, message, invoiceID, details)
}

func (l *EventLogger) write(ctx context.Context, level domain.LogLevel, source, message string, invoiceID *uuid.UUID, details any) {
	detailText := ""
	if details != nil {
		detailText = fmt.Sprintf("%v", details)
	}

	if detailText != "" {
		log.Printf("%s: [%s] %s (%s)", source, level, message, detailText)
	} else {
		log.Printf("%s: [%s] %s", source, level, message)
	}

	if l.repo == nil {
		return
	}
	entry := &domain.ProcessingLogEntry{
		InvoiceID: invoiceID,
		Level:     level,
		Source:    source,
		Message:   message,
		Details:   detailText,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("eventLogger: persisting log entry: %v", err)
	}
}
