package port

import "context"

// EmailSender delivers operational notification emails (export batch
// summaries with failures). Implementations: SES, noop.
type EmailSender interface {
	Send(ctx context.Context, subject, textBody string) error
}
