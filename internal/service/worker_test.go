package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"fakturio/internal/service"
	"fakturio/mocks"
)

func TestIngestWorker_InitialPassAndShutdown(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	passes := make(chan struct{}, 1)
	svc.On("ProcessAll", mock.Anything).Run(func(mock.Arguments) {
		select {
		case passes <- struct{}{}:
		default:
		}
	}).Return(nil)

	worker := service.NewIngestWorker(svc, service.IngestWorkerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	// The initial pass runs before the first tick.
	select {
	case <-passes:
	case <-time.After(2 * time.Second):
		t.Fatal("initial ingest pass did not run")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down after cancel")
	}

	svc.AssertExpectations(t)
}

func TestExportWorker_PassAndFailureNotification(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	repo := new(mocks.MockInvoiceRepo)
	mailer := new(mocks.MockEmailSender)

	summary := &service.ExportSummary{
		Selected: 3,
		Exported: 1,
		Errors:   []string{"inv-a: ledger rejected", "inv-b: company configuration missing"},
	}
	svc.On("ExportPending", mock.Anything, 50).Return(summary, nil)

	sent := make(chan struct{}, 1)
	mailer.On("Send", mock.Anything, "Invoice export: 2 of 3 failed", mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "inv-a: ledger rejected")
	})).Run(func(mock.Arguments) {
		select {
		case sent <- struct{}{}:
		default:
		}
	}).Return(nil)

	worker := service.NewExportWorker(svc, repo, mailer, service.ExportWorkerConfig{
		Interval:  20 * time.Millisecond,
		BatchSize: 50,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatal("failure summary email was not sent")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not shut down after cancel")
	}

	// RetryErrored is off, so the repo must never be asked to re-queue.
	repo.AssertNotCalled(t, "ResetErrored", mock.Anything, mock.Anything)
}

func TestExportWorker_RetryErroredRequeues(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	repo := new(mocks.MockInvoiceRepo)

	requeued := make(chan struct{}, 1)
	repo.On("ResetErrored", mock.Anything, mock.AnythingOfType("time.Time")).Run(func(mock.Arguments) {
		select {
		case requeued <- struct{}{}:
		default:
		}
	}).Return(2, nil)
	svc.On("ExportPending", mock.Anything, 50).Return(&service.ExportSummary{}, nil)

	worker := service.NewExportWorker(svc, repo, nil, service.ExportWorkerConfig{
		Interval:     20 * time.Millisecond,
		BatchSize:    50,
		RetryErrored: true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	select {
	case <-requeued:
	case <-time.After(2 * time.Second):
		t.Fatal("errored records were not re-queued")
	}

	cancel()
	<-done
}
