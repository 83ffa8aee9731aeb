package delivery

import (
	"context"
	"errors"
	"sync"

	"github.com/fakewire/fakewire/internal/domain"
)

// TaskError accumulates per-batch errors produced during a bulk send.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := "multiple errors:"
	for _, err := range e.Errors {
		msg += " " + err.Error() + ";"
	}
	return msg
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkSender delivers a dataset to a webhook as fixed-size batches using a
// worker pool.
type BulkSender struct {
	client    *Client
	batchSize int
	workers   int
}

// NewBulkSender creates a BulkSender with the provided batch size and
// concurrency.
func NewBulkSender(client *Client, batchSize, workers int) *BulkSender {
	if batchSize <= 0 {
		batchSize = 100
	}
	if workers <= 0 {
		workers = 4
	}
	return &BulkSender{
		client:    client,
		batchSize: batchSize,
		workers:   workers,
	}
}

// Batches returns how many POST requests SendPeople will issue for n records.
func (bs *BulkSender) Batches(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + bs.batchSize - 1) / bs.batchSize
}

// SendPeople splits the people into batches and posts them concurrently.
// Individual batch failures are accumulated; cancellation aborts the run.
func (bs *BulkSender) SendPeople(ctx context.Context, people []domain.Person) error {
	total := bs.Batches(len(people))
	return bs.run(ctx, total, func(idx int) error {
		start := idx * bs.batchSize
		end := start + bs.batchSize
		if end > len(people) {
			end = len(people)
		}
		return bs.client.SendPeople(ctx, people[start:end])
	})
}

func (bs *BulkSender) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				select {
				case errCh <- err:
				case <-ctx.Done():
					return
				}
			}
		}
	}

	for i := 0; i < bs.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		taskErr.append(err)
	}
	return taskErr.asError()
}
