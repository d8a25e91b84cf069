package catalog

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/language"
)

type countingSource struct {
	calls atomic.Int32
}

func (s *countingSource) Fetch(context.Context, Category, language.Tag) (map[int]string, error) {
	s.calls.Add(1)
	return nil, errors.New("offline")
}

func TestRefresherRetriesSoonerAfterFailure(t *testing.T) {
	src := &countingSource{}
	r := &Refresher{
		Catalog:  New(src, quietLogger()),
		Interval: time.Hour,
		Retry:    5 * time.Millisecond,
		Logger:   quietLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	perRefresh := int32(len(Categories) * 2)
	deadline := time.After(2 * time.Second)
	for src.calls.Load() < 3*perRefresh {
		select {
		case <-deadline:
			t.Fatalf("expected repeated refreshes, got %d fetches", src.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop after cancel")
	}
}
