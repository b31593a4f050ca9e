package ingest

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func openFdCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir("/proc/self/fd")
	if err != nil {
		t.Skip("no /proc/self/fd on this platform")
	}
	return len(entries)
}

func TestPdfParser_ClosesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "policy.pdf", string(pdfFixture(pdfText("Open door policy"))))
	p := defaultParsers()[".pdf"]
	ctx := context.Background()

	if _, err := p.Parse(ctx, path); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	before := openFdCount(t)
	for i := 0; i < 50; i++ {
		docs, err := p.Parse(ctx, path)
		if err != nil {
			t.Fatalf("Parse %d failed: %v", i, err)
		}
		if len(docs) != 1 {
			t.Fatalf("Parse %d got %d documents", i, len(docs))
		}
	}
	if after := openFdCount(t); after > before+2 {
		t.Errorf("open files grew from %d to %d", before, after)
	}
}

func TestPdfParser_ProtectExtract(t *testing.T) {
	p := pdfParser{pageTimeout: 20 * time.Millisecond, slots: make(chan struct{}, 1)}
	ctx := context.Background()

	content, err := p.protectExtract(ctx, func() (string, error) { return "text", nil })
	if err != nil || content != "text" {
		t.Fatalf("got %q, %v", content, err)
	}

	release := make(chan struct{})
	_, err = p.protectExtract(ctx, func() (string, error) {
		<-release
		return "", nil
	})
	if !errors.Is(err, errPageTimeout) {
		t.Fatalf("stuck page: got %v, want errPageTimeout", err)
	}

	// the stuck extraction still holds the only slot
	var ran atomic.Bool
	_, err = p.protectExtract(ctx, func() (string, error) {
		ran.Store(true)
		return "late", nil
	})
	if !errors.Is(err, errPageTimeout) {
		t.Errorf("while slot is held: got %v, want errPageTimeout", err)
	}
	if ran.Load() {
		t.Error("extraction started while no slot was free")
	}

	close(release)
	deadline := time.Now().Add(2 * time.Second)
	for {
		content, err = p.protectExtract(ctx, func() (string, error) { return "freed", nil })
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("slot never released: %v", err)
		}
	}
	if content != "freed" {
		t.Errorf("got %q", content)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	p.slots <- struct{}{}
	if _, err := p.protectExtract(cancelled, func() (string, error) { return "", nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled: got %v", err)
	}
}
