package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/validation"
)

type stubCatalog struct {
	products map[string]model.Product
	err      error
	calls    int
}

func (c *stubCatalog) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	p, ok := c.products[id]
	if !ok {
		return nil, errors.New("product not found")
	}
	return &p, nil
}

type publishedEvent struct {
	topic string
	key   string
	event any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{topic: topic, key: key, event: event})
	return nil
}

func (p *recordingPublisher) byTopic(topic string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []publishedEvent
	for _, e := range p.events {
		if e.topic == topic {
			res = append(res, e)
		}
	}
	return res
}

func TestResolveProduct(t *testing.T) {
	ctx := context.Background()
	fromCatalog := model.Product{ID: "p1", VendorID: "v1", Name: "Catalog", Price: 100, Stock: 1}
	snapshot := &model.Product{ID: "p1", VendorID: "v1", Name: "Snapshot", Price: 50, Stock: 1}

	catalog := &stubCatalog{products: map[string]model.Product{"p1": fromCatalog}}

	p, err := resolveProduct(ctx, catalog, "p1", nil)
	if err != nil || p.Name != "Catalog" {
		t.Fatalf("resolve by id = %+v, %v", p, err)
	}

	p, err = resolveProduct(ctx, catalog, "", snapshot)
	if err != nil || p.Name != "Catalog" {
		t.Fatalf("catalog must win over snapshot, got %+v, %v", p, err)
	}

	p, err = resolveProduct(ctx, nil, "p1", snapshot)
	if err != nil || p.Name != "Snapshot" {
		t.Fatalf("snapshot without catalog = %+v, %v", p, err)
	}

	_, err = resolveProduct(ctx, nil, "p1", nil)
	if !errors.Is(err, validation.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}

	catalog.err = errors.New("catalog down")
	if _, err := resolveProduct(ctx, catalog, "p1", nil); err == nil {
		t.Fatalf("expected catalog error")
	}
}
