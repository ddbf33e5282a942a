package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/formflux/formflux/internal/gateway"
	"github.com/formflux/formflux/internal/models"
)

// FakeCircuitStore keeps circuit records in memory.
type FakeCircuitStore struct {
	mu       sync.Mutex
	circuits map[string]models.ConnectorCircuit

	GetErr error
	SetErr error
}

func NewFakeCircuitStore() *FakeCircuitStore {
	return &FakeCircuitStore{circuits: make(map[string]models.ConnectorCircuit)}
}

func (f *FakeCircuitStore) GetCircuit(_ context.Context, connectorID string) (*models.ConnectorCircuit, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	circuit, ok := f.circuits[connectorID]
	if !ok {
		return nil, nil
	}
	copied := circuit
	return &copied, nil
}

func (f *FakeCircuitStore) SetCircuit(_ context.Context, connectorID string, circuit *models.ConnectorCircuit, _ time.Duration) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.circuits[connectorID] = *circuit
	return nil
}

func (f *FakeCircuitStore) DeleteCircuit(_ context.Context, connectorID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.circuits, connectorID)
	return nil
}

// FakeRateWindow counts reservations per connector without a clock.
type FakeRateWindow struct {
	mu     sync.Mutex
	counts map[string]int64

	ReserveErr error
}

func NewFakeRateWindow() *FakeRateWindow {
	return &FakeRateWindow{counts: make(map[string]int64)}
}

func (f *FakeRateWindow) Reserve(_ context.Context, connectorID string, _ time.Time, _ time.Duration, limit int) (bool, error) {
	if f.ReserveErr != nil {
		return false, f.ReserveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.counts[connectorID] >= int64(limit) {
		return false, nil
	}
	f.counts[connectorID]++
	return true, nil
}

func (f *FakeRateWindow) Count(_ context.Context, connectorID string, _ time.Time, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[connectorID], nil
}

// FakeSender records outbound requests and replies with canned responses.
type FakeSender struct {
	mu       sync.Mutex
	Requests []gateway.Request

	Response *gateway.Response
	Err      error
}

func NewFakeSender() *FakeSender {
	return &FakeSender{Response: &gateway.Response{StatusCode: 200, Attempts: 1}}
}

func (f *FakeSender) Send(_ context.Context, _, _ string, req gateway.Request) (*gateway.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Response, nil
}

// SentCount returns how many requests were attempted.
func (f *FakeSender) SentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}
