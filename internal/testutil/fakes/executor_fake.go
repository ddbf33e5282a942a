package fakes

import (
	"context"
	"encoding/json"
	"sync"
)

// FakeActionExecutor records executions and returns a canned result.
type FakeActionExecutor struct {
	mu      sync.Mutex
	Configs []json.RawMessage

	Result string
	Err    error
}

func NewFakeActionExecutor() *FakeActionExecutor {
	return &FakeActionExecutor{Result: "ok"}
}

func (f *FakeActionExecutor) Execute(_ context.Context, config json.RawMessage, _ map[string]interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Configs = append(f.Configs, config)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Result, nil
}

// Calls returns how many times Execute ran.
func (f *FakeActionExecutor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Configs)
}
