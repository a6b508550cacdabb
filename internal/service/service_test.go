package service

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/vault-console/internal/models"
)

// Fakes shared by the service tests

type vaultCall struct {
	method string
	path   string
	query  url.Values
	body   interface{}
}

// fakeVault answers every request from canned responses keyed by path
type fakeVault struct {
	mu        sync.Mutex
	calls     []vaultCall
	responses map[string]interface{}
	errs      map[string]error
}

func newFakeVault() *fakeVault {
	return &fakeVault{responses: map[string]interface{}{}, errs: map[string]error{}}
}

func (f *fakeVault) respond(method, path string, query url.Values, body, out interface{}) error {
	f.mu.Lock()
	f.calls = append(f.calls, vaultCall{method: method, path: path, query: query, body: body})
	resp, err := f.responses[path], f.errs[path]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if out == nil || resp == nil {
		return nil
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeVault) Get(_ context.Context, path string, query url.Values, out interface{}) error {
	return f.respond("GET", path, query, nil, out)
}

func (f *fakeVault) Post(_ context.Context, path string, body, out interface{}) error {
	return f.respond("POST", path, nil, body, out)
}

func (f *fakeVault) Patch(_ context.Context, path string, body, out interface{}) error {
	return f.respond("PATCH", path, nil, body, out)
}

func (f *fakeVault) Delete(_ context.Context, path string, out interface{}) error {
	return f.respond("DELETE", path, nil, nil, out)
}

func (f *fakeVault) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeVault) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.path
	}
	return out
}

func (f *fakeVault) last() vaultCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

type fakeAudit struct {
	mu      sync.Mutex
	actions []models.ModerationAction
	err     error
}

func (a *fakeAudit) Record(_ context.Context, action *models.ModerationAction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, *action)
	return a.err
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }
