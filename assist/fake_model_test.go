package assist

import (
	"context"
	"sync"
	"time"
)

// fakeModel replays responses in order and records requests.
type fakeModel struct {
	mu        sync.Mutex
	requests  []Request
	responses []fakeResponse
}

type fakeResponse struct {
	resp *Response
	err  error
	// wait blocks until ctx is done before answering.
	wait bool
}

func (m *fakeModel) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		m.mu.Unlock()
		return nil, errUnexpectedCall
	}
	next := m.responses[0]
	m.responses = m.responses[1:]
	m.mu.Unlock()

	if next.wait {
		<-ctx.Done()
		if next.resp != nil {
			return next.resp, nil
		}
		return nil, ctx.Err()
	}
	return next.resp, next.err
}

func (m *fakeModel) calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *fakeModel) text(text string) *fakeModel {
	m.responses = append(m.responses, fakeResponse{resp: &Response{Text: text}})
	return m
}

func (m *fakeModel) media(mimeType string, data []byte) *fakeModel {
	m.responses = append(m.responses, fakeResponse{resp: &Response{Media: []Media{{MIMEType: mimeType, Data: data}}}})
	return m
}

func (m *fakeModel) fail(err error) *fakeModel {
	m.responses = append(m.responses, fakeResponse{err: err})
	return m
}

type testError string

func (e testError) Error() string { return string(e) }

const (
	errUnexpectedCall = testError("unexpected model call")
	errBackend        = testError("backend unavailable")
)

// fixedNow is 2024-01-10 09:00 in Jakarta.
func fixedNow() time.Time {
	return time.Date(2024, 1, 10, 9, 0, 0, 0, jakarta())
}

func jakarta() *time.Location {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		return time.FixedZone("WIB", 7*60*60)
	}
	return loc
}

func testOptions(model Model) Options {
	return Options{
		Model:    model,
		Location: jakarta(),
		Now:      fixedNow,
		Timeout:  time.Second,
	}
}
