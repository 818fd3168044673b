package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/baalimago/go_away_boilerplate/pkg/testboil"
	"github.com/baalimago/worklog/internal/models"
	"go.uber.org/goleak"
)

// roundTripFunc allows injecting errors in http.Client
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func sseServer(t *testing.T, lines ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		fl, _ := w.(http.Flusher)
		for _, l := range lines {
			fmt.Fprintf(w, "%s\n\n", l)
			if fl != nil {
				fl.Flush()
			}
		}
	}))
}

func contentLine(s string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"delta": map[string]any{"content": s}}},
	})
	return "data: " + string(b)
}

func drain(t *testing.T, ch chan models.CompletionEvent) ([]string, []error) {
	t.Helper()
	var strs []string
	var errs []error
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return strs, errs
			}
			switch cast := ev.(type) {
			case string:
				strs = append(strs, cast)
			case error:
				errs = append(errs, cast)
			default:
				t.Fatalf("unexpected event: %T %v", ev, ev)
			}
		case <-timeout:
			t.Fatal("timeout waiting for stream to close")
		}
	}
}

func testGpt(ts *httptest.Server) *ChatGPT {
	return &ChatGPT{Model: "m", URL: ts.URL, client: ts.Client(), apiKey: "k"}
}

func TestStreamCompletions_DoError(t *testing.T) {
	g := &ChatGPT{client: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("boom")
	})}, apiKey: "k", URL: "http://example.invalid"}

	ch, err := g.StreamCompletions(context.Background(), models.Chat{Messages: []models.Message{{Role: models.RoleUser, Content: "x"}}})
	if err == nil || !strings.Contains(err.Error(), "failed to execute request") {
		t.Fatalf("expected execute request error, got: %v, ch=%v", err, ch)
	}
}

func TestStreamCompletions_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer ts.Close()

	ch, err := testGpt(ts).StreamCompletions(context.Background(), models.Chat{})
	if err == nil {
		t.Fatalf("expected non-200 error, got ch=%v", ch)
	}
	testboil.AssertStringContains(t, err.Error(), "unexpected status code")
	testboil.AssertStringContains(t, err.Error(), "bad key")
}

func TestStreamCompletions_UntilDone(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ts := sseServer(t,
		`data: {"choices":[{"delta":{"role":"assistant","content":""}}]}`,
		contentLine("Hello"),
		": keep-alive",
		contentLine(" there"),
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		"data: [DONE]",
		contentLine("never seen"),
	)
	defer ts.Close()

	out, err := testGpt(ts).StreamCompletions(context.Background(), models.Chat{Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	strs, errs := drain(t, out)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	testboil.FailTestIfDiff(t, strings.Join(strs, ""), "Hello there")
	testboil.FailTestIfDiff(t, len(strs), 2)
}

func TestStreamCompletions_EOFWithoutDone(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	ts := sseServer(t, contentLine("partial"))
	defer ts.Close()

	out, err := testGpt(ts).StreamCompletions(context.Background(), models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	strs, errs := drain(t, out)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	testboil.FailTestIfDiff(t, strings.Join(strs, ""), "partial")
}

func TestStreamCompletions_ApiErrorChunk(t *testing.T) {
	ts := sseServer(t, `data: {"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, "data: [DONE]")
	defer ts.Close()

	out, err := testGpt(ts).StreamCompletions(context.Background(), models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	_, errs := drain(t, out)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got: %v", errs)
	}
	testboil.AssertStringContains(t, errs[0].Error(), "quota exceeded")
}

func TestStreamCompletions_ReturnsOnContextCancel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()
	models.StreamCompleter_Test(t, testGpt(ts))
}

func TestStreamCompletions_ClosesOnCancelMidStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s\n\n", contentLine("first"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	out, err := testGpt(ts).StreamCompletions(ctx, models.Chat{})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	first := <-out
	testboil.FailTestIfDiff(t, first.(string), "first")
	cancel()
	// Whatever remains, the channel has to close
	drain(t, out)
}

func TestCreateRequest_BodyAndHeaders(t *testing.T) {
	maxTokens := 123
	g := &ChatGPT{Model: "gpt-4o-mini", Temperature: 0, MaxTokens: &maxTokens, apiKey: "sekret", URL: "http://example.invalid"}
	chat := models.Chat{Messages: []models.Message{
		{Role: models.RoleSystem, Content: "s"},
		{Role: models.RoleUser, Content: "c"},
	}}
	httpReq, err := g.createRequest(context.Background(), chat)
	if err != nil {
		t.Fatalf("createRequest err: %v", err)
	}

	testboil.FailTestIfDiff(t, httpReq.Method, http.MethodPost)
	testboil.FailTestIfDiff(t, httpReq.Header.Get("Content-Type"), "application/json")
	testboil.FailTestIfDiff(t, httpReq.Header.Get("Authorization"), "Bearer sekret")
	testboil.FailTestIfDiff(t, httpReq.Header.Get("Accept"), "text/event-stream")

	b, _ := io.ReadAll(httpReq.Body)
	var body map[string]any
	if err := json.Unmarshal(b, &body); err != nil {
		t.Fatalf("unmarshal body: %v\nbody=%s", err, string(b))
	}
	if v, ok := body["stream"].(bool); !ok || !v {
		t.Fatalf("expected stream=true, got: %T %v", body["stream"], body["stream"])
	}
	if v, ok := body["model"].(string); !ok || v != g.Model {
		t.Fatalf("model mismatch: %v", body["model"])
	}
	// Zero temperature is a deliberate setting and must be sent
	if v, ok := body["temperature"].(float64); !ok || v != 0 {
		t.Fatalf("temperature mismatch: %T %v", body["temperature"], body["temperature"])
	}
	if v, ok := body["max_tokens"].(float64); !ok || int(v) != maxTokens {
		t.Fatalf("max mismatch: %v", body["max_tokens"])
	}
	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("messages mismatch: %v", body["messages"])
	}
}

func TestHandleStreamChunk(t *testing.T) {
	g := &ChatGPT{}
	testCases := []struct {
		desc     string
		given    string
		want     models.CompletionEvent
		wantDone bool
	}{
		{desc: "content", given: contentLine("hi"), want: "hi"},
		{desc: "content without space after data", given: `data:{"choices":[{"delta":{"content":"x"}}]}`, want: "x"},
		{desc: "done", given: "data: [DONE]", want: models.NoopEvent{}, wantDone: true},
		{desc: "blank", given: "\n", want: models.NoopEvent{}},
		{desc: "comment", given: ": ping", want: models.NoopEvent{}},
		{desc: "event line", given: "event: message", want: models.NoopEvent{}},
		{desc: "garbage json", given: "data: {nope", want: models.NoopEvent{}},
		{desc: "no choices", given: `data: {"choices":[]}`, want: models.NoopEvent{}},
		{desc: "empty delta", given: `data: {"choices":[{"delta":{}}]}`, want: models.NoopEvent{}},
		{desc: "whitespace content is kept", given: contentLine(" \n"), want: " \n"},
	}
	for _, tC := range testCases {
		t.Run(tC.desc, func(t *testing.T) {
			got, done := g.handleStreamChunk([]byte(tC.given))
			testboil.FailTestIfDiff(t, done, tC.wantDone)
			if got != tC.want {
				t.Fatalf("expected: %#v, got: %#v", tC.want, got)
			}
		})
	}
}
