package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

func TestSlack_OK(t *testing.T) {
	var got string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		_ = json.NewDecoder(r.Body).Decode(&payload)
		got = payload["text"]
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL)
	if s == nil {
		t.Fatal("expected slack client")
	}
	if err := s.Send(context.Background(), "Backend switched", "now http://10.0.0.5:8000"); err != nil {
		t.Fatalf("send err: %v", err)
	}
	if !strings.HasPrefix(got, "*Backend switched*\n") {
		t.Fatalf("payload not as expected: %q", got)
	}
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewSlack(ts.URL).Send(context.Background(), "X", "Y")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("expected non-2xx error, got %v", err)
	}
}

func TestSlack_Disabled(t *testing.T) {
	var s *Slack = NewSlack("")
	if err := s.Send(context.Background(), "X", "Y"); !errors.Is(err, ErrSlackDisabled) {
		t.Fatalf("want ErrSlackDisabled, got %v", err)
	}
}

type failing struct{ msg string }

func (f failing) Send(ctx context.Context, title, text string) error { return errors.New(f.msg) }

type recording struct{ titles []string }

func (r *recording) Send(ctx context.Context, title, text string) error {
	r.titles = append(r.titles, title)
	return nil
}

func TestMulti_SendsToAllAndCollectsErrors(t *testing.T) {
	rec := &recording{}
	m := Multi{failing{"a down"}, nil, rec, failing{"b down"}, Log{Logger: zap.NewNop()}}

	err := m.Send(context.Background(), "Backend unreachable", "no candidate answered")
	if len(rec.titles) != 1 {
		t.Fatalf("recording notifier not reached: %+v", rec.titles)
	}
	if errs := multierr.Errors(err); len(errs) != 2 {
		t.Fatalf("want 2 errors, got %v", err)
	}
}
