package scribe_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ScrewVolt/halov2/pkg/scribe"
)

func TestTranscribe(t *testing.T) {
	var gotField, gotFilename string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transcribe" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotField = "audio"
		gotFilename = header.Filename
		gotBody, _ = io.ReadAll(file)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"transcript": "nurse gave medication"}`)
	}))
	defer srv.Close()

	c := scribe.NewClient(srv.URL)
	got, err := c.Transcribe(context.Background(), []byte("fake-wav-bytes"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "nurse gave medication" {
		t.Errorf("transcript = %q, want %q", got, "nurse gave medication")
	}
	if gotField != "audio" || gotFilename != "recording.wav" {
		t.Errorf("multipart field/filename = %q/%q, want audio/recording.wav", gotField, gotFilename)
	}
	if string(gotBody) != "fake-wav-bytes" {
		t.Errorf("uploaded payload = %q, want %q", gotBody, "fake-wav-bytes")
	}
}

func TestTranscribeEmptyTranscriptIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"transcript": ""}`)
	}))
	defer srv.Close()

	got, err := scribe.NewClient(srv.URL).Transcribe(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("transcript = %q, want empty", got)
	}
}

func TestTranscribeFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    scribe.Kind
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
			want: scribe.KindProtocol,
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "not json")
			},
			want: scribe.KindProtocol,
		},
		{
			name: "missing transcript field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"error": "no audio"}`)
			},
			want: scribe.KindEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := scribe.NewClient(srv.URL).Transcribe(context.Background(), []byte("x"))
			e, ok := scribe.AsError(err)
			if !ok {
				t.Fatalf("err = %v, want *scribe.Error", err)
			}
			if e.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", e.Kind, tt.want)
			}
			if e.Op != "transcribe" {
				t.Errorf("Op = %s, want transcribe", e.Op)
			}
		})
	}
}

func TestTranscribeNetworkFailure(t *testing.T) {
	// A server that is already closed produces a transport error.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := scribe.NewClient(srv.URL).Transcribe(context.Background(), []byte("x"))
	e, ok := scribe.AsError(err)
	if !ok {
		t.Fatalf("err = %v, want *scribe.Error", err)
	}
	if e.Kind != scribe.KindNetwork {
		t.Errorf("Kind = %s, want %s", e.Kind, scribe.KindNetwork)
	}
}

func TestSummarize(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/summary" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotBody, _ = io.ReadAll(r.Body)
		io.WriteString(w, `{"summary": "**Assessment:** stable"}`)
	}))
	defer srv.Close()

	got, err := scribe.NewClient(srv.URL).Summarize(context.Background(), "Nurse: hello\nPatient: hi")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "**Assessment:** stable" {
		t.Errorf("summary = %q", got)
	}
	if want := `{"messages":"Nurse: hello\nPatient: hi"}`; string(gotBody) != want {
		t.Errorf("request body = %s, want %s", gotBody, want)
	}
}

func TestSummarizeRejectsEmptyConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server; validation must fail first")
	}))
	defer srv.Close()

	_, err := scribe.NewClient(srv.URL).Summarize(context.Background(), "  \n ")
	if !errors.Is(err, scribe.ErrNoConversation) {
		t.Fatalf("err = %v, want ErrNoConversation", err)
	}
}

func TestSummarizeFailureKinds(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		want       scribe.Kind
		wantStatus int
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
			want:       scribe.KindHTTPStatus,
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name: "missing summary field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{}`)
			},
			want: scribe.KindEmptyResponse,
		},
		{
			name: "blank summary",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"summary": "   "}`)
			},
			want: scribe.KindEmptyResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := scribe.NewClient(srv.URL).Summarize(context.Background(), "some transcript")
			e, ok := scribe.AsError(err)
			if !ok {
				t.Fatalf("err = %v, want *scribe.Error", err)
			}
			if e.Kind != tt.want {
				t.Errorf("Kind = %s, want %s", e.Kind, tt.want)
			}
			if tt.wantStatus != 0 && e.HTTPStatus != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", e.HTTPStatus, tt.wantStatus)
			}
		})
	}
}
