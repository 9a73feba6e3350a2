package cli

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/raphaelgruber/medconsult-go/internal/client"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeAPI is an in-memory consultation service.
type fakeAPI struct {
	mu          sync.Mutex
	creates     int
	texts       []string
	audio       [][]byte
	summaryFail int // number of summary calls to fail with 503
	summaries   int
}

func (f *fakeAPI) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/conversations":
			f.creates++
			writeJSON(w, http.StatusOK, map[string]any{
				"_id":              "665f1c2e9b1d4a0012ab34cd",
				"doctor_language":  "English",
				"patient_language": "Spanish",
				"created_at":       "2024-05-01T10:00:00",
			})
		case r.URL.Path == "/api/messages/text":
			var in struct {
				ConversationID string `json:"conversation_id"`
				SenderRole     string `json:"sender_role"`
				Text           string `json:"text"`
			}
			if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
				t.Errorf("decode text request: %v", err)
			}
			f.texts = append(f.texts, in.SenderRole+":"+in.Text)
			writeJSON(w, http.StatusOK, map[string]any{
				"_id":             "m" + strconv.Itoa(len(f.texts)),
				"conversation_id": in.ConversationID,
				"sender_role":     in.SenderRole,
				"original_text":   in.Text,
				"translated_text": "(" + strings.ToUpper(in.Text) + ")",
			})
		case r.URL.Path == "/api/messages/audio":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("parse audio form: %v", err)
			}
			file, _, err := r.FormFile("file")
			if err != nil {
				t.Errorf("audio form file: %v", err)
				http.Error(w, "missing file", http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(file)
			_ = file.Close()
			f.audio = append(f.audio, data)
			writeJSON(w, http.StatusOK, map[string]any{
				"_id":             "a" + strconv.Itoa(len(f.audio)),
				"conversation_id": r.FormValue("conversation_id"),
				"sender_role":     r.FormValue("sender_role"),
				"original_text":   "[Audio Message]",
				"audio_url":       "/api/audio/a" + strconv.Itoa(len(f.audio)),
			})
		case strings.HasSuffix(r.URL.Path, "/summary"):
			f.summaries++
			if f.summaries <= f.summaryFail {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"detail": "model busy"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"summary": "- Symptoms: headache"})
		default:
			http.NotFound(w, r)
		}
	}
}

// apiCalls is a copy of what the fake service received.
type apiCalls struct {
	creates   int
	texts     []string
	audio     [][]byte
	summaries int
}

func (f *fakeAPI) calls() apiCalls {
	f.mu.Lock()
	defer f.mu.Unlock()
	return apiCalls{
		creates:   f.creates,
		texts:     append([]string(nil), f.texts...),
		audio:     append([][]byte(nil), f.audio...),
		summaries: f.summaries,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeClient(t *testing.T, api *fakeAPI) *client.Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return client.New(srv.URL, 5*time.Second, client.WithLogger(discardLogger()))
}
