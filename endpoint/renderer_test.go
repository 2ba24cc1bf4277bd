package endpoint

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestBytesRenderer(t *testing.T) {
	tests := []struct {
		name       string
		renderer   *BytesRenderer
		wantStatus int
		wantType   string
		wantBody   string
	}{
		{
			name:       "DefaultStatus",
			renderer:   &BytesRenderer{ContentType: "application/json", Body: []byte(`{"ok":true}`)},
			wantStatus: http.StatusOK,
			wantType:   "application/json",
			wantBody:   `{"ok":true}`,
		},
		{
			name:       "ExplicitStatus",
			renderer:   &BytesRenderer{Status: http.StatusAccepted, ContentType: "application/cbor", Body: []byte{0xf6}},
			wantStatus: http.StatusAccepted,
			wantType:   "application/cbor",
			wantBody:   "\xf6",
		},
		{
			name:       "EmptyBody",
			renderer:   &BytesRenderer{},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			if err := tt.renderer.Render(w, httptest.NewRequest(http.MethodGet, "/", nil)); err != nil {
				t.Fatalf("Render: %v", err)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Content-Type"); got != tt.wantType {
				t.Errorf("content type: got %q, want %q", got, tt.wantType)
			}
			if got := w.Body.String(); got != tt.wantBody {
				t.Errorf("body: got %q, want %q", got, tt.wantBody)
			}
		})
	}
}

func TestNoContentRenderer(t *testing.T) {
	for _, tc := range []struct {
		status int
		want   int
	}{
		{0, http.StatusNoContent},
		{http.StatusAccepted, http.StatusAccepted},
	} {
		w := httptest.NewRecorder()
		r := &NoContentRenderer{Status: tc.status}
		if err := r.Render(w, httptest.NewRequest(http.MethodPost, "/", nil)); err != nil {
			t.Fatalf("Render: %v", err)
		}
		if w.Code != tc.want {
			t.Errorf("status %d: got %d, want %d", tc.status, w.Code, tc.want)
		}
		if w.Body.Len() != 0 {
			t.Errorf("status %d: unexpected body %q", tc.status, w.Body.String())
		}
	}
}
