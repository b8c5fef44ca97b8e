package rose

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type version struct{ major, minor int }

func (v version) String() string { return fmt.Sprintf("v%d.%d", v.major, v.minor) }

func TestRespondPlain(t *testing.T) {
	tests := []struct {
		name        string
		payload     any
		wantBody    string
		wantStatus  int
		wantHeaders map[string]string
	}{
		{
			name:        "defaults",
			payload:     ResponseData{},
			wantBody:    "",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/plain"},
		},
		{
			name:        "nil payload",
			payload:     nil,
			wantBody:    "",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/plain"},
		},
		{
			name:        "string body",
			payload:     ResponseData{Body: "Hello: world"},
			wantBody:    "Hello: world",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/plain"},
		},
		{
			name:        "byte body",
			payload:     &ResponseData{Body: []byte("raw")},
			wantBody:    "raw",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/plain"},
		},
		{
			name:        "stringer body",
			payload:     ResponseData{Body: version{1, 2}},
			wantBody:    "v1.2",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/plain"},
		},
		{
			name:        "number body",
			payload:     ResponseData{Body: 42},
			wantBody:    "42",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/plain"},
		},
		{
			name: "status and headers",
			payload: ResponseData{
				Body:    "gone",
				Status:  410,
				Headers: map[string]string{"X-Powered-By": "rose"},
			},
			wantBody:    "gone",
			wantStatus:  410,
			wantHeaders: map[string]string{"Content-Type": "text/plain", "X-Powered-By": "rose"},
		},
		{
			name: "content type override",
			payload: ResponseData{
				Body:    "<p>hi</p>",
				Headers: map[string]string{"content-type": "text/html"},
			},
			wantBody:    "<p>hi</p>",
			wantStatus:  200,
			wantHeaders: map[string]string{"Content-Type": "text/html"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := respondPlain(NewState(nil), tt.payload)
			if err != nil {
				t.Fatalf("respondPlain() error = %v", err)
			}
			if result.Dispatch != nil {
				t.Errorf("Dispatch = %+v, want nil", result.Dispatch)
			}

			resp := result.State.Response()
			if resp == nil {
				t.Fatal("Response() = nil")
			}
			if string(resp.Body) != tt.wantBody {
				t.Errorf("Body = %q, want %q", resp.Body, tt.wantBody)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.Status, tt.wantStatus)
			}
			if !reflect.DeepEqual(resp.Headers, tt.wantHeaders) {
				t.Errorf("Headers = %v, want %v", resp.Headers, tt.wantHeaders)
			}
		})
	}
}

func TestRespondPlain_CopiesByteBody(t *testing.T) {
	body := []byte("abc")
	result, err := respondPlain(NewState(nil), ResponseData{Body: body})
	if err != nil {
		t.Fatalf("respondPlain() error = %v", err)
	}

	body[0] = 'x'
	if got := string(result.State.Response().Body); got != "abc" {
		t.Errorf("Body = %q after caller mutation, want %q", got, "abc")
	}
}

func TestRespondJSON(t *testing.T) {
	tests := []struct {
		name       string
		payload    any
		wantBody   string
		wantStatus int
	}{
		{"nil body", ResponseData{}, "{}", 200},
		{"nil payload", nil, "{}", 200},
		{"zero number body", ResponseData{Body: 0}, "0", 200},
		{"empty string body", ResponseData{Body: ""}, `""`, 200},
		{"false body", ResponseData{Body: false}, "false", 200},
		{"map body", ResponseData{Body: map[string]int{"count": 3}}, `{"count":3}`, 200},
		{"slice body", ResponseData{Body: []string{"a", "b"}}, `["a","b"]`, 200},
		{"struct body", ResponseData{Body: struct {
			Name string `json:"name"`
		}{"rose"}, Status: 201}, `{"name":"rose"}`, 201},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := respondJSON(NewState(nil), tt.payload)
			if err != nil {
				t.Fatalf("respondJSON() error = %v", err)
			}

			resp := result.State.Response()
			if string(resp.Body) != tt.wantBody {
				t.Errorf("Body = %s, want %s", resp.Body, tt.wantBody)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %d, want %d", resp.Status, tt.wantStatus)
			}
			if resp.Headers["Content-Type"] != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", resp.Headers["Content-Type"])
			}
		})
	}
}

func TestRespondJSON_EncodeError(t *testing.T) {
	_, err := respondJSON(NewState(nil), ResponseData{Body: make(chan int)})
	if err == nil {
		t.Fatal("respondJSON() expected error for unencodable body")
	}
	if !strings.Contains(err.Error(), "failed to encode JSON response") {
		t.Errorf("error = %v, want encode failure", err)
	}
}

func TestRespond_UnsupportedPayload(t *testing.T) {
	for _, handler := range []Handler{respondPlain, respondJSON} {
		if _, err := handler(NewState(nil), "just a string"); err == nil {
			t.Error("expected error for unsupported payload type")
		}
	}
}

func TestRespond_KeepsRequestAndClearsNotFound(t *testing.T) {
	req := &Request{Method: "GET"}
	state := NewState(nil).WithRequest(req).WithNotFound()

	result, err := respondPlain(state, ResponseData{Body: "late"})
	if err != nil {
		t.Fatalf("respondPlain() error = %v", err)
	}
	if result.State.Request() != req {
		t.Error("response handler should keep the current request")
	}
	if result.State.NotFound() {
		t.Error("NotFound() = true after a response was set")
	}
}

func TestRespond_EncodeErrorAbortsDispatch(t *testing.T) {
	app := newTestApp(t)

	err := app.Dispatch(EventResponseJSON, ResponseData{Body: func() {}})
	if !errors.Is(err, ErrHandler) {
		t.Fatalf("Dispatch() error = %v, want ErrHandler", err)
	}
	if app.State().Response() != nil {
		t.Error("failed encode should not set a response")
	}
}
