package rose

import (
	"net/url"
	"reflect"
	"testing"
)

func TestNewState_CopiesValues(t *testing.T) {
	values := map[string]any{"greeting": "Hello"}
	state := NewState(values)

	values["greeting"] = "changed"
	if v, _ := state.Value("greeting"); v != "Hello" {
		t.Errorf("Value(greeting) = %v, want %q", v, "Hello")
	}
}

func TestState_WithValueLeavesReceiverUntouched(t *testing.T) {
	base := NewState(map[string]any{"a": 1})
	next := base.WithValue("b", 2)

	if base == next {
		t.Fatal("WithValue() should return a new snapshot")
	}
	if _, ok := base.Value("b"); ok {
		t.Error("base snapshot gained value b")
	}
	if !reflect.DeepEqual(next.Values(), map[string]any{"a": 1, "b": 2}) {
		t.Errorf("next.Values() = %v, want a and b", next.Values())
	}
}

func TestState_WithoutValue(t *testing.T) {
	base := NewState(map[string]any{"a": 1, "b": 2})

	if base.WithoutValue("missing") != base {
		t.Error("WithoutValue() of an absent key should return the receiver")
	}

	next := base.WithoutValue("a")
	if _, ok := next.Value("a"); ok {
		t.Error("value a still present after WithoutValue")
	}
	if _, ok := base.Value("a"); !ok {
		t.Error("base snapshot lost value a")
	}
}

func TestState_ValuesReturnsCopy(t *testing.T) {
	state := NewState(map[string]any{"a": 1})
	values := state.Values()
	values["a"] = 99

	if v, _ := state.Value("a"); v != 1 {
		t.Errorf("Value(a) = %v after mutating Values(), want 1", v)
	}
}

func TestState_HTTPBranch(t *testing.T) {
	req := &Request{Method: "GET"}
	resp := &Response{Status: 204}

	empty := NewState(nil)
	if _, ok := empty.HTTP(); ok {
		t.Error("HTTP() ok = true on an empty state")
	}

	withReq := empty.WithRequest(req)
	if withReq.Request() != req || withReq.Response() != nil || withReq.NotFound() {
		t.Errorf("WithRequest() branch = %+v, want request only", withReq.http)
	}

	withResp := withReq.WithResponse(resp)
	if withResp.Request() != req || withResp.Response() != resp {
		t.Error("WithResponse() should keep the request and set the response")
	}
	if withReq.Response() != nil {
		t.Error("WithResponse() modified the receiver")
	}

	notFound := withResp.WithNotFound()
	if notFound.Response() != nil || !notFound.NotFound() {
		t.Error("WithNotFound() should clear the response and set the marker")
	}
	if notFound.Request() != req {
		t.Error("WithNotFound() should keep the request")
	}

	fresh := notFound.WithRequest(&Request{Method: "POST"})
	if fresh.NotFound() || fresh.Response() != nil {
		t.Error("WithRequest() should drop the previous outcome")
	}
}

func TestState_SharesUnchangedParts(t *testing.T) {
	base := NewState(map[string]any{"a": 1}).WithRequest(&Request{Method: "GET"})
	next := base.WithValue("b", 2)

	if next.http != base.http {
		t.Error("WithValue() should share the http branch")
	}

	responded := base.WithResponse(&Response{})
	if !reflect.DeepEqual(responded.values, base.values) {
		t.Error("WithResponse() should keep values")
	}
}

func TestState_NilReceiver(t *testing.T) {
	var state *State

	if state.Request() != nil || state.Response() != nil || state.NotFound() {
		t.Error("nil state should report no http branch")
	}
	if _, ok := state.Value("a"); ok {
		t.Error("nil state should have no values")
	}
	if len(state.Values()) != 0 {
		t.Error("nil state Values() should be empty")
	}

	next := state.WithValue("a", 1)
	if v, _ := next.Value("a"); v != 1 {
		t.Errorf("WithValue() on nil state = %v, want 1", v)
	}
}

func TestLookup(t *testing.T) {
	state := NewState(map[string]any{"name": "rose", "count": 3})

	if name, ok := Lookup[string](state, "name"); !ok || name != "rose" {
		t.Errorf("Lookup[string](name) = %q, %v", name, ok)
	}
	if _, ok := Lookup[string](state, "count"); ok {
		t.Error("Lookup[string](count) should fail on type mismatch")
	}
	if count, ok := Lookup[int](state, "count"); !ok || count != 3 {
		t.Errorf("Lookup[int](count) = %d, %v", count, ok)
	}
	if _, ok := Lookup[int](state, "missing"); ok {
		t.Error("Lookup of a missing key should fail")
	}
}

func TestRequest_Path(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		want string
	}{
		{"nil request", nil, ""},
		{"nil url", &Request{}, ""},
		{"plain path", &Request{URL: &url.URL{Path: "/hello/world"}}, "/hello/world"},
		{"encoded slash stays escaped", &Request{URL: &url.URL{Path: "/files/a/b", RawPath: "/files/a%2Fb"}}, "/files/a%2Fb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Path(); got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}
