package rose

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Built-in event names.
const (
	// EventRequest carries a platform-native request. The platform's handler
	// normalizes it into state.http.request.
	EventRequest = "http.request"

	// MetaEventRequest is raised after every EventRequest handler has run. The
	// routing pipeline subscribes to it.
	MetaEventRequest = "$.http.request"

	// EventResponsePlain sets a text/plain response from a [ResponseData].
	EventResponsePlain = "http.response.plain"

	// EventResponseJSON sets an application/json response from a
	// [ResponseData], JSON-encoding its body.
	EventResponseJSON = "http.response.json"
)

const (
	contentTypePlain = "text/plain"
	contentTypeJSON  = "application/json"
)

// ResponseData is the payload of [EventResponsePlain] and
// [EventResponseJSON]. Every field is optional.
type ResponseData struct {
	// Body is the response body. For plain responses, strings, byte slices
	// and fmt.Stringer values are written as-is and anything else is
	// formatted with fmt.Sprint. For JSON responses it is encoded with
	// encoding/json; nil encodes as "{}".
	Body any

	// Status defaults to 200.
	Status int

	// Headers are merged over the default Content-Type header.
	Headers map[string]string
}

// RegisterResponders subscribes the built-in response handlers for
// [EventResponsePlain] and [EventResponseJSON] on bus.
//
// Platforms call it from their Init method.
func RegisterResponders(bus Bus) {
	bus.Subscribe(EventResponsePlain, respondPlain)
	bus.Subscribe(EventResponseJSON, respondJSON)
}

func respondPlain(state *State, payload any) (Result, error) {
	data, err := responseData(payload)
	if err != nil {
		return Result{}, err
	}

	return Next(state.WithResponse(&Response{
		Body:    plainBody(data.Body),
		Status:  statusOrDefault(data.Status),
		Headers: mergeHeaders(contentTypePlain, data.Headers),
	}))
}

func respondJSON(state *State, payload any) (Result, error) {
	data, err := responseData(payload)
	if err != nil {
		return Result{}, err
	}

	body := []byte("{}")
	if data.Body != nil {
		body, err = json.Marshal(data.Body)
		if err != nil {
			return Result{}, fmt.Errorf("failed to encode JSON response: %w", err)
		}
	}

	return Next(state.WithResponse(&Response{
		Body:    body,
		Status:  statusOrDefault(data.Status),
		Headers: mergeHeaders(contentTypeJSON, data.Headers),
	}))
}

// responseData accepts ResponseData, *ResponseData or nil.
func responseData(payload any) (ResponseData, error) {
	switch p := payload.(type) {
	case nil:
		return ResponseData{}, nil
	case ResponseData:
		return p, nil
	case *ResponseData:
		if p == nil {
			return ResponseData{}, nil
		}
		return *p, nil
	default:
		return ResponseData{}, fmt.Errorf("unsupported response payload %T", payload)
	}
}

func plainBody(body any) []byte {
	switch b := body.(type) {
	case nil:
		return []byte{}
	case string:
		return []byte(b)
	case []byte:
		return append([]byte(nil), b...)
	case fmt.Stringer:
		return []byte(b.String())
	default:
		return []byte(fmt.Sprint(b))
	}
}

func statusOrDefault(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}

// mergeHeaders returns the default Content-Type header overridden by the
// caller's headers. Keys are canonicalized so "content-type" replaces the
// default instead of duplicating it.
func mergeHeaders(contentType string, headers map[string]string) map[string]string {
	merged := make(map[string]string, len(headers)+1)
	merged["Content-Type"] = contentType
	for k, v := range headers {
		merged[http.CanonicalHeaderKey(k)] = v
	}
	return merged
}
