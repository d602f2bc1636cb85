package jsonrpc

import (
	"encoding/json"
	"testing"
)

func TestRequestDiscriminatesNotifications(t *testing.T) {
	cases := []struct {
		name         string
		line         string
		notification bool
	}{
		{"integer id", `{"jsonrpc":"2.0","id":1,"method":"m"}`, false},
		{"string id", `{"jsonrpc":"2.0","id":"x","method":"m"}`, false},
		{"zero id", `{"jsonrpc":"2.0","id":0,"method":"m"}`, false},
		{"absent id", `{"jsonrpc":"2.0","method":"m"}`, true},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"m"}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var req Request
			if err := json.Unmarshal([]byte(tc.line), &req); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if req.IsNotification() != tc.notification {
				t.Fatalf("IsNotification = %v, want %v", req.IsNotification(), tc.notification)
			}
		})
	}
}

func TestRequestIDEchoesUnmodified(t *testing.T) {
	for _, raw := range []string{`7`, `"abc"`, `0`, `2.5`} {
		var id RequestID
		if err := id.UnmarshalJSON([]byte(raw)); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		out, err := id.MarshalJSON()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(out) != raw {
			t.Fatalf("id %s round-tripped as %s", raw, out)
		}
	}
}

func TestRequestIDRejectsNonScalar(t *testing.T) {
	var id RequestID
	if err := id.UnmarshalJSON([]byte(`{"a":1}`)); err == nil {
		t.Fatal("object accepted as request id")
	}
	if err := id.UnmarshalJSON([]byte(`[1]`)); err == nil {
		t.Fatal("array accepted as request id")
	}
}

func TestErrorResponseEmitsNullID(t *testing.T) {
	resp := NewErrorResponse(nil, ErrorCodeParseError, "Parse error")
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var env map[string]any
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("round-trip: %v", err)
	}
	id, present := env["id"]
	if !present || id != nil {
		t.Fatalf("id should serialize as null, got %v (present=%v)", id, present)
	}
	errObj := env["error"].(map[string]any)
	if errObj["code"] != float64(-32700) || errObj["message"] != "Parse error" {
		t.Fatalf("unexpected error object: %v", errObj)
	}
}

func TestResultResponseOmitsError(t *testing.T) {
	resp, err := NewResultResponse(NewRequestID(3), map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("NewResultResponse: %v", err)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var env map[string]any
	if err := json.Unmarshal(b, &env); err != nil {
		t.Fatalf("round-trip: %v", err)
	}
	if _, ok := env["error"]; ok {
		t.Fatalf("success envelope carries error: %v", env)
	}
	if env["id"] != float64(3) {
		t.Fatalf("id = %v", env["id"])
	}
}
