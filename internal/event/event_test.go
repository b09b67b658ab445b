package event

import "testing"

func TestOutcomeTable(t *testing.T) {
	cases := []struct {
		name   string
		build  func(string, string, any) Envelope
		code   int
		status int
	}{
		{"success", Success, 200, 1},
		{"failed", Failed, 400, 0},
		{"error", Error, 500, 0},
		{"unavailable", Unavailable, 404, 0},
		{"unauthorized", Unauthorized, 403, 1},
	}
	for _, tc := range cases {
		env := tc.build("booking-request", "msg", "data")
		if env.Code != tc.code || env.Status != tc.status {
			t.Errorf("%s: got code=%d status=%d, want %d/%d",
				tc.name, env.Code, env.Status, tc.code, tc.status)
		}
		if env.ObjectType != "booking-request" || env.Message != "msg" || env.Data != "data" {
			t.Errorf("%s: payload fields not carried: %+v", tc.name, env)
		}
	}
}
