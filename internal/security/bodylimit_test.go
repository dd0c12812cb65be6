package security

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// echoBody replies with the bytes the handler received.
func echoBody(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		_, _ = w.Write(data)
	})
}

func TestBodyLimit(t *testing.T) {
	cases := []struct {
		name          string
		max           int64
		method        string
		body          string
		contentLength int64
		status        int
		echoed        string
	}{
		{name: "within limit", max: 16, method: http.MethodPost, body: `{"note":"hola"}`, status: http.StatusOK, echoed: `{"note":"hola"}`},
		{name: "exactly at limit", max: 4, method: http.MethodPut, body: "1234", status: http.StatusOK, echoed: "1234"},
		{name: "streamed past limit", max: 4, method: http.MethodPost, body: "12345", contentLength: -1, status: http.StatusRequestEntityTooLarge},
		{name: "declared past limit", max: 4, method: http.MethodPost, body: "12", contentLength: 64, status: http.StatusRequestEntityTooLarge},
		{name: "disabled", max: 0, method: http.MethodPost, body: strings.Repeat("x", 64), status: http.StatusOK, echoed: strings.Repeat("x", 64)},
		{name: "no body", max: 4, method: http.MethodGet, status: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var body io.Reader
			if tc.body != "" {
				body = strings.NewReader(tc.body)
			}
			req := httptest.NewRequest(tc.method, "/api/v1/lists/abc/enquiry", body)
			if tc.contentLength != 0 {
				req.ContentLength = tc.contentLength
			}
			rec := httptest.NewRecorder()
			BodyLimit{Max: tc.max}.Middleware(echoBody(t)).ServeHTTP(rec, req)

			require.Equal(t, tc.status, rec.Code)
			if tc.status == http.StatusOK {
				require.Equal(t, tc.echoed, rec.Body.String())
				return
			}
			var resp struct {
				Error struct {
					Code    string         `json:"code"`
					Details map[string]any `json:"details"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.Equal(t, "PAYLOAD_TOO_LARGE", resp.Error.Code)
			require.Equal(t, float64(tc.max), resp.Error.Details["maxBytes"])
		})
	}
}
