package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SetupTestRouter returns a bare engine in test mode
func SetupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// CreateTestRequest builds a request, JSON-encoding body when it is not nil
func CreateTestRequest(method, url string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, url, nil)
	}
	raw, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("marshal test body: %v", err))
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// FormFile is the file part of a project upload
type FormFile struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
}

// CreateMultipartRequest builds a multipart/form-data request from fields
// and an optional file part
func CreateMultipartRequest(t *testing.T, method, url string, fields map[string]string, file *FormFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Filename))
		h.Set("Content-Type", file.ContentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(file.Content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// WithBearer sets a bearer token on req and returns it
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// Serve runs req through r and returns the recorder
func Serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), "body %q", data)
	return out
}

// AssertJSONResponse checks the status and that every key of expected is
// present in the JSON body with the same value. Extra keys are allowed.
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, status int, expected any) {
	t.Helper()
	assert.Equal(t, status, w.Code, "body %s", w.Body.String())
	if ct := w.Header().Get("Content-Type"); ct != "" {
		assert.Contains(t, ct, "application/json")
	}
	if expected == nil {
		return
	}

	raw, err := json.Marshal(expected)
	require.NoError(t, err)
	want := decodeObject(t, raw)
	got := decodeObject(t, w.Body.Bytes())
	for k, v := range want {
		if assert.Contains(t, got, k) {
			assert.Equal(t, v, got[k], "key %s", k)
		}
	}
}

// AssertErrorResponse checks a {code, message} body with the given status.
// An empty code matches any.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, "body %s", w.Body.String())

	body := decodeObject(t, w.Body.Bytes())
	assert.Contains(t, body, "message")
	if assert.Contains(t, body, "code") && code != "" {
		assert.Equal(t, code, body["code"])
	}
}
