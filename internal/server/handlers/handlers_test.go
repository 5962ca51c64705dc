package handlers

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/refdata/pkg/errors"
)

func TestPathID(t *testing.T) {
	tests := []struct {
		value  string
		want   int64
		ok     bool
		detail string
	}{
		{"42", 42, true, ""},
		{"0", 0, false, "Invalid id."},
		{"-3", 0, false, "Invalid id."},
		{"abc", 0, false, "Invalid id."},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("id", tt.value)
			w := httptest.NewRecorder()

			got, ok := pathID(w, r, "id")
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			if !ok {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), tt.detail)
			}
		})
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("link_id", "x")
	w := httptest.NewRecorder()
	_, ok := pathID(w, r, "link_id")
	assert.False(t, ok)
	assert.Contains(t, w.Body.String(), "Invalid link id.")
}

func TestQueryID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?connection_id=7", nil)
	id, err := queryID(r, "connection_id")
	require.NoError(t, err)
	assert.EqualValues(t, 7, id)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	id, err = queryID(r, "connection_id")
	require.NoError(t, err)
	assert.Zero(t, id)

	r = httptest.NewRequest(http.MethodGet, "/?connection_id=seven", nil)
	_, err = queryID(r, "connection_id")
	assert.True(t, errors.IsValidationError(err))
}

func TestBind(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"crm"}`))
	assert.True(t, bind(httptest.NewRecorder(), r, &v))
	assert.Equal(t, "crm", v.Name)

	r = httptest.NewRequest(http.MethodPost, "/", http.NoBody)
	assert.True(t, bind(httptest.NewRecorder(), r, &v), "empty body is the zero value")

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	w := httptest.NewRecorder()
	assert.False(t, bind(w, r, &v))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid request body")
}

func TestUpload(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "values.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("label\nSingle\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/", &body)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	up, closeFile, err := upload(r)
	require.NoError(t, err)
	defer closeFile()
	assert.Equal(t, "values.csv", up.Filename)
	data, err := io.ReadAll(up.Body)
	require.NoError(t, err)
	assert.Equal(t, "label\nSingle\n", string(data))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	r.Header.Set("Content-Type", "application/json")
	_, _, err = upload(r)
	assert.True(t, errors.IsValidationError(err))
}
