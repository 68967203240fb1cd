package binder_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/binder"
)

type roomRequest struct {
	PropertyID string   `path:"propertyID" json:"-"`
	Floor      int      `json:"floor" form:"floor"`
	RoomNumber string   `json:"roomNumber" form:"roomNumber"`
	Beds       int      `json:"bedCount" form:"bedCount"`
	DryRun     bool     `query:"dry_run" json:"-"`
	Labels     []string `query:"labels" json:"-"`
}

func TestJSON(t *testing.T) {
	t.Parallel()
	bind := binder.JSON()

	tests := []struct {
		name        string
		contentType string
		body        string
		wantErr     error
	}{
		{name: "valid", contentType: "application/json; charset=utf-8", body: `{"floor":2,"roomNumber":"201","bedCount":3}`},
		{name: "unknown field", contentType: "application/json", body: `{"floor":2,"extra":true}`, wantErr: binder.ErrInvalidJSON},
		{name: "trailing data", contentType: "application/json", body: `{"floor":2}{}`, wantErr: binder.ErrInvalidJSON},
		{name: "empty", contentType: "application/json", wantErr: binder.ErrInvalidJSON},
		{name: "missing content type", body: `{}`, wantErr: binder.ErrMissingContentType},
		{name: "xml", contentType: "application/xml", body: `<a/>`, wantErr: binder.ErrUnsupportedMediaType},
		{name: "form is left to the form binder", contentType: "application/x-www-form-urlencoded", body: "floor=1", wantErr: binder.ErrBinderNotApplicable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			if tt.contentType != "" {
				r.Header.Set("Content-Type", tt.contentType)
			}
			var req roomRequest
			err := bind(r, &req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, roomRequest{Floor: 2, RoomNumber: "201", Beds: 3}, req)
		})
	}
}

func TestJSONWithLimit(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"roomNumber":"0123456789"}`))
	r.Header.Set("Content-Type", "application/json")
	var req roomRequest
	require.ErrorIs(t, binder.JSONWithLimit(8)(r, &req), binder.ErrBodyTooLarge)
}

func TestPathAndQuery(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest(http.MethodGet, "/?dry_run=yes&labels=A,B&labels=C", nil)
	extract := func(_ *http.Request, name string) string {
		return map[string]string{"propertyID": "p-1"}[name]
	}

	var req roomRequest
	require.NoError(t, binder.Path(extract)(r, &req))
	require.NoError(t, binder.Query()(r, &req))
	assert.Equal(t, "p-1", req.PropertyID)
	assert.True(t, req.DryRun)
	assert.Equal(t, []string{"A", "B", "C"}, req.Labels)

	r = httptest.NewRequest(http.MethodGet, "/?dry_run=maybe", nil)
	require.ErrorIs(t, binder.Query()(r, &req), binder.ErrInvalidQuery)

	var bad string
	require.ErrorIs(t, binder.Path(extract)(r, &bad), binder.ErrInvalidPath)
}

type uploadRequest struct {
	Note string                `form:"note"`
	File *multipart.FileHeader `file:"file"`
}

func TestForm(t *testing.T) {
	t.Parallel()

	t.Run("urlencoded", func(t *testing.T) {
		t.Parallel()
		form := url.Values{"floor": {"3"}, "roomNumber": {"301"}, "bedCount": {"2"}}
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		var req roomRequest
		require.NoError(t, binder.Form()(r, &req))
		assert.Equal(t, roomRequest{Floor: 3, RoomNumber: "301", Beds: 2}, req)
	})

	t.Run("multipart file", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("note", "ground floor"))
		fw, err := mw.CreateFormFile("file", "../../etc/rooms.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte("floor,roomNumber,bedCount\n0,G1,2\n"))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		r := httptest.NewRequest(http.MethodPost, "/", &buf)
		r.Header.Set("Content-Type", mw.FormDataContentType())
		var req uploadRequest
		require.NoError(t, binder.Form()(r, &req))
		assert.Equal(t, "ground floor", req.Note)
		require.NotNil(t, req.File)
		assert.Equal(t, "rooms.csv", req.File.Filename)
	})

	t.Run("json is left to the json binder", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		r.Header.Set("Content-Type", "application/json")
		var req uploadRequest
		require.ErrorIs(t, binder.Form()(r, &req), binder.ErrBinderNotApplicable)
	})
}
