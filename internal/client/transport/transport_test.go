package transport

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_Classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		success     bool
		created     bool
		noContent   bool
		clientError bool
		serverError bool
	}{
		{name: "ok", status: http.StatusOK, success: true},
		{name: "created", status: http.StatusCreated, success: true, created: true},
		{name: "no content", status: http.StatusNoContent, success: true, noContent: true},
		{name: "conflict", status: http.StatusConflict, clientError: true},
		{name: "internal", status: http.StatusInternalServerError, serverError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{StatusCode: tt.status}
			assert.Equal(t, tt.success, resp.IsSuccess())
			assert.Equal(t, tt.created, resp.IsCreated())
			assert.Equal(t, tt.noContent, resp.IsNoContent())
			assert.Equal(t, tt.clientError, resp.IsClientError())
			assert.Equal(t, tt.serverError, resp.IsServerError())
			if tt.success {
				assert.NoError(t, resp.Err())
			} else {
				assert.Equal(t, tt.status, StatusCode(resp.Err()))
			}
		})
	}
}

func TestResponse_ErrMessage(t *testing.T) {
	resp := &Response{StatusCode: 500, Body: json.RawMessage(`{"error":"boom"}`)}
	err := resp.Err()
	require.Error(t, err)
	assert.Equal(t, "server returned status 500: boom", err.Error())

	resp = &Response{StatusCode: 502}
	assert.Equal(t, "server returned status 502", resp.Err().Error())
}

func TestResponse_Records(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{name: "bare array", body: `[{"id":"a"},{"id":"b"}]`, want: 2},
		{name: "data envelope", body: `{"data":[{"id":"a"}]}`, want: 1},
		{name: "empty", body: ``, want: 0},
		{name: "null", body: `null`, want: 0},
		{name: "garbage", body: `"text"`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{StatusCode: 200, Body: json.RawMessage(tt.body)}
			items, err := resp.Records()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestListQuery_Values(t *testing.T) {
	since := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	q := ListQuery{Since: since, Limit: 50, Offset: 100}

	assert.Equal(t, map[string]string{
		"since":  "2024-01-02T03:04:05.000000006Z",
		"limit":  "50",
		"offset": "100",
	}, q.Values())

	assert.Empty(t, ListQuery{}.Values())
}
