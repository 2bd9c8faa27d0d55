package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"refgate/entity"
	"refgate/internal/config"
	"refgate/lib/api/response"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "secret-token"

type fakeHandler struct {
	users  map[int64]*entity.User
	forced []int64
	fail   bool
}

func (f *fakeHandler) Authenticate(token string) error {
	if token != testToken {
		return errors.New("invalid token")
	}
	return nil
}

func (f *fakeHandler) AdminReport(_ context.Context) (*entity.Report, error) {
	if f.fail {
		return nil, errors.New("storage down")
	}
	return &entity.Report{
		Admitted: 2,
		Capacity: 2000,
		Leaderboard: []entity.Referrer{
			{UserId: 10, ReferralCount: 7},
			{UserId: 11, ReferralCount: 3},
		},
	}, nil
}

func (f *fakeHandler) User(_ context.Context, userId int64) (*entity.User, error) {
	if f.fail {
		return nil, errors.New("storage down")
	}
	user, ok := f.users[userId]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return user, nil
}

func (f *fakeHandler) ForceAccess(_ context.Context, userId int64) (*entity.AccessResult, error) {
	if f.fail {
		return nil, errors.New("storage down")
	}
	f.forced = append(f.forced, userId)
	if _, ok := f.users[userId]; !ok {
		return entity.MustRegisterFirst(), nil
	}
	return entity.Admitted("https://t.me/+abc"), nil
}

func newTestServer(t *testing.T, handler *fakeHandler) *httptest.Server {
	t.Helper()
	conf := &config.Config{Listen: config.Listen{BindIp: "127.0.0.1", Port: "0"}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(New(conf, log, handler).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, token, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp.StatusCode, decoded
}

func TestHealthWithoutToken(t *testing.T) {
	ts := newTestServer(t, &fakeHandler{})

	status, body := doRequest(t, http.MethodGet, ts.URL+"/health", "", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
}

func TestAuthentication(t *testing.T) {
	ts := newTestServer(t, &fakeHandler{})

	status, body := doRequest(t, http.MethodGet, ts.URL+"/v1/report", "", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, response.CodeUnauthorized, body["code"])

	status, _ = doRequest(t, http.MethodGet, ts.URL+"/v1/report", "wrong", "")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestReport(t *testing.T) {
	ts := newTestServer(t, &fakeHandler{})

	status, body := doRequest(t, http.MethodGet, ts.URL+"/v1/report", testToken, "")
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]any)
	assert.EqualValues(t, 2, data["admitted"])
	assert.EqualValues(t, 2000, data["capacity"])
	assert.Len(t, data["leaderboard"], 2)
}

func TestReportFailure(t *testing.T) {
	ts := newTestServer(t, &fakeHandler{fail: true})

	status, body := doRequest(t, http.MethodGet, ts.URL+"/v1/report", testToken, "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, response.CodeInternal, body["code"])
}

func TestGetUser(t *testing.T) {
	ts := newTestServer(t, &fakeHandler{users: map[int64]*entity.User{
		42: {UserId: 42, ReferrerId: 7, ReferralCount: 3},
	}})

	status, body := doRequest(t, http.MethodGet, ts.URL+"/v1/users/42", testToken, "")
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.EqualValues(t, 42, data["user_id"])
	assert.EqualValues(t, 3, data["referral_count"])

	status, body = doRequest(t, http.MethodGet, ts.URL+"/v1/users/43", testToken, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, body["code"])

	status, body = doRequest(t, http.MethodGet, ts.URL+"/v1/users/abc", testToken, "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.CodeBadRequest, body["code"])
}

func TestForceAccess(t *testing.T) {
	handler := &fakeHandler{users: map[int64]*entity.User{42: {UserId: 42}}}
	ts := newTestServer(t, handler)

	status, body := doRequest(t, http.MethodPost, ts.URL+"/v1/access", testToken, `{"user_id":42}`)
	require.Equal(t, http.StatusOK, status)
	data := body["data"].(map[string]any)
	assert.Equal(t, string(entity.AccessAdmitted), data["status"])
	assert.Equal(t, "https://t.me/+abc", data["invite_link"])

	status, body = doRequest(t, http.MethodPost, ts.URL+"/v1/access", testToken, `{"user_id":99}`)
	require.Equal(t, http.StatusOK, status)
	data = body["data"].(map[string]any)
	assert.Equal(t, string(entity.AccessMustRegister), data["status"])

	assert.Equal(t, []int64{42, 99}, handler.forced)
}

func TestForceAccessInvalidBody(t *testing.T) {
	handler := &fakeHandler{}
	ts := newTestServer(t, handler)

	status, body := doRequest(t, http.MethodPost, ts.URL+"/v1/access", testToken, `{"user_id":0}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, response.CodeBadRequest, body["code"])
	assert.Empty(t, handler.forced)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, &fakeHandler{})

	status, body := doRequest(t, http.MethodGet, ts.URL+"/nope", "", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, response.CodeNotFound, body["code"])
}
