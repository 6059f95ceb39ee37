package auth0

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanticallynull/bikeledger/customer"
)

func TestHTTPClient_GetUserInfo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" || r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"auth0|1","email":"a@example.com","phone_number":"+3531","nickname":"ann"}`))
	}))
	defer srv.Close()

	c := &HTTPClient{baseURL: srv.URL, httpClient: srv.Client()}

	info, err := c.GetUserInfo(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "auth0|1", info.Sub)

	_, err = c.GetUserInfo(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrUserInfoFailed)
}

func TestUserInfo_Profile(t *testing.T) {
	p := (&UserInfo{Name: "Ann Example", Email: "a@example.com"}).Profile()
	assert.Equal(t, "Ann Example", p.Username)
	assert.Equal(t, customer.Hash("a@example.com"), p.EmailHash)
	assert.Empty(t, p.PhoneHash)

	p = (&UserInfo{Name: "Ann Example", Nickname: "ann", PhoneNumber: "+3531"}).Profile()
	assert.Equal(t, "ann", p.Username)
	assert.Equal(t, customer.Hash("+3531"), p.PhoneHash)
}

func TestFakeClient(t *testing.T) {
	f := NewFakeClient()
	f.AddUser("tok", &UserInfo{Sub: "u1"})

	info, err := f.GetUserInfo(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", info.Sub)

	_, err = f.GetUserInfo(context.Background(), "other")
	assert.ErrorIs(t, err, ErrUserInfoFailed)
}
