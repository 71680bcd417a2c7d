package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newLookupServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLookupProfile(t *testing.T) {
	server := newLookupServer(t, map[string]string{
		"/userinfo/public":   `{"data":{"id":"101","is_private":false}}`,
		"/userinfo/private":  `{"data":{"id":102,"is_private":true}}`,
		"/userinfo/noflag":   `{"data":{"id":"103"}}`,
		"/userinfo/noid":     `{"data":{"is_private":false}}`,
		"/userinfo/onlyflag": `{"data":{"is_private":true}}`,
		"/userinfo/empty":    `{}`,
	})
	client, _ := newTestClient(t, server.URL)
	ctx := context.Background()

	tests := []struct {
		username string
		want     ProfileLookup
	}{
		{"public", ProfileLookup{ID: "101", IsPrivate: false, Found: true}},
		{"private", ProfileLookup{ID: "102", IsPrivate: true, Found: true}},
		{"noflag", ProfileLookup{ID: "103", IsPrivate: true, Found: true}},
		{"noid", ProfileLookup{IsPrivate: false, Found: false}},
		{"onlyflag", ProfileLookup{IsPrivate: true, Found: false}},
		{"empty", ProfileLookup{}},
		{"missing", ProfileLookup{}},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			assert.Equal(t, tt.want, client.LookupProfile(ctx, tt.username))
		})
	}
}

func TestFetchContact(t *testing.T) {
	server := newLookupServer(t, map[string]string{
		"/usercontact/101": `{"data":{"user":{"pk":101,"full_name":"NASA","profile_pic_url":"https://cdn.test/p.jpg","follower_count":98000000,"following_count":81}}}`,
	})
	client, _ := newTestClient(t, server.URL)

	contact := client.FetchContact(context.Background(), "101")
	assert.Equal(t, FlexString("101"), contact.PK)
	assert.Equal(t, "NASA", contact.FullName)
	assert.Equal(t, "https://cdn.test/p.jpg", contact.ProfilePicURL)
	assert.Equal(t, int64(98000000), contact.FollowerCount)
	assert.Equal(t, int64(81), contact.FollowingCount)

	assert.Equal(t, ContactUser{}, client.FetchContact(context.Background(), "999"))
}
