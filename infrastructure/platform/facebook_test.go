package platform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"socialhub/domain/model"
)

func facebookRequest() Request {
	return Request{
		AccountRef: "page-1",
		Credential: &model.Credential{AccessToken: "token"},
		Content:    model.PostContent{Text: "hello world"},
	}
}

func newTestFacebook(baseURL string) *FacebookAdapter {
	return NewFacebookAdapter(PlatformConfig{
		BaseURL:       baseURL,
		RatePerSecond: 100,
		Burst:         100,
	}, http.DefaultClient)
}

func TestFacebookAdapter_PublishReturnsRemoteID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/page-1/feed", r.URL.Path)
		require.NoError(t, r.ParseForm())
		require.Equal(t, "hello world", r.FormValue("message"))
		require.Equal(t, "token", r.FormValue("access_token"))
		w.Write([]byte(`{"id":"page-1_987"}`))
	}))
	defer srv.Close()

	adapter := newTestFacebook(srv.URL)
	id, err := adapter.Publish(context.Background(), facebookRequest())
	require.NoError(t, err)
	require.Equal(t, "page-1_987", id)
}

func TestFacebookAdapter_Classification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    http.Header
		wantKind  ErrorKind
		wantHint  time.Duration
		checkHint bool
	}{
		{name: "expired token", status: http.StatusUnauthorized, wantKind: KindAuthExpired},
		{name: "policy rejection", status: http.StatusBadRequest, wantKind: KindRejected},
		{name: "permission rejection", status: http.StatusForbidden, wantKind: KindRejected},
		{
			name:      "rate limited with hint",
			status:    http.StatusTooManyRequests,
			header:    http.Header{"Retry-After": []string{"120"}},
			wantKind:  KindRateLimited,
			wantHint:  120 * time.Second,
			checkHint: true,
		},
		{name: "server error", status: http.StatusInternalServerError, wantKind: KindTransient},
		{name: "unlisted 4xx", status: http.StatusGone, wantKind: KindRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, vs := range tt.header {
					for _, v := range vs {
						w.Header().Add(k, v)
					}
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"nope"}}`))
			}))
			defer srv.Close()

			adapter := newTestFacebook(srv.URL)
			_, err := adapter.Publish(context.Background(), facebookRequest())
			require.Error(t, err)

			de := Classify(err)
			require.Equal(t, tt.wantKind, de.Kind)
			if tt.checkHint {
				require.Equal(t, tt.wantHint, de.RetryAfter)
			}
		})
	}
}

func TestFacebookAdapter_FollowUnsupported(t *testing.T) {
	adapter := newTestFacebook("http://unused.invalid")
	_, err := adapter.Follow(context.Background(), facebookRequest())
	de := Classify(err)
	require.Equal(t, KindRejected, de.Kind)
}
