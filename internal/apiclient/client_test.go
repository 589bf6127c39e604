package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brk3/ghcal/internal/server"
	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
)

func TestListProfiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/profiles/", r.URL.Path)
		assert.Equal(t, "Bearer ghc_live_abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(server.ProfileListResponse{
			Profiles: []contrib.Profile{{ID: "p1", Identity: "octocat"}},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.Token = "ghc_live_abc"
	profiles, err := c.ListProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "octocat", profiles[0].Identity)
}

func TestGetStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/calendar/octocat/stats", r.URL.Path)
		_ = json.NewEncoder(w).Encode(contrib.Stats{
			Identity: "octocat",
			Streak:   contrib.StreakInfo{CurrentStreak: 4},
		})
	}))
	defer srv.Close()

	stats, err := New(srv.URL).GetStats(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Streak.CurrentStreak)
}

func TestGetStats_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusGatewayTimeout)
		_ = json.NewEncoder(w).Encode(server.ErrorResponse{Error: "calendar never finished loading", Code: "INCOMPLETE_RENDER"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetStats(context.Background(), "octocat")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeIncompleteRender))
	assert.Equal(t, "calendar never finished loading", errors.UserMessage(err))
}

func TestDeleteProfile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := New(srv.URL).DeleteProfile(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
}

func TestCreateProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var req server.CreateProfileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(contrib.Profile{ID: "new", Identity: req.Identity})
	}))
	defer srv.Close()

	p, err := New(srv.URL).CreateProfile(context.Background(), server.CreateProfileRequest{Identity: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, "new", p.ID)
	assert.Equal(t, "octocat", p.Identity)
}
