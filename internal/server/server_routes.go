package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/brk3/ghcal/internal/config"
	"github.com/brk3/ghcal/internal/fetch"
	"github.com/brk3/ghcal/internal/logger"
	"github.com/brk3/ghcal/internal/render"
	"github.com/brk3/ghcal/pkg/contrib"
	"github.com/brk3/ghcal/pkg/errors"
	"github.com/brk3/ghcal/pkg/versioninfo"
)

const identityRule = "required,min=1,max=39,hostname_rfc1123"

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// writeError maps a coded error to its HTTP status and a JSON body.
func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Error: errors.UserMessage(err),
		Code:  string(errors.GetCode(err)),
	}
	_ = writeJSON(w, errors.HTTPStatus(err), resp)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) getVersionInfo(w http.ResponseWriter, _ *http.Request) {
	info := versioninfo.VersionInfo{
		Version:   versioninfo.Version,
		BuildDate: versioninfo.BuildDate,
	}
	if err := writeJSON(w, http.StatusOK, info); err != nil {
		logger.Error("Failed to serialize version info response", "error", err)
	}
}

func (s *Server) validIdentity(identity string) error {
	if err := s.validate.Var(identity, identityRule); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid identity %q", identity)
	}
	return nil
}

func (s *Server) summaryText() string {
	if s.cfg.Widget.SummaryText != "" {
		return s.cfg.Widget.SummaryText
	}
	return config.DefaultSummaryText
}

// widgetOptions starts from the configured defaults and applies the
// responsive and global_stats query overrides.
func (s *Server) widgetOptions(r *http.Request) (render.Options, error) {
	opts := render.Options{
		SummaryText: s.summaryText(),
		GlobalStats: s.cfg.Widget.GlobalStats,
		Responsive:  s.cfg.Widget.Responsive,
	}
	q := r.URL.Query()
	for name, dst := range map[string]*bool{
		"global_stats": &opts.GlobalStats,
		"responsive":   &opts.Responsive,
	} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return opts, errors.New(errors.ErrCodeInvalidInput, "query parameter %s must be a boolean", name)
		}
		*dst = v
	}
	return opts, nil
}

func (s *Server) getCalendarWidget(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if err := s.validIdentity(identity); err != nil {
		logger.Warn("Rejected calendar request", "identity", identity, "error", err)
		writeError(w, err)
		return
	}
	opts, err := s.widgetOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	logger.Debug("Rendering calendar widget", "identity", identity, "global_stats", opts.GlobalStats, "responsive", opts.Responsive)
	out, err := fetch.RenderWidget(r.Context(), s.fetcher, identity, opts)
	if err != nil {
		logger.Error("Failed to render calendar widget", "identity", identity, "error", err)
		writeError(w, err)
		return
	}
	writeHTML(w, out)
}

func (s *Server) getCalendarStats(w http.ResponseWriter, r *http.Request) {
	identity := chi.URLParam(r, "identity")
	if err := s.validIdentity(identity); err != nil {
		logger.Warn("Rejected stats request", "identity", identity, "error", err)
		writeError(w, err)
		return
	}

	res, err := s.fetcher.FetchDataset(r.Context(), identity)
	if err != nil {
		logger.Error("Failed to fetch calendar", "identity", identity, "error", err)
		writeError(w, err)
		return
	}
	logger.Debug("Computed calendar stats", "identity", identity,
		"total", res.Dataset.TotalLastYear, "current_streak", res.Streak.CurrentStreak)
	if err := writeJSON(w, http.StatusOK, res.Stats()); err != nil {
		logger.Error("Failed to serialize stats response", "identity", identity, "error", err)
	}
}

func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		logger.Warn("Missing user ID", "path", r.URL.Path)
		writeError(w, errors.New(errors.ErrCodeUnauthorized, "no user on request"))
		return "", false
	}
	return userID, true
}

func (s *Server) refreshProfileGauge(userID string) {
	profiles, err := s.store.ListProfiles(userID)
	if err != nil {
		logger.Warn("Failed to update active profiles metric", "user_id", userID, "error", err)
		return
	}
	UpdateActiveProfilesForUser(userID, len(profiles))
}

func (s *Server) createProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}

	var req CreateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in create profile request", "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid JSON"))
		return
	}
	p := contrib.Profile{
		ID:          uuid.New().String(),
		Identity:    req.Identity,
		SummaryText: req.SummaryText,
		GlobalStats: req.GlobalStats,
		Responsive:  req.Responsive,
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.validate.Struct(p); err != nil {
		logger.Warn("Profile validation failed", "user_id", userID, "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid profile"))
		return
	}

	logger.Info("Storing profile", "user_id", userID, "profile_id", p.ID, "identity", p.Identity)
	if err := s.store.PutProfile(userID, p); err != nil {
		logger.Error("Failed to store profile", "user_id", userID, "profile_id", p.ID, "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "store profile"))
		return
	}
	s.refreshProfileGauge(userID)

	if err := writeJSON(w, http.StatusCreated, p); err != nil {
		logger.Error("Failed to serialize profile response", "user_id", userID, "error", err)
	}
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return
	}
	profiles, err := s.store.ListProfiles(userID)
	if err != nil {
		logger.Error("Failed to list profiles", "user_id", userID, "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "read profiles"))
		return
	}
	logger.Debug("Listed profiles successfully", "user_id", userID, "count", len(profiles))
	if err := writeJSON(w, http.StatusOK, ProfileListResponse{Profiles: profiles}); err != nil {
		logger.Error("Failed to serialize profile list response", "user_id", userID, "error", err)
	}
}

// lookupProfile writes the error response itself when it returns false.
func (s *Server) lookupProfile(w http.ResponseWriter, r *http.Request) (contrib.Profile, bool) {
	userID, ok := s.requireUser(w, r)
	if !ok {
		return contrib.Profile{}, false
	}
	profileID := chi.URLParam(r, "profile_id")
	p, found, err := s.store.GetProfile(userID, profileID)
	if err != nil {
		logger.Error("Failed to get profile", "user_id", userID, "profile_id", profileID, "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "read profiles"))
		return contrib.Profile{}, false
	}
	if !found {
		writeError(w, errors.New(errors.ErrCodeNotFound, "profile %s not found", profileID))
		return contrib.Profile{}, false
	}
	return p, true
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProfile(w, r)
	if !ok {
		return
	}
	if err := writeJSON(w, http.StatusOK, p); err != nil {
		logger.Error("Failed to serialize profile", "profile_id", p.ID, "error", err)
	}
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProfile(w, r)
	if !ok {
		return
	}
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	logger.Info("Deleting profile", "user_id", userID, "profile_id", p.ID)

	if err := s.store.DeleteProfile(userID, p.ID); err != nil {
		logger.Error("Failed to delete profile", "user_id", userID, "profile_id", p.ID, "error", err)
		writeError(w, errors.Wrap(errors.ErrCodeInternal, err, "delete profile"))
		return
	}
	s.refreshProfileGauge(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfileWidget(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookupProfile(w, r)
	if !ok {
		return
	}
	// Summaries submitted with a profile are shown as text; only the
	// configured default is trusted as HTML.
	opts := render.Options{
		SummaryText:  p.SummaryText,
		PlainSummary: true,
		GlobalStats:  p.StatsEnabled(),
		Responsive:   p.Responsive,
	}
	if opts.SummaryText == "" {
		opts.SummaryText = s.summaryText()
		opts.PlainSummary = false
	}

	out, err := fetch.RenderWidget(r.Context(), s.fetcher, p.Identity, opts)
	if err != nil {
		logger.Error("Failed to render profile widget", "profile_id", p.ID, "identity", p.Identity, "error", err)
		writeError(w, err)
		return
	}
	writeHTML(w, out)
}
