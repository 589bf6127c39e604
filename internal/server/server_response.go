package server

import (
	"github.com/brk3/ghcal/pkg/contrib"
)

type ProfileListResponse struct {
	Profiles []contrib.Profile `json:"profiles"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// CreateProfileRequest is the body accepted by POST /profiles.
type CreateProfileRequest struct {
	Identity    string `json:"identity"`
	SummaryText string `json:"summary_text,omitempty"`
	GlobalStats *bool  `json:"global_stats,omitempty"`
	Responsive  bool   `json:"responsive"`
}
