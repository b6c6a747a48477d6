// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Mode selects which of the two computed orderings is authoritative
// for single-rank (attendee) views.
type Mode string

// Ranking modes.
const (
	ModeConsensus Mode = "consensus"
	ModeDiscovery Mode = "discovery"
)

// ParseMode validates and returns a Mode from its wire representation.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConsensus:
		return ModeConsensus, nil
	case ModeDiscovery:
		return ModeDiscovery, nil
	default:
		return "", fmt.Errorf("unknown ranking mode: %q", s)
	}
}

// RequestStatus is the lifecycle state of a song request.
type RequestStatus string

// Request lifecycle states.
const (
	StatusPending  RequestStatus = "pending"
	StatusQueued   RequestStatus = "queued"
	StatusPlayed   RequestStatus = "played"
	StatusRejected RequestStatus = "rejected"
)

// ParseRequestStatus validates and returns a RequestStatus.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case StatusPending, StatusQueued, StatusPlayed, StatusRejected:
		return RequestStatus(s), nil
	default:
		return "", fmt.Errorf("unknown request status: %q", s)
	}
}

// Rankable reports whether a request in this status may appear in
// attendee rankings.
func (s RequestStatus) Rankable() bool {
	return s == StatusPending || s == StatusQueued
}

// EventSettings carries the per-event knobs consumed by the ranking engine.
type EventSettings struct {
	// RankingDepth bounds each attendee's Top-N list.
	RankingDepth int `json:"ranking_depth"`
	// MinParticipants is the quorum required before the aggregated
	// ordering becomes authoritative.
	MinParticipants int `json:"min_participants"`
	// GapThreshold is the minimum consensusRank-discoveryRank gap for a
	// song to count as a hidden gem.
	GapThreshold int `json:"gap_threshold"`
	// PrimaryMode selects the ordering attendees see as their single rank.
	PrimaryMode Mode `json:"primary_mode"`
}

// ScoreEntry is one request's standing within a single ordering.
type ScoreEntry struct {
	RequestID string `json:"request_id"`
	// Rank is the 1-based position after sorting; ties are impossible.
	Rank int `json:"rank"`
	// WinRate is wins/(wins+losses) over all pairs this request was
	// compared in; zero when it was never compared.
	WinRate float64 `json:"win_rate"`
	// RankerCount is the number of distinct attendees ranking this request.
	RankerCount int `json:"ranker_count"`
	// Copeland is net pairwise wins minus losses.
	Copeland    int  `json:"copeland"`
	IsHiddenGem bool `json:"is_hidden_gem"`
	// ManualOrder is set only on served entries when a DJ lock applies.
	ManualOrder *int `json:"manual_order,omitempty"`
}

// DisplayEntry is a ScoreEntry resolved to its served position after the
// manual-override merge.
type DisplayEntry struct {
	ScoreEntry
	// Position is the slot actually shown, 1-based.
	Position int `json:"position"`
}

// HiddenGemEntry flags a request that is strong by intensity of support
// but weak by breadth of support.
type HiddenGemEntry struct {
	RequestID        string  `json:"request_id"`
	DiscoveryRank    int     `json:"discovery_rank"`
	DiscoveryWinRate float64 `json:"discovery_win_rate"`
	ConsensusRank    int     `json:"consensus_rank"`
	ConsensusWinRate float64 `json:"consensus_win_rate"`
	RankerCount      int     `json:"ranker_count"`
}

// DualRankingSnapshot is the cached output of one recomputation. It is
// replaced atomically per event and read concurrently by pollers; manual
// overrides are merged over it at serve time, never baked in.
type DualRankingSnapshot struct {
	EventID           string           `json:"event_id"`
	GeneratedAt       time.Time        `json:"generated_at"`
	PrimaryMode       Mode             `json:"primary_mode"`
	Activated         bool             `json:"activated"`
	TotalParticipants int              `json:"total_participants"`
	MinParticipants   int              `json:"min_participants"`
	Consensus         []ScoreEntry     `json:"consensus_scores"`
	Discovery         []ScoreEntry     `json:"discovery_scores"`
	HiddenGems        []HiddenGemEntry `json:"hidden_gems"`
}

// RankingView is the override-merged shape served to clients.
type RankingView struct {
	EventID           string           `json:"event_id"`
	GeneratedAt       time.Time        `json:"generated_at"`
	PrimaryMode       Mode             `json:"primary_mode"`
	Activated         bool             `json:"activated"`
	TotalParticipants int              `json:"total_participants"`
	MinParticipants   int              `json:"min_participants"`
	Consensus         []DisplayEntry   `json:"consensus_scores"`
	Discovery         []DisplayEntry   `json:"discovery_scores"`
	HiddenGems        []HiddenGemEntry `json:"hidden_gems"`
}

// Primary returns the served ordering selected by PrimaryMode.
func (v *RankingView) Primary() []DisplayEntry {
	if v.PrimaryMode == ModeDiscovery {
		return v.Discovery
	}
	return v.Consensus
}
