package domain

import (
	"errors"
	"math"
)

var (
	ErrInvalidSource    = errors.New("invalid torrent source")
	ErrMetainfoTooLarge = errors.New("metainfo exceeds size limit")
	ErrInvalidOption    = errors.New("invalid torrent option")
)

// FilePriority mirrors the engine's per-file download priority.
type FilePriority int

const (
	PrioritySkip FilePriority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
)

func (p FilePriority) Valid() bool {
	return p >= PrioritySkip && p <= PriorityHigh
}

// FilePriorityOverride pins a selection priority to a specific file index.
type FilePriorityOverride struct {
	Index    uint32       `json:"index"`
	Priority FilePriority `json:"priority"`
}

// Selection describes which files within a torrent are fetched and at what
// priority.
type Selection struct {
	Include    []string               `json:"include,omitempty"`
	Exclude    []string               `json:"exclude,omitempty"`
	SkipFluff  bool                   `json:"skipFluff,omitempty"`
	Priorities []FilePriorityOverride `json:"priorities,omitempty"`
}

// AddTorrent is the admission request. Its Validate method enforces every
// cross-field invariant in the data model below.
type AddTorrent struct {
	ID      TorrentID     `json:"id"`
	Source  TorrentSource `json:"source"`
	Options TorrentOptions `json:"options"`
}

type TorrentOptions struct {
	DownloadDir        *string    `json:"downloadDir,omitempty"`
	Sequential         bool       `json:"sequential,omitempty"`
	StartPaused        bool       `json:"startPaused,omitempty"`
	SeedMode           bool       `json:"seedMode,omitempty"`
	HashCheckSamplePct *int       `json:"hashCheckSamplePct,omitempty"`
	SuperSeeding       bool       `json:"superSeeding,omitempty"`
	Selection          Selection  `json:"selection,omitempty"`
	Tags               []string   `json:"tags,omitempty"`
	Trackers           []string   `json:"trackers,omitempty"`
	ReplaceTrackers    bool       `json:"replaceTrackers,omitempty"`
	WebSeeds           []string   `json:"webSeeds,omitempty"`
	ReplaceWebSeeds    bool       `json:"replaceWebSeeds,omitempty"`
	MaxDownloadBps     *uint64    `json:"maxDownloadBps,omitempty"`
	MaxUploadBps       *uint64    `json:"maxUploadBps,omitempty"`
	MaxConnections     *int       `json:"maxConnections,omitempty"`
	SeedRatioLimit     *float64   `json:"seedRatioLimit,omitempty"`
	SeedTimeLimit      *int64     `json:"seedTimeLimitSeconds,omitempty"`
	AutoManaged        *bool      `json:"autoManaged,omitempty"`
	QueuePosition      *int       `json:"queuePosition,omitempty"`
	PexEnabled         *bool      `json:"pexEnabled,omitempty"`
}

// Validate enforces the invariants named in the data model: a positive
// hash-check sample percentage requires seed mode, seed/sample mode
// requires metainfo (not a bare magnet), percentages are in [0,100], queue
// positions are non-negative, and seed ratio limits are finite and
// non-negative.
func (a AddTorrent) Validate() error {
	if err := a.Source.Validate(); err != nil {
		return err
	}

	opts := a.Options
	if opts.HashCheckSamplePct != nil {
		pct := *opts.HashCheckSamplePct
		if pct < 0 || pct > 100 {
			return errOpt("hashCheckSamplePct", "must be in [0,100]")
		}
		if pct > 0 && !opts.SeedMode {
			return errOpt("hashCheckSamplePct", "requires seedMode=true")
		}
	}
	if (opts.SeedMode || (opts.HashCheckSamplePct != nil && *opts.HashCheckSamplePct > 0)) && a.Source.IsMagnet() {
		return errOpt("seedMode", "requires metainfo source, not a magnet")
	}
	if opts.QueuePosition != nil && *opts.QueuePosition < 0 {
		return errOpt("queuePosition", "must be >= 0")
	}
	if opts.SeedRatioLimit != nil {
		v := *opts.SeedRatioLimit
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errOpt("seedRatioLimit", "must be finite and >= 0")
		}
	}
	for _, p := range opts.Selection.Priorities {
		if !p.Priority.Valid() {
			return errOpt("selection.priorities", "invalid file priority")
		}
	}
	return nil
}

func errOpt(field, reason string) error {
	return &InvalidOptionError{Field: field, Reason: reason}
}

type InvalidOptionError struct {
	Field  string
	Reason string
}

func (e *InvalidOptionError) Error() string {
	return "invalid option " + e.Field + ": " + e.Reason
}

func (e *InvalidOptionError) Unwrap() error {
	return ErrInvalidOption
}

// TorrentOptionsUpdate is a partial patch: only non-nil fields apply.
type TorrentOptionsUpdate struct {
	DownloadDir    *string  `json:"downloadDir,omitempty"`
	Sequential     *bool    `json:"sequential,omitempty"`
	SuperSeeding   *bool    `json:"superSeeding,omitempty"`
	MaxConnections *int     `json:"maxConnections,omitempty"`
	SeedRatioLimit *float64 `json:"seedRatioLimit,omitempty"`
	SeedTimeLimit  *int64   `json:"seedTimeLimitSeconds,omitempty"`
	AutoManaged    *bool    `json:"autoManaged,omitempty"`
	QueuePosition  *int     `json:"queuePosition,omitempty"`
	PexEnabled     *bool    `json:"pexEnabled,omitempty"`
}

func (u TorrentOptionsUpdate) IsEmpty() bool {
	return u.DownloadDir == nil && u.Sequential == nil && u.SuperSeeding == nil &&
		u.MaxConnections == nil && u.SeedRatioLimit == nil && u.SeedTimeLimit == nil &&
		u.AutoManaged == nil && u.QueuePosition == nil && u.PexEnabled == nil
}
