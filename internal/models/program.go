package models

// Status is the lifecycle phase of a broadcast program.
type Status string

const (
	StatusReserved Status = "reserved"
	StatusTest     Status = "test"
	StatusOnAir    Status = "onAir"
	StatusEnd      Status = "end"
)

// Valid reports whether s is one of the four known phases.
func (s Status) Valid() bool {
	switch s {
	case StatusReserved, StatusTest, StatusOnAir, StatusEnd:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ProgramState is the single record describing the currently selected program.
//
// All times are epoch seconds; zero means unset.
type ProgramState struct {
	ProgramID        string `json:"programId"`
	Status           Status `json:"status"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	StartTime        int64  `json:"startTime"`
	EndTime          int64  `json:"endTime"`
	VposBaseTime     int64  `json:"vposBaseTime"`
	IsMemberOnly     bool   `json:"isMemberOnly"`
	ViewURI          string `json:"viewUri"`
	ModeratorViewURI string `json:"moderatorViewUri,omitempty"`
	Password         string `json:"password,omitempty"`

	Viewers   int `json:"viewers"`
	Comments  int `json:"comments"`
	AdPoint   int `json:"adPoint"`
	GiftPoint int `json:"giftPoint"`

	// ShowPlaceholder is true only while Status is StatusTest.
	ShowPlaceholder bool `json:"showPlaceholder"`

	// ServerClockOffsetSec is local minus server time in seconds, nil until a server date is seen.
	ServerClockOffsetSec *int64 `json:"serverClockOffsetSec,omitempty"`

	IsFetching  bool `json:"isFetching"`
	IsStarting  bool `json:"isStarting"`
	IsEnding    bool `json:"isEnding"`
	IsExtending bool `json:"isExtending"`

	AutoExtensionEnabled bool  `json:"autoExtensionEnabled"`
	PanelOpened          *bool `json:"panelOpened,omitempty"`
	IsLoggedIn           *bool `json:"isLoggedIn,omitempty"`
}

// DefaultProgramState returns the initial state: no program, status end.
func DefaultProgramState() ProgramState {
	return ProgramState{Status: StatusEnd}
}

// Busy reports whether any lifecycle operation guard is raised.
func (p ProgramState) Busy() bool {
	return p.IsFetching || p.IsStarting || p.IsEnding || p.IsExtending
}

// Clone returns a copy that shares no pointers with p.
func (p ProgramState) Clone() ProgramState {
	c := p
	if p.ServerClockOffsetSec != nil {
		v := *p.ServerClockOffsetSec
		c.ServerClockOffsetSec = &v
	}
	if p.PanelOpened != nil {
		v := *p.PanelOpened
		c.PanelOpened = &v
	}
	if p.IsLoggedIn != nil {
		v := *p.IsLoggedIn
		c.IsLoggedIn = &v
	}
	return c
}

// Schedule is one entry of the user's program schedule list.
type Schedule struct {
	ProgramID     string `json:"nicoliveProgramId"`
	SocialGroupID string `json:"socialGroupId"`
	Status        Status `json:"status"`
	OnAirBeginAt  int64  `json:"onAirBeginAt"`
	OnAirEndAt    int64  `json:"onAirEndAt"`
}

// ProgramDetail is the full description of one program as reported by the API.
type ProgramDetail struct {
	ProgramID        string
	Title            string
	Description      string
	Status           Status
	BeginAt          int64
	EndAt            int64
	VposBaseAt       int64
	IsMemberOnly     bool
	ViewURI          string
	ModeratorViewURI string
}

// Segment carries the program times returned by start, end and extend.
// StartTime is zero when the response omits it.
type Segment struct {
	StartTime int64
	EndTime   int64
}

// Statistics holds live audience counters.
type Statistics struct {
	WatchCount   int `json:"watchCount"`
	CommentCount int `json:"commentCount"`
}

// NicoadStatistics holds live ad and gift point totals.
type NicoadStatistics struct {
	TotalAdPoint   int `json:"totalAdPoint"`
	TotalGiftPoint int `json:"totalGiftPoint"`
}
