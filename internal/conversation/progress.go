package conversation

import "fmt"

// Stage of a run reported through progress updates
type Stage string

const (
	StageStarting Stage = "starting"
	StageCanvas   Stage = "canvas"
	StagePosting  Stage = "posting"
	StageDone     Stage = "done"
)

// Progress is an incremental update on a running generation
type Progress struct {
	Stage        Stage  `json:"stage"`
	PostsDone    int    `json:"posts_done"`
	PostsPlanned int    `json:"posts_planned"`
	RepliesSent  int    `json:"replies_sent"`
	Detail       string `json:"detail,omitempty"`
}

func (p Progress) String() string {
	switch p.Stage {
	case StagePosting:
		return fmt.Sprintf("%d of %d posts, %d replies so far", p.PostsDone, p.PostsPlanned, p.RepliesSent)
	case StageDone:
		return fmt.Sprintf("done: %d posts, %d replies", p.PostsDone, p.RepliesSent)
	default:
		if p.Detail != "" {
			return fmt.Sprintf("%s: %s", p.Stage, p.Detail)
		}
		return string(p.Stage)
	}
}

// ProgressFunc receives progress updates; it may be nil
type ProgressFunc func(Progress)

func (f ProgressFunc) report(p Progress) {
	if f != nil {
		f(p)
	}
}
