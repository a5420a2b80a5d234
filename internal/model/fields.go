package model

import "time"

// DateLayout is the calendar date format used by the date fields.
const DateLayout = "2006-01-02"

// Fields is the collection-specific part of a Record. The set of
// implementations is closed: one struct per Kind.
type Fields interface {
	Kind() Kind
	// ImageRef returns the record's image or src reference, "" if the kind has none.
	ImageRef() string
	applyDefaults(now time.Time)
}

// TimelineEvent is a dated milestone on the relationship timeline.
type TimelineEvent struct {
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
	Image       string `json:"image" validate:"max=2048"`
	Type        string `json:"type" validate:"oneof=milestone memory anniversary"`
}

func (*TimelineEvent) Kind() Kind          { return KindTimeline }
func (e *TimelineEvent) ImageRef() string { return e.Image }
func (e *TimelineEvent) applyDefaults(now time.Time) {
	if e.Date == "" {
		e.Date = now.Format(DateLayout)
	}
	if e.Image == "" {
		e.Image = PlaceholderImage
	}
	if e.Type == "" {
		e.Type = "memory"
	}
}

// Photo is a gallery entry.
type Photo struct {
	Src      string `json:"src" validate:"max=2048"`
	Alt      string `json:"alt" validate:"max=500"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Caption  string `json:"caption" validate:"max=2000"`
	Category string `json:"category" validate:"oneof=date travel home special"`
}

func (*Photo) Kind() Kind          { return KindPhoto }
func (p *Photo) ImageRef() string { return p.Src }
func (p *Photo) applyDefaults(now time.Time) {
	if p.Src == "" {
		p.Src = PlaceholderImage
	}
	if p.Date == "" {
		p.Date = now.Format(DateLayout)
	}
	if p.Category == "" {
		p.Category = "special"
	}
}

// LoveNote is a short letter.
type LoveNote struct {
	Title   string `json:"title" validate:"max=200"`
	Content string `json:"content" validate:"max=20000"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	From    string `json:"from" validate:"max=200"`
	Color   string `json:"color" validate:"max=200"`
}

func (*LoveNote) Kind() Kind        { return KindNote }
func (*LoveNote) ImageRef() string { return "" }
func (n *LoveNote) applyDefaults(now time.Time) {
	if n.Date == "" {
		n.Date = now.Format(DateLayout)
	}
	if n.From == "" {
		n.From = "Your Loving Partner"
	}
	if n.Color == "" {
		n.Color = "from-pink-400 to-rose-400"
	}
}

// Promise is a commitment with a progress status.
type Promise struct {
	Title       string `json:"title" validate:"max=200"`
	Description string `json:"description" validate:"max=5000"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Status      string `json:"status" validate:"oneof=kept in-progress future"`
	Category    string `json:"category" validate:"oneof=love support adventure growth"`
}

func (*Promise) Kind() Kind        { return KindPromise }
func (*Promise) ImageRef() string { return "" }
func (p *Promise) applyDefaults(now time.Time) {
	if p.Date == "" {
		p.Date = now.Format(DateLayout)
	}
	if p.Status == "" {
		p.Status = "future"
	}
	if p.Category == "" {
		p.Category = "love"
	}
}

// Anniversary is a recurring date with the memories attached to it.
type Anniversary struct {
	Title       string   `json:"title" validate:"max=200"`
	Date        string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Years       int      `json:"years" validate:"min=0,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Memories    []string `json:"memories" validate:"max=100,dive,max=500"`
	IsUpcoming  bool     `json:"isUpcoming"`
	DaysUntil   int      `json:"daysUntil" validate:"min=0"`
}

func (*Anniversary) Kind() Kind        { return KindAnniversary }
func (*Anniversary) ImageRef() string { return "" }
func (a *Anniversary) applyDefaults(now time.Time) {
	if a.Date == "" {
		a.Date = now.Format(DateLayout)
	}
	if a.Years == 0 {
		a.Years = 1
	}
	if a.Memories == nil {
		a.Memories = []string{}
	}
}

// Dream is a shared goal broken into steps.
type Dream struct {
	Title       string   `json:"title" validate:"max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Category    string   `json:"category" validate:"oneof=travel home career family adventure"`
	Priority    string   `json:"priority" validate:"oneof=high medium low"`
	TargetDate  string   `json:"targetDate" validate:"omitempty,datetime=2006-01-02"`
	Progress    int      `json:"progress" validate:"min=0,max=100"`
	Steps       []string `json:"steps" validate:"max=100,dive,max=500"`
}

func (*Dream) Kind() Kind        { return KindDream }
func (*Dream) ImageRef() string { return "" }
func (d *Dream) applyDefaults(time.Time) {
	if d.Category == "" {
		d.Category = "adventure"
	}
	if d.Priority == "" {
		d.Priority = "medium"
	}
	if d.Steps == nil {
		d.Steps = []string{}
	}
}

// NewFields returns an empty field set for kind.
func NewFields(kind Kind) (Fields, error) {
	switch kind {
	case KindTimeline:
		return &TimelineEvent{}, nil
	case KindPhoto:
		return &Photo{}, nil
	case KindNote:
		return &LoveNote{}, nil
	case KindPromise:
		return &Promise{}, nil
	case KindAnniversary:
		return &Anniversary{}, nil
	case KindDream:
		return &Dream{}, nil
	}
	return nil, NewValidationError("kind", "unknown collection "+string(kind))
}

// ApplyDefaults fills the empty fields the upload form leaves blank.
func ApplyDefaults(f Fields, now time.Time) {
	f.applyDefaults(now)
}
