package wizard

import "github.com/ErlanBelekov/vsm-auth/internal/domain"

type BannerKind int

const (
	BannerError BannerKind = iota
	BannerSuccess
)

func (k BannerKind) String() string {
	if k == BannerSuccess {
		return "success"
	}
	return "error"
}

// Banner is a form-level message. ID distinguishes a banner from the one it
// replaced so a stale expiry cannot remove its successor.
type Banner struct {
	Kind BannerKind
	Text string
	ID   uint64
}

// page is everything a renderer can show. Only the orchestrator's goroutine
// reads or writes it.
type page struct {
	panel        domain.Panel
	tab          domain.FlowMode
	inputs       map[domain.Field]string
	emailDisplay string
	otp          OtpDigits
	focus        domain.Field
	banners      map[domain.Form]Banner
	fieldErrors  map[domain.Field]string
	completion   string
	location     string
}

func newPage() *page {
	return &page{
		inputs:      make(map[domain.Field]string),
		banners:     make(map[domain.Form]Banner),
		fieldErrors: make(map[domain.Field]string),
	}
}

// Snapshot is a copy of the page and wizard state at one point in time.
type Snapshot struct {
	Panel        domain.Panel
	ActiveTab    domain.FlowMode
	Flow         domain.FlowMode
	PendingEmail string
	EmailDisplay string
	Inputs       map[domain.Field]string
	OTP          [domain.OTPLength]string
	Focus        domain.Field

	Countdown      CountdownState
	Remaining      int
	CountdownLabel string
	ResendEnabled  bool

	Banners     map[domain.Form]Banner
	FieldErrors map[domain.Field]string

	// Completion replaces the verify panel's content once registration is done.
	Completion string
	Location   string
}

// Visible reports whether p is the panel on screen.
func (s Snapshot) Visible(p domain.Panel) bool {
	return s.Panel == p
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
