package renewal

import (
	"math"
	"strconv"
	"time"
)

type State string

const (
	StateCurrent      State = "CURRENT"
	StateGrace        State = "GRACE"
	StateSuspended    State = "SUSPENDED"
	StateNeverRenewed State = "NEVER_RENEWED"
)

const (
	TextSuspended    = "Server is suspended. Click on renew to unsuspend."
	TextRenewed      = "Renewed"
	TextNeverRenewed = "Not renewed yet"
	TextLastChance   = "Last chance to renew!"
)

// Status is the renewal state of one server as shown on the dashboard.
type Status struct {
	State     State  `json:"state"`
	Text      string `json:"text"`
	Suspended bool   `json:"suspended,omitempty"`
	Success   bool   `json:"success,omitempty"`
	Renewable bool   `json:"renewable,omitempty"`
}

// Owner is the session a renewal request runs for.
type Owner struct {
	UserID      int64
	PanelUserID int64
}

const (
	msInDay  = 86400000
	msInHour = 3600000
)

// FormatRemaining renders d as "<days> day(s) and <hours> hour(s)", with hours
// rounded to two decimals.
func FormatRemaining(d time.Duration) string {
	ms := d.Milliseconds()
	days := int64(math.Floor(float64(ms) / msInDay))
	hours := math.Round(float64(ms-days*msInDay)/msInHour*100) / 100

	dayWord := "days"
	if days == 1 {
		dayWord = "day"
	}
	hourWord := "hours"
	if hours == 1 {
		hourWord = "hour"
	}

	return strconv.FormatInt(days, 10) + " " + dayWord + " and " +
		strconv.FormatFloat(hours, 'f', -1, 64) + " " + hourWord
}
