package telegram

// Display labels for presence statuses and boolean flags. Kept in one
// table so a localization pass touches a single file.
const (
	LabelOnline    = "Online"
	LabelOffline   = "Offline"
	LabelRecently  = "Recently"
	LabelLastWeek  = "Within a week"
	LabelLastMonth = "Within a month"
	LabelHidden    = "Hidden"
	LabelLongAgo   = "Long ago"
	LabelYes       = "Yes"
	LabelNo        = "No"
)

// StatusText returns the display label for a presence status. A nil or
// empty status reads as hidden; unrecognized variants (old or deleted
// accounts) read as long-ago. Never returns an empty string.
func StatusText(status *UserStatus) string {
	if status == nil {
		return LabelHidden
	}
	switch status.Kind {
	case StatusOnline:
		return LabelOnline
	case StatusOffline:
		return LabelOffline
	case StatusRecently:
		return LabelRecently
	case StatusLastWeek:
		return LabelLastWeek
	case StatusLastMonth:
		return LabelLastMonth
	case StatusEmpty:
		return LabelHidden
	}
	return LabelLongAgo
}

// YesNo renders a boolean flag as its display label
func YesNo(v bool) string {
	if v {
		return LabelYes
	}
	return LabelNo
}
