package external

import (
	"fmt"
	"html"
	"strings"
)

// NotificationEmail renders the standard alert email body used for
// operational notifications (payment failures, disputes). actionURL and
// actionText are optional; when actionURL is empty no button is rendered and
// actionText falls back to "Ver mais".
func NotificationEmail(title, message, actionURL, actionText string) (subject, body string) {
	var b strings.Builder

	b.WriteString(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">`)
	fmt.Fprintf(&b, `<h2 style="color: #333;">%s</h2>`, html.EscapeString(title))
	fmt.Fprintf(&b, `<p>%s</p>`, html.EscapeString(message))

	if actionURL != "" {
		if actionText == "" {
			actionText = "Ver mais"
		}
		fmt.Fprintf(&b,
			`<p style="margin-top: 20px;"><a href="%s" style="background-color: #4370d1; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">%s</a></p>`,
			html.EscapeString(actionURL),
			html.EscapeString(actionText),
		)
	}

	b.WriteString(`</div>`)
	return title, b.String()
}
