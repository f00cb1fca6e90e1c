// internal/service/template_service.go
package service

import (
	"strings"

	"github.com/unclebandit/newsletter-backoffice/internal/model"
)

// templateLayouts are plain-text renditions of the backend's email layouts,
// good enough for a preview pane.
var templateLayouts = map[model.TemplateID]string{
	model.TemplateBasic: "Subject: {subject}\n\n{title}\n\n{content}\n",
	model.TemplateNewsletter: "Subject: {subject}\n\n" +
		"=== {title} ===\n\n{content}\n\n" +
		"--\nYou receive this newsletter as a subscriber. Unsubscribe at any time.\n",
	model.TemplateAnnouncement: "Subject: {subject}\n\n" +
		"*** ANNOUNCEMENT ***\n{title}\n\n{content}\n",
}

// RenderTemplate replaces every {key} placeholder in one pass, so values
// that contain placeholders are left alone.
func RenderTemplate(template string, data map[string]string) string {
	pairs := make([]string, 0, 2*len(data))
	for k, v := range data {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// RenderPreview renders c with its template layout. Empty fields show as
// <unknown> so gaps are visible before sending.
func RenderPreview(c model.Campaign) string {
	layout := templateLayouts[c.TemplateID.OrDefault()]
	return RenderTemplate(layout, map[string]string{
		"title":   orUnknown(c.Title),
		"subject": orUnknown(c.Subject),
		"content": orUnknown(c.Content),
	})
}

func orUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "<unknown>"
	}
	return value
}
