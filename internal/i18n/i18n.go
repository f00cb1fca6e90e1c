// Package i18n holds the user-facing strings of the back-office and renders
// them through golang.org/x/text/message.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys.
const (
	AlertSaveFailed       = "alert.save_failed"
	AlertSendFailed       = "alert.send_failed"
	AlertScheduleFailed   = "alert.schedule_failed"
	AlertTestFailed       = "alert.test_failed"
	AlertDeleteFailed     = "alert.delete_failed"
	NoticeTestSent        = "notice.test_sent"
	NoticeDraftSaved      = "notice.draft_saved"
	NoticeSent            = "notice.sent"
	NoticeScheduled       = "notice.scheduled"
	FieldRequired         = "field.required"
	FieldAudienceRequired = "field.audience_required"
	FieldAudienceUnknown  = "field.audience_unknown"
	ScheduleInPast        = "schedule.in_past"
	TestEmailsRequired    = "test_emails.required"
	ActionInFlight        = "action.in_flight"
)

var catalogs = map[language.Tag]map[string]string{
	language.English: {
		AlertSaveFailed:       "Could not save the campaign. Please try again.",
		AlertSendFailed:       "Could not send the campaign. Please try again.",
		AlertScheduleFailed:   "Could not schedule the campaign. Please try again.",
		AlertTestFailed:       "Could not send the test email.",
		AlertDeleteFailed:     "Could not delete the campaign.",
		NoticeTestSent:        "Test email sent to %d recipient(s).",
		NoticeDraftSaved:      "Draft saved.",
		NoticeSent:            "Campaign is being sent.",
		NoticeScheduled:       "Campaign scheduled for %s.",
		FieldRequired:         "This field is required.",
		FieldAudienceRequired: "Please choose an audience.",
		FieldAudienceUnknown:  "The audience contains unknown specialities.",
		ScheduleInPast:        "The scheduled date must be in the future.",
		TestEmailsRequired:    "Add at least one test email.",
		ActionInFlight:        "This action is already in progress.",
	},
	language.French: {
		AlertSaveFailed:       "Impossible d'enregistrer la campagne. Veuillez réessayer.",
		AlertSendFailed:       "Impossible d'envoyer la campagne. Veuillez réessayer.",
		AlertScheduleFailed:   "Impossible de programmer la campagne. Veuillez réessayer.",
		AlertTestFailed:       "Impossible d'envoyer l'email de test.",
		AlertDeleteFailed:     "Impossible de supprimer la campagne.",
		NoticeTestSent:        "Email de test envoyé à %d destinataire(s).",
		NoticeDraftSaved:      "Brouillon enregistré.",
		NoticeSent:            "La campagne est en cours d'envoi.",
		NoticeScheduled:       "Campagne programmée pour le %s.",
		FieldRequired:         "Ce champ est obligatoire.",
		FieldAudienceRequired: "Veuillez choisir une audience.",
		FieldAudienceUnknown:  "L'audience contient des spécialités inconnues.",
		ScheduleInPast:        "La date d'envoi doit être dans le futur.",
		TestEmailsRequired:    "Ajoutez au moins un email de test.",
		ActionInFlight:        "Cette action est déjà en cours.",
	},
}

var matcher language.Matcher

func init() {
	tags := []language.Tag{language.English, language.French}
	for _, tag := range tags {
		for key, msg := range catalogs[tag] {
			_ = message.SetString(tag, key, msg)
		}
	}
	matcher = language.NewMatcher(tags)
}

// Printer returns a printer for the closest supported locale, English when
// nothing matches.
func Printer(locale string) *message.Printer {
	tag, _ := language.MatchStrings(matcher, strings.TrimSpace(locale))
	base, _ := tag.Base()
	return message.NewPrinter(language.Make(base.String()))
}

// T renders key for locale.
func T(locale, key string, args ...any) string {
	return Printer(locale).Sprintf(key, args...)
}
