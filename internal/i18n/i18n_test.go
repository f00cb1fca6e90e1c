package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTranslateKnownLocales(t *testing.T) {
	assert.Equal(t, "Draft saved.", T("en", NoticeDraftSaved))
	assert.Equal(t, "Brouillon enregistré.", T("fr", NoticeDraftSaved))
	assert.Equal(t, "Brouillon enregistré.", T("fr-CA", NoticeDraftSaved))
}

func TestTranslateFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, "Draft saved.", T("de", NoticeDraftSaved))
	assert.Equal(t, "Draft saved.", T("", NoticeDraftSaved))
}

func TestTranslateFormatsArguments(t *testing.T) {
	assert.Equal(t, "Test email sent to 2 recipient(s).", T("en", NoticeTestSent, 2))
}
