package app

import (
	"strconv"
	"strings"

	"internbot/internal/chat"
	"internbot/internal/domain/application"
)

func newApplicationMessage(texts Translator, lang string, d *application.Detail) chat.Message {
	var b strings.Builder
	b.WriteString(texts.Text(lang, "new_application"))
	b.WriteString("\n\n")
	line(&b, texts.Text(lang, "job"), d.PostingTitle)
	line(&b, texts.Text(lang, "name"), d.StudentName)
	line(&b, texts.Text(lang, "course"), d.StudentCourse)
	line(&b, texts.Text(lang, "major"), d.StudentMajor)
	line(&b, texts.Text(lang, "phone"), d.StudentPhone)
	line(&b, texts.Text(lang, "about_student"), d.StudentAbout)

	id := strconv.FormatInt(d.ID, 10)
	return chat.Message{
		ChatID: d.EmployerActorID,
		Text:   strings.TrimRight(b.String(), "\n"),
		Buttons: [][]chat.Button{
			{
				{Text: texts.Text(lang, "accept_application"), Payload: "accept_application:" + id},
				{Text: texts.Text(lang, "reject_application"), Payload: "reject_application:" + id},
			},
			{{Text: texts.Text(lang, "mark_under_review"), Payload: "under_review_application:" + id}},
		},
	}
}

func statusChangedMessage(texts Translator, lang string, d *application.Detail) chat.Message {
	return chat.Message{
		ChatID: d.StudentActorID,
		Text:   texts.Text(lang, "application_"+string(d.Status), "job", d.PostingTitle, "company", d.CompanyName),
	}
}

func statusEchoMessage(texts Translator, lang string, chatID int64, d *application.Detail) chat.Message {
	return chat.Message{
		ChatID: chatID,
		Text:   texts.Text(lang, "application_updated", "status", StatusLabel(texts, lang, d.Status)),
	}
}

func StatusLabel(texts Translator, lang string, status application.Status) string {
	return texts.Text(lang, "status_"+string(status))
}

func line(b *strings.Builder, label, value string) {
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}
