package emailsvc

import (
	"encoding/json"
	"io"
	"log"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/danhgia/core"
	appfs "github.com/trezcool/danhgia/fs"
	"github.com/trezcool/danhgia/services/logger"
)

func testConf() *core.Config {
	return &core.Config{AppName: "Danh Gia", TestMode: true, FrontendBaseURL: "http://localhost:3000"}
}

func scoredMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "Phạm Thị Dung", Address: "dung@example.edu.vn"}},
		Subject:      "Kết quả đánh giá",
		TemplateName: "evaluation_scored",
		TemplateData: map[string]interface{}{
			"MemberName":   "Phạm Thị Dung",
			"ReviewerName": "Nguyễn Văn An",
			"ReviewerRole": "Tổ trưởng",
			"Quarter":      1,
			"Year":         "2023-2024",
			"Total":        25,
			"MaxTotal":     30.0,
		},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := testConf()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	core.ParseEmailTemplates(appfs.FS, conf, logger)

	svc := NewConsoleServiceMock(conf, logger)
	svc.SendMessages(
		scoredMessage(),
		&core.EmailMessage{Subject: "no recipient", BodyStr: "hi"},
		&core.EmailMessage{To: []mail.Address{{Address: "a@example.com"}}, Subject: "no content"},
	)

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, "Tổng điểm: 25/30")
	assert.Contains(t, sent[0].HTMLContent, "Nguyễn Văn An")

	out := svc.format(sent[0])
	assert.Contains(t, out, "Subject: [Danh Gia] Kết quả đánh giá\r\n")
	assert.Contains(t, out, "multipart/alternative")
}

func TestSendgridService_request(t *testing.T) {
	conf := testConf()
	conf.SendgridApiKey = "SG.key"
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	svc := NewSendgridService(conf, logger)

	msg := core.EmailMessage{
		To:          []mail.Address{{Name: "Dung", Address: "dung@example.edu.vn"}},
		Subject:     "Kết quả đánh giá",
		TextContent: "text",
	}
	req := svc.request(msg)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", req.BaseURL)
	assert.Equal(t, "Bearer SG.key", req.Headers["Authorization"])

	var body struct {
		Personalizations []struct {
			Subject string `json:"subject"`
			To      []struct {
				Email string `json:"email"`
			} `json:"to"`
		} `json:"personalizations"`
		Content []struct {
			Type string `json:"type"`
		} `json:"content"`
	}
	require.NoError(t, json.Unmarshal(req.Body, &body))
	require.Len(t, body.Personalizations, 1)
	assert.Equal(t, "[Danh Gia] Kết quả đánh giá", body.Personalizations[0].Subject)
	assert.Equal(t, "dung@example.edu.vn", body.Personalizations[0].To[0].Email)
	require.Len(t, body.Content, 1, "no html part without html content")
	assert.Equal(t, "text/plain", body.Content[0].Type)
}
