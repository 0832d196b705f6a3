package notify

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/counterjob/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSMTPSenderRequiresSettings(t *testing.T) {
	_, err := NewSMTPSender("", "587", "u", "p")
	assert.Error(t, err)
	_, err = NewSMTPSender("smtp.example.com", "", "u", "p")
	assert.Error(t, err)
	_, err = NewSMTPSender("smtp.example.com", "587", "", "p")
	assert.Error(t, err)
}

func TestSMTPSenderSendEmail(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", "587", "shop@example.com", "secret")
	require.NoError(t, err)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	res, err := s.SendEmail(context.Background(), "jane@gmail.com", "Receipt", "<p>hi</p>")
	require.NoError(t, err)
	assert.NotEmpty(t, res.MessageID)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "shop@example.com", gotFrom)
	assert.Equal(t, []string{"jane@gmail.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Receipt\r\n")
	assert.Contains(t, string(gotMsg), "\r\n\r\n<p>hi</p>")
}

func TestSMTPSenderErrors(t *testing.T) {
	s, err := NewSMTPSender("smtp.example.com", "587", "shop@example.com", "secret")
	require.NoError(t, err)
	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("refused") }

	_, err = s.SendEmail(context.Background(), "jane@gmail.com", "Receipt", "body")
	assert.ErrorContains(t, err, "refused")

	_, err = s.SendEmail(context.Background(), "jane@gmail.com\r\nBcc: x@y.z", "Receipt", "body")
	assert.Error(t, err)
}

func TestRenderReceipt(t *testing.T) {
	subject, body, err := RenderReceipt(&models.Transaction{
		ID:      "1718000000000",
		Barcode: "TXN1718000000000",
		Date:    "2024-06-10T06:13:20Z",
		Items: []models.ReceiptItem{
			{Item: "Piattos <Cheese>", Quantity: 2, Price: 35.5, Subtotal: 71},
		},
		Subtotal: 71,
		Tax:      7.1,
		Total:    78.1,
	})
	require.NoError(t, err)
	assert.Equal(t, "Your CounterJob receipt TXN1718000000000", subject)
	assert.Contains(t, body, "Piattos &lt;Cheese&gt;")
	assert.Contains(t, body, "₱78.10")
}
