package email_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hostelkit/pkg/email"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	valid := email.Message{To: "owner@example.com", Subject: "Trial ending", HTMLBody: "<p>hi</p>"}
	assert.NoError(t, valid.Validate())

	noRecipient := valid
	noRecipient.To = "not-an-email"
	assert.ErrorIs(t, noRecipient.Validate(), email.ErrInvalidMessage)

	noBody := valid
	noBody.HTMLBody = ""
	assert.ErrorIs(t, noBody.Validate(), email.ErrInvalidMessage)
}

func TestDevSender(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sender, err := email.New(email.Config{DevOutputDir: dir})
	require.NoError(t, err)

	msg := email.Message{To: "owner@example.com", Subject: "Trial ending", TextBody: "3 days left", Tag: "trial_expiring"}
	require.NoError(t, sender.Send(context.Background(), msg))

	files, err := filepath.Glob(filepath.Join(dir, "*_trial_expiring.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	raw, err := os.ReadFile(files[0])
	require.NoError(t, err)
	var got email.Message
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, msg, got)
}

func TestNewPostmark(t *testing.T) {
	t.Parallel()

	_, err := email.NewPostmark(email.Config{PostmarkServerToken: "tok", SenderEmail: "bad", SupportEmail: "support@example.com"})
	assert.ErrorIs(t, err, email.ErrInvalidConfig)

	p, err := email.NewPostmark(email.Config{PostmarkServerToken: "tok", SenderEmail: "billing@example.com", SupportEmail: "support@example.com"})
	require.NoError(t, err)
	assert.NotNil(t, p)
}
