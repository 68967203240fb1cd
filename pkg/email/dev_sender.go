package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// DevSender stores every message as a JSON file in dir.
type DevSender struct {
	dir string
	now func() time.Time
}

// NewDevSender creates a DevSender. dir is created on first send.
func NewDevSender(dir string) *DevSender {
	return &DevSender{dir: dir, now: time.Now}
}

var unsafeChars = regexp.MustCompile(`[^a-z0-9\-_.]`)

func (d *DevSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}

	name := msg.Tag
	if name == "" {
		name = msg.Subject
	}
	name = unsafeChars.ReplaceAllString(strings.ReplaceAll(strings.ToLower(name), " ", "_"), "")
	if len(name) > 80 {
		name = name[:80]
	}

	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	path := filepath.Join(d.dir, fmt.Sprintf("%s_%s.json", d.now().Format("20060102_150405.000000"), name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	return nil
}
