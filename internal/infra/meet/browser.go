package meet

import (
	"context"
	"fmt"
	"regexp"
	"time"

	domainMeet "meet_link_bot/internal/domain/meet"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"
)

const newMeetURL = "https://meet.google.com/new"

var meetURLPattern = regexp.MustCompile(`^https://meet\.google\.com/([a-z]{3}-[a-z]{4}-[a-z]{3})`)

// BrowserProducer opens meet.google.com/new in a Chrome profile that is
// already signed in and reads the room code from the redirected URL.
type BrowserProducer struct {
	profileDir string
	headless   bool
	poll       time.Duration
	logger     *logrus.Entry
}

func NewBrowserProducer(profileDir string, headless bool, logger *logrus.Entry) *BrowserProducer {
	return &BrowserProducer{
		profileDir: profileDir,
		headless:   headless,
		poll:       500 * time.Millisecond,
		logger:     logger,
	}
}

func (p *BrowserProducer) ProduceLink(ctx context.Context) (string, error) {
	l := launcher.New().
		Headless(p.headless).
		Set(flags.Flag("use-fake-ui-for-media-stream")).
		Set(flags.Flag("disable-dev-shm-usage")).
		Context(ctx)
	if p.profileDir != "" {
		l = l.UserDataDir(p.profileDir)
		// Kill keeps the signed-in profile on disk.
		defer l.Kill()
	} else {
		// The launcher made a throwaway profile; Cleanup also removes it.
		defer l.Cleanup()
	}

	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return "", fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: newMeetURL})
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", newMeetURL, err)
	}

	go p.skipPermissionPrompt(page)

	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()
	for {
		info, err := page.Info()
		if err == nil {
			if link, ok := extractMeetURL(info.URL); ok {
				p.logger.WithField("link", link).Debug("Meet room created in browser")
				return link, nil
			}
		}
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: browser never left %s: %w", domainMeet.ErrNoLink, newMeetURL, ctx.Err())
		case <-ticker.C:
		}
	}
}

// skipPermissionPrompt dismisses the camera and microphone dialog if it
// shows up. Absence of the dialog is fine.
func (p *BrowserProducer) skipPermissionPrompt(page *rod.Page) {
	el, err := page.Timeout(10*time.Second).ElementR("span", "Продолжить без|Continue without")
	if err != nil {
		return
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		p.logger.WithError(err).Debug("Permission prompt click failed")
	}
}

// extractMeetURL returns the canonical room link when url points at a room.
func extractMeetURL(url string) (string, bool) {
	m := meetURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return "https://meet.google.com/" + m[1], true
}
