// Package notifier forwards toasts to the restreak tray app when one is
// running. Delivery is best effort.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/restreak/internal/badges"
	"github.com/julianstephens/restreak/internal/constants"
	"github.com/julianstephens/restreak/internal/engine"
)

var (
	ErrTrayNotRunning = errors.New("restreak-tray is not running")

	userConfigDirFunc = os.UserConfigDir
	findProcessFunc   = ps.FindProcess
)

type Toast struct {
	Text       string `json:"text"`
	DurationMs uint32 `json:"duration_ms"`
}

// endpoint is what the tray app advertises in its lockfile as "port|pid|secret".
type endpoint struct {
	port   int
	pid    int
	secret string
}

type Notifier struct {
	client *http.Client
}

var _ engine.EventSink = (*Notifier)(nil)

func New() *Notifier {
	return &Notifier{client: &http.Client{Timeout: 2 * time.Second}}
}

func (n *Notifier) Name() string { return "tray" }

// Publish turns completion and badge events into toasts. A missing tray
// app is not an error.
func (n *Notifier) Publish(ctx context.Context, ev engine.Event) error {
	text := ToastText(ev)
	if text == "" {
		return nil
	}
	err := n.Notify(ctx, text)
	if errors.Is(err, ErrTrayNotRunning) {
		return nil
	}
	return err
}

// ToastText is the message shown for an event, or "" when the event is silent.
func ToastText(ev engine.Event) string {
	switch ev.Type {
	case engine.EventHabitDone:
		return constants.CompletionToast
	case engine.EventBadgeUnlocked:
		if b, ok := badges.Lookup(ev.BadgeID); ok {
			return fmt.Sprintf("Badge unlocked: %s", b.Name)
		}
		return "Badge unlocked!"
	}
	return ""
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	dir, err := TrayConfigDir()
	if err != nil {
		return err
	}
	ep, err := readEndpoint(filepath.Join(dir, constants.NotifierLockfileName))
	if err != nil {
		return err
	}

	toast := Toast{Text: text, DurationMs: constants.NotificationDurationMs}
	for attempt := 1; ; attempt++ {
		err = n.send(ctx, ep, toast)
		if err == nil || attempt >= constants.NotifyMaxRetries {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(constants.NotifyRetryDelay):
		}
	}
}

// TrayConfigDir is where the tray app keeps its lockfile. The tray's
// settings.json may point it elsewhere.
func TrayConfigDir() (string, error) {
	configDir, err := userConfigDirFunc()
	if err != nil {
		return "", fmt.Errorf("failed to get user config dir: %w", err)
	}
	trayDir := filepath.Join(configDir, constants.TrayAppIdentifier)

	data, err := os.ReadFile(filepath.Join(trayDir, "settings.json"))
	if err != nil {
		return trayDir, nil
	}
	var settings struct {
		Settings struct {
			LockfileDir string `json:"lockfile_dir"`
		} `json:"settings"`
	}
	if json.Unmarshal(data, &settings) == nil && settings.Settings.LockfileDir != "" {
		return settings.Settings.LockfileDir, nil
	}
	return trayDir, nil
}

func readEndpoint(lockfilePath string) (endpoint, error) {
	content, err := os.ReadFile(lockfilePath)
	if err != nil {
		return endpoint{}, ErrTrayNotRunning
	}
	ep, err := parseLockfile(string(content))
	if err != nil {
		return endpoint{}, err
	}

	process, err := findProcessFunc(ep.pid)
	if err != nil || process == nil {
		return endpoint{}, ErrTrayNotRunning
	}
	if !strings.HasPrefix(process.Executable(), constants.TrayAppExecutable) {
		return endpoint{}, fmt.Errorf("process with PID %d is not %s (is %s)", ep.pid, constants.TrayAppExecutable, process.Executable())
	}
	return ep, nil
}

func parseLockfile(content string) (endpoint, error) {
	parts := strings.Split(strings.TrimSpace(content), "|")
	if len(parts) != 3 {
		return endpoint{}, errors.New("lockfile is malformed")
	}
	port, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return endpoint{}, errors.New("invalid port number in lockfile")
	}
	if port < 1 || port > 65535 {
		return endpoint{}, fmt.Errorf("port number %d is outside valid range (1-65535)", port)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return endpoint{}, errors.New("invalid process ID in lockfile")
	}
	secret := strings.TrimSpace(parts[2])
	if secret == "" {
		return endpoint{}, errors.New("secret in lockfile is empty")
	}
	return endpoint{port: port, pid: pid, secret: secret}, nil
}

func (n *Notifier) send(ctx context.Context, ep endpoint, toast Toast) error {
	body, err := json.Marshal(toast)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("http://127.0.0.1:%d", ep.port), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restreak-Secret", ep.secret)

	res, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusOK {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(msg))
}
