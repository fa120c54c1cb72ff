package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"educabiz-exporter/pkg/config"
	"educabiz-exporter/pkg/exporter"
)

const appName = "ebexport"

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name="+appName, title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender uses a PowerShell toast
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("%s").Show($toast)
	`, xmlEscape(title), xmlEscape(message), appName)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// Notifier sends run outcomes to the desktop and echoes them on the console
type Notifier struct {
	sender NotificationSender
	out    io.Writer
	cfg    config.NotificationConfig
}

// NewNotifier picks the sender for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewNotifierWithSender(cfg, sender, Output)
}

// NewNotifierWithSender creates a notifier with an explicit sender and console
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender, out io.Writer) *Notifier {
	return &Notifier{sender: sender, out: out, cfg: cfg}
}

// NotifyResult announces a finished run if completion notices are enabled
func (n *Notifier) NotifyResult(result *exporter.Result) {
	if !n.cfg.Enabled || !n.cfg.OnComplete || result == nil {
		return
	}
	if result.NoPictures {
		n.send("Educabiz export", "No new pictures")
		return
	}
	n.send("Educabiz export complete", fmt.Sprintf("%d pictures saved to %s", result.Pictures, result.Archive))
}

// NotifyError announces a failed run if error notices are enabled
func (n *Notifier) NotifyError(err error) {
	if !n.cfg.Enabled || !n.cfg.OnError || err == nil {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", Red("Educabiz export failed"), Red(err.Error()))
	n.deliver("Educabiz export failed", err.Error())
}

func (n *Notifier) send(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Cyan(title), Yellow(message))
	n.deliver(title, message)
}

// deliver ignores sender errors; the console line has already been printed
func (n *Notifier) deliver(title, message string) {
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}
