package services

import (
	"context"
	"log/slog"
	"time"

	pubnub "github.com/pubnub/go"
)

type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
	NotifyWarning NotificationType = "warning"
)

// Notifier is the outbound notification capability. Delivery mechanics live
// outside the automation core; senders must tolerate failures.
type Notifier interface {
	Send(ctx context.Context, typ NotificationType, message string, data map[string]any) error
}

// PubNubNotifier publishes notifications to a user-facing channel.
type PubNubNotifier struct {
	pn      *pubnub.PubNub
	channel string
}

func NewPubNubNotifier(pn *pubnub.PubNub, channel string) *PubNubNotifier {
	return &PubNubNotifier{pn: pn, channel: channel}
}

func (n *PubNubNotifier) Send(ctx context.Context, typ NotificationType, message string, data map[string]any) error {
	payload := map[string]any{
		"type":      string(typ),
		"message":   message,
		"timestamp": time.Now().Unix(),
	}
	if len(data) > 0 {
		payload["data"] = data
	}

	_, _, err := n.pn.Publish().
		Channel(n.channel).
		Message(payload).
		Execute()
	if err != nil {
		slog.Error("notification publish failed", "channel", n.channel, "type", string(typ), "error", err)
		return err
	}
	return nil
}

// LogNotifier is the reduced-mode fallback when no notification backend is
// configured.
type LogNotifier struct{}

func (LogNotifier) Send(_ context.Context, typ NotificationType, message string, data map[string]any) error {
	slog.Info("notification", "type", string(typ), "message", message, "data", data)
	return nil
}
