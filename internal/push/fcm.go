package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// FCMSender posts notifications to the FCM HTTPv1 endpoint using a server
// key or oauth token. Delivery is best-effort; callers treat failures as
// log-only.
type FCMSender struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewFCMSender(endpoint, key string) *FCMSender {
	return &FCMSender{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (f *FCMSender) Send(ctx context.Context, deviceToken, title, body string, data any) error {
	payload := map[string]any{
		"message": map[string]any{
			"token":        deviceToken,
			"notification": map[string]string{"title": title, "body": body},
			"data":         map[string]any{"payload": data},
		},
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fcm send: status %d", resp.StatusCode)
	}
	return nil
}
