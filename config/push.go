package config

import "os"

// PushConfig holds the VAPID key pair and subscriber contact used when talking
// to the browser push service.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

func LoadPushConfig() PushConfig {
	subscriber := os.Getenv("VAPID_SUBSCRIBER")
	if subscriber == "" {
		subscriber = "mailto:hello@hydrapair.app"
	}
	return PushConfig{
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		Subscriber:      subscriber,
	}
}

// Configured reports whether push delivery can actually be attempted.
func (p PushConfig) Configured() bool {
	return p.VAPIDPublicKey != "" && p.VAPIDPrivateKey != ""
}
