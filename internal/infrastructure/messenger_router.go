package infrastructure

import "whatsbot/internal/interfaces"

// DeviceLookup finds a client's connected device messenger.
type DeviceLookup interface {
	Messenger(clientID string) (interfaces.Messenger, bool)
}

// MessengerRouter prefers a client's linked device and falls back to the
// shared Cloud API client.
type MessengerRouter struct {
	cloud   interfaces.Messenger
	devices DeviceLookup
}

func NewMessengerRouter(cloud interfaces.Messenger, devices DeviceLookup) *MessengerRouter {
	return &MessengerRouter{cloud: cloud, devices: devices}
}

func (r *MessengerRouter) For(clientID string) interfaces.Messenger {
	if r.devices != nil {
		if m, ok := r.devices.Messenger(clientID); ok {
			return m
		}
	}
	return r.cloud
}
