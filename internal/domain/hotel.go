package domain

// HotelNotificationSettings holds the provider configured per channel.
type HotelNotificationSettings struct {
	HotelID       string `json:"hotelId"`
	EmailProvider string `json:"emailProvider"`
	SMSProvider   string `json:"smsProvider"`
	PushProvider  string `json:"pushProvider"`
}

// Provider returns the configured provider for channel, defaulting to "none".
func (s HotelNotificationSettings) Provider(channel NotificationChannel) string {
	var provider string
	switch channel {
	case ChannelEmail:
		provider = s.EmailProvider
	case ChannelSMS:
		provider = s.SMSProvider
	case ChannelPush:
		provider = s.PushProvider
	}
	if provider == "" {
		return ProviderNone
	}
	return provider
}
