package entities

import (
	"encoding/json"
	"strconv"
	"time"
)

// Setting keys understood by the bot.
const (
	SettingBotName             = "botName"
	SettingWelcomeMessage      = "welcomeMessage"
	SettingBusinessHours       = "businessHours"
	SettingOutsideHoursMessage = "outsideHoursMessage"
	SettingBotTone             = "botTone"
	SettingAutoReply           = "autoReply"
)

const (
	DefaultBotName             = "Assistente Virtual"
	DefaultWelcomeMessage      = "Olá! Como posso ajudar?"
	DefaultOutsideHoursMessage = "Estamos fora do horário de atendimento."
	DefaultBotTone             = "professional"
)

type BusinessHours struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

var DefaultBusinessHours = BusinessHours{Start: "08:00", End: "18:00"}

// Contains reports whether t (wall clock) falls inside the window. Windows that
// wrap midnight (start after end) are supported.
func (b BusinessHours) Contains(t time.Time) bool {
	start, err1 := time.Parse("15:04", b.Start)
	end, err2 := time.Parse("15:04", b.End)
	if err1 != nil || err2 != nil {
		return true
	}
	minute := t.Hour()*60 + t.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	if s <= e {
		return minute >= s && minute < e
	}
	return minute >= s || minute < e
}

type Setting struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BotConfig is the typed view over a client's settings.
type BotConfig struct {
	BotName             string        `json:"botName"`
	WelcomeMessage      string        `json:"welcomeMessage"`
	BusinessHours       BusinessHours `json:"businessHours"`
	OutsideHoursMessage string        `json:"outsideHoursMessage"`
	BotTone             string        `json:"botTone"`
	AutoReply           bool          `json:"autoReply"`

	// HasBusinessHours is true when the client stored hours explicitly; only
	// then are they enforced.
	HasBusinessHours bool `json:"-"`
	HasAutoReply     bool `json:"-"`
}

// BotConfigFromSettings applies defaults for every key missing from raw.
func BotConfigFromSettings(raw map[string]string) BotConfig {
	cfg := BotConfig{
		BotName:             DefaultBotName,
		WelcomeMessage:      DefaultWelcomeMessage,
		BusinessHours:       DefaultBusinessHours,
		OutsideHoursMessage: DefaultOutsideHoursMessage,
		BotTone:             DefaultBotTone,
		AutoReply:           true,
	}
	if v := raw[SettingBotName]; v != "" {
		cfg.BotName = v
	}
	if v := raw[SettingWelcomeMessage]; v != "" {
		cfg.WelcomeMessage = v
	}
	if v := raw[SettingBusinessHours]; v != "" {
		var bh BusinessHours
		if err := json.Unmarshal([]byte(v), &bh); err == nil && bh.Start != "" && bh.End != "" {
			cfg.BusinessHours = bh
			cfg.HasBusinessHours = true
		}
	}
	if v := raw[SettingOutsideHoursMessage]; v != "" {
		cfg.OutsideHoursMessage = v
	}
	if v := raw[SettingBotTone]; v != "" {
		cfg.BotTone = v
	}
	if v := raw[SettingAutoReply]; v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutoReply = b
			cfg.HasAutoReply = true
		}
	}
	return cfg
}
