package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

// ClientSummary is the short client view embedded in the config response.
type ClientSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Niche    entities.Niche `json:"niche"`
	Plan     entities.Plan  `json:"plan"`
	IsActive bool           `json:"isActive"`
}

type ConfigView struct {
	entities.BotConfig
	Niche  entities.Niche `json:"niche"`
	Client ClientSummary  `json:"client"`
}

type Stats struct {
	TotalMembers        int `json:"totalMembers"`
	ActiveConversations int `json:"activeConversations"`
	MessagesToday       int `json:"messagesToday"`
	ResponseRate        int `json:"responseRate"`
}

// ConfigUpdate holds the settings to upsert. Nil or empty fields are skipped.
type ConfigUpdate struct {
	ClientID            string                  `json:"clientId"`
	BotName             string                  `json:"botName"`
	WelcomeMessage      string                  `json:"welcomeMessage"`
	BusinessHours       *entities.BusinessHours `json:"businessHours"`
	OutsideHoursMessage string                  `json:"outsideHoursMessage"`
	BotTone             string                  `json:"botTone"`
	AutoReply           *bool                   `json:"autoReply"`
	Niche               entities.Niche          `json:"niche"`
}

// DashboardUsecase serves the bot configuration and the headline stats.
type DashboardUsecase struct {
	store   *interfaces.Store
	clients *ClientUsecase
	log     *zap.Logger
}

func NewDashboardUsecase(store *interfaces.Store, clients *ClientUsecase, log *zap.Logger) *DashboardUsecase {
	return &DashboardUsecase{store: store, clients: clients, log: log.Named("dashboard")}
}

func (u *DashboardUsecase) GetConfig(ctx context.Context, clientID string) (*ConfigView, *Stats, error) {
	client, _, err := u.clients.Ensure(ctx, clientID)
	if err != nil {
		return nil, nil, err
	}
	raw, err := u.store.Settings.All(ctx, client.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load settings: %w", err)
	}
	view := &ConfigView{
		BotConfig: entities.BotConfigFromSettings(raw),
		Niche:     client.Niche,
		Client: ClientSummary{
			ID:       client.ID,
			Name:     client.Name,
			Niche:    client.Niche,
			Plan:     client.Plan,
			IsActive: client.IsActive,
		},
	}
	stats, err := u.Stats(ctx, client.ID)
	if err != nil {
		return nil, nil, err
	}
	return view, stats, nil
}

func (u *DashboardUsecase) Stats(ctx context.Context, clientID string) (*Stats, error) {
	today := entities.DayStart(time.Now())
	var (
		s   Stats
		err error
	)
	if s.TotalMembers, err = u.store.Members.Count(ctx, clientID); err != nil {
		return nil, fmt.Errorf("count members: %w", err)
	}
	if s.ActiveConversations, err = u.store.Conversations.CountByStatus(ctx, clientID, entities.ConversationActive); err != nil {
		return nil, fmt.Errorf("count conversations: %w", err)
	}
	in, err := u.store.Messages.CountSince(ctx, clientID, entities.DirectionInbound, today)
	if err != nil {
		return nil, fmt.Errorf("count inbound: %w", err)
	}
	out, err := u.store.Messages.CountSince(ctx, clientID, entities.DirectionOutbound, today)
	if err != nil {
		return nil, fmt.Errorf("count outbound: %w", err)
	}
	s.MessagesToday = in + out
	s.ResponseRate = ResponseRate(in, out)
	return &s, nil
}

// ResponseRate is outbound over inbound as a percentage capped at 100. With
// no inbound traffic it is 100.
func ResponseRate(inbound, outbound int) int {
	if inbound == 0 {
		return 100
	}
	return min(100, outbound*100/inbound)
}

func (u *DashboardUsecase) SaveConfig(ctx context.Context, in ConfigUpdate, meta RequestMeta) error {
	if in.Niche != "" && !in.Niche.Valid() {
		return fmt.Errorf("%w: unknown niche %q", entities.ErrInvalid, in.Niche)
	}
	client, _, err := u.clients.Ensure(ctx, in.ClientID)
	if err != nil {
		return err
	}

	settings := map[string]string{}
	if in.BotName != "" {
		settings[entities.SettingBotName] = in.BotName
	}
	if in.WelcomeMessage != "" {
		settings[entities.SettingWelcomeMessage] = in.WelcomeMessage
	}
	if in.BusinessHours != nil {
		b, err := json.Marshal(in.BusinessHours)
		if err != nil {
			return fmt.Errorf("encode business hours: %w", err)
		}
		settings[entities.SettingBusinessHours] = string(b)
	}
	if in.OutsideHoursMessage != "" {
		settings[entities.SettingOutsideHoursMessage] = in.OutsideHoursMessage
	}
	if in.BotTone != "" {
		settings[entities.SettingBotTone] = in.BotTone
	}
	if in.AutoReply != nil {
		settings[entities.SettingAutoReply] = strconv.FormatBool(*in.AutoReply)
	}

	for key, value := range settings {
		if err := u.store.Settings.Upsert(ctx, client.ID, key, value); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}

	if in.Niche != "" && in.Niche != client.Niche {
		client.Niche = in.Niche
		if err := u.store.Clients.Update(ctx, client); err != nil {
			return fmt.Errorf("update niche: %w", err)
		}
	}

	details := make(map[string]any, len(settings)+1)
	for k, v := range settings {
		details[k] = v
	}
	if in.Niche != "" {
		details["niche"] = string(in.Niche)
	}
	audit(ctx, u.store, u.log, &entities.AuditLog{
		ClientID: client.ID,
		Action:   "update",
		Entity:   "config",
		EntityID: client.ID,
		Details:  details,
	}, meta)
	return nil
}
