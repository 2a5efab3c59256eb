package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/logger"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// DeviceSession is one client's linked WhatsApp device. It implements
// interfaces.Messenger so replies can go out through the phone that
// received the message.
type DeviceSession struct {
	Client   *whatsmeow.Client
	ClientID string

	log    *zap.Logger
	qrCode string
	qrLock sync.RWMutex
}

func NewDeviceSession(ctx context.Context, dbPath, clientID string, log *zap.Logger) (*DeviceSession, error) {
	log = log.With(zap.String("client_id", clientID))

	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)",
		logger.WhatsMeow(log, "wa_db"))
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	return &DeviceSession{
		Client:   whatsmeow.NewClient(deviceStore, logger.WhatsMeow(log, "wa_client")),
		ClientID: clientID,
		log:      log,
	}, nil
}

// Connect opens the socket. A device that was never paired starts emitting
// QR codes, which are kept for QR().
func (d *DeviceSession) Connect(ctx context.Context) error {
	if d.Client.IsConnected() {
		return nil
	}
	if d.Client.Store.ID != nil {
		if err := d.Client.Connect(); err != nil {
			return err
		}
		d.log.Info("device connected with existing session")
		return nil
	}

	qrChan, err := d.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("qr channel: %w", err)
	}
	if err := d.Client.Connect(); err != nil {
		return err
	}
	go d.watchQR(qrChan)
	return nil
}

func (d *DeviceSession) watchQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		if evt.Event == "code" {
			d.setQR(evt.Code)
			d.log.Debug("pairing code refreshed")
			continue
		}
		d.setQR("")
		d.log.Info("pairing event", zap.String("event", evt.Event))
	}
}

func (d *DeviceSession) setQR(code string) {
	d.qrLock.Lock()
	d.qrCode = code
	d.qrLock.Unlock()
}

// QR returns the pending pairing code, or "" when none is pending.
func (d *DeviceSession) QR() string {
	d.qrLock.RLock()
	defer d.qrLock.RUnlock()
	return d.qrCode
}

func (d *DeviceSession) IsLoggedIn() bool {
	return d.Client.Store.ID != nil
}

func (d *DeviceSession) IsConnected() bool {
	return d.Client.IsConnected() && d.Client.Store.ID != nil
}

// Info returns the linked phone number and push name.
func (d *DeviceSession) Info() (phone, name string) {
	if d.Client.Store.ID == nil {
		return "", ""
	}
	return d.Client.Store.ID.User, d.Client.Store.PushName
}

func (d *DeviceSession) Logout(ctx context.Context) error {
	d.setQR("")
	if d.Client.Store.ID == nil {
		d.Client.Disconnect()
		return nil
	}
	return d.Client.Logout(ctx)
}

func (d *DeviceSession) Disconnect() {
	d.Client.Disconnect()
}

func (d *DeviceSession) AddHandler(handler func(interface{})) {
	d.Client.AddEventHandler(handler)
}

func jidFor(phone string) (types.JID, error) {
	jid, err := types.ParseJID(phone + "@" + types.DefaultUserServer)
	if err != nil {
		return types.JID{}, fmt.Errorf("%w: invalid number %q", entities.ErrInvalid, phone)
	}
	return jid, nil
}

func (d *DeviceSession) SendText(ctx context.Context, to, body string, _ entities.SendOptions) (string, error) {
	jid, err := jidFor(to)
	if err != nil {
		return "", err
	}
	resp, err := d.Client.SendMessage(ctx, jid, &waProto.Message{Conversation: &body})
	if err != nil {
		return "", fmt.Errorf("device send: %w", err)
	}
	return string(resp.ID), nil
}

// SendButtons renders the buttons as a numbered menu; linked devices cannot
// send interactive messages.
func (d *DeviceSession) SendButtons(ctx context.Context, to, body string, buttons []entities.Button) (string, error) {
	if err := ValidateButtons(buttons); err != nil {
		return "", err
	}
	return d.SendText(ctx, to, RenderButtons(body, buttons), entities.SendOptions{})
}

func (d *DeviceSession) SendList(ctx context.Context, to, body, buttonText string, sections []entities.ListSection) (string, error) {
	return d.SendText(ctx, to, RenderList(body, sections), entities.SendOptions{})
}

// MarkAsRead is a no-op: device sessions do not send read receipts.
func (d *DeviceSession) MarkAsRead(context.Context, string) error {
	return nil
}

// Typing shows the composing indicator to the recipient.
func (d *DeviceSession) Typing(ctx context.Context, to string) {
	jid, err := jidFor(to)
	if err != nil {
		return
	}
	_ = d.Client.SendPresence(ctx, types.PresenceAvailable)
	_ = d.Client.SendChatPresence(ctx, jid, types.ChatPresenceComposing, types.ChatPresenceMediaText)
}

// ParseMessage converts a device event into an IncomingMessage. ok is false
// for group chats, own messages and non-text payloads.
func (d *DeviceSession) ParseMessage(evt *events.Message) (entities.IncomingMessage, bool) {
	if evt.Info.IsGroup || evt.Info.IsFromMe {
		return entities.IncomingMessage{}, false
	}

	text := evt.Message.GetConversation()
	if text == "" {
		text = evt.Message.GetExtendedTextMessage().GetText()
	}
	if text == "" {
		return entities.IncomingMessage{}, false
	}

	msg := entities.IncomingMessage{
		ClientID:  d.ClientID,
		From:      evt.Info.Sender.User,
		MessageID: string(evt.Info.ID),
		Timestamp: fmt.Sprint(evt.Info.Timestamp.Unix()),
		Type:      "text",
		Text:      text,
	}
	if evt.Info.PushName != "" {
		msg.Contact = &entities.Contact{Name: evt.Info.PushName, WaID: evt.Info.Sender.User}
	}
	return msg, true
}

// RenderButtons formats reply buttons as a numbered text menu.
func RenderButtons(body string, buttons []entities.Button) string {
	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n")
	for i, b := range buttons {
		fmt.Fprintf(&sb, "\n%d. %s", i+1, b.Title)
	}
	return sb.String()
}

// RenderList formats list sections as text, numbering rows across sections.
func RenderList(body string, sections []entities.ListSection) string {
	var sb strings.Builder
	sb.WriteString(body)
	n := 0
	for _, s := range sections {
		sb.WriteString("\n")
		if s.Title != "" {
			fmt.Fprintf(&sb, "\n*%s*", s.Title)
		}
		for _, r := range s.Rows {
			n++
			fmt.Fprintf(&sb, "\n%d. %s", n, r.Title)
			if r.Description != "" {
				fmt.Fprintf(&sb, " - %s", r.Description)
			}
		}
	}
	return sb.String()
}
