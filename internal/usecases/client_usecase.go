package usecases

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

// ClientUsecase manages tenants and resolves which tenant a delivery belongs to.
type ClientUsecase struct {
	store *interfaces.Store
	log   *zap.Logger
}

func NewClientUsecase(store *interfaces.Store, log *zap.Logger) *ClientUsecase {
	return &ClientUsecase{store: store, log: log.Named("clients")}
}

// Ensure returns the client with the given id, creating a placeholder client
// when it does not exist. An empty id means the default client.
func (u *ClientUsecase) Ensure(ctx context.Context, id string) (*entities.Client, bool, error) {
	if id == "" {
		id = entities.DefaultClientID
	}
	c, err := u.store.Clients.Get(ctx, id)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, false, fmt.Errorf("get client %s: %w", id, err)
	}

	c = entities.NewDefaultClient(id)
	if err := u.store.Clients.Create(ctx, c); err != nil {
		// Lost a creation race with another request.
		if errors.Is(err, entities.ErrDuplicate) {
			if existing, getErr := u.store.Clients.Get(ctx, id); getErr == nil {
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("create client %s: %w", id, err)
	}
	u.log.Info("client created", zap.String("client_id", id))
	return c, true, nil
}

// Resolve picks the tenant for an incoming message: the device client id, the
// client owning the display number, the default client, the first client, or
// a freshly created default client.
func (u *ClientUsecase) Resolve(ctx context.Context, msg entities.IncomingMessage) (*entities.Client, error) {
	if msg.ClientID != "" {
		c, _, err := u.Ensure(ctx, msg.ClientID)
		return c, err
	}

	if digits := Digits(msg.DisplayPhoneNumber); digits != "" {
		c, err := u.store.Clients.FindByPhone(ctx, digits)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, entities.ErrNotFound) {
			return nil, fmt.Errorf("find client by phone: %w", err)
		}
	}

	c, err := u.store.Clients.Get(ctx, entities.DefaultClientID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("get default client: %w", err)
	}

	c, err = u.store.Clients.First(ctx)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return nil, fmt.Errorf("first client: %w", err)
	}

	c, _, err = u.Ensure(ctx, entities.DefaultClientID)
	return c, err
}

func (u *ClientUsecase) List(ctx context.Context) ([]entities.Client, error) {
	return u.store.Clients.List(ctx)
}

func (u *ClientUsecase) Get(ctx context.Context, id string) (*entities.Client, error) {
	return u.store.Clients.Get(ctx, id)
}

// ClientPatch carries the writable client fields. Nil fields are left alone.
type ClientPatch struct {
	Name     *string         `json:"name"`
	Slug     *string         `json:"slug"`
	Niche    *entities.Niche `json:"niche"`
	Phone    *string         `json:"phone"`
	Email    *string         `json:"email"`
	Address  *string         `json:"address"`
	Logo     *string         `json:"logo"`
	Plan     *entities.Plan  `json:"plan"`
	IsActive *bool           `json:"isActive"`
}

func (p ClientPatch) validate() error {
	if p.Niche != nil && !p.Niche.Valid() {
		return fmt.Errorf("%w: unknown niche %q", entities.ErrInvalid, *p.Niche)
	}
	if p.Plan != nil && !p.Plan.Valid() {
		return fmt.Errorf("%w: unknown plan %q", entities.ErrInvalid, *p.Plan)
	}
	return nil
}

func (p ClientPatch) apply(c *entities.Client) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Niche != nil {
		c.Niche = *p.Niche
	}
	if p.Phone != nil {
		c.Phone = *p.Phone
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Logo != nil {
		c.Logo = *p.Logo
	}
	if p.Plan != nil {
		c.Plan = *p.Plan
	}
	if p.IsActive != nil {
		c.IsActive = *p.IsActive
	}
}

func (u *ClientUsecase) Create(ctx context.Context, p ClientPatch) (*entities.Client, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	c := &entities.Client{
		Name:     "Novo Cliente",
		Niche:    entities.NicheSindicato,
		Plan:     entities.PlanBasic,
		IsActive: true,
	}
	p.apply(c)
	if strings.TrimSpace(c.Name) == "" {
		c.Name = "Novo Cliente"
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	if c.Slug == "" {
		c.Slug = fmt.Sprintf("client-%d", time.Now().Unix())
	}
	if err := u.store.Clients.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func (u *ClientUsecase) Update(ctx context.Context, id string, p ClientPatch) (*entities.Client, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	c, err := u.store.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.apply(c)
	if err := u.store.Clients.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update client %s: %w", id, err)
	}
	return c, nil
}

// ShareQRCode renders a PNG QR code pointing at the client's wa.me link,
// pre-filled with its welcome message.
func (u *ClientUsecase) ShareQRCode(ctx context.Context, id string) ([]byte, error) {
	c, err := u.store.Clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	digits := Digits(c.Phone)
	if digits == "" {
		return nil, fmt.Errorf("%w: client has no phone number", entities.ErrInvalid)
	}
	raw, err := u.store.Settings.All(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	cfg := entities.BotConfigFromSettings(raw)

	link := "https://wa.me/" + digits + "?text=" + url.QueryEscape(cfg.WelcomeMessage)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

var (
	nonDigit   = regexp.MustCompile(`\D+`)
	nonSlug    = regexp.MustCompile(`[^a-z0-9]+`)
	accentFold = strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
	)
)

// Digits strips everything but 0-9.
func Digits(s string) string {
	return nonDigit.ReplaceAllString(s, "")
}

// Slugify lower-cases s, folds Portuguese accents and joins words with '-'.
func Slugify(s string) string {
	s = accentFold.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.Trim(nonSlug.ReplaceAllString(s, "-"), "-")
}
