package usecases

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"whatsbot/internal/entities"
	"whatsbot/internal/interfaces"
)

const SetupMessage = "Banco de dados inicializado com sucesso!"

type SetupResult struct {
	Message       string `json:"message"`
	TablesCreated bool   `json:"tablesCreated"`
	ClientCreated bool   `json:"clientCreated"`
}

// SetupUsecase bootstraps the schema, the default client and the stock
// niche templates. Running it again changes nothing.
type SetupUsecase struct {
	store   *interfaces.Store
	clients *ClientUsecase
	log     *zap.Logger
}

func NewSetupUsecase(store *interfaces.Store, clients *ClientUsecase, log *zap.Logger) *SetupUsecase {
	return &SetupUsecase{store: store, clients: clients, log: log.Named("setup")}
}

func (u *SetupUsecase) Run(ctx context.Context) (*SetupResult, error) {
	if err := u.store.Migrator.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	_, created, err := u.clients.Ensure(ctx, entities.DefaultClientID)
	if err != nil {
		return nil, err
	}
	for i := range defaultNicheTemplates {
		t := defaultNicheTemplates[i]
		if err := u.store.Templates.UpsertNiche(ctx, &t); err != nil {
			return nil, fmt.Errorf("seed niche template %s/%s: %w", t.Niche, t.Name, err)
		}
	}
	u.log.Info("setup complete", zap.Bool("client_created", created), zap.Int("niche_templates", len(defaultNicheTemplates)))
	return &SetupResult{Message: SetupMessage, TablesCreated: true, ClientCreated: created}, nil
}

// defaultNicheTemplates gives every niche a greeting, and the appointment
// driven niches a reminder.
var defaultNicheTemplates = buildNicheTemplates()

func buildNicheTemplates() []entities.NicheTemplate {
	var out []entities.NicheTemplate
	for _, n := range entities.AllNiches {
		out = append(out, entities.NicheTemplate{
			Niche:     n,
			Name:      "boas-vindas",
			Category:  "greeting",
			Content:   "Olá {{nome}}! Seja bem-vindo(a). Como podemos ajudar hoje?",
			Variables: map[string]string{"nome": "cliente"},
			IsDefault: true,
		})
	}
	for _, n := range []entities.Niche{
		entities.NicheClinica, entities.NicheSalao, entities.NicheBarbearia,
		entities.NicheOficina, entities.NicheAcademia, entities.NicheAdvocacia,
	} {
		out = append(out, entities.NicheTemplate{
			Niche:     n,
			Name:      "lembrete-agendamento",
			Category:  "reminder",
			Content:   "Olá {{nome}}, lembramos do seu horário em {{data}} às {{hora}}. Responda SIM para confirmar.",
			Variables: map[string]string{"nome": "cliente"},
			IsDefault: true,
		})
	}
	for _, n := range []entities.Niche{entities.NicheSindicato, entities.NicheAssociacao, entities.NicheCooperativa} {
		out = append(out, entities.NicheTemplate{
			Niche:     n,
			Name:      "aviso-assembleia",
			Category:  "announcement",
			Content:   "Prezado(a) {{nome}}, informamos que a assembleia será realizada em {{data}}. Sua participação é importante!",
			Variables: map[string]string{"nome": "associado"},
			IsDefault: true,
		})
	}
	return out
}
