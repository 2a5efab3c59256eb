package entities

// Niche identifies the business vertical a client operates in. It selects the
// assistant prompt and the fallback reply.
type Niche string

const (
	NicheSindicato      Niche = "sindicato"
	NicheAssociacao     Niche = "associacao"
	NicheCooperativa    Niche = "cooperativa"
	NicheOficina        Niche = "oficina"
	NicheAutopecas      Niche = "autopecas"
	NicheClinica        Niche = "clinica"
	NicheSalao          Niche = "salao"
	NicheBarbearia      Niche = "barbearia"
	NicheContabilidade  Niche = "contabilidade"
	NicheAdvocacia      Niche = "advocacia"
	NicheAcademia       Niche = "academia"
	NicheHotel          Niche = "hotel"
	NicheRestaurante    Niche = "restaurante"
	NicheTransportadora Niche = "transportadora"
	NicheImobiliaria    Niche = "imobiliaria"
	NicheOutro          Niche = "outro"
)

// AllNiches lists every supported niche in display order.
var AllNiches = []Niche{
	NicheSindicato, NicheAssociacao, NicheCooperativa, NicheOficina,
	NicheAutopecas, NicheClinica, NicheSalao, NicheBarbearia,
	NicheContabilidade, NicheAdvocacia, NicheAcademia, NicheHotel,
	NicheRestaurante, NicheTransportadora, NicheImobiliaria, NicheOutro,
}

func (n Niche) Valid() bool {
	for _, v := range AllNiches {
		if v == n {
			return true
		}
	}
	return false
}

// OrDefault maps unknown niches to NicheOutro.
func (n Niche) OrDefault() Niche {
	if n.Valid() {
		return n
	}
	return NicheOutro
}
