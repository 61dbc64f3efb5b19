package genai

import (
	"fmt"
	"strings"

	"github.com/deliverymaster/service-quote/internal/domain/delivery"
)

// The prompts are the product's tariff and geocoding rules; the wording is
// kept in Portuguese because the backend was tuned against it.

const pricingPromptTemplate = `Você é um agente de logística avançado para a FastTrack Delivery. Sua principal função é calcular rotas de entrega com máxima precisão, utilizando dados de mapeamento em tempo real equivalentes ao Google Maps.

Sua tarefa é calcular o custo de uma entrega com base nos endereços fornecidos e em regras de preço estritas. Primeiro, valide todos os endereços para garantir que são localizações reais e válidas. Em seguida, calcule a rota mais eficiente, a distância total e o tempo de percurso.

**Endereços Fornecidos:**
%s

**Opções de Rota:**
- **Incluir retorno ao Ponto 1:** %s
- **Otimizar rota (menor caminho):** %s (Se 'Sim', reordene os pontos 2 em diante para criar a rota mais curta, sempre começando no Ponto 1 e, se houver retorno, terminando no Ponto 1).
- **Agendamento:** %s

**Regras de Preço (Aplicar Estritamente):**
1.  **Custo por KM:** R$ 1,15/km.
2.  **Taxa por Ponto de Parada:** R$ 2,00 por ponto. Esta taxa se aplica a todos os pontos a partir do 3º ponto (inclusive). O Ponto 1 (coleta) e o Ponto 2 (primeira entrega) não têm taxa.
3.  **Acréscimo para Retorno:** Adicionar 60%% sobre o valor total (calculado a partir da distância e das taxas de parada) se a opção de retorno for solicitada.
4.  **Valor Mínimo da Corrida:** R$ 6,00. O preço final NUNCA pode ser inferior a R$ 6,00. Se o cálculo resultar em um valor menor, ajuste-o para R$ 6,00.

**Formato da Resposta:**
Sua resposta DEVE ser um objeto JSON válido, sem nenhuma formatação ou texto adicional, com exatamente estes campos: "distancia_km" (número), "tempo_minutos" (número), "preco_estimado" (número), "rota_mapa_url" (string com a URL do Google Maps com a rota traçada entre todos os pontos). Todos os quatro campos são obrigatórios.

Se algum endereço for inválido ou a rota não puder ser calculada, retorne um erro.`

const geocodePromptTemplate = `Você é um serviço de geocodificação para entregas em Fortaleza, Brasil. Para cada endereço da lista abaixo, retorne as coordenadas geográficas aproximadas.

**Endereços:**
%s

**Formato da Resposta:**
Responda APENAS com um array JSON com exatamente %d elementos, na mesma ordem dos endereços. Cada elemento deve ser um objeto {"lat": número, "lng": número} ou null quando o endereço não puder ser localizado. Nenhum texto adicional.`

// pricingPrompt renders the delivery quote prompt for the given stops and
// routing options.
func pricingPrompt(addresses []delivery.Address, opts delivery.QuoteOptions) string {
	lines := make([]string, len(addresses))
	for i, addr := range addresses {
		line := fmt.Sprintf("Ponto %d: %s", i+1, addr.Value)
		if addr.Complement != "" {
			line += " (" + addr.Complement + ")"
		}
		lines[i] = line
	}

	schedule := "Imediato"
	if opts.ScheduleMode == delivery.ScheduleLater {
		schedule = "Agendado"
		if opts.ScheduledAt != nil {
			schedule = "Agendado para " + opts.ScheduledAt.Format("02/01/2006 15:04")
		}
	}

	return fmt.Sprintf(pricingPromptTemplate,
		strings.Join(lines, "\n"),
		simNao(opts.IncludeReturn),
		simNao(opts.OptimizeRoute),
		schedule,
	)
}

// geocodePrompt renders the batch geocoding prompt.
func geocodePrompt(texts []string) string {
	lines := make([]string, len(texts))
	for i, t := range texts {
		lines[i] = fmt.Sprintf("%d. %s", i+1, t)
	}
	return fmt.Sprintf(geocodePromptTemplate, strings.Join(lines, "\n"), len(texts))
}

func simNao(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
